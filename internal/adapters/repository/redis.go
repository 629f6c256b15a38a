package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
	"github.com/okian/formation/pkg/metrics"
)

const (
	backendRedis       = "redis"
	defaultRedisPrefix = "formation:"
	scanBatch          = 100
)

// Placement hash fields.
const (
	fieldTeam     = "team_id"
	fieldX        = "x"
	fieldY        = "y"
	fieldCaptain  = "is_captain"
	fieldName     = "display_name"
	fieldPhoto    = "photo_ref"
	fieldPosition = "position_label"
	fieldJersey   = "jersey_number"
	fieldVersion  = "version"
)

// savePlacementScript writes x, y and version only when the new version is
// newer than the stored one. Returns -1 for an unknown player, 0 for a
// stale version and 1 when applied.
var savePlacementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local current = tonumber(redis.call('HGET', KEYS[1], 'version') or '0')
if tonumber(ARGV[3]) <= current then
	return 0
end
redis.call('HSET', KEYS[1], 'x', ARGV[1], 'y', ARGV[2], 'version', ARGV[3])
return 1
`)

// RedisStore keeps each placement in a hash and each team's order in a
// list.
//
//	<prefix>team:<teamID>     LIST of player IDs
//	<prefix>player:<playerID> HASH of placement fields
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger logger.Logger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository.redis")
	}
	return s
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) teamKey(teamID string) string     { return s.prefix + "team:" + teamID }
func (s *RedisStore) playerKey(playerID string) string { return s.prefix + "player:" + playerID }

// Lineup implements Store.
func (s *RedisStore) Lineup(ctx context.Context, teamID string) (model.Lineup, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ids, err := s.client.LRange(ctx, s.teamKey(teamID), 0, -1).Result()
	if err != nil {
		return model.Lineup{}, fmt.Errorf("read team %s: %w", teamID, err)
	}
	if len(ids) == 0 {
		exists, err := s.client.Exists(ctx, s.teamKey(teamID)+":empty").Result()
		if err != nil {
			return model.Lineup{}, fmt.Errorf("read team %s: %w", teamID, err)
		}
		if exists == 0 {
			metrics.RecordErrorByComponent("repository", "not_found")
			return model.Lineup{}, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
		}
		return model.Lineup{TeamID: teamID, Placements: []model.PlayerPlacement{}}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.playerKey(id))
		}
		return nil
	})
	if err != nil {
		return model.Lineup{}, fmt.Errorf("read placements of team %s: %w", teamID, err)
	}

	l := model.Lineup{TeamID: teamID, Placements: make([]model.PlayerPlacement, 0, len(ids))}
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.logger.Warn(ctx, "team lists a player without a placement",
				logger.String("team_id", teamID),
				logger.String("player_id", ids[i]),
			)
			continue
		}
		p, err := decodePlacement(ids[i], fields)
		if err != nil {
			return model.Lineup{}, err
		}
		l.Placements = append(l.Placements, p)
	}
	return l, nil
}

// SavePlacement implements Store.
func (s *RedisStore) SavePlacement(ctx context.Context, playerID string, x, y float64, version uint64) (model.PlayerPlacement, error) {
	start := time.Now()
	outcome := "applied"
	defer func() {
		metrics.RecordRepositoryWrite(backendRedis, outcome, float64(time.Since(start).Microseconds())/1000)
	}()

	if err := ValidatePlacement(x, y, version); err != nil {
		outcome = "invalid"
		return model.PlayerPlacement{}, err
	}

	key := s.playerKey(playerID)
	res, err := savePlacementScript.Run(ctx, s.client, []string{key},
		formatFloat(x), formatFloat(y), strconv.FormatUint(version, 10)).Int()
	if err != nil {
		outcome = "error"
		return model.PlayerPlacement{}, fmt.Errorf("save placement %s: %w", playerID, err)
	}
	switch res {
	case -1:
		outcome = "not_found"
		return model.PlayerPlacement{}, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	case 0:
		outcome = "stale"
		return model.PlayerPlacement{}, fmt.Errorf("%w: player %s, got %d", ErrStaleVersion, playerID, version)
	}

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return model.PlayerPlacement{}, fmt.Errorf("read placement %s: %w", playerID, err)
	}
	return decodePlacement(playerID, fields)
}

// PutLineup implements Store.
func (s *RedisStore) PutLineup(ctx context.Context, l model.Lineup) error {
	if err := validateLineup(l); err != nil {
		return err
	}

	for _, p := range l.Placements {
		team, err := s.client.HGet(ctx, s.playerKey(p.PlayerID), fieldTeam).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("check player %s: %w", p.PlayerID, err)
		}
		if err == nil && team != l.TeamID {
			return fmt.Errorf("%w: player %s already in team %s", ErrInvalidPlacement, p.PlayerID, team)
		}
	}
	old, err := s.client.LRange(ctx, s.teamKey(l.TeamID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("read team %s: %w", l.TeamID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range old {
			pipe.Del(ctx, s.playerKey(id))
		}
		pipe.Del(ctx, s.teamKey(l.TeamID), s.teamKey(l.TeamID)+":empty")
		if len(l.Placements) == 0 {
			pipe.Set(ctx, s.teamKey(l.TeamID)+":empty", "1", 0)
			return nil
		}
		ids := make([]interface{}, len(l.Placements))
		for i, p := range l.Placements {
			ids[i] = p.PlayerID
			pipe.HSet(ctx, s.playerKey(p.PlayerID), encodePlacement(l.TeamID, p))
		}
		pipe.RPush(ctx, s.teamKey(l.TeamID), ids...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write team %s: %w", l.TeamID, err)
	}
	return nil
}

// Teams implements Store.
func (s *RedisStore) Teams(ctx context.Context) ([]string, error) {
	prefix := s.teamKey("")
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		seen[strings.TrimSuffix(strings.TrimPrefix(iter.Val(), prefix), ":empty")] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan teams: %w", err)
	}
	teams := make([]string, 0, len(seen))
	for id := range seen {
		teams = append(teams, id)
	}
	sort.Strings(teams)
	return teams, nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context) int {
	n := 0
	iter := s.client.Scan(ctx, 0, s.playerKey("")+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn(ctx, "count placements failed", logger.Error(err))
	}
	return n
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodePlacement(teamID string, p model.PlayerPlacement) map[string]interface{} {
	return map[string]interface{}{
		fieldTeam:     teamID,
		fieldX:        formatFloat(p.X),
		fieldY:        formatFloat(p.Y),
		fieldCaptain:  strconv.FormatBool(p.IsCaptain),
		fieldName:     p.DisplayName,
		fieldPhoto:    p.PhotoRef,
		fieldPosition: p.PositionLabel,
		fieldJersey:   strconv.Itoa(p.JerseyNumber),
		fieldVersion:  strconv.FormatUint(p.Version, 10),
	}
}

func decodePlacement(playerID string, f map[string]string) (model.PlayerPlacement, error) {
	p := model.PlayerPlacement{
		PlayerID:      playerID,
		DisplayName:   f[fieldName],
		PhotoRef:      f[fieldPhoto],
		PositionLabel: f[fieldPosition],
	}
	var err error
	if p.X, err = strconv.ParseFloat(f[fieldX], 64); err != nil {
		return p, fmt.Errorf("decode %s.x: %w", playerID, err)
	}
	if p.Y, err = strconv.ParseFloat(f[fieldY], 64); err != nil {
		return p, fmt.Errorf("decode %s.y: %w", playerID, err)
	}
	if p.Version, err = strconv.ParseUint(f[fieldVersion], 10, 64); err != nil {
		return p, fmt.Errorf("decode %s.version: %w", playerID, err)
	}
	p.IsCaptain, _ = strconv.ParseBool(f[fieldCaptain])
	p.JerseyNumber, _ = strconv.Atoi(f[fieldJersey])
	return p, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
