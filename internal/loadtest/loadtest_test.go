package loadtest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/formation/internal/adapters/http/api"
	service "github.com/okian/formation/internal/app"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func squad() model.Lineup {
	return model.Lineup{
		TeamID: "home",
		Placements: []model.PlayerPlacement{
			{PlayerID: "gk", X: 0.5, Y: 0.9, IsCaptain: true},
			{PlayerID: "lb", X: 0.1, Y: 0.7, Version: 3},
			{PlayerID: "st", X: 0.5, Y: 0.2},
		},
	}
}

func startService(ctx context.Context) (*service.Service, *httptest.Server) {
	svc := service.New(service.WithSeedLineups(squad()))
	So(svc.Start(ctx), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return svc, httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a running lineup service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc, ts := startService(ctx)
		defer svc.Stop()
		defer ts.Close()

		cfg := &Config{
			BaseURL: ts.URL,
			TeamID:  "home",
			Moves:   300,
			Workers: 8,
			Timeout: 5 * time.Second,
			Seed:    42,
		}

		Convey("When many writers race on the same players", func() {
			stats, err := Run(ctx, cfg)

			Convey("Then every write is answered and the newest version of each player wins", func() {
				So(err, ShouldBeNil)
				So(stats.MovesGenerated, ShouldEqual, 300)
				So(stats.MovesSubmitted, ShouldEqual, 300)
				So(stats.MovesFailed, ShouldEqual, 0)
				So(stats.MovesAccepted+stats.MovesStale, ShouldEqual, 300)
				So(stats.MovesAccepted, ShouldBeGreaterThanOrEqualTo, 3)
				So(stats.PlayersVerified, ShouldEqual, 3)
			})

			Convey("And the stored versions never move backwards", func() {
				l, err := svc.Lineup(ctx, "home")
				So(err, ShouldBeNil)
				So(l.Placements[1].Version, ShouldBeGreaterThan, 3)
			})
		})

		Convey("When the team does not exist", func() {
			cfg.TeamID = "nobody"
			_, err := Run(ctx, cfg)

			Convey("Then the run stops before writing", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "lineup read failed")
			})
		})
	})

	Convey("Given a service that is not running", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		_, err := Run(context.Background(), &Config{BaseURL: ts.URL, TeamID: "home", Moves: 1, Workers: 1, Timeout: time.Second})

		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
	})
}

func TestGenerateMoves(t *testing.T) {
	Convey("Given a lineup with stored versions", t, func() {
		ctx := context.Background()
		stats := &Stats{}

		Convey("When moves are generated", func() {
			moves, err := generateMoves(ctx, &Config{Moves: 50, Seed: 7}, squad(), stats)
			So(err, ShouldBeNil)

			Convey("Then versions count up per player from the stored version", func() {
				So(moves, ShouldHaveLength, 50)
				So(stats.MovesGenerated, ShouldEqual, 50)

				seen := map[string]map[uint64]bool{}
				for _, m := range moves {
					So(m.X, ShouldBeBetweenOrEqual, 0, 1)
					So(m.Y, ShouldBeBetweenOrEqual, 0, 1)
					if seen[m.PlayerID] == nil {
						seen[m.PlayerID] = map[uint64]bool{}
					}
					So(seen[m.PlayerID][m.Version], ShouldBeFalse)
					seen[m.PlayerID][m.Version] = true
				}
				for v := range seen["lb"] {
					So(v, ShouldBeGreaterThan, 3)
				}
				latest := latestMoves(moves)
				So(latest["lb"].Version, ShouldEqual, 3+uint64(len(seen["lb"])))
			})

			Convey("And the same seed gives the same moves", func() {
				again, err := generateMoves(ctx, &Config{Moves: 50, Seed: 7}, squad(), &Stats{})
				So(err, ShouldBeNil)
				So(again, ShouldResemble, moves)
			})
		})

		Convey("When the lineup is empty", func() {
			_, err := generateMoves(ctx, &Config{Moves: 5}, model.Lineup{TeamID: "home"}, stats)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerifyResults(t *testing.T) {
	Convey("Given the moves sent for two players", t, func() {
		ctx := context.Background()
		moves := []Move{
			{PlayerID: "gk", X: 0.1, Y: 0.1, Version: 1},
			{PlayerID: "gk", X: 0.2, Y: 0.2, Version: 2},
			{PlayerID: "st", X: 0.3, Y: 0.3, Version: 1},
		}
		accepted := map[Move]bool{moves[1]: true, moves[2]: true}

		Convey("When the store holds the newest writes", func() {
			after := model.Lineup{TeamID: "home", Placements: []model.PlayerPlacement{
				{PlayerID: "gk", X: 0.2, Y: 0.2, Version: 2},
				{PlayerID: "st", X: 0.3, Y: 0.3, Version: 1},
			}}
			stats := &Stats{}

			So(verifyResults(ctx, &Config{}, moves, accepted, after, stats), ShouldBeNil)
			So(stats.PlayersVerified, ShouldEqual, 2)
		})

		Convey("When an older write overwrote a newer one", func() {
			after := model.Lineup{TeamID: "home", Placements: []model.PlayerPlacement{
				{PlayerID: "gk", X: 0.1, Y: 0.1, Version: 1},
				{PlayerID: "st", X: 0.3, Y: 0.3, Version: 1},
			}}

			err := verifyResults(ctx, &Config{}, moves, accepted, after, &Stats{})
			So(errors.Is(err, ErrMismatch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "player gk")
		})

		Convey("When a player disappeared", func() {
			after := model.Lineup{TeamID: "home", Placements: []model.PlayerPlacement{
				{PlayerID: "gk", X: 0.2, Y: 0.2, Version: 2},
			}}

			err := verifyResults(ctx, &Config{Verbose: true}, moves, accepted, after, &Stats{})
			So(errors.Is(err, ErrMismatch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "st missing")
		})
	})
}
