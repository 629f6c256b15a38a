// Package remote is the HTTP client for the lineup service. It implements
// the lineup store's Fetcher and the save worker's Writer.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/types"
	"github.com/okian/formation/pkg/logger"
	"github.com/okian/formation/pkg/metrics"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = 15 * time.Second
	maxErrorBody       = 4 << 10

	opLineup = "lineup"
	opSave   = "save_placement"
)

// Client talks to the lineup REST API.
type Client struct {
	base        *url.URL
	http        *http.Client
	timeout     time.Duration
	maxFailures uint32
	openTimeout time.Duration
	breaker     *gobreaker.CircuitBreaker
	nextID      func() string
	logger      logger.Logger
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}

	c := &Client{
		base:        u,
		timeout:     defaultTimeout,
		maxFailures: defaultMaxFailures,
		openTimeout: defaultOpenTimeout,
		nextID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("remote")
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lineup-service",
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrStale) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateRemoteBreakerState(int(to))
			c.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from_state", from.String()),
				logger.String("to_state", to.String()),
			)
		},
	})
	metrics.UpdateRemoteBreakerState(int(gobreaker.StateClosed))
	return c, nil
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Lineup fetches a team's lineup.
func (c *Client) Lineup(ctx context.Context, teamID string) (model.Lineup, error) {
	var body types.Lineup
	err := c.do(ctx, opLineup, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/lineup", c.nextID(), nil, &body)
	if err != nil {
		return model.Lineup{}, err
	}
	l := body.ToModel()
	if l.TeamID == "" {
		l.TeamID = teamID
	}
	return l, nil
}

// SavePlacement writes one placement. A 409 from the service means a newer
// version is already stored and is reported as model.SaveStale.
func (c *Client) SavePlacement(ctx context.Context, req model.SaveRequest) (model.SaveStatus, error) {
	payload := types.PlacementUpdate{X: req.X, Y: req.Y, Version: req.Version}
	var ack types.PlacementAck
	err := c.do(ctx, opSave, http.MethodPut, "/players/"+url.PathEscape(req.PlayerID)+"/placement", req.RequestID, payload, &ack)
	switch {
	case err == nil:
		return model.SaveOK, nil
	case errors.Is(err, ErrStale):
		return model.SaveStale, err
	default:
		return model.SaveFailed, err
	}
}

func (c *Client) do(ctx context.Context, op, method, path, requestID string, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, requestID, in, out)
	})
	switch {
	case err == nil:
		metrics.RecordRemoteRequest(op, "ok")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordRemoteRequest(op, "breaker_open")
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		metrics.RecordRemoteRequest(op, outcome(err))
	}
	if err != nil {
		c.logger.Debug(ctx, "lineup service call failed",
			logger.String("operation", op),
			logger.String("request_id", requestID),
			logger.Error(err),
		)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, requestID string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg := resp.Status
	var e types.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(raw, &e) == nil && e.Message != "" {
		msg = e.Message
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrStale, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, msg)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrStale):
		return "stale"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "unavailable"
	}
}
