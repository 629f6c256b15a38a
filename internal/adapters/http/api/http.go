// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/formation/internal/adapters/paint/raster"
	"github.com/okian/formation/internal/adapters/repository"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/types"
	"github.com/okian/formation/pkg/logger"
)

const (
	defaultMaxWidth   = 1200
	defaultMaxHeight  = 1800
	defaultMarkerSize = 40
)

// Dependencies required by HTTP handlers. repository.Store satisfies it.
type Dependencies interface {
	Lineup(ctx context.Context, teamID string) (model.Lineup, error)
	SavePlacement(ctx context.Context, playerID string, x, y float64, version uint64) (model.PlayerPlacement, error)
}

// Server wires HTTP routes for the lineup API.
type Server struct {
	deps          Dependencies
	stats         StatsProvider
	painter       *raster.Painter
	maxWidth      int
	maxHeight     int
	markerSize    float64
	clampOnRender bool
	logger        logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		stats:         statsProvider,
		maxWidth:      defaultMaxWidth,
		maxHeight:     defaultMaxHeight,
		markerSize:    defaultMarkerSize,
		clampOnRender: true,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	if s.painter == nil {
		s.painter = raster.New()
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /teams/{teamID}/lineup", MetricsMiddleware(s.HandleGetLineup, "lineup"))
	mux.HandleFunc("GET /teams/{teamID}/pitch.png", MetricsMiddleware(s.HandleGetPitch, "pitch"))
	mux.HandleFunc("PUT /players/{playerID}/placement", MetricsMiddleware(s.HandlePutPlacement, "placement"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// fail maps err to a status and writes it. Server errors are logged.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidPlacement):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrConflict), errors.Is(err, repository.ErrStaleVersion):
		return http.StatusConflict, "stale_version"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
