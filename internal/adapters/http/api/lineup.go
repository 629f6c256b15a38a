package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/formation/internal/adapters/repository"
	"github.com/okian/formation/internal/domain/types"
	"github.com/okian/formation/pkg/logger"
)

const maxPlacementBody = 1 << 12

// placementRequest mirrors types.PlacementUpdate with every field required.
type placementRequest struct {
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Version *uint64  `json:"version"`
}

func (p placementRequest) validate() error {
	switch {
	case p.X == nil:
		return errors.New("missing x")
	case p.Y == nil:
		return errors.New("missing y")
	case p.Version == nil:
		return errors.New("missing version")
	}
	return repository.ValidatePlacement(*p.X, *p.Y, *p.Version)
}

// HandleGetLineup handles GET /teams/{teamID}/lineup requests.
func (s *Server) HandleGetLineup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_lineup"
	teamID := strings.TrimSpace(r.PathValue("teamID"))
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	l, err := s.deps.Lineup(r.Context(), teamID)
	if err != nil {
		s.fail(r.Context(), w, WrapKind(op, kindOf(err), err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromModel(l))
}

// HandlePutPlacement handles PUT /players/{playerID}/placement requests.
// A version that is not newer than the stored one is answered with 409.
func (s *Server) HandlePutPlacement(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_placement"
	playerID := strings.TrimSpace(r.PathValue("playerID"))
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var req placementRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlacementBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	p, err := s.deps.SavePlacement(r.Context(), playerID, *req.X, *req.Y, *req.Version)
	if err != nil {
		s.logger.Debug(r.Context(), "placement not stored",
			logger.String("player_id", playerID),
			logger.String("request_id", r.Header.Get("X-Request-ID")),
			logger.Uint64("version", *req.Version),
			logger.Error(err),
		)
		s.fail(r.Context(), w, WrapKind(op, kindOf(err), err))
		return
	}
	writeJSON(w, http.StatusOK, types.PlacementAck{PlayerID: p.PlayerID, X: p.X, Y: p.Y, Version: p.Version})
}

// kindOf maps a repository error onto an API error kind.
func kindOf(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStaleVersion):
		return ErrConflict
	case errors.Is(err, repository.ErrInvalidPlacement):
		return ErrBadRequest
	default:
		return ErrInternal
	}
}
