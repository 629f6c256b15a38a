package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/internal/domain/render"
)

// HandleGetPitch handles GET /teams/{teamID}/pitch.png?w=W&h=H requests: a
// read-only render of the stored lineup.
func (s *Server) HandleGetPitch(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pitch"
	teamID := strings.TrimSpace(r.PathValue("teamID"))
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	width, err := dimension(r, "w", int(render.DefaultPitch.Width), s.maxWidth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	height, err := dimension(r, "h", int(render.DefaultPitch.Height), s.maxHeight)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	l, err := s.deps.Lineup(r.Context(), teamID)
	if err != nil {
		s.fail(r.Context(), w, WrapKind(op, kindOf(err), err))
		return
	}

	rd := render.New(render.WithClampOnRender(s.clampOnRender), render.WithLogger(s.logger))
	rd.Measure(geometry.New(float64(width), float64(height), s.markerSize))

	var buf bytes.Buffer
	if err := s.painter.Encode(&buf, rd.Render(l, nil)); err != nil {
		s.fail(r.Context(), w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// dimension reads a positive integer query value no larger than limit.
func dimension(r *http.Request, key string, def, limit int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return min(def, limit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	if n > limit {
		return 0, fmt.Errorf("%s exceeds %d", key, limit)
	}
	return n, nil
}
