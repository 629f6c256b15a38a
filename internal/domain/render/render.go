// Package render lays out a lineup on a pitch of known geometry.
//
// The Renderer does not draw. It produces a Frame: one Marker per placement
// with an absolute position derived from the normalized values on every
// call. Painters in internal/adapters/paint turn a Frame into pixels or
// terminal cells.
package render

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
)

// Mode selects whether markers accept gestures.
type Mode int

// Display modes.
const (
	ReadOnly Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "read-only"
}

// DefaultPitch is used until the surface is measured.
var DefaultPitch = geometry.New(300, 450, 40)

// DragSource reports the display position of markers being dragged.
// *placement.Controller implements it.
type DragSource interface {
	DisplayPosition(playerID string) (geometry.Point, bool)
}

// Marker is one player as it should appear on screen.
type Marker struct {
	PlayerID string
	// Position is the top-left corner of the marker in surface units.
	Position geometry.Point
	Size     float64

	Name          string
	Initials      string
	PhotoRef      string
	PositionLabel string
	Jersey        string
	Captain       bool

	Dragging bool
	Unsaved  bool
	// OutOfBounds is set when the stored position fell outside the pitch
	// and the marker was drawn on the nearest edge instead.
	OutOfBounds bool
	Interactive bool
}

// Center is the middle of the marker.
func (m Marker) Center() geometry.Point {
	return geometry.Point{X: m.Position.X + m.Size/2, Y: m.Position.Y + m.Size/2}
}

// Contains reports whether pt falls on the marker.
func (m Marker) Contains(pt geometry.Point) bool {
	size := m.Size
	if size <= 0 {
		size = 1
	}
	return pt.X >= m.Position.X && pt.X < m.Position.X+size &&
		pt.Y >= m.Position.Y && pt.Y < m.Position.Y+size
}

// Frame is a complete layout of one lineup.
type Frame struct {
	TeamID string
	Pitch  geometry.Pitch
	// Measured is false when Pitch is the last known or default geometry.
	Measured bool
	Mode     Mode
	// Markers are in paint order: later markers are drawn on top.
	Markers []Marker
}

// HitTest returns the top-most interactive marker under pt.
func (f Frame) HitTest(pt geometry.Point) (Marker, bool) {
	for i := len(f.Markers) - 1; i >= 0; i-- {
		m := f.Markers[i]
		if m.Interactive && m.Contains(pt) {
			return m, true
		}
	}
	return Marker{}, false
}

// Marker returns the marker for playerID.
func (f Frame) Marker(playerID string) (Marker, bool) {
	for _, m := range f.Markers {
		if m.PlayerID == playerID {
			return m, true
		}
	}
	return Marker{}, false
}

// Renderer turns lineups into Frames for the current geometry.
type Renderer struct {
	mu       sync.RWMutex
	pitch    geometry.Pitch
	measured bool
	fallback geometry.Pitch

	mode          Mode
	clampOnRender bool
	logger        logger.Logger
}

// New creates a renderer in read-only mode.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		fallback:      DefaultPitch,
		mode:          ReadOnly,
		clampOnRender: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("render")
	}
	return r
}

// Measure is the layout callback. A malformed geometry is ignored and the
// last known one stays in use; the return reports whether p was accepted.
func (r *Renderer) Measure(p geometry.Pitch) bool {
	if !p.Measured() {
		r.logger.Debug(context.Background(), "ignoring unusable pitch geometry",
			logger.Float64("width", p.Width),
			logger.Float64("height", p.Height),
		)
		return false
	}
	r.mu.Lock()
	r.pitch = p
	r.measured = true
	r.mu.Unlock()
	return true
}

// Geometry returns the pitch frames are laid out on and whether it was
// measured.
func (r *Renderer) Geometry() (geometry.Pitch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.measured {
		return r.pitch, true
	}
	return r.fallback, false
}

// Mode returns the display mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Render lays out l. drags may be nil; in read-only mode it is ignored.
func (r *Renderer) Render(l model.Lineup, drags DragSource) Frame {
	pitch, measured := r.Geometry()
	f := Frame{
		TeamID:   l.TeamID,
		Pitch:    pitch,
		Measured: measured,
		Mode:     r.mode,
		Markers:  make([]Marker, 0, len(l.Placements)),
	}
	if r.mode != Edit {
		drags = nil
	}

	var dragged []Marker
	for _, p := range l.Placements {
		m := r.marker(p, pitch)
		m.Interactive = r.mode == Edit && measured
		if drags != nil {
			if pos, ok := drags.DisplayPosition(p.PlayerID); ok {
				m.Position = pos
				m.Dragging = true
				dragged = append(dragged, m)
				continue
			}
		}
		if r.clampOnRender {
			m.Position, m.OutOfBounds = geometry.Clamp(m.Position, pitch)
		}
		f.Markers = append(f.Markers, m)
	}
	f.Markers = append(f.Markers, dragged...)
	return f
}

func (r *Renderer) marker(p model.PlayerPlacement, pitch geometry.Pitch) Marker {
	m := Marker{
		PlayerID:      p.PlayerID,
		Position:      geometry.AbsolutePoint(p.X, p.Y, pitch),
		Size:          pitch.MarkerSize,
		Name:          p.DisplayName,
		Initials:      Initials(p.DisplayName),
		PhotoRef:      p.PhotoRef,
		PositionLabel: p.PositionLabel,
		Captain:       p.IsCaptain,
		Unsaved:       p.Unsaved,
	}
	if p.JerseyNumber > 0 {
		m.Jersey = strconv.Itoa(p.JerseyNumber)
	}
	return m
}

// Initials is the placeholder drawn when a player has no photo: the first
// letter of up to two words.
func Initials(name string) string {
	out := make([]rune, 0, 2)
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}
