package render

import (
	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/pkg/logger"
)

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithMode selects edit or read-only display.
func WithMode(mode Mode) Option {
	return func(r *Renderer) {
		r.mode = mode
	}
}

// WithClampOnRender controls whether idle markers whose stored position
// falls outside the current pitch are drawn on the nearest edge. The stored
// value is never changed.
func WithClampOnRender(enabled bool) Option {
	return func(r *Renderer) {
		r.clampOnRender = enabled
	}
}

// WithDefaultPitch sets the geometry used before the first usable measure.
func WithDefaultPitch(p geometry.Pitch) Option {
	return func(r *Renderer) {
		if p.Measured() {
			r.fallback = p
		}
	}
}

// WithLogger sets a custom logger for the renderer.
func WithLogger(l logger.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}
