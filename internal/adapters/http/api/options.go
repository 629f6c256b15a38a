package api

import (
	"github.com/okian/formation/internal/adapters/paint/raster"
	"github.com/okian/formation/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithPitchLimits bounds the size of rendered pitch images.
func WithPitchLimits(maxWidth, maxHeight int) Option {
	return func(s *Server) {
		if maxWidth > 0 {
			s.maxWidth = maxWidth
		}
		if maxHeight > 0 {
			s.maxHeight = maxHeight
		}
	}
}

// WithMarkerSize sets the marker size, in pixels, of rendered pitches.
func WithMarkerSize(size float64) Option {
	return func(s *Server) {
		if size >= 0 {
			s.markerSize = size
		}
	}
}

// WithClampOnRender controls whether out-of-bounds placements are drawn on
// the pitch edge.
func WithClampOnRender(enabled bool) Option {
	return func(s *Server) {
		s.clampOnRender = enabled
	}
}

// WithPainter sets the image painter for pitch renders.
func WithPainter(p *raster.Painter) Option {
	return func(s *Server) {
		if p != nil {
			s.painter = p
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
