package raster

import (
	"image"

	"golang.org/x/image/font"
)

// Option applies a configuration option to the Painter.
type Option func(*Painter)

// WithBackground paints img, scaled to the pitch, instead of the plain
// turf colour.
func WithBackground(img image.Image) Option {
	return func(p *Painter) {
		p.background = img
	}
}

// WithFace sets the font used for marker labels.
func WithFace(face font.Face) Option {
	return func(p *Painter) {
		if face != nil {
			p.face = face
		}
	}
}

// WithNames toggles the display name drawn under each marker.
func WithNames(enabled bool) Option {
	return func(p *Painter) {
		p.names = enabled
	}
}
