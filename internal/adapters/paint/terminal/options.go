package terminal

// Option applies a configuration option to the Painter.
type Option func(*Painter)

// WithOrigin offsets the pitch from the screen's top-left cell.
func WithOrigin(x, y int) Option {
	return func(p *Painter) {
		p.originX, p.originY = max(0, x), max(0, y)
	}
}

// WithMarkings toggles the pitch border and halfway line.
func WithMarkings(enabled bool) Option {
	return func(p *Painter) {
		p.markings = enabled
	}
}
