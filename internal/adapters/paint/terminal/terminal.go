// Package terminal paints a render.Frame on a tcell screen, one cell per
// surface unit.
package terminal

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/internal/domain/render"
)

// Badge runes.
const (
	CaptainBadge = 'C'
	UnsavedBadge = '!'
)

var (
	turfStyle    = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorWhite)
	lineStyle    = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorSilver)
	markerStyle  = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite).Bold(true)
	dragStyle    = tcell.StyleDefault.Background(tcell.ColorDodgerBlue).Foreground(tcell.ColorWhite).Bold(true)
	captainStyle = tcell.StyleDefault.Background(tcell.ColorGold).Foreground(tcell.ColorBlack).Bold(true)
	unsavedStyle = tcell.StyleDefault.Background(tcell.ColorRed).Foreground(tcell.ColorWhite).Bold(true)
	roleStyle    = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	jerseyStyle  = tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorNavy).Bold(true)
	nameStyle    = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorWhite)
	statusStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// Painter draws frames on a screen.
type Painter struct {
	screen           tcell.Screen
	originX, originY int
	markings         bool
}

// New creates a painter for screen.
func New(screen tcell.Screen, opts ...Option) *Painter {
	p := &Painter{screen: screen, markings: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Surface returns the pitch geometry available on the screen: the whole
// screen below and right of the origin, minus one row for the status line.
func (p *Painter) Surface(markerSize float64) geometry.Pitch {
	w, h := p.screen.Size()
	return geometry.New(float64(w-p.originX), float64(h-p.originY-1), markerSize)
}

// ToSurface converts a screen cell to the surface point at its center.
func (p *Painter) ToSurface(x, y int) geometry.Point {
	return geometry.Point{X: float64(x-p.originX) + 0.5, Y: float64(y-p.originY) + 0.5}
}

// Paint clears the screen, draws f and the status line, and shows it.
func (p *Painter) Paint(f render.Frame, status string) {
	p.screen.Clear()
	w := int(math.Round(f.Pitch.Width))
	h := int(math.Round(f.Pitch.Height))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.set(x, y, ' ', turfStyle)
		}
	}
	if p.markings && w > 1 && h > 1 {
		p.lines(w, h)
	}
	// Names first so markers stay on top of a neighbour's name.
	for _, m := range f.Markers {
		p.name(m, w, h)
	}
	for _, m := range f.Markers {
		p.marker(m)
	}
	p.text(0, h, status, statusStyle)
	p.screen.Show()
}

func (p *Painter) lines(w, h int) {
	for x := 1; x < w-1; x++ {
		p.set(x, 0, tcell.RuneHLine, lineStyle)
		p.set(x, h-1, tcell.RuneHLine, lineStyle)
		p.set(x, h/2, tcell.RuneHLine, lineStyle)
	}
	for y := 1; y < h-1; y++ {
		p.set(0, y, tcell.RuneVLine, lineStyle)
		p.set(w-1, y, tcell.RuneVLine, lineStyle)
	}
	p.set(0, 0, tcell.RuneULCorner, lineStyle)
	p.set(w-1, 0, tcell.RuneURCorner, lineStyle)
	p.set(0, h-1, tcell.RuneLLCorner, lineStyle)
	p.set(w-1, h-1, tcell.RuneLRCorner, lineStyle)
	p.set(0, h/2, tcell.RuneLTee, lineStyle)
	p.set(w-1, h/2, tcell.RuneRTee, lineStyle)
	p.set(w/2, h/2, tcell.RunePlus, lineStyle)
}

func (p *Painter) marker(m render.Marker) {
	x0 := int(math.Round(m.Position.X))
	y0 := int(math.Round(m.Position.Y))
	size := max(1, int(math.Round(m.Size)))

	style := markerStyle
	if m.Dragging {
		style = dragStyle
	}
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			p.set(x, y, ' ', style)
		}
	}

	label := []rune(m.Initials)
	if len(label) > size {
		label = label[:size]
	}
	mid := y0 + size/2
	start := x0 + (size-len(label))/2
	for i, r := range label {
		p.set(start+i, mid, r, style)
	}

	if size >= 2 && m.Unsaved {
		p.set(x0, y0, UnsavedBadge, unsavedStyle)
	}
	if size >= 3 {
		p.clipped(x0+1, y0, size-1, m.PositionLabel, roleStyle)
		jersey := []rune(m.Jersey)
		if len(jersey) > size {
			jersey = jersey[len(jersey)-size:]
		}
		p.clipped(x0+size-len(jersey), y0+size-1, size, string(jersey), jerseyStyle)
	}
	if m.Captain {
		if y0 > 0 {
			p.set(x0+size/2, y0-1, CaptainBadge, captainStyle)
		} else {
			p.set(x0+size-1, y0, CaptainBadge, captainStyle)
		}
	}
}

// name writes the display name on the row under the marker when that row
// is still on the pitch.
func (p *Painter) name(m render.Marker, w, h int) {
	x0 := int(math.Round(m.Position.X))
	size := max(1, int(math.Round(m.Size)))
	y := int(math.Round(m.Position.Y)) + size
	if m.Name == "" || y < 0 || y >= h {
		return
	}
	name := []rune(m.Name)
	if len(name) > w {
		name = name[:w]
	}
	start := min(max(0, x0+(size-len(name))/2), w-len(name))
	p.text(start, y, string(name), nameStyle)
}

// clipped writes at most n runes of s starting at x.
func (p *Painter) clipped(x, y, n int, s string, style tcell.Style) {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	p.text(x, y, string(r), style)
}

func (p *Painter) text(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		p.set(x+i, y, r, style)
	}
}

func (p *Painter) set(x, y int, r rune, style tcell.Style) {
	p.screen.SetContent(p.originX+x, p.originY+y, r, nil, style)
}
