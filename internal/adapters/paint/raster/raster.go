// Package raster paints a render.Frame into an image.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/okian/formation/internal/domain/render"
)

// Palette.
var (
	turf        = color.NRGBA{R: 46, G: 125, B: 50, A: 255}
	lines       = color.NRGBA{R: 236, G: 244, B: 236, A: 255}
	markerFill  = color.NRGBA{R: 21, G: 101, B: 192, A: 255}
	dragFill    = color.NRGBA{R: 66, G: 165, B: 245, A: 255}
	captainFill = color.NRGBA{R: 255, G: 193, B: 7, A: 255}
	unsavedRing = color.NRGBA{R: 229, G: 57, B: 53, A: 255}
	roleFill    = color.NRGBA{R: 38, G: 50, B: 56, A: 255}
	jerseyFill  = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	labelColor  = color.White
)

const (
	lineWidth = 2
	// badgePad is the space between a badge's edge and its text.
	badgePad = 2
	// captainGap separates the captain badge from the marker top.
	captainGap = 2

	captainText = "C"
)

// Painter draws frames with one pixel per surface unit.
type Painter struct {
	background image.Image
	face       font.Face
	names      bool
}

// New creates a painter using the 7x13 bitmap font.
func New(opts ...Option) *Painter {
	p := &Painter{face: basicfont.Face7x13, names: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Paint draws f. The image is the size of f.Pitch; an unusable pitch
// yields a 1x1 image.
func (p *Painter) Paint(f render.Frame) *image.RGBA {
	w := int(math.Round(f.Pitch.Width))
	h := int(math.Round(f.Pitch.Height))
	if w < 1 || h < 1 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	if p.background != nil {
		draw.CatmullRom.Scale(img, img.Bounds(), p.background, p.background.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(img, img.Bounds(), image.NewUniform(turf), image.Point{}, draw.Src)
	}
	p.pitchLines(img)

	for _, m := range f.Markers {
		p.marker(img, m)
	}
	return img
}

// Encode paints f and writes it as PNG.
func (p *Painter) Encode(w io.Writer, f render.Frame) error {
	if err := png.Encode(w, p.Paint(f)); err != nil {
		return fmt.Errorf("encode pitch png: %w", err)
	}
	return nil
}

func (p *Painter) pitchLines(img *image.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	rect(img, image.Rect(0, 0, w, h), lines)
	fill(img, image.Rect(0, h/2-lineWidth/2, w, h/2+lineWidth/2), lines)
	ring(img, float64(w)/2, float64(h)/2, float64(min(w, h))/7, lineWidth, lines)

	// Penalty areas.
	bw, bh := w*3/5, h/7
	rect(img, image.Rect((w-bw)/2, 0, (w+bw)/2, bh), lines)
	rect(img, image.Rect((w-bw)/2, h-bh, (w+bw)/2, h), lines)
}

func (p *Painter) marker(img *image.RGBA, m render.Marker) {
	r := m.Size / 2
	if r < 2 {
		r = 2
	}
	c := m.Center()
	x0, y0 := int(math.Round(m.Position.X)), int(math.Round(m.Position.Y))
	x1, y1 := int(math.Round(m.Position.X+2*r)), int(math.Round(m.Position.Y+2*r))

	body := markerFill
	if m.Dragging {
		body = dragFill
	}
	disc(img, c.X, c.Y, r, body)
	if m.Unsaved {
		ring(img, c.X, c.Y, r+3, 2, unsavedRing)
	}

	p.label(img, m.Initials, c.X, c.Y+float64(p.face.Metrics().Ascent.Ceil())/2-1, labelColor)

	// Role on the top-left corner, jersey on the bottom-right corner.
	if m.PositionLabel != "" {
		p.badge(img, m.PositionLabel, image.Pt(x0, y0), roleFill, labelColor)
	}
	if m.Jersey != "" {
		w, h := p.badgeSize(m.Jersey)
		p.badge(img, m.Jersey, image.Pt(x1-w, y1-h), jerseyFill, markerFill)
	}
	if m.Captain {
		w, h := p.badgeSize(captainText)
		p.badge(img, captainText, image.Pt(int(math.Round(c.X))-w/2, y0-captainGap-h), captainFill, color.Black)
	}

	if p.names && m.Name != "" {
		p.label(img, m.Name, c.X, c.Y+r+float64(p.face.Metrics().Height.Ceil()), labelColor)
	}
}

func (p *Painter) badgeSize(s string) (w, h int) {
	return font.MeasureString(p.face, s).Ceil() + 2*badgePad, p.face.Metrics().Height.Ceil() + badgePad
}

// badge draws s on a filled box whose top-left corner is at.
func (p *Painter) badge(img *image.RGBA, s string, at image.Point, bg, fg color.Color) {
	w, h := p.badgeSize(s)
	fill(img, image.Rect(at.X, at.Y, at.X+w, at.Y+h), bg)
	p.text(img, s, at.X+badgePad, at.Y+badgePad/2+p.face.Metrics().Ascent.Ceil(), fg)
}

// label draws s centered horizontally on cx with its baseline at y.
func (p *Painter) label(img *image.RGBA, s string, cx, y float64, c color.Color) {
	width := font.MeasureString(p.face, s).Ceil()
	p.text(img, s, int(math.Round(cx))-width/2, int(math.Round(y)), c)
}

func (p *Painter) text(img *image.RGBA, s string, x, baseline int, c color.Color) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: p.face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func rect(img *image.RGBA, r image.Rectangle, c color.Color) {
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+lineWidth), c)
	fill(img, image.Rect(r.Min.X, r.Max.Y-lineWidth, r.Max.X, r.Max.Y), c)
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+lineWidth, r.Max.Y), c)
	fill(img, image.Rect(r.Max.X-lineWidth, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func disc(img *image.RGBA, cx, cy, r float64, c color.Color) {
	ring(img, cx, cy, r, r, c)
}

// ring fills the annulus between r-thickness and r.
func ring(img *image.RGBA, cx, cy, r, thickness float64, c color.Color) {
	inner := math.Max(0, r-thickness)
	b := image.Rect(int(cx-r)-1, int(cy-r)-1, int(cx+r)+2, int(cy+r)+2).Intersect(img.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d <= r && d >= inner {
				img.Set(x, y, c)
			}
		}
	}
}
