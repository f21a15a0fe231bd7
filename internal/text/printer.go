package text

import (
	"image"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"epdemo/internal/display"
)

// Printer writes text at a moving cursor, the way a terminal or the
// Adafruit-GFX print/println calls do. The cursor is a baseline position.
type Printer struct {
	Dst   draw.Image
	Face  font.Face
	Color display.Color

	x, y int
}

// SetCursor moves the baseline cursor to (x, y).
func (p *Printer) SetCursor(x, y int) {
	p.x, p.y = x, y
}

// Cursor returns the current baseline cursor.
func (p *Printer) Cursor() image.Point {
	return image.Pt(p.x, p.y)
}

// Print draws s at the cursor and advances it. Newlines move to the start
// of the next line.
func (p *Printer) Print(s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			p.newline()
		}
		if line == "" {
			continue
		}
		d := font.Drawer{
			Dst:  p.Dst,
			Src:  &image.Uniform{p.Color},
			Face: p.Face,
			Dot:  fixed.P(p.x, p.y),
		}
		d.DrawString(line)
		p.x = d.Dot.X.Round()
	}
}

// Println prints s followed by a newline.
func (p *Printer) Println(s string) {
	p.Print(s + "\n")
}

func (p *Printer) newline() {
	p.x = 0
	p.y += p.Face.Metrics().Height.Ceil()
}
