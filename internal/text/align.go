package text

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"epdemo/internal/display"
)

// Alignment selects which point of the string the anchor x refers to.
type Alignment uint8

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return "left"
}

// Metrics are the vertical extents used for clamping, in pixels relative to
// the baseline. Descent is negative (below the baseline).
type Metrics struct {
	Ascent  int16
	Descent int16
}

// DefaultMetrics are the 16px CJK face's extents. DrawUniversal applies them
// to every face; use a Drawer with MetricsFromFace for per-face values.
var DefaultMetrics = Metrics{Ascent: 14, Descent: -2}

// Height returns ascent - descent.
func (m Metrics) Height() int16 {
	return m.Ascent - m.Descent
}

// MetricsFromFace reads the extents from the face itself.
func MetricsFromFace(face font.Face) Metrics {
	fm := face.Metrics()
	return Metrics{
		Ascent:  int16(fm.Ascent.Ceil()),
		Descent: -int16(fm.Descent.Ceil()),
	}
}

// Origin turns an anchor into the baseline origin of a string of the given
// width.
//
// The x shift follows align and is never clamped. y is pinned so the text
// stays inside [0, screenHeight]: when the top would be above the screen the
// baseline becomes m.Ascent, otherwise when the bottom would be below it the
// baseline becomes screenHeight + m.Descent. The top pin wins.
func Origin(x, y int16, width int, screenHeight int, align Alignment, m Metrics) (int16, int16) {
	switch align {
	case AlignCenter:
		x -= int16(width / 2)
	case AlignRight:
		x -= int16(width)
	}

	top := y - m.Ascent
	bottom := y - m.Descent
	if top < 0 {
		y = m.Ascent
	} else if int(bottom) > screenHeight {
		y = int16(screenHeight) + m.Descent
	}
	return x, y
}

// Colors returns the rasterizer palette indices for col. Index 0 is ink,
// index 1 is paper: the foreground is 0 for black, the background is 0 for
// white.
func Colors(col display.Color) (fg, bg uint8) {
	fg, bg = 1, 1
	if col == display.Black {
		fg = 0
	}
	if col == display.White {
		bg = 0
	}
	return fg, bg
}

func indexColor(i uint8) display.Color {
	if i == 0 {
		return display.Black
	}
	return display.White
}

// Drawer draws aligned, vertically clamped strings.
type Drawer struct {
	// Metrics returns the extents used for a face. Nil means DefaultMetrics
	// for every face.
	Metrics func(font.Face) Metrics
}

func (d Drawer) metrics(face font.Face) Metrics {
	if d.Metrics == nil {
		return DefaultMetrics
	}
	return d.Metrics(face)
}

// Draw renders s with its baseline anchored at (x, y). Glyphs are painted in
// the foreground color only; the background shows through.
func (d Drawer) Draw(dst draw.Image, x, y int16, s string, face font.Face, col display.Color, align Alignment) {
	fg, _ := Colors(col)

	width := 0
	if align != AlignLeft {
		width = font.MeasureString(face, s).Round()
	}
	ox, oy := Origin(x, y, width, dst.Bounds().Dy(), align, d.metrics(face))

	fd := font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{indexColor(fg)},
		Face: face,
		Dot:  fixed.P(int(ox), int(oy)),
	}
	fd.DrawString(s)
}

// DrawUniversal draws s with the default metrics. See Drawer.Draw.
func DrawUniversal(dst draw.Image, x, y int16, s string, face font.Face, col display.Color, align Alignment) {
	Drawer{}.Draw(dst, x, y, s, face, col, align)
}
