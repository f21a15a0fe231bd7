package display

import (
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"epdemo/internal/convert"
)

// Color is a panel color. Black is ink, White is paper.
type Color = image1bit.Bit

const (
	Black Color = image1bit.Off
	White Color = image1bit.On
)

// Canvas is the drawing surface handed out for one page. It is addressed in
// logical (rotated) coordinates; pixels outside the current page are
// silently dropped, so every page can replay the same drawing code.
type Canvas struct {
	buf      *image1bit.VerticalLSB
	native   image.Rectangle
	rotation Rotation
	w, h     int
}

func newCanvas(native, page image.Rectangle, r Rotation) *Canvas {
	w, h := logicalSize(native, r)
	return &Canvas{
		buf:      image1bit.NewVerticalLSB(page),
		native:   native,
		rotation: r,
		w:        w,
		h:        h,
	}
}

// ColorModel implements image.Image.
func (c *Canvas) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the logical screen, whatever the page.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.w, c.h)
}

// Width returns the logical screen width.
func (c *Canvas) Width() int { return c.w }

// Height returns the logical screen height.
func (c *Canvas) Height() int { return c.h }

// Page returns the native rectangle backed by this canvas.
func (c *Canvas) Page() image.Rectangle {
	return c.buf.Bounds()
}

// At implements image.Image. Pixels outside the page read as paper.
func (c *Canvas) At(x, y int) color.Color {
	nx, ny := toNative(c.native, c.rotation, x, y)
	if !image.Pt(nx, ny).In(c.buf.Bounds()) {
		return White
	}
	return c.buf.BitAt(nx, ny)
}

// Set implements draw.Image.
func (c *Canvas) Set(x, y int, col color.Color) {
	c.SetBit(x, y, Color(!convert.IsInk(col)))
}

// SetBit sets one logical pixel.
func (c *Canvas) SetBit(x, y int, col Color) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	nx, ny := toNative(c.native, c.rotation, x, y)
	if !image.Pt(nx, ny).In(c.buf.Bounds()) {
		return
	}
	c.buf.SetBit(nx, ny, col)
}

// FillScreen paints the whole page.
func (c *Canvas) FillScreen(col Color) {
	b := c.buf.Bounds()
	draw.Src.Draw(c.buf, b, &image.Uniform{col}, b.Min)
}

// FillRect paints the w×h rectangle at (x, y).
func (c *Canvas) FillRect(x, y, w, h int, col Color) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			c.SetBit(i, j, col)
		}
	}
}

// DrawRect outlines the w×h rectangle at (x, y) with a 1px line.
func (c *Canvas) DrawRect(x, y, w, h int, col Color) {
	if w <= 0 || h <= 0 {
		return
	}
	c.FillRect(x, y, w, 1, col)
	c.FillRect(x, y+h-1, w, 1, col)
	c.FillRect(x, y, 1, h, col)
	c.FillRect(x+w-1, y, 1, h, col)
}

// DrawLine draws a 1px Bresenham line between both end points inclusive.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col Color) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.SetBit(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// FillCircle paints a disc of radius r centered on (x0, y0).
func (c *Canvas) FillCircle(x0, y0, r int, col Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.SetBit(x0+dx, y0+dy, col)
			}
		}
	}
}

// DrawMask paints col wherever mask is opaque, with mask's top left corner
// at (x, y). Transparent mask pixels leave the canvas untouched.
func (c *Canvas) DrawMask(x, y int, mask image.Image, col Color) {
	mb := mask.Bounds()
	r := image.Rect(x, y, x+mb.Dx(), y+mb.Dy())
	draw.DrawMask(c, r, &image.Uniform{col}, image.Point{}, mask, mb.Min, draw.Over)
}

// DrawImage copies img with its top left corner at (x, y), thresholding it
// to black and white.
func (c *Canvas) DrawImage(x, y int, img image.Image) {
	b := img.Bounds()
	draw.Draw(c, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var _ draw.Image = &Canvas{}
