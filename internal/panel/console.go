package panel

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// ConsoleOpts represents the options available for the console preview.
type ConsoleOpts struct {
	Width, Height int
	// Rotation turns the preview so it reads like the logical screen.
	Rotation int
	// Scale keeps every Scale-th pixel on both axes; 0 means 2.
	Scale   int
	Palette *ansi256.Palette
	// Out defaults to a colorable stdout.
	Out io.Writer
}

// Console is an e-paper emulator that outputs to the terminal using ANSI
// color codes. It keeps a Memory panel underneath and repaints the preview
// after every refresh.
//
// Used by -render-only so the scenes can be developed without hardware.
type Console struct {
	*Memory

	w        io.Writer
	rotation int
	scale    int
	palette  ansi256.Palette
	buf      bytes.Buffer
}

// NewConsole returns a Console panel.
func NewConsole(opts ConsoleOpts) *Console {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 2
	}
	return &Console{
		Memory:   NewMemory(opts.Width, opts.Height),
		w:        w,
		rotation: opts.Rotation,
		scale:    scale,
		palette:  *p,
	}
}

func (c *Console) String() string {
	return fmt.Sprintf("Console{%dx%d, scale %d}", c.bounds.Dx(), c.bounds.Dy(), c.scale)
}

// SetRotation changes the orientation of subsequent previews.
func (c *Console) SetRotation(rotation int) {
	c.rotation = rotation
}

// Refresh implements Panel.
func (c *Console) Refresh(area image.Rectangle, partial bool) error {
	if err := c.Memory.Refresh(area, partial); err != nil {
		return err
	}
	return c.paint(partial)
}

// PowerOff implements Panel. It resets the terminal attributes.
func (c *Console) PowerOff() error {
	if err := c.Memory.PowerOff(); err != nil {
		return err
	}
	_, err := io.WriteString(c.w, "\033[0m")
	return err
}

func (c *Console) paint(partial bool) error {
	img := Oriented(c.Frame(), c.rotation)
	b := img.Bounds()

	// This code is designed to minimize the amount of memory allocated per call.
	c.buf.Reset()
	mode := "full"
	if partial {
		mode = "partial"
	}
	fmt.Fprintf(&c.buf, "\033[0m-- %s refresh %dx%d --\n", mode, b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y += c.scale {
		for x := b.Min.X; x < b.Max.X; x += c.scale {
			_, _ = io.WriteString(&c.buf, c.palette.Block(gray(img.At(x, y))))
		}
		_, _ = c.buf.WriteString("\033[0m\n")
	}
	_, err := c.buf.WriteTo(c.w)
	return err
}

// gray flattens c to a grey level in the form the palette matches against.
func gray(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(color.GrayModel.Convert(c)).(color.NRGBA)
}

var _ Panel = &Console{}
var _ fmt.Stringer = &Console{}
