package scene

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/image/font"

	"epdemo/internal/display"
	"epdemo/internal/text"
)

const (
	helloWorldText   = "Hello World!"
	helloArduinoText = "Hello Arduino!"
	helloEpaperText  = "Hello E-Paper!"
)

// printAt draws s with its first baseline at (x, y).
func printAt(c *display.Canvas, face font.Face, x, y int, s string, col display.Color) {
	p := text.Printer{Dst: c, Face: face, Color: col}
	p.SetCursor(x, y)
	p.Print(s)
}

// centered returns the cursor that centers s in a w×h area.
func centered(face font.Face, s string, w, h int) (int, int) {
	b := text.Bounds(face, s)
	return (w-b.Dx())/2 - b.Min.X, (h-b.Dy())/2 - b.Min.Y
}

// lineHeight is the face's line advance.
func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// helloWorld draws the greeting in both scripts over the whole screen using
// the partial waveform.
func helloWorld(_ context.Context, env *Env) error {
	s := env.Session
	s.SetPartialFullWindow()
	w, h := int16(s.Width()), int16(s.Height())
	return s.Paint(func(c *display.Canvas) {
		text.DrawUniversal(c, w/2, h/2, helloWorldText, env.Fonts.Latin, display.Black, text.AlignCenter)
		text.DrawUniversal(c, w/2, h/2+30, "你好，世界！", env.Fonts.CJK, display.Black, text.AlignCenter)
	})
}

func helloWorldForDummies(_ context.Context, env *Env) error {
	s := env.Session
	s.SetRotation(1)
	x, y := centered(env.Fonts.Latin, helloWorldText, s.Width(), s.Height())
	s.SetFullWindow()
	return s.Paint(func(c *display.Canvas) {
		printAt(c, env.Fonts.Latin, x, y, helloWorldText, display.Black)
	})
}

// helloFullScreenPartial names the partial refresh flavour the panel
// supports, refreshed with the partial waveform over the whole screen.
func helloFullScreenPartial(_ context.Context, env *Env) error {
	s := env.Session
	// The window is taken in the incoming orientation; it covers the whole
	// screen in any of them.
	s.SetPartialWindow(0, 0, s.Width(), s.Height())
	s.SetRotation(1)
	w, h := s.Width(), s.Height()

	caps := s.Capabilities()
	mode := "no partial mode"
	switch {
	case caps.HasFastPartialUpdate:
		mode = "fast partial mode"
	case caps.HasPartialUpdate:
		mode = "slow partial mode"
	}

	latin := env.Fonts.Latin
	const fullscreen = "full screen update"
	b := text.Bounds(latin, fullscreen)
	utx, uty := (w-b.Dx())/2-b.Min.X, (h/4-b.Dy()/2)-b.Min.Y
	b = text.Bounds(latin, mode)
	umx, umy := (w-b.Dx())/2-b.Min.X, (h*3/4-b.Dy()/2)-b.Min.Y
	hwx, hwy := centered(latin, helloWorldText, w, h)

	return s.Paint(func(c *display.Canvas) {
		printAt(c, latin, hwx, hwy, helloWorldText, display.Black)
		printAt(c, latin, utx, uty, fullscreen, display.Black)
		printAt(c, latin, umx, umy, mode, display.Black)
	})
}

// helloArduino overwrites the upper quarter line in a partial window tall
// enough to cover the previous text's descenders.
func helloArduino(ctx context.Context, env *Env) error {
	s := env.Session
	s.SetRotation(1)
	w, h := s.Width(), s.Height()
	latin := env.Fonts.Latin

	x, _ := centered(latin, helloWorldText, w, h)
	b := text.Bounds(latin, helloArduinoText)
	y := (h/4 - b.Dy()/2) - b.Min.Y

	wh := lineHeight(latin)
	s.SetPartialWindow(0, h/4-wh/2, w, wh)
	if err := s.Paint(func(c *display.Canvas) {
		printAt(c, latin, x, y, helloArduinoText, display.Black)
	}); err != nil {
		return err
	}
	return env.Hold(ctx, env.Config.Hold.Short)
}

func helloEpaper(_ context.Context, env *Env) error {
	s := env.Session
	s.SetRotation(1)
	w, h := s.Width(), s.Height()
	latin := env.Fonts.Latin

	x, _ := centered(latin, helloWorldText, w, h)
	b := text.Bounds(latin, helloEpaperText)
	y := h*3/4 + b.Dy()/2

	wh := lineHeight(latin)
	s.SetPartialWindow(0, h*3/4-wh/2, w, wh)
	return s.Paint(func(c *display.Canvas) {
		printAt(c, latin, x, y, helloEpaperText, display.Black)
	})
}

// deepSleep hibernates the controller between two screens to show that the
// next page cycle wakes it up again.
func deepSleep(ctx context.Context, env *Env) error {
	const (
		hibernating = "hibernating ..."
		wokeUp      = "woke up"
		from        = "from deep sleep"
		again       = "again"
	)
	s := env.Session
	s.SetRotation(1)
	w, h := s.Width(), s.Height()
	latin := env.Fonts.Latin

	// two centers top on the h/3 line and bottom on the 2h/3 line.
	two := func(top, bottom string) error {
		bt := text.Bounds(latin, top)
		bb := text.Bounds(latin, bottom)
		tx, ty := (w-bt.Dx())/2, h/3+bt.Dy()/2
		bx, by := (w-bb.Dx())/2, h*2/3+bb.Dy()/2
		return s.Paint(func(c *display.Canvas) {
			printAt(c, latin, tx, ty, top, display.Black)
			printAt(c, latin, bx, by, bottom, display.Black)
		})
	}

	x, y := centered(latin, hibernating, w, h)
	s.SetFullWindow()
	if err := s.Paint(func(c *display.Canvas) {
		printAt(c, latin, x, y, hibernating, display.Black)
	}); err != nil {
		return err
	}
	if err := s.Hibernate(); err != nil {
		return err
	}
	if err := env.Hold(ctx, env.Config.Hold.Sleep); err != nil {
		return err
	}
	if err := two(wokeUp, from); err != nil {
		return err
	}
	if err := env.Hold(ctx, env.Config.Hold.Sleep); err != nil {
		return err
	}
	if err := two(hibernating, again); err != nil {
		return err
	}
	return s.Hibernate()
}

func showBox(env *Env, x, y, w, h int, partial bool) error {
	s := env.Session
	s.SetRotation(1)
	if partial {
		s.SetPartialWindow(x, y, w, h)
	} else {
		s.SetFullWindow()
	}
	return s.Paint(func(c *display.Canvas) {
		c.FillRect(x, y, w, h, display.Black)
	})
}

// showBoxes draws a box with a full refresh, then a second one in its own
// partial window.
func showBoxes(ctx context.Context, env *Env) error {
	if err := showBox(env, 16, 16, 48, 32, false); err != nil {
		return err
	}
	if err := env.Hold(ctx, env.Config.Hold.Short); err != nil {
		return err
	}
	if err := showBox(env, 16, 56, 48, 32, true); err != nil {
		return err
	}
	return env.Hold(ctx, env.Config.Hold.Short)
}

// cornerTest marks the corners with boxes of distinct sizes for every
// rotation; the fifth pass wraps back to rotation 0.
func cornerTest(ctx context.Context, env *Env) error {
	s := env.Session
	s.SetFullWindow()
	latin := env.Fonts.Latin
	for r := 0; r <= 4; r++ {
		s.SetRotation(r)
		w, h := s.Width(), s.Height()
		label := strconv.Itoa(s.Rotation())
		if err := s.Paint(func(c *display.Canvas) {
			c.FillRect(0, 0, 8, 8, display.Black)
			c.FillRect(w-18, 0, 16, 16, display.Black)
			c.FillRect(w-25, h-25, 24, 24, display.Black)
			c.FillRect(0, h-33, 32, 32, display.Black)
			printAt(c, latin, w/2, h/2, label, display.Black)
		}); err != nil {
			return err
		}
		if err := env.Hold(ctx, env.Config.Hold.Long); err != nil {
			return err
		}
	}
	return nil
}

var fontChartLines = []string{
	` !"#$%&'()*+,-./`,
	"0123456789:;<=>?",
	"@ABCDEFGHIJKLMNO",
	`PQRSTUVWXYZ[\]^_`,
	"`abcdefghijklmno",
	"pqrstuvwxyz{|}~ ",
}

// fontChart prints the printable ASCII range in portrait orientation.
func fontChart(_ context.Context, env *Env) error {
	s := env.Session
	s.SetFullWindow()
	s.SetRotation(0)
	latin := env.Fonts.Latin
	name := env.Fonts.LatinName
	return s.Paint(func(c *display.Canvas) {
		p := text.Printer{Dst: c, Face: latin, Color: display.Black}
		p.SetCursor(0, 0)
		p.Println("")
		p.Println(name)
		for _, l := range fontChartLines {
			p.Println(l)
		}
	})
}

// partialUpdate first shows where the update box lands in every rotation,
// then counts up inside it.
func partialUpdate(ctx context.Context, env *Env) error {
	if err := helloWorld(ctx, env); err != nil {
		return err
	}
	const (
		boxX, boxY = 10, 15
		boxW, boxH = 70, 20
		cursorY    = boxY + boxH - 6
		value      = 13.95
	)
	s := env.Session
	hold := env.Config.Hold
	latin := env.Fonts.Latin
	incr := 3
	if s.Capabilities().HasFastPartialUpdate {
		incr = 1
	}

	fill := func(col display.Color) error {
		return s.Paint(func(c *display.Canvas) {
			c.FillRect(boxX, boxY, boxW, boxH, col)
		})
	}

	for r := 0; r < 4; r++ {
		s.SetRotation(r)
		s.SetPartialWindow(boxX, boxY, boxW, boxH)
		if err := fill(display.Black); err != nil {
			return err
		}
		if err := env.Hold(ctx, hold.Long); err != nil {
			return err
		}
		if err := fill(display.White); err != nil {
			return err
		}
		if err := env.Hold(ctx, hold.Short); err != nil {
			return err
		}
	}

	for r := 0; r < 4; r++ {
		s.SetRotation(r)
		s.SetPartialWindow(boxX, boxY, boxW, boxH)
		for i := 1; i <= 10; i += incr {
			v := fmt.Sprintf("%.2f", value*float64(i))
			if err := s.Paint(func(c *display.Canvas) {
				c.FillRect(boxX, boxY, boxW, boxH, display.White)
				printAt(c, latin, boxX, cursorY, v, display.Black)
			}); err != nil {
				return err
			}
			if err := env.Hold(ctx, hold.Short/2); err != nil {
				return err
			}
		}
		if err := env.Hold(ctx, hold.Short); err != nil {
			return err
		}
		if err := fill(display.White); err != nil {
			return err
		}
		if err := env.Hold(ctx, hold.Short); err != nil {
			return err
		}
	}
	return nil
}

// unifiedText mixes scripts and alignments on one screen.
func unifiedText(ctx context.Context, env *Env) error {
	s := env.Session
	s.SetPartialFullWindow()
	w := int16(s.Width())
	cjk, latin := env.Fonts.CJK, env.Fonts.Latin
	if err := s.Paint(func(c *display.Canvas) {
		text.DrawUniversal(c, 10, 14, "温度：25.5℃ 湿度：60%", cjk, display.Black, text.AlignLeft)
		text.DrawUniversal(c, w/2, 80, "Linux & E-Paper Demo", latin, display.Black, text.AlignCenter)
		text.DrawUniversal(c, w-10, 126, "统一接口测试成功", cjk, display.Black, text.AlignRight)
	}); err != nil {
		return err
	}
	return env.Hold(ctx, env.Config.Hold.Sleep)
}
