package scene

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"epdemo/internal/display"
	appLog "epdemo/internal/log"
	"epdemo/internal/text"
)

// customContent composes a frame with gg: two centered lines of text, a
// border, a filled circle and a diagonal. The antialiased result is
// thresholded onto the canvas.
func customContent(_ context.Context, env *Env) error {
	s := env.Session
	s.SetRotation(1)
	s.SetFullWindow()
	w, h := s.Width(), s.Height()
	face := env.Fonts.CJK

	line1 := "我的电子纸"
	line2 := env.now().Format("2006-01-02")

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetFontFace(face)

	b1 := text.Bounds(face, line1)
	dc.DrawString(line1, float64((w-b1.Dx())/2-b1.Min.X), float64(h/3-b1.Min.Y))
	b2 := text.Bounds(face, line2)
	dc.DrawString(line2, float64((w-b2.Dx())/2-b2.Min.X), float64(h*2/3-b2.Min.Y))

	// Half-pixel offsets keep 1px strokes on whole pixels.
	dc.SetLineWidth(1)
	dc.DrawRectangle(5.5, 5.5, float64(w-10-1), float64(h-10-1))
	dc.Stroke()
	dc.DrawCircle(float64(w/2), float64(h/2), 10)
	dc.Fill()
	dc.DrawLine(5.5, 5.5, float64(w-10)+0.5, float64(h-10)+0.5)
	dc.Stroke()

	img := dc.Image()
	return s.Paint(func(c *display.Canvas) {
		c.DrawImage(0, 0, img)
	})
}

// bitmap shows the configured image, fitted and centered on a white
// background in landscape orientation.
func bitmap(ctx context.Context, env *Env) error {
	path := env.Config.BitmapPath
	if path == "" {
		appLog.Warn("bitmap scene skipped, no bitmap_path configured")
		return nil
	}
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open bitmap: %w", err)
	}

	s := env.Session
	s.SetRotation(1)
	s.SetFullWindow()
	w, h := s.Width(), s.Height()

	img := prepareBitmap(src, w, h)
	x, y := (w-img.Bounds().Dx())/2, (h-img.Bounds().Dy())/2
	if err := s.Paint(func(c *display.Canvas) {
		c.DrawImage(x, y, img)
	}); err != nil {
		return err
	}
	return env.Hold(ctx, env.Config.Hold.Sleep)
}

// prepareBitmap scales img to fit w×h and turns it into a high contrast
// grayscale image ready for thresholding.
func prepareBitmap(img image.Image, w, h int) image.Image {
	fit := imaging.Fit(img, w, h, imaging.Lanczos)
	gray := imaging.Grayscale(fit)
	return imaging.AdjustContrast(gray, 20)
}

// batteryStatus draws the gauge reading as text and as a bar.
func batteryStatus(ctx context.Context, env *Env) error {
	if env.Battery == nil {
		return errors.New("no battery reader")
	}
	st, err := env.Battery.Read(ctx)
	if err != nil {
		return fmt.Errorf("read battery: %w", err)
	}

	s := env.Session
	s.SetRotation(1)
	s.SetFullWindow()
	w := s.Width()
	cjk := env.Fonts.CJK

	level := fmt.Sprintf("电量：%d%%", st.Percent)
	volts := "电压：未知"
	if st.VoltageMv > 0 {
		volts = fmt.Sprintf("电压：%d.%03dV", st.VoltageMv/1000, st.VoltageMv%1000)
	}
	source := "PiSugar"
	if st.Mock {
		source = "mock"
	}

	const barX, barY, barW, barH = 20, 80, 240, 30
	fillW := (barW - 4) * st.Percent / 100

	if err := s.Paint(func(c *display.Canvas) {
		text.DrawUniversal(c, int16(w/2), 20, "电池状态", cjk, display.Black, text.AlignCenter)
		text.DrawUniversal(c, 20, 50, level, cjk, display.Black, text.AlignLeft)
		text.DrawUniversal(c, int16(w-20), 50, volts, cjk, display.Black, text.AlignRight)

		c.DrawRect(barX, barY, barW, barH, display.Black)
		c.FillRect(barX+barW, barY+barH/4, 4, barH/2, display.Black)
		c.FillRect(barX+2, barY+2, fillW, barH-4, display.Black)

		text.DrawUniversal(c, int16(w-10), 126, source, env.Fonts.Latin, display.Black, text.AlignRight)
	}); err != nil {
		return err
	}
	return env.Hold(ctx, env.Config.Hold.Sleep)
}
