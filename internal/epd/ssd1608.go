// Package epd drives the GDEH029A1 2.9" black/white e-paper panel (SSD1608,
// also sold as IL3820) over SPI using periph.io.
package epd

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"epdemo/internal/config"
	appLog "epdemo/internal/log"
	"epdemo/internal/panel"
)

// ErrBusyTimeout is returned when the BUSY line stays high longer than
// Opts.BusyTimeout.
var ErrBusyTimeout = errors.New("epd: busy timeout")

// LUT contains the waveform that is used to program the display.
type LUT []byte

const lutSize = 30

// Opts defines the structure of the display configuration.
type Opts struct {
	Width         int
	Height        int
	FullUpdate    LUT
	PartialUpdate LUT

	// Frequency is the SPI clock; 0 selects 4 MHz.
	Frequency physic.Frequency
	// BusyTimeout bounds every wait on the BUSY line.
	BusyTimeout time.Duration
}

// GDEH029A1 contains the display configuration for the Good Display 2.9"
// panel (Waveshare 2.9" module, first revision).
var GDEH029A1 = Opts{
	Width:  128,
	Height: 296,
	FullUpdate: LUT{
		0x50, 0xAA, 0x55, 0xAA, 0x11, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0xFF, 0xFF, 0x1F, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	},
	PartialUpdate: LUT{
		0x10, 0x18, 0x18, 0x08, 0x18, 0x18,
		0x08, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x13, 0x14, 0x44, 0x12,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	},
	Frequency:   4 * physic.MegaHertz,
	BusyTimeout: 10 * time.Second,
}

type lutMode int

const (
	lutNone lutMode = iota
	lutFull
	lutPartial
)

type ramWrite struct {
	area  image.Rectangle
	plane []byte
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	mu sync.Mutex

	c    conn.Conn
	port spi.PortCloser

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	opts      Opts
	maxTxSize int

	initialized bool
	powerIsOn   bool
	lut         lutMode
	// since is the RAM content written after the last refresh. Every
	// refresh swaps the controller's old/new buffers, so it is written again
	// to keep the next partial refresh diffing against the shown frame.
	since []ramWrite
}

// New creates new handler which is used to access the display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	o := *opts
	if o.Frequency == 0 {
		o.Frequency = 4 * physic.MegaHertz
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = GDEH029A1.BusyTimeout
	}
	if len(o.FullUpdate) < lutSize || len(o.PartialUpdate) < lutSize {
		return nil, fmt.Errorf("epd: waveform tables need %d bytes", lutSize)
	}

	c, err := p.Connect(o.Frequency, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	d := &Dev{
		c:    c,
		dc:   dc,
		cs:   cs,
		rst:  rst,
		busy: busy,
		opts: o,
	}
	if l, ok := c.(conn.Limits); ok {
		d.maxTxSize = l.MaxTxSize()
	}
	return d, nil
}

// NewFromConfig initializes periph.io, opens the configured SPI port and
// resolves the BCM GPIO pins, returning a ready-to-use Dev for the
// GDEH029A1.
func NewFromConfig(cfg *config.Config) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph host init failed: %w", err)
	}

	port, err := spireg.Open(cfg.SPI.Port)
	if err != nil {
		return nil, fmt.Errorf("epd: failed to open SPI port: %w", err)
	}

	out := func(num int, initial gpio.Level) (gpio.PinOut, error) {
		name := fmt.Sprintf("GPIO%d", num)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("epd: gpio %s not found", name)
		}
		if err := p.Out(initial); err != nil {
			return nil, fmt.Errorf("epd: gpio %s Out failed: %w", name, err)
		}
		return p, nil
	}

	var errs []error
	cs, err := out(cfg.Pins.CS, gpio.High)
	errs = append(errs, err)
	dc, err := out(cfg.Pins.DC, gpio.Low)
	errs = append(errs, err)
	rst, err := out(cfg.Pins.RST, gpio.High)
	errs = append(errs, err)

	busyName := fmt.Sprintf("GPIO%d", cfg.Pins.BUSY)
	busy := gpioreg.ByName(busyName)
	if busy == nil {
		errs = append(errs, fmt.Errorf("epd: gpio %s not found", busyName))
	} else if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		errs = append(errs, fmt.Errorf("epd: gpio %s In failed: %w", busyName, err))
	}
	if err := errors.Join(errs...); err != nil {
		_ = port.Close()
		return nil, err
	}

	opts := GDEH029A1
	opts.Frequency = physic.Frequency(cfg.SPI.Hz) * physic.Hertz
	opts.BusyTimeout = cfg.BusyTimeout

	d, err := New(port, dc, cs, rst, busy, &opts)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: failed to connect SPI: %w", err)
	}
	d.port = port
	appLog.Info("epd attached", "dev", d.String(), "spi", port.String())
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.opts.Width, d.opts.Height)
}

// Bounds returns the native panel geometry.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Capabilities implements panel.Panel.
func (d *Dev) Capabilities() panel.Capabilities {
	return panel.Capabilities{HasPartialUpdate: true, HasFastPartialUpdate: true}
}

// WriteImage transfers plane into the controller RAM at area. A hibernating
// controller is reset and initialized first.
func (d *Dev) WriteImage(area image.Rectangle, plane []byte) error {
	if err := panel.CheckArea(d.Bounds(), area, plane); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	eh := &errorHandler{d: d}
	d.wake(eh)
	writeRAM(eh, area, plane)
	if eh.err == nil {
		d.since = append(d.since, ramWrite{area: area, plane: append([]byte(nil), plane...)})
	}
	return eh.err
}

// Refresh drives the full or partial waveform and waits for it to finish.
func (d *Dev) Refresh(area image.Rectangle, partial bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	eh := &errorHandler{d: d}
	d.wake(eh)

	mode, lut := lutFull, d.opts.FullUpdate
	if partial {
		mode, lut = lutPartial, d.opts.PartialUpdate
	}
	if d.lut != mode {
		loadLUT(eh, lut)
		d.lut = mode
	}
	if !d.powerIsOn {
		runUpdate(eh, updatePowerOn)
		d.powerIsOn = true
	}
	runUpdate(eh, updateDisplay)

	if partial || d.Capabilities().HasFastPartialUpdate {
		for _, w := range d.since {
			writeRAM(eh, w.area, w.plane)
		}
	}
	d.since = nil

	if eh.err != nil {
		return eh.err
	}
	appLog.Debug("epd refresh", "area", area.String(), "partial", partial, "took", time.Since(start).String())
	return nil
}

// PowerOff turns the panel charge pumps off. The RAM content is kept.
func (d *Dev) PowerOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	eh := &errorHandler{d: d}
	d.powerOff(eh)
	return eh.err
}

// Hibernate powers off and puts the controller into deep sleep. Only a
// hardware reset wakes it up, which the next WriteImage or Refresh does.
func (d *Dev) Hibernate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	eh := &errorHandler{d: d}
	d.powerOff(eh)
	if d.initialized {
		deepSleep(eh)
	}
	d.initialized = false
	d.lut = lutNone
	return eh.err
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Hibernate()
}

// Close hibernates the panel and releases the SPI port.
func (d *Dev) Close() error {
	err := d.Hibernate()
	if d.port != nil {
		err = errors.Join(err, d.port.Close())
	}
	return err
}

func (d *Dev) powerOff(eh *errorHandler) {
	if !d.powerIsOn {
		return
	}
	runUpdate(eh, updatePowerOff)
	d.powerIsOn = false
}

func (d *Dev) wake(eh *errorHandler) {
	if d.initialized {
		return
	}
	d.reset(eh)
	initDisplay(eh, &d.opts)
	if eh.err != nil {
		return
	}
	d.initialized = true
	d.powerIsOn = false
	d.lut = lutNone
}

func (d *Dev) reset(eh *errorHandler) {
	eh.rstOut(gpio.High)
	eh.sleep(10 * time.Millisecond)
	eh.rstOut(gpio.Low)
	eh.sleep(10 * time.Millisecond)
	eh.rstOut(gpio.High)
	eh.sleep(10 * time.Millisecond)
}

var _ panel.Panel = &Dev{}
var _ conn.Resource = &Dev{}
