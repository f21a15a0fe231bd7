// Package battery reads the charge level of an optional I2C fuel gauge
// (PiSugar 3 register layout) and falls back to a mock reader when none is
// attached.
package battery

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"epdemo/internal/config"
	appLog "epdemo/internal/log"
)

// PiSugar 3 registers.
const (
	regVoltageHigh = 0x22
	regVoltageLow  = 0x23
	regPercent     = 0x2A
)

// Status is a battery reading.
type Status struct {
	// Percent is the battery level in 0..100.
	Percent int `json:"percent"`
	// VoltageMv is the battery voltage in millivolts, 0 when unknown.
	VoltageMv int `json:"voltage_mv"`
	// Mock is set when the reading does not come from hardware.
	Mock bool `json:"mock"`
}

// Reader abstracts how battery information is obtained.
type Reader interface {
	Read(ctx context.Context) (Status, error)
}

// Gauge reads a PiSugar-style fuel gauge on an I2C bus.
type Gauge struct {
	mu  sync.Mutex
	dev *i2c.Dev
}

// NewGauge returns a Gauge at addr on bus. It does not touch the bus.
func NewGauge(bus i2c.Bus, addr uint16) *Gauge {
	return &Gauge{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

func (g *Gauge) String() string {
	return fmt.Sprintf("battery.Gauge{%s}", g.dev)
}

// Read implements Reader.
func (g *Gauge) Read(ctx context.Context) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	high, err := g.readReg(regVoltageHigh)
	if err != nil {
		return Status{}, err
	}
	low, err := g.readReg(regVoltageLow)
	if err != nil {
		return Status{}, err
	}
	pct, err := g.readReg(regPercent)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Percent:   int(min(pct, 100)),
		VoltageMv: int(uint16(high)<<8 | uint16(low)),
	}, nil
}

func (g *Gauge) readReg(reg byte) (byte, error) {
	buf := []byte{0}
	if err := g.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, fmt.Errorf("battery: read register 0x%02X: %w", reg, err)
	}
	return buf[0], nil
}

// Open initializes the host drivers and opens the configured I2C bus. The
// returned function closes the bus.
func Open(cfg config.BatteryConfig) (*Gauge, func() error, error) {
	if runtime.GOOS != "linux" {
		return nil, nil, fmt.Errorf("battery: i2c unavailable on %s", runtime.GOOS)
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("battery: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, nil, fmt.Errorf("battery: open i2c %q: %w", cfg.Bus, err)
	}
	return NewGauge(bus, cfg.Addr), bus.Close, nil
}

// MockReader returns a pseudo-random level between 20% and 100% and no
// voltage. It is used on hosts without a gauge.
type MockReader struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockReader returns a MockReader seeded from seed, or from the clock when
// seed is 0.
func NewMockReader(seed int64) *MockReader {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockReader{rnd: rand.New(rand.NewSource(seed))}
}

// Read implements Reader.
func (m *MockReader) Read(_ context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{Percent: 20 + m.rnd.Intn(81), Mock: true}, nil
}

// DefaultReader opens the configured gauge and checks it answers; on any
// failure it logs a warning and returns a MockReader. The returned function
// releases the bus and is never nil.
func DefaultReader(ctx context.Context, cfg config.BatteryConfig) (Reader, func() error) {
	g, closer, err := Open(cfg)
	if err == nil {
		if _, err = g.Read(ctx); err == nil {
			appLog.Info("battery gauge attached", "bus", cfg.Bus, "addr", fmt.Sprintf("0x%02X", cfg.Addr))
			return g, closer
		}
		_ = closer()
	}
	appLog.Warn("battery gauge unavailable, using mock", "error", err)
	return NewMockReader(0), func() error { return nil }
}
