package battery

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestGaugeRead(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x57, W: []byte{0x22}, R: []byte{0x0F}},
			{Addr: 0x57, W: []byte{0x23}, R: []byte{0xA0}},
			{Addr: 0x57, W: []byte{0x2A}, R: []byte{87}},
		},
	}
	g := NewGauge(bus, 0x57)

	got, err := g.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	want := Status{Percent: 87, VoltageMv: 4000}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Read() difference (-got +want):\n%s", diff)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("not all transactions played back: %v", err)
	}
}

func TestGaugeClampsPercent(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x75, W: []byte{0x22}, R: []byte{0x10}},
			{Addr: 0x75, W: []byte{0x23}, R: []byte{0x68}},
			{Addr: 0x75, W: []byte{0x2A}, R: []byte{150}},
		},
	}
	got, err := NewGauge(bus, 0x75).Read(context.Background())
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if got.Percent != 100 || got.VoltageMv != 4200 {
		t.Errorf("Read() = %+v, want 100%% at 4200mV", got)
	}
}

func TestGaugeBusError(t *testing.T) {
	// No recorded transactions: the first Tx fails.
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := NewGauge(bus, 0x57).Read(context.Background()); err == nil {
		t.Error("Read() succeeded on an empty playback")
	}
}

func TestGaugeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus := &i2ctest.Playback{}
	if _, err := NewGauge(bus, 0x57).Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() = %v, want context.Canceled", err)
	}
}

func TestMockReader(t *testing.T) {
	m := NewMockReader(42)
	for range 50 {
		s, err := m.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if s.Percent < 20 || s.Percent > 100 || !s.Mock {
			t.Fatalf("Read() = %+v, want mock reading in [20, 100]", s)
		}
	}
}
