package display

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"epdemo/internal/panel"
)

func TestPartialWindow(t *testing.T) {
	native := image.Rect(0, 0, 128, 296)
	for _, tc := range []struct {
		name       string
		rotation   Rotation
		x, y, w, h int
		want       image.Rectangle
	}{
		{name: "r0 unaligned", rotation: 0, x: 10, y: 15, w: 70, h: 20, want: image.Rect(8, 15, 80, 35)},
		{name: "r1 unaligned", rotation: 1, x: 10, y: 15, w: 70, h: 20, want: image.Rect(88, 10, 120, 80)},
		{name: "r2 unaligned", rotation: 2, x: 10, y: 15, w: 70, h: 20, want: image.Rect(48, 261, 120, 281)},
		{name: "r3 unaligned", rotation: 3, x: 10, y: 15, w: 70, h: 20, want: image.Rect(8, 216, 40, 286)},
		{name: "benchmark window", rotation: 1, x: 8, y: 8, w: 16, h: 16, want: image.Rect(104, 8, 120, 24)},
		{name: "clamped to screen", rotation: 1, x: 280, y: 100, w: 50, h: 50, want: image.Rect(0, 280, 32, 296)},
		{name: "whole screen", rotation: 1, x: 0, y: 0, w: 296, h: 128, want: native},
		{name: "negative origin", rotation: 0, x: -4, y: -4, w: 12, h: 12, want: image.Rect(0, 0, 8, 8)},
		{name: "off screen", rotation: 0, x: 200, y: 0, w: 10, h: 10, want: image.Rectangle{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := partialWindow(native, tc.rotation, tc.x, tc.y, tc.w, tc.h)
			if got.Empty() && tc.want.Empty() {
				return
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("partialWindow() difference (-got +want):\n%s", diff)
			}
			if got.Min.X%8 != 0 || got.Dx()%8 != 0 {
				t.Errorf("partialWindow() = %v is not byte aligned", got)
			}
		})
	}
}

func TestSessionGeometry(t *testing.T) {
	s := New(panel.NewMemory(128, 296), Opts{})
	for _, tc := range []struct {
		rotation     int
		wantRotation int
		w, h         int
	}{
		{rotation: 0, wantRotation: 0, w: 128, h: 296},
		{rotation: 1, wantRotation: 1, w: 296, h: 128},
		{rotation: 2, wantRotation: 2, w: 128, h: 296},
		{rotation: 3, wantRotation: 3, w: 296, h: 128},
		{rotation: 4, wantRotation: 0, w: 128, h: 296},
	} {
		s.SetRotation(tc.rotation)
		if got := s.Rotation(); got != tc.wantRotation {
			t.Errorf("SetRotation(%d): Rotation() = %d, want %d", tc.rotation, got, tc.wantRotation)
		}
		if s.Width() != tc.w || s.Height() != tc.h {
			t.Errorf("rotation %d: size %dx%d, want %dx%d", tc.rotation, s.Width(), s.Height(), tc.w, tc.h)
		}
	}
}

func TestRotationMapping(t *testing.T) {
	for _, tc := range []struct {
		rotation int
		inked    image.Point
		blank    image.Point
	}{
		{rotation: 0, inked: image.Pt(0, 0), blank: image.Pt(127, 0)},
		{rotation: 1, inked: image.Pt(127, 0), blank: image.Pt(0, 0)},
		{rotation: 2, inked: image.Pt(127, 295), blank: image.Pt(0, 0)},
		{rotation: 3, inked: image.Pt(0, 295), blank: image.Pt(0, 0)},
	} {
		m := panel.NewMemory(128, 296)
		s := New(m, Opts{})
		s.SetRotation(tc.rotation)

		err := s.Paint(func(c *Canvas) {
			c.FillRect(0, 0, 1, 1, Black)
		})
		if err != nil {
			t.Fatalf("rotation %d: Paint() failed: %v", tc.rotation, err)
		}
		if !m.Ink(tc.inked.X, tc.inked.Y) {
			t.Errorf("rotation %d: native %v not inked", tc.rotation, tc.inked)
		}
		if m.Ink(tc.blank.X, tc.blank.Y) {
			t.Errorf("rotation %d: native %v inked", tc.rotation, tc.blank)
		}
	}
}

func TestPagesSingleRefresh(t *testing.T) {
	m := panel.NewMemory(128, 296)
	s := New(m, Opts{PageHeight: 100})

	calls := 0
	err := s.Paint(func(c *Canvas) {
		calls++
		c.FillRect(0, 150, 8, 8, Black)
	})
	if err != nil {
		t.Fatalf("Paint() failed: %v", err)
	}

	if calls != 3 {
		t.Errorf("draw called %d times, want 3", calls)
	}
	wantWrites := []image.Rectangle{
		image.Rect(0, 0, 128, 100),
		image.Rect(0, 100, 128, 200),
		image.Rect(0, 200, 128, 296),
	}
	if diff := cmp.Diff(m.Writes(), wantWrites); diff != "" {
		t.Errorf("Writes() difference (-got +want):\n%s", diff)
	}
	wantRefreshes := []panel.RefreshEvent{{Area: image.Rect(0, 0, 128, 296), Partial: false}}
	if diff := cmp.Diff(m.Refreshes(), wantRefreshes); diff != "" {
		t.Errorf("Refreshes() difference (-got +want):\n%s", diff)
	}
	if !m.Ink(0, 150) || !m.Ink(7, 157) || m.Ink(8, 150) {
		t.Error("rectangle not drawn across the page boundary")
	}
}

func TestPartialCycle(t *testing.T) {
	m := panel.NewMemory(128, 296)
	s := New(m, Opts{})
	s.SetRotation(1)
	s.SetPartialWindow(8, 8, 16, 16)

	win, partial := s.Window()
	if diff := cmp.Diff(win, image.Rect(104, 8, 120, 24)); diff != "" || !partial {
		t.Fatalf("Window() = %v, %v", win, partial)
	}

	if err := s.Paint(func(c *Canvas) {
		c.FillScreen(Black)
	}); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(m.Writes(), []image.Rectangle{win}); diff != "" {
		t.Errorf("Writes() difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(m.Refreshes(), []panel.RefreshEvent{{Area: win, Partial: true}}); diff != "" {
		t.Errorf("Refreshes() difference (-got +want):\n%s", diff)
	}
	// FillScreen only covers the window.
	if !m.Ink(104, 8) || !m.Ink(119, 23) || m.Ink(103, 8) || m.Ink(104, 24) {
		t.Error("partial fill leaked outside the window")
	}
}

func TestPartialFullWindow(t *testing.T) {
	s := New(panel.NewMemory(128, 296), Opts{})
	s.SetRotation(1)
	s.SetPartialFullWindow()
	win, partial := s.Window()
	if win != image.Rect(0, 0, 128, 296) || !partial {
		t.Errorf("Window() = %v, %v; want full screen, partial", win, partial)
	}

	s.SetFullWindow()
	if _, partial := s.Window(); partial {
		t.Error("SetFullWindow() left partial mode on")
	}
}

func TestPagesBreakSkipsRefresh(t *testing.T) {
	m := panel.NewMemory(128, 296)
	s := New(m, Opts{PageHeight: 64})

	for c := range s.Pages() {
		c.FillScreen(Black)
		break
	}

	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
	if diff := cmp.Diff(m.Writes(), []image.Rectangle(nil), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Writes() difference (-got +want):\n%s", diff)
	}
	if len(m.Refreshes()) != 0 {
		t.Errorf("unexpected refresh: %v", m.Refreshes())
	}
}

type failingPanel struct {
	*panel.Memory
	err error
}

func (f *failingPanel) WriteImage(image.Rectangle, []byte) error {
	return f.err
}

func TestPagesWriteError(t *testing.T) {
	boom := errors.New("spi gone")
	f := &failingPanel{Memory: panel.NewMemory(128, 296), err: boom}
	s := New(f, Opts{PageHeight: 32})

	calls := 0
	err := s.Paint(func(*Canvas) { calls++ })
	if !errors.Is(err, boom) {
		t.Fatalf("Paint() = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("draw called %d times after a failed write, want 1", calls)
	}
	if len(f.Refreshes()) != 0 {
		t.Error("refreshed after a failed write")
	}
}

func TestEmptyWindow(t *testing.T) {
	s := New(panel.NewMemory(128, 296), Opts{})
	s.SetPartialWindow(500, 500, 10, 10)
	if err := s.Paint(func(*Canvas) {}); !errors.Is(err, errEmptyWindow) {
		t.Errorf("Paint() = %v, want errEmptyWindow", err)
	}
}
