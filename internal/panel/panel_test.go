package panel

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	"github.com/maruel/ansi256"
)

func TestCheckArea(t *testing.T) {
	bounds := image.Rect(0, 0, 128, 296)
	for _, tc := range []struct {
		name      string
		area      image.Rectangle
		plane     int
		wantErr   bool
		unaligned bool
	}{
		{name: "full", area: bounds, plane: 16 * 296},
		{name: "window", area: image.Rect(8, 8, 24, 24), plane: 2 * 16},
		{name: "empty", area: image.Rectangle{}, wantErr: true},
		{name: "outside", area: image.Rect(120, 0, 136, 8), plane: 16, wantErr: true},
		{name: "unaligned x", area: image.Rect(4, 0, 12, 8), plane: 8, wantErr: true, unaligned: true},
		{name: "unaligned width", area: image.Rect(8, 0, 20, 8), plane: 16, wantErr: true, unaligned: true},
		{name: "short plane", area: image.Rect(0, 0, 16, 2), plane: 3, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckArea(bounds, tc.area, make([]byte, tc.plane))
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckArea() = %v, wantErr %v", err, tc.wantErr)
			}
			if got := errors.Is(err, ErrAreaNotAligned); got != tc.unaligned {
				t.Errorf("errors.Is(ErrAreaNotAligned) = %v, want %v", got, tc.unaligned)
			}
		})
	}
}

func TestMemoryRefresh(t *testing.T) {
	m := NewMemory(16, 4)
	area := image.Rect(8, 1, 16, 3)

	if err := m.WriteImage(area, []byte{0x00, 0x7F}); err != nil {
		t.Fatalf("WriteImage() failed: %v", err)
	}
	if m.Ink(8, 1) {
		t.Error("pixel visible before refresh")
	}

	if err := m.Refresh(area, true); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	for _, tc := range []struct {
		pt   image.Point
		want bool
	}{
		{image.Pt(8, 1), true},
		{image.Pt(15, 1), true},
		{image.Pt(8, 2), true},
		{image.Pt(9, 2), false},
		{image.Pt(0, 1), false},
	} {
		if got := m.Ink(tc.pt.X, tc.pt.Y); got != tc.want {
			t.Errorf("Ink(%v) = %v, want %v", tc.pt, got, tc.want)
		}
	}

	if diff := cmp.Diff(m.Refreshes(), []RefreshEvent{{Area: area, Partial: true}}); diff != "" {
		t.Errorf("Refreshes() difference (-got +want):\n%s", diff)
	}
}

func TestMemoryHibernateWakes(t *testing.T) {
	m := NewMemory(8, 1)
	if err := m.Hibernate(); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteImage(image.Rect(0, 0, 8, 1), []byte{0xFF}); err != nil {
		t.Fatal(err)
	}
	if err := m.PowerOff(); err != nil {
		t.Fatal(err)
	}
	powerOffs, hibernates, wakes := m.Counters()
	if powerOffs != 1 || hibernates != 1 || wakes != 1 {
		t.Errorf("Counters() = %d, %d, %d; want 1, 1, 1", powerOffs, hibernates, wakes)
	}
}

func TestConsolePaint(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(ConsoleOpts{Width: 8, Height: 4, Scale: 2, Palette: ansi256.Default, Out: &out})

	if err := c.WriteImage(image.Rect(0, 0, 8, 4), []byte{0x00, 0x00, 0xFF, 0xFF}); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(c.Bounds(), false); err != nil {
		t.Fatal(err)
	}

	got := out.String()
	if !strings.HasPrefix(got, "\033[0m-- full refresh 8x4 --\n") {
		t.Errorf("unexpected header: %q", got)
	}
	// 4 rows at scale 2 -> 2 printed lines after the header.
	if n := strings.Count(got, "\n"); n != 3 {
		t.Errorf("printed %d lines, want 3", n)
	}
	black := ansi256.Default.Block(gray(image.Black.C))
	white := ansi256.Default.Block(gray(image.White.C))
	lines := strings.Split(got, "\n")
	if !strings.HasPrefix(lines[1], strings.Repeat(black, 4)) {
		t.Errorf("first line %q is not black", lines[1])
	}
	if !strings.HasPrefix(lines[2], strings.Repeat(white, 4)) {
		t.Errorf("second line %q is not white", lines[2])
	}
}

func TestConsoleGray(t *testing.T) {
	for _, tc := range []struct {
		c    color.Color
		want color.NRGBA
	}{
		{color.Black, color.NRGBA{A: 0xFF}},
		{color.White, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}},
		{color.NRGBA{R: 0xFF, A: 0xFF}, color.NRGBA{R: 76, G: 76, B: 76, A: 0xFF}},
	} {
		if got := gray(tc.c); got != tc.want {
			t.Errorf("gray(%v) = %v, want %v", tc.c, got, tc.want)
		}
	}
}

func TestRecorderDumps(t *testing.T) {
	dir := t.TempDir()
	inner := NewMemory(16, 8)
	r, err := NewRecorder(inner, dir, 1)
	if err != nil {
		t.Fatalf("NewRecorder() failed: %v", err)
	}

	if err := r.WriteImage(image.Rect(0, 0, 16, 1), []byte{0x00, 0xFF}); err != nil {
		t.Fatal(err)
	}
	if err := r.Refresh(r.Bounds(), false); err != nil {
		t.Fatal(err)
	}

	if !inner.Ink(0, 0) {
		t.Error("inner panel not refreshed")
	}

	plane, err := os.ReadFile(filepath.Join(dir, "frame-001.bin"))
	if err != nil {
		t.Fatalf("plane not dumped: %v", err)
	}
	if len(plane) != 2*8 || plane[0] != 0x00 || plane[1] != 0xFF {
		t.Errorf("unexpected plane % x", plane[:2])
	}

	preview, err := imaging.Open(filepath.Join(dir, "frame-001.png"))
	if err != nil {
		t.Fatalf("preview not dumped: %v", err)
	}
	// Rotation 1 turns the 16x8 native frame into an 8x16 preview.
	if diff := cmp.Diff(preview.Bounds(), image.Rect(0, 0, 8, 16)); diff != "" {
		t.Errorf("preview bounds difference (-got +want):\n%s", diff)
	}
}
