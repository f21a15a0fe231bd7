package panel

import (
	"image"
	"image/draw"
	"sync"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"epdemo/internal/convert"
)

// RefreshEvent records one Refresh call.
type RefreshEvent struct {
	Area    image.Rectangle
	Partial bool
}

// Memory is an in-RAM panel. Writes land in a RAM buffer; Refresh copies the
// refreshed area to the visible frame, like the controller does with its
// display RAM and the glass.
type Memory struct {
	mu sync.Mutex

	bounds image.Rectangle
	caps   Capabilities
	ram    *image1bit.VerticalLSB
	frame  *image1bit.VerticalLSB

	writes     []image.Rectangle
	refreshes  []RefreshEvent
	powerOffs  int
	hibernates int
	wakes      int
	sleeping   bool
}

// NewMemory returns a blank (white) Memory panel of the given native size.
func NewMemory(width, height int) *Memory {
	b := image.Rect(0, 0, width, height)
	m := &Memory{
		bounds: b,
		caps:   Capabilities{HasPartialUpdate: true, HasFastPartialUpdate: true},
		ram:    image1bit.NewVerticalLSB(b),
		frame:  image1bit.NewVerticalLSB(b),
	}
	draw.Src.Draw(m.ram, b, &image.Uniform{image1bit.On}, image.Point{})
	draw.Src.Draw(m.frame, b, &image.Uniform{image1bit.On}, image.Point{})
	return m
}

// SetCapabilities overrides the reported capabilities.
func (m *Memory) SetCapabilities(c Capabilities) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caps = c
}

func (m *Memory) Bounds() image.Rectangle {
	return m.bounds
}

func (m *Memory) Capabilities() Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps
}

func (m *Memory) WriteImage(area image.Rectangle, plane []byte) error {
	if err := CheckArea(m.bounds, area, plane); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sleeping {
		m.sleeping = false
		m.wakes++
	}
	m.writes = append(m.writes, area)
	return convert.Unpack(plane, area, func(x, y int, white bool) {
		m.ram.SetBit(x, y, image1bit.Bit(white))
	})
}

func (m *Memory) Refresh(area image.Rectangle, partial bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes = append(m.refreshes, RefreshEvent{Area: area, Partial: partial})
	if !partial {
		area = m.bounds
	}
	area = area.Intersect(m.bounds)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			m.frame.SetBit(x, y, m.ram.BitAt(x, y))
		}
	}
	return nil
}

func (m *Memory) PowerOff() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powerOffs++
	return nil
}

func (m *Memory) Hibernate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hibernates++
	m.sleeping = true
	return nil
}

// Frame returns a copy of what is currently visible on the glass.
func (m *Memory) Frame() *image1bit.VerticalLSB {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := image1bit.NewVerticalLSB(m.bounds)
	draw.Src.Draw(out, m.bounds, m.frame, m.bounds.Min)
	return out
}

// Ink reports whether the visible pixel at native (x, y) is black.
func (m *Memory) Ink(x, y int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !bool(m.frame.BitAt(x, y))
}

// Writes returns the areas passed to WriteImage, in order.
func (m *Memory) Writes() []image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.Rectangle(nil), m.writes...)
}

// Refreshes returns the recorded Refresh calls, in order.
func (m *Memory) Refreshes() []RefreshEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RefreshEvent(nil), m.refreshes...)
}

// Counters returns how often PowerOff, Hibernate and a wake-up happened.
func (m *Memory) Counters() (powerOffs, hibernates, wakes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerOffs, m.hibernates, m.wakes
}

var _ Panel = &Memory{}
