// Package display is the drawing session on top of a panel: it owns the
// logical rotation, the refresh window and the paged draw-then-refresh cycle.
package display

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"sync"

	"epdemo/internal/convert"
	appLog "epdemo/internal/log"
	"epdemo/internal/panel"
)

var errEmptyWindow = errors.New("display: empty window")

// Oriented is implemented by panels whose output depends on the logical
// rotation, such as the console preview.
type Oriented interface {
	SetRotation(r int)
}

// Opts configures a Session.
type Opts struct {
	// PageHeight is the number of native rows buffered per page. Zero keeps
	// the whole window in a single page.
	PageHeight int
}

// Session is the single owner of a panel. It is not meant to be shared by
// concurrent drawers; the mutex keeps the window and rotation consistent
// while Pages runs a cycle. Shutdown cancels the drawer's context and powers
// the panel off from the same goroutine once it returns.
type Session struct {
	mu sync.Mutex

	p          panel.Panel
	native     image.Rectangle
	rotation   Rotation
	window     image.Rectangle
	partial    bool
	pageHeight int
	err        error
}

// New returns a session in full window mode and rotation 0.
func New(p panel.Panel, opts Opts) *Session {
	b := p.Bounds()
	return &Session{
		p:          p,
		native:     b,
		window:     b,
		pageHeight: opts.PageHeight,
	}
}

// Panel returns the underlying panel.
func (s *Session) Panel() panel.Panel {
	return s.p
}

// SetRotation selects the logical orientation. Values are taken modulo 4.
// The current window is kept as is; set it again after rotating.
func (s *Session) SetRotation(r int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = Rotation(r).Normalize()
	if o, ok := s.p.(Oriented); ok {
		o.SetRotation(int(s.rotation))
	}
}

// Rotation returns the current logical orientation.
func (s *Session) Rotation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.rotation)
}

// Width returns the logical screen width.
func (s *Session) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, _ := logicalSize(s.native, s.rotation)
	return w
}

// Height returns the logical screen height.
func (s *Session) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, h := logicalSize(s.native, s.rotation)
	return h
}

// Capabilities forwards the panel capabilities.
func (s *Session) Capabilities() panel.Capabilities {
	return s.p.Capabilities()
}

// SetFullWindow makes the next page cycle cover the whole screen and end
// with a full refresh.
func (s *Session) SetFullWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = s.native
	s.partial = false
}

// SetPartialWindow makes the next page cycle cover the logical rectangle
// (x, y, w, h) and end with a partial refresh. The rectangle is clipped to
// the screen and widened so that its native x and width are byte aligned.
func (s *Session) SetPartialWindow(x, y, w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = partialWindow(s.native, s.rotation, x, y, w, h)
	s.partial = true
}

// SetPartialFullWindow is a partial window covering the whole screen.
func (s *Session) SetPartialFullWindow() {
	s.mu.Lock()
	sw, sh := logicalSize(s.native, s.rotation)
	s.mu.Unlock()
	s.SetPartialWindow(0, 0, sw, sh)
}

// Window returns the native, byte aligned window and whether it refreshes
// partially.
func (s *Session) Window() (image.Rectangle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window, s.partial
}

// Pages iterates over the pages of the current window. Each page is cleared
// to white before it is yielded and transferred to the panel once the loop
// body returns; after the last page the panel is refreshed exactly once.
// Breaking out of the loop abandons the cycle without a refresh.
//
//	for c := range s.Pages() {
//		c.FillRect(0, 0, 8, 8, display.Black)
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
//
// The loop body must draw the same content on every page.
func (s *Session) Pages() iter.Seq[*Canvas] {
	return func(yield func(*Canvas) bool) {
		s.mu.Lock()
		s.err = nil
		win, partial, rot := s.window, s.partial, s.rotation
		ph := s.pageHeight
		s.mu.Unlock()

		if win.Empty() {
			s.setErr(errEmptyWindow)
			return
		}
		if ph <= 0 || ph > win.Dy() {
			ph = win.Dy()
		}

		pages := 0
		for top := win.Min.Y; top < win.Max.Y; top += ph {
			page := image.Rect(win.Min.X, top, win.Max.X, min(top+ph, win.Max.Y))
			c := newCanvas(s.native, page, rot)
			c.FillScreen(White)
			if !yield(c) {
				return
			}
			if err := s.p.WriteImage(page, convert.Pack(c.buf, page)); err != nil {
				s.setErr(fmt.Errorf("display: write page %v: %w", page, err))
				return
			}
			pages++
		}
		if err := s.p.Refresh(win, partial); err != nil {
			s.setErr(fmt.Errorf("display: refresh: %w", err))
			return
		}
		appLog.Debug("page cycle done", "window", win.String(), "partial", partial, "pages", pages)
	}
}

// Err returns the first transfer or refresh error of the last page cycle.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Paint runs draw once per page and refreshes the panel.
func (s *Session) Paint(draw func(c *Canvas)) error {
	for c := range s.Pages() {
		draw(c)
	}
	return s.Err()
}

// PowerOff turns the panel supply off; the image stays on the glass.
func (s *Session) PowerOff() error {
	return s.p.PowerOff()
}

// Hibernate puts the panel controller into deep sleep. The next page cycle
// wakes it up again.
func (s *Session) Hibernate() error {
	return s.p.Hibernate()
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
