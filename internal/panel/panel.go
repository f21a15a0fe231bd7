// Package panel defines the contract between the display session and a
// monochrome e-paper controller, plus host-side implementations used when no
// hardware is attached.
package panel

import (
	"errors"
	"fmt"
	"image"

	"epdemo/internal/convert"
)

// ErrAreaNotAligned is returned when a transfer area is not byte aligned on
// the native X axis.
var ErrAreaNotAligned = errors.New("panel: area not byte aligned")

// Capabilities describes what refresh modes a panel supports.
type Capabilities struct {
	HasColor             bool
	HasPartialUpdate     bool
	HasFastPartialUpdate bool
}

// Panel is a monochrome panel addressed in native (unrotated) coordinates.
//
// Transfer areas have Min.X and Dx() multiples of 8. Planes are packed
// MSB-first, one row after another, 1 = white.
type Panel interface {
	// Bounds returns the native panel geometry.
	Bounds() image.Rectangle
	Capabilities() Capabilities

	// WriteImage transfers plane into controller RAM at area without
	// refreshing the glass.
	WriteImage(area image.Rectangle, plane []byte) error

	// Refresh drives the waveform. With partial set only area is updated
	// using the partial waveform; otherwise the whole screen is refreshed.
	Refresh(area image.Rectangle, partial bool) error

	PowerOff() error

	// Hibernate puts the controller into deep sleep. The next WriteImage
	// wakes it up again.
	Hibernate() error
}

// CheckArea validates a transfer request against the panel bounds.
func CheckArea(bounds, area image.Rectangle, plane []byte) error {
	if area.Empty() || !area.In(bounds) {
		return fmt.Errorf("panel: area %v outside %v", area, bounds)
	}
	if area.Min.X%8 != 0 || area.Dx()%8 != 0 {
		return fmt.Errorf("%w: %v", ErrAreaNotAligned, area)
	}
	if want := convert.Stride(area.Dx()) * area.Dy(); len(plane) != want {
		return fmt.Errorf("panel: plane is %d bytes, want %d for %v", len(plane), want, area)
	}
	return nil
}
