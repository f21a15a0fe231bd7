package display

import "image"

// Rotation is the logical orientation in clockwise quarter turns from the
// native portrait layout.
type Rotation int

// Normalize folds r into 0..3.
func (r Rotation) Normalize() Rotation {
	return r & 3
}

// logicalSize returns the screen size seen through rotation r.
func logicalSize(native image.Rectangle, r Rotation) (w, h int) {
	if r&1 == 1 {
		return native.Dy(), native.Dx()
	}
	return native.Dx(), native.Dy()
}

// toNative maps a logical pixel to native coordinates.
func toNative(native image.Rectangle, r Rotation, x, y int) (int, int) {
	W, H := native.Dx(), native.Dy()
	switch r {
	case 1:
		return W - 1 - y, x
	case 2:
		return W - 1 - x, H - 1 - y
	case 3:
		return y, H - 1 - x
	}
	return x, y
}

// partialWindow clamps a logical rectangle to the screen, rotates it to
// native coordinates and widens it so the native x and width are multiples
// of 8. For even rotations that rounds the logical x/w, for odd ones the
// logical y/h.
func partialWindow(native image.Rectangle, r Rotation, x, y, w, h int) image.Rectangle {
	sw, sh := logicalSize(native, r)
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	x, y = min(x, sw), min(y, sh)
	w, h = max(min(w, sw-x), 0), max(min(h, sh-y), 0)

	W, H := native.Dx(), native.Dy()
	switch r {
	case 1:
		x, y = y, x
		w, h = h, w
		x = W - x - w
	case 2:
		x = W - x - w
		y = H - y - h
	case 3:
		x, y = y, x
		w, h = h, w
		y = H - y - h
	}

	w += x % 8
	if w%8 > 0 {
		w += 8 - w%8
	}
	x -= x % 8
	return image.Rect(x, y, x+w, y+h).Intersect(native)
}
