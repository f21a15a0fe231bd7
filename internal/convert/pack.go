package convert

import (
	"fmt"
	"image"
	"image/color"
)

// Stride returns the number of bytes needed for one packed row of w pixels.
func Stride(w int) int {
	return (w + 7) / 8
}

// Pack converts the area of img into a packed 1bpp plane suitable for the
// controller RAM.
//
// Packing rules:
//
//   - rows are y-major, MSB-first:
//     byteIndex = (y-area.Min.Y) * Stride(area.Dx()) + ((x-area.Min.X) >> 3)
//     mask      = 0x80 >> ((x-area.Min.X) & 7)
//   - all bits start at 1 (white); only ink pixels clear their bit.
//   - pixels of area that fall outside img stay white.
func Pack(img image.Image, area image.Rectangle) []byte {
	stride := Stride(area.Dx())
	plane := make([]byte, stride*area.Dy())
	for i := range plane {
		plane[i] = 0xFF
	}

	src := img.Bounds().Intersect(area)
	for y := src.Min.Y; y < src.Max.Y; y++ {
		row := (y - area.Min.Y) * stride
		for x := src.Min.X; x < src.Max.X; x++ {
			if !IsInk(img.At(x, y)) {
				continue
			}
			px := x - area.Min.X
			plane[row+(px>>3)] &^= 0x80 >> (px & 7)
		}
	}
	return plane
}

// Unpack calls set for every pixel of area with the value stored in plane
// (true = white).
func Unpack(plane []byte, area image.Rectangle, set func(x, y int, white bool)) error {
	stride := Stride(area.Dx())
	if len(plane) != stride*area.Dy() {
		return fmt.Errorf("convert: plane is %d bytes, want %d for %v", len(plane), stride*area.Dy(), area)
	}
	for y := 0; y < area.Dy(); y++ {
		row := plane[y*stride : (y+1)*stride]
		for x := 0; x < area.Dx(); x++ {
			white := row[x>>3]&(0x80>>(x&7)) != 0
			set(area.Min.X+x, area.Min.Y+y, white)
		}
	}
	return nil
}

// IsInk decides whether a pixel should be black on the panel.
//
// Criteria:
//
//   - transparent (alpha < 128) → paper
//   - luma Y = (299R + 587G + 114B) / 1000 below mid grey (128) → ink
func IsInk(c color.Color) bool {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A < 128 {
		return false
	}
	y := (299*uint32(n.R) + 587*uint32(n.G) + 114*uint32(n.B)) / 1000
	return y < 128
}
