// Package text loads the demo faces and draws aligned, mixed-script strings
// onto a display canvas.
package text

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"epdemo/internal/config"
	appLog "epdemo/internal/log"
)

// ErrFontNotFound is returned when none of the configured names resolve to a
// font file.
var ErrFontNotFound = errors.New("text: font not found")

// Fonts holds the faces used by the scenes.
type Fonts struct {
	// Latin renders ASCII text (Go Mono Bold unless configured otherwise).
	Latin font.Face
	// LatinName is the Latin font file, or "Go Mono Bold" for the built-in.
	LatinName string
	// CJK renders Han/Kana text and falls back to Latin, then to the
	// built-in 7x13 bitmap font, for glyphs it does not have.
	CJK font.Face
	// CJKName is the file the CJK face was loaded from, empty when no CJK
	// font was found.
	CJKName string
}

// Load resolves both faces. A missing CJK font is not fatal: the CJK face
// then renders Latin glyphs only and a warning is logged.
func Load(cfg config.FontsConfig) (*Fonts, error) {
	latinName, latinFont, err := loadLatin(cfg.Latin.Names)
	if err != nil {
		return nil, err
	}
	latin := truetype.NewFace(latinFont, &truetype.Options{
		Size:    cfg.Latin.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	fonts := &Fonts{Latin: latin, LatinName: latinName}
	cjk := &FallbackFace{}

	path, cjkFont, err := loadSFNT(cfg.CJK.Names)
	switch {
	case errors.Is(err, ErrFontNotFound):
		appLog.Warn("no CJK font found, Han glyphs will be missing", "tried", strings.Join(cfg.CJK.Names, ","))
	case err != nil:
		return nil, err
	default:
		face, err := opentype.NewFace(cjkFont, &opentype.FaceOptions{
			Size:    cfg.CJK.Size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("text: %s: %w", path, err)
		}
		cjk.Add(face, SFNTCoverage(cjkFont))
		fonts.CJKName = path
	}
	cjk.Add(latin, TrueTypeCoverage(latinFont))
	cjk.Add(basicfont.Face7x13, nil)
	fonts.CJK = cjk

	appLog.Info("fonts loaded", "latin", fonts.LatinName, "latin_size", cfg.Latin.Size, "cjk", fonts.CJKName, "cjk_size", cfg.CJK.Size)
	return fonts, nil
}

// loadLatin parses the first configured TrueType font, or the built-in Go
// Mono Bold when no name is configured.
func loadLatin(names []string) (string, *truetype.Font, error) {
	if len(names) == 0 {
		f, err := truetype.Parse(gomonobold.TTF)
		return "Go Mono Bold", f, err
	}
	path, err := find(names)
	if err != nil {
		return "", nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("text: %w", err)
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return "", nil, fmt.Errorf("text: %s: %w", path, err)
	}
	return path, f, nil
}

// loadSFNT parses the first configured font, taking the first face of a
// collection (.ttc/.otc).
func loadSFNT(names []string) (string, *sfnt.Font, error) {
	path, err := find(names)
	if err != nil {
		return "", nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("text: %w", err)
	}
	coll, err := opentype.ParseCollection(b)
	if err != nil {
		return "", nil, fmt.Errorf("text: %s: %w", path, err)
	}
	f, err := coll.Font(0)
	if err != nil {
		return "", nil, fmt.Errorf("text: %s: %w", path, err)
	}
	return path, f, nil
}

// find returns the first name that is an existing path or is found in the
// system font directories.
func find(names []string) (string, error) {
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		if path, err := findfont.Find(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFontNotFound, strings.Join(names, ", "))
}

// TrueTypeCoverage reports which runes f has a glyph for.
func TrueTypeCoverage(f *truetype.Font) func(rune) bool {
	return func(r rune) bool {
		return f.Index(r) != 0
	}
}

// SFNTCoverage reports which runes f has a glyph for.
func SFNTCoverage(f *sfnt.Font) func(rune) bool {
	return func(r rune) bool {
		var buf sfnt.Buffer
		idx, err := f.GlyphIndex(&buf, r)
		return err == nil && idx != 0
	}
}

// FallbackFace is a font.Face made of several faces: each rune is rendered
// by the first face that has a glyph for it, the last face catching
// everything else.
type FallbackFace struct {
	faces []font.Face
	has   []func(rune) bool
}

// Add appends a face. A nil coverage function claims every rune.
func (f *FallbackFace) Add(face font.Face, has func(rune) bool) {
	f.faces = append(f.faces, face)
	f.has = append(f.has, has)
}

func (f *FallbackFace) pick(r rune) font.Face {
	for i, face := range f.faces {
		if f.has[i] == nil || f.has[i](r) {
			return face
		}
	}
	return f.faces[len(f.faces)-1]
}

func (f *FallbackFace) Close() error {
	var errs []error
	for _, face := range f.faces {
		errs = append(errs, face.Close())
	}
	return errors.Join(errs...)
}

func (f *FallbackFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	return f.pick(r).Glyph(dot, r)
}

func (f *FallbackFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	return f.pick(r).GlyphBounds(r)
}

func (f *FallbackFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	return f.pick(r).GlyphAdvance(r)
}

func (f *FallbackFace) Kern(r0, r1 rune) fixed.Int26_6 {
	if a := f.pick(r0); a == f.pick(r1) {
		return a.Kern(r0, r1)
	}
	return 0
}

// Metrics returns the primary face's metrics.
func (f *FallbackFace) Metrics() font.Metrics {
	return f.faces[0].Metrics()
}

var _ font.Face = &FallbackFace{}

// Bounds returns the box of s drawn with its baseline origin at (0, 0), like
// Adafruit-GFX getTextBounds: Min is (tbx, tby), Dx/Dy are tbw/tbh. tby is
// negative for glyphs above the baseline.
func Bounds(face font.Face, s string) image.Rectangle {
	b, _ := font.BoundString(face, s)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}
