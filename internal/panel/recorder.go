package panel

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"epdemo/internal/convert"
	appLog "epdemo/internal/log"
)

// Recorder wraps a Panel and dumps every refreshed frame to Dir as
// frame-NNN.png (oriented preview) and frame-NNN.bin (native packed plane).
type Recorder struct {
	Panel

	dir      string
	rotation int
	mirror   *Memory
	seq      int
}

// NewRecorder creates dir if needed and returns a Recorder around p.
func NewRecorder(p Panel, dir string, rotation int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("panel: dump dir: %w", err)
	}
	b := p.Bounds()
	return &Recorder{
		Panel:    p,
		dir:      dir,
		rotation: rotation,
		mirror:   NewMemory(b.Dx(), b.Dy()),
	}, nil
}

// SetRotation changes the orientation of subsequent previews and forwards
// it to the wrapped panel when that one cares too.
func (r *Recorder) SetRotation(rotation int) {
	r.rotation = rotation
	if o, ok := r.Panel.(interface{ SetRotation(int) }); ok {
		o.SetRotation(rotation)
	}
}

func (r *Recorder) WriteImage(area image.Rectangle, plane []byte) error {
	if err := r.Panel.WriteImage(area, plane); err != nil {
		return err
	}
	return r.mirror.WriteImage(area, plane)
}

func (r *Recorder) Refresh(area image.Rectangle, partial bool) error {
	if err := r.Panel.Refresh(area, partial); err != nil {
		return err
	}
	if err := r.mirror.Refresh(area, partial); err != nil {
		return err
	}
	return r.dump()
}

func (r *Recorder) dump() error {
	r.seq++
	frame := r.mirror.Frame()
	base := filepath.Join(r.dir, fmt.Sprintf("frame-%03d", r.seq))

	if err := imaging.Save(Oriented(frame, r.rotation), base+".png"); err != nil {
		return fmt.Errorf("panel: dump preview: %w", err)
	}
	plane := convert.Pack(frame, frame.Bounds())
	if err := os.WriteFile(base+".bin", plane, 0o644); err != nil {
		return fmt.Errorf("panel: dump plane: %w", err)
	}
	appLog.Debug("frame dumped", "path", base+".png", "bytes", len(plane))
	return nil
}

// Oriented turns a native frame into the logical orientation used by the
// display session (rotation counted in clockwise quarter turns).
func Oriented(img image.Image, rotation int) image.Image {
	switch ((rotation % 4) + 4) % 4 {
	case 1:
		return imaging.Rotate90(img)
	case 2:
		return imaging.Rotate180(img)
	case 3:
		return imaging.Rotate270(img)
	default:
		return img
	}
}

var _ Panel = &Recorder{}
