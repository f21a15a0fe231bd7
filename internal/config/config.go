package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// DefaultPath is where the demo looks for its config when -config is not set.
const DefaultPath = "/etc/epdemo/config.yaml"

// SPIConfig selects the SPI port and bus clock.
type SPIConfig struct {
	// Port is the periph.io SPI port name ("" = first available, typically
	// /dev/spidev0.0 on a Raspberry Pi).
	Port string `yaml:"port" json:"port"`
	// Hz is the SPI clock. The panel is specified for 4 MHz.
	Hz int64 `yaml:"hz" json:"hz"`
}

// PinsConfig holds the BCM GPIO numbers of the four control lines.
type PinsConfig struct {
	CS   int `yaml:"cs" json:"cs"`
	DC   int `yaml:"dc" json:"dc"`
	RST  int `yaml:"rst" json:"rst"`
	BUSY int `yaml:"busy" json:"busy"`
}

// FontConfig describes a single face: either a name resolved through the
// system font directories or an explicit path.
type FontConfig struct {
	// Names are tried in order; the first one found wins.
	Names []string `yaml:"names" json:"names"`
	// Size in points at 72 DPI, i.e. pixels.
	Size float64 `yaml:"size" json:"size"`
}

// FontsConfig holds the two faces used by the demo scenes.
type FontsConfig struct {
	// Latin is the Latin text face. An empty name list selects the
	// built-in Go Mono Bold.
	Latin FontConfig `yaml:"latin" json:"latin"`
	// CJK is the face used for Han/Kana/Hangul glyphs, with Latin and the
	// built-in bitmap font as fallbacks.
	CJK FontConfig `yaml:"cjk" json:"cjk"`
}

// HoldConfig controls how long scene results stay visible.
type HoldConfig struct {
	Short time.Duration `yaml:"short" json:"short"`
	Long  time.Duration `yaml:"long" json:"long"`
	Sleep time.Duration `yaml:"sleep" json:"sleep"`
}

// BenchmarkConfig configures the partial refresh timing loop.
type BenchmarkConfig struct {
	X     int `yaml:"x" json:"x"`
	Y     int `yaml:"y" json:"y"`
	W     int `yaml:"w" json:"w"`
	H     int `yaml:"h" json:"h"`
	Count int `yaml:"count" json:"count"`
}

// BatteryConfig points at an optional I2C fuel gauge (PiSugar-style).
type BatteryConfig struct {
	Bus  string `yaml:"bus" json:"bus"`
	Addr uint16 `yaml:"addr" json:"addr"`
}

// Config is the top-level application configuration.
type Config struct {
	SPI  SPIConfig  `yaml:"spi" json:"spi"`
	Pins PinsConfig `yaml:"pins" json:"pins"`

	// BusyTimeout bounds every wait on the BUSY line.
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`

	// Rotation is the default logical rotation (0..3, clockwise).
	Rotation int `yaml:"rotation" json:"rotation"`

	// PageHeight limits the number of native rows buffered per page. Zero
	// buffers the whole frame.
	PageHeight int `yaml:"page_height" json:"page_height"`

	Fonts FontsConfig `yaml:"fonts" json:"fonts"`

	// Scenes is the ordered list of demo scenes to run.
	Scenes []string `yaml:"scenes" json:"scenes"`

	// Schedule is a cron-style spec (e.g. "*/30 * * * *"). When set, the
	// scene sequence is re-run on this schedule until shutdown.
	Schedule string `yaml:"schedule" json:"schedule"`

	Hold      HoldConfig      `yaml:"hold" json:"hold"`
	Benchmark BenchmarkConfig `yaml:"benchmark" json:"benchmark"`

	// BitmapPath is the image shown by the "bitmap" scene.
	BitmapPath string `yaml:"bitmap_path" json:"bitmap_path"`

	Battery BatteryConfig `yaml:"battery" json:"battery"`

	// DumpDir receives frame-NNN.png/.bin when -dump is set.
	DumpDir string `yaml:"dump_dir" json:"dump_dir"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultScenes mirrors the firmware's setup(): two hello screens followed by
// the partial refresh benchmark.
var DefaultScenes = []string{"hello-world", "hello-epaper", "refresh-benchmark"}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		SPI: SPIConfig{
			Port: "",
			Hz:   4_000_000,
		},
		// Waveshare e-Paper HAT wiring.
		Pins: PinsConfig{
			CS:   8,
			DC:   25,
			RST:  17,
			BUSY: 24,
		},
		BusyTimeout: 10 * time.Second,
		Rotation:    1,
		PageHeight:  0,
		Fonts: FontsConfig{
			Latin: FontConfig{Names: nil, Size: 12},
			CJK: FontConfig{
				Names: []string{"wqy-zenhei.ttc", "wqy-microhei.ttc", "NotoSansCJK-Regular.ttc", "NotoSansSC-Regular.otf"},
				Size:  16,
			},
		},
		Scenes:   append([]string(nil), DefaultScenes...),
		Schedule: "",
		Hold: HoldConfig{
			Short: 1 * time.Second,
			Long:  2 * time.Second,
			Sleep: 5 * time.Second,
		},
		Benchmark: BenchmarkConfig{X: 8, Y: 8, W: 16, H: 16, Count: 20},
		Battery:   BatteryConfig{Bus: "", Addr: 0x57},
		DumpDir:   "./var/dump",
		LogLevel:  "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.SPI.Hz <= 0 {
		c.SPI.Hz = def.SPI.Hz
	}
	if c.Pins == (PinsConfig{}) {
		c.Pins = def.Pins
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = def.BusyTimeout
	}
	// Rotation is taken modulo 4 like the GFX setRotation.
	c.Rotation = ((c.Rotation % 4) + 4) % 4
	if c.PageHeight < 0 {
		c.PageHeight = 0
	}
	if c.Fonts.Latin.Size <= 0 {
		c.Fonts.Latin.Size = def.Fonts.Latin.Size
	}
	if c.Fonts.CJK.Size <= 0 {
		c.Fonts.CJK.Size = def.Fonts.CJK.Size
	}
	if c.Fonts.CJK.Names == nil {
		c.Fonts.CJK.Names = def.Fonts.CJK.Names
	}
	if len(c.Scenes) == 0 {
		c.Scenes = def.Scenes
	}
	if c.Hold == (HoldConfig{}) {
		c.Hold = def.Hold
	}
	if c.Benchmark.W <= 0 || c.Benchmark.H <= 0 {
		c.Benchmark.X, c.Benchmark.Y = def.Benchmark.X, def.Benchmark.Y
		c.Benchmark.W, c.Benchmark.H = def.Benchmark.W, def.Benchmark.H
	}
	if c.Benchmark.Count <= 0 {
		c.Benchmark.Count = def.Benchmark.Count
	}
	if c.Battery.Addr == 0 {
		c.Battery.Addr = def.Battery.Addr
	}
	if c.DumpDir == "" {
		c.DumpDir = def.DumpDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports configuration errors that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	pins := map[int]string{}
	for name, n := range map[string]int{"cs": c.Pins.CS, "dc": c.Pins.DC, "rst": c.Pins.RST, "busy": c.Pins.BUSY} {
		if n < 0 {
			errs = append(errs, fmt.Errorf("config: pins.%s: negative GPIO %d", name, n))
			continue
		}
		if other, dup := pins[n]; dup {
			errs = append(errs, fmt.Errorf("config: pins.%s and pins.%s share GPIO%d", name, other, n))
		}
		pins[n] = name
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: schedule %q: %w", c.Schedule, err))
		}
	}
	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epdemo-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
