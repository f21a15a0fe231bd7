package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"epdemo/internal/battery"
	"epdemo/internal/config"
	"epdemo/internal/display"
	"epdemo/internal/epd"
	appLog "epdemo/internal/log"
	"epdemo/internal/panel"
	"epdemo/internal/scene"
	"epdemo/internal/text"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	once       bool
	renderOnly bool
	dump       bool
	scenes     string
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	if err := run(flags); err != nil {
		appLog.Error("epdemo failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	appLog.Info("setup")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return err
	}
	if !flags.debug {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}
	if flags.scenes != "" {
		conf.Scenes = splitList(flags.scenes)
	}
	if err := errors.Join(conf.Validate(), scene.Check(conf.Scenes)); err != nil {
		return err
	}

	appLog.Info("effective config",
		"spi_port", conf.SPI.Port,
		"spi_hz", conf.SPI.Hz,
		"rotation", conf.Rotation,
		"page_height", conf.PageHeight,
		"scenes", strings.Join(conf.Scenes, ","),
		"schedule", conf.Schedule,
		"once", flags.once,
		"render_only", flags.renderOnly,
		"dump", flags.dump,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	p, closer, err := openPanel(conf, flags)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			appLog.Error("failed to release panel", err)
		}
	}()

	session := display.New(p, display.Opts{PageHeight: conf.PageHeight})
	session.SetRotation(conf.Rotation)
	appLog.Info("display initialized",
		"panel", p.Bounds().String(),
		"rotation", session.Rotation(),
		"width", session.Width(),
		"height", session.Height(),
	)

	fonts, err := text.Load(conf.Fonts)
	if err != nil {
		return err
	}

	env := &scene.Env{
		Session: session,
		Fonts:   fonts,
		Config:  conf,
	}
	if slices.Contains(conf.Scenes, "battery") {
		if flags.renderOnly {
			env.Battery = battery.NewMockReader(0)
		} else {
			r, closeBattery := battery.DefaultReader(ctx, conf.Battery)
			defer closeBattery()
			env.Battery = r
		}
	}

	runner := scene.NewRunner(env, conf.Scenes)
	if err := runner.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	appLog.Info("setup done")

	switch {
	case flags.once || ctx.Err() != nil:
	case conf.Schedule != "":
		if err := runner.Schedule(ctx, conf.Schedule); err != nil {
			return err
		}
	default:
		<-ctx.Done()
	}

	if err := session.PowerOff(); err != nil {
		appLog.Error("power off failed", err)
	}
	if err := session.Hibernate(); err != nil {
		appLog.Error("hibernate failed", err)
	}
	appLog.Info("epdemo exiting")
	return nil
}

// openPanel returns the hardware panel, or the terminal preview with
// -render-only, optionally wrapped by a frame recorder with -dump.
func openPanel(conf *config.Config, flags flagConfig) (panel.Panel, io.Closer, error) {
	var (
		p      panel.Panel
		closer io.Closer = nopCloser{}
	)
	if flags.renderOnly {
		p = panel.NewConsole(panel.ConsoleOpts{
			Width:    epd.GDEH029A1.Width,
			Height:   epd.GDEH029A1.Height,
			Rotation: conf.Rotation,
		})
	} else {
		dev, err := epd.NewFromConfig(conf)
		if err != nil {
			appLog.Error("failed to attach e-paper", err, "hint", "use -render-only without hardware")
			return nil, nil, err
		}
		p, closer = dev, dev
	}
	if flags.dump {
		rec, err := panel.NewRecorder(p, conf.DumpDir, conf.Rotation)
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
		appLog.Info("dumping frames", "dir", conf.DumpDir)
		p = rec
	}
	return p, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath, "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Run the scene sequence once and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Preview in the terminal; do not touch display hardware")
	flag.BoolVar(&cfg.dump, "dump", false, "Dump every refreshed frame (frame-NNN.png, frame-NNN.bin) to dump_dir")
	flag.StringVar(&cfg.scenes, "scenes", "", "Comma separated scenes to run (overrides config); known: "+strings.Join(scene.Names(), ", "))
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
