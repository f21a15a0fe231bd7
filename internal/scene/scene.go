// Package scene holds the demo screens and runs them in sequence on a
// display session.
package scene

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"epdemo/internal/battery"
	"epdemo/internal/config"
	"epdemo/internal/display"
	appLog "epdemo/internal/log"
	"epdemo/internal/text"
)

// ErrUnknownScene is returned for a scene name that is not registered.
var ErrUnknownScene = errors.New("scene: unknown scene")

// Func draws one scene. It may refresh the panel several times and hold
// between refreshes.
type Func func(ctx context.Context, env *Env) error

// Env is what a scene gets to work with.
type Env struct {
	Session *display.Session
	Fonts   *text.Fonts
	Config  *config.Config
	Battery battery.Reader

	// Now is the clock used for timing; nil means time.Now.
	Now func() time.Time
	// Sleep replaces the hold timer when set, e.g. in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Hold keeps the current image for d or until ctx is done.
func (e *Env) Hold(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var registry = map[string]Func{
	"hello-world":               helloWorld,
	"hello-world-dummies":       helloWorldForDummies,
	"hello-full-screen-partial": helloFullScreenPartial,
	"hello-arduino":             helloArduino,
	"hello-epaper":              helloEpaper,
	"deep-sleep":                deepSleep,
	"show-box":                  showBoxes,
	"corner-test":               cornerTest,
	"font-chart":                fontChart,
	"partial-update":            partialUpdate,
	"custom-content":            customContent,
	"unified-text":              unifiedText,
	"bitmap":                    bitmap,
	"battery":                   batteryStatus,
	"refresh-benchmark":         refreshBenchmark,
}

// Names returns the registered scene names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the scene registered as name.
func Lookup(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownScene, name, strings.Join(Names(), ", "))
	}
	return fn, nil
}

// Check reports every unknown name in names.
func Check(names []string) error {
	var errs []error
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run draws the named scenes in order. Each scene starts from the configured
// rotation and a full window. Run stops at the first error.
func Run(ctx context.Context, env *Env, names []string) error {
	if err := Check(names); err != nil {
		return err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn := registry[name]

		env.Session.SetRotation(env.Config.Rotation)
		env.Session.SetFullWindow()

		appLog.Info("scene start", "scene", name)
		start := time.Now()
		if err := fn(ctx, env); err != nil {
			return fmt.Errorf("scene %s: %w", name, err)
		}
		appLog.Info("scene done", "scene", name, "took", time.Since(start).Round(time.Millisecond))
	}
	return nil
}
