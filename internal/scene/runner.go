package scene

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "epdemo/internal/log"
)

// Runner serializes scene sequences: a scheduled run never overlaps a
// running one.
type Runner struct {
	mu    sync.Mutex
	env   *Env
	names []string
}

// NewRunner returns a Runner drawing names on env.
func NewRunner(env *Env, names []string) *Runner {
	return &Runner{env: env, names: names}
}

// RunOnce draws the sequence once.
func (r *Runner) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Run(ctx, r.env, r.names)
}

// Schedule re-runs the sequence on the cron spec until ctx is done. Runs
// that would overlap are skipped.
func (r *Runner) Schedule(ctx context.Context, spec string) error {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	id, err := c.AddFunc(spec, func() {
		if err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			appLog.Error("scheduled run failed", err)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	appLog.Info("schedule started", "spec", spec, "next", c.Entry(id).Next)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("schedule stopped")
	return nil
}

// cronLogger routes cron's logs into internal/log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
