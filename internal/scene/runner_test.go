package scene

import (
	"context"
	"testing"
	"time"
)

func TestRunnerRunOnce(t *testing.T) {
	env, m, _ := newEnv(t)
	r := NewRunner(env, []string{"hello-world", "show-box"})
	for range 2 {
		if err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce() failed: %v", err)
		}
	}
	if got := len(m.Refreshes()); got != 6 {
		t.Errorf("got %d refreshes, want 6", got)
	}
}

func TestRunnerScheduleStops(t *testing.T) {
	env, _, _ := newEnv(t)
	r := NewRunner(env, []string{"hello-world"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Schedule(ctx, "@every 1h") }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Schedule() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Schedule() did not return after cancellation")
	}
}

func TestRunnerScheduleBadSpec(t *testing.T) {
	env, _, _ := newEnv(t)
	r := NewRunner(env, nil)
	if err := r.Schedule(context.Background(), "not a spec"); err == nil {
		t.Error("Schedule() accepted an invalid spec")
	}
}
