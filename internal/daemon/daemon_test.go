package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dailyshorts/internal/config"
	"dailyshorts/internal/history"
	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/runner"
	"dailyshorts/internal/testsupport"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []history.Trigger
	release chan struct{}
	started chan struct{}
	running atomic.Bool
}

func newFakeRunner(blocking bool) *fakeRunner {
	r := &fakeRunner{started: make(chan struct{}, 8)}
	if blocking {
		r.release = make(chan struct{})
	}
	return r
}

func (r *fakeRunner) Run(ctx context.Context, trigger history.Trigger) (pipeline.RunResult, error) {
	r.running.Store(true)
	defer r.running.Store(false)
	r.mu.Lock()
	r.calls = append(r.calls, trigger)
	runID := fmt.Sprintf("run-%d", len(r.calls))
	r.mu.Unlock()
	r.started <- struct{}{}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}
	return pipeline.RunResult{RunID: runID, Succeeded: true, State: pipeline.StateDone}, nil
}

func (r *fakeRunner) Status() runner.Status {
	return runner.Status{Running: r.running.Load()}
}

func (r *fakeRunner) triggers() []history.Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.Trigger(nil), r.calls...)
}

type fakeHistory struct {
	runs        []history.Run
	listErr     error
	interrupted atomic.Int32
}

func (h *fakeHistory) List(_ context.Context, limit int) ([]history.Run, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	if limit < len(h.runs) {
		return h.runs[:limit], nil
	}
	return h.runs, nil
}

func (h *fakeHistory) Get(_ context.Context, id string) (history.Run, error) {
	for _, run := range h.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return history.Run{}, fmt.Errorf("%w: %s", history.ErrNotFound, id)
}

func (h *fakeHistory) MarkInterrupted(context.Context, time.Time) (int64, error) {
	h.interrupted.Add(1)
	return 1, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	return cfg
}

func waitStarted(t *testing.T, r *fakeRunner) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run to start")
	}
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad cron", func(c *config.Config) { c.Schedule.Cron = "every day" }},
		{"bad timezone", func(c *config.Config) { c.Schedule.Timezone = "Mars/Olympus" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(cfg)
			if _, err := New(cfg, nil, newFakeRunner(false), &fakeHistory{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(cfg, nil, nil, &fakeHistory{}); err == nil {
		t.Fatal("expected error without runner")
	}
	if _, err := New(cfg, nil, newFakeRunner(false), nil); err == nil {
		t.Fatal("expected error without history")
	}
}

func TestNextRunUsesScheduleTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Cron = "0 10 * * *"
	cfg.Schedule.Timezone = "America/New_York"
	d, err := New(cfg, nil, newFakeRunner(false), &fakeHistory{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	loc, _ := time.LoadLocation("America/New_York")
	d.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, loc) }

	next := d.NextRun()
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("next run = %v, want %v", next, want)
	}
}

func TestDaemonStartTriggerStop(t *testing.T) {
	cfg := testConfig(t)
	exec := newFakeRunner(true)
	store := &fakeHistory{}
	d, err := New(cfg, nil, exec, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Trigger(history.TriggerAPI); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning before Start, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
	if store.interrupted.Load() != 1 {
		t.Fatalf("expected MarkInterrupted on start, got %d calls", store.interrupted.Load())
	}
	if !d.Status().Running {
		t.Fatal("expected daemon to report running")
	}

	if err := d.Trigger(history.TriggerAPI); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	waitStarted(t, exec)
	if !d.Busy() {
		t.Fatal("expected daemon to be busy during a run")
	}
	if err := d.Trigger(history.TriggerScheduled); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(exec.release)
	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	triggers := exec.triggers()
	if len(triggers) != 1 || triggers[0] != history.TriggerAPI {
		t.Fatalf("unexpected triggers: %v", triggers)
	}
}

func TestDaemonRunOnStart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.RunOnStart = true
	exec := newFakeRunner(false)
	d, err := New(cfg, nil, exec, &fakeHistory{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, exec)
	d.Stop()

	triggers := exec.triggers()
	if len(triggers) != 1 || triggers[0] != history.TriggerScheduled {
		t.Fatalf("unexpected triggers: %v", triggers)
	}
}

func TestDaemonStopRacesTrigger(t *testing.T) {
	cfg := testConfig(t)
	exec := &fakeRunner{started: make(chan struct{}, 4096)}
	d, err := New(cfg, nil, exec, &fakeHistory{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 2000 {
			if err := d.Trigger(history.TriggerAPI); errors.Is(err, ErrNotRunning) {
				return
			}
		}
	}()
	waitStarted(t, exec)
	d.Stop()

	if exec.Status().Running {
		t.Fatal("expected no run to outlive Stop")
	}
	count := len(exec.triggers())
	<-done
	if err := d.Trigger(history.TriggerAPI); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after Stop, got %v", err)
	}
	if got := len(exec.triggers()); got != count {
		t.Fatalf("runs started after Stop: %d before, %d after", count, got)
	}
}
