package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dailyshorts/internal/history"
	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/publish"
	"dailyshorts/internal/services"
	"dailyshorts/internal/testsupport"
)

func TestOpenCreatesSchemaOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if store.Path() != cfg.HistoryPath() {
		t.Fatalf("path = %q, want %q", store.Path(), cfg.HistoryPath())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := history.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecordRoundTripsResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.Begin(ctx, "run-1", history.TriggerScheduled, started); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	running, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get running: %v", err)
	}
	if running.Status != history.StatusRunning || running.State != "idle" {
		t.Fatalf("unexpected running row: %+v", running)
	}

	result := pipeline.RunResult{
		RunID:        "run-1",
		StartedAt:    started,
		FinishedAt:   started.Add(4 * time.Minute),
		State:        pipeline.StateDone,
		Succeeded:    true,
		Plan:         &pipeline.PlanSummary{Title: "Ocean facts", Tags: []string{"ocean", "facts"}, Scenes: 3},
		JobID:        "job-1",
		ArtifactPath: filepath.Join(cfg.Paths.OutputDir, "job-1.mp4"),
		Publish: &publish.Result{
			Succeeded: true,
			Strategy:  publish.StrategyDirect,
			Outcomes: []publish.Outcome{
				{Platform: "youtube", Status: publish.OutcomePublished, RemoteID: "yt-1", Primary: true},
				{Platform: "tiktok", Status: publish.OutcomeFailed, Detail: "boom"},
			},
		},
		ArchivePath: "finished/2026-03-01/job-1.mp4",
		Diagnostics: []pipeline.Diagnostic{{Stage: "publishing", Kind: "publish_failed", Message: "tiktok: boom"}},
	}
	if err := store.Record(ctx, history.FromResult(result, history.TriggerScheduled)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	run, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != history.StatusSucceeded || run.State != "done" {
		t.Fatalf("unexpected status/state: %s/%s", run.Status, run.State)
	}
	if run.Trigger != history.TriggerScheduled {
		t.Fatalf("trigger = %q", run.Trigger)
	}
	if !run.StartedAt.Equal(started) || run.Duration() != 4*time.Minute {
		t.Fatalf("unexpected timing: started=%v duration=%v", run.StartedAt, run.Duration())
	}
	if run.Title != "Ocean facts" || run.SceneCount != 3 || len(run.Tags) != 2 {
		t.Fatalf("unexpected plan fields: %+v", run)
	}
	if len(run.Outcomes) != 2 || run.Outcomes[0].RemoteID != "yt-1" || !run.Outcomes[0].Primary {
		t.Fatalf("unexpected outcomes: %+v", run.Outcomes)
	}
	if len(run.Diagnostics) != 1 || run.Diagnostics[0].Kind != "publish_failed" {
		t.Fatalf("unexpected diagnostics: %+v", run.Diagnostics)
	}
	if run.ArchivePath != "finished/2026-03-01/job-1.mp4" {
		t.Fatalf("archive path = %q", run.ArchivePath)
	}
}

func TestRecordFailedRunKeepsErrorKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	err := services.Wrap(services.ErrTimeout, "rendering", "poll", "render exceeded deadline", errors.New("30m elapsed"))
	result := pipeline.RunResult{
		RunID:       "run-failed",
		StartedAt:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		FinishedAt:  time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		State:       pipeline.StateRendering,
		FailedStage: pipeline.StateRendering,
		Err:         err,
	}
	if err := store.Record(ctx, history.FromResult(result, "")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	run, getErr := store.Get(ctx, "run-failed")
	if getErr != nil {
		t.Fatalf("Get: %v", getErr)
	}
	if run.Status != history.StatusFailed || run.FailedStage != "rendering" {
		t.Fatalf("unexpected failure fields: %+v", run)
	}
	if run.ErrorKind != "timeout" || run.ErrorMessage == "" {
		t.Fatalf("unexpected error fields: kind=%q msg=%q", run.ErrorKind, run.ErrorMessage)
	}
	if run.Trigger != history.TriggerManual {
		t.Fatalf("trigger = %q, want manual default", run.Trigger)
	}
}

func TestGetMissingRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ids := []string{"a", "b", "c"}
	for i, id := range ids {
		// Whole-second and fractional timestamps must still sort chronologically.
		started := base.Add(time.Duration(i) * 1500 * time.Millisecond)
		if err := store.Begin(ctx, id, history.TriggerManual, started); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", runs)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List default: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestMarkInterruptedAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.Begin(ctx, "stale", history.TriggerScheduled, old); err != nil {
		t.Fatalf("Begin stale: %v", err)
	}
	if err := store.Record(ctx, history.Run{ID: "finished-old", Status: history.StatusSucceeded, State: "done", StartedAt: old}); err != nil {
		t.Fatalf("Record old: %v", err)
	}
	if err := store.Record(ctx, history.Run{ID: "finished-new", Status: history.StatusSucceeded, State: "done", StartedAt: recent}); err != nil {
		t.Fatalf("Record new: %v", err)
	}

	marked, err := store.MarkInterrupted(ctx, recent)
	if err != nil {
		t.Fatalf("MarkInterrupted: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}
	stale, err := store.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("Get stale: %v", err)
	}
	if stale.Status != history.StatusInterrupted || stale.FinishedAt.IsZero() || stale.ErrorMessage == "" {
		t.Fatalf("unexpected interrupted row: %+v", stale)
	}

	pruned, err := store.Prune(ctx, recent.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("pruned = %d, want 2", pruned)
	}
	if _, err := store.Get(ctx, "finished-new"); err != nil {
		t.Fatalf("recent run should survive prune: %v", err)
	}
}
