package pipeline

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"dailyshorts/internal/archive"
	"dailyshorts/internal/config"
	"dailyshorts/internal/content"
	"dailyshorts/internal/logging"
	"dailyshorts/internal/preflight"
	"dailyshorts/internal/publish"
	"dailyshorts/internal/render"
	"dailyshorts/internal/services"
	"dailyshorts/internal/services/github"
	"dailyshorts/internal/services/renderer"
	"dailyshorts/internal/services/uploadpost"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

type stubProbe struct {
	readyAt int
	calls   int
}

func (p *stubProbe) Ready(context.Context) bool {
	p.calls++
	return p.readyAt > 0 && p.calls >= p.readyAt
}

type stubGenerator struct {
	plan  content.ContentPlan
	err   error
	calls int
}

func (g *stubGenerator) GeneratePlan(context.Context, time.Time) (content.ContentPlan, error) {
	g.calls++
	return g.plan, g.err
}

type stubRenderService struct {
	statuses  []string
	polls     int
	submitted []content.Scene
	video     renderer.VideoConfig
}

func (s *stubRenderService) Submit(_ context.Context, scenes []content.Scene, video renderer.VideoConfig) (string, error) {
	s.submitted = scenes
	s.video = video
	return "job-e2e", nil
}

func (s *stubRenderService) Status(context.Context, string) (string, error) {
	idx := s.polls
	s.polls++
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	return s.statuses[idx], nil
}

func (s *stubRenderService) Fetch(_ context.Context, _ string, w io.Writer) (int64, error) {
	n, err := w.Write([]byte("rendered-video"))
	return int64(n), err
}

type stubAggregator struct {
	err   error
	calls int
}

func (a *stubAggregator) Upload(context.Context, string, string, []string) (uploadpost.Ack, error) {
	a.calls++
	if a.err != nil {
		return uploadpost.Ack{}, a.err
	}
	return uploadpost.Ack{Success: true}, nil
}

type stubStore struct {
	puts int
	err  error
}

func (s *stubStore) GetExisting(context.Context, string) (string, error) {
	return "", services.Wrap(services.ErrNotFound, "", "", "", nil)
}

func (s *stubStore) PutFile(_ context.Context, path string, _ []byte, _, _ string) (github.Location, error) {
	s.puts++
	if s.err != nil {
		return github.Location{}, s.err
	}
	return github.Location{Owner: "acme", Repo: "shorts", Branch: "main", Path: path, HTMLURL: "https://github.example/" + path}, nil
}

type stubStorage struct {
	url   string
	err   error
	calls int
}

func (s *stubStorage) KeyFor(string) string { return "shorts/job-e2e.mp4" }

func (s *stubStorage) Put(context.Context, string, string) (string, error) {
	s.calls++
	return s.url, s.err
}

type harness struct {
	clock      *fakeClock
	probe      *stubProbe
	generator  *stubGenerator
	service    *stubRenderService
	aggregator *stubAggregator
	store      *stubStore
	storage    *stubStorage
	features   config.Features
	states     []State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		clock: &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		probe: &stubProbe{readyAt: 1},
		generator: &stubGenerator{plan: content.ContentPlan{
			Title:       "Why honey never spoils",
			Description: "Ancient jars, still edible.",
			Tags:        []string{"honey", "science"},
			Scenes: []content.Scene{
				{Text: "Honey found in tombs is still edible.", SearchTerms: []string{"honey"}},
				{Text: "Low moisture keeps bacteria out.", SearchTerms: []string{"bees"}},
			},
			MusicTag: "hopeful",
		}},
		service:    &stubRenderService{statuses: []string{"processing", "processing", "ready"}},
		aggregator: &stubAggregator{},
		store:      &stubStore{},
		storage:    &stubStorage{url: "https://cdn.example/shorts/job-e2e.mp4"},
		features:   config.Features{Aggregator: true, Archive: true},
	}
}

func (h *harness) build(t *testing.T) *Orchestrator {
	t.Helper()
	video := config.Default().Video
	poller := render.NewPoller(h.service, 5*time.Second, 30*time.Minute, render.WithClock(h.clock.Now, h.clock.Sleep))
	strategy := publish.Select(h.features,
		publish.Aggregated{Client: h.aggregator, Platforms: []string{"youtube", "tiktok", "instagram"}},
		publish.Direct{},
	)
	deps := Dependencies{
		Readiness: h.probe,
		Generator: h.generator,
		Renderer:  poller,
		Publisher: publish.NewPublisher(logging.NewNop()),
		Strategy:  strategy,
		Archiver:  archive.New(h.store, "finished", archive.WithClock(h.clock.Now)),
	}
	if h.features.Storage {
		deps.Storage = h.storage
	}
	settings := Settings{
		OutputDir: t.TempDir(),
		Video:     video,
		Readiness: preflight.Readiness{Interval: 2 * time.Second, Deadline: 60 * time.Second, Now: h.clock.Now, Sleep: h.clock.Sleep},
	}
	return New(deps, settings, h.features,
		WithClock(h.clock.Now),
		WithObserver(func(s State) { h.states = append(h.states, s) }),
	)
}

func TestRunEndToEndAggregatedWithArchive(t *testing.T) {
	h := newHarness(t)
	result := h.build(t).Run(context.Background())

	if !result.Succeeded || result.Err != nil {
		t.Fatalf("expected success, got err=%v diagnostics=%+v", result.Err, result.Diagnostics)
	}
	if result.State != StateDone {
		t.Fatalf("state = %s", result.State)
	}
	if h.probe.calls != 1 {
		t.Fatalf("readiness probes = %d", h.probe.calls)
	}
	if h.service.polls != 3 || result.JobID != "job-e2e" {
		t.Fatalf("polls=%d job=%q", h.service.polls, result.JobID)
	}
	if len(h.service.submitted) != 2 {
		t.Fatalf("submitted %d scenes", len(h.service.submitted))
	}
	if h.service.video.Music != "hopeful" || h.service.video.Voice != "af_heart" || h.service.video.PaddingBack != 1500 {
		t.Fatalf("unexpected render config %+v", h.service.video)
	}
	if result.StorageURL != "" || h.storage.calls != 0 {
		t.Fatal("storage is unconfigured and must not be attempted")
	}
	if result.Publish == nil || !result.Publish.Succeeded || result.Publish.Strategy != publish.StrategyAggregated {
		t.Fatalf("unexpected publish %+v", result.Publish)
	}
	if result.ArchivePath != "finished/2026-03-01/job-e2e.mp4" {
		t.Fatalf("archive path = %q", result.ArchivePath)
	}
	if result.Plan == nil || result.Plan.Scenes != 2 || result.Plan.Title != "Why honey never spoils" {
		t.Fatalf("unexpected plan summary %+v", result.Plan)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics %+v", result.Diagnostics)
	}
	want := []State{StateReadinessCheck, StatePlanGenerated, StateRendering, StatePublishing, StateSourceArchiveAttempted, StateDone}
	if !reflect.DeepEqual(h.states, want) {
		t.Fatalf("states = %v, want %v", h.states, want)
	}
}

func TestRunReadinessTimeoutSkipsGeneration(t *testing.T) {
	h := newHarness(t)
	h.probe.readyAt = 0
	result := h.build(t).Run(context.Background())

	if result.Succeeded || !errors.Is(result.Err, services.ErrDependencyUnavailable) {
		t.Fatalf("expected DependencyUnavailable, got %v", result.Err)
	}
	if h.generator.calls != 0 {
		t.Fatal("generator must not be called when the renderer is unavailable")
	}
	if result.FailedStage != StateReadinessCheck || result.ErrorKind() != "dependency_unavailable" {
		t.Fatalf("failed stage=%s kind=%s", result.FailedStage, result.ErrorKind())
	}
	if h.clock.now.Sub(result.StartedAt) < 60*time.Second {
		t.Fatal("readiness should wait the full deadline")
	}
}

func TestRunEmptyPlanGetsDefaultScene(t *testing.T) {
	h := newHarness(t)
	h.generator.plan = content.ContentPlan{Title: "Empty"}
	result := h.build(t).Run(context.Background())
	if !result.Succeeded {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if len(h.service.submitted) != 1 || !reflect.DeepEqual(h.service.submitted[0], content.DefaultScene()) {
		t.Fatalf("expected one default scene, got %+v", h.service.submitted)
	}
	if h.service.video.Music != "chill" {
		t.Fatalf("expected default music, got %q", h.service.video.Music)
	}
}

func TestRunPlanFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.generator.err = services.Wrap(services.ErrInvalidResponse, "", "gemini", "bad json", nil)
	result := h.build(t).Run(context.Background())
	if !errors.Is(result.Err, services.ErrPlanGeneration) {
		t.Fatalf("expected ErrPlanGeneration, got %v", result.Err)
	}
	if h.service.submitted != nil {
		t.Fatal("render must not be submitted after a plan failure")
	}
	if result.FailedStage != StatePlanGenerated {
		t.Fatalf("failed stage = %s", result.FailedStage)
	}
}

func TestRunRenderTimeoutIsFatal(t *testing.T) {
	h := newHarness(t)
	h.service.statuses = []string{"processing"}
	result := h.build(t).Run(context.Background())
	var timeout *render.TimeoutError
	if !errors.As(result.Err, &timeout) || !errors.Is(result.Err, services.ErrRenderFailed) {
		t.Fatalf("expected render timeout, got %v", result.Err)
	}
	if result.ArtifactPath != "" || result.JobID != "job-e2e" {
		t.Fatalf("artifact=%q job=%q", result.ArtifactPath, result.JobID)
	}
	if h.aggregator.calls != 0 {
		t.Fatal("publish must not run after a render failure")
	}
}

func TestRunStorageFailureIsDiagnostic(t *testing.T) {
	h := newHarness(t)
	h.features.Storage = true
	h.storage.err = errors.New("bucket missing")
	result := h.build(t).Run(context.Background())
	if !result.Succeeded {
		t.Fatalf("storage failure must not fail the run: %v", result.Err)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Kind != "storage_failed" {
		t.Fatalf("unexpected diagnostics %+v", result.Diagnostics)
	}
	if result.StorageURL != "" {
		t.Fatalf("storage url = %q", result.StorageURL)
	}
}

func TestRunStorageSuccessRecordsURL(t *testing.T) {
	h := newHarness(t)
	h.features.Storage = true
	result := h.build(t).Run(context.Background())
	if result.StorageURL != "https://cdn.example/shorts/job-e2e.mp4" || result.StorageKey != "shorts/job-e2e.mp4" {
		t.Fatalf("storage url=%q key=%q", result.StorageURL, result.StorageKey)
	}
}

func TestRunPublishFailureReachesDoneWithoutArchive(t *testing.T) {
	h := newHarness(t)
	h.aggregator.err = errors.New("502 bad gateway")
	result := h.build(t).Run(context.Background())
	if result.Succeeded || !errors.Is(result.Err, services.ErrPublishFailed) {
		t.Fatalf("expected publish failure, got %v", result.Err)
	}
	if result.State != StateDone || result.FailedStage != StatePublishing {
		t.Fatalf("state=%s failed=%s", result.State, result.FailedStage)
	}
	if h.store.puts != 0 || result.ArchivePath != "" {
		t.Fatal("archival must not run after a failed publish")
	}
}

func TestRunArchiveFailureIsDiagnostic(t *testing.T) {
	h := newHarness(t)
	h.store.err = errors.New("409 conflict")
	result := h.build(t).Run(context.Background())
	if !result.Succeeded {
		t.Fatalf("archival failure must not fail the run: %v", result.Err)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Kind != "archival_failed" {
		t.Fatalf("unexpected diagnostics %+v", result.Diagnostics)
	}
}

func TestRunArchiveDisabledByFeatures(t *testing.T) {
	h := newHarness(t)
	h.features.Archive = false
	result := h.build(t).Run(context.Background())
	if !result.Succeeded || h.store.puts != 0 || result.ArchivePath != "" {
		t.Fatalf("archive should be skipped: puts=%d path=%q", h.store.puts, result.ArchivePath)
	}
	for _, s := range h.states {
		if s == StateSourceArchiveAttempted {
			t.Fatal("archive state should not be entered when disabled")
		}
	}
}

func TestRunUsesContextRunID(t *testing.T) {
	h := newHarness(t)
	ctx := services.WithRunID(context.Background(), "run-fixed")
	if got := h.build(t).Run(ctx).RunID; got != "run-fixed" {
		t.Fatalf("run id = %q", got)
	}
	if got := h.build(t).Run(context.Background()).RunID; got == "" {
		t.Fatal("expected a generated run id")
	}
}
