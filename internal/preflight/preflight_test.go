package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dailyshorts/internal/config"
	"dailyshorts/internal/services"
	"dailyshorts/internal/services/renderer"
	"dailyshorts/internal/services/youtube"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func healthServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckRenderer(t *testing.T) {
	ok := CheckRenderer(context.Background(), renderer.New(renderer.Config{BaseURL: healthServer(t, "ok").URL}))
	if !ok.Passed {
		t.Fatalf("expected pass, got: %s", ok.Detail)
	}
	down := CheckRenderer(context.Background(), renderer.New(renderer.Config{BaseURL: healthServer(t, "starting").URL}))
	if down.Passed {
		t.Fatal("expected failure for unhealthy renderer")
	}
}

func TestCheckYouTube(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	if got := CheckYouTube(youtube.New(youtube.Config{TokenPath: tokenPath})); got.Passed {
		t.Fatal("expected failure without client credentials")
	}
	client := youtube.New(youtube.Config{ClientID: "id", ClientSecret: "secret", TokenPath: tokenPath})
	if got := CheckYouTube(client); got.Passed {
		t.Fatal("expected failure without token")
	}
	if err := os.WriteFile(tokenPath, []byte(`{"access_token":"a"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := CheckYouTube(client); !got.Passed {
		t.Fatalf("expected pass with token, got: %s", got.Detail)
	}
}

type countingProbe struct {
	readyAfter int
	calls      int
}

func (p *countingProbe) Ready(context.Context) bool {
	p.calls++
	return p.readyAfter > 0 && p.calls >= p.readyAfter
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

func TestReadinessFirstProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	probe := &countingProbe{readyAfter: 1}
	polls, err := Readiness{Interval: 2 * time.Second, Deadline: time.Minute, Now: clock.Now, Sleep: clock.Sleep}.Wait(context.Background(), probe)
	if err != nil || polls != 1 {
		t.Fatalf("Wait = %d, %v", polls, err)
	}
}

func TestReadinessDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	probe := &countingProbe{}
	polls, err := Readiness{Interval: 2 * time.Second, Deadline: time.Minute, Now: clock.Now, Sleep: clock.Sleep}.Wait(context.Background(), probe)
	if !errors.Is(err, services.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if polls != 30 {
		t.Fatalf("expected 30 probes in 60s at 2s cadence, got %d", polls)
	}
}

func TestReadinessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForRenderer(ctx, &countingProbe{}, time.Second, time.Minute)
	if !errors.Is(err, services.ErrDependencyUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Renderer.BaseURL = healthServer(t, "ok").URL
	cfg.Aggregator.APIKey = "k"
	cfg.Aggregator.User = "u"

	results := RunAll(context.Background(), &cfg)
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Output directory", "Log directory", "State directory", "Renderer"} {
		if !byName[name].Passed {
			t.Errorf("check %q failed: %s", name, byName[name].Detail)
		}
	}
	if gem, ok := byName["Gemini"]; !ok || gem.Passed {
		t.Fatalf("Gemini without a key should be reported as failing, got %+v", gem)
	}
	if _, ok := byName["YouTube"]; ok {
		t.Fatal("YouTube check should be skipped when the aggregator is configured")
	}
}

func TestRunAll_IncludesYouTubeForDirect(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Renderer.BaseURL = healthServer(t, "ok").URL

	found := false
	for _, r := range RunAll(context.Background(), &cfg) {
		if r.Name == "YouTube" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected YouTube check in results")
	}
}
