package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dailyshorts/internal/content"
	"dailyshorts/internal/services"
)

func TestSubmitPostsScenesAndConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/short-video" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Scenes) != 2 || req.Scenes[1].SearchTerms[0] != "bees" {
			t.Errorf("unexpected scenes %+v", req.Scenes)
		}
		if req.Config.Music != "chill" || req.Config.PaddingBack != 1500 || req.Config.Orientation != "portrait" {
			t.Errorf("unexpected config %+v", req.Config)
		}
		_, _ = w.Write([]byte(`{"videoId":"vid-123"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	scenes := []content.Scene{
		{Text: "one", SearchTerms: []string{"honey"}},
		{Text: "two", SearchTerms: []string{"bees"}},
	}
	video := VideoConfig{PaddingBack: 1500, Music: "chill", Voice: "af_heart", CaptionPosition: "bottom", MusicVolume: "high", Orientation: "portrait"}
	id, err := client.Submit(context.Background(), scenes, video)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if id != "vid-123" {
		t.Fatalf("id = %q", id)
	}
}

func TestSubmitFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.Submit(context.Background(), []content.Scene{{Text: "x"}}, VideoConfig{})
	if !errors.Is(err, services.ErrRenderFailed) || !errors.Is(err, services.ErrInvalidResponse) {
		t.Fatalf("expected render failure for missing id, got %v", err)
	}
	if _, err := client.Submit(context.Background(), nil, VideoConfig{}); !errors.Is(err, services.ErrRenderFailed) {
		t.Fatalf("expected render failure for empty scenes, got %v", err)
	}
}

func TestStatusAndFetch(t *testing.T) {
	artifact := bytes.Repeat([]byte{0x1}, 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/short-video/vid-1/status":
			_, _ = w.Write([]byte(`{"status":"ready"}`))
		case "/api/short-video/vid-1":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write(artifact)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	status, err := client.Status(context.Background(), "vid-1")
	if err != nil || status != "ready" {
		t.Fatalf("Status = %q, %v", status, err)
	}
	var buf bytes.Buffer
	n, err := client.Fetch(context.Background(), "vid-1", &buf)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if n != int64(len(artifact)) || !bytes.Equal(buf.Bytes(), artifact) {
		t.Fatalf("fetched %d bytes", n)
	}
	if _, err := client.Fetch(context.Background(), "missing", &buf); !errors.Is(err, services.ErrArtifactFetch) {
		t.Fatalf("expected ErrArtifactFetch, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	status := "ok"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	if !client.Ready(context.Background()) {
		t.Fatal("expected ready")
	}
	status = "starting"
	if err := client.Health(context.Background()); !errors.Is(err, services.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestHealthTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := New(Config{BaseURL: server.URL, HealthTimeout: 20 * time.Millisecond})
	start := time.Now()
	if client.Ready(context.Background()) {
		t.Fatal("expected not ready")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("health check ignored its timeout")
	}
}
