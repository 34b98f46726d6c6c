package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dailyshorts/internal/history"
)

func newTestAPI(t *testing.T, token string, store *fakeHistory, exec *fakeRunner) (*Daemon, http.Handler) {
	t.Helper()
	cfg := testConfig(t)
	d, err := New(cfg, nil, exec, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := &apiServer{logger: d.logger, daemon: d}
	return d, srv.routes(token)
}

func serve(handler http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestAPIHealth(t *testing.T) {
	_, handler := newTestAPI(t, "secret", &fakeHistory{}, newFakeRunner(false))

	w := serve(handler, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK without token, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Daemon.Schedule == "" {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestAPIListRuns(t *testing.T) {
	store := &fakeHistory{runs: []history.Run{
		{ID: "run-2", Status: history.StatusSucceeded, Title: "Second"},
		{ID: "run-1", Status: history.StatusFailed, Title: "First"},
	}}
	_, handler := newTestAPI(t, "", store, newFakeRunner(false))

	w := serve(handler, http.MethodGet, "/api/runs?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp RunsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].ID != "run-2" {
		t.Fatalf("unexpected runs: %+v", resp.Runs)
	}

	if w := serve(handler, http.MethodGet, "/api/runs?limit=zero", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestAPIListRunsEmptyAndError(t *testing.T) {
	store := &fakeHistory{}
	_, handler := newTestAPI(t, "", store, newFakeRunner(false))

	w := serve(handler, http.MethodGet, "/api/runs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if body := w.Body.String(); body != "{\"runs\":[]}\n" {
		t.Fatalf("unexpected body %q", body)
	}

	store.listErr = errors.New("disk I/O error")
	if w := serve(handler, http.MethodGet, "/api/runs", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestAPIGetRun(t *testing.T) {
	store := &fakeHistory{runs: []history.Run{{ID: "run-1", Status: history.StatusSucceeded, Title: "Ocean facts"}}}
	_, handler := newTestAPI(t, "", store, newFakeRunner(false))

	w := serve(handler, http.MethodGet, "/api/runs/run-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Run.Title != "Ocean facts" {
		t.Fatalf("unexpected run: %+v", resp.Run)
	}

	if w := serve(handler, http.MethodGet, "/api/runs/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPITriggerRun(t *testing.T) {
	exec := newFakeRunner(true)
	d, handler := newTestAPI(t, "", &fakeHistory{}, exec)

	if w := serve(handler, http.MethodPost, "/api/runs", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before start, got %d", w.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	w := serve(handler, http.MethodPost, "/api/runs", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	select {
	case <-exec.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not start")
	}

	w = serve(handler, http.MethodPost, "/api/runs", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a run is in flight, got %d", w.Code)
	}
	var resp TriggerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Accepted {
		t.Fatal("expected accepted=false")
	}
	close(exec.release)
}

func TestAPIRequiresToken(t *testing.T) {
	_, handler := newTestAPI(t, "secret", &fakeHistory{}, newFakeRunner(false))

	if w := serve(handler, http.MethodGet, "/api/runs", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(handler, http.MethodGet, "/api/runs", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := serve(handler, http.MethodGet, "/api/runs", "secret"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}
