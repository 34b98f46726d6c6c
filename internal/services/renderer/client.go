// Package renderer talks to the short-video-maker render service: job
// submission, status polling, artifact download, and liveness.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailyshorts/internal/content"
	"dailyshorts/internal/services"
)

const (
	defaultBaseURL       = "http://localhost:3123"
	defaultSubmitTimeout = 60 * time.Second
	defaultStatusTimeout = 30 * time.Second
	defaultFetchTimeout  = 120 * time.Second
	defaultHealthTimeout = 3 * time.Second
	stageName            = "rendering"
)

// Config captures the render service location and per-call timeouts.
type Config struct {
	BaseURL       string
	SubmitTimeout time.Duration
	StatusTimeout time.Duration
	FetchTimeout  time.Duration
	HealthTimeout time.Duration
}

// VideoConfig is the composition settings forwarded with every job.
type VideoConfig struct {
	PaddingBack     int    `json:"paddingBack"`
	Music           string `json:"music"`
	Voice           string `json:"voice"`
	CaptionPosition string `json:"captionPosition"`
	MusicVolume     string `json:"musicVolume"`
	Orientation     string `json:"orientation"`
}

// Client is a thin HTTP wrapper around the render service API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a render service client.
func New(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = defaultStatusTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = defaultHealthTimeout
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL returns the configured render service URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

type submitRequest struct {
	Scenes []content.Scene `json:"scenes"`
	Config VideoConfig     `json:"config"`
}

// Submit creates a render job and returns its identifier without waiting for completion.
func (c *Client) Submit(ctx context.Context, scenes []content.Scene, video VideoConfig) (string, error) {
	if len(scenes) == 0 {
		return "", services.Wrap(services.ErrRenderFailed, stageName, "submit", "no scenes to render", nil)
	}
	body, err := json.Marshal(submitRequest{Scenes: scenes, Config: video})
	if err != nil {
		return "", services.Wrap(services.ErrRenderFailed, stageName, "submit", "encode request", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	var out struct {
		VideoID string `json:"videoId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/short-video", bytes.NewReader(body), &out); err != nil {
		return "", services.Wrap(services.ErrRenderFailed, stageName, "submit", "", err)
	}
	if id := strings.TrimSpace(out.VideoID); id != "" {
		return id, nil
	}
	return "", services.Wrap(services.ErrRenderFailed, stageName, "submit", "response missing videoId", services.ErrInvalidResponse)
}

// Status returns the raw status string the service reports for a job.
func (c *Client) Status(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	defer cancel()

	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/short-video/"+url.PathEscape(jobID)+"/status", nil, &out); err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "status", "job "+jobID, err)
	}
	return out.Status, nil
}

// Fetch streams the finished artifact for jobID into w and returns the byte count.
func (c *Client) Fetch(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/short-video/"+url.PathEscape(jobID), nil)
	if err != nil {
		return 0, services.Wrap(services.ErrArtifactFetch, stageName, "fetch", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrArtifactFetch, stageName, "fetch", "job "+jobID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, services.Wrap(services.ErrArtifactFetch, stageName, "fetch", "job "+jobID, statusError(resp))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, services.Wrap(services.ErrArtifactFetch, stageName, "fetch", fmt.Sprintf("job %s: stream interrupted after %d bytes", jobID, n), err)
	}
	if n == 0 {
		return 0, services.Wrap(services.ErrArtifactFetch, stageName, "fetch", "job "+jobID+": empty artifact", nil)
	}
	return n, nil
}

// Health returns nil when the liveness endpoint reports {"status":"ok"}.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return services.Wrap(services.ErrDependencyUnavailable, stageName, "health", c.cfg.BaseURL, err)
	}
	if !strings.EqualFold(strings.TrimSpace(out.Status), "ok") {
		return services.Wrap(services.ErrDependencyUnavailable, stageName, "health", fmt.Sprintf("status %q", out.Status), nil)
	}
	return nil
}

// Ready reports whether the render service is live.
func (c *Client) Ready(ctx context.Context) bool {
	return c.Health(ctx) == nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", services.ErrInvalidResponse)
		}
		return fmt.Errorf("%w: decode body: %w", services.ErrInvalidResponse, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
