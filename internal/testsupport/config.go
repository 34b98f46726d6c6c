package testsupport

import (
	"path/filepath"
	"testing"

	"dailyshorts/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Every optional credential is left empty so all feature flags start off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.YouTube.TokenPath = filepath.Join(base, "youtube_token.json")
	cfgVal.Gemini.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRendererURL points the renderer at a test server.
func WithRendererURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Renderer.BaseURL = url
	}
}

// WithGeminiURL points content generation at a test server.
func WithGeminiURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gemini.BaseURL = url
	}
}

// WithAggregator enables aggregated publishing against endpoint.
func WithAggregator(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Aggregator.APIKey = "test-key"
		b.cfg.Aggregator.User = "test-user"
		b.cfg.Aggregator.Endpoint = endpoint
	}
}

// WithArchive enables the GitHub archive against apiBaseURL.
func WithArchive(apiBaseURL, repo string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Token = "test-token"
		b.cfg.Archive.Repo = repo
		b.cfg.Archive.APIBaseURL = apiBaseURL
	}
}

// WithNtfyTopic enables notifications posting to topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.RunCompleted = true
		b.cfg.Notifications.RunFailed = true
		b.cfg.Notifications.Degraded = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
