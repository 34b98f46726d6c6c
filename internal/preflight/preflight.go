package preflight

import (
	"context"
	"time"

	"dailyshorts/internal/config"
	"dailyshorts/internal/services/gemini"
	"dailyshorts/internal/services/renderer"
	"dailyshorts/internal/services/youtube"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Integration checks only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	rendererClient := renderer.New(renderer.Config{
		BaseURL:       cfg.Renderer.BaseURL,
		HealthTimeout: time.Duration(cfg.Renderer.HealthTimeoutSeconds) * time.Second,
	})
	results = append(results, CheckRenderer(ctx, rendererClient))

	geminiClient := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})
	results = append(results, CheckGemini(ctx, geminiClient))

	// The aggregator has no health endpoint; direct publishing needs a token.
	features := cfg.Features()
	if !features.Aggregator {
		results = append(results, CheckYouTube(youtube.New(youtube.Config{
			ClientID:     cfg.YouTube.ClientID,
			ClientSecret: cfg.YouTube.ClientSecret,
			TokenPath:    cfg.YouTube.TokenPath,
		})))
	}

	return results
}
