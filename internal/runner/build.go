package runner

import (
	"fmt"
	"log/slog"
	"time"

	"dailyshorts/internal/archive"
	"dailyshorts/internal/config"
	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/preflight"
	"dailyshorts/internal/publish"
	"dailyshorts/internal/render"
	"dailyshorts/internal/services/gemini"
	"dailyshorts/internal/services/github"
	"dailyshorts/internal/services/renderer"
	"dailyshorts/internal/services/social"
	"dailyshorts/internal/services/supabase"
	"dailyshorts/internal/services/uploadpost"
	"dailyshorts/internal/services/youtube"
)

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

// Build wires a pipeline from configuration. Disabled features leave their
// collaborators nil so the orchestrator skips those stages.
func Build(cfg *config.Config, logger *slog.Logger, opts ...pipeline.Option) (*pipeline.Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	features := cfg.Features()

	rendererClient := renderer.New(renderer.Config{
		BaseURL:       cfg.Renderer.BaseURL,
		SubmitTimeout: seconds(cfg.Renderer.SubmitTimeoutSeconds),
		StatusTimeout: seconds(cfg.Renderer.StatusTimeoutSeconds),
		FetchTimeout:  seconds(cfg.Renderer.FetchTimeoutSeconds),
		HealthTimeout: seconds(cfg.Renderer.HealthTimeoutSeconds),
	})
	poller := render.NewPoller(rendererClient,
		seconds(cfg.Renderer.PollIntervalSeconds),
		seconds(cfg.Renderer.DeadlineSeconds),
		render.WithLogger(logger),
	)

	deps := pipeline.Dependencies{
		Readiness: rendererClient,
		Generator: gemini.NewClient(gemini.Config{
			APIKey:         cfg.Gemini.APIKey,
			BaseURL:        cfg.Gemini.BaseURL,
			Model:          cfg.Gemini.Model,
			TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
		}),
		Renderer:  poller,
		Publisher: publish.NewPublisher(logger),
		Strategy:  buildStrategy(cfg, features, logger),
	}

	if features.Storage {
		storage, err := supabase.New(supabase.Config{
			URL:           cfg.Storage.URL,
			Key:           cfg.Storage.Key,
			Bucket:        cfg.Storage.Bucket,
			Prefix:        cfg.Storage.Prefix,
			Public:        cfg.Storage.Public,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		deps.Storage = storage
	}

	if features.Archive {
		owner, repo := cfg.ArchiveOwnerRepo()
		store, err := github.New(github.Config{
			Token:      cfg.Archive.Token,
			Owner:      owner,
			Repo:       repo,
			Branch:     cfg.Archive.Branch,
			APIBaseURL: cfg.Archive.APIBaseURL,
			Timeout:    seconds(cfg.Archive.TimeoutSeconds),
		})
		if err != nil {
			return nil, fmt.Errorf("archive client: %w", err)
		}
		deps.Archiver = archive.New(store, cfg.Archive.BaseDir, archive.WithLogger(logger))
	}

	settings := pipeline.Settings{
		OutputDir: cfg.Paths.OutputDir,
		Video:     cfg.Video,
		Readiness: preflight.Readiness{
			Interval: seconds(cfg.Renderer.ReadinessIntervalSeconds),
			Deadline: seconds(cfg.Renderer.ReadinessDeadlineSeconds),
		},
	}
	opts = append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)
	return pipeline.New(deps, settings, features, opts...), nil
}

func buildStrategy(cfg *config.Config, features config.Features, logger *slog.Logger) publish.Strategy {
	aggregated := publish.Aggregated{
		Client: uploadpost.New(uploadpost.Config{
			APIKey:   cfg.Aggregator.APIKey,
			User:     cfg.Aggregator.User,
			Endpoint: cfg.Aggregator.Endpoint,
			Timeout:  seconds(cfg.Aggregator.TimeoutSeconds),
		}),
		Platforms: cfg.Aggregator.Platforms,
	}
	direct := publish.Direct{
		Primary: youtube.New(youtube.Config{
			ClientID:      cfg.YouTube.ClientID,
			ClientSecret:  cfg.YouTube.ClientSecret,
			RedirectURI:   cfg.YouTube.RedirectURI,
			TokenPath:     cfg.YouTube.TokenPath,
			CategoryID:    cfg.YouTube.CategoryID,
			PrivacyStatus: cfg.YouTube.PrivacyStatus,
			Timeout:       seconds(cfg.YouTube.TimeoutSeconds),
		}, youtube.WithLogger(logger)),
		BestEffort: []publish.BestEffortUploader{
			social.NewTikTok(cfg.Social.TikTokSessionToken),
			social.NewInstagram(cfg.Social.InstagramSessionToken),
		},
	}
	return publish.Select(features, aggregated, direct)
}
