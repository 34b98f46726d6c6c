package publish

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dailyshorts/internal/config"
	"dailyshorts/internal/logging"
	"dailyshorts/internal/services"
	"dailyshorts/internal/services/social"
	"dailyshorts/internal/services/uploadpost"
)

const (
	StrategyAggregated = "aggregated"
	StrategyDirect     = "direct"
	PrimaryPlatform    = "youtube"
	stageName          = "publishing"
)

// Metadata is the descriptive payload sent with every upload.
type Metadata = social.Metadata

// OutcomeStatus is the per-platform result of a direct publish.
type OutcomeStatus string

const (
	OutcomePublished   OutcomeStatus = "published"
	OutcomeSkipped     OutcomeStatus = "skipped"
	OutcomeUnsupported OutcomeStatus = "unsupported"
	OutcomeFailed      OutcomeStatus = "failed"
)

// Outcome records one platform attempt.
type Outcome struct {
	Platform string        `json:"platform"`
	Status   OutcomeStatus `json:"status"`
	RemoteID string        `json:"remote_id,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Primary  bool          `json:"primary,omitempty"`
}

// Result is the verdict of a publish. Succeeded is true iff the mandatory
// portion of the strategy succeeded.
type Result struct {
	Succeeded bool
	Strategy  string
	Outcomes  []Outcome
	RequestID string
	Err       error
}

// BestEffortFailures returns the best-effort outcomes that failed outright.
func (r Result) BestEffortFailures() []Outcome {
	var failed []Outcome
	for _, outcome := range r.Outcomes {
		if !outcome.Primary && outcome.Status == OutcomeFailed {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// Degraded reports a successful publish with at least one best-effort failure.
func (r Result) Degraded() bool {
	return r.Succeeded && len(r.BestEffortFailures()) > 0
}

// AggregatorClient submits one upload for several platforms.
type AggregatorClient interface {
	Upload(ctx context.Context, artifactPath, title string, platforms []string) (uploadpost.Ack, error)
}

// PrimaryUploader publishes to the mandatory platform.
type PrimaryUploader interface {
	Upload(ctx context.Context, artifactPath, title, description string, tags []string) (string, error)
}

// BestEffortUploader publishes to an optional platform.
type BestEffortUploader interface {
	Name() string
	Upload(ctx context.Context, artifactPath string, meta Metadata) (string, error)
}

// Strategy is one of Aggregated or Direct.
type Strategy interface {
	Name() string
	publish(ctx context.Context, artifactPath string, meta Metadata, logger *slog.Logger) Result
}

// Aggregated publishes through the aggregator in one submission.
type Aggregated struct {
	Client    AggregatorClient
	Platforms []string
}

// Name implements Strategy.
func (Aggregated) Name() string { return StrategyAggregated }

// Direct publishes to the primary platform and then to each best-effort platform.
type Direct struct {
	Primary    PrimaryUploader
	BestEffort []BestEffortUploader
}

// Name implements Strategy.
func (Direct) Name() string { return StrategyDirect }

// Select picks the strategy the feature flags call for.
func Select(features config.Features, aggregated Aggregated, direct Direct) Strategy {
	if features.Aggregator {
		return aggregated
	}
	return direct
}

// Publisher runs strategies with shared logging.
type Publisher struct {
	logger *slog.Logger
}

// NewPublisher constructs a publisher.
func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logging.NewComponentLogger(logger, "publish")}
}

// Publish runs strategy against the artifact. It never panics on a nil strategy;
// that is reported as a failed publish.
func (p *Publisher) Publish(ctx context.Context, artifactPath string, meta Metadata, strategy Strategy) Result {
	logger := logging.WithContext(ctx, p.logger)
	if strategy == nil {
		return Result{Err: services.Wrap(services.ErrPublishFailed, stageName, "select", "no publish strategy", nil)}
	}
	started := time.Now()
	logger.Info("publish started",
		logging.String(logging.FieldEventType, "publish_start"),
		logging.String("strategy", strategy.Name()),
	)
	result := strategy.publish(ctx, artifactPath, meta, logger)
	result.Strategy = strategy.Name()

	attrs := []logging.Attr{
		logging.String("strategy", result.Strategy),
		logging.Bool("succeeded", result.Succeeded),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	}
	if result.Succeeded {
		logger.Info("publish finished", logging.Args(append(attrs, logging.String(logging.FieldEventType, "publish_complete"))...)...)
	} else {
		logging.ErrorWithContext(logger, "publish failed", "publish_failed",
			append(attrs,
				logging.String(logging.FieldErrorKind, services.Kind(result.Err)),
				logging.String(logging.FieldErrorHint, "check platform credentials and the publish error detail"),
				logging.Error(result.Err),
			)...,
		)
	}
	return result
}

func (s Aggregated) publish(ctx context.Context, artifactPath string, meta Metadata, logger *slog.Logger) Result {
	if s.Client == nil {
		return Result{Err: services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "client not configured", services.ErrNotConfigured)}
	}
	logger.Info("submitting to aggregator",
		logging.String(logging.FieldEventType, "aggregator_submit"),
		logging.String("platforms", strings.Join(s.Platforms, ",")),
	)
	ack, err := s.Client.Upload(ctx, artifactPath, meta.Title, s.Platforms)
	if err != nil {
		if !errors.Is(err, services.ErrPublishFailed) {
			err = services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "", err)
		}
		return Result{Err: err}
	}
	return Result{Succeeded: true, RequestID: ack.RequestID}
}

func (s Direct) publish(ctx context.Context, artifactPath string, meta Metadata, logger *slog.Logger) Result {
	if s.Primary == nil {
		err := services.Wrap(services.ErrPublishFailed, stageName, PrimaryPlatform, "primary uploader missing", services.ErrNotConfigured)
		return Result{Err: err, Outcomes: []Outcome{{Platform: PrimaryPlatform, Primary: true, Status: OutcomeSkipped, Detail: err.Error()}}}
	}
	id, err := s.Primary.Upload(ctx, artifactPath, meta.Title, meta.Description, meta.Tags)
	if err != nil {
		primary := outcomeFor(PrimaryPlatform, "", err)
		primary.Primary = true
		if !errors.Is(err, services.ErrPublishFailed) {
			err = services.Wrap(services.ErrPublishFailed, stageName, PrimaryPlatform, "", err)
		}
		return Result{Err: err, Outcomes: []Outcome{primary}}
	}
	logger.Info("primary upload complete",
		logging.String(logging.FieldEventType, "platform_published"),
		logging.String(logging.FieldPlatform, PrimaryPlatform),
		logging.String("remote_id", id),
	)
	result := Result{Succeeded: true, Outcomes: []Outcome{{Platform: PrimaryPlatform, Primary: true, Status: OutcomePublished, RemoteID: id}}}

	for _, uploader := range s.BestEffort {
		if uploader == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			result.Outcomes = append(result.Outcomes, outcomeFor(uploader.Name(), "", err))
			continue
		}
		remoteID, err := uploader.Upload(ctx, artifactPath, meta)
		outcome := outcomeFor(uploader.Name(), remoteID, err)
		result.Outcomes = append(result.Outcomes, outcome)
		switch outcome.Status {
		case OutcomePublished:
			logger.Info("best-effort upload complete",
				logging.String(logging.FieldEventType, "platform_published"),
				logging.String(logging.FieldPlatform, outcome.Platform),
				logging.String("remote_id", remoteID),
			)
		case OutcomeFailed:
			logging.WarnWithContext(logger, "best-effort upload failed", "platform_failed",
				logging.String(logging.FieldPlatform, outcome.Platform),
				logging.String(logging.FieldErrorHint, "inspect the platform credentials"),
				logging.String(logging.FieldImpact, "video not posted to "+outcome.Platform),
				logging.Error(err),
			)
		default:
			logger.Info("best-effort platform not published",
				logging.String(logging.FieldEventType, "platform_"+string(outcome.Status)),
				logging.String(logging.FieldPlatform, outcome.Platform),
				logging.String("reason", outcome.Detail),
			)
		}
	}
	return result
}

func outcomeFor(platform, remoteID string, err error) Outcome {
	outcome := Outcome{Platform: platform, RemoteID: remoteID}
	switch {
	case err == nil:
		outcome.Status = OutcomePublished
		return outcome
	case errors.Is(err, services.ErrNotConfigured):
		outcome.Status = OutcomeSkipped
	case errors.Is(err, services.ErrUnsupported):
		outcome.Status = OutcomeUnsupported
	default:
		outcome.Status = OutcomeFailed
	}
	outcome.Detail = err.Error()
	return outcome
}
