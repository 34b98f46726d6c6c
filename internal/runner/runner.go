package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dailyshorts/internal/config"
	"dailyshorts/internal/history"
	"dailyshorts/internal/logging"
	"dailyshorts/internal/notifications"
	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/publish"
	"dailyshorts/internal/services"
)

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = errors.New("a run is already in progress")

// Pipeline executes one run.
type Pipeline interface {
	Run(ctx context.Context) pipeline.RunResult
}

// Recorder persists run history.
type Recorder interface {
	Begin(ctx context.Context, id string, trigger history.Trigger, startedAt time.Time) error
	Record(ctx context.Context, run history.Run) error
}

// PipelineFactory builds the pipeline, registering observe for state transitions.
type PipelineFactory func(observe func(pipeline.State)) (Pipeline, error)

// Status is a snapshot of the runner.
type Status struct {
	Running   bool           `json:"running"`
	RunID     string         `json:"run_id,omitempty"`
	Trigger   string         `json:"trigger,omitempty"`
	State     pipeline.State `json:"state,omitempty"`
	StartedAt time.Time      `json:"started_at,omitzero"`
	LockPath  string         `json:"lock_path"`
}

// Runner serializes pipeline runs and handles their bookkeeping.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder Recorder
	notifier notifications.Service
	factory  PipelineFactory
	lockPath string
	now      func() time.Time

	mu     sync.Mutex
	status Status
}

// Option customizes a Runner.
type Option func(*Runner)

// WithPipelineFactory replaces the config-driven pipeline builder.
func WithPipelineFactory(factory PipelineFactory) Option {
	return func(r *Runner) {
		if factory != nil {
			r.factory = factory
		}
	}
}

// WithClock overrides the time source used for history bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a runner. recorder and notifier may be nil.
func New(cfg *config.Config, logger *slog.Logger, recorder Recorder, notifier notifications.Service, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("runner requires config")
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	r := &Runner{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "runner"),
		recorder: recorder,
		notifier: notifier,
		lockPath: cfg.LockPath(),
		now:      time.Now,
	}
	r.factory = func(observe func(pipeline.State)) (Pipeline, error) {
		return Build(cfg, logger, pipeline.WithObserver(observe))
	}
	for _, opt := range opts {
		opt(r)
	}
	r.status.LockPath = r.lockPath
	return r, nil
}

// Status returns the current runner snapshot.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Running reports whether this process is executing a run.
func (r *Runner) Running() bool {
	return r.Status().Running
}

// Run executes one pipeline run. It returns ErrRunInProgress without running
// when another run in this or another process holds the lock. Pipeline
// failures are reported in the result, not the error.
func (r *Runner) Run(ctx context.Context, trigger history.Trigger) (pipeline.RunResult, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return pipeline.RunResult{}, err
	}
	if !r.claim() {
		return pipeline.RunResult{}, ErrRunInProgress
	}
	defer r.release()

	lock := flock.New(r.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return pipeline.RunResult{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		r.logger.Info("run skipped; lock held by another process",
			logging.String(logging.FieldEventType, "run_skipped"),
			logging.String("lock", r.lockPath),
		)
		return pipeline.RunResult{}, ErrRunInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(r.logger, "failed to release run lock", "lock_release_failed",
				logging.String("lock", r.lockPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the lock file if no run is active"),
			)
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	startedAt := r.now()
	r.begin(runID, trigger, startedAt)

	if r.recorder != nil {
		if err := r.recorder.Begin(ctx, runID, trigger, startedAt); err != nil {
			logging.WarnWithContext(logger, "history insert failed", "history_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will be missing from history until it finishes"),
			)
		}
	}

	p, err := r.factory(r.observe)
	if err != nil {
		result := pipeline.RunResult{
			RunID:      runID,
			StartedAt:  startedAt,
			FinishedAt: r.now(),
			State:      pipeline.StateIdle,
			Err:        services.Wrap(services.ErrNotConfigured, "build", "", "construct pipeline", err),
		}
		r.finish(ctx, logger, result, trigger)
		return result, nil
	}

	result := p.Run(ctx)
	r.finish(ctx, logger, result, trigger)
	return result, nil
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, result pipeline.RunResult, trigger history.Trigger) {
	// Bookkeeping must survive a cancelled run context.
	bookkeeping := context.WithoutCancel(ctx)
	if r.recorder != nil {
		if err := r.recorder.Record(bookkeeping, history.FromResult(result, trigger)); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run result not persisted"),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		}
	}
	for _, n := range notificationsFor(result) {
		if err := r.notifier.Publish(bookkeeping, n.event, n.payload); err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String("event", string(n.event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}
}

type notification struct {
	event   notifications.Event
	payload notifications.Payload
}

func notificationsFor(result pipeline.RunResult) []notification {
	title := ""
	if result.Plan != nil {
		title = result.Plan.Title
	}
	if !result.Succeeded {
		stage := result.FailedStage.String()
		if stage == "" {
			stage = result.State.String()
		}
		errText := ""
		if result.Err != nil {
			errText = result.Err.Error()
		}
		return []notification{{
			event: notifications.EventRunFailed,
			payload: notifications.Payload{
				"title":     title,
				"stage":     stage,
				"errorKind": result.ErrorKind(),
				"error":     errText,
				"runID":     result.RunID,
			},
		}}
	}

	var published []string
	if result.Publish != nil {
		for _, outcome := range result.Publish.Outcomes {
			if outcome.Status == publish.OutcomePublished {
				published = append(published, outcome.Platform)
			}
		}
	}
	out := []notification{{
		event: notifications.EventRunCompleted,
		payload: notifications.Payload{
			"title":       title,
			"platforms":   published,
			"duration":    result.Duration(),
			"archivePath": result.ArchivePath,
		},
	}}
	if result.Publish != nil && result.Publish.Degraded() {
		var failed []string
		for _, outcome := range result.Publish.BestEffortFailures() {
			failed = append(failed, outcome.Platform)
		}
		out = append(out, notification{
			event:   notifications.EventPublishDegraded,
			payload: notifications.Payload{"title": title, "failed": failed},
		})
	}
	return out
}

func (r *Runner) claim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Running {
		return false
	}
	r.status.Running = true
	return true
}

func (r *Runner) begin(runID string, trigger history.Trigger, startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.RunID = runID
	r.status.Trigger = string(trigger)
	r.status.StartedAt = startedAt
	r.status.State = pipeline.StateIdle
}

func (r *Runner) observe(state pipeline.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.State = state
}

func (r *Runner) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = Status{LockPath: r.lockPath}
}
