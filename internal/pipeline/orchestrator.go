package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dailyshorts/internal/config"
	"dailyshorts/internal/content"
	"dailyshorts/internal/logging"
	"dailyshorts/internal/preflight"
	"dailyshorts/internal/publish"
	"dailyshorts/internal/render"
	"dailyshorts/internal/services"
	"dailyshorts/internal/services/github"
	"dailyshorts/internal/services/renderer"
	"dailyshorts/internal/services/social"
)

// Generator produces the day's content plan.
type Generator interface {
	GeneratePlan(ctx context.Context, date time.Time) (content.ContentPlan, error)
}

// Renderer drives a render job to a downloaded artifact.
type Renderer interface {
	SubmitAndAwait(ctx context.Context, scenes []content.Scene, video renderer.VideoConfig, outputDir string) (render.Job, error)
}

// Storage uploads the artifact to object storage.
type Storage interface {
	KeyFor(artifactPath string) string
	Put(ctx context.Context, artifactPath, key string) (string, error)
}

// Publisher runs a publish strategy.
type Publisher interface {
	Publish(ctx context.Context, artifactPath string, meta publish.Metadata, strategy publish.Strategy) publish.Result
}

// Archiver pushes the artifact to the source archive when eligible.
type Archiver interface {
	ArchiveIfEligible(ctx context.Context, artifactPath string, result publish.Result) (github.Location, bool, error)
}

// Dependencies are the collaborators a run talks to. Storage and Archiver may
// be nil when their features are disabled.
type Dependencies struct {
	Readiness preflight.Probe
	Generator Generator
	Renderer  Renderer
	Storage   Storage
	Publisher Publisher
	Strategy  publish.Strategy
	Archiver  Archiver
}

// Settings carries the run knobs taken from configuration.
type Settings struct {
	OutputDir string
	Video     config.Video
	Readiness preflight.Readiness
}

// Orchestrator runs the pipeline. Features are fixed at construction.
type Orchestrator struct {
	deps     Dependencies
	settings Settings
	features config.Features
	logger   *slog.Logger
	now      func() time.Time
	observer func(State)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "pipeline")
	}
}

// WithClock overrides the time source used for run timestamps and the plan date.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(State)) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// New constructs an orchestrator.
func New(deps Dependencies, settings Settings, features config.Features, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:     deps,
		settings: settings,
		features: features,
		logger:   logging.NewComponentLogger(nil, "pipeline"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Features returns the flags the orchestrator was built with.
func (o *Orchestrator) Features() config.Features {
	return o.features
}

// Run executes one pipeline run. The run id comes from ctx when present.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	result := RunResult{RunID: runID, StartedAt: o.now(), State: StateIdle}
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("publish_strategy", o.features.PublishStrategy()),
		logging.Bool("storage", o.features.Storage),
		logging.Bool("archive", o.features.Archive),
	)

	o.execute(ctx, &result)

	result.FinishedAt = o.now()
	result.Succeeded = result.Err == nil
	attrs := []logging.Attr{
		logging.String("state", result.State.String()),
		logging.Bool("succeeded", result.Succeeded),
		logging.Duration("elapsed", result.Duration().Round(time.Second)),
		logging.Int("diagnostics", len(result.Diagnostics)),
	}
	if result.Succeeded {
		logger.Info("run finished", logging.Args(append(attrs, logging.String(logging.FieldEventType, "run_complete"))...)...)
	} else {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			append(attrs,
				logging.String(logging.FieldErrorKind, result.ErrorKind()),
				logging.String(logging.FieldErrorHint, hintFor(result.Err)),
				logging.Error(result.Err),
			)...,
		)
	}
	return result
}

func (o *Orchestrator) execute(ctx context.Context, result *RunResult) {
	// Readiness before any generation call.
	o.enter(result, StateReadinessCheck)
	if err := o.checkReadiness(ctx); err != nil {
		result.fail(StateReadinessCheck, err)
		return
	}

	plan, err := o.generatePlan(ctx)
	if err != nil {
		result.fail(StatePlanGenerated, err)
		return
	}
	o.enter(result, StatePlanGenerated)
	summary := summarize(plan)
	result.Plan = &summary

	o.enter(result, StateRendering)
	job, err := o.render(ctx, plan)
	result.JobID = job.ID
	if err != nil {
		result.fail(StateRendering, err)
		return
	}
	result.ArtifactPath = job.ArtifactPath

	if o.features.Storage && o.deps.Storage != nil {
		o.enter(result, StateStorageArchiveAttempted)
		o.uploadToStorage(ctx, result)
	}

	o.enter(result, StatePublishing)
	published := o.publish(ctx, result.ArtifactPath, plan)
	result.Publish = &published
	if !published.Succeeded {
		err := published.Err
		if err == nil {
			err = services.Wrap(services.ErrPublishFailed, StatePublishing.String(), "", "publish reported failure", nil)
		}
		result.fail(StatePublishing, err)
	}
	for _, failure := range published.BestEffortFailures() {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Stage:   StatePublishing.String(),
			Kind:    "publish_degraded",
			Message: failure.Platform + ": " + failure.Detail,
		})
	}

	if o.features.Archive && o.deps.Archiver != nil {
		o.enter(result, StateSourceArchiveAttempted)
		o.archive(ctx, result, published)
	}

	o.enter(result, StateDone)
}

func (o *Orchestrator) enter(result *RunResult, state State) {
	result.State = state
	if o.observer != nil {
		o.observer(state)
	}
}

func (o *Orchestrator) stageContext(ctx context.Context, state State) (context.Context, *slog.Logger) {
	ctx = services.WithStage(ctx, state.String())
	return ctx, logging.WithContext(ctx, o.logger)
}

func (o *Orchestrator) checkReadiness(ctx context.Context) error {
	ctx, logger := o.stageContext(ctx, StateReadinessCheck)
	polls, err := o.settings.Readiness.Wait(ctx, o.deps.Readiness)
	if err != nil {
		return err
	}
	logger.Info("render service ready",
		logging.String(logging.FieldEventType, "readiness_ok"),
		logging.Int("probes", polls),
	)
	return nil
}

func (o *Orchestrator) generatePlan(ctx context.Context) (content.ContentPlan, error) {
	ctx, logger := o.stageContext(ctx, StatePlanGenerated)
	if o.deps.Generator == nil {
		return content.ContentPlan{}, services.Wrap(services.ErrPlanGeneration, StatePlanGenerated.String(), "generate", "no generator configured", services.ErrNotConfigured)
	}
	raw, err := o.deps.Generator.GeneratePlan(ctx, o.now())
	if err != nil {
		if !errors.Is(err, services.ErrPlanGeneration) {
			err = services.Wrap(services.ErrPlanGeneration, StatePlanGenerated.String(), "generate", "", err)
		}
		return content.ContentPlan{}, err
	}
	plan := content.Normalize(raw, content.Defaults{MusicTag: o.settings.Video.MusicTag, Voice: o.settings.Video.Voice})
	logger.Info("content plan generated",
		logging.String(logging.FieldEventType, "plan_generated"),
		logging.String("title", plan.Title),
		logging.Int("scenes", len(plan.Scenes)),
		logging.Int("tags", len(plan.Tags)),
		logging.String("music_tag", plan.MusicTag),
		logging.String("voice", plan.Voice),
	)
	return plan, nil
}

func (o *Orchestrator) render(ctx context.Context, plan content.ContentPlan) (render.Job, error) {
	ctx, _ = o.stageContext(ctx, StateRendering)
	if o.deps.Renderer == nil {
		return render.Job{}, services.Wrap(services.ErrRenderFailed, StateRendering.String(), "submit", "no renderer configured", nil)
	}
	video := renderer.VideoConfig{
		PaddingBack:     o.settings.Video.PaddingBackMS,
		Music:           plan.MusicTag,
		Voice:           plan.Voice,
		CaptionPosition: o.settings.Video.CaptionPosition,
		MusicVolume:     o.settings.Video.MusicVolume,
		Orientation:     o.settings.Video.Orientation,
	}
	job, err := o.deps.Renderer.SubmitAndAwait(ctx, content.EnsureScenes(plan.Scenes), video, o.settings.OutputDir)
	if err != nil && !errors.Is(err, services.ErrRenderFailed) {
		err = services.Wrap(services.ErrRenderFailed, StateRendering.String(), "", "", err)
	}
	return job, err
}

func (o *Orchestrator) uploadToStorage(ctx context.Context, result *RunResult) {
	ctx, logger := o.stageContext(ctx, StateStorageArchiveAttempted)
	key := o.deps.Storage.KeyFor(result.ArtifactPath)
	url, err := o.deps.Storage.Put(ctx, result.ArtifactPath, key)
	if err != nil {
		if !errors.Is(err, services.ErrStorageFailed) {
			err = services.Wrap(services.ErrStorageFailed, StateStorageArchiveAttempted.String(), "put", key, err)
		}
		result.Diagnostics = append(result.Diagnostics, newDiagnostic(StateStorageArchiveAttempted, err))
		logging.WarnWithContext(logger, "storage upload failed", "storage_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check storage credentials and bucket policy"),
			logging.String(logging.FieldImpact, "artifact not copied to object storage"),
			logging.Error(err),
		)
		return
	}
	result.StorageKey = key
	result.StorageURL = url
	logger.Info("artifact stored",
		logging.String(logging.FieldEventType, "storage_complete"),
		logging.String("key", key),
		logging.String("public_url", url),
	)
}

func (o *Orchestrator) publish(ctx context.Context, artifactPath string, plan content.ContentPlan) publish.Result {
	ctx, _ = o.stageContext(ctx, StatePublishing)
	if o.deps.Publisher == nil {
		return publish.Result{Err: services.Wrap(services.ErrPublishFailed, StatePublishing.String(), "", "no publisher configured", nil)}
	}
	return o.deps.Publisher.Publish(ctx, artifactPath, social.MetadataFromPlan(plan), o.deps.Strategy)
}

func (o *Orchestrator) archive(ctx context.Context, result *RunResult, published publish.Result) {
	ctx, logger := o.stageContext(ctx, StateSourceArchiveAttempted)
	loc, archived, err := o.deps.Archiver.ArchiveIfEligible(ctx, result.ArtifactPath, published)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, newDiagnostic(StateSourceArchiveAttempted, err))
		logging.WarnWithContext(logger, "source archival failed", "archive_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check the repository token and permissions"),
			logging.String(logging.FieldImpact, "published video not archived"),
			logging.Error(err),
		)
		return
	}
	if archived {
		result.ArchivePath = loc.Path
		result.ArchiveURL = loc.HTMLURL
	}
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "dependency_unavailable":
		return "start the render service and confirm renderer.base_url"
	case "plan_generation_failed":
		return "check the Gemini API key and model"
	case "timeout":
		return "the render exceeded its deadline; check render service load or raise renderer.deadline_seconds"
	case "artifact_fetch_failed":
		return "the render finished but the download failed; check render service logs"
	case "render_failed":
		return "check render service logs for the job id"
	case "publish_failed":
		return "check publishing credentials (upload-post key or YouTube token)"
	default:
		return "check logs for details"
	}
}
