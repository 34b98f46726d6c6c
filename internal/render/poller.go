package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dailyshorts/internal/content"
	"dailyshorts/internal/logging"
	"dailyshorts/internal/services"
	"dailyshorts/internal/services/renderer"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultDeadline     = 30 * time.Minute
	stageName           = "rendering"
)

// Service is the subset of the render service the poller needs.
type Service interface {
	Submit(ctx context.Context, scenes []content.Scene, video renderer.VideoConfig) (string, error)
	Status(ctx context.Context, jobID string) (string, error)
	Fetch(ctx context.Context, jobID string, w io.Writer) (int64, error)
}

// Job is the poller's view of a render job. ArtifactPath is set only once the
// job is ready and the fetch succeeded.
type Job struct {
	ID           string
	Status       Status
	ArtifactPath string
	Bytes        int64
	Polls        int
	Elapsed      time.Duration
}

// Progress is emitted once per poll cycle.
type Progress struct {
	JobID   string
	Elapsed time.Duration
	Status  Status
	Polls   int
}

// Poller submits a render job and waits for its artifact.
type Poller struct {
	service  Service
	interval time.Duration
	deadline time.Duration
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	progress func(Progress)
}

// Option customizes a Poller.
type Option func(*Poller)

// WithClock overrides the time source and the wait between polls.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithProgress registers a callback invoked after every status poll.
func WithProgress(fn func(Progress)) Option {
	return func(p *Poller) {
		p.progress = fn
	}
}

// WithLogger sets the poller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller constructs a poller. Non-positive durations fall back to 5s and 30m.
func NewPoller(service Service, interval, deadline time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	p := &Poller{
		service:  service,
		interval: interval,
		deadline: deadline,
		logger:   logging.NewNop(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SubmitAndAwait submits scenes, polls until the job is ready, and downloads the
// artifact to <outputDir>/<jobID>.mp4. The returned Job carries the job id even
// when an error is returned after submission.
func (p *Poller) SubmitAndAwait(ctx context.Context, scenes []content.Scene, video renderer.VideoConfig, outputDir string) (Job, error) {
	logger := logging.WithContext(ctx, p.logger)

	jobID, err := p.service.Submit(ctx, scenes, video)
	if err != nil {
		return Job{}, err
	}
	job := Job{ID: jobID, Status: StatusProcessing}
	started := p.now()
	logger.Info("render job submitted",
		logging.String(logging.FieldEventType, "render_submitted"),
		logging.String(logging.FieldJobID, jobID),
		logging.Int("scenes", len(scenes)),
	)

	sampler := logging.NewPollSampler(time.Minute)
	for !job.Status.Terminal() {
		if err := p.sleep(ctx, p.interval); err != nil {
			job.Elapsed = p.now().Sub(started)
			return job, services.Wrap(services.ErrRenderFailed, stageName, "poll", "job "+jobID+" cancelled", err)
		}
		raw, err := p.service.Status(ctx, jobID)
		if err != nil {
			job.Elapsed = p.now().Sub(started)
			return job, services.Wrap(services.ErrRenderFailed, stageName, "poll", "job "+jobID, err)
		}
		job.Polls++
		job.Elapsed = p.now().Sub(started)
		observed := ParseStatus(raw)
		job.Status = Next(job.Status, observed, job.Elapsed > p.deadline)

		if p.progress != nil {
			p.progress(Progress{JobID: jobID, Elapsed: job.Elapsed, Status: job.Status, Polls: job.Polls})
		}
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "render_poll"),
			logging.String(logging.FieldJobID, jobID),
			logging.String("status", job.Status.String()),
			logging.Int("polls", job.Polls),
			logging.Duration("elapsed", job.Elapsed.Round(time.Second)),
		}
		if observed == StatusUnknown {
			attrs = append(attrs, logging.String("remote_status", raw))
		}
		if sampler.ShouldLog(job.Status.String(), job.Elapsed) {
			logger.Info("render job status", logging.Args(attrs...)...)
		} else {
			logger.Debug("render job status", logging.Args(attrs...)...)
		}
	}

	switch job.Status {
	case StatusTimedOut:
		return job, &TimeoutError{JobID: jobID, Elapsed: job.Elapsed, Polls: job.Polls}
	case StatusFailed:
		return job, services.Wrap(services.ErrRenderFailed, stageName, "poll", "job "+jobID+" reported failed", nil)
	}

	path, n, err := p.fetch(ctx, jobID, outputDir)
	if err != nil {
		return job, &FetchError{JobID: jobID, Err: err}
	}
	job.ArtifactPath = path
	job.Bytes = n
	job.Elapsed = p.now().Sub(started)
	logger.Info("render artifact downloaded",
		logging.String(logging.FieldEventType, "render_downloaded"),
		logging.String(logging.FieldJobID, jobID),
		logging.String("path", path),
		logging.Int64("bytes", n),
		logging.Duration("elapsed", job.Elapsed.Round(time.Second)),
	)
	return job, nil
}

// fetch streams the artifact into a temp file and renames it into place so a
// failed download never leaves a partial <jobID>.mp4 behind.
func (p *Poller) fetch(ctx context.Context, jobID, outputDir string) (string, int64, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(outputDir, ".render-*.part")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := p.service.Fetch(ctx, jobID, tmp)
	if err != nil {
		cleanup()
		return "", 0, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", 0, fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("close artifact: %w", err)
	}
	final := filepath.Join(outputDir, artifactName(jobID))
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("rename artifact: %w", err)
	}
	return final, n, nil
}

func artifactName(jobID string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, jobID)
	return safe + ".mp4"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
