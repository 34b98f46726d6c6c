package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"dailyshorts/internal/config"
	"dailyshorts/internal/history"
	"dailyshorts/internal/logging"
	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/runner"
)

var (
	// ErrBusy is returned by Trigger when a run is already in flight.
	ErrBusy = errors.New("a run is already in flight")
	// ErrNotRunning is returned by Trigger before Start or after Stop.
	ErrNotRunning = errors.New("daemon not running")
)

// RunExecutor executes pipeline runs.
type RunExecutor interface {
	Run(ctx context.Context, trigger history.Trigger) (pipeline.RunResult, error)
	Status() runner.Status
}

// HistoryStore exposes the run history the daemon reads and maintains.
type HistoryStore interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (history.Run, error)
	MarkInterrupted(ctx context.Context, now time.Time) (int64, error)
}

// Status represents daemon runtime information.
type Status struct {
	Running  bool          `json:"running"`
	Schedule string        `json:"schedule"`
	Timezone string        `json:"timezone"`
	NextRun  time.Time     `json:"next_run,omitzero"`
	Run      runner.Status `json:"run"`
}

// Daemon schedules runs and serves the status API.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	runner  RunExecutor
	history HistoryStore
	cron    *cron.Cron
	entry   cron.EntryID
	api     *apiServer
	now     func() time.Time

	// lifecycle serializes the running flag with wg.Add so Stop never waits
	// while a new run is being registered.
	lifecycle sync.Mutex
	running   atomic.Bool
	inFlight  atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs a daemon. The schedule is parsed here so a bad expression
// fails before anything starts.
func New(cfg *config.Config, logger *slog.Logger, exec RunExecutor, store HistoryStore) (*Daemon, error) {
	if cfg == nil || exec == nil || store == nil {
		return nil, errors.New("daemon requires config, runner, and history store")
	}
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}

	d := &Daemon{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "daemon"),
		runner:  exec,
		history: store,
		now:     time.Now,
	}
	d.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{logger: d.logger}),
		cron.WithChain(cron.Recover(cronLogger{logger: d.logger})),
	)
	entry, err := d.cron.AddFunc(cfg.Schedule.Cron, func() {
		if err := d.Trigger(history.TriggerScheduled); err != nil {
			d.logger.Info("scheduled run skipped",
				logging.String(logging.FieldEventType, "schedule_skipped"),
				logging.String("reason", err.Error()),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule.cron %q: %w", cfg.Schedule.Cron, err)
	}
	d.entry = entry

	d.api, err = newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Start begins scheduling and, when configured, serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.lifecycle.Lock()
	if !d.running.CompareAndSwap(false, true) {
		d.lifecycle.Unlock()
		return errors.New("daemon already running")
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.lifecycle.Unlock()

	if marked, err := d.history.MarkInterrupted(d.ctx, d.now()); err != nil {
		logging.WarnWithContext(d.logger, "failed to mark interrupted runs", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale runs stay marked running"),
		)
	} else if marked > 0 {
		d.logger.Info("marked interrupted runs",
			logging.String(logging.FieldEventType, "runs_interrupted"),
			logging.Int64("count", marked),
		)
	}
	logging.PruneFiles(d.logger, d.cfg.Paths.LogDir, "*.log",
		filepath.Join(d.cfg.Paths.LogDir, logging.LogFileName), d.cfg.Logging.RetentionDays, d.now())

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		d.lifecycle.Lock()
		d.running.Store(false)
		d.lifecycle.Unlock()
		return err
	}
	d.cron.Start()

	d.logger.Info("dailyshorts daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("schedule", d.cfg.Schedule.Cron),
		logging.String("timezone", d.cfg.Schedule.Timezone),
		logging.String("next_run", d.NextRun().Format(time.RFC3339)),
	)
	if d.cfg.Schedule.RunOnStart {
		if err := d.Trigger(history.TriggerScheduled); err != nil {
			d.logger.Info("startup run skipped", logging.String("reason", err.Error()))
		}
	}
	return nil
}

// Stop halts scheduling, waits for an in-flight run, and shuts the API down.
func (d *Daemon) Stop() {
	d.lifecycle.Lock()
	stopped := d.running.CompareAndSwap(true, false)
	d.lifecycle.Unlock()
	if !stopped {
		return
	}
	<-d.cron.Stop().Done()
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.api.stop()
	d.logger.Info("dailyshorts daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Trigger starts a run in the background. It returns ErrBusy when a run is in flight.
func (d *Daemon) Trigger(trigger history.Trigger) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	if !d.running.Load() {
		return ErrNotRunning
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	if d.runner.Status().Running {
		d.inFlight.Store(false)
		return ErrBusy
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Store(false)
		result, err := d.runner.Run(d.ctx, trigger)
		if err != nil {
			if errors.Is(err, runner.ErrRunInProgress) {
				d.logger.Info("run skipped; another run holds the lock",
					logging.String(logging.FieldEventType, "run_skipped"),
					logging.String("trigger", string(trigger)),
				)
				return
			}
			logging.ErrorWithContext(d.logger, "run could not start", "run_start_failed",
				logging.String("trigger", string(trigger)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
			return
		}
		d.logger.Info("run finished",
			logging.String(logging.FieldEventType, "daemon_run_complete"),
			logging.String(logging.FieldRunID, result.RunID),
			logging.String("trigger", string(trigger)),
			logging.Bool("succeeded", result.Succeeded),
		)
	}()
	return nil
}

// Busy reports whether a run is in flight.
func (d *Daemon) Busy() bool {
	return d.inFlight.Load() || d.runner.Status().Running
}

// NextRun returns the next scheduled activation.
func (d *Daemon) NextRun() time.Time {
	entry := d.cron.Entry(d.entry)
	if entry.Valid() && !entry.Next.IsZero() {
		return entry.Next
	}
	schedule, err := cron.ParseStandard(d.cfg.Schedule.Cron)
	if err != nil {
		return time.Time{}
	}
	loc, err := time.LoadLocation(d.cfg.Schedule.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return schedule.Next(d.now().In(loc))
}

// APIAddr returns the bound API address, or "" when the API is disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:  d.running.Load(),
		Schedule: d.cfg.Schedule.Cron,
		Timezone: d.cfg.Schedule.Timezone,
		NextRun:  d.NextRun(),
		Run:      d.runner.Status(),
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{logging.Error(err), logging.String(logging.FieldEventType, "cron_error")}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
