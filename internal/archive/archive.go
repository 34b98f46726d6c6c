// Package archive pushes published artifacts to the source-control archive.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"dailyshorts/internal/logging"
	"dailyshorts/internal/publish"
	"dailyshorts/internal/services"
	"dailyshorts/internal/services/github"
)

const (
	DefaultBaseDir = "finished"
	stageName      = "archive"
)

// Store is the repository contents API the archiver writes through.
type Store interface {
	GetExisting(ctx context.Context, path string) (string, error)
	PutFile(ctx context.Context, path string, data []byte, message, revision string) (github.Location, error)
}

// Archiver writes artifacts to <base_dir>/<YYYY-MM-DD>/<filename>.
type Archiver struct {
	store   Store
	baseDir string
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes an Archiver.
type Option func(*Archiver)

// WithClock overrides the time source used for the date directory.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the archiver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archiver) {
		a.logger = logging.NewComponentLogger(logger, "archive")
	}
}

// New constructs an archiver. A nil store disables archival.
func New(store Store, baseDir string, opts ...Option) *Archiver {
	baseDir = strings.Trim(strings.TrimSpace(baseDir), "/")
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	a := &Archiver{store: store, baseDir: baseDir, now: time.Now, logger: logging.NewComponentLogger(nil, "archive")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether archival is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.store != nil
}

// DestinationPath returns the repository path for an artifact archived on date.
func DestinationPath(baseDir string, date time.Time, artifactPath string) string {
	return path.Join(baseDir, date.UTC().Format("2006-01-02"), filepath.Base(artifactPath))
}

// CommitMessage returns the archive commit message.
func CommitMessage(filename string, date time.Time) string {
	return fmt.Sprintf("Add video %s (%s)", filename, date.UTC().Format("2006-01-02"))
}

// ArchiveIfEligible archives the artifact when publishing succeeded and
// archival is configured. Otherwise it is a no-op returning archived=false.
// Failures carry services.ErrArchivalFailed.
func (a *Archiver) ArchiveIfEligible(ctx context.Context, artifactPath string, result publish.Result) (github.Location, bool, error) {
	if !result.Succeeded || !a.Enabled() {
		reason := "archival not configured"
		if !result.Succeeded {
			reason = "publish did not succeed"
		}
		if a != nil {
			logging.WithContext(ctx, a.logger).Info("archive skipped",
				logging.String(logging.FieldEventType, "archive_skipped"),
				logging.String("reason", reason),
			)
		}
		return github.Location{}, false, nil
	}
	logger := logging.WithContext(ctx, a.logger)

	now := a.now()
	dest := DestinationPath(a.baseDir, now, artifactPath)
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return github.Location{}, false, services.Wrap(services.ErrArchivalFailed, stageName, "read", artifactPath, err)
	}

	revision, err := a.store.GetExisting(ctx, dest)
	switch {
	case errors.Is(err, services.ErrNotFound):
		revision = ""
	case err != nil:
		return github.Location{}, false, ensureArchival(err, "lookup", dest)
	}

	loc, err := a.store.PutFile(ctx, dest, data, CommitMessage(filepath.Base(artifactPath), now), revision)
	if err != nil {
		return github.Location{}, false, ensureArchival(err, "write", dest)
	}
	logger.Info("artifact archived",
		logging.String(logging.FieldEventType, "archive_complete"),
		logging.String("location", loc.String()),
		logging.Bool("replaced", revision != ""),
		logging.Int("bytes", len(data)),
	)
	return loc, true, nil
}

func ensureArchival(err error, op, dest string) error {
	if errors.Is(err, services.ErrArchivalFailed) {
		return err
	}
	return services.Wrap(services.ErrArchivalFailed, stageName, op, dest, err)
}
