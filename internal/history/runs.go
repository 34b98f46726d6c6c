package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/publish"
)

const runColumns = "id, trigger, status, state, failed_stage, started_at, finished_at, title, description, tags_json, scene_count, job_id, artifact_path, storage_key, storage_url, strategy, request_id, outcomes_json, archive_path, archive_url, error_kind, error_message, diagnostics_json"

const defaultListLimit = 20

// timeLayout is fixed width so text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Begin inserts a running row for a run that has just started.
func (s *Store) Begin(ctx context.Context, id string, trigger Trigger, startedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("run id is required")
	}
	if trigger == "" {
		trigger = TriggerManual
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, trigger, status, state, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(trigger), string(StatusRunning), pipeline.StateIdle.String(), formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", id, err)
	}
	return nil
}

// Record stores the final state of a run, inserting it when Begin was never called.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.Trigger == "" {
		run.Trigger = TriggerManual
	}
	tags, err := encodeJSON(run.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	outcomes, err := encodeJSON(run.Outcomes)
	if err != nil {
		return fmt.Errorf("encode outcomes: %w", err)
	}
	diagnostics, err := encodeJSON(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	_, err = s.execWithRetry(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trigger = excluded.trigger,
			status = excluded.status,
			state = excluded.state,
			failed_stage = excluded.failed_stage,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			title = excluded.title,
			description = excluded.description,
			tags_json = excluded.tags_json,
			scene_count = excluded.scene_count,
			job_id = excluded.job_id,
			artifact_path = excluded.artifact_path,
			storage_key = excluded.storage_key,
			storage_url = excluded.storage_url,
			strategy = excluded.strategy,
			request_id = excluded.request_id,
			outcomes_json = excluded.outcomes_json,
			archive_path = excluded.archive_path,
			archive_url = excluded.archive_url,
			error_kind = excluded.error_kind,
			error_message = excluded.error_message,
			diagnostics_json = excluded.diagnostics_json`,
		run.ID, string(run.Trigger), string(run.Status), run.State, nullString(run.FailedStage),
		formatTime(run.StartedAt), nullTime(run.FinishedAt),
		nullString(run.Title), nullString(run.Description), tags, run.SceneCount,
		nullString(run.JobID), nullString(run.ArtifactPath), nullString(run.StorageKey), nullString(run.StorageURL),
		nullString(run.Strategy), nullString(run.RequestID), outcomes,
		nullString(run.ArchivePath), nullString(run.ArchiveURL),
		nullString(run.ErrorKind), nullString(run.ErrorMessage), diagnostics,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Get fetches a run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. A non-positive limit uses the default.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkInterrupted flips rows left running by a previous process.
func (s *Store) MarkInterrupted(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = COALESCE(error_message, 'process exited before the run finished')
		 WHERE status = ?`,
		string(StatusInterrupted), formatTime(now), string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes finished runs that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM runs WHERE status != ? AND started_at < ?`,
		string(StatusRunning), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run          Run
		trigger      string
		status       string
		failedStage  sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
		title        sql.NullString
		description  sql.NullString
		tags         sql.NullString
		jobID        sql.NullString
		artifactPath sql.NullString
		storageKey   sql.NullString
		storageURL   sql.NullString
		strategy     sql.NullString
		requestID    sql.NullString
		outcomes     sql.NullString
		archivePath  sql.NullString
		archiveURL   sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		diagnostics  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&trigger,
		&status,
		&run.State,
		&failedStage,
		&startedRaw,
		&finishedRaw,
		&title,
		&description,
		&tags,
		&run.SceneCount,
		&jobID,
		&artifactPath,
		&storageKey,
		&storageURL,
		&strategy,
		&requestID,
		&outcomes,
		&archivePath,
		&archiveURL,
		&errorKind,
		&errorMessage,
		&diagnostics,
	); err != nil {
		return Run{}, err
	}

	run.Trigger = Trigger(trigger)
	run.Status = Status(status)
	run.FailedStage = failedStage.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw.String)
	run.Title = title.String
	run.Description = description.String
	run.JobID = jobID.String
	run.ArtifactPath = artifactPath.String
	run.StorageKey = storageKey.String
	run.StorageURL = storageURL.String
	run.Strategy = strategy.String
	run.RequestID = requestID.String
	run.ArchivePath = archivePath.String
	run.ArchiveURL = archiveURL.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String

	if err := decodeJSON(tags.String, &run.Tags); err != nil {
		return Run{}, fmt.Errorf("decode tags: %w", err)
	}
	var decodedOutcomes []publish.Outcome
	if err := decodeJSON(outcomes.String, &decodedOutcomes); err != nil {
		return Run{}, fmt.Errorf("decode outcomes: %w", err)
	}
	run.Outcomes = decodedOutcomes
	var decodedDiagnostics []pipeline.Diagnostic
	if err := decodeJSON(diagnostics.String, &decodedDiagnostics); err != nil {
		return Run{}, fmt.Errorf("decode diagnostics: %w", err)
	}
	run.Diagnostics = decodedDiagnostics
	return run, nil
}

func encodeJSON[T any](values []T) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeJSON(raw string, target any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), target)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
