package history

import (
	"errors"
	"time"

	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/publish"
)

// Status is the coarse outcome of a recorded run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerAPI       Trigger = "api"
)

// ErrNotFound is returned when no run matches the requested id.
var ErrNotFound = errors.New("run not found")

// Run is one persisted pipeline run.
type Run struct {
	ID           string                `json:"id"`
	Trigger      Trigger               `json:"trigger"`
	Status       Status                `json:"status"`
	State        string                `json:"state"`
	FailedStage  string                `json:"failed_stage,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at,omitzero"`
	Title        string                `json:"title,omitempty"`
	Description  string                `json:"description,omitempty"`
	Tags         []string              `json:"tags,omitempty"`
	SceneCount   int                   `json:"scene_count"`
	JobID        string                `json:"job_id,omitempty"`
	ArtifactPath string                `json:"artifact_path,omitempty"`
	StorageKey   string                `json:"storage_key,omitempty"`
	StorageURL   string                `json:"storage_url,omitempty"`
	Strategy     string                `json:"strategy,omitempty"`
	RequestID    string                `json:"request_id,omitempty"`
	Outcomes     []publish.Outcome     `json:"outcomes,omitempty"`
	ArchivePath  string                `json:"archive_path,omitempty"`
	ArchiveURL   string                `json:"archive_url,omitempty"`
	ErrorKind    string                `json:"error_kind,omitempty"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Diagnostics  []pipeline.Diagnostic `json:"diagnostics,omitempty"`
}

// Duration returns the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FromResult converts a pipeline result into a history row.
func FromResult(result pipeline.RunResult, trigger Trigger) Run {
	run := Run{
		ID:           result.RunID,
		Trigger:      trigger,
		Status:       StatusFailed,
		State:        result.State.String(),
		FailedStage:  result.FailedStage.String(),
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		JobID:        result.JobID,
		ArtifactPath: result.ArtifactPath,
		StorageKey:   result.StorageKey,
		StorageURL:   result.StorageURL,
		ArchivePath:  result.ArchivePath,
		ArchiveURL:   result.ArchiveURL,
		Diagnostics:  append([]pipeline.Diagnostic(nil), result.Diagnostics...),
	}
	if result.Succeeded {
		run.Status = StatusSucceeded
	}
	if result.Plan != nil {
		run.Title = result.Plan.Title
		run.Description = result.Plan.Description
		run.Tags = append([]string(nil), result.Plan.Tags...)
		run.SceneCount = result.Plan.Scenes
	}
	if result.Publish != nil {
		run.Strategy = result.Publish.Strategy
		run.RequestID = result.Publish.RequestID
		run.Outcomes = append([]publish.Outcome(nil), result.Publish.Outcomes...)
	}
	if result.Err != nil {
		run.ErrorKind = result.ErrorKind()
		run.ErrorMessage = result.Err.Error()
	}
	return run
}
