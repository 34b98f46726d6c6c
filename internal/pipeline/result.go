package pipeline

import (
	"time"

	"dailyshorts/internal/content"
	"dailyshorts/internal/publish"
	"dailyshorts/internal/services"
)

// PlanSummary is the part of the content plan recorded with a run.
type PlanSummary struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Scenes      int      `json:"scenes"`
	MusicTag    string   `json:"music_tag"`
	Voice       string   `json:"voice"`
}

func summarize(plan content.ContentPlan) PlanSummary {
	return PlanSummary{
		Title:       plan.Title,
		Description: plan.Description,
		Tags:        append([]string(nil), plan.Tags...),
		Scenes:      len(plan.Scenes),
		MusicTag:    plan.MusicTag,
		Voice:       plan.Voice,
	}
}

// Diagnostic records a non-fatal failure.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newDiagnostic(stage State, err error) Diagnostic {
	return Diagnostic{Stage: stage.String(), Kind: services.Kind(err), Message: err.Error()}
}

// RunResult describes one pipeline run.
type RunResult struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	State        State
	Succeeded    bool
	Plan         *PlanSummary
	JobID        string
	ArtifactPath string
	StorageKey   string
	StorageURL   string
	Publish      *publish.Result
	ArchivePath  string
	ArchiveURL   string
	Diagnostics  []Diagnostic
	FailedStage  State
	Err          error
}

func (r *RunResult) fail(stage State, err error) {
	r.FailedStage = stage
	r.Err = err
}

// Duration returns the wall time of the run.
func (r RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrorKind returns the taxonomy name of the terminal error.
func (r RunResult) ErrorKind() string {
	return services.Kind(r.Err)
}
