package pipeline

// State is the orchestrator position within a run.
type State string

const (
	StateIdle                    State = "idle"
	StateReadinessCheck          State = "readiness_check"
	StatePlanGenerated           State = "plan_generated"
	StateRendering               State = "rendering"
	StateStorageArchiveAttempted State = "storage_archive_attempted"
	StatePublishing              State = "publishing"
	StateSourceArchiveAttempted  State = "source_archive_attempted"
	StateDone                    State = "done"
)

func (s State) String() string {
	return string(s)
}
