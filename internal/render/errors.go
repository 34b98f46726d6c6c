package render

import (
	"fmt"
	"time"

	"dailyshorts/internal/services"
)

// TimeoutError reports a job that never became ready before the deadline.
type TimeoutError struct {
	JobID   string
	Elapsed time.Duration
	Polls   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("render job %s timed out after %s (%d polls)", e.JobID, e.Elapsed.Round(time.Second), e.Polls)
}

// Unwrap exposes both the timeout and the render failure markers.
func (e *TimeoutError) Unwrap() []error {
	return []error{services.ErrTimeout, services.ErrRenderFailed}
}

// FetchError reports a ready job whose artifact could not be downloaded.
type FetchError struct {
	JobID string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch artifact for render job %s: %v", e.JobID, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{services.ErrArtifactFetch, services.ErrRenderFailed, e.Err}
}
