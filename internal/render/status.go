package render

import "strings"

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed-out"
	// StatusUnknown covers remote strings outside the vocabulary. It is not terminal.
	StatusUnknown Status = "unknown"
)

// ParseStatus maps a remote status string onto the enum.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "processing", "pending", "queued", "rendering":
		return StatusProcessing
	case "ready", "done", "completed":
		return StatusReady
	case "failed", "error":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusReady, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// Next returns the state after observing a remote status. It is defined for
// every input: terminal states absorb, a ready or failed observation wins over
// a deadline breach, and otherwise a breach times the job out.
func Next(current, observed Status, deadlineExceeded bool) Status {
	if current.Terminal() {
		return current
	}
	switch observed {
	case StatusReady, StatusFailed:
		return observed
	}
	if deadlineExceeded {
		return StatusTimedOut
	}
	if observed == StatusProcessing {
		return StatusProcessing
	}
	return StatusUnknown
}
