package logging

import (
	"strings"
	"time"
)

// PollSampler suppresses repetitive polling logs while preserving signal when
// the observed status changes or elapsed time crosses an interval boundary.
type PollSampler struct {
	interval   time.Duration
	lastStatus string
	lastBucket int64
}

// NewPollSampler constructs a sampler that emits at most once per interval
// (default one minute) unless the status changes.
func NewPollSampler(interval time.Duration) *PollSampler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PollSampler{interval: interval, lastBucket: -1}
}

// ShouldLog reports whether a poll observation should be logged at info level.
func (s *PollSampler) ShouldLog(status string, elapsed time.Duration) bool {
	if s == nil {
		return true
	}
	emit := false
	status = strings.TrimSpace(status)
	if status != s.lastStatus {
		s.lastStatus = status
		emit = true
	}
	if bucket := int64(elapsed / s.interval); bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new job starts).
func (s *PollSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStatus = ""
	s.lastBucket = -1
}
