package preflight

import (
	"context"
	"fmt"
	"time"

	"dailyshorts/internal/services"
)

const (
	defaultReadinessInterval = 2 * time.Second
	defaultReadinessDeadline = 60 * time.Second
)

// Probe reports whether a dependency is live.
type Probe interface {
	Ready(ctx context.Context) bool
}

// Readiness polls a Probe on a fixed interval until it passes or the deadline elapses.
type Readiness struct {
	Interval time.Duration
	Deadline time.Duration
	Now      func() time.Time
	Sleep    func(context.Context, time.Duration) error
}

// Wait returns the number of probes made. It fails with
// services.ErrDependencyUnavailable when the deadline passes first.
func (r Readiness) Wait(ctx context.Context, probe Probe) (int, error) {
	if r.Interval <= 0 {
		r.Interval = defaultReadinessInterval
	}
	if r.Deadline <= 0 {
		r.Deadline = defaultReadinessDeadline
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Sleep == nil {
		r.Sleep = sleepContext
	}
	if probe == nil {
		return 0, services.Wrap(services.ErrDependencyUnavailable, "readiness", "probe", "no probe configured", nil)
	}

	start := r.Now()
	polls := 0
	for r.Now().Sub(start) < r.Deadline {
		polls++
		if probe.Ready(ctx) {
			return polls, nil
		}
		if err := r.Sleep(ctx, r.Interval); err != nil {
			return polls, services.Wrap(services.ErrDependencyUnavailable, "readiness", "wait", "cancelled", err)
		}
	}
	detail := fmt.Sprintf("not ready after %s (%d probes)", r.Deadline, polls)
	return polls, services.Wrap(services.ErrDependencyUnavailable, "readiness", "wait", detail, nil)
}

// WaitForRenderer waits for the render service with the given cadence.
func WaitForRenderer(ctx context.Context, probe Probe, interval, deadline time.Duration) error {
	_, err := Readiness{Interval: interval, Deadline: deadline}.Wait(ctx, probe)
	return err
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
