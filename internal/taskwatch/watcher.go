package taskwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reelflow/internal/backend"
	"reelflow/internal/services"
)

// Callbacks receive task observations. Any field may be nil. OnComplete and
// OnError are terminal; a watcher invokes exactly one of them at most once.
type Callbacks struct {
	OnUpdate   func(backend.TaskStatus)
	OnComplete func(backend.TaskStatus)
	OnError    func(error)
	OnAdvisory func(message string)
}

// Watcher observes one task until it reaches a terminal state, the context is
// cancelled, or the transport gives up. Watch blocks for the duration.
type Watcher interface {
	Watch(ctx context.Context, taskID string, cb Callbacks) error
}

// terminalGuard enforces the at-most-one-terminal-callback contract.
type terminalGuard struct {
	once sync.Once
}

func (g *terminalGuard) complete(cb Callbacks, status backend.TaskStatus) {
	g.once.Do(func() {
		if cb.OnComplete != nil {
			cb.OnComplete(status)
		}
	})
}

func (g *terminalGuard) fail(cb Callbacks, err error) {
	g.once.Do(func() {
		if cb.OnError != nil {
			cb.OnError(err)
		}
	})
}

// terminalError converts a failed or cancelled task status into the error the
// terminal callback receives.
func terminalError(status backend.TaskStatus) error {
	detail := status.ErrorMessage
	if detail == "" {
		detail = fmt.Sprintf("task ended in state %s", status.Status)
	}
	return services.Wrap(services.ErrTaskFailure, "processing", "watch task", detail, nil)
}

// stuckDetector raises a one-shot advisory per non-terminal state when a task
// lingers in it beyond its threshold. Advisories are informational and never
// terminate the watch.
type stuckDetector struct {
	pendingAfter    time.Duration
	processingAfter time.Duration
	state           backend.TaskState
	enteredAt       time.Time
	advised         map[backend.TaskState]bool
}

func newStuckDetector(pendingAfter, processingAfter time.Duration) *stuckDetector {
	return &stuckDetector{
		pendingAfter:    pendingAfter,
		processingAfter: processingAfter,
		advised:         make(map[backend.TaskState]bool),
	}
}

// observe records one status sample and returns an advisory message when a
// threshold has just been crossed.
func (d *stuckDetector) observe(state backend.TaskState, now time.Time) (string, bool) {
	if state != d.state {
		d.state = state
		d.enteredAt = now
		return "", false
	}

	var threshold time.Duration
	switch state {
	case backend.TaskPending:
		threshold = d.pendingAfter
	case backend.TaskProcessing:
		threshold = d.processingAfter
	default:
		return "", false
	}
	if threshold <= 0 || d.advised[state] {
		return "", false
	}
	elapsed := now.Sub(d.enteredAt)
	if elapsed < threshold {
		return "", false
	}
	d.advised[state] = true
	return fmt.Sprintf("task has been %s for %s", state, elapsed.Round(time.Second)), true
}
