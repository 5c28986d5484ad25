package taskwatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/services"
)

const backoffCeiling = 30 * time.Second

// PollerOptions control polling cadence and failure tolerance.
type PollerOptions struct {
	Interval             time.Duration
	MaxRetries           int
	PendingStuckAfter    time.Duration
	ProcessingStuckAfter time.Duration
}

// PollerOptionsFromConfig derives poller options from workflow configuration.
func PollerOptionsFromConfig(cfg *config.Config) PollerOptions {
	opts := PollerOptions{
		Interval:             2 * time.Second,
		MaxRetries:           5,
		PendingStuckAfter:    30 * time.Second,
		ProcessingStuckAfter: 600 * time.Second,
	}
	if cfg == nil {
		return opts
	}
	if cfg.Workflow.TaskPollInterval > 0 {
		opts.Interval = time.Duration(cfg.Workflow.TaskPollInterval) * time.Second
	}
	if cfg.Workflow.TaskPollMaxRetries > 0 {
		opts.MaxRetries = cfg.Workflow.TaskPollMaxRetries
	}
	if cfg.Workflow.PendingStuckSeconds > 0 {
		opts.PendingStuckAfter = time.Duration(cfg.Workflow.PendingStuckSeconds) * time.Second
	}
	if cfg.Workflow.ProcessingStuckSeconds > 0 {
		opts.ProcessingStuckAfter = time.Duration(cfg.Workflow.ProcessingStuckSeconds) * time.Second
	}
	return opts
}

// Poller watches a task by sampling its status on a fixed interval. Transport
// errors back off exponentially; exhausting the retry budget surfaces the last
// transport error through OnError as a recoverable failure, so the session
// stays on its step for a manual retry.
type Poller struct {
	client *backend.Client
	opts   PollerOptions
	logger *slog.Logger
}

// NewPoller constructs a polling watcher.
func NewPoller(client *backend.Client, opts PollerOptions, logger *slog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		client: client,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "task-poller"),
	}
}

// Watch polls until the task reaches a terminal state. It returns nil after a
// terminal callback, ctx.Err() on cancellation, and the last transport error
// when the retry budget is exhausted.
func (p *Poller) Watch(ctx context.Context, taskID string, cb Callbacks) error {
	guard := &terminalGuard{}
	stuck := newStuckDetector(p.opts.PendingStuckAfter, p.opts.ProcessingStuckAfter)
	sampler := logging.NewProgressSampler(10)

	retries := 0
	for {
		status, err := p.client.GetAITaskStatus(ctx, taskID)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			retries++
			if retries > p.opts.MaxRetries {
				wrapped := services.Wrap(
					services.ErrTransient,
					"processing",
					"watch task",
					fmt.Sprintf("status polling failed after %d attempts", retries),
					err,
				)
				guard.fail(cb, wrapped)
				return wrapped
			}
			delay := backoffDelay(p.opts.Interval, retries)
			p.logger.Warn("task status poll failed, backing off",
				logging.String(logging.FieldTaskID, taskID),
				logging.Int("attempt", retries),
				logging.Duration("backoff", delay),
				logging.Error(err),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
			continue
		}
		retries = 0

		if status.Status.Terminal() {
			if status.Status == backend.TaskCompleted {
				p.logger.Info("task completed",
					logging.String(logging.FieldTaskID, taskID),
					logging.String("output_url", status.OutputURL),
				)
				guard.complete(cb, *status)
			} else {
				p.logger.Error("task failed",
					logging.String(logging.FieldTaskID, taskID),
					logging.String("state", string(status.Status)),
					logging.String("detail", status.ErrorMessage),
				)
				guard.fail(cb, terminalError(*status))
			}
			return nil
		}

		if cb.OnUpdate != nil {
			cb.OnUpdate(*status)
		}
		if sampler.ShouldLog(status.Progress, string(status.Status)) {
			p.logger.Info("task progress",
				logging.String(logging.FieldTaskID, taskID),
				logging.String("state", string(status.Status)),
				logging.Float64("percent", status.Progress),
			)
		}
		if msg, ok := stuck.observe(status.Status, time.Now()); ok {
			p.logger.Warn("task appears stuck",
				logging.String(logging.FieldTaskID, taskID),
				logging.Alert(msg),
			)
			if cb.OnAdvisory != nil {
				cb.OnAdvisory(msg)
			}
		}

		if err := sleepCtx(ctx, p.opts.Interval); err != nil {
			return err
		}
	}
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= backoffCeiling {
			return backoffCeiling
		}
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
