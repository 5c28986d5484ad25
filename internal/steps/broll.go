package steps

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/services"
	"reelflow/internal/session"
	"reelflow/internal/step"
)

// Broll persists the B-roll and pip selections at the broll_config step, or
// skips straight to completion when the user declines.
type Broll struct {
	cfg    *config.Config
	client *backend.Client
	logger *slog.Logger

	mu       sync.Mutex
	staged   bool
	skip     bool
	workflow backend.WorkflowConfig
}

// NewBroll constructs the broll_config step handler.
func NewBroll(cfg *config.Config, client *backend.Client, logger *slog.Logger) *Broll {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broll{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "step-broll"),
	}
}

// Stage records the workflow configuration to save before Execute runs.
func (b *Broll) Stage(cfg backend.WorkflowConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.staged = true
	b.skip = false
	b.workflow = cfg
}

// StageSkip marks the step as skipped; Execute saves nothing.
func (b *Broll) StageSkip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.staged = true
	b.skip = true
}

// Prepare validates the staged configuration and upstream state.
func (b *Broll) Prepare(ctx context.Context, item *session.Item) error {
	if _, err := step.RequireSessionID(item); err != nil {
		return err
	}
	b.mu.Lock()
	staged := b.staged
	b.mu.Unlock()
	if !staged {
		return services.Wrap(services.ErrValidation, "broll_config", "prepare", "no B-roll selection staged", nil)
	}
	item.InitProgress("Configuring", "Saving B-roll configuration")
	return nil
}

// Execute saves the staged workflow configuration unless skipped.
func (b *Broll) Execute(ctx context.Context, item *session.Item) error {
	b.mu.Lock()
	skip := b.skip
	workflow := b.workflow
	b.mu.Unlock()

	if skip {
		item.SetProgressComplete("Configured", "B-roll configuration skipped")
		return nil
	}

	if err := b.client.SaveWorkflowConfig(ctx, item.SessionID, workflow); err != nil {
		return err
	}
	b.logger.Info("workflow configuration saved",
		logging.String(logging.FieldSessionID, item.SessionID),
		logging.Int("broll_selections", len(workflow.BrollSelections)),
		logging.Bool("pip_enabled", workflow.PipEnabled),
	)
	item.SetProgressComplete("Configured", "B-roll configuration saved")
	return nil
}

// HealthCheck verifies backend connection settings are present.
func (b *Broll) HealthCheck(ctx context.Context) step.Health {
	const name = "broll_config"
	if b.cfg == nil || strings.TrimSpace(b.cfg.Backend.BaseURL) == "" {
		return step.Unhealthy(name, "backend base_url is not configured")
	}
	return step.Healthy(name)
}

// Done always routes to completion.
func (b *Broll) Done(item *session.Item) []session.Step {
	return []session.Step{session.StepCompleted}
}
