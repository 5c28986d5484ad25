package steps

import (
	"context"
	"fmt"
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

// Trim applies the user's filler-word selection at the defiller step. The
// selection is staged before the handler runs; the backend call is idempotent
// for a given selection so retries are safe.
type Trim struct {
	cfg    *config.Config
	client *backend.Client
	logger *slog.Logger

	mu          sync.Mutex
	staged      bool
	skip        bool
	removed     []string
	createClips bool
	result      *backend.TrimResult
}

// NewTrim constructs the defiller step handler.
func NewTrim(cfg *config.Config, client *backend.Client, logger *slog.Logger) *Trim {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Trim{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "step-trim"),
	}
}

// Stage records the filler occurrences to remove before Execute runs. An
// empty selection is valid and trims nothing.
func (t *Trim) Stage(removed []string, createClips bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = true
	t.skip = false
	t.removed = append([]string(nil), removed...)
	t.createClips = createClips
}

// StageSkip marks the step as skipped; Execute trims nothing and the
// workflow completes without visiting B-roll configuration.
func (t *Trim) StageSkip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = true
	t.skip = true
	t.removed = nil
	t.createClips = false
}

// Prepare validates the staged selection and upstream state.
func (t *Trim) Prepare(ctx context.Context, item *session.Item) error {
	if _, err := step.RequireSessionID(item); err != nil {
		return err
	}
	t.mu.Lock()
	staged := t.staged
	t.mu.Unlock()
	if !staged {
		return services.Wrap(services.ErrValidation, "defiller", "prepare", "no trim selection staged", nil)
	}
	item.InitProgress("Trimming", "Applying filler-word trims")
	return nil
}

// Execute applies the staged trim selection.
func (t *Trim) Execute(ctx context.Context, item *session.Item) error {
	t.mu.Lock()
	skip := t.skip
	removed := append([]string(nil), t.removed...)
	createClips := t.createClips
	t.mu.Unlock()

	if skip {
		item.SetProgressComplete("Trimmed", "Filler-word trimming skipped")
		return nil
	}

	result, err := t.client.ApplyTrimming(ctx, item.SessionID, backend.TrimRequest{
		RemovedFillers:          removed,
		CreateClipsFromSegments: createClips,
	})
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.result = result
	t.mu.Unlock()

	if result.ProjectID != "" {
		item.ProjectID = result.ProjectID
	}
	t.logger.Info("trim applied",
		logging.String(logging.FieldSessionID, item.SessionID),
		logging.Int("removed_fillers", len(removed)),
	)
	item.SetProgressComplete("Trimmed", fmt.Sprintf("Removed %d filler occurrence(s)", len(removed)))
	return nil
}

// HealthCheck verifies backend connection settings are present.
func (t *Trim) HealthCheck(ctx context.Context) step.Health {
	const name = "defiller"
	if t.cfg == nil || strings.TrimSpace(t.cfg.Backend.BaseURL) == "" {
		return step.Unhealthy(name, "backend base_url is not configured")
	}
	return step.Healthy(name)
}

// Done routes to B-roll configuration when enabled, otherwise completion.
// A skipped trim always completes directly.
func (t *Trim) Done(item *session.Item) []session.Step {
	t.mu.Lock()
	skip := t.skip
	t.mu.Unlock()
	if skip {
		return []session.Step{session.StepCompleted}
	}
	opts, err := item.Options()
	if err == nil && opts.EnableBroll {
		return []session.Step{session.StepBrollConfig}
	}
	return []session.Step{session.StepCompleted}
}
