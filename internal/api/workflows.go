package api

import (
	"context"
	"fmt"
	"strings"

	"reelflow/internal/backend"
	"reelflow/internal/logging"
	"reelflow/internal/services"
	"reelflow/internal/session"
)

// CreateWorkflowRequest starts a new wizard run.
type CreateWorkflowRequest struct {
	Title     string
	Mode      string
	Files     []string
	SourceURL string
}

// CreateWorkflow persists a new session, then runs the automatic steps until
// the workflow needs user input or finishes. The returned view reflects the
// session after the run; a step failure is returned alongside it so callers
// can render both.
func (a *App) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (SessionView, error) {
	mode, ok := session.ParseMode(req.Mode)
	if !ok {
		return SessionView{}, services.Wrap(services.ErrValidation, "entry", "create workflow",
			fmt.Sprintf("unknown entry mode %q", req.Mode), nil)
	}

	item, err := a.store.NewWorkflow(ctx, req.Title, mode, req.Files, req.SourceURL)
	if err != nil {
		return SessionView{}, services.Wrap(services.ErrValidation, "entry", "create workflow", err.Error(), nil)
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "New project"
	}
	if err := a.notifier.NotifyWorkflowStarted(ctx, title, string(mode)); err != nil {
		a.logger.Warn("workflow start notification failed", logging.Error(err))
	}

	if err := a.store.Transition(ctx, item, session.StepUpload); err != nil {
		return FromItem(item), err
	}

	err = a.manager.Advance(ctx, item)
	return FromItem(item), err
}

// StartAnalysis records the chosen analyses and moves a refine session from
// config into processing, running automatic steps from there.
func (a *App) StartAnalysis(ctx context.Context, id int64, opts backend.AnalysisOptions) (SessionView, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if item.Step != session.StepConfig {
		return FromItem(item), a.wrongStep(item, session.StepConfig, "start analysis")
	}

	if err := item.SetOptions(opts); err != nil {
		return FromItem(item), err
	}
	if err := a.store.Update(ctx, item); err != nil {
		return FromItem(item), err
	}
	if err := a.store.Transition(ctx, item, session.StepProcessing); err != nil {
		return FromItem(item), err
	}

	err = a.manager.Advance(ctx, item)
	return FromItem(item), err
}

// ApplyTrim submits the reviewed filler-word removals for a session sitting
// at the defiller step, then advances.
func (a *App) ApplyTrim(ctx context.Context, id int64, removed []string, createClips bool) (SessionView, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if item.Step != session.StepDefiller {
		return FromItem(item), a.wrongStep(item, session.StepDefiller, "apply trim")
	}

	a.manager.Steps().Trim.Stage(removed, createClips)
	err = a.manager.RunInteractive(ctx, item)
	return FromItem(item), err
}

// SkipTrim completes a session sitting at the defiller step without trimming
// anything. The workflow finishes directly even when B-roll was enabled.
func (a *App) SkipTrim(ctx context.Context, id int64) (SessionView, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if item.Step != session.StepDefiller {
		return FromItem(item), a.wrongStep(item, session.StepDefiller, "skip trim")
	}

	a.manager.Steps().Trim.StageSkip()
	err = a.manager.RunInteractive(ctx, item)
	return FromItem(item), err
}

// ConfirmBroll saves the chosen B-roll selections for a session sitting at
// the broll_config step, completing the workflow.
func (a *App) ConfirmBroll(ctx context.Context, id int64, cfg backend.WorkflowConfig) (SessionView, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if item.Step != session.StepBrollConfig {
		return FromItem(item), a.wrongStep(item, session.StepBrollConfig, "confirm broll")
	}

	a.manager.Steps().Broll.Stage(cfg)
	err = a.manager.RunInteractive(ctx, item)
	return FromItem(item), err
}

// SkipBroll completes the workflow without saving a B-roll configuration.
func (a *App) SkipBroll(ctx context.Context, id int64) (SessionView, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if item.Step != session.StepBrollConfig {
		return FromItem(item), a.wrongStep(item, session.StepBrollConfig, "skip broll")
	}

	a.manager.Steps().Broll.StageSkip()
	err = a.manager.RunInteractive(ctx, item)
	return FromItem(item), err
}

// RetryReview clears a session's review flag and re-runs automatic steps.
// Interactive steps keep their flag behavior but need fresh staged input, so
// only the flag is cleared for those.
func (a *App) RetryReview(ctx context.Context, id int64) (SessionView, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if !item.NeedsReview {
		return FromItem(item), services.Wrap(services.ErrValidation, string(item.Step), "retry review",
			"session is not flagged for review", nil)
	}

	if _, err := a.store.RetryReview(ctx, id); err != nil {
		return FromItem(item), err
	}
	item, err = a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}

	err = a.manager.Advance(ctx, item)
	return FromItem(item), err
}

// Back rolls a session back one step. The second return is false when the
// current step has no back edge (processing and terminal steps).
func (a *App) Back(ctx context.Context, id int64) (SessionView, bool, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, false, err
	}
	moved, err := a.store.Back(ctx, item)
	return FromItem(item), moved, err
}

func (a *App) fetch(ctx context.Context, id int64) (*session.Item, error) {
	item, err := a.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "load session",
			fmt.Sprintf("session %d not found", id), nil)
	}
	return item, nil
}

func (a *App) wrongStep(item *session.Item, want session.Step, op string) error {
	return services.Wrap(services.ErrValidation, string(item.Step), op,
		fmt.Sprintf("session %d is at step %s, expected %s", item.ID, item.Step, want), nil)
}
