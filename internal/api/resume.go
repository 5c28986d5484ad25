package api

import (
	"context"
	"fmt"

	"reelflow/internal/backend"
	"reelflow/internal/logging"
	"reelflow/internal/services"
	"reelflow/internal/session"
)

// ResumeResult carries the reconstructed session plus the step payload
// re-fetched from the backend for the step the wizard lands on.
type ResumeResult struct {
	Session   SessionView              `json:"session"`
	Detection *backend.DetectionResult `json:"detection,omitempty"`
	Clips     []backend.ClipSuggestion `json:"clips,omitempty"`
}

// Resume places a workflow at the step the backend recorded for the project.
// The local row is updated (or created when this machine has never seen the
// project), and the landing step's payload is re-fetched fresh: filler words
// at defiller, clip suggestions at broll_config. Locally cached payloads are
// never reused.
func (a *App) Resume(ctx context.Context, projectID string) (ResumeResult, error) {
	info, err := a.client.GetWorkflowStep(ctx, projectID)
	if err != nil {
		return ResumeResult{}, err
	}

	step, ok := session.ParseStep(info.WorkflowStep)
	if !ok {
		return ResumeResult{}, services.Wrap(services.ErrValidation, "", "resume workflow",
			fmt.Sprintf("backend recorded unknown step %q", info.WorkflowStep), nil)
	}
	mode, ok := session.ParseMode(info.EntryMode)
	if !ok {
		return ResumeResult{}, services.Wrap(services.ErrValidation, "", "resume workflow",
			fmt.Sprintf("backend recorded unknown entry mode %q", info.EntryMode), nil)
	}

	item, err := a.localItem(ctx, info, projectID)
	if err != nil {
		return ResumeResult{}, err
	}
	if item == nil {
		item, err = a.store.AdoptWorkflow(ctx, info.SessionID, projectID, "", mode, step)
		if err != nil {
			return ResumeResult{}, err
		}
		a.logger.Info("adopted backend workflow",
			logging.String(logging.FieldSessionID, info.SessionID),
			logging.String(logging.FieldProjectID, projectID),
			logging.String(logging.FieldStep, string(step)),
		)
	}

	item.SessionID = info.SessionID
	item.ProjectID = projectID
	item.Mode = mode
	item.Step = step
	item.ClearReview()
	item.Advisory = ""

	opts, err := item.Options()
	if err != nil {
		opts = backend.AnalysisOptions{}
	}
	opts.EnableBroll = info.EnableBroll
	if err := item.SetOptions(opts); err != nil {
		return ResumeResult{}, err
	}
	if err := a.store.Update(ctx, item); err != nil {
		return ResumeResult{}, err
	}

	result := ResumeResult{Session: FromItem(item)}
	switch step {
	case session.StepDefiller:
		detection, err := a.client.DetectFillers(ctx, info.SessionID, opts)
		if err != nil {
			return result, err
		}
		result.Detection = detection
	case session.StepBrollConfig:
		clips, err := a.client.GetClipSuggestions(ctx, info.SessionID)
		if err != nil {
			return result, err
		}
		result.Clips = clips
	}
	return result, nil
}

func (a *App) localItem(ctx context.Context, info *backend.WorkflowStepInfo, projectID string) (*session.Item, error) {
	if info.SessionID != "" {
		item, err := a.store.GetBySessionID(ctx, info.SessionID)
		if err != nil || item != nil {
			return item, err
		}
	}
	return a.store.GetByProjectID(ctx, projectID)
}
