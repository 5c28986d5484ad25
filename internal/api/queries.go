package api

import (
	"context"

	"reelflow/internal/backend"
	"reelflow/internal/services"
	"reelflow/internal/session"
)

// Sessions lists sessions, optionally filtered to the given steps.
func (a *App) Sessions(ctx context.Context, steps ...session.Step) ([]SessionView, error) {
	var (
		items []*session.Item
		err   error
	)
	if len(steps) == 0 {
		items, err = a.store.List(ctx)
	} else {
		items, err = a.store.ItemsBySteps(ctx, steps...)
	}
	if err != nil {
		return nil, err
	}
	return FromItems(items), nil
}

// Show fetches a single session.
func (a *App) Show(ctx context.Context, id int64) (SessionView, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return FromItem(item), nil
}

// FillerWords re-fetches detection results from the backend for display at
// the defiller step. Results are never cached locally.
func (a *App) FillerWords(ctx context.Context, id int64) (*backend.DetectionResult, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.SessionID == "" {
		return nil, services.Wrap(services.ErrValidation, string(item.Step), "list filler words",
			"session has no backend session id", nil)
	}
	opts, err := item.Options()
	if err != nil {
		return nil, err
	}
	return a.client.DetectFillers(ctx, item.SessionID, opts)
}

// ClipSuggestions re-fetches clip suggestions from the backend for display
// at the broll_config step.
func (a *App) ClipSuggestions(ctx context.Context, id int64) ([]backend.ClipSuggestion, error) {
	item, err := a.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.SessionID == "" {
		return nil, services.Wrap(services.ErrValidation, string(item.Step), "list clip suggestions",
			"session has no backend session id", nil)
	}
	return a.client.GetClipSuggestions(ctx, item.SessionID)
}

// Health combines store diagnostics, session counts, and step handler
// readiness into one report.
func (a *App) Health(ctx context.Context) (HealthReport, error) {
	report := HealthReport{StorePath: a.store.Path()}

	dbHealth, err := a.store.CheckHealth(ctx)
	report.SchemaVersion = dbHealth.SchemaVersion
	report.IntegrityOK = dbHealth.IntegrityCheck
	if err != nil {
		return report, err
	}

	summary, err := a.store.Health(ctx)
	if err != nil {
		return report, err
	}
	report.Sessions = SessionCounts{
		Total:      summary.Total,
		Active:     summary.Active,
		Processing: summary.Processing,
		Review:     summary.Review,
		Failed:     summary.Failed,
		Completed:  summary.Completed,
	}

	for _, health := range a.manager.Health(ctx) {
		report.Steps = append(report.Steps, StepHealthView{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	return report, nil
}
