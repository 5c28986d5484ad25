package api

import (
	"reelflow/internal/session"
)

// FromItem converts a session record to its API representation.
func FromItem(item *session.Item) SessionView {
	if item == nil {
		return SessionView{}
	}

	view := SessionView{
		ID:        item.ID,
		SessionID: item.SessionID,
		ProjectID: item.ProjectID,
		Title:     item.Title,
		Mode:      string(item.Mode),
		Step:      string(item.Step),
		SourceURL: item.SourceURL,
		TaskID:    item.TaskID,
		Progress: SessionProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage:    item.ErrorMessage,
		Advisory:        item.Advisory,
		NeedsReview:     item.NeedsReview,
		ReviewReason:    item.ReviewReason,
		UploadFinalized: item.UploadFinalized,
	}
	if !item.CreatedAt.IsZero() {
		view.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		view.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

// FromItems converts a slice of session records, skipping nils.
func FromItems(items []*session.Item) []SessionView {
	views := make([]SessionView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, FromItem(item))
	}
	return views
}
