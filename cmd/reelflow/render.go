package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"reelflow/internal/api"
	"reelflow/internal/backend"
	"reelflow/internal/session"
)

func parseSessionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

func sessionTable(views []api.SessionView) string {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			strconv.FormatInt(view.ID, 10),
			titleOrPlaceholder(view.Title),
			view.Mode,
			view.Step,
			fmt.Sprintf("%.0f%%", view.Progress.Percent),
			statusLabel(view),
		})
	}
	return renderTable(
		[]string{"ID", "TITLE", "MODE", "STEP", "PROGRESS", "STATUS"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func statusLabel(view api.SessionView) string {
	switch {
	case view.NeedsReview:
		return "review: " + view.ReviewReason
	case view.Step == string(session.StepFailed):
		return "failed: " + view.ErrorMessage
	case view.Advisory != "":
		return "advisory: " + view.Advisory
	case view.Progress.Message != "":
		return view.Progress.Message
	default:
		return "ok"
	}
}

func titleOrPlaceholder(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func writeSessionDetail(w io.Writer, view api.SessionView) {
	fmt.Fprintf(w, "Session %d: %s\n", view.ID, titleOrPlaceholder(view.Title))
	fmt.Fprintf(w, "  Mode:     %s\n", view.Mode)
	fmt.Fprintf(w, "  Step:     %s\n", view.Step)
	fmt.Fprintf(w, "  Progress: %.0f%% %s\n", view.Progress.Percent, view.Progress.Message)
	if view.SessionID != "" {
		fmt.Fprintf(w, "  Backend:  session %s project %s\n", view.SessionID, view.ProjectID)
	}
	if view.TaskID != "" {
		fmt.Fprintf(w, "  Task:     %s\n", view.TaskID)
	}
	if view.NeedsReview {
		fmt.Fprintf(w, "  Review:   %s\n", view.ReviewReason)
	}
	if view.Advisory != "" {
		fmt.Fprintf(w, "  Advisory: %s\n", view.Advisory)
	}
	if view.ErrorMessage != "" {
		fmt.Fprintf(w, "  Error:    %s\n", view.ErrorMessage)
	}
	if hint := nextActionHint(view); hint != "" {
		fmt.Fprintf(w, "  Next:     %s\n", hint)
	}
}

// nextActionHint names the command that moves the session forward from its
// current step.
func nextActionHint(view api.SessionView) string {
	if view.NeedsReview {
		return fmt.Sprintf("reelflow retry %d", view.ID)
	}
	switch session.Step(view.Step) {
	case session.StepConfig:
		return fmt.Sprintf("reelflow analyze %d --fillers", view.ID)
	case session.StepDefiller:
		return fmt.Sprintf("reelflow fillers %d, then reelflow trim %d --remove <words>", view.ID, view.ID)
	case session.StepBrollConfig:
		return fmt.Sprintf("reelflow clips %d, then reelflow broll %d", view.ID, view.ID)
	default:
		return ""
	}
}

func fillerTable(result *backend.DetectionResult) string {
	rows := make([][]string, 0, len(result.FillerWords))
	for _, stat := range result.FillerWords {
		rows = append(rows, []string{
			stat.Word,
			strconv.Itoa(stat.Count),
			fmt.Sprintf("%.1fs", float64(stat.TotalDurationMs)/1000),
		})
	}
	return renderTable(
		[]string{"WORD", "COUNT", "DURATION"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)
}

func clipTable(clips []backend.ClipSuggestion) string {
	rows := make([][]string, 0, len(clips))
	for _, clip := range clips {
		selected := clip.SelectedAssetID
		if selected == "" {
			selected = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(clip.ClipNumber),
			clip.ClipID,
			fmt.Sprintf("%.1fs-%.1fs", clip.TimeRange.Start, clip.TimeRange.End),
			truncate(clip.Text, 48),
			strconv.Itoa(len(clip.SuggestedAssets)),
			selected,
		})
	}
	return renderTable(
		[]string{"#", "CLIP", "RANGE", "TEXT", "CANDIDATES", "SELECTED"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
