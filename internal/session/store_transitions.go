package session

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight session.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE workflow_sessions SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns sessions stuck in a processing step to the
// start of that step when heartbeats expire. Uploading sessions return to
// entry; processing sessions return to the step that launched them, which
// differs by entry mode.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE workflow_sessions
        SET step = CASE
            WHEN step = ? THEN ?
            WHEN step = ? AND mode = ? THEN ?
            WHEN step = ? AND mode = ? THEN ?
            ELSE step
        END,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE step IN (?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		string(StepUpload), string(StepEntry),
		string(StepProcessing), string(ModeRefine), string(StepConfig),
		string(StepProcessing), string(ModeAITalk), string(StepUpload),
		now.Format(time.RFC3339Nano),
		string(StepUpload),
		string(StepProcessing),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale sessions: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing resets every session in a processing step back to the
// start of that step, regardless of heartbeat. Used on startup after an
// unclean shutdown.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE workflow_sessions
        SET step = CASE
            WHEN step = ? THEN ?
            WHEN step = ? AND mode = ? THEN ?
            WHEN step = ? AND mode = ? THEN ?
            ELSE step
        END,
            progress_stage = 'Reset from stuck processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE step IN (?, ?)`,
		string(StepUpload), string(StepEntry),
		string(StepProcessing), string(ModeRefine), string(StepConfig),
		string(StepProcessing), string(ModeAITalk), string(StepUpload),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(StepUpload),
		string(StepProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck sessions: %w", err)
	}
	return res.RowsAffected()
}

// RetryReview clears review flags so flagged sessions become actionable again.
func (s *Store) RetryReview(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE workflow_sessions
            SET needs_review = 0, review_reason = NULL, error_message = NULL, updated_at = ?
            WHERE needs_review = 1`,
			timestamp,
		)
		if err != nil {
			return 0, fmt.Errorf("retry flagged sessions: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE workflow_sessions
        SET needs_review = 0, review_reason = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (`+placeholders+`) AND needs_review = 1`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected sessions: %w", err)
	}
	return res.RowsAffected()
}
