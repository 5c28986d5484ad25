package session

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, session_id, project_id, title, mode, step, source_url, source_files_json, assets_json, options_json, task_id, upload_finalized, error_message, advisory, needs_review, review_reason, progress_stage, progress_percent, progress_message, last_heartbeat, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		sessionID        sql.NullString
		projectID        sql.NullString
		title            sql.NullString
		modeStr          string
		stepStr          string
		sourceURL        sql.NullString
		sourceFiles      sql.NullString
		assets           sql.NullString
		options          sql.NullString
		taskID           sql.NullString
		uploadFinalized  sql.NullInt64
		errorMessage     sql.NullString
		advisory         sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&projectID,
		&title,
		&modeStr,
		&stepStr,
		&sourceURL,
		&sourceFiles,
		&assets,
		&options,
		&taskID,
		&uploadFinalized,
		&errorMessage,
		&advisory,
		&needsReview,
		&reviewReason,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		SessionID:       sessionID.String,
		ProjectID:       projectID.String,
		Title:           title.String,
		Mode:            Mode(modeStr),
		Step:            Step(stepStr),
		SourceURL:       sourceURL.String,
		SourceFilesJSON: sourceFiles.String,
		AssetsJSON:      assets.String,
		OptionsJSON:     options.String,
		TaskID:          taskID.String,
		ErrorMessage:    errorMessage.String,
		Advisory:        advisory.String,
		ReviewReason:    reviewReason.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if uploadFinalized.Valid {
		item.UploadFinalized = uploadFinalized.Int64 != 0
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
