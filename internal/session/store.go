package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelflow/internal/config"
)

// Store manages workflow session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the session database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewWorkflow inserts a session at the entry step with its mode recorded.
func (s *Store) NewWorkflow(ctx context.Context, title string, mode Mode, files []string, sourceURL string) (*Item, error) {
	if _, ok := ParseMode(string(mode)); !ok {
		return nil, fmt.Errorf("unknown entry mode %q", mode)
	}
	if len(files) == 0 && strings.TrimSpace(sourceURL) == "" {
		return nil, errors.New("at least one file or a source link is required")
	}

	item := &Item{
		Title:     strings.TrimSpace(title),
		Mode:      mode,
		Step:      StepEntry,
		SourceURL: strings.TrimSpace(sourceURL),
	}
	if err := item.SetSourceFiles(files); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO workflow_sessions (
            title, mode, step, source_url, source_files_json,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(item.Title),
		string(item.Mode),
		string(item.Step),
		nullableString(item.SourceURL),
		nullableString(item.SourceFilesJSON),
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workflow session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// AdoptWorkflow inserts a session row for a workflow that lives on the
// backend but has no local record, placing it directly on the recorded step.
// Used by resume; payloads stay empty and are re-fetched from the backend.
func (s *Store) AdoptWorkflow(ctx context.Context, sessionID, projectID, title string, mode Mode, step Step) (*Item, error) {
	if _, ok := ParseMode(string(mode)); !ok {
		return nil, fmt.Errorf("unknown entry mode %q", mode)
	}
	if _, ok := ParseStep(string(step)); !ok {
		return nil, fmt.Errorf("unknown step %q", step)
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO workflow_sessions (
            session_id, project_id, title, mode, step,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(sessionID),
		nullableString(strings.TrimSpace(projectID)),
		nullableString(strings.TrimSpace(title)),
		string(mode),
		string(step),
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("adopt workflow session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a session by local identifier. A nil item means not found.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM workflow_sessions WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return item, nil
}

// GetBySessionID fetches a session by its backend session identifier.
func (s *Store) GetBySessionID(ctx context.Context, sessionID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM workflow_sessions WHERE session_id = ? ORDER BY id LIMIT 1`,
		sessionID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by session id: %w", err)
	}
	return item, nil
}

// GetByProjectID fetches the most recent session for a backend project.
func (s *Store) GetByProjectID(ctx context.Context, projectID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM workflow_sessions WHERE project_id = ? ORDER BY id DESC LIMIT 1`,
		projectID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by project id: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing session.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE workflow_sessions
         SET session_id = ?, project_id = ?, title = ?, mode = ?, step = ?,
             source_url = ?, source_files_json = ?, assets_json = ?, options_json = ?,
             task_id = ?, upload_finalized = ?, error_message = ?, advisory = ?,
             needs_review = ?, review_reason = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.SessionID),
		nullableString(item.ProjectID),
		nullableString(item.Title),
		string(item.Mode),
		string(item.Step),
		nullableString(item.SourceURL),
		nullableString(item.SourceFilesJSON),
		nullableString(item.AssetsJSON),
		nullableString(item.OptionsJSON),
		nullableString(item.TaskID),
		boolToInt(item.UploadFinalized),
		nullableString(item.ErrorMessage),
		nullableString(item.Advisory),
		boolToInt(item.NeedsReview),
		nullableString(item.ReviewReason),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableTime(item.LastHeartbeat),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// List returns all sessions ordered by creation.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM workflow_sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemsBySteps returns sessions currently at any of the given steps.
func (s *Store) ItemsBySteps(ctx context.Context, steps ...Step) ([]*Item, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(steps))
	args := make([]any, 0, len(steps))
	for _, step := range steps {
		args = append(args, string(step))
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM workflow_sessions WHERE step IN (`+placeholders+`) ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sessions by step: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// NextForSteps returns the oldest session at any of the given steps that is
// not flagged for review, or nil when none is actionable.
func (s *Store) NextForSteps(ctx context.Context, steps ...Step) (*Item, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(steps))
	args := make([]any, 0, len(steps))
	for _, step := range steps {
		args = append(args, string(step))
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM workflow_sessions
         WHERE step IN (`+placeholders+`) AND needs_review = 0
         ORDER BY id LIMIT 1`,
		args...,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next session: %w", err)
	}
	return item, nil
}

// Delete removes a session row.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM workflow_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Transition advances a session to the next step after validating the edge
// against the mode's transition table.
func (s *Store) Transition(ctx context.Context, item *Item, to Step) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if !ValidTransition(item.Mode, item.Step, to) {
		return fmt.Errorf("invalid transition %s -> %s for mode %s", item.Step, to, item.Mode)
	}
	item.Step = to
	return s.Update(ctx, item)
}

// Back rolls a session one step back per the mode's back table. Back from
// processing is a no-op while a request may be in flight; every other step
// with a back edge rolls back, and the returned bool reports whether a
// rollback happened.
func (s *Store) Back(ctx context.Context, item *Item) (bool, error) {
	if item == nil {
		return false, errors.New("item is nil")
	}
	if item.Step == StepProcessing {
		return false, nil
	}
	target, ok := BackTarget(item.Mode, item.Step)
	if !ok {
		return false, nil
	}
	item.Step = target
	item.ClearReview()
	item.SetProgress("", "", 0)
	if err := s.Update(ctx, item); err != nil {
		return false, err
	}
	return true, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
