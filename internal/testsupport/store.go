package testsupport

import (
	"context"
	"testing"

	"reelflow/internal/config"
	"reelflow/internal/session"
)

// MustOpenStore opens a session.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewWorkflow creates a session item for tests using the provided store.
func NewWorkflow(t testing.TB, store *session.Store, title string, mode session.Mode, files ...string) *session.Item {
	t.Helper()

	if len(files) == 0 {
		files = []string{"a.mp4"}
	}
	item, err := store.NewWorkflow(context.Background(), title, mode, files, "")
	if err != nil {
		t.Fatalf("store.NewWorkflow: %v", err)
	}
	return item
}
