package api

import (
	"context"
	"fmt"
	"log/slog"

	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/notifications"
	"reelflow/internal/session"
	"reelflow/internal/workflow"
)

// App bundles the pieces every workflow operation needs. Construct one per
// CLI invocation with Open, or assemble the parts directly in tests.
type App struct {
	cfg      *config.Config
	store    *session.Store
	client   *backend.Client
	notifier notifications.Service
	manager  *workflow.Manager
	logger   *slog.Logger

	ownsStore bool
}

// New assembles an App around pre-built components.
func New(cfg *config.Config, store *session.Store, client *backend.Client, manager *workflow.Manager, notifier notifications.Service, logger *slog.Logger) *App {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &App{
		cfg:      cfg,
		store:    store,
		client:   client,
		notifier: notifier,
		manager:  manager,
		logger:   logging.NewComponentLogger(logger, "api"),
	}
}

// Open wires an App from config: session store, backend client, ntfy
// notifier, and workflow manager. The caller must Close it.
func Open(cfg *config.Config, logger *slog.Logger, opts ...workflow.ManagerOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	store, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	client := backend.New(cfg)
	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, client, logger, notifier, opts...)

	app := New(cfg, store, client, manager, notifier, logger)
	app.ownsStore = true
	return app, nil
}

// Close releases resources owned by the App.
func (a *App) Close() error {
	if a == nil || !a.ownsStore || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// TestNotification sends a test message through the configured notifier.
func (a *App) TestNotification(ctx context.Context) error {
	return a.notifier.TestNotification(ctx)
}

// Manager exposes the workflow manager for callers that drive steps directly.
func (a *App) Manager() *workflow.Manager {
	return a.manager
}

// Store exposes the session store for maintenance commands.
func (a *App) Store() *session.Store {
	return a.store
}
