package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/notifications"
	"reelflow/internal/session"
	"reelflow/internal/step"
	"reelflow/internal/steps"
	"reelflow/internal/taskwatch"
)

// StepSet bundles the concrete workflow handlers the manager orchestrates.
type StepSet struct {
	Upload  *steps.Upload
	Process *steps.Process
	Trim    *steps.Trim
	Broll   *steps.Broll
}

// registeredStep pairs a handler with the transition path it yields on
// success.
type registeredStep struct {
	name    string
	handler step.Handler
	done    func(*session.Item) []session.Step
}

// Manager coordinates session processing using registered step handlers.
type Manager struct {
	cfg      *config.Config
	store    *session.Store
	client   *backend.Client
	logger   *slog.Logger
	notifier notifications.Service

	heartbeat *HeartbeatMonitor
	steps     StepSet

	auto        map[session.Step]registeredStep
	interactive map[session.Step]registeredStep

	mu       sync.RWMutex
	lastErr  error
	lastItem *session.Item
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	watcher taskwatch.Watcher
}

// WithWatcher overrides the task watcher used by the processing step (push
// subscription instead of polling, or a stub in tests).
func WithWatcher(watcher taskwatch.Watcher) ManagerOption {
	return func(o *managerOptions) {
		o.watcher = watcher
	}
}

// NewManager constructs a workflow manager with the default ntfy notifier.
func NewManager(cfg *config.Config, store *session.Store, client *backend.Client, logger *slog.Logger, opts ...ManagerOption) *Manager {
	return NewManagerWithNotifier(cfg, store, client, logger, notifications.NewService(cfg), opts...)
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *session.Store, client *backend.Client, logger *slog.Logger, notifier notifications.Service, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	set := StepSet{
		Upload:  steps.NewUpload(cfg, store, client, notifier, logger),
		Process: steps.NewProcess(cfg, store, client, options.watcher, notifier, logger),
		Trim:    steps.NewTrim(cfg, client, logger),
		Broll:   steps.NewBroll(cfg, client, logger),
	}

	m := &Manager{
		cfg:      cfg,
		store:    store,
		client:   client,
		logger:   logger,
		notifier: notifier,
		steps:    set,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
	m.auto = map[session.Step]registeredStep{
		session.StepUpload:     {name: "upload", handler: set.Upload, done: set.Upload.Done},
		session.StepProcessing: {name: "processing", handler: set.Process, done: set.Process.Done},
	}
	m.interactive = map[session.Step]registeredStep{
		session.StepDefiller:    {name: "defiller", handler: set.Trim, done: set.Trim.Done},
		session.StepBrollConfig: {name: "broll_config", handler: set.Broll, done: set.Broll.Done},
	}
	return m
}

// Steps exposes the concrete handlers so callers can stage interactive input.
func (m *Manager) Steps() StepSet {
	return m.steps
}

// Startup reclaims sessions whose heartbeats expired while a previous run was
// processing. Call once before advancing work.
func (m *Manager) Startup(ctx context.Context) error {
	return m.heartbeat.ReclaimStale(ctx)
}

// Health reports readiness of every registered step handler.
func (m *Manager) Health(ctx context.Context) []step.Health {
	handlers := []step.Handler{m.steps.Upload, m.steps.Process, m.steps.Trim, m.steps.Broll}
	out := make([]step.Health, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			continue
		}
		out = append(out, h.HealthCheck(ctx))
	}
	return out
}

// LastError returns the most recent step failure, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *session.Item) {
	m.mu.Lock()
	copied := *item
	m.lastItem = &copied
	m.mu.Unlock()
}
