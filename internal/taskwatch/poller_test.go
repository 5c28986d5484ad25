package taskwatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reelflow/internal/backend"
	"reelflow/internal/services"
	"reelflow/internal/taskwatch"
	"reelflow/internal/testsupport"
)

type callbackRecorder struct {
	mu         sync.Mutex
	updates    []backend.TaskStatus
	completes  []backend.TaskStatus
	errs       []error
	advisories []string
}

func (r *callbackRecorder) callbacks() taskwatch.Callbacks {
	return taskwatch.Callbacks{
		OnUpdate: func(s backend.TaskStatus) {
			r.mu.Lock()
			r.updates = append(r.updates, s)
			r.mu.Unlock()
		},
		OnComplete: func(s backend.TaskStatus) {
			r.mu.Lock()
			r.completes = append(r.completes, s)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnAdvisory: func(msg string) {
			r.mu.Lock()
			r.advisories = append(r.advisories, msg)
			r.mu.Unlock()
		},
	}
}

func (r *callbackRecorder) terminalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.completes) + len(r.errs)
}

func fastOptions() taskwatch.PollerOptions {
	return taskwatch.PollerOptions{
		Interval:             time.Millisecond,
		MaxRetries:           3,
		PendingStuckAfter:    time.Hour,
		ProcessingStuckAfter: time.Hour,
	}
}

func TestPollerCompletesWithSingleTerminalCallback(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	fake.TaskStatuses = []backend.TaskStatus{
		{Status: backend.TaskPending, Progress: 0},
		{Status: backend.TaskProcessing, Progress: 40},
		{Status: backend.TaskProcessing, Progress: 80},
		{Status: backend.TaskCompleted, Progress: 100, OutputURL: "https://cdn.example/final.mp4"},
	}
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	rec := &callbackRecorder{}
	poller := taskwatch.NewPoller(client, fastOptions(), nil)
	if err := poller.Watch(context.Background(), "task-1", rec.callbacks()); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if got := rec.terminalCount(); got != 1 {
		t.Fatalf("expected exactly one terminal callback, got %d", got)
	}
	if len(rec.completes) != 1 {
		t.Fatalf("expected completion, got errs=%v", rec.errs)
	}
	if rec.completes[0].OutputURL != "https://cdn.example/final.mp4" {
		t.Fatalf("unexpected output url: %s", rec.completes[0].OutputURL)
	}
	if len(rec.updates) != 3 {
		t.Fatalf("expected 3 non-terminal updates, got %d", len(rec.updates))
	}
}

func TestPollerReportsTaskFailure(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	fake.TaskStatuses = []backend.TaskStatus{
		{Status: backend.TaskProcessing, Progress: 10},
		{Status: backend.TaskFailed, ErrorMessage: "render crashed"},
	}
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	rec := &callbackRecorder{}
	poller := taskwatch.NewPoller(client, fastOptions(), nil)
	if err := poller.Watch(context.Background(), "task-1", rec.callbacks()); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if len(rec.errs) != 1 || len(rec.completes) != 0 {
		t.Fatalf("expected one error callback, got completes=%d errs=%d", len(rec.completes), len(rec.errs))
	}
	if !errors.Is(rec.errs[0], services.ErrTaskFailure) {
		t.Fatalf("expected task failure marker, got %v", rec.errs[0])
	}
}

func TestPollerExhaustsRetriesOnTransportError(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)
	fake.Server.Close()

	rec := &callbackRecorder{}
	opts := fastOptions()
	opts.MaxRetries = 2
	poller := taskwatch.NewPoller(client, opts, nil)
	err := poller.Watch(context.Background(), "task-1", rec.callbacks())
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !services.IsRecoverable(err) {
		t.Fatal("expected retry exhaustion to stay recoverable")
	}
	if len(rec.errs) != 1 {
		t.Fatalf("expected one terminal error callback, got %d", len(rec.errs))
	}
	if len(rec.completes) != 0 {
		t.Fatal("expected no completion callback")
	}
}

func TestPollerRaisesStuckAdvisoryOnce(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	fake.TaskStatuses = []backend.TaskStatus{
		{Status: backend.TaskPending},
		{Status: backend.TaskPending},
		{Status: backend.TaskPending},
		{Status: backend.TaskPending},
		{Status: backend.TaskCompleted, Progress: 100},
	}
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	rec := &callbackRecorder{}
	opts := fastOptions()
	opts.Interval = 5 * time.Millisecond
	opts.PendingStuckAfter = time.Millisecond
	poller := taskwatch.NewPoller(client, opts, nil)
	if err := poller.Watch(context.Background(), "task-1", rec.callbacks()); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if len(rec.advisories) != 1 {
		t.Fatalf("expected exactly one stuck advisory, got %d: %v", len(rec.advisories), rec.advisories)
	}
	if len(rec.completes) != 1 {
		t.Fatal("advisory must not prevent completion")
	}
}

func TestPollerStopsOnCancellationWithoutTerminalCallback(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	fake.TaskStatuses = []backend.TaskStatus{
		{Status: backend.TaskProcessing, Progress: 10},
	}
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	rec := &callbackRecorder{}
	cb := rec.callbacks()
	inner := cb.OnUpdate
	cb.OnUpdate = func(s backend.TaskStatus) {
		inner(s)
		cancel()
	}

	poller := taskwatch.NewPoller(client, fastOptions(), nil)
	err := poller.Watch(ctx, "task-1", cb)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := rec.terminalCount(); got != 0 {
		t.Fatalf("expected no terminal callbacks after cancellation, got %d", got)
	}
}
