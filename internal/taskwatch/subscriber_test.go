package taskwatch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"reelflow/internal/backend"
	"reelflow/internal/services"
	"reelflow/internal/taskwatch"
	"reelflow/internal/testsupport"
)

func timeoutDeadline() time.Time {
	return time.Now().Add(time.Second)
}

func startEventServer(t *testing.T, handler func(conn *websocket.Conn, taskID string)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/tasks/") || !strings.HasSuffix(r.URL.Path, "/events") {
			http.NotFound(w, r)
			return
		}
		taskID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/events")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, taskID)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func subscriberFor(t *testing.T, wsURL string) *taskwatch.Subscriber {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Backend.WebsocketURL = wsURL
	return taskwatch.NewSubscriber(cfg, nil)
}

func TestSubscriberDeliversUpdatesThenCompletion(t *testing.T) {
	wsURL := startEventServer(t, func(conn *websocket.Conn, taskID string) {
		frames := []backend.TaskStatus{
			{TaskID: taskID, Status: backend.TaskPending},
			{TaskID: taskID, Status: backend.TaskProcessing, Progress: 55},
			{TaskID: taskID, Status: backend.TaskCompleted, Progress: 100, OutputURL: "https://cdn.example/out.mp4"},
		}
		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	})

	rec := &callbackRecorder{}
	sub := subscriberFor(t, wsURL)
	if err := sub.Watch(context.Background(), "task-ws", rec.callbacks()); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if len(rec.updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(rec.updates))
	}
	if len(rec.completes) != 1 || len(rec.errs) != 0 {
		t.Fatalf("expected single completion, got completes=%d errs=%d", len(rec.completes), len(rec.errs))
	}
	if rec.completes[0].OutputURL != "https://cdn.example/out.mp4" {
		t.Fatalf("unexpected output url: %s", rec.completes[0].OutputURL)
	}
}

func TestSubscriberReportsFailureFrame(t *testing.T) {
	wsURL := startEventServer(t, func(conn *websocket.Conn, taskID string) {
		_ = conn.WriteJSON(backend.TaskStatus{TaskID: taskID, Status: backend.TaskFailed, ErrorMessage: "gpu pool exhausted"})
	})

	rec := &callbackRecorder{}
	sub := subscriberFor(t, wsURL)
	if err := sub.Watch(context.Background(), "task-ws", rec.callbacks()); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if len(rec.errs) != 1 || len(rec.completes) != 0 {
		t.Fatalf("expected single error callback, got completes=%d errs=%d", len(rec.completes), len(rec.errs))
	}
	if !errors.Is(rec.errs[0], services.ErrTaskFailure) {
		t.Fatalf("expected task failure marker, got %v", rec.errs[0])
	}
	if !strings.Contains(rec.errs[0].Error(), "gpu pool exhausted") {
		t.Fatalf("expected backend detail in error, got %v", rec.errs[0])
	}
}

func TestSubscriberTreatsEarlyCloseAsRetryable(t *testing.T) {
	wsURL := startEventServer(t, func(conn *websocket.Conn, taskID string) {
		_ = conn.WriteJSON(backend.TaskStatus{TaskID: taskID, Status: backend.TaskProcessing, Progress: 20})
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			timeoutDeadline(),
		)
	})

	rec := &callbackRecorder{}
	sub := subscriberFor(t, wsURL)
	err := sub.Watch(context.Background(), "task-ws", rec.callbacks())
	if err == nil {
		t.Fatal("expected error when channel closes before terminal status")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if got := rec.terminalCount(); got != 1 {
		t.Fatalf("expected one terminal callback, got %d", got)
	}
}

func TestSubscriberStopsOnCancellation(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	wsURL := startEventServer(t, func(conn *websocket.Conn, taskID string) {
		_ = conn.WriteJSON(backend.TaskStatus{TaskID: taskID, Status: backend.TaskProcessing, Progress: 10})
		<-release
	})

	ctx, cancel := context.WithCancel(context.Background())
	rec := &callbackRecorder{}
	cb := rec.callbacks()
	inner := cb.OnUpdate
	cb.OnUpdate = func(s backend.TaskStatus) {
		inner(s)
		cancel()
	}

	sub := subscriberFor(t, wsURL)
	err := sub.Watch(ctx, "task-ws", cb)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := rec.terminalCount(); got != 0 {
		t.Fatalf("expected no terminal callbacks after cancellation, got %d", got)
	}
}

func TestSubscriberDialFailureIsTerminal(t *testing.T) {
	rec := &callbackRecorder{}
	sub := subscriberFor(t, "ws://127.0.0.1:1/unreachable")
	err := sub.Watch(context.Background(), "task-ws", rec.callbacks())
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("expected one terminal error callback, got %d", len(rec.errs))
	}
}
