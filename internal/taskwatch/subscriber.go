package taskwatch

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/services"
)

// Subscriber watches a task by subscribing to its websocket event channel.
// The backend pushes TaskStatus frames; the callback contract matches the
// Poller's.
type Subscriber struct {
	wsURL  string
	token  string
	dialer *websocket.Dialer
	stuck  PollerOptions
	logger *slog.Logger
}

// NewSubscriber constructs a push watcher from application config.
func NewSubscriber(cfg *config.Config, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	var wsURL, token string
	if cfg != nil {
		wsURL = cfg.Backend.WebsocketURL
		token = cfg.Backend.APIToken
	}
	return &Subscriber{
		wsURL: strings.TrimRight(wsURL, "/"),
		token: token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		stuck:  PollerOptionsFromConfig(cfg),
		logger: logging.NewComponentLogger(logger, "task-subscriber"),
	}
}

func (s *Subscriber) eventURL(taskID string) string {
	return s.wsURL + "/tasks/" + url.PathEscape(taskID) + "/events"
}

// Watch subscribes to the task's event channel and dispatches pushed frames
// until a terminal frame arrives or the context is cancelled.
func (s *Subscriber) Watch(ctx context.Context, taskID string, cb Callbacks) error {
	guard := &terminalGuard{}

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.eventURL(taskID), header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wrapped := services.Wrap(services.ErrTransient, "processing", "subscribe task events", "websocket dial", err)
		guard.fail(cb, wrapped)
		return wrapped
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	// Unblock the read loop when the caller cancels.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "cancelled"),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
		case <-done:
		}
	}()

	s.logger.Debug("subscribed to task events", logging.String(logging.FieldTaskID, taskID))
	stuck := newStuckDetector(s.stuck.PendingStuckAfter, s.stuck.ProcessingStuckAfter)

	for {
		var status backend.TaskStatus
		if err := conn.ReadJSON(&status); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				wrapped := services.Wrap(services.ErrTransient, "processing", "subscribe task events", "channel closed before terminal status", nil)
				guard.fail(cb, wrapped)
				return wrapped
			}
			wrapped := services.Wrap(services.ErrTransient, "processing", "subscribe task events", "read frame", err)
			guard.fail(cb, wrapped)
			return wrapped
		}
		if status.TaskID == "" {
			status.TaskID = taskID
		}

		if status.Status.Terminal() {
			if status.Status == backend.TaskCompleted {
				guard.complete(cb, status)
			} else {
				guard.fail(cb, terminalError(status))
			}
			return nil
		}

		if cb.OnUpdate != nil {
			cb.OnUpdate(status)
		}
		if msg, ok := stuck.observe(status.Status, time.Now()); ok {
			s.logger.Warn("task appears stuck",
				logging.String(logging.FieldTaskID, taskID),
				logging.Alert(msg),
			)
			if cb.OnAdvisory != nil {
				cb.OnAdvisory(msg)
			}
		}
	}
}
