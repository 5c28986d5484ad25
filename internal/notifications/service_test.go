package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"reelflow/internal/config"
	"reelflow/internal/notifications"
)

type captured struct {
	Title    string
	Tags     string
	Priority string
	Body     string
}

func startCapture(t *testing.T) (*config.Config, func() []captured) {
	t.Helper()

	var mu sync.Mutex
	var records []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		records = append(records, captured{
			Title:    r.Header.Get("Title"),
			Tags:     r.Header.Get("Tags"),
			Priority: r.Header.Get("Priority"),
			Body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	return &cfg, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		out := make([]captured, len(records))
		copy(out, records)
		return out
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyWorkflowCompleted(context.Background(), "Example", ""); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestWorkflowCompletedIncludesOutputURL(t *testing.T) {
	cfg, records := startCapture(t)
	svc := notifications.NewService(cfg)

	if err := svc.NotifyWorkflowCompleted(context.Background(), "My Talk", "https://cdn.example/final.mp4"); err != nil {
		t.Fatalf("NotifyWorkflowCompleted failed: %v", err)
	}

	got := records()
	if len(got) != 1 {
		t.Fatalf("expected one notification, got %d", len(got))
	}
	if got[0].Title != "Reelflow - Complete" {
		t.Fatalf("unexpected title: %q", got[0].Title)
	}
	if got[0].Priority != "high" {
		t.Fatalf("expected high priority, got %q", got[0].Priority)
	}
	if want := "Ready to review: My Talk\nOutput: https://cdn.example/final.mp4"; got[0].Body != want {
		t.Fatalf("unexpected body: %q", got[0].Body)
	}
}

func TestInsufficientCreditsCarriesPricingLink(t *testing.T) {
	cfg, records := startCapture(t)
	svc := notifications.NewService(cfg)

	if err := svc.NotifyInsufficientCredits(context.Background(), "My Talk", "https://reelflow.example/pricing"); err != nil {
		t.Fatalf("NotifyInsufficientCredits failed: %v", err)
	}

	got := records()
	if len(got) != 1 {
		t.Fatalf("expected one notification, got %d", len(got))
	}
	if got[0].Tags != "reelflow,credits,alert" {
		t.Fatalf("unexpected tags: %q", got[0].Tags)
	}
	if want := "Not enough credits to process My Talk\nUpgrade: https://reelflow.example/pricing"; got[0].Body != want {
		t.Fatalf("unexpected body: %q", got[0].Body)
	}
}

func TestTogglesSuppressCategories(t *testing.T) {
	cfg, records := startCapture(t)
	cfg.Notifications.Advisories = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyTaskStuck(context.Background(), "My Talk", "pending for 45s"); err != nil {
		t.Fatalf("NotifyTaskStuck failed: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "upload"); err != nil {
		t.Fatalf("NotifyError failed: %v", err)
	}

	if got := records(); len(got) != 0 {
		t.Fatalf("expected suppressed notifications, got %d", len(got))
	}
}

func TestSendReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
