package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelflow/internal/config"
	"reelflow/internal/services"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.APIToken = "token-123"
	return New(&cfg), server
}

func TestCreateSessionSendsBearerToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatal("expected request id header")
		}
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.FileNames) != 2 {
			t.Fatalf("expected 2 file names, got %d", len(req.FileNames))
		}
		json.NewEncoder(w).Encode(Session{
			SessionID: "sess-1",
			ProjectID: "proj-1",
			Assets: []Asset{
				{AssetID: "a-0", OrderIndex: 0, UploadURL: "https://upload/0"},
				{AssetID: "a-1", OrderIndex: 1, UploadURL: "https://upload/1"},
			},
		})
	}))

	session, err := client.CreateSession(context.Background(), CreateSessionRequest{
		SourceType: SourceFiles,
		TaskType:   "refine",
		FileNames:  []string{"a.mp4", "b.mp4"},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.SessionID != "sess-1" || len(session.Assets) != 2 {
		t.Fatalf("unexpected session: %#v", session)
	}
}

func TestCreateSessionRequiresFilesOrLink(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.CreateSession(context.Background(), CreateSessionRequest{SourceType: SourceFiles})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = client.CreateSession(context.Background(), CreateSessionRequest{SourceType: SourceLink})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartAIProcessingMapsInsufficientCredits(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"detail":{"error":"insufficient_credits"}}`))
	}))

	_, err := client.StartAIProcessing(context.Background(), "sess-1", ProcessingOptions{})
	if !errors.Is(err, services.ErrInsufficientCredits) {
		t.Fatalf("expected insufficient credits error, got %v", err)
	}
}

func TestDetectFillersDecodesResult(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/sess-1/detect-fillers" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(DetectionResult{
			FillerWords: []FillerWordStat{
				{Word: "um", Count: 3, TotalDurationMs: 900, Occurrences: []Occurrence{{Start: 1, End: 1.3, Text: "um"}}},
			},
		})
	}))

	result, err := client.DetectFillers(context.Background(), "sess-1", AnalysisOptions{DetectFillers: true})
	if err != nil {
		t.Fatalf("DetectFillers failed: %v", err)
	}
	if len(result.FillerWords) != 1 || result.FillerWords[0].Word != "um" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestDetectFillersWrapsServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":{"message":"asr backend unavailable"}}`))
	}))

	_, err := client.DetectFillers(context.Background(), "sess-1", AnalysisOptions{DetectFillers: true})
	if !errors.Is(err, services.ErrAnalysis) {
		t.Fatalf("expected analysis error, got %v", err)
	}
}

func TestRequestTimeoutIsMarked(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.GetAITaskStatus(ctx, "task-1")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if !services.IsRecoverable(err) {
		t.Fatal("expected timeout to stay recoverable")
	}
}

func TestGetWorkflowStepDecodesResumePoint(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/proj-1/workflow-step" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(WorkflowStepInfo{
			SessionID:    "sess-1",
			ProjectID:    "proj-1",
			WorkflowStep: "defiller",
			EntryMode:    "refine",
			EnableBroll:  true,
		})
	}))

	info, err := client.GetWorkflowStep(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("GetWorkflowStep failed: %v", err)
	}
	if info.WorkflowStep != "defiller" || !info.EnableBroll {
		t.Fatalf("unexpected info: %#v", info)
	}
}
