package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"reelflow/internal/backend"
)

// FakeBackend is an httptest server implementing the backend API surface the
// workflow exercises. Call counters and received payloads are recorded so
// tests can assert invariants like finalize-exactly-once.
type FakeBackend struct {
	Server *httptest.Server

	mu                 sync.Mutex
	sessionSeq         int
	FinalizeCalls      int
	DetectCalls        int
	TrimCalls          int
	SaveCalls          int
	ProcessCalls       int
	UploadedBytes      map[string]int64
	TrimRequests       []backend.TrimRequest
	SavedConfigs       []backend.WorkflowConfig
	DetectResult       backend.DetectionResult
	Clips              []backend.ClipSuggestion
	StepInfo           *backend.WorkflowStepInfo
	TaskStatuses       []backend.TaskStatus
	taskStatusIdx      int
	TaskStatusFailures int
	ProcessStatus      int
	ProcessTaskID      string
	UploadFailFor      map[string]bool
	FinalizeStatus     int
}

// NewFakeBackend starts the fake server and registers cleanup.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	fake := &FakeBackend{
		UploadedBytes: make(map[string]int64),
		UploadFailFor: make(map[string]bool),
		ProcessTaskID: "task-1",
	}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(fake.Server.Close)
	return fake
}

// URL returns the fake server's base URL.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

func (f *FakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/sessions" && r.Method == http.MethodPost:
		f.handleCreateSession(w, r)
	case strings.HasPrefix(path, "/uploads/") && r.Method == http.MethodPut:
		f.handleUpload(w, r, strings.TrimPrefix(path, "/uploads/"))
	case strings.HasSuffix(path, "/finalize"):
		f.FinalizeCalls++
		if f.FinalizeStatus != 0 {
			w.WriteHeader(f.FinalizeStatus)
			return
		}
		w.Write([]byte(`{}`))
	case strings.HasSuffix(path, "/detect-fillers"):
		f.DetectCalls++
		json.NewEncoder(w).Encode(f.DetectResult)
	case strings.HasSuffix(path, "/apply-trimming"):
		f.TrimCalls++
		var req backend.TrimRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.TrimRequests = append(f.TrimRequests, req)
		json.NewEncoder(w).Encode(backend.TrimResult{ProjectID: "proj-1"})
	case strings.HasSuffix(path, "/clip-suggestions"):
		json.NewEncoder(w).Encode(map[string]any{"clips": f.Clips})
	case strings.HasSuffix(path, "/workflow-config"):
		f.SaveCalls++
		var cfg backend.WorkflowConfig
		json.NewDecoder(r.Body).Decode(&cfg)
		f.SavedConfigs = append(f.SavedConfigs, cfg)
		w.Write([]byte(`{}`))
	case strings.HasSuffix(path, "/workflow-step"):
		if f.StepInfo == nil {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":{"error":"not_found"}}`))
			return
		}
		json.NewEncoder(w).Encode(f.StepInfo)
	case strings.HasSuffix(path, "/process"):
		f.ProcessCalls++
		if f.ProcessStatus != 0 {
			w.WriteHeader(f.ProcessStatus)
			w.Write([]byte(`{"detail":{"error":"insufficient_credits"}}`))
			return
		}
		json.NewEncoder(w).Encode(backend.ProcessingTask{TaskID: f.ProcessTaskID})
	case strings.HasPrefix(path, "/tasks/"):
		f.handleTaskStatus(w, strings.TrimPrefix(path, "/tasks/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *FakeBackend) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateSessionRequest
	json.NewDecoder(r.Body).Decode(&req)

	f.sessionSeq++
	session := backend.Session{
		SessionID: fmt.Sprintf("sess-%d", f.sessionSeq),
		ProjectID: fmt.Sprintf("proj-%d", f.sessionSeq),
	}
	for i, name := range req.FileNames {
		session.Assets = append(session.Assets, backend.Asset{
			AssetID:    fmt.Sprintf("asset-%d-%d", f.sessionSeq, i),
			OrderIndex: i,
			UploadURL:  f.Server.URL + "/uploads/" + fmt.Sprintf("asset-%d-%d", f.sessionSeq, i),
			FileName:   name,
		})
	}
	json.NewEncoder(w).Encode(session)
}

func (f *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request, assetID string) {
	if f.UploadFailFor[assetID] {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	n, _ := io.Copy(io.Discard, r.Body)
	f.UploadedBytes[assetID] = n
	w.WriteHeader(http.StatusOK)
}

func (f *FakeBackend) handleTaskStatus(w http.ResponseWriter, taskID string) {
	if f.TaskStatusFailures > 0 {
		f.TaskStatusFailures--
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":{"error":"upstream_unavailable"}}`))
		return
	}
	if len(f.TaskStatuses) == 0 {
		json.NewEncoder(w).Encode(backend.TaskStatus{TaskID: taskID, Status: backend.TaskCompleted, Progress: 100})
		return
	}
	idx := f.taskStatusIdx
	if idx >= len(f.TaskStatuses) {
		idx = len(f.TaskStatuses) - 1
	} else {
		f.taskStatusIdx++
	}
	status := f.TaskStatuses[idx]
	if status.TaskID == "" {
		status.TaskID = taskID
	}
	json.NewEncoder(w).Encode(status)
}
