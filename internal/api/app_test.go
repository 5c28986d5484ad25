package api_test

import (
	"context"
	"errors"
	"testing"

	"reelflow/internal/api"
	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/services"
	"reelflow/internal/session"
	"reelflow/internal/testsupport"
	"reelflow/internal/workflow"
)

type appFixture struct {
	cfg      *config.Config
	store    *session.Store
	fake     *testsupport.FakeBackend
	notifier *testsupport.RecorderNotifier
	app      *api.App
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()

	fake := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	cfg.Workflow.TaskPollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	client := backend.New(cfg)
	notifier := &testsupport.RecorderNotifier{}
	manager := workflow.NewManagerWithNotifier(cfg, store, client, nil, notifier)
	return &appFixture{
		cfg:      cfg,
		store:    store,
		fake:     fake,
		notifier: notifier,
		app:      api.New(cfg, store, client, manager, notifier, nil),
	}
}

// createRefine runs a refine workflow up to the config step.
func (f *appFixture) createRefine(t *testing.T, files []string) api.SessionView {
	t.Helper()

	view, err := f.app.CreateWorkflow(context.Background(), api.CreateWorkflowRequest{
		Mode:  "refine",
		Files: files,
	})
	if err != nil {
		t.Fatalf("CreateWorkflow failed: %v", err)
	}
	return view
}

func TestCreateWorkflowRunsToConfig(t *testing.T) {
	f := newAppFixture(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "weekly_recap.mp4")

	view := f.createRefine(t, files)

	if view.Step != string(session.StepConfig) {
		t.Fatalf("expected workflow to stop at config, got %s", view.Step)
	}
	if view.SessionID == "" || view.ProjectID == "" {
		t.Fatal("expected backend session recorded on the view")
	}
	if f.fake.FinalizeCalls != 1 {
		t.Fatalf("expected exactly one finalize call, got %d", f.fake.FinalizeCalls)
	}
	if len(f.notifier.WorkflowStarted) != 1 {
		t.Fatalf("expected one workflow-started notification, got %d", len(f.notifier.WorkflowStarted))
	}
}

func TestCreateWorkflowRejectsUnknownMode(t *testing.T) {
	f := newAppFixture(t)

	_, err := f.app.CreateWorkflow(context.Background(), api.CreateWorkflowRequest{
		Mode:      "montage",
		SourceURL: "https://example.com/video",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartAnalysisAdvancesToDefiller(t *testing.T) {
	f := newAppFixture(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "pitch.mp4")
	f.fake.DetectResult = backend.DetectionResult{
		FillerWords: []backend.FillerWordStat{{Word: "uh", Count: 3}},
	}

	view := f.createRefine(t, files)
	view, err := f.app.StartAnalysis(context.Background(), view.ID, backend.AnalysisOptions{DetectFillers: true})
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}
	if view.Step != string(session.StepDefiller) {
		t.Fatalf("expected defiller after analysis, got %s", view.Step)
	}
	if f.fake.DetectCalls != 1 {
		t.Fatalf("expected one detect call during analysis, got %d", f.fake.DetectCalls)
	}
}

func TestStartAnalysisRejectsWrongStep(t *testing.T) {
	f := newAppFixture(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "pitch.mp4")

	view := f.createRefine(t, files)
	if _, err := f.app.ApplyTrim(context.Background(), view.ID, []string{"uh"}, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error applying trim at config, got %v", err)
	}
}

func TestApplyTrimCompletesWorkflow(t *testing.T) {
	f := newAppFixture(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "pitch.mp4")
	f.fake.DetectResult = backend.DetectionResult{
		FillerWords: []backend.FillerWordStat{{Word: "uh", Count: 3}},
	}

	view := f.createRefine(t, files)
	view, err := f.app.StartAnalysis(context.Background(), view.ID, backend.AnalysisOptions{DetectFillers: true})
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	view, err = f.app.ApplyTrim(context.Background(), view.ID, []string{"uh"}, false)
	if err != nil {
		t.Fatalf("ApplyTrim failed: %v", err)
	}
	if view.Step != string(session.StepCompleted) {
		t.Fatalf("expected completed after trim, got %s", view.Step)
	}
	if len(f.fake.TrimRequests) != 1 {
		t.Fatalf("expected one trim request, got %d", len(f.fake.TrimRequests))
	}
	if got := f.fake.TrimRequests[0].RemovedFillers; len(got) != 1 || got[0] != "uh" {
		t.Fatalf("unexpected removed fillers: %v", got)
	}
}

func TestSkipTrimBypassesBrollConfig(t *testing.T) {
	f := newAppFixture(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "pitch.mp4")
	f.fake.DetectResult = backend.DetectionResult{
		FillerWords: []backend.FillerWordStat{{Word: "uh", Count: 2}},
	}

	view := f.createRefine(t, files)
	view, err := f.app.StartAnalysis(context.Background(), view.ID, backend.AnalysisOptions{
		DetectFillers: true,
		EnableBroll:   true,
	})
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	view, err = f.app.SkipTrim(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("SkipTrim failed: %v", err)
	}
	if view.Step != string(session.StepCompleted) {
		t.Fatalf("expected completed after skipping trim, got %s", view.Step)
	}
	if len(f.fake.TrimRequests) != 0 {
		t.Fatalf("expected no trim requests when skipped, got %d", len(f.fake.TrimRequests))
	}
}

func TestBackFromDefillerReturnsToConfig(t *testing.T) {
	f := newAppFixture(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "pitch.mp4")
	f.fake.DetectResult = backend.DetectionResult{
		FillerWords: []backend.FillerWordStat{{Word: "uh", Count: 1}},
	}

	view := f.createRefine(t, files)
	view, err := f.app.StartAnalysis(context.Background(), view.ID, backend.AnalysisOptions{DetectFillers: true})
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	view, moved, err := f.app.Back(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if !moved {
		t.Fatal("expected back to move from defiller")
	}
	if view.Step != string(session.StepConfig) {
		t.Fatalf("expected config after back, got %s", view.Step)
	}
}

func TestShowUnknownSessionIsNotFound(t *testing.T) {
	f := newAppFixture(t)

	_, err := f.app.Show(context.Background(), 42)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestHealthReportsSessionCounts(t *testing.T) {
	f := newAppFixture(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "pitch.mp4")
	f.createRefine(t, files)

	report, err := f.app.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if report.Sessions.Total != 1 || report.Sessions.Active != 1 {
		t.Fatalf("unexpected session counts: %+v", report.Sessions)
	}
	if !report.IntegrityOK {
		t.Fatal("expected integrity check to pass")
	}
	if len(report.Steps) == 0 {
		t.Fatal("expected step health entries")
	}
}
