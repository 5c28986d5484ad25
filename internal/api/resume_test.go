package api_test

import (
	"context"
	"errors"
	"testing"

	"reelflow/internal/backend"
	"reelflow/internal/services"
	"reelflow/internal/session"
	"reelflow/internal/testsupport"
)

func TestResumeAtDefillerRefetchesFillerWords(t *testing.T) {
	f := newAppFixture(t)
	f.fake.StepInfo = &backend.WorkflowStepInfo{
		SessionID:    "sess-remote",
		ProjectID:    "proj-remote",
		WorkflowStep: "defiller",
		EntryMode:    "refine",
	}
	f.fake.DetectResult = backend.DetectionResult{
		FillerWords: []backend.FillerWordStat{{Word: "like", Count: 4}},
	}

	result, err := f.app.Resume(context.Background(), "proj-remote")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if result.Session.Step != string(session.StepDefiller) {
		t.Fatalf("expected resumed session at defiller, got %s", result.Session.Step)
	}
	if result.Detection == nil || len(result.Detection.FillerWords) != 1 {
		t.Fatalf("expected filler words re-fetched from backend, got %+v", result.Detection)
	}
	if f.fake.DetectCalls != 1 {
		t.Fatalf("expected exactly one detect call, got %d", f.fake.DetectCalls)
	}

	item, err := f.store.GetBySessionID(context.Background(), "sess-remote")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}
	if item == nil {
		t.Fatal("expected an adopted local row for the remote project")
	}
	if item.Step != session.StepDefiller || item.ProjectID != "proj-remote" {
		t.Fatalf("unexpected adopted row: step=%s project=%s", item.Step, item.ProjectID)
	}
}

func TestResumeUpdatesExistingRowWithoutDuplicating(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	files := testsupport.MediaFiles(t, t.TempDir(), "keynote.mp4")
	f.fake.DetectResult = backend.DetectionResult{
		FillerWords: []backend.FillerWordStat{{Word: "um", Count: 2}},
	}

	view := f.createRefine(t, files)
	f.fake.StepInfo = &backend.WorkflowStepInfo{
		SessionID:    view.SessionID,
		ProjectID:    view.ProjectID,
		WorkflowStep: "broll_config",
		EntryMode:    "refine",
		EnableBroll:  true,
	}
	f.fake.Clips = []backend.ClipSuggestion{{ClipID: "clip-1", ClipNumber: 1, Text: "intro"}}

	result, err := f.app.Resume(ctx, view.ProjectID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if result.Session.ID != view.ID {
		t.Fatalf("expected resume to reuse row %d, got %d", view.ID, result.Session.ID)
	}
	if result.Session.Step != string(session.StepBrollConfig) {
		t.Fatalf("expected broll_config after resume, got %s", result.Session.Step)
	}
	if len(result.Clips) != 1 || result.Clips[0].ClipID != "clip-1" {
		t.Fatalf("expected clip suggestions re-fetched, got %+v", result.Clips)
	}

	views, err := f.app.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected a single session row after resume, got %d", len(views))
	}

	item, err := f.store.GetByID(ctx, view.ID)
	if err != nil || item == nil {
		t.Fatalf("GetByID failed: item=%v err=%v", item, err)
	}
	opts, err := item.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if !opts.EnableBroll {
		t.Fatal("expected backend-recorded broll flag persisted")
	}
}

func TestResumeUnknownProjectIsNotFound(t *testing.T) {
	f := newAppFixture(t)

	_, err := f.app.Resume(context.Background(), "proj-missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestResumeRejectsUnknownRecordedStep(t *testing.T) {
	f := newAppFixture(t)
	f.fake.StepInfo = &backend.WorkflowStepInfo{
		SessionID:    "sess-x",
		ProjectID:    "proj-x",
		WorkflowStep: "color_grade",
		EntryMode:    "refine",
	}

	_, err := f.app.Resume(context.Background(), "proj-x")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
