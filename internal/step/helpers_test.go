package step

import (
	"errors"
	"testing"

	"reelflow/internal/backend"
	"reelflow/internal/services"
	"reelflow/internal/session"
)

func TestAnalysisOptionsValid(t *testing.T) {
	item := &session.Item{Step: session.StepProcessing}
	if err := item.SetOptions(backend.AnalysisOptions{DetectFillers: true, EnableBroll: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	opts, err := AnalysisOptions(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.DetectFillers || !opts.EnableBroll {
		t.Fatalf("unexpected options: %#v", opts)
	}
}

func TestAnalysisOptionsEmpty(t *testing.T) {
	item := &session.Item{Step: session.StepProcessing}
	opts, err := AnalysisOptions(item)
	if err != nil {
		t.Fatalf("unexpected error for empty options: %v", err)
	}
	if opts.DetectFillers {
		t.Fatal("expected zero options for empty input")
	}
}

func TestAnalysisOptionsInvalid(t *testing.T) {
	item := &session.Item{Step: session.StepProcessing, OptionsJSON: "{invalid json"}
	if _, err := AnalysisOptions(item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequireSessionID(t *testing.T) {
	item := &session.Item{Step: session.StepProcessing}
	if _, err := RequireSessionID(item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	item.SessionID = "sess-1"
	id, err := RequireSessionID(item)
	if err != nil || id != "sess-1" {
		t.Fatalf("unexpected result: %q %v", id, err)
	}
}
