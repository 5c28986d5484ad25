package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUpload marks network or validation failures during file transfer.
	ErrUpload = errors.New("upload error")
	// ErrAnalysis marks filler-word detection call failures.
	ErrAnalysis = errors.New("analysis error")
	// ErrTrim marks apply-trim call failures.
	ErrTrim = errors.New("trim error")
	// ErrConfigSave marks B-roll configuration persistence failures.
	ErrConfigSave = errors.New("config save error")
	// ErrInsufficientCredits marks an HTTP 402 from AI-processing calls.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrTaskFailure marks a backend job reporting failed or cancelled.
	ErrTaskFailure = errors.New("task failure")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRecoverable reports whether an error keeps the session on its current step
// with a retry affordance, rather than marking the workflow failed. Step
// boundary errors, timeouts, and transport exhaustion are recoverable; only a
// backend-reported terminal task state fails the workflow.
func IsRecoverable(err error) bool {
	switch {
	case errors.Is(err, ErrUpload),
		errors.Is(err, ErrAnalysis),
		errors.Is(err, ErrTrim),
		errors.Is(err, ErrConfigSave),
		errors.Is(err, ErrInsufficientCredits),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
