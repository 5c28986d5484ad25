package testsupport

import (
	"context"
	"sync"
)

// RecorderNotifier implements notifications.Service and records every event
// for assertions.
type RecorderNotifier struct {
	mu sync.Mutex

	WorkflowStarted     []string
	UploadsCompleted    []string
	ProcessingStarted   []string
	WorkflowCompleted   []string
	StuckAdvisories     []string
	InsufficientCredits []string
	Errors              []error
	Tests               int
}

func (r *RecorderNotifier) NotifyWorkflowStarted(_ context.Context, title, mode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WorkflowStarted = append(r.WorkflowStarted, title+"/"+mode)
	return nil
}

func (r *RecorderNotifier) NotifyUploadCompleted(_ context.Context, title string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UploadsCompleted = append(r.UploadsCompleted, title)
	return nil
}

func (r *RecorderNotifier) NotifyProcessingStarted(_ context.Context, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ProcessingStarted = append(r.ProcessingStarted, title)
	return nil
}

func (r *RecorderNotifier) NotifyWorkflowCompleted(_ context.Context, title, outputURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WorkflowCompleted = append(r.WorkflowCompleted, title+"|"+outputURL)
	return nil
}

func (r *RecorderNotifier) NotifyTaskStuck(_ context.Context, _, advisory string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StuckAdvisories = append(r.StuckAdvisories, advisory)
	return nil
}

func (r *RecorderNotifier) NotifyInsufficientCredits(_ context.Context, title, pricingURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.InsufficientCredits = append(r.InsufficientCredits, title+"|"+pricingURL)
	return nil
}

func (r *RecorderNotifier) NotifyError(_ context.Context, err error, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err)
	return nil
}

func (r *RecorderNotifier) TestNotification(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tests++
	return nil
}
