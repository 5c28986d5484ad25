package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelflow/internal/config"
)

const userAgent = "Reelflow-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyWorkflowStarted(ctx context.Context, title, mode string) error
	NotifyUploadCompleted(ctx context.Context, title string, fileCount int) error
	NotifyProcessingStarted(ctx context.Context, title string) error
	NotifyWorkflowCompleted(ctx context.Context, title, outputURL string) error
	NotifyTaskStuck(ctx context.Context, title, advisory string) error
	NotifyInsufficientCredits(ctx context.Context, title, pricingURL string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		toggles:  cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

func (n *ntfyService) NotifyWorkflowStarted(ctx context.Context, title, mode string) error {
	if !n.toggles.Workflow {
		return nil
	}
	title = strings.TrimSpace(title)
	mode = strings.TrimSpace(mode)
	if mode == "" {
		mode = "unknown"
	}
	data := payload{
		title:   "Reelflow - Workflow Started",
		message: fmt.Sprintf("Started %s workflow: %s", mode, title),
		tags:    []string{"reelflow", "workflow", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadCompleted(ctx context.Context, title string, fileCount int) error {
	if !n.toggles.Upload {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Reelflow - Upload Complete",
		message: fmt.Sprintf("Uploaded %d file(s) for %s", fileCount, title),
		tags:    []string{"reelflow", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProcessingStarted(ctx context.Context, title string) error {
	if !n.toggles.Processing {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Reelflow - Processing",
		message: fmt.Sprintf("AI processing started: %s", title),
		tags:    []string{"reelflow", "processing", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkflowCompleted(ctx context.Context, title, outputURL string) error {
	if !n.toggles.Workflow {
		return nil
	}
	title = strings.TrimSpace(title)
	outputURL = strings.TrimSpace(outputURL)
	message := fmt.Sprintf("Ready to review: %s", title)
	if outputURL != "" {
		message = fmt.Sprintf("%s\nOutput: %s", message, outputURL)
	}
	data := payload{
		title:    "Reelflow - Complete",
		message:  message,
		tags:     []string{"reelflow", "workflow", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskStuck(ctx context.Context, title, advisory string) error {
	if !n.toggles.Advisories {
		return nil
	}
	title = strings.TrimSpace(title)
	advisory = strings.TrimSpace(advisory)
	data := payload{
		title:   "Reelflow - Task Stuck",
		message: fmt.Sprintf("%s: %s", title, advisory),
		tags:    []string{"reelflow", "task", "stuck"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyInsufficientCredits(ctx context.Context, title, pricingURL string) error {
	if !n.toggles.Credits {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Not enough credits to process %s", title)
	if pricingURL = strings.TrimSpace(pricingURL); pricingURL != "" {
		message = fmt.Sprintf("%s\nUpgrade: %s", message, pricingURL)
	}
	data := payload{
		title:    "Reelflow - Credits Needed",
		message:  message,
		tags:     []string{"reelflow", "credits", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.toggles.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Reelflow - Error",
		message:  builder.String(),
		tags:     []string{"reelflow", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reelflow - Test",
		message:  "Notification system test",
		tags:     []string{"reelflow", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyWorkflowStarted(context.Context, string, string) error      { return nil }
func (noopService) NotifyUploadCompleted(context.Context, string, int) error         { return nil }
func (noopService) NotifyProcessingStarted(context.Context, string) error            { return nil }
func (noopService) NotifyWorkflowCompleted(context.Context, string, string) error    { return nil }
func (noopService) NotifyTaskStuck(context.Context, string, string) error            { return nil }
func (noopService) NotifyInsufficientCredits(context.Context, string, string) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
