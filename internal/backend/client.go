package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelflow/internal/config"
	"reelflow/internal/services"
)

// HTTPDoer describes the HTTP client used by the backend API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the video-editing backend over JSON/HTTPS with a bearer
// token attached per request.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// New constructs a backend client from application config.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := 30 * time.Second
	var baseURL, token string
	if cfg != nil {
		baseURL = cfg.Backend.BaseURL
		token = cfg.Backend.APIToken
		if cfg.Backend.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Backend.RequestTimeout) * time.Second
		}
	}
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CreateSession creates a processing session with pre-allocated asset slots.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if req.SourceType == SourceFiles && len(req.FileNames) == 0 {
		return nil, services.Wrap(services.ErrValidation, "upload", "create session", "at least one file required", nil)
	}
	if req.SourceType == SourceLink && strings.TrimSpace(req.SourceURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "upload", "create session", "source link required", nil)
	}
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", req, &session); err != nil {
		return nil, services.Wrap(services.ErrUpload, "upload", "create session", "", err)
	}
	if session.SessionID == "" {
		return nil, services.Wrap(services.ErrUpload, "upload", "create session", "backend returned empty session id", nil)
	}
	return &session, nil
}

// FinalizeUpload transitions a session from "files received" to "base project
// structure created". The caller must invoke it exactly once per session.
func (c *Client) FinalizeUpload(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/sessions/%s/finalize", url.PathEscape(sessionID))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return services.Wrap(services.ErrUpload, "upload", "finalize session", "", err)
	}
	return nil
}

// DetectFillers runs filler/breath detection for a finalized session.
func (c *Client) DetectFillers(ctx context.Context, sessionID string, opts AnalysisOptions) (*DetectionResult, error) {
	path := fmt.Sprintf("/sessions/%s/detect-fillers", url.PathEscape(sessionID))
	var result DetectionResult
	if err := c.doJSON(ctx, http.MethodPost, path, opts, &result); err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "config", "detect fillers", "", err)
	}
	return &result, nil
}

// ApplyTrimming removes the chosen filler occurrences and regenerates clip
// boundaries. Safe to re-invoke with the same selection.
func (c *Client) ApplyTrimming(ctx context.Context, sessionID string, req TrimRequest) (*TrimResult, error) {
	path := fmt.Sprintf("/sessions/%s/apply-trimming", url.PathEscape(sessionID))
	var result TrimResult
	if err := c.doJSON(ctx, http.MethodPost, path, req, &result); err != nil {
		return nil, services.Wrap(services.ErrTrim, "defiller", "apply trimming", "", err)
	}
	return &result, nil
}

// GetClipSuggestions fetches semantic clip slots and candidate B-roll assets.
func (c *Client) GetClipSuggestions(ctx context.Context, sessionID string) ([]ClipSuggestion, error) {
	path := fmt.Sprintf("/sessions/%s/clip-suggestions", url.PathEscape(sessionID))
	var payload struct {
		Clips []ClipSuggestion `json:"clips"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, services.Wrap(services.ErrConfigSave, "broll_config", "fetch clip suggestions", "", err)
	}
	return payload.Clips, nil
}

// SaveWorkflowConfig persists pip/background/per-clip-asset selections.
func (c *Client) SaveWorkflowConfig(ctx context.Context, sessionID string, cfg WorkflowConfig) error {
	path := fmt.Sprintf("/sessions/%s/workflow-config", url.PathEscape(sessionID))
	if err := c.doJSON(ctx, http.MethodPost, path, cfg, nil); err != nil {
		return services.Wrap(services.ErrConfigSave, "broll_config", "save workflow config", "", err)
	}
	return nil
}

// GetWorkflowStep fetches the backend-recorded resume point for a project.
func (c *Client) GetWorkflowStep(ctx context.Context, projectID string) (*WorkflowStepInfo, error) {
	path := fmt.Sprintf("/projects/%s/workflow-step", url.PathEscape(projectID))
	var info WorkflowStepInfo
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, services.Wrap(services.ErrTransient, "resume", "fetch workflow step", "", err)
	}
	return &info, nil
}

// StartAIProcessing launches generation for an ai-talk session. An HTTP 402
// response surfaces as services.ErrInsufficientCredits.
func (c *Client) StartAIProcessing(ctx context.Context, sessionID string, opts ProcessingOptions) (*ProcessingTask, error) {
	path := fmt.Sprintf("/sessions/%s/process", url.PathEscape(sessionID))
	var task ProcessingTask
	if err := c.doJSON(ctx, http.MethodPost, path, opts, &task); err != nil {
		return nil, err
	}
	if task.TaskID == "" {
		return nil, services.Wrap(services.ErrTaskFailure, "processing", "start processing", "backend returned empty task id", nil)
	}
	return &task, nil
}

// GetAITaskStatus fetches one observation of a backend AI task.
func (c *Client) GetAITaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	path := fmt.Sprintf("/tasks/%s", url.PathEscape(taskID))
	var status TaskStatus
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	if status.TaskID == "" {
		status.TaskID = taskID
	}
	return &status, nil
}

type apiError struct {
	StatusCode int
	Detail     struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"detail"`
}

func (e *apiError) ErrorMessage() string {
	if e.Detail.Message != "" {
		return e.Detail.Message
	}
	if e.Detail.Error != "" {
		return e.Detail.Error
	}
	return http.StatusText(e.StatusCode)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return services.Wrap(services.ErrTimeout, "", fmt.Sprintf("%s %s", method, path), "request deadline exceeded", err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return c.decodeError(resp, method, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) decodeError(resp *http.Response, method, path string) error {
	apiErr := &apiError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, apiErr)

	if resp.StatusCode == http.StatusPaymentRequired {
		return services.Wrap(services.ErrInsufficientCredits, "processing", "start processing", apiErr.ErrorMessage(), nil)
	}
	if resp.StatusCode == http.StatusNotFound {
		return services.Wrap(services.ErrNotFound, "", fmt.Sprintf("%s %s", method, path), apiErr.ErrorMessage(), nil)
	}
	return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, apiErr.ErrorMessage())
}
