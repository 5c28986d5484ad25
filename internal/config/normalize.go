package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	c.Backend.WebsocketURL = strings.TrimRight(strings.TrimSpace(c.Backend.WebsocketURL), "/")
	c.Backend.PricingURL = strings.TrimSpace(c.Backend.PricingURL)
	if c.Backend.APIToken == "" {
		if value, ok := os.LookupEnv("REELFLOW_API_TOKEN"); ok {
			c.Backend.APIToken = value
		}
	}
	if c.Backend.WebsocketURL == "" && c.Backend.BaseURL != "" {
		c.Backend.WebsocketURL = deriveWebsocketURL(c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.TaskPollInterval <= 0 {
		c.Workflow.TaskPollInterval = defaultTaskPollInterval
	}
	if c.Workflow.TaskPollMaxRetries <= 0 {
		c.Workflow.TaskPollMaxRetries = defaultTaskPollMaxRetries
	}
	if c.Workflow.PendingStuckSeconds <= 0 {
		c.Workflow.PendingStuckSeconds = defaultPendingStuckSeconds
	}
	if c.Workflow.ProcessingStuckSeconds <= 0 {
		c.Workflow.ProcessingStuckSeconds = defaultProcessingStuckSeconds
	}
	if c.Workflow.UploadConcurrency <= 0 {
		c.Workflow.UploadConcurrency = defaultUploadConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func deriveWebsocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return ""
	}
}
