package testsupport

import (
	"path/filepath"
	"testing"

	"reelflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Backend.BaseURL = "http://127.0.0.1:0"
	cfg.Backend.APIToken = "test-token"
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 2

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithBackendURL points the test config at a live test server.
func WithBackendURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backend.BaseURL = url
	}
}

// WithUploadConcurrency overrides the upload worker count.
func WithUploadConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.UploadConcurrency = n
	}
}
