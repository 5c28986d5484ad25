package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelflow/internal/backend"
	"reelflow/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	fake       *testsupport.FakeBackend
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	fake := testsupport.NewFakeBackend(t)

	configPath := filepath.Join(base, "reelflow.toml")
	content := fmt.Sprintf(`[backend]
base_url = %q
api_token = "test-token"

[paths]
state_dir = %q
log_dir = %q

[workflow]
task_poll_interval = 1
heartbeat_interval = 1
heartbeat_timeout = 2

[logging]
format = "json"
level = "error"
`, fake.URL(), filepath.Join(base, "state"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{configPath: configPath, fake: fake}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCreateAnalyzeTrimFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	env.fake.DetectResult = backend.DetectionResult{
		FillerWords: []backend.FillerWordStat{{Word: "um", Count: 2, TotalDurationMs: 900}},
	}
	files := testsupport.MediaFiles(t, t.TempDir(), "launch_day.mp4")

	out, err := env.run(t, "create", "--mode", "refine", files[0])
	if err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "config") {
		t.Fatalf("expected session at config step, got:\n%s", out)
	}
	if !strings.Contains(out, "Launch Day") {
		t.Fatalf("expected derived title in output, got:\n%s", out)
	}

	out, err = env.run(t, "analyze", "1", "--fillers")
	if err != nil {
		t.Fatalf("analyze failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "defiller") {
		t.Fatalf("expected session at defiller step, got:\n%s", out)
	}

	out, err = env.run(t, "fillers", "1")
	if err != nil {
		t.Fatalf("fillers failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "um") {
		t.Fatalf("expected filler word listed, got:\n%s", out)
	}

	out, err = env.run(t, "trim", "1", "--remove", "um")
	if err != nil {
		t.Fatalf("trim failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "completed") {
		t.Fatalf("expected completed workflow, got:\n%s", out)
	}
	if env.fake.TrimCalls != 1 {
		t.Fatalf("expected one trim call, got %d", env.fake.TrimCalls)
	}
}

func TestSessionsListsCreatedWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "promo.mp4")

	out, err := env.run(t, "sessions")
	if err != nil {
		t.Fatalf("sessions failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No sessions found.") {
		t.Fatalf("expected empty list message, got:\n%s", out)
	}

	if out, err := env.run(t, "create", files[0]); err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}

	out, err = env.run(t, "sessions")
	if err != nil {
		t.Fatalf("sessions failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Promo") {
		t.Fatalf("expected created session listed, got:\n%s", out)
	}
}

func TestShowJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	files := testsupport.MediaFiles(t, t.TempDir(), "promo.mp4")
	if out, err := env.run(t, "create", files[0]); err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}

	out, err := env.run(t, "show", "1", "--json")
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"step": "config"`) {
		t.Fatalf("expected JSON step field, got:\n%s", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	if !strings.Contains(string(data), "[backend]") {
		t.Fatal("expected sample config content")
	}
}

func TestHealthReportsStore(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "health")
	if err != nil {
		t.Fatalf("health failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Integrity: ok") {
		t.Fatalf("expected integrity report, got:\n%s", out)
	}
}
