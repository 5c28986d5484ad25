package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelflow/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailReturnsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelflow.log")
	writeLog(t, path, "one\ntwo\nthree\n")

	var lines []string
	err := logs.Tail(context.Background(), path, logs.TailOptions{Limit: 2}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(lines) != 2 || lines[0] != "two" || lines[1] != "three" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")

	called := false
	err := logs.Tail(context.Background(), path, logs.TailOptions{Limit: 10}, func(string) {
		called = true
	})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if called {
		t.Fatal("expected no lines from a missing file")
	}
}

func TestTailFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelflow.log")
	writeLog(t, path, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.TailOptions{Follow: true, Poll: 5 * time.Millisecond}, func(line string) {
			got <- line
		})
	}()

	if line := <-got; line != "start" {
		t.Fatalf("expected initial line, got %q", line)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := file.WriteString("appended\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	select {
	case line := <-got:
		if line != "appended" {
			t.Fatalf("expected appended line, got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for appended line")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
