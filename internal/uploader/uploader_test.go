package uploader_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelflow/internal/backend"
	"reelflow/internal/services"
	"reelflow/internal/testsupport"
	"reelflow/internal/uploader"
)

func createSession(t *testing.T, client *backend.Client, files []string) *backend.Session {
	t.Helper()

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f)
	}
	session, err := client.CreateSession(context.Background(), backend.CreateSessionRequest{
		SourceType: backend.SourceFiles,
		TaskType:   "refine",
		FileNames:  names,
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return session
}

func TestRunUploadsAllFiles(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	files := testsupport.MediaFiles(t, t.TempDir(), "intro.mp4", "main.mp4", "outro.mp4")
	session := createSession(t, client, files)

	var mu sync.Mutex
	var percents []float64
	up := uploader.New(client, 2, nil)
	err := up.Run(context.Background(), session, files, func(p uploader.Progress) {
		mu.Lock()
		percents = append(percents, p.AggregatePercent)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fake.UploadedBytes) != 3 {
		t.Fatalf("expected 3 uploaded assets, got %d", len(fake.UploadedBytes))
	}
	for asset, n := range fake.UploadedBytes {
		if n != 4096 {
			t.Fatalf("asset %s received %d bytes, want 4096", asset, n)
		}
	}
	if len(percents) == 0 {
		t.Fatal("expected progress callbacks")
	}
	last := float64(-1)
	for i, p := range percents {
		if p < last {
			t.Fatalf("aggregate decreased at callback %d: %v -> %v", i, last, p)
		}
		last = p
	}
	if last != 100 {
		t.Fatalf("expected final aggregate of exactly 100, got %v", last)
	}
}

func TestRunOnlyReportsHundredAtEnd(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	files := testsupport.MediaFiles(t, t.TempDir(), "a.mp4", "b.mp4")
	session := createSession(t, client, files)

	var mu sync.Mutex
	hundreds := 0
	total := 0
	up := uploader.New(client, 2, nil)
	if err := up.Run(context.Background(), session, files, func(p uploader.Progress) {
		mu.Lock()
		total++
		if p.AggregatePercent >= 100 {
			hundreds++
		}
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if hundreds != 1 {
		t.Fatalf("expected exactly one 100%% callback out of %d, got %d", total, hundreds)
	}
}

func TestRunToleratesSingleFileFailure(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	files := testsupport.MediaFiles(t, t.TempDir(), "good.mp4", "bad.mp4")
	session := createSession(t, client, files)
	fake.UploadFailFor[session.Assets[1].AssetID] = true

	up := uploader.New(client, 1, nil)
	err := up.Run(context.Background(), session, files, nil)
	if err == nil {
		t.Fatal("expected error for failed file")
	}
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected upload error marker, got %v", err)
	}
	var fileErr *uploader.FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected FileError in chain, got %v", err)
	}
	if fileErr.AssetID != session.Assets[1].AssetID {
		t.Fatalf("unexpected failed asset: %s", fileErr.AssetID)
	}

	// The healthy file still made it up.
	if n := fake.UploadedBytes[session.Assets[0].AssetID]; n != 4096 {
		t.Fatalf("expected first asset uploaded fully, got %d bytes", n)
	}
}

func TestRunRejectsCountMismatch(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	files := testsupport.MediaFiles(t, t.TempDir(), "a.mp4", "b.mp4")
	session := createSession(t, client, files)

	up := uploader.New(client, 1, nil)
	err := up.Run(context.Background(), session, files[:1], nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for slot mismatch, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	fake := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fake.URL()))
	client := backend.New(cfg)

	files := testsupport.MediaFiles(t, t.TempDir(), "a.mp4", "b.mp4")
	session := createSession(t, client, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	up := uploader.New(client, 1, nil)
	err := up.Run(ctx, session, files, nil)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
