package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"reelflow/internal/backend"
	"reelflow/internal/logging"
	"reelflow/internal/services"
)

// Progress is one observation of the upload as a whole.
type Progress struct {
	FileName         string
	FileWritten      int64
	FileTotal        int64
	AggregatePercent float64
}

// ProgressFunc receives upload progress. Calls are serialized.
type ProgressFunc func(Progress)

// FileError records one file's upload failure. Other files keep uploading.
type FileError struct {
	FileName string
	AssetID  string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("upload %s (asset %s): %v", e.FileName, e.AssetID, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Uploader uploads files to their asset slots with bounded concurrency.
type Uploader struct {
	client      *backend.Client
	concurrency int
	logger      *slog.Logger
}

// New constructs an uploader. Concurrency below one is clamped to one.
func New(client *backend.Client, concurrency int, logger *slog.Logger) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Uploader{
		client:      client,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "uploader"),
	}
}

type uploadJob struct {
	path  string
	asset backend.Asset
	size  int64
}

// Run uploads files to the session's asset slots, pairing files to assets by
// order index. One file's failure does not abort the rest; the returned error
// joins every per-file failure. Context cancellation stops pending uploads.
func (u *Uploader) Run(ctx context.Context, session *backend.Session, files []string, onProgress ProgressFunc) error {
	if session == nil {
		return services.Wrap(services.ErrValidation, "upload", "upload files", "session is nil", nil)
	}
	if len(files) != len(session.Assets) {
		return services.Wrap(
			services.ErrValidation,
			"upload",
			"upload files",
			fmt.Sprintf("%d files but %d asset slots", len(files), len(session.Assets)),
			nil,
		)
	}
	if len(files) == 0 {
		if onProgress != nil {
			onProgress(Progress{AggregatePercent: 100})
		}
		return nil
	}

	assets := make([]backend.Asset, len(session.Assets))
	copy(assets, session.Assets)
	sort.Slice(assets, func(i, j int) bool { return assets[i].OrderIndex < assets[j].OrderIndex })

	jobs := make([]uploadJob, 0, len(files))
	var totalBytes int64
	for i, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return services.Wrap(services.ErrValidation, "upload", "upload files", fmt.Sprintf("stat %s", path), err)
		}
		if info.IsDir() {
			return services.Wrap(services.ErrValidation, "upload", "upload files", fmt.Sprintf("%s is a directory", path), nil)
		}
		jobs = append(jobs, uploadJob{path: path, asset: assets[i], size: info.Size()})
		totalBytes += info.Size()
	}

	tracker := newProgressTracker(totalBytes, len(jobs), onProgress)
	sampler := logging.NewProgressSampler(10)

	sem := make(chan struct{}, u.concurrency)
	var wg sync.WaitGroup
	failures := make([]error, len(jobs))

	for idx, job := range jobs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func(idx int, job uploadJob) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := u.uploadOne(ctx, job, tracker, sampler); err != nil {
				failures[idx] = &FileError{FileName: job.path, AssetID: job.asset.AssetID, Err: err}
				u.logger.Error("file upload failed",
					logging.String("file", job.path),
					logging.String("asset_id", job.asset.AssetID),
					logging.Error(err),
				)
				return
			}
			u.logger.Info("file uploaded",
				logging.String("file", job.path),
				logging.String("asset_id", job.asset.AssetID),
				logging.Int64("bytes", job.size),
			)
		}(idx, job)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	var failed []error
	for _, err := range failures {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return services.Wrap(services.ErrUpload, "upload", "upload files",
			fmt.Sprintf("%d of %d files failed", len(failed), len(jobs)), errors.Join(failed...))
	}

	tracker.finish()
	return nil
}

func (u *Uploader) uploadOne(ctx context.Context, job uploadJob, tracker *progressTracker, sampler *logging.ProgressSampler) error {
	f, err := os.Open(job.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var previous int64
	return u.client.UploadFile(ctx, job.asset, f, job.size, func(written int64) {
		delta := written - previous
		previous = written
		percent := tracker.advance(job.path, written, job.size, delta)
		if sampler.ShouldLog(percent, "upload") {
			u.logger.Debug("upload progress",
				logging.String("file", job.path),
				logging.Float64("percent", percent),
			)
		}
	})
}

// progressTracker serializes progress callbacks and clamps the aggregate so
// it never decreases and only reports 100 once every file is complete.
type progressTracker struct {
	mu          sync.Mutex
	totalBytes  int64
	fileCount   int
	writtenSum  int64
	lastPercent float64
	onProgress  ProgressFunc
}

func newProgressTracker(totalBytes int64, fileCount int, onProgress ProgressFunc) *progressTracker {
	return &progressTracker{totalBytes: totalBytes, fileCount: fileCount, onProgress: onProgress}
}

func (p *progressTracker) advance(file string, fileWritten, fileTotal, delta int64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writtenSum += delta
	percent := p.lastPercent
	if p.totalBytes > 0 {
		percent = float64(p.writtenSum) / float64(p.totalBytes) * 100
	}
	if percent < p.lastPercent {
		percent = p.lastPercent
	}
	// Hold just below 100 until finish() confirms every file landed.
	if percent >= 100 {
		percent = 99.9
	}
	p.lastPercent = percent

	if p.onProgress != nil {
		p.onProgress(Progress{
			FileName:         file,
			FileWritten:      fileWritten,
			FileTotal:        fileTotal,
			AggregatePercent: percent,
		})
	}
	return percent
}

func (p *progressTracker) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPercent = 100
	if p.onProgress != nil {
		p.onProgress(Progress{AggregatePercent: 100})
	}
}
