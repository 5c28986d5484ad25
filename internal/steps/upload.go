package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/notifications"
	"reelflow/internal/services"
	"reelflow/internal/session"
	"reelflow/internal/step"
	"reelflow/internal/uploader"
)

// Upload creates the backend session, pushes source files to their asset
// slots, and finalizes the upload exactly once.
type Upload struct {
	cfg      *config.Config
	store    *session.Store
	client   *backend.Client
	uploader *uploader.Uploader
	notifier notifications.Service
	logger   *slog.Logger
}

// NewUpload constructs the upload step handler.
func NewUpload(cfg *config.Config, store *session.Store, client *backend.Client, notifier notifications.Service, logger *slog.Logger) *Upload {
	if logger == nil {
		logger = logging.NewNop()
	}
	concurrency := 1
	if cfg != nil && cfg.Workflow.UploadConcurrency > 0 {
		concurrency = cfg.Workflow.UploadConcurrency
	}
	return &Upload{
		cfg:      cfg,
		store:    store,
		client:   client,
		uploader: uploader.New(client, concurrency, logger),
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "step-upload"),
	}
}

// Prepare validates source media and derives a default title when none was
// given.
func (u *Upload) Prepare(ctx context.Context, item *session.Item) error {
	files, err := item.SourceFiles()
	if err != nil {
		return services.Wrap(services.ErrValidation, "upload", "prepare", "", err)
	}
	if len(files) == 0 && strings.TrimSpace(item.SourceURL) == "" {
		return services.Wrap(services.ErrValidation, "upload", "prepare", "no source files or link recorded", nil)
	}
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return services.Wrap(services.ErrValidation, "upload", "prepare", fmt.Sprintf("source file %s unavailable", path), err)
		}
		if info.IsDir() {
			return services.Wrap(services.ErrValidation, "upload", "prepare", fmt.Sprintf("%s is a directory", path), nil)
		}
	}
	if strings.TrimSpace(item.Title) == "" {
		item.Title = DeriveTitle(files, item.SourceURL)
	}
	item.InitProgress("Uploading", "Preparing upload")
	return nil
}

// Execute creates the backend session when missing, uploads every file, and
// finalizes. A previously finalized session is never finalized again; the
// persisted flag makes retries after a crash safe.
func (u *Upload) Execute(ctx context.Context, item *session.Item) error {
	files, err := item.SourceFiles()
	if err != nil {
		return services.Wrap(services.ErrValidation, "upload", "execute", "", err)
	}

	if item.SessionID == "" {
		created, err := u.createSession(ctx, item, files)
		if err != nil {
			return err
		}
		item.SessionID = created.SessionID
		item.ProjectID = created.ProjectID
		if err := item.SetAssets(created.Assets); err != nil {
			return services.Wrap(services.ErrUpload, "upload", "record assets", "", err)
		}
		if err := u.store.Update(ctx, item); err != nil {
			return fmt.Errorf("persist created session: %w", err)
		}
		u.logger.Info("backend session created",
			logging.String(logging.FieldSessionID, item.SessionID),
			logging.String(logging.FieldProjectID, item.ProjectID),
			logging.Int("asset_slots", len(created.Assets)),
		)
	}

	if len(files) > 0 {
		if err := u.uploadFiles(ctx, item, files); err != nil {
			return err
		}
	}

	if !item.UploadFinalized {
		if err := u.client.FinalizeUpload(ctx, item.SessionID); err != nil {
			return err
		}
		item.UploadFinalized = true
		if err := u.store.Update(ctx, item); err != nil {
			return fmt.Errorf("persist finalize flag: %w", err)
		}
	}

	item.SetProgressComplete("Uploaded", fmt.Sprintf("%d file(s) uploaded", len(files)))
	if u.notifier != nil {
		if err := u.notifier.NotifyUploadCompleted(ctx, item.Title, len(files)); err != nil {
			u.logger.Warn("upload notification failed", logging.Error(err))
		}
	}
	return nil
}

func (u *Upload) createSession(ctx context.Context, item *session.Item, files []string) (*backend.Session, error) {
	req := backend.CreateSessionRequest{
		TaskType: string(item.Mode),
		Title:    item.Title,
	}
	if len(files) > 0 {
		req.SourceType = backend.SourceFiles
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, filepath.Base(f))
		}
		req.FileNames = names
	} else {
		req.SourceType = backend.SourceLink
		req.SourceURL = item.SourceURL
	}
	return u.client.CreateSession(ctx, req)
}

func (u *Upload) uploadFiles(ctx context.Context, item *session.Item, files []string) error {
	assets, err := item.Assets()
	if err != nil {
		return services.Wrap(services.ErrUpload, "upload", "decode assets", "", err)
	}
	if len(assets) != len(files) {
		return services.Wrap(services.ErrUpload, "upload", "upload files",
			fmt.Sprintf("%d asset slots for %d files", len(assets), len(files)), nil)
	}

	sess := &backend.Session{SessionID: item.SessionID, ProjectID: item.ProjectID, Assets: assets}
	sampler := logging.NewProgressSampler(5)
	return u.uploader.Run(ctx, sess, files, func(p uploader.Progress) {
		message := "Uploading files"
		if p.FileName != "" {
			message = fmt.Sprintf("Uploading %s", filepath.Base(p.FileName))
		}
		item.SetProgress("Uploading", message, p.AggregatePercent)
		if sampler.ShouldLog(p.AggregatePercent, "upload") {
			if err := u.store.Update(ctx, item); err != nil {
				u.logger.Warn("failed to persist upload progress", logging.Error(err))
			}
		}
	})
}

// HealthCheck verifies backend connection settings are present.
func (u *Upload) HealthCheck(ctx context.Context) step.Health {
	const name = "upload"
	if u.cfg == nil || strings.TrimSpace(u.cfg.Backend.BaseURL) == "" {
		return step.Unhealthy(name, "backend base_url is not configured")
	}
	if strings.TrimSpace(u.cfg.Backend.APIToken) == "" {
		return step.Unhealthy(name, "backend api_token is not configured")
	}
	return step.Healthy(name)
}

// Done reports the step the session advances to after a successful upload.
func (u *Upload) Done(item *session.Item) []session.Step {
	if item.Mode == session.ModeAITalk {
		return []session.Step{session.StepProcessing}
	}
	return []session.Step{session.StepConfig}
}
