package steps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"reelflow/internal/backend"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/notifications"
	"reelflow/internal/session"
	"reelflow/internal/step"
	"reelflow/internal/taskwatch"
)

// Process runs the backend work behind the processing step. For refine
// sessions that is filler-word detection; for ai-talk sessions it launches AI
// generation and, when configured, watches the task to completion.
type Process struct {
	cfg      *config.Config
	store    *session.Store
	client   *backend.Client
	watcher  taskwatch.Watcher
	notifier notifications.Service
	logger   *slog.Logger

	mu          sync.Mutex
	fillerCount int
	outputURL   string
}

// NewProcess constructs the processing step handler. A nil watcher defaults
// to a poller built from config.
func NewProcess(cfg *config.Config, store *session.Store, client *backend.Client, watcher taskwatch.Watcher, notifier notifications.Service, logger *slog.Logger) *Process {
	if logger == nil {
		logger = logging.NewNop()
	}
	if watcher == nil {
		watcher = taskwatch.NewPoller(client, taskwatch.PollerOptionsFromConfig(cfg), logger)
	}
	return &Process{
		cfg:      cfg,
		store:    store,
		client:   client,
		watcher:  watcher,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "step-process"),
	}
}

// Prepare verifies the session was created and finalized upstream.
func (p *Process) Prepare(ctx context.Context, item *session.Item) error {
	if _, err := step.RequireSessionID(item); err != nil {
		return err
	}
	switch item.Mode {
	case session.ModeRefine:
		item.InitProgress("Analyzing", "Starting analysis")
	default:
		item.InitProgress("Generating", "Starting AI processing")
	}
	return nil
}

// Execute performs the mode's backend work.
func (p *Process) Execute(ctx context.Context, item *session.Item) error {
	if item.Mode == session.ModeRefine {
		return p.analyze(ctx, item)
	}
	return p.generate(ctx, item)
}

func (p *Process) analyze(ctx context.Context, item *session.Item) error {
	opts, err := step.AnalysisOptions(item)
	if err != nil {
		return err
	}

	item.SetProgress("Analyzing", "Detecting filler words", 10)
	if err := p.store.Update(ctx, item); err != nil {
		p.logger.Warn("failed to persist analysis progress", logging.Error(err))
	}

	result, err := p.client.DetectFillers(ctx, item.SessionID, opts)
	if err != nil {
		return err
	}

	count := 0
	for _, word := range result.FillerWords {
		count += word.Count
	}
	p.mu.Lock()
	p.fillerCount = count
	p.mu.Unlock()

	p.logger.Info("analysis complete",
		logging.String(logging.FieldSessionID, item.SessionID),
		logging.Int("filler_words", count),
		logging.Int("transcript_segments", len(result.TranscriptSegments)),
	)
	item.SetProgressComplete("Analyzed", fmt.Sprintf("%d filler word(s) detected", count))
	return nil
}

func (p *Process) generate(ctx context.Context, item *session.Item) error {
	opts, err := step.AnalysisOptions(item)
	if err != nil {
		return err
	}

	task, err := p.client.StartAIProcessing(ctx, item.SessionID, backend.ProcessingOptions{
		EnableBroll: opts.EnableBroll,
	})
	if err != nil {
		return err
	}
	item.TaskID = task.TaskID
	item.SetProgress("Generating", "AI processing started", 0)
	if err := p.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist task id: %w", err)
	}
	if p.notifier != nil {
		if err := p.notifier.NotifyProcessingStarted(ctx, item.Title); err != nil {
			p.logger.Warn("processing notification failed", logging.Error(err))
		}
	}

	if p.cfg != nil && !p.cfg.Workflow.WaitForGeneration {
		item.SetProgressComplete("Generating", "AI processing running in the background")
		return nil
	}
	return p.watchTask(ctx, item)
}

func (p *Process) watchTask(ctx context.Context, item *session.Item) error {
	sampler := logging.NewProgressSampler(5)
	var terminalErr error

	err := p.watcher.Watch(ctx, item.TaskID, taskwatch.Callbacks{
		OnUpdate: func(status backend.TaskStatus) {
			item.SetProgress("Generating", fmt.Sprintf("Task %s", status.Status), status.Progress)
			if sampler.ShouldLog(status.Progress, string(status.Status)) {
				if err := p.store.Update(ctx, item); err != nil {
					p.logger.Warn("failed to persist task progress", logging.Error(err))
				}
			}
		},
		OnAdvisory: func(msg string) {
			item.Advisory = msg
			if err := p.store.Update(ctx, item); err != nil {
				p.logger.Warn("failed to persist task advisory", logging.Error(err))
			}
			if p.notifier != nil {
				if err := p.notifier.NotifyTaskStuck(ctx, item.Title, msg); err != nil {
					p.logger.Warn("stuck notification failed", logging.Error(err))
				}
			}
		},
		OnComplete: func(status backend.TaskStatus) {
			p.mu.Lock()
			p.outputURL = status.OutputURL
			p.mu.Unlock()
		},
		OnError: func(err error) {
			terminalErr = err
		},
	})
	if err != nil {
		return err
	}
	if terminalErr != nil {
		return terminalErr
	}

	p.mu.Lock()
	outputURL := p.outputURL
	p.mu.Unlock()
	message := "Generation complete"
	if strings.TrimSpace(outputURL) != "" {
		message = fmt.Sprintf("Generation complete: %s", outputURL)
	}
	item.Advisory = ""
	item.SetProgressComplete("Generated", message)
	return nil
}

// OutputURL returns the final video location once generation completed.
func (p *Process) OutputURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outputURL
}

// HealthCheck verifies backend connection settings are present.
func (p *Process) HealthCheck(ctx context.Context) step.Health {
	const name = "processing"
	if p.cfg == nil || strings.TrimSpace(p.cfg.Backend.BaseURL) == "" {
		return step.Unhealthy(name, "backend base_url is not configured")
	}
	return step.Healthy(name)
}

// Done reports the transition path after processing. Refine sessions move to
// filler review; when nothing was detected the review step is skipped and the
// session lands on B-roll configuration or completion per its options.
func (p *Process) Done(item *session.Item) []session.Step {
	if item.Mode == session.ModeAITalk {
		return []session.Step{session.StepCompleted}
	}

	p.mu.Lock()
	count := p.fillerCount
	p.mu.Unlock()
	if count > 0 {
		return []session.Step{session.StepDefiller}
	}
	opts, err := item.Options()
	if err == nil && opts.EnableBroll {
		return []session.Step{session.StepDefiller, session.StepBrollConfig}
	}
	return []session.Step{session.StepDefiller, session.StepCompleted}
}
