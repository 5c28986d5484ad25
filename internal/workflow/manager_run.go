package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelflow/internal/logging"
	"reelflow/internal/services"
	"reelflow/internal/session"
	"reelflow/internal/step"
)

// Advance runs automatic steps (upload, processing) until the session reaches
// an interactive or terminal step, or a step fails. It returns the first step
// error encountered; interactive stops return nil.
func (m *Manager) Advance(ctx context.Context, item *session.Item) error {
	for {
		if item.Step.Terminal() || item.NeedsReview {
			return nil
		}
		reg, ok := m.auto[item.Step]
		if !ok {
			return nil
		}
		if err := m.runStep(ctx, reg, item); err != nil {
			return err
		}
	}
}

// RunInteractive executes the interactive handler registered for the
// session's current step. The caller stages input on the handler first.
func (m *Manager) RunInteractive(ctx context.Context, item *session.Item) error {
	reg, ok := m.interactive[item.Step]
	if !ok {
		return services.Wrap(services.ErrValidation, string(item.Step), "run step",
			fmt.Sprintf("step %s has no interactive handler", item.Step), nil)
	}
	return m.runStep(ctx, reg, item)
}

func (m *Manager) runStep(ctx context.Context, reg registeredStep, item *session.Item) error {
	requestID := uuid.NewString()
	stepCtx := services.WithRequestID(ctx, requestID)
	stepCtx = services.WithSessionID(stepCtx, item.SessionID)
	stepCtx = services.WithStep(stepCtx, string(item.Step))
	stepCtx = services.WithMode(stepCtx, string(item.Mode))

	stepLogger := m.stepLogger(item, reg.name, requestID)

	item.ClearReview()
	item.Advisory = ""
	if err := reg.handler.Prepare(stepCtx, item); err != nil {
		m.handleStepFailure(stepCtx, reg.name, item, err)
		return err
	}
	if err := m.store.Update(stepCtx, item); err != nil {
		wrapped := fmt.Errorf("persist step preparation: %w", err)
		stepLogger.Error("failed to persist step preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stepStart := time.Now()
	stepLogger.Info("step started",
		logging.String(logging.FieldEventType, "step_start"),
		logging.String("title", strings.TrimSpace(item.Title)),
	)

	execErr := m.executeWithHeartbeat(stepCtx, reg.handler, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stepLogger.Debug("step interrupted by shutdown")
			return execErr
		}
		m.handleStepFailure(stepCtx, reg.name, item, execErr)
		return execErr
	}

	item.LastHeartbeat = nil
	path := reg.done(item)
	for _, next := range path {
		if err := m.store.Transition(stepCtx, item, next); err != nil {
			wrapped := fmt.Errorf("advance past %s: %w", reg.name, err)
			stepLogger.Error("failed to advance session", logging.Error(wrapped))
			m.setLastError(wrapped)
			return wrapped
		}
	}
	if err := m.store.Update(stepCtx, item); err != nil {
		wrapped := fmt.Errorf("persist step result: %w", err)
		stepLogger.Error("failed to persist step result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stepLogger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.String("next_step", string(item.Step)),
		logging.Duration("step_duration", time.Since(stepStart)),
	)
	m.setLastItem(item)

	if item.Step == session.StepCompleted {
		m.onWorkflowCompleted(stepCtx, item)
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler step.Handler, item *session.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) handleStepFailure(ctx context.Context, stepName string, item *session.Item, stepErr error) {
	logger := m.stepLogger(item, stepName, "")
	message := failureMessage(stepName, stepErr)

	recoverable := services.IsRecoverable(stepErr)
	if recoverable {
		item.FlagForReview(message)
		item.ErrorMessage = message
	} else {
		item.SetFailed(message)
	}

	logger.Error("step failed",
		logging.String(logging.FieldEventType, "step_failure"),
		logging.Bool("recoverable", recoverable),
		logging.String("error_message", message),
		logging.Error(stepErr),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not persist step failure")
		} else {
			logger.Error("failed to persist step failure", logging.Error(err))
		}
	}
	m.setLastItem(item)
	m.setLastError(stepErr)

	if m.notifier == nil {
		return
	}
	if errors.Is(stepErr, services.ErrInsufficientCredits) {
		pricingURL := ""
		if m.cfg != nil {
			pricingURL = m.cfg.Backend.PricingURL
		}
		if err := m.notifier.NotifyInsufficientCredits(ctx, item.Title, pricingURL); err != nil {
			logger.Warn("credits notification failed", logging.Error(err))
		}
		return
	}
	if err := m.notifier.NotifyError(ctx, stepErr, stepName); err != nil {
		logger.Warn("error notification failed", logging.Error(err))
	}
}

func (m *Manager) onWorkflowCompleted(ctx context.Context, item *session.Item) {
	if m.notifier == nil {
		return
	}
	outputURL := ""
	if m.steps.Process != nil {
		outputURL = m.steps.Process.OutputURL()
	}
	if err := m.notifier.NotifyWorkflowCompleted(ctx, item.Title, outputURL); err != nil {
		m.logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (m *Manager) stepLogger(item *session.Item, stepName, requestID string) *slog.Logger {
	logger := logging.NewComponentLogger(m.logger, "workflow-manager").With(
		logging.String(logging.FieldStep, stepName),
		logging.String(logging.FieldMode, string(item.Mode)),
		logging.Int64("session_row", item.ID),
	)
	if item.SessionID != "" {
		logger = logger.With(logging.String(logging.FieldSessionID, item.SessionID))
	}
	if requestID != "" {
		logger = logger.With(logging.String(logging.FieldCorrelationID, requestID))
	}
	return logger
}

func failureMessage(stepName string, stepErr error) string {
	if stepErr == nil {
		return fmt.Sprintf("%s failed without error detail", stepName)
	}
	message := strings.TrimSpace(stepErr.Error())
	if message == "" {
		return fmt.Sprintf("%s failed", stepName)
	}
	return message
}
