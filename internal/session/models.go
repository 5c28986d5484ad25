package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reelflow/internal/backend"
)

// Mode selects which workflow steps a session traverses.
type Mode string

const (
	// ModeAITalk is script-driven generation; it skips configuration and review.
	ModeAITalk Mode = "ai-talk"
	// ModeRefine is uploaded-footage cleanup with per-analysis configuration.
	ModeRefine Mode = "refine"
)

// ParseMode converts a string into a known Mode.
func ParseMode(value string) (Mode, bool) {
	normalized := Mode(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ModeAITalk, ModeRefine:
		return normalized, true
	}
	return "", false
}

// Step represents the wizard's position in the workflow.
type Step string

const (
	StepEntry       Step = "entry"
	StepUpload      Step = "upload"
	StepConfig      Step = "config"
	StepProcessing  Step = "processing"
	StepDefiller    Step = "defiller"
	StepBrollConfig Step = "broll_config"
	StepCompleted   Step = "completed"
	StepFailed      Step = "failed"
)

var allSteps = []Step{
	StepEntry,
	StepUpload,
	StepConfig,
	StepProcessing,
	StepDefiller,
	StepBrollConfig,
	StepCompleted,
	StepFailed,
}

var stepSet = func() map[Step]struct{} {
	set := make(map[Step]struct{}, len(allSteps))
	for _, step := range allSteps {
		set[step] = struct{}{}
	}
	return set
}()

// processingSteps reflect in-flight backend work; sessions here carry
// heartbeats and stale rows are reclaimed on startup. Back is guarded
// separately: only processing itself refuses rollback.
var processingSteps = map[Step]struct{}{
	StepUpload:     {},
	StepProcessing: {},
}

// forwardEdges enumerates the valid forward transitions per entry mode.
var forwardEdges = map[Mode]map[Step][]Step{
	ModeAITalk: {
		StepEntry:      {StepUpload},
		StepUpload:     {StepProcessing},
		StepProcessing: {StepCompleted},
	},
	ModeRefine: {
		StepEntry:       {StepUpload},
		StepUpload:      {StepConfig},
		StepConfig:      {StepProcessing},
		StepProcessing:  {StepDefiller},
		StepDefiller:    {StepBrollConfig, StepCompleted},
		StepBrollConfig: {StepCompleted},
	},
}

// backEdges map each step to its one-step-back target per entry mode.
// Transient processing is skipped: backing out of defiller returns to config,
// not to an in-flight analysis.
var backEdges = map[Mode]map[Step]Step{
	ModeAITalk: {
		StepUpload: StepEntry,
	},
	ModeRefine: {
		StepUpload:      StepEntry,
		StepConfig:      StepUpload,
		StepDefiller:    StepConfig,
		StepBrollConfig: StepDefiller,
	},
}

// AllSteps returns the ordered list of known steps.
func AllSteps() []Step {
	cp := make([]Step, len(allSteps))
	copy(cp, allSteps)
	return cp
}

// ParseStep converts a string into a known Step.
func ParseStep(value string) (Step, bool) {
	normalized := Step(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stepSet[normalized]
	return normalized, ok
}

// ValidTransition reports whether mode permits advancing from one step to the
// next. Failure transitions are always permitted from non-terminal steps.
func ValidTransition(mode Mode, from, to Step) bool {
	if to == StepFailed {
		return from != StepCompleted && from != StepFailed
	}
	for _, next := range forwardEdges[mode][from] {
		if next == to {
			return true
		}
	}
	return false
}

// BackTarget returns the one-step-back target for a step under the given
// mode. The second return is false when back is not available (processing and
// terminal steps, and entry itself).
func BackTarget(mode Mode, from Step) (Step, bool) {
	target, ok := backEdges[mode][from]
	return target, ok
}

// IsProcessingStep reports whether a step reflects an in-flight operation.
func IsProcessingStep(step Step) bool {
	_, ok := processingSteps[step]
	return ok
}

// Terminal reports whether a step will not change again.
func (s Step) Terminal() bool {
	return s == StepCompleted || s == StepFailed
}

// Item represents a workflow session persisted in SQLite.
type Item struct {
	ID              int64
	SessionID       string
	ProjectID       string
	Title           string
	Mode            Mode
	Step            Step
	SourceURL       string
	SourceFilesJSON string
	AssetsJSON      string
	OptionsJSON     string
	TaskID          string
	UploadFinalized bool
	ErrorMessage    string
	Advisory        string
	NeedsReview     bool
	ReviewReason    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsProcessing returns true when the session's step reflects in-flight work.
func (i Item) IsProcessing() bool {
	return IsProcessingStep(i.Step)
}

// SourceFiles decodes the local file paths queued for upload.
func (i Item) SourceFiles() ([]string, error) {
	if strings.TrimSpace(i.SourceFilesJSON) == "" {
		return nil, nil
	}
	var files []string
	if err := json.Unmarshal([]byte(i.SourceFilesJSON), &files); err != nil {
		return nil, fmt.Errorf("decode source files: %w", err)
	}
	return files, nil
}

// SetSourceFiles encodes the local file paths queued for upload.
func (i *Item) SetSourceFiles(files []string) error {
	if len(files) == 0 {
		i.SourceFilesJSON = ""
		return nil
	}
	encoded, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("encode source files: %w", err)
	}
	i.SourceFilesJSON = string(encoded)
	return nil
}

// Assets decodes the backend asset slots allocated for this session.
func (i Item) Assets() ([]backend.Asset, error) {
	if strings.TrimSpace(i.AssetsJSON) == "" {
		return nil, nil
	}
	var assets []backend.Asset
	if err := json.Unmarshal([]byte(i.AssetsJSON), &assets); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	return assets, nil
}

// SetAssets encodes the backend asset slots allocated for this session.
func (i *Item) SetAssets(assets []backend.Asset) error {
	if len(assets) == 0 {
		i.AssetsJSON = ""
		return nil
	}
	encoded, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("encode assets: %w", err)
	}
	i.AssetsJSON = string(encoded)
	return nil
}

// Options decodes the analysis options chosen at the config step.
func (i Item) Options() (backend.AnalysisOptions, error) {
	var opts backend.AnalysisOptions
	if strings.TrimSpace(i.OptionsJSON) == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(i.OptionsJSON), &opts); err != nil {
		return opts, fmt.Errorf("decode analysis options: %w", err)
	}
	return opts, nil
}

// SetOptions encodes the analysis options chosen at the config step.
func (i *Item) SetOptions(opts backend.AnalysisOptions) error {
	encoded, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encode analysis options: %w", err)
	}
	i.OptionsJSON = string(encoded)
	return nil
}

// InitProgress resets progress fields for a new step. ProgressMessage is set
// to message, ProgressPercent is reset to 0, and ErrorMessage and Advisory are
// cleared.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
	i.Advisory = ""
}

// SetProgress updates all three progress fields together. Use this instead of
// setting ProgressStage, ProgressPercent, and ProgressMessage individually.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the session as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Step = StepFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// FlagForReview keeps the session on its current step with a recoverable
// error the user can retry, rather than failing the workflow.
func (i *Item) FlagForReview(reason string) {
	i.NeedsReview = true
	i.ReviewReason = reason
	i.LastHeartbeat = nil
}

// ClearReview removes a prior retry flag before re-attempting a step.
func (i *Item) ClearReview() {
	i.NeedsReview = false
	i.ReviewReason = ""
	i.ErrorMessage = ""
}

// HealthSummary describes aggregated session counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Active     int
	Processing int
	Review     int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the session database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
