package backend

// SourceType identifies how media enters a session.
type SourceType string

const (
	SourceFiles SourceType = "files"
	SourceLink  SourceType = "link"
)

// Asset is one uploaded media file's server-side record. Slots are
// pre-allocated when the session is created and filled in as files upload.
type Asset struct {
	AssetID     string `json:"asset_id"`
	OrderIndex  int    `json:"order_index"`
	UploadURL   string `json:"upload_url"`
	StoragePath string `json:"storage_path"`
	FileName    string `json:"file_name,omitempty"`
}

// Session ties one upload-and-process run to a project.
type Session struct {
	SessionID string  `json:"session_id"`
	ProjectID string  `json:"project_id"`
	Assets    []Asset `json:"assets"`
}

// CreateSessionRequest describes a new session.
type CreateSessionRequest struct {
	SourceType SourceType `json:"source_type"`
	TaskType   string     `json:"task_type"`
	FileNames  []string   `json:"file_names,omitempty"`
	SourceURL  string     `json:"source_url,omitempty"`
	Title      string     `json:"title,omitempty"`
}

// AnalysisOptions are the user-chosen analyses for the refine flow.
type AnalysisOptions struct {
	DetectFillers bool `json:"detect_fillers"`
	DetectBreaths bool `json:"detect_breaths"`
	EnableBroll   bool `json:"enable_broll"`
}

// Occurrence is one filler-word hit within the transcript.
type Occurrence struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// FillerWordStat aggregates occurrences of one filler token.
type FillerWordStat struct {
	Word            string       `json:"word"`
	Count           int          `json:"count"`
	TotalDurationMs int64        `json:"total_duration_ms"`
	Occurrences     []Occurrence `json:"occurrences"`
}

// TranscriptSegment is one span of recognized speech.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SilenceSegment is one detected span without speech.
type SilenceSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// DetectionResult is the payload of one filler-detection call.
type DetectionResult struct {
	FillerWords        []FillerWordStat    `json:"filler_words"`
	TranscriptSegments []TranscriptSegment `json:"transcript_segments"`
	SilenceSegments    []SilenceSegment    `json:"silence_segments"`
}

// TrimRequest removes the chosen filler occurrences server-side.
type TrimRequest struct {
	RemovedFillers          []string `json:"removed_fillers"`
	CreateClipsFromSegments bool     `json:"create_clips_from_segments"`
}

// TrimResult reports the project whose clip boundaries were regenerated.
type TrimResult struct {
	ProjectID string `json:"project_id"`
}

// SuggestedAsset is one candidate B-roll asset for a clip slot.
type SuggestedAsset struct {
	AssetID      string `json:"asset_id"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	PreviewURL   string `json:"preview_url,omitempty"`
	Description  string `json:"description,omitempty"`
}

// TimeRange spans a clip within the final video, in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ClipSuggestion is one semantic slot of the final video and its candidates.
type ClipSuggestion struct {
	ClipID          string           `json:"clip_id"`
	ClipNumber      int              `json:"clip_number"`
	Text            string           `json:"text"`
	TimeRange       TimeRange        `json:"time_range"`
	SuggestedAssets []SuggestedAsset `json:"suggested_assets"`
	SelectedAssetID string           `json:"selected_asset_id,omitempty"`
}

// BrollSelection pins one clip slot to a chosen asset.
type BrollSelection struct {
	ClipID  string `json:"clip_id"`
	AssetID string `json:"asset_id"`
}

// WorkflowConfig persists pip/background/per-clip-asset selections.
type WorkflowConfig struct {
	PipEnabled      bool             `json:"pip_enabled"`
	PipPosition     string           `json:"pip_position,omitempty"`
	PipSize         string           `json:"pip_size,omitempty"`
	BrollEnabled    bool             `json:"broll_enabled"`
	BrollSelections []BrollSelection `json:"broll_selections,omitempty"`
}

// WorkflowStepInfo is the backend-recorded resume point for a project.
type WorkflowStepInfo struct {
	SessionID       string `json:"session_id"`
	ProjectID       string `json:"project_id"`
	WorkflowStep    string `json:"workflow_step"`
	EntryMode       string `json:"entry_mode"`
	EnableSmartClip bool   `json:"enable_smart_clip"`
	EnableBroll     bool   `json:"enable_broll"`
}

// TaskState is the lifecycle of a backend AI task.
type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
	TaskCancelled  TaskState = "cancelled"
)

// Terminal reports whether the state will not change again.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// TaskStatus is one observation of a backend AI task.
type TaskStatus struct {
	TaskID       string    `json:"task_id"`
	Status       TaskState `json:"status"`
	Progress     float64   `json:"progress"`
	OutputURL    string    `json:"output_url,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ProcessingOptions configure an ai-talk generation run.
type ProcessingOptions struct {
	EnableSmartClip bool `json:"enable_smart_clip"`
	EnableBroll     bool `json:"enable_broll"`
}

// ProcessingTask identifies a started generation job.
type ProcessingTask struct {
	TaskID string `json:"task_id"`
}
