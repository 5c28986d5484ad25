package api

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SessionView is the transport representation of a workflow session.
type SessionView struct {
	ID              int64           `json:"id"`
	SessionID       string          `json:"sessionId,omitempty"`
	ProjectID       string          `json:"projectId,omitempty"`
	Title           string          `json:"title"`
	Mode            string          `json:"mode"`
	Step            string          `json:"step"`
	SourceURL       string          `json:"sourceUrl,omitempty"`
	TaskID          string          `json:"taskId,omitempty"`
	Progress        SessionProgress `json:"progress"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	Advisory        string          `json:"advisory,omitempty"`
	NeedsReview     bool            `json:"needsReview"`
	ReviewReason    string          `json:"reviewReason,omitempty"`
	UploadFinalized bool            `json:"uploadFinalized"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
}

// SessionProgress reports where a session's current step stands.
type SessionProgress struct {
	Stage   string  `json:"stage,omitempty"`
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// StepHealthView reports one step handler's readiness.
type StepHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthReport aggregates store diagnostics and step handler readiness.
type HealthReport struct {
	StorePath     string           `json:"storePath"`
	SchemaVersion string           `json:"schemaVersion"`
	IntegrityOK   bool             `json:"integrityOk"`
	Sessions      SessionCounts    `json:"sessions"`
	Steps         []StepHealthView `json:"steps"`
}

// SessionCounts summarizes sessions per lifecycle state.
type SessionCounts struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Processing int `json:"processing"`
	Review     int `json:"review"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}
