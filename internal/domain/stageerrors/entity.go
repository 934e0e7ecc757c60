package stageerrors

import "time"

// Phase in which a stage error was recorded
const (
	PhaseFallback = "fallback"
	PhaseStorage  = "storage"
	PhaseRun      = "run"
)

// StageError represents a persisted stage or run error entry
type StageError struct {
	ID          int64     `json:"id"`
	AnalysisID  string    `json:"analysis_id"`
	Stage       string    `json:"stage,omitempty"`
	Phase       string    `json:"phase,omitempty"` // fallback | storage | run
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
