package analysis

// StageName of one of the four pipeline steps
type StageName string

const (
	StageWebScraping        StageName = "web_scraping"
	StageCompetitorResearch StageName = "competitor_research"
	StageTrendPrediction    StageName = "trend_prediction"
	StageMarketPositioning  StageName = "market_positioning"
)

// StageStatus of a single step
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageFailed     StageStatus = "failed"
)

// Values used in Snapshot.CurrentStep besides stage names
const (
	CurrentStepUnknown   = "unknown"
	CurrentStepCompleted = "completed"
	CurrentStepFailed    = "failed"
)

// StageSpec names a stage and the agent that serves it
type StageSpec struct {
	Name  StageName
	Agent string
}

// DefaultStages returns the four stages in execution order
func DefaultStages() []StageSpec {
	return []StageSpec{
		{Name: StageWebScraping, Agent: "web_scraping_agent"},
		{Name: StageCompetitorResearch, Agent: "competitor_research_agent"},
		{Name: StageTrendPrediction, Agent: "trend_prediction_agent"},
		{Name: StageMarketPositioning, Agent: "market_positioning_agent"},
	}
}

// Step is the tracked state of one stage
type Step struct {
	Name     StageName   `json:"name"`
	Status   StageStatus `json:"status"`
	Progress int         `json:"progress"`
	Agent    string      `json:"agent"`
	Degraded bool        `json:"degraded,omitempty"`
}

// Snapshot is a point-in-time copy of a run's progress
type Snapshot struct {
	CurrentStep string `json:"current_step"`
	Progress    int    `json:"progress"`
	Steps       []Step `json:"steps"`
	Error       string `json:"error,omitempty"`
}

// UnknownSnapshot is returned for ids the tracker does not know
func UnknownSnapshot() Snapshot {
	return Snapshot{CurrentStep: CurrentStepUnknown, Progress: 0, Steps: []Step{}}
}

// Event is pushed to push-channel subscribers on every step update
type Event struct {
	Stage    StageName   `json:"stage"`
	Progress int         `json:"progress"`
	Status   StageStatus `json:"status"`
	Message  string      `json:"message"`
}
