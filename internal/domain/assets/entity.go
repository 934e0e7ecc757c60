package assets

import "time"

// AssetID identifier type
type AssetID string

// Style of a generated marketing script
type Style string

const (
	StyleProfessional Style = "professional"
	StyleCasual       Style = "casual"
	StyleTechnical    Style = "technical"
)

// StatusScriptGenerated is the status of an asset right after script generation
const StatusScriptGenerated = "script_generated"

// MarketingAsset is the stored record for generated marketing material
type MarketingAsset struct {
	ID            AssetID   `json:"id"`
	CompanyID     string    `json:"company_id"`
	AnalysisID    string    `json:"analysis_id"`
	UserID        string    `json:"user_id"`
	ScriptContent string    `json:"script_content,omitempty"`
	ScriptURL     string    `json:"script_url,omitempty"`
	AudioURL      string    `json:"audio_url,omitempty"`
	Images        string    `json:"images,omitempty"` // JSON text
	Duration      int       `json:"duration"`
	Style         Style     `json:"style,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Image is one generated (mocked) marketing image
type Image struct {
	URL       string  `json:"url"`
	Prompt    string  `json:"prompt"`
	Timestamp float64 `json:"timestamp"`
	Source    string  `json:"source"`
}
