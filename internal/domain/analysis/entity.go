package analysis

import (
	"time"
)

// AnalysisID identifies one run of the analysis pipeline
type AnalysisID string

// CompanyID identifies a stored company
type CompanyID string

// Status enum for stored analyses and companies
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultUserID is used when a submit request carries no user name
const DefaultUserID = "default_user"

// CompanyProfile is the immutable input shared by all four stages
type CompanyProfile struct {
	Name               string `json:"name"`
	WebsiteURL         string `json:"website_url"`
	ProductDescription string `json:"product_description"`
	MarketCategory     string `json:"market_category"`
}

// Company stored record
type Company struct {
	ID                 CompanyID `json:"id"`
	Name               string    `json:"name"`
	WebsiteURL         string    `json:"website_url"`
	ProductDescription string    `json:"product_description"`
	MarketCategory     string    `json:"market_category"`
	AnalysisStatus     Status    `json:"analysis_status"`
	ScrapedData        string    `json:"scraped_data,omitempty"`
	UserID             string    `json:"user_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Profile returns the stage input for this company
func (c *Company) Profile() CompanyProfile {
	return CompanyProfile{
		Name:               c.Name,
		WebsiteURL:         c.WebsiteURL,
		ProductDescription: c.ProductDescription,
		MarketCategory:     c.MarketCategory,
	}
}

// Analysis stored record. The result columns hold JSON text exactly as written,
// readers must decode them defensively.
type Analysis struct {
	ID                    AnalysisID `json:"id"`
	CompanyID             CompanyID  `json:"company_id"`
	UserID                string     `json:"user_id"`
	Status                Status     `json:"status"`
	Competitors           string     `json:"competitors,omitempty"`
	MarketTrends          string     `json:"market_trends,omitempty"`
	MarketGaps            string     `json:"market_gaps,omitempty"`
	PositioningStrategy   string     `json:"positioning_strategy,omitempty"`
	CompetitiveAdvantages string     `json:"competitive_advantages,omitempty"`
	Error                 string     `json:"error,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ResultFields is the payload written when a run finishes
type ResultFields struct {
	Competitors           string
	MarketTrends          string
	MarketGaps            string
	PositioningStrategy   string
	CompetitiveAdvantages string
}
