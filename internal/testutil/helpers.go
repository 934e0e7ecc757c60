package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

// TestTimeout provides a standard timeout for test contexts
const TestTimeout = 5 * time.Second

// NewTestContext creates a context with standard test timeout
func NewTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// NewTestProfile creates a company profile for tests
func NewTestProfile() analysis.CompanyProfile {
	return analysis.CompanyProfile{
		Name:               "Acme",
		WebsiteURL:         "https://acme.example.com",
		ProductDescription: "Widgets for teams",
		MarketCategory:     "SaaS",
	}
}

// FixedClock always returns T
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// Canned agent answers for a fully live run
const (
	OverviewReply    = `{"company_overview":"Acme builds widgets","products":["Widget"],"target_audience":"Teams","pricing":"Subscription","features":["Sync"],"technology":"Go"}`
	CompetitorsReply = `{"competitors":[{"name":"Globex","website":"https://globex.example.com","market_share":12.5,"strengths":["Brand"],"weaknesses":["Price"]}]}`
	TrendsReply      = "```json\n[{\"trend\":\"Automation\",\"impact\":\"High\",\"confidence\":90}]\n```"
	PositioningReply = `{"strategy":"Own the small team segment","market_gaps":["Onboarding"],"advantages":["Speed"]}`
)
