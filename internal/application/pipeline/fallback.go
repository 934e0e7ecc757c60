package pipeline

import (
	"fmt"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

// FallbackOverview is used when the web scraping stage yields nothing usable
func FallbackOverview(p analysis.CompanyProfile) analysis.CompanyOverview {
	return analysis.CompanyOverview{
		CompanyOverview: fmt.Sprintf("%s is a company in the %s market.", p.Name, p.MarketCategory),
		Products:        []string{p.ProductDescription},
		TargetAudience:  "Small to medium businesses",
		Pricing:         "Competitive pricing model",
		Features:        []string{"Feature 1", "Feature 2"},
		Technology:      "Modern tech stack",
	}
}

func FallbackCompetitors() []analysis.Competitor {
	return []analysis.Competitor{
		{
			Name:        "Competitor A",
			Website:     "https://competitor-a.com",
			MarketShare: 30.0,
			Strengths:   []string{"Strong brand recognition", "Wide market presence"},
			Weaknesses:  []string{"High pricing", "Complex interface"},
		},
		{
			Name:        "Competitor B",
			Website:     "https://competitor-b.com",
			MarketShare: 25.5,
			Strengths:   []string{"Intuitive UX", "Mobile-first approach"},
			Weaknesses:  []string{"Limited features", "Smaller user base"},
		},
		{
			Name:        "Competitor C",
			Website:     "https://competitor-c.com",
			MarketShare: 20.0,
			Strengths:   []string{"Robust support", "Enterprise features"},
			Weaknesses:  []string{"Complex onboarding", "Higher learning curve"},
		},
	}
}

func FallbackTrends() []analysis.MarketTrend {
	return []analysis.MarketTrend{
		{Trend: "AI-Powered Features", Impact: "High", Confidence: 85},
		{Trend: "Mobile Optimization", Impact: "Medium", Confidence: 75},
		{Trend: "Sustainability Focus", Impact: "High", Confidence: 80},
	}
}

func FallbackPositioning(p analysis.CompanyProfile) analysis.Positioning {
	return analysis.Positioning{
		Strategy:   fmt.Sprintf("Position %s as a modern, user-first solution built for growth.", p.Name),
		MarketGaps: []string{"Lack of mobile-first tools", "Limited smart automation"},
		Advantages: []string{"User-centric design", "AI integration"},
	}
}
