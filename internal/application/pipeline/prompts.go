package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/competeiq/internal/domain/ai"
	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

func overviewTask(p analysis.CompanyProfile) ai.Task {
	return ai.Task{
		Prompt: fmt.Sprintf(`Company: %s
Website: %s

Please provide a structured response with the following fields:
- company_overview, products, target_audience, pricing, features & technology.
If you do not find a field value, return null for it.`, p.Name, p.WebsiteURL),
		Query: fmt.Sprintf("%s %s company overview products pricing", p.Name, p.WebsiteURL),
		URL:   p.WebsiteURL,
	}
}

func competitorTask(p analysis.CompanyProfile, overview analysis.CompanyOverview) ai.Task {
	return ai.Task{
		Prompt: fmt.Sprintf(`Find competitors of %s in the %s space.

Company overview: %s
Products: %s

Respond with {"competitors": [{"name", "website", "market_share", "strengths", "weaknesses"}]}.`,
			p.Name, p.MarketCategory, overview.CompanyOverview, strings.Join(overview.Products, ", ")),
		Query: fmt.Sprintf("top competitors of %s %s", p.Name, p.MarketCategory),
	}
}

func trendTask(p analysis.CompanyProfile, competitors []analysis.Competitor) ai.Task {
	names := make([]string, 0, len(competitors))
	for _, c := range competitors {
		names = append(names, c.Name)
	}
	return ai.Task{
		Prompt: fmt.Sprintf(`Identify and analyze the top trends in the %s market.
Known competitors: %s

Provide json {"trends": [{"trend", "impact", "confidence"}]} where impact is High, Medium or Low
and confidence is a number between 0 and 100.
Ensure the response is in valid JSON format with these exact field names.`,
			p.MarketCategory, strings.Join(names, ", ")),
	}
}

func positioningTask(p analysis.CompanyProfile, overview analysis.CompanyOverview, competitors []analysis.Competitor, trends []analysis.MarketTrend, userName string) ai.Task {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the company's %s profile, suggest market gaps it can fill with competitive advantages it offers.\n\n", p.Name)
	fmt.Fprintf(&b, "Profile: %s\n", compactJSON(overview))
	fmt.Fprintf(&b, "Competitors: %s\n", compactJSON(competitors))
	fmt.Fprintf(&b, "Trends: %s\n", compactJSON(trends))
	b.WriteString(`Respond with {"strategy", "market_gaps", "advantages"}.`)
	if userName != "" {
		fmt.Fprintf(&b, "\n\nAnalysis requested by: %s", userName)
	}
	return ai.Task{
		Prompt: b.String(),
		Query:  fmt.Sprintf("%s market gaps %s", p.MarketCategory, p.Name),
	}
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
