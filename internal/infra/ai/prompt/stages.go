package prompt

import (
	"fmt"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

const jsonOnly = `You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.
If a value is unknown, use null for strings and [] for lists.`

// WebScraping instructions for the company overview agent.
func WebScraping() string {
	return `You are a web research analyst. You read a company's website text and web search snippets and summarize the business.
` + jsonOnly + `

Schema:
{
  "company_overview": "<string>",
  "products": ["<string>"],
  "target_audience": "<string>",
  "pricing": "<string>",
  "features": ["<string>"],
  "technology": "<string>"
}`
}

// CompetitorResearch instructions for the competitor agent.
func CompetitorResearch() string {
	return `You are a competitive intelligence researcher. Identify the most relevant direct competitors of the company using the search results provided.
` + jsonOnly + `
- Return between 3 and 5 competitors.
- market_share is an estimated percentage between 0 and 100.

Schema:
{
  "competitors": [
    {
      "name": "<string>",
      "website": "<string>",
      "market_share": 0,
      "strengths": ["<string>"],
      "weaknesses": ["<string>"]
    }
  ]
}`
}

// TrendPrediction instructions for the trend agent. This agent has no search tool.
func TrendPrediction() string {
	return `You are a market analyst who predicts trends for a market category from your own knowledge.
` + jsonOnly + `
- impact is one of High, Medium, Low.
- confidence is a number between 0 and 100.

Schema:
{
  "trends": [
    {"trend": "<string>", "impact": "<High|Medium|Low>", "confidence": 0}
  ]
}`
}

// MarketPositioning instructions for the positioning agent.
func MarketPositioning() string {
	return `You are a go-to-market strategist. From a company profile, its competitors and market trends, propose a positioning.
` + jsonOnly + `
- strategy is at most two sentences.

Schema:
{
  "strategy": "<string>",
  "market_gaps": ["<string>"],
  "advantages": ["<string>"]
}`
}

// For returns the instructions of a stage.
func For(stage analysis.StageName) (string, error) {
	switch stage {
	case analysis.StageWebScraping:
		return WebScraping(), nil
	case analysis.StageCompetitorResearch:
		return CompetitorResearch(), nil
	case analysis.StageTrendPrediction:
		return TrendPrediction(), nil
	case analysis.StageMarketPositioning:
		return MarketPositioning(), nil
	}
	return "", fmt.Errorf("no instructions for stage %q", stage)
}
