package pipeline

import "github.com/bryanwahyu/competeiq/internal/domain/analysis"

// Assemble merges the stage outputs into the report. Nil lists become empty
// lists so the report always encodes as arrays.
func Assemble(competitors []analysis.Competitor, trends []analysis.MarketTrend, positioning analysis.Positioning) analysis.Report {
	return analysis.Report{
		Competitors:           nonNil(competitors),
		MarketTrends:          nonNil(trends),
		MarketGaps:            nonNil(positioning.MarketGaps),
		PositioningStrategy:   positioning.Strategy,
		CompetitiveAdvantages: nonNil(positioning.Advantages),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
