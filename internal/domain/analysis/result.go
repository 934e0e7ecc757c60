package analysis

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a float that also decodes from model output such as "25", "25%"
// or "25.5 %". Null and unparsable strings decode to 0 so one odd field does
// not discard the entry around it.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] != '"' {
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = 0
	}
	*n = Number(f)
	return nil
}

// CompanyOverview is the web scraping stage payload
type CompanyOverview struct {
	CompanyOverview string   `json:"company_overview"`
	Products        []string `json:"products"`
	TargetAudience  string   `json:"target_audience"`
	Pricing         string   `json:"pricing"`
	Features        []string `json:"features"`
	Technology      string   `json:"technology"`
}

// Competitor is one entry of the competitor research stage payload
type Competitor struct {
	Name        string   `json:"name"`
	Website     string   `json:"website"`
	MarketShare Number   `json:"market_share"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
}

// MarketTrend is one entry of the trend prediction stage payload
type MarketTrend struct {
	Trend      string  `json:"trend"`
	Impact     string  `json:"impact"`
	Confidence Number  `json:"confidence"`
}

// Positioning is the market positioning stage payload
type Positioning struct {
	Strategy   string   `json:"strategy"`
	MarketGaps []string `json:"market_gaps"`
	Advantages []string `json:"advantages"`
}

// Report is the assembled output of a run
type Report struct {
	Competitors           []Competitor  `json:"competitors"`
	MarketTrends          []MarketTrend `json:"market_trends"`
	MarketGaps            []string      `json:"market_gaps"`
	PositioningStrategy   string        `json:"positioning_strategy"`
	CompetitiveAdvantages []string      `json:"competitive_advantages"`
}
