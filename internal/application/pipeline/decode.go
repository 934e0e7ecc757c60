package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

var errEmptyPayload = errors.New("empty payload")

// DecodeOverview requires at least an overview sentence
func DecodeOverview(b []byte) (analysis.CompanyOverview, error) {
	var out analysis.CompanyOverview
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode overview: %w", err)
	}
	if strings.TrimSpace(out.CompanyOverview) == "" {
		return out, fmt.Errorf("decode overview: %w", errEmptyPayload)
	}
	return out, nil
}

// DecodeCompetitors accepts a bare array, a wrapper object
// ({"competitors": [...]}) or a single competitor object.
func DecodeCompetitors(b []byte) ([]analysis.Competitor, error) {
	list, err := decodeList[analysis.Competitor](b, "competitors")
	if err != nil {
		return nil, fmt.Errorf("decode competitors: %w", err)
	}
	out := list[:0]
	for _, c := range list {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decode competitors: %w", errEmptyPayload)
	}
	return out, nil
}

// DecodeTrends accepts the same shapes as DecodeCompetitors under "trends"
// or "market_trends".
func DecodeTrends(b []byte) ([]analysis.MarketTrend, error) {
	list, err := decodeList[analysis.MarketTrend](b, "trends", "market_trends")
	if err != nil {
		return nil, fmt.Errorf("decode trends: %w", err)
	}
	out := list[:0]
	for _, t := range list {
		if strings.TrimSpace(t.Trend) == "" {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decode trends: %w", errEmptyPayload)
	}
	return out, nil
}

func DecodePositioning(b []byte) (analysis.Positioning, error) {
	var out analysis.Positioning
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode positioning: %w", err)
	}
	if strings.TrimSpace(out.Strategy) == "" && len(out.MarketGaps) == 0 && len(out.Advantages) == 0 {
		return out, fmt.Errorf("decode positioning: %w", errEmptyPayload)
	}
	return out, nil
}

func decodeList[T any](b []byte, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, errEmptyPayload
	}
	if trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	for _, k := range keys {
		raw, ok := wrapper[k]
		if !ok {
			continue
		}
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	// JSON mode forces an object; a lone item comes back unwrapped
	var single T
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []T{single}, nil
}
