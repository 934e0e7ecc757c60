package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/competeiq/internal/domain/ai"
	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/testutil"
)

func TestResolve(t *testing.T) {
	callErr := errors.New("connection reset")

	tests := []struct {
		name      string
		resp      ai.Response
		err       error
		wantKind  OutcomeKind
		wantCause error
		wantFirst string
	}{
		{
			name:      "structured answer",
			resp:      ai.NewResponse(`[{"name":"Globex","website":"g.com","market_share":1}]`),
			wantKind:  Live,
			wantFirst: "Globex",
		},
		{
			name:      "text answer with fenced json",
			resp:      ai.Text("Here:\n```json\n{\"competitors\":[{\"name\":\"Initech\"}]}\n```"),
			wantKind:  Live,
			wantFirst: "Initech",
		},
		{
			name:      "call error",
			err:       callErr,
			wantKind:  Fallback,
			wantCause: callErr,
			wantFirst: "Competitor A",
		},
		{
			name:      "prose only",
			resp:      ai.Text("I could not find competitors."),
			wantKind:  Fallback,
			wantCause: ai.ErrUnstructured,
			wantFirst: "Competitor A",
		},
		{
			name:      "empty list",
			resp:      ai.NewResponse(`{"competitors":[]}`),
			wantKind:  Fallback,
			wantCause: errEmptyPayload,
			wantFirst: "Competitor A",
		},
		{
			name:      "wrong shape",
			resp:      ai.NewResponse(`{"competitors":"none"}`),
			wantKind:  Fallback,
			wantFirst: "Competitor A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve(tt.resp, tt.err, DecodeCompetitors, FallbackCompetitors)
			assert.Equal(t, tt.wantKind, out.Kind)
			require.NotEmpty(t, out.Value)
			assert.Equal(t, tt.wantFirst, out.Value[0].Name)
			if tt.wantKind == Live {
				assert.NoError(t, out.Cause)
				assert.False(t, out.Degraded())
				return
			}
			assert.True(t, out.Degraded())
			require.Error(t, out.Cause)
			if tt.wantCause != nil {
				assert.ErrorIs(t, out.Cause, tt.wantCause)
			}
		})
	}
}

func TestResolve_OverviewFallbackUsesProfile(t *testing.T) {
	p := testutil.NewTestProfile()
	out := Resolve(ai.Response{}, errors.New("down"), DecodeOverview, func() analysis.CompanyOverview { return FallbackOverview(p) })

	assert.Equal(t, Fallback, out.Kind)
	assert.Equal(t, "Acme is a company in the SaaS market.", out.Value.CompanyOverview)
	assert.Equal(t, []string{"Widgets for teams"}, out.Value.Products)
	assert.Equal(t, "Small to medium businesses", out.Value.TargetAudience)
	assert.Equal(t, "Competitive pricing model", out.Value.Pricing)
	assert.Equal(t, []string{"Feature 1", "Feature 2"}, out.Value.Features)
	assert.Equal(t, "Modern tech stack", out.Value.Technology)
}

func TestDecodeTrends(t *testing.T) {
	got, err := DecodeTrends([]byte(`{"market_trends":[{"trend":"Edge AI","impact":"High","confidence":70},{"trend":""}]}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, analysis.MarketTrend{Trend: "Edge AI", Impact: "High", Confidence: 70}, got[0])

	got, err = DecodeTrends([]byte(`{"trend":"Solo","impact":"Low","confidence":10}`))
	require.NoError(t, err)
	assert.Equal(t, "Solo", got[0].Trend)

	_, err = DecodeTrends([]byte(`[]`))
	assert.ErrorIs(t, err, errEmptyPayload)
}

func TestResolve_PercentStringsKeepLiveRows(t *testing.T) {
	resp := ai.NewResponse(`{"competitors":[
		{"name":"Acme","website":"https://acme.example.com","market_share":12.5,"strengths":["Brand"],"weaknesses":["Price"]},
		{"name":"Globex","website":"https://globex.example.com","market_share":"25%","strengths":[],"weaknesses":[]}
	]}`)
	out := Resolve(resp, nil, DecodeCompetitors, FallbackCompetitors)
	require.Equal(t, Live, out.Kind, "cause: %v", out.Cause)
	require.Len(t, out.Value, 2)
	assert.Equal(t, "Acme", out.Value[0].Name)
	assert.Equal(t, analysis.Number(12.5), out.Value[0].MarketShare)
	assert.Equal(t, analysis.Number(25), out.Value[1].MarketShare)

	trends := Resolve(ai.NewResponse(`{"trends":[{"trend":"Edge AI","impact":"High","confidence":"85%"},{"trend":"Voice","impact":"Low","confidence":"0.6"}]}`),
		nil, DecodeTrends, FallbackTrends)
	require.Equal(t, Live, trends.Kind, "cause: %v", trends.Cause)
	assert.Equal(t, analysis.Number(85), trends.Value[0].Confidence)
	assert.Equal(t, analysis.Number(0.6), trends.Value[1].Confidence)
}

func TestDecodePositioning(t *testing.T) {
	got, err := DecodePositioning([]byte(`{"strategy":"Be fast","market_gaps":["A"],"advantages":["B"]}`))
	require.NoError(t, err)
	assert.Equal(t, "Be fast", got.Strategy)

	_, err = DecodePositioning([]byte(`{}`))
	assert.ErrorIs(t, err, errEmptyPayload)
}

func TestDecodeOverview_RequiresOverview(t *testing.T) {
	_, err := DecodeOverview([]byte(`{"company_overview":null,"products":null}`))
	assert.ErrorIs(t, err, errEmptyPayload)
}

func TestFallbackTrends_AreDeterministic(t *testing.T) {
	trends := FallbackTrends()
	require.Len(t, trends, 3)
	assert.Equal(t, analysis.MarketTrend{Trend: "AI-Powered Features", Impact: "High", Confidence: 85}, trends[0])
	assert.Equal(t, analysis.MarketTrend{Trend: "Mobile Optimization", Impact: "Medium", Confidence: 75}, trends[1])
	assert.Equal(t, analysis.MarketTrend{Trend: "Sustainability Focus", Impact: "High", Confidence: 80}, trends[2])
	assert.Equal(t, FallbackTrends(), trends)
}

func TestFallbackCompetitors(t *testing.T) {
	c := FallbackCompetitors()
	require.Len(t, c, 3)
	assert.Equal(t, analysis.Number(30.0), c[0].MarketShare)
	assert.Equal(t, analysis.Number(25.5), c[1].MarketShare)
	assert.Equal(t, analysis.Number(20.0), c[2].MarketShare)
	assert.Equal(t, []string{"Complex onboarding", "Higher learning curve"}, c[2].Weaknesses)
}

func TestAssemble(t *testing.T) {
	rep := Assemble(nil, nil, analysis.Positioning{})
	assert.NotNil(t, rep.Competitors)
	assert.NotNil(t, rep.MarketTrends)
	assert.NotNil(t, rep.MarketGaps)
	assert.NotNil(t, rep.CompetitiveAdvantages)
	assert.Equal(t, "", rep.PositioningStrategy)

	p := FallbackPositioning(testutil.NewTestProfile())
	rep = Assemble(FallbackCompetitors(), FallbackTrends(), p)
	assert.Equal(t, "Position Acme as a modern, user-first solution built for growth.", rep.PositioningStrategy)
	assert.Equal(t, p.MarketGaps, rep.MarketGaps)
	assert.Equal(t, p.Advantages, rep.CompetitiveAdvantages)
	assert.Len(t, rep.Competitors, 3)
}
