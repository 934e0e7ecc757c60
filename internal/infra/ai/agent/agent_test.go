package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/bryanwahyu/competeiq/internal/domain/ai"
	"github.com/bryanwahyu/competeiq/internal/domain/search"
	"github.com/bryanwahyu/competeiq/internal/testutil"
)

type pageFunc func(ctx context.Context, url string) (string, error)

func (f pageFunc) Read(ctx context.Context, url string) (string, error) { return f(ctx, url) }

func TestRun_UsesPageAndSearch(t *testing.T) {
	llm := &testutil.MockCompleter{Reply: `{"company_overview":"Acme makes widgets"}`}
	searcher := &testutil.MockSearcher{Response: &search.Response{
		Answer:  "Acme is a widget maker",
		Results: []search.Result{{Title: "Acme", URL: "https://acme.example.com", Content: "widgets"}},
	}}
	a := &Agent{
		AgentName:    "web_scraping_agent",
		Instructions: "summarize",
		Completer:    llm,
		Search:       searcher,
		Pages: pageFunc(func(ctx context.Context, url string) (string, error) {
			assert.Equal(t, "https://acme.example.com", url)
			return "Acme homepage text", nil
		}),
		Limiter:     rate.NewLimiter(rate.Inf, 1),
		SearchDepth: "advanced",
		MaxResults:  3,
	}

	resp, err := a.Run(testutil.NewTestContext(t), ai.Task{
		Prompt: "Company: Acme",
		Query:  "acme overview",
		URL:    "https://acme.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, ai.KindStructured, resp.Kind)

	assert.Equal(t, "summarize", llm.LastSystem)
	user := llm.GetLastUser()
	assert.True(t, strings.HasPrefix(user, "Company: Acme"))
	assert.Contains(t, user, "Website content:\nAcme homepage text")
	assert.Contains(t, user, "Summary: Acme is a widget maker")
	assert.Contains(t, user, "1. Acme (https://acme.example.com)")

	require.Len(t, searcher.Requests, 1)
	assert.Equal(t, search.Request{Query: "acme overview", SearchDepth: "advanced", MaxResults: 3}, searcher.Requests[0])
}

func TestRun_ToolFailuresStillAskModel(t *testing.T) {
	llm := &testutil.MockCompleter{Reply: "plain words"}
	a := &Agent{
		AgentName: "competitor_research_agent",
		Completer: llm,
		Search:    &testutil.MockSearcher{Err: errors.New("search down")},
		Pages: pageFunc(func(ctx context.Context, url string) (string, error) {
			return "", errors.New("dns")
		}),
	}

	resp, err := a.Run(testutil.NewTestContext(t), ai.Task{Prompt: "find", Query: "q", URL: "https://x.example.com"})
	require.NoError(t, err)
	assert.Equal(t, ai.KindText, resp.Kind)
	assert.Equal(t, "find", llm.GetLastUser())
}

func TestRun_NoQuerySkipsSearch(t *testing.T) {
	searcher := &testutil.MockSearcher{}
	a := &Agent{AgentName: "trend_prediction_agent", Completer: &testutil.MockCompleter{Reply: "{}"}, Search: searcher}

	_, err := a.Run(testutil.NewTestContext(t), ai.Task{Prompt: "trends"})
	require.NoError(t, err)
	assert.Empty(t, searcher.Requests)
}

func TestRun_ModelError(t *testing.T) {
	a := &Agent{AgentName: "x", Completer: &testutil.MockCompleter{Err: ai.ErrQuotaExceeded}}
	_, err := a.Run(testutil.NewTestContext(t), ai.Task{Prompt: "p"})
	require.ErrorIs(t, err, ai.ErrQuotaExceeded)

	_, err = (&Agent{AgentName: "y"}).Run(testutil.NewTestContext(t), ai.Task{})
	require.Error(t, err)
}

func TestRun_LimiterHonorsContext(t *testing.T) {
	llm := &testutil.MockCompleter{Reply: "{}"}
	a := &Agent{AgentName: "x", Completer: llm, Limiter: rate.NewLimiter(rate.Limit(0.001), 1)}

	ctx := testutil.NewTestContext(t)
	_, err := a.Run(ctx, ai.Task{Prompt: "first"})
	require.NoError(t, err)

	ctx2, cancel := context.WithCancel(ctx)
	cancel()
	_, err = a.Run(ctx2, ai.Task{Prompt: "second"})
	require.Error(t, err)
	assert.Equal(t, 1, llm.CallCount)
}

func TestRun_ClipsContext(t *testing.T) {
	llm := &testutil.MockCompleter{Reply: "{}"}
	a := &Agent{
		AgentName:  "x",
		Completer:  llm,
		MaxContext: 10,
		Pages: pageFunc(func(ctx context.Context, url string) (string, error) {
			return strings.Repeat("a", 100), nil
		}),
	}
	_, err := a.Run(testutil.NewTestContext(t), ai.Task{Prompt: "p", URL: "https://x.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "p\n\nWebsite co", llm.GetLastUser())
}
