package agent

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/bryanwahyu/competeiq/internal/domain/ai"
	"github.com/bryanwahyu/competeiq/internal/domain/search"
	"github.com/bryanwahyu/competeiq/internal/logger"
)

// PageReader turns a URL into plain text
type PageReader interface {
	Read(ctx context.Context, url string) (string, error)
}

const defaultMaxContext = 6000

// Agent is a remote LLM worker with optional page reading and web search tools.
// Tool failures are logged and the model is asked anyway with what is left.
type Agent struct {
	AgentName    string
	Instructions string
	Completer    ai.Completer
	Search       search.Searcher
	Pages        PageReader
	Limiter      *rate.Limiter

	SearchDepth string
	MaxResults  int
	MaxContext  int
}

// Name implements ai.Agent
func (a *Agent) Name() string { return a.AgentName }

// Run implements ai.Agent
func (a *Agent) Run(ctx context.Context, task ai.Task) (ai.Response, error) {
	if a.Completer == nil {
		return ai.Response{}, fmt.Errorf("agent %s: no model configured", a.AgentName)
	}
	log := logger.Log.WithField("agent", a.AgentName)

	var sections []string
	if a.Pages != nil && task.URL != "" {
		text, err := a.Pages.Read(ctx, task.URL)
		if err != nil {
			log.WithError(err).Warn("page read failed")
		} else if text != "" {
			sections = append(sections, "Website content:\n"+text)
		}
	}
	if a.Search != nil && task.Query != "" {
		resp, err := a.Search.Search(ctx, &search.Request{
			Query:       task.Query,
			SearchDepth: a.SearchDepth,
			MaxResults:  a.MaxResults,
		})
		if err != nil {
			log.WithError(err).Warn("web search failed")
		} else if s := formatResults(resp); s != "" {
			sections = append(sections, s)
		}
	}

	user := task.Prompt
	if ctxText := a.clip(strings.Join(sections, "\n\n")); ctxText != "" {
		user += "\n\n" + ctxText
	}

	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return ai.Response{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	raw, err := a.Completer.Complete(ctx, a.Instructions, user)
	if err != nil {
		return ai.Response{}, fmt.Errorf("agent %s: %w", a.AgentName, err)
	}
	return ai.NewResponse(raw), nil
}

func (a *Agent) clip(s string) string {
	max := a.MaxContext
	if max <= 0 {
		max = defaultMaxContext
	}
	if r := []rune(s); len(r) > max {
		return string(r[:max])
	}
	return s
}

func formatResults(resp *search.Response) string {
	if resp == nil || (resp.Answer == "" && len(resp.Results) == 0) {
		return ""
	}
	var b strings.Builder
	b.WriteString("Search results:\n")
	if resp.Answer != "" {
		fmt.Fprintf(&b, "Summary: %s\n", resp.Answer)
	}
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.URL, r.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
