package search

import "context"

// Searcher is the web search tool handed to agents
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request generic search request
type Request struct {
	Query       string
	Topic       string // "general" or "news"
	SearchDepth string // "basic" or "advanced"
	MaxResults  int
}

// Response generic search response
type Response struct {
	Answer  string
	Results []Result
}

// Result single search hit
type Result struct {
	Title   string
	URL     string
	Content string
	Score   float64
}
