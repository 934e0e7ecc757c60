package ai

import "context"

// Completer sends one system+user exchange to a chat model and returns the raw answer
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Task is the input of one agent call
type Task struct {
	Prompt string
	// Query is sent to the search tool when the agent has one.
	Query string
	// URL is fetched and summarized into the prompt when the agent reads pages.
	URL string
}

// Agent is a named remote worker that answers one task
type Agent interface {
	Name() string
	Run(ctx context.Context, task Task) (Response, error)
}
