package pipeline

import (
	"github.com/bryanwahyu/competeiq/internal/domain/ai"
)

// OutcomeKind tells whether a stage value came from the agent or the fallback
type OutcomeKind int

const (
	Live OutcomeKind = iota + 1
	Fallback
)

func (k OutcomeKind) String() string {
	switch k {
	case Live:
		return "live"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Outcome of one stage. Cause is set only for Fallback.
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	Cause error
}

// Degraded reports whether the fallback value was used
func (o Outcome[T]) Degraded() bool { return o.Kind == Fallback }

// Resolve turns an agent answer into a stage value. It never returns an error:
// a call error, an answer without a JSON payload, or a payload that does not
// decode all resolve to the fallback value with the cause attached.
func Resolve[T any](resp ai.Response, err error, decode func([]byte) (T, error), fallback func() T) Outcome[T] {
	if err != nil {
		return Outcome[T]{Kind: Fallback, Value: fallback(), Cause: err}
	}
	payload, err := resp.Payload()
	if err != nil {
		return Outcome[T]{Kind: Fallback, Value: fallback(), Cause: err}
	}
	v, err := decode(payload)
	if err != nil {
		return Outcome[T]{Kind: Fallback, Value: fallback(), Cause: err}
	}
	return Outcome[T]{Kind: Live, Value: v}
}
