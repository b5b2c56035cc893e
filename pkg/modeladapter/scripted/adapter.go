// Package scripted implements a modeladapter.Adapter that returns canned
// bundles or errors in sequence, for deterministic tests and CI runs that
// should not require live model credentials.
package scripted

import (
	"context"
	"sync"

	"arena/pkg/decision"
	"arena/pkg/modeladapter"
)

// Step is one scripted response: either a Bundle or an Err, never both.
type Step struct {
	Bundle decision.Bundle
	Err    error
}

// Adapter replays a fixed script of Steps, one per Decide call; once the
// script is exhausted it repeats the last step.
type Adapter struct {
	mu     sync.Mutex
	steps  []Step
	cursor int
}

// New constructs a scripted Adapter that replays steps in order.
func New(steps ...Step) *Adapter {
	return &Adapter{steps: steps}
}

// Decide returns the next scripted Step, ignoring payload entirely.
func (a *Adapter) Decide(_ context.Context, _ modeladapter.RoundPayload) (decision.Bundle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.steps) == 0 {
		return decision.Bundle{}, nil
	}
	idx := a.cursor
	if idx >= len(a.steps) {
		idx = len(a.steps) - 1
	} else {
		a.cursor++
	}
	step := a.steps[idx]
	return step.Bundle, step.Err
}
