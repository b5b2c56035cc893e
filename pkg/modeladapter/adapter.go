// Package modeladapter defines the ModelAdapter capability: a single
// operation, decide(roundPayload) -> DecisionBundle, implemented by opaque
// concrete adapters that own their own timeout, retry, and rate-limit
// state. No inheritance, no reflection — the broker treats every Adapter
// uniformly through this one interface.
package modeladapter

import (
	"context"
	"time"

	"arena/pkg/decision"
	"arena/pkg/ledger"
	"arena/pkg/market"
)

// SessionInfo carries round-relative timing, shared across all models.
type SessionInfo struct {
	ElapsedMinutes float64
	Now            time.Time
	Round          int
}

// RoundPayload is the structured input given to every model in a round:
// shared session/market context plus the model's own AccountView.
type RoundPayload struct {
	Session SessionInfo
	Symbols []string
	Market  map[string]market.Snapshot
	Account ledger.AccountView
}

// Adapter is the ModelAdapter capability. A model is anything that,
// given the round payload, eventually yields a validated DecisionBundle.
type Adapter interface {
	// Decide returns a validated DecisionBundle or an error classified via
	// arenaerr.KindOf: Timeout, RateLimited, Transport, BadResponse, or
	// ValidationFailed.
	Decide(ctx context.Context, payload RoundPayload) (decision.Bundle, error)
}
