// Package ledger implements the PaperLedger: one per-model instance of
// cash, positions, orders, and trades, with an embedded RiskGuard circuit
// breaker. Execution is synchronous with respect to its own ledger.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

// Order statuses.
const (
	OrderPending  OrderStatus = "pending"
	OrderFilled   OrderStatus = "filled"
	OrderRejected OrderStatus = "rejected"
)

// Side is the BUY/SELL verb an Order executes.
type Side string

// Order sides.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order is created only by the ledger; immutable once filled or rejected.
type Order struct {
	ID             string
	Symbol         string
	Action         Side
	RequestedSize  float64
	RequestedPrice float64
	ExecutedPrice  float64
	ExecutedAt     time.Time
	Status         OrderStatus
	Model          string
	Confidence     float64
	Reasoning      string
	Commission     float64
	RejectReason   string
}

// Position is created on first BUY of a flat symbol, size-weighted
// averaged on further BUYs, size-reduced on SELL, and destroyed when size
// reaches exactly zero.
type Position struct {
	Symbol        string
	Size          float64
	AvgEntryPrice float64
	OpenedAt      time.Time
}

// Trade is an immutable record of one filled execution, used to replay and
// reconstruct cash/positions from InitialCapital and to compute win rate.
type Trade struct {
	Symbol        string
	Action        Side
	Size          float64
	ExecutedPrice float64
	Commission    float64
	At            time.Time
}

// PositionView is a Position snapshot enriched with unrealized P&L at a
// given mark price.
type PositionView struct {
	Symbol         string
	Size           float64
	AvgEntryPrice  float64
	OpenedAt       time.Time
	UnrealizedPnL  float64
	UnrealizedPnLP float64
}

// AccountView is the read-only snapshot returned by State, suitable for
// embedding in a model's personalized round payload.
type AccountView struct {
	Cash            float64
	PositionValue   float64
	TotalValue      float64
	TotalReturnPct  float64
	DailyPnL        float64
	BreakerTripped  bool
	Positions       []PositionView
	WinRate         float64
	TradeCount      int
	InitialCapital  float64
}

func newOrderID() string {
	return uuid.NewString()
}
