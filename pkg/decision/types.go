// Package decision defines the Decision/DecisionBundle shape and the
// ResponseValidator that normalizes raw model output (single-object or
// multi-asset array) into a validated bundle.
package decision

// Action is one of the three decision verbs a model may emit.
type Action string

// Supported actions.
const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is one model's action for one symbol in one round.
type Decision struct {
	Symbol       string
	Action       Action
	Confidence   float64
	Reasoning    string
	PositionSize float64
	StopLoss     *float64
	TakeProfit   *float64
}

// Bundle is an ordered sequence of Decisions for one model in one round,
// unique by Symbol.
type Bundle []Decision
