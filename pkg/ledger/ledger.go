package ledger

import (
	"sync"
	"time"

	"arena/pkg/arenaerr"
)

// Config carries the paper-trading execution parameters for one ledger.
type Config struct {
	InitialCapital   float64
	Slippage         float64 // sigma
	CommissionRate   float64 // kappa
	MinOrderUSD      float64
	MaxDailyLossFrac float64 // fraction of InitialCapital, e.g. 0.05
}

// Ledger is the PaperLedger: exclusively owns its cash, positions, orders,
// and trades. Every mutating method is serialized behind mu; nothing
// outside the ledger mutates these fields.
type Ledger struct {
	mu sync.Mutex

	cfg Config

	cash           float64
	positions      map[string]*Position
	orders         []Order
	trades         []Trade
	dailyPnL       float64
	breakerTripped bool

	now func() time.Time
}

// New constructs a Ledger seeded with cfg.InitialCapital in cash.
func New(cfg Config) *Ledger {
	return &Ledger{
		cfg:       cfg,
		cash:      cfg.InitialCapital,
		positions: make(map[string]*Position),
		now:       time.Now,
	}
}

// Execute applies a BUY or SELL order against refPrice. It enforces, in
// order: circuit breaker, request validation, minimum order size, and
// (for BUY) sufficient cash / (for SELL) sufficient position size. On any
// failure after the breaker check, a rejected Order is appended and cash
// and positions are left untouched.
func (l *Ledger) Execute(symbol string, action Side, requestedSize, refPrice float64, model, reasoning string, confidence float64) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.breakerTripped {
		return l.reject(symbol, action, requestedSize, refPrice, model, reasoning, confidence,
			"circuit breaker tripped"), arenaerr.New(arenaerr.KindCircuitBreakerTripped, "ledger: breaker tripped, rejecting %s %s", action, symbol)
	}

	if action != SideBuy && action != SideSell {
		return l.reject(symbol, action, requestedSize, refPrice, model, reasoning, confidence,
			"invalid action"), arenaerr.New(arenaerr.KindInvalidOrder, "ledger: invalid action %q", action)
	}
	if requestedSize <= 0 {
		return l.reject(symbol, action, requestedSize, refPrice, model, reasoning, confidence,
			"requested size must be positive"), arenaerr.New(arenaerr.KindInvalidOrder, "ledger: requestedSize must be positive")
	}
	if refPrice <= 0 {
		return l.reject(symbol, action, requestedSize, refPrice, model, reasoning, confidence,
			"reference price must be positive"), arenaerr.New(arenaerr.KindInvalidOrder, "ledger: refPrice must be positive")
	}
	if requestedSize*refPrice < l.cfg.MinOrderUSD {
		return l.reject(symbol, action, requestedSize, refPrice, model, reasoning, confidence,
			"below minimum order size"), arenaerr.New(arenaerr.KindInvalidOrder, "ledger: notional below minimum order size")
	}

	var executedPrice float64
	if action == SideBuy {
		executedPrice = refPrice * (1 + l.cfg.Slippage)
	} else {
		executedPrice = refPrice * (1 - l.cfg.Slippage)
	}
	notional := executedPrice * requestedSize
	commission := notional * l.cfg.CommissionRate

	if action == SideBuy {
		if notional+commission > l.cash {
			return l.reject(symbol, action, requestedSize, refPrice, model, reasoning, confidence,
				"insufficient funds"), arenaerr.New(arenaerr.KindInsufficientFunds, "ledger: insufficient funds for BUY %s", symbol)
		}
		l.cash -= notional + commission
		if pos, ok := l.positions[symbol]; ok {
			newSize := pos.Size + requestedSize
			pos.AvgEntryPrice = (pos.AvgEntryPrice*pos.Size + executedPrice*requestedSize) / newSize
			pos.Size = newSize
		} else {
			l.positions[symbol] = &Position{Symbol: symbol, Size: requestedSize, AvgEntryPrice: executedPrice, OpenedAt: l.now()}
		}
	} else {
		pos, ok := l.positions[symbol]
		if !ok || pos.Size < requestedSize {
			return l.reject(symbol, action, requestedSize, refPrice, model, reasoning, confidence,
				"no sufficient position to sell"), arenaerr.New(arenaerr.KindInvalidOrder, "ledger: no sufficient position to sell %s", symbol)
		}
		l.cash += notional - commission
		l.dailyPnL += (executedPrice-pos.AvgEntryPrice)*requestedSize - commission
		pos.Size -= requestedSize
		if pos.Size <= 0 {
			delete(l.positions, symbol)
		}
		if l.dailyPnL < -l.cfg.MaxDailyLossFrac*l.cfg.InitialCapital {
			l.breakerTripped = true
		}
	}

	order := Order{
		ID:             newOrderID(),
		Symbol:         symbol,
		Action:         action,
		RequestedSize:  requestedSize,
		RequestedPrice: refPrice,
		ExecutedPrice:  executedPrice,
		ExecutedAt:     l.now(),
		Status:         OrderFilled,
		Model:          model,
		Confidence:     confidence,
		Reasoning:      reasoning,
		Commission:     commission,
	}
	l.orders = append(l.orders, order)
	l.trades = append(l.trades, Trade{
		Symbol:        symbol,
		Action:        action,
		Size:          requestedSize,
		ExecutedPrice: executedPrice,
		Commission:    commission,
		At:            order.ExecutedAt,
	})
	return order, nil
}

func (l *Ledger) reject(symbol string, action Side, requestedSize, refPrice float64, model, reasoning string, confidence float64, reason string) Order {
	order := Order{
		ID:             newOrderID(),
		Symbol:         symbol,
		Action:         action,
		RequestedSize:  requestedSize,
		RequestedPrice: refPrice,
		Status:         OrderRejected,
		Model:          model,
		Confidence:     confidence,
		Reasoning:      reasoning,
		RejectReason:   reason,
	}
	l.orders = append(l.orders, order)
	return order
}

// State returns a read-only AccountView at the given mark prices.
func (l *Ledger) State(pxMap map[string]float64) AccountView {
	l.mu.Lock()
	defer l.mu.Unlock()

	positionValue := 0.0
	views := make([]PositionView, 0, len(l.positions))
	for symbol, pos := range l.positions {
		px := pxMap[symbol]
		value := pos.Size * px
		positionValue += value
		unrealized := (px - pos.AvgEntryPrice) * pos.Size
		unrealizedPct := 0.0
		if pos.AvgEntryPrice > 0 {
			unrealizedPct = (px - pos.AvgEntryPrice) / pos.AvgEntryPrice
		}
		views = append(views, PositionView{
			Symbol:         symbol,
			Size:           pos.Size,
			AvgEntryPrice:  pos.AvgEntryPrice,
			OpenedAt:       pos.OpenedAt,
			UnrealizedPnL:  unrealized,
			UnrealizedPnLP: unrealizedPct,
		})
	}

	totalValue := l.cash + positionValue
	totalReturnPct := 0.0
	if l.cfg.InitialCapital > 0 {
		totalReturnPct = (totalValue - l.cfg.InitialCapital) / l.cfg.InitialCapital
	}

	return AccountView{
		Cash:           l.cash,
		PositionValue:  positionValue,
		TotalValue:     totalValue,
		TotalReturnPct: totalReturnPct,
		DailyPnL:       l.dailyPnL,
		BreakerTripped: l.breakerTripped,
		Positions:      views,
		WinRate:        l.winRateLocked(),
		TradeCount:     len(l.trades),
		InitialCapital: l.cfg.InitialCapital,
	}
}

// winRateLocked replays trades in order maintaining a per-symbol weighted
// average BUY price; each SELL counts as one closed trade, winning iff
// sellPrice > avgBuyPrice*(1+2*kappa). Must be called with mu held.
func (l *Ledger) winRateLocked() float64 {
	type avg struct {
		totalSize float64
		avgPrice  float64
	}
	running := make(map[string]avg)
	closed, wins := 0, 0

	for _, tr := range l.trades {
		switch tr.Action {
		case SideBuy:
			a := running[tr.Symbol]
			newTotal := a.totalSize + tr.Size
			if newTotal > 0 {
				a.avgPrice = (a.avgPrice*a.totalSize + tr.ExecutedPrice*tr.Size) / newTotal
				a.totalSize = newTotal
			}
			running[tr.Symbol] = a
		case SideSell:
			a := running[tr.Symbol]
			closed++
			if tr.ExecutedPrice > a.avgPrice*(1+2*l.cfg.CommissionRate) {
				wins++
			}
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed)
}

// Position returns a copy of the current position in symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// ResetDaily clears dailyPnL and unsets the circuit breaker.
func (l *Ledger) ResetDaily() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dailyPnL = 0
	l.breakerTripped = false
}

// Orders returns a copy of the ledger's append-only order log.
func (l *Ledger) Orders() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// Trades returns a copy of the ledger's append-only trade log.
func (l *Ledger) Trades() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
