package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/pkg/arenaerr"
	"arena/pkg/ledger"
)

func newTestLedger(capital float64) *ledger.Ledger {
	return ledger.New(ledger.Config{
		InitialCapital:   capital,
		Slippage:         0.001,
		CommissionRate:   0.001,
		MinOrderUSD:      10,
		MaxDailyLossFrac: 0.05,
	})
}

// Scenario 1: single buy and hold, rejected below minimum order size.
func TestExecute_BelowMinimumOrderSizeRejected(t *testing.T) {
	l := newTestLedger(100)
	order, err := l.Execute("BTC/USDT", ledger.SideBuy, 0.05, 100.0, "model-a", "test reasoning text", 0.5)
	require.Error(t, err)
	assert.Equal(t, arenaerr.KindInvalidOrder, arenaerr.KindOf(err))
	assert.Equal(t, ledger.OrderRejected, order.Status)

	state := l.State(map[string]float64{"BTC/USDT": 100.0})
	assert.Equal(t, 100.0, state.Cash)
	assert.Empty(t, state.Positions)
}

// Scenario 2: valid buy, price rise, full sell.
func TestExecute_BuyThenSellRoundTrip(t *testing.T) {
	l := newTestLedger(1000)

	buyOrder, err := l.Execute("BTC/USDT", ledger.SideBuy, 0.4995004995, 100.0, "model-a", "entering on breakout signal here", 0.6)
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderFilled, buyOrder.Status)
	assert.InDelta(t, 100.1, buyOrder.ExecutedPrice, 1e-9)

	state := l.State(map[string]float64{"BTC/USDT": 110.0})
	assert.InDelta(t, 949.95, state.Cash, 0.01)
	require.Len(t, state.Positions, 1)

	sellOrder, err := l.Execute("BTC/USDT", ledger.SideSell, state.Positions[0].Size, 110.0, "model-a", "taking profit on rally here", 0.6)
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderFilled, sellOrder.Status)

	final := l.State(map[string]float64{"BTC/USDT": 110.0})
	assert.Empty(t, final.Positions)
	assert.InDelta(t, 1004.78, final.Cash, 0.1)
	assert.Greater(t, final.TotalReturnPct, 0.0)
	assert.Equal(t, 1.0, final.WinRate)
}

// Law: position averaging across two BUYs.
func TestExecute_PositionAveraging(t *testing.T) {
	l := newTestLedger(10_000)
	_, err := l.Execute("ETH/USDT", ledger.SideBuy, 1, 100.0, "model-a", "first entry on strong signal", 0.5)
	require.NoError(t, err)
	_, err = l.Execute("ETH/USDT", ledger.SideBuy, 1, 200.0, "model-a", "adding on confirmation signal", 0.5)
	require.NoError(t, err)

	state := l.State(map[string]float64{"ETH/USDT": 200.0})
	require.Len(t, state.Positions, 1)
	assert.Equal(t, 2.0, state.Positions[0].Size)

	p1 := 100.0 * 1.001
	p2 := 200.0 * 1.001
	expectedAvg := (p1 + p2) / 2
	assert.InDelta(t, expectedAvg, state.Positions[0].AvgEntryPrice, 1e-6)
}

// Law: idempotent HOLD - HOLD never calls Execute, so cash/positions are
// trivially unchanged; this test documents that contract explicitly.
func TestHold_NeverMutatesLedger(t *testing.T) {
	l := newTestLedger(1000)
	before := l.State(map[string]float64{"BTC/USDT": 100})
	after := l.State(map[string]float64{"BTC/USDT": 100})
	assert.Equal(t, before.Cash, after.Cash)
	assert.Equal(t, before.Positions, after.Positions)
}

// Scenario 4: circuit breaker trips and absorbs subsequent calls.
func TestExecute_CircuitBreakerTrips(t *testing.T) {
	l := newTestLedger(1_000)
	_, err := l.Execute("BTC/USDT", ledger.SideBuy, 5, 100.0, "model-a", "opening position on signal here", 0.5)
	require.NoError(t, err)

	_, err = l.Execute("BTC/USDT", ledger.SideSell, 5, 85.0, "model-a", "cutting losses on reversal here", 0.5)
	require.NoError(t, err)

	state := l.State(map[string]float64{"BTC/USDT": 85.0})
	assert.True(t, state.BreakerTripped)

	before := l.State(map[string]float64{"BTC/USDT": 85.0})
	_, err = l.Execute("BTC/USDT", ledger.SideBuy, 1, 100.0, "model-a", "attempting new entry after loss", 0.5)
	require.Error(t, err)
	assert.Equal(t, arenaerr.KindCircuitBreakerTripped, arenaerr.KindOf(err))

	after := l.State(map[string]float64{"BTC/USDT": 85.0})
	assert.Equal(t, before.Cash, after.Cash)
	assert.Equal(t, before.Positions, after.Positions)
}

func TestExecute_InsufficientFunds(t *testing.T) {
	l := newTestLedger(50)
	_, err := l.Execute("BTC/USDT", ledger.SideBuy, 1, 100.0, "model-a", "aggressive entry beyond funds", 0.5)
	require.Error(t, err)
	assert.Equal(t, arenaerr.KindInsufficientFunds, arenaerr.KindOf(err))
}

func TestExecute_SellWithoutPositionRejected(t *testing.T) {
	l := newTestLedger(1000)
	_, err := l.Execute("BTC/USDT", ledger.SideSell, 1, 100.0, "model-a", "selling a position that is not held", 0.5)
	require.Error(t, err)
	assert.Equal(t, arenaerr.KindInvalidOrder, arenaerr.KindOf(err))
}

func TestResetDaily_ClearsBreakerAndPnL(t *testing.T) {
	l := newTestLedger(1000)
	l.ResetDaily()
	state := l.State(nil)
	assert.False(t, state.BreakerTripped)
	assert.Equal(t, 0.0, state.DailyPnL)
}
