// Package simfeed implements an xchfeed.Facade that synthesizes
// deterministic OHLCV candles and ticker quotes without any network
// dependency, for paper-trading sessions run against no live exchange.
package simfeed

import (
	"context"
	"fmt"
	"math"
	"sync"

	"arena/pkg/xchfeed"
)

// Facade is a deterministic synthetic market generator. Each symbol walks a
// seeded pseudo-random path so repeated runs with the same seed reproduce
// the same candles; it never touches the network.
type Facade struct {
	mu      sync.Mutex
	seed    int64
	anchors map[string]float64
}

// Config seeds the synthetic price walk.
type Config struct {
	Seed int64
	// StartPrices optionally pins the first price for a symbol; symbols
	// absent from the map start at 100.0.
	StartPrices map[string]float64
}

// New constructs a simulated facade.
func New(cfg Config) *Facade {
	anchors := make(map[string]float64, len(cfg.StartPrices))
	for sym, px := range cfg.StartPrices {
		anchors[sym] = px
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &Facade{seed: seed, anchors: anchors}
}

// FetchOHLCV synthesizes limit candles of timeframe width starting at
// sinceMillis, oldest-first, via a deterministic LCG walk keyed by symbol.
func (f *Facade) FetchOHLCV(_ context.Context, symbol, timeframe string, sinceMillis int64, limit int) ([]xchfeed.Row, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("simfeed: limit must be positive")
	}
	stepMillis, err := timeframeMillis(timeframe)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	start := f.anchorLocked(symbol)
	f.mu.Unlock()

	rng := newLCG(f.seed ^ hashSymbol(symbol))
	rows := make([]xchfeed.Row, limit)
	price := start
	t := sinceMillis
	for i := 0; i < limit; i++ {
		open := price
		drift := (rng.next() - 0.5) * 0.01 * open
		closePx := math.Max(open+drift, 0.01)
		high := math.Max(open, closePx) + rng.next()*0.002*open
		low := math.Min(open, closePx) - rng.next()*0.002*open
		if low < 0 {
			low = 0.01
		}
		volume := 10 + rng.next()*90
		rows[i] = xchfeed.Row{float64(t), open, high, low, closePx, volume}
		price = closePx
		t += stepMillis
	}

	f.mu.Lock()
	f.anchors[symbol] = price
	f.mu.Unlock()

	return rows, nil
}

// FetchTicker returns the last synthesized price for symbol, or the
// configured/default start price if it has never been walked.
func (f *Facade) FetchTicker(_ context.Context, symbol string) (xchfeed.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return xchfeed.Ticker{Last: f.anchorLocked(symbol)}, nil
}

// Close is a no-op; the simulated facade owns no external resources.
func (f *Facade) Close() error { return nil }

func (f *Facade) anchorLocked(symbol string) float64 {
	if px, ok := f.anchors[symbol]; ok {
		return px
	}
	f.anchors[symbol] = 100.0
	return 100.0
}

func timeframeMillis(tf string) (int64, error) {
	switch tf {
	case "1m":
		return 60_000, nil
	case "3m":
		return 3 * 60_000, nil
	case "5m":
		return 5 * 60_000, nil
	case "15m":
		return 15 * 60_000, nil
	case "30m":
		return 30 * 60_000, nil
	case "1h":
		return 60 * 60_000, nil
	case "2h":
		return 2 * 60 * 60_000, nil
	case "4h":
		return 4 * 60 * 60_000, nil
	case "1d":
		return 24 * 60 * 60_000, nil
	default:
		return 0, fmt.Errorf("simfeed: unsupported timeframe %q", tf)
	}
}

func hashSymbol(symbol string) int64 {
	var h int64 = 2166136261
	for i := 0; i < len(symbol); i++ {
		h = (h ^ int64(symbol[i])) * 16777619
	}
	return h
}

// lcg is a minimal linear congruential generator producing floats in [0,1).
// Deterministic across runs and platforms, unlike math/rand's global state.
type lcg struct{ state uint64 }

func newLCG(seed int64) *lcg {
	s := uint64(seed)
	if s == 0 {
		s = 0x9E3779B97F4A7C15
	}
	return &lcg{state: s}
}

func (g *lcg) next() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / float64(1<<53)
}
