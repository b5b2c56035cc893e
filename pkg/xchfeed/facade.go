// Package xchfeed defines the external exchange facade consumed by
// pkg/market: a minimal OHLCV/ticker surface with distinguishable
// transient-vs-permanent failures.
package xchfeed

import "context"

// Row is a single raw OHLCV record as returned by the exchange facade:
// [tMillis, open, high, low, close, volume], oldest-first.
type Row [6]float64

// Ticker is a current-price quote.
type Ticker struct {
	Last float64
}

// Facade is the external exchange surface consumed by pkg/market. Errors
// returned must be classifiable via arenaerr.KindOf: Transient for
// rate-limit/network/availability failures, Configuration for unknown
// symbols/credentials.
type Facade interface {
	// FetchOHLCV returns up to limit candles at or after sinceMillis,
	// oldest-first.
	FetchOHLCV(ctx context.Context, symbol, timeframe string, sinceMillis int64, limit int) ([]Row, error)
	// FetchTicker returns the current last-traded price for symbol.
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	// Close releases any underlying connection/session resources.
	Close() error
}
