package market

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"arena/pkg/arenaerr"
	"arena/pkg/ratewindow"
	"arena/pkg/xchfeed"
)

const maxBatchLimit = 1000

// Source is the MarketDataSource: it returns candle Series for a
// (symbol, timeframe, lookback) triple, backed by a single exchange
// Facade, a shared rate limiter, and a TTL cache.
type Source struct {
	facade  xchfeed.Facade
	limiter *ratewindow.Limiter
	cache   *cache
	now     func() time.Time
}

// Config configures a Source.
type Config struct {
	MaxRequestsPerMinute int
	CacheTTL             time.Duration
}

// NewSource constructs a MarketDataSource over the given exchange facade.
func NewSource(facade xchfeed.Facade, cfg Config) *Source {
	maxReq := cfg.MaxRequestsPerMinute
	if maxReq <= 0 {
		maxReq = 60
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Source{
		facade:  facade,
		limiter: ratewindow.New(maxReq, time.Minute),
		cache:   newCache(ttl),
		now:     time.Now,
	}
}

// FetchSingle returns a Series for (symbol, timeframe, lookback),
// oldest-first, honoring the cache and rate limiter.
func (s *Source) FetchSingle(ctx context.Context, symbol string, timeframe Timeframe, lookback int) (Series, error) {
	if !timeframe.Valid() {
		return Series{}, arenaerr.New(arenaerr.KindConfiguration, "market: unsupported timeframe %q", timeframe)
	}
	if lookback <= 0 {
		return Series{}, arenaerr.New(arenaerr.KindConfiguration, "market: lookback must be positive")
	}

	if series, ok := s.cache.get(symbol, timeframe, lookback); ok {
		return series, nil
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return Series{}, arenaerr.Wrap(arenaerr.KindTransient, err, "market: rate limiter acquire for %s", symbol)
	}

	tfMillis, _ := timeframe.Millis()
	since := s.now().UnixMilli() - int64(math.Ceil(1.2*float64(lookback)*float64(tfMillis)))
	requestLimit := lookback * 2
	if requestLimit > maxBatchLimit {
		requestLimit = maxBatchLimit
	}

	rows, err := s.facade.FetchOHLCV(ctx, symbol, string(timeframe), since, requestLimit)
	if err != nil {
		return Series{}, classifyFetchErr(err, symbol, timeframe)
	}
	if len(rows) == 0 {
		return Series{}, arenaerr.New(arenaerr.KindDataCorruption, "market: empty candle sequence for %s %s", symbol, timeframe)
	}

	if len(rows) > lookback {
		rows = rows[len(rows)-lookback:]
	}

	candles := make([]Candle, len(rows))
	for i, row := range rows {
		candles[i] = Candle{
			Time:   time.UnixMilli(int64(row[0])),
			Open:   row[1],
			High:   row[2],
			Low:    row[3],
			Close:  row[4],
			Volume: row[5],
		}
		if err := candles[i].Validate(); err != nil {
			return Series{}, arenaerr.Wrap(arenaerr.KindDataCorruption, err, "market: invariant check for %s %s", symbol, timeframe)
		}
	}

	series := Series{Symbol: symbol, Timeframe: timeframe, Candles: candles}
	if err := series.ValidateMonotonic(); err != nil {
		return Series{}, arenaerr.Wrap(arenaerr.KindDataCorruption, err, "market: monotonicity check for %s %s", symbol, timeframe)
	}

	s.cache.put(symbol, timeframe, lookback, series)
	return series, nil
}

// FetchMulti fetches every timeframe for symbol concurrently and fails
// atomically: if any inner fetch fails, the caller sees a single error and
// no partial map is returned.
func (s *Source) FetchMulti(ctx context.Context, symbol string, timeframes []Timeframe, lookback int) (map[Timeframe]Series, error) {
	group, gctx := errgroup.WithContext(ctx)
	results := make([]Series, len(timeframes))

	for i, tf := range timeframes {
		i, tf := i, tf
		group.Go(func() error {
			series, err := s.FetchSingle(gctx, symbol, tf, lookback)
			if err != nil {
				return err
			}
			results[i] = series
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Timeframe]Series, len(timeframes))
	for i, tf := range timeframes {
		out[tf] = results[i]
	}
	return out, nil
}

// CurrentPrice returns the live last-traded price for symbol.
func (s *Source) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return 0, arenaerr.Wrap(arenaerr.KindTransient, err, "market: rate limiter acquire for ticker %s", symbol)
	}
	ticker, err := s.facade.FetchTicker(ctx, symbol)
	if err != nil {
		return 0, classifyFetchErr(err, symbol, "")
	}
	if ticker.Last <= 0 {
		return 0, arenaerr.New(arenaerr.KindDataCorruption, "market: non-positive ticker price for %s", symbol)
	}
	return ticker.Last, nil
}

// Close clears the cache and releases the exchange facade.
func (s *Source) Close() error {
	s.cache.clear()
	return s.facade.Close()
}

func classifyFetchErr(err error, symbol string, timeframe Timeframe) error {
	if arenaerr.KindOf(err) != arenaerr.KindUnknown {
		return err
	}
	return arenaerr.Wrap(arenaerr.KindTransient, err, "market: fetch failed for %s %s", symbol, timeframe)
}
