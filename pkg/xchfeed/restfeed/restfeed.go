// Package restfeed implements an xchfeed.Facade backed by a generic REST
// exchange endpoint exposing klines/ticker routes in CCXT-style JSON.
package restfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"arena/pkg/arenaerr"
	"arena/pkg/xchfeed"
)

const defaultHTTPTimeout = 15 * time.Second

// Facade talks to a REST exchange endpoint over HTTP.
type Facade struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises the Facade.
type Option func(*Facade)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Facade) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// New constructs a REST-backed facade against baseURL (no trailing slash).
func New(baseURL string, opts ...Option) *Facade {
	f := &Facade{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type klineEnvelope struct {
	Candles [][]float64 `json:"candles"`
}

// FetchOHLCV requests klines at GET {baseURL}/klines?symbol=&timeframe=&since=&limit=.
func (f *Facade) FetchOHLCV(ctx context.Context, symbol, timeframe string, sinceMillis int64, limit int) ([]xchfeed.Row, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", timeframe)
	q.Set("since", strconv.FormatInt(sinceMillis, 10))
	q.Set("limit", strconv.Itoa(limit))

	var env klineEnvelope
	if err := f.getJSON(ctx, "/klines?"+q.Encode(), &env); err != nil {
		return nil, err
	}

	rows := make([]xchfeed.Row, 0, len(env.Candles))
	for _, c := range env.Candles {
		if len(c) != 6 {
			return nil, arenaerr.New(arenaerr.KindDataCorruption, "restfeed: malformed kline row for %s %s", symbol, timeframe)
		}
		rows = append(rows, xchfeed.Row{c[0], c[1], c[2], c[3], c[4], c[5]})
	}
	return rows, nil
}

type tickerEnvelope struct {
	Last float64 `json:"last"`
}

// FetchTicker requests GET {baseURL}/ticker?symbol=.
func (f *Facade) FetchTicker(ctx context.Context, symbol string) (xchfeed.Ticker, error) {
	var env tickerEnvelope
	q := url.Values{}
	q.Set("symbol", symbol)
	if err := f.getJSON(ctx, "/ticker?"+q.Encode(), &env); err != nil {
		return xchfeed.Ticker{}, err
	}
	return xchfeed.Ticker{Last: env.Last}, nil
}

// Close releases the underlying HTTP transport's idle connections.
func (f *Facade) Close() error {
	f.httpClient.CloseIdleConnections()
	return nil
}

func (f *Facade) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return arenaerr.Wrap(arenaerr.KindConfiguration, err, "restfeed: build request")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return arenaerr.Wrap(arenaerr.KindTransient, err, "restfeed: request %s", path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return arenaerr.New(arenaerr.KindTransient, "restfeed: rate limited on %s", path)
	case resp.StatusCode >= 500:
		return arenaerr.New(arenaerr.KindTransient, "restfeed: upstream %d on %s", resp.StatusCode, path)
	case resp.StatusCode >= 400:
		return arenaerr.New(arenaerr.KindConfiguration, "restfeed: client error %d on %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return arenaerr.Wrap(arenaerr.KindDataCorruption, err, "restfeed: decode response for %s", path)
	}
	return nil
}

var _ fmt.Stringer = (*Facade)(nil)

// String implements fmt.Stringer for logging.
func (f *Facade) String() string { return "restfeed(" + f.baseURL + ")" }
