// Package openaiadapter implements modeladapter.Adapter over pkg/llm's
// OpenAI-compatible chat client: it renders the round payload into a
// prompt, calls the model within its own timeout and per-minute budget
// using schema-enforced structured output, and hands the decoded decisions
// to a decision.Validator for coercion and constraint checking.
package openaiadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"arena/pkg/arenaerr"
	"arena/pkg/decision"
	"arena/pkg/llm"
	"arena/pkg/modeladapter"
)

// Config configures one model's adapter instance.
type Config struct {
	ModelAlias           string
	Temperature          float64
	MaxTokens            int
	Timeout              time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	MaxRequestsPerMinute int
}

// Adapter wraps an llm.Client with its own timeout, retry policy, and
// per-minute request budget, independent of the exchange rate limiter.
type Adapter struct {
	client    llm.LLMClient
	cfg       Config
	limiter   *rate.Limiter
	retry     *llm.RetryHandler
	validator *decision.Validator
}

// New constructs an openaiadapter.Adapter.
func New(client llm.LLMClient, cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	perMinute := cfg.MaxRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	return &Adapter{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		retry: llm.NewRetryHandler(llm.RetryConfig{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.RetryDelay,
		}),
		validator: decision.NewValidator(),
	}
}

// decisionEnvelope is the root object ChatStructured asks the model to fill;
// GenerateSchema only accepts a struct at the top level, so a bare decision
// array has to travel wrapped in a named field.
type decisionEnvelope struct {
	Decisions []rawDecisionJSON `json:"decisions"`
}

// rawDecisionJSON mirrors decision.Validator's own per-decision JSON shape so
// the envelope's contents can be re-marshaled straight into Validator.Parse
// without duplicating its coercion and constraint rules.
type rawDecisionJSON struct {
	Symbol       string   `json:"symbol"`
	Action       string   `json:"action"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	PositionSize float64  `json:"positionSize"`
	StopLoss     *float64 `json:"stopLoss,omitempty"`
	TakeProfit   *float64 `json:"takeProfit,omitempty"`
}

// Decide renders payload into a prompt, calls the model within its own
// budget/timeout/retry policy for a schema-enforced decision envelope, and
// validates the decoded decisions into a Bundle.
func (a *Adapter) Decide(ctx context.Context, payload modeladapter.RoundPayload) (decision.Bundle, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, arenaerr.Wrap(arenaerr.KindRateLimited, err, "openaiadapter: per-minute budget exceeded for %s", a.cfg.ModelAlias)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var envelope decisionEnvelope
	err := a.retry.Do(callCtx, func() error {
		envelope = decisionEnvelope{}
		_, err := a.client.ChatStructured(callCtx, a.buildRequest(payload), &envelope)
		return err
	})
	if err != nil {
		return nil, classifyCallErr(err, callCtx)
	}

	raw, err := json.Marshal(envelope.Decisions)
	if err != nil {
		return nil, arenaerr.Wrap(arenaerr.KindBadResponse, err, "openaiadapter: re-encode decision envelope for %s", a.cfg.ModelAlias)
	}

	bundle, err := a.validator.Parse(string(raw))
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

func (a *Adapter) buildRequest(payload modeladapter.RoundPayload) *llm.ChatRequest {
	temp := a.cfg.Temperature
	maxTokens := a.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &llm.ChatRequest{
		Model: a.cfg.ModelAlias,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: renderPayload(payload)},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}
}

const systemPrompt = "You are an autonomous crypto trading agent in a paper-trading competition. " +
	"Respond with a JSON object of the form {\"decisions\": [...]}, where each entry has fields " +
	"symbol, action (BUY/SELL/HOLD), confidence (0-1), reasoning (10-2000 chars), " +
	"positionSize (0-1), and optional stopLoss/takeProfit. Include one entry per symbol under consideration, " +
	"or an empty decisions array to take no action this round."

func renderPayload(payload modeladapter.RoundPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d, elapsed %.1f minutes.\n", payload.Session.Round, payload.Session.ElapsedMinutes)
	fmt.Fprintf(&b, "Account: cash=%.2f totalValue=%.2f dailyPnL=%.2f breakerTripped=%v winRate=%.2f\n",
		payload.Account.Cash, payload.Account.TotalValue, payload.Account.DailyPnL, payload.Account.BreakerTripped, payload.Account.WinRate)

	for _, symbol := range payload.Symbols {
		snap, ok := payload.Market[symbol]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s: price=%.4f ema20=%.4f rsi14=%.2f rsi7=%.2f macd=%.4f volume=%.2f\n",
			symbol, snap.LatestPrice, snap.Indicators.EMA20, snap.Indicators.RSI14, snap.Indicators.RSI7,
			snap.Indicators.MACD, snap.Indicators.Volume)
		if closes, err := json.Marshal(snap.PriceSeries); err == nil {
			fmt.Fprintf(&b, "recent closes: %s\n", closes)
		}
	}
	return b.String()
}

func classifyCallErr(err error, ctx context.Context) error {
	if ctx.Err() != nil {
		return arenaerr.Wrap(arenaerr.KindTimeout, err, "openaiadapter: deadline exceeded")
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return arenaerr.Wrap(arenaerr.KindBadResponse, err, "openaiadapter: malformed structured response")
	}
	return arenaerr.Wrap(arenaerr.KindTransport, err, "openaiadapter: chat call failed")
}
