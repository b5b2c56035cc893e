// Package scheduler implements the CompetitionScheduler: the session
// lifecycle, the per-round fan-out/fan-in of market data and model
// decisions, and application of each model's decisions to its own
// ledger. Grounded on pkg/manager.Manager's registry-of-runtimes,
// stopChan/sync.Once shutdown, and logx-based round logging, generalized
// from a single-decision-per-cycle perpetuals loop into the multi-model,
// multi-symbol round algorithm below.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"arena/pkg/arenaerr"
	"arena/pkg/broker"
	"arena/pkg/decision"
	"arena/pkg/indicators"
	"arena/pkg/journal"
	"arena/pkg/leaderboard"
	"arena/pkg/ledger"
	"arena/pkg/market"
	"arena/pkg/metrics"
	"arena/pkg/modeladapter"
	"arena/pkg/observer"
	"arena/pkg/persistence"
)

// Config carries the parameters a session runs under.
type Config struct {
	Symbols          []string
	Timeframes       []market.Timeframe
	Lookback         int
	DecisionInterval time.Duration
	RoundTimeout     time.Duration
	BuyCap           float64 // hard cap on fraction of cash per single BUY, e.g. 0.05
	CapitalPerModel  float64
}

// Scheduler owns the session lifecycle: initialize, run, stop.
type Scheduler struct {
	mu sync.RWMutex

	cfg      Config
	market   *market.Source
	broker   *broker.Broker
	observer observer.Sink
	metrics  *metrics.Registry
	persist  *persistence.Writer
	debug    *journal.Writer
	now      func() time.Time

	state      State
	models     map[string]*ModelRuntime
	modelOrder []string

	round      int
	lastPrices map[string]float64
	roundLog   []RoundRecord
	sessionID string
	startedAt time.Time
	endedAt   time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	paused   bool
	resumeCh chan struct{}
}

// New constructs a Scheduler. observer, metricsReg, and persist may be nil
// (a nil observer/metrics registry is simply not notified; a nil persist
// disables result export).
func New(cfg Config, source *market.Source, b *broker.Broker, obs observer.Sink, metricsReg *metrics.Registry, persist *persistence.Writer) *Scheduler {
	if cfg.BuyCap <= 0 {
		cfg.BuyCap = 0.05
	}
	return &Scheduler{
		cfg:      cfg,
		market:   source,
		broker:   b,
		observer: obs,
		metrics:  metricsReg,
		persist:  persist,
		now:      time.Now,
		state:    StateCreated,
		models:   make(map[string]*ModelRuntime),
		stopCh:   make(chan struct{}),
		resumeCh: make(chan struct{}),
	}
}

// Initialize constructs a fresh ModelRuntime (with its own PaperLedger)
// for each spec. Fails hard (KindFatal) if no model initializes.
func (s *Scheduler) Initialize(specs []ModelSpec, ledgerCfg ledger.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCreated {
		return arenaerr.New(arenaerr.KindConfiguration, "scheduler: initialize called from state %s", s.state)
	}

	enabled := 0
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		if spec.Adapter == nil {
			return arenaerr.New(arenaerr.KindConfiguration, "scheduler: model %s has no adapter", spec.ID)
		}
		s.models[spec.ID] = &ModelRuntime{
			ID:       spec.ID,
			Priority: spec.Priority,
			Adapter:  spec.Adapter,
			Ledger:   ledger.New(ledgerCfg),
			Enabled:  true,
		}
		s.modelOrder = append(s.modelOrder, spec.ID)
		enabled++
	}
	if enabled == 0 {
		return arenaerr.New(arenaerr.KindFatal, "scheduler: no model initialized")
	}

	s.startedAt = s.now()
	s.sessionID = persistence.NewSessionID(s.startedAt)
	s.state = StateReady
	if s.observer != nil {
		s.observer.Started(s.sessionID)
	}
	return nil
}

// SetDebugWriter attaches an optional per-round-per-model debug journal.
// When set, every applied (or failed) model result in RunRound is also
// written as a journal.RoundDebugRecord; nil disables it (the default).
func (s *Scheduler) SetDebugWriter(w *journal.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = w
}

// State returns the scheduler's current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Pause transitions running -> paused; a no-op from any other state.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		s.state = StatePaused
		s.paused = true
	}
}

// Resume transitions paused -> running; a no-op from any other state.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.paused = false
	s.mu.Unlock()
	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
}

// Stop signals the run loop to exit at its next suspension point.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run executes rounds until the first of: Stop(), ctx cancellation,
// opts.Duration elapsed, or round >= opts.MaxRounds. cleanup() always
// runs before Run returns.
func (s *Scheduler) Run(ctx context.Context, opts RunOptions) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return arenaerr.New(arenaerr.KindConfiguration, "scheduler: run called from state %s", s.state)
	}
	s.state = StateRunning
	s.mu.Unlock()

	defer s.cleanup()

	var deadline time.Time
	if opts.Duration > 0 {
		deadline = s.startedAt.Add(opts.Duration)
	}

	for {
		if s.waitWhilePaused(ctx) {
			return nil
		}

		select {
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
		if !deadline.IsZero() && s.now().After(deadline) {
			return nil
		}
		s.mu.RLock()
		currentRound := s.round
		s.mu.RUnlock()
		if opts.MaxRounds > 0 && currentRound >= opts.MaxRounds {
			return nil
		}

		s.RunRound(ctx)

		select {
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.DecisionInterval):
		}
	}
}

func (s *Scheduler) waitWhilePaused(ctx context.Context) (shouldExit bool) {
	s.mu.RLock()
	paused := s.paused
	s.mu.RUnlock()
	if !paused {
		return false
	}
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	case <-s.resumeCh:
		return false
	}
}

// RunRound executes one round: fetch, decide, apply, log, publish.
func (s *Scheduler) RunRound(ctx context.Context) RoundRecord {
	s.mu.Lock()
	s.round++
	round := s.round
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.RoundStart(round)
	}
	started := time.Now()

	snapshot, prices := s.buildSnapshot(ctx)
	if len(prices) > 0 {
		s.mu.Lock()
		s.lastPrices = prices
		s.mu.Unlock()
	}
	record := RoundRecord{Round: round, At: s.now(), Prices: prices, ModelActions: map[string]Actions{}}

	if len(snapshot) == 0 {
		record.Err = "round abandoned: empty market snapshot"
		logx.Errorf("scheduler: round %d abandoned: empty market snapshot", round)
		if s.observer != nil {
			s.observer.Error(round, record.Err)
		}
		s.appendRound(record)
		return record
	}

	payload := modeladapter.RoundPayload{
		Session: modeladapter.SessionInfo{
			ElapsedMinutes: time.Since(s.startedAt).Minutes(),
			Now:            s.now(),
			Round:          round,
		},
		Symbols: s.cfg.Symbols,
		Market:  snapshot,
	}

	work, modelIDs := s.buildWork(payload, prices)
	roundDeadline := s.now().Add(s.cfg.RoundTimeout)
	results := s.broker.Collect(ctx, work, roundDeadline)

	for _, modelID := range modelIDs {
		record.ModelActions[modelID] = s.applyResult(round, modelID, results[modelID], prices)
	}

	s.mu.RLock()
	entries := make([]leaderboard.Entry, 0, len(s.models))
	for id, rt := range s.models {
		view := rt.Ledger.State(prices)
		entries = append(entries, leaderboard.Entry{
			ModelID:        id,
			TotalReturnPct: view.TotalReturnPct,
			DecisionsMade:  rt.DecisionsMade,
			TradesExecuted: rt.TradesExecuted,
			Errors:         rt.Errors,
			WinRate:        view.WinRate,
			Enabled:        rt.Enabled,
		})
		if s.metrics != nil {
			s.metrics.AccountValue.WithLabelValues(id).Set(view.TotalValue)
		}
	}
	s.mu.RUnlock()
	ranked := leaderboard.Derive(entries)

	s.appendRound(record)
	if s.metrics != nil {
		s.metrics.RoundDuration.Observe(time.Since(started).Seconds())
	}
	if s.observer != nil {
		s.observer.RoundComplete(round, ranked)
	}
	return record
}

func (s *Scheduler) appendRound(record RoundRecord) {
	s.mu.Lock()
	s.roundLog = append(s.roundLog, record)
	s.mu.Unlock()
}

// buildSnapshot fetches every symbol's configured timeframes in parallel
// across symbols; a per-symbol failure is logged and omitted.
func (s *Scheduler) buildSnapshot(ctx context.Context) (map[string]market.Snapshot, map[string]float64) {
	type fetched struct {
		symbol string
		snap   market.Snapshot
		err    error
	}

	out := make(chan fetched, len(s.cfg.Symbols))
	var wg sync.WaitGroup
	for _, symbol := range s.cfg.Symbols {
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.fetchSymbolSnapshot(ctx, symbol)
			out <- fetched{symbol: symbol, snap: snap, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	snapshot := make(map[string]market.Snapshot, len(s.cfg.Symbols))
	prices := make(map[string]float64, len(s.cfg.Symbols))
	for f := range out {
		if f.err != nil {
			logx.Errorf("scheduler: market fetch failed for %s: %v", f.symbol, f.err)
			continue
		}
		snapshot[f.symbol] = f.snap
		prices[f.symbol] = f.snap.LatestPrice
	}
	return snapshot, prices
}

func (s *Scheduler) fetchSymbolSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	series, err := s.market.FetchMulti(ctx, symbol, s.cfg.Timeframes, s.cfg.Lookback)
	if err != nil {
		return market.Snapshot{}, err
	}
	primary := series[s.cfg.Timeframes[0]]
	indicatorSet, tails := indicators.ComputeFromCandles(primary.Candles)

	latest, err := s.market.CurrentPrice(ctx, symbol)
	if err != nil {
		if len(primary.Candles) > 0 {
			latest = primary.Candles[len(primary.Candles)-1].Close
		} else {
			return market.Snapshot{}, err
		}
	}

	return market.Snapshot{
		Symbol:         symbol,
		LatestPrice:    latest,
		Indicators:     indicatorSet,
		PriceSeries:    primary.Closes(),
		IndicatorTails: tails,
	}, nil
}

// buildWork personalizes each enabled model's RoundPayload with its own
// current AccountView before handing it to the broker.
func (s *Scheduler) buildWork(base modeladapter.RoundPayload, prices map[string]float64) ([]broker.Work, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	work := make([]broker.Work, 0, len(s.models))
	ids := make([]string, 0, len(s.models))
	for _, id := range s.modelOrder {
		rt := s.models[id]
		if !rt.Enabled {
			continue
		}
		payload := base
		payload.Account = rt.Ledger.State(prices)
		work = append(work, broker.Work{ID: id, Adapter: rt.Adapter, Payload: payload})
		ids = append(ids, id)
	}
	return work, ids
}

// applyResult applies one model's decision bundle (or records its error)
// to that model's own ledger, strictly sequentially in bundle order.
func (s *Scheduler) applyResult(round int, modelID string, result broker.Result, prices map[string]float64) Actions {
	s.mu.Lock()
	rt := s.models[modelID]
	s.mu.Unlock()

	var actions Actions
	if result.Err != nil {
		s.mu.Lock()
		rt.Errors++
		rt.ErrorMsg = result.Err.Error()
		s.mu.Unlock()
		if s.observer != nil {
			s.observer.Error(round, fmt.Sprintf("model %s: %v", modelID, result.Err))
		}
		s.writeDebugRecord(round, modelID, prices, nil, rt, false, result.Err.Error())
		return actions
	}

	s.mu.Lock()
	rt.DecisionsMade++
	s.mu.Unlock()

	for _, dec := range result.Bundle {
		price, ok := prices[dec.Symbol]
		if !ok {
			continue
		}
		if s.metrics != nil {
			s.metrics.Decisions.WithLabelValues(modelID, string(dec.Action)).Inc()
		}
		switch dec.Action {
		case decision.ActionHold:
			actions.Holds++
		case decision.ActionBuy:
			actions.Buys++
			s.applyBuy(rt, dec, price, &actions)
		case decision.ActionSell:
			actions.Sells++
			s.applySell(rt, dec, price, &actions)
		}
	}
	s.writeDebugRecord(round, modelID, prices, result.Bundle, rt, true, "")
	return actions
}

// writeDebugRecord is a no-op unless a journal writer was attached via
// SetDebugWriter; failures are logged, not propagated, since the debug
// journal is a diagnostic aid and must never affect round outcomes.
func (s *Scheduler) writeDebugRecord(round int, modelID string, prices map[string]float64, bundle decision.Bundle, rt *ModelRuntime, success bool, errMsg string) {
	s.mu.RLock()
	w := s.debug
	s.mu.RUnlock()
	if w == nil {
		return
	}
	rec := &journal.RoundDebugRecord{
		Round:        round,
		ModelID:      modelID,
		Prices:       prices,
		Bundle:       bundle,
		Account:      rt.Ledger.State(prices),
		Success:      success,
		ErrorMessage: errMsg,
	}
	if _, err := w.WriteRoundDebug(rec); err != nil {
		logx.Errorf("scheduler: round %d debug write for %s failed: %v", round, modelID, err)
	}
}

func (s *Scheduler) applyBuy(rt *ModelRuntime, dec decision.Decision, price float64, actions *Actions) {
	view := rt.Ledger.State(map[string]float64{dec.Symbol: price})
	frac := dec.PositionSize
	if frac > s.cfg.BuyCap {
		frac = s.cfg.BuyCap
	}
	notional := view.Cash * frac
	size := notional / price
	s.execute(rt, dec.Symbol, ledger.SideBuy, size, price, dec, actions)
}

func (s *Scheduler) applySell(rt *ModelRuntime, dec decision.Decision, price float64, actions *Actions) {
	pos, ok := rt.Ledger.Position(dec.Symbol)
	if !ok {
		actions.Rejected++
		s.mu.Lock()
		rt.ErrorMsg = fmt.Sprintf("cannot sell %s: no position", dec.Symbol)
		s.mu.Unlock()
		return
	}
	size := pos.Size * dec.PositionSize
	s.execute(rt, dec.Symbol, ledger.SideSell, size, price, dec, actions)
}

func (s *Scheduler) execute(rt *ModelRuntime, symbol string, side ledger.Side, size, price float64, dec decision.Decision, actions *Actions) {
	wasTripped := s.metrics != nil && rt.Ledger.State(nil).BreakerTripped
	_, err := rt.Ledger.Execute(symbol, side, size, price, rt.ID, dec.Reasoning, dec.Confidence)
	if err != nil {
		actions.Rejected++
		s.mu.Lock()
		rt.ErrorMsg = err.Error()
		s.mu.Unlock()
		if s.metrics != nil {
			kind := arenaerr.KindOf(err)
			s.metrics.OrdersRejected.WithLabelValues(rt.ID, kind.String()).Inc()
		}
		return
	}
	actions.Executed++
	s.mu.Lock()
	rt.TradesExecuted++
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.OrdersExecuted.WithLabelValues(rt.ID, string(side)).Inc()
		if !wasTripped && rt.Ledger.State(nil).BreakerTripped {
			s.metrics.BreakerTrips.WithLabelValues(rt.ID).Inc()
		}
	}
}

// cleanup exports results and releases resources; it runs on every exit
// path from Run.
func (s *Scheduler) cleanup() {
	s.mu.Lock()
	s.endedAt = s.now()
	s.state = StateStopped
	rounds := append([]RoundRecord(nil), s.roundLog...)
	sessionID := s.sessionID
	started := s.startedAt
	ended := s.endedAt
	symbols := append([]string(nil), s.cfg.Symbols...)
	prices := s.lastPrices

	entries := make([]leaderboard.Entry, 0, len(s.models))
	for id, rt := range s.models {
		view := rt.Ledger.State(prices)
		entries = append(entries, leaderboard.Entry{
			ModelID:        id,
			TotalReturnPct: view.TotalReturnPct,
			DecisionsMade:  rt.DecisionsMade,
			TradesExecuted: rt.TradesExecuted,
			Errors:         rt.Errors,
			WinRate:        view.WinRate,
			Enabled:        rt.Enabled,
		})
	}
	s.mu.Unlock()

	ranked := leaderboard.Derive(entries)

	if s.persist != nil {
		session := persistence.Session{
			ID:          sessionID,
			StartedAt:   started,
			EndedAt:     ended,
			Symbols:     symbols,
			TotalRounds: len(rounds),
			Config: persistence.SessionConfig{
				DecisionIntervalSeconds: int(s.cfg.DecisionInterval.Seconds()),
				CapitalPerModel:         s.cfg.CapitalPerModel,
			},
			Leaderboard: ranked,
			Rounds:      toPersistedRounds(rounds),
			Summary:     fmt.Sprintf("%d rounds completed for session %s", len(rounds), sessionID),
		}
		s.persist.WriteSession(session)
	}

	if s.market != nil {
		if err := s.market.Close(); err != nil {
			logx.Errorf("scheduler: market source close: %v", err)
		}
	}
	if s.observer != nil {
		s.observer.CompetitionFinished(sessionID, len(rounds))
	}
}

func toPersistedRounds(rounds []RoundRecord) []persistence.RoundResult {
	out := make([]persistence.RoundResult, len(rounds))
	for i, r := range rounds {
		actions := make(map[string]persistence.Actions, len(r.ModelActions))
		for id, a := range r.ModelActions {
			actions[id] = persistence.Actions{
				Holds:    a.Holds,
				Buys:     a.Buys,
				Sells:    a.Sells,
				Executed: a.Executed,
				Rejected: a.Rejected,
			}
		}
		out[i] = persistence.RoundResult{
			Round:        r.Round,
			At:           r.At,
			Prices:       r.Prices,
			ModelActions: actions,
		}
	}
	return out
}
