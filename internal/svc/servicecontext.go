// Package svc wires every dependency the competition needs into a single
// ServiceContext built once at startup, the way internal/svc.ServiceContext
// does for the teacher's REST service: no package-level state anywhere.
package svc

import (
	"fmt"
	"log"

	modelspkg "arena/internal/config/models"

	"arena/internal/config"
	"arena/pkg/broker"
	"arena/pkg/journal"
	"arena/pkg/ledger"
	"arena/pkg/llm"
	"arena/pkg/market"
	"arena/pkg/metrics"
	"arena/pkg/modeladapter"
	"arena/pkg/modeladapter/openaiadapter"
	"arena/pkg/observer"
	"arena/pkg/persistence"
	"arena/pkg/scheduler"
	"arena/pkg/xchfeed"
	"arena/pkg/xchfeed/restfeed"
	"arena/pkg/xchfeed/simfeed"
)

// ServiceContext holds every long-lived dependency the competition needs,
// constructed once in cmd/arena/main.go and threaded explicitly from there.
type ServiceContext struct {
	Config config.Config

	Facade    xchfeed.Facade
	Market    *market.Source
	Broker    *broker.Broker
	Metrics   *metrics.Registry
	Observer  observer.Sink
	Persist   *persistence.Writer
	Scheduler *scheduler.Scheduler

	ModelSpecs []scheduler.ModelSpec
	LedgerCfg  ledger.Config

	llmClient llm.LLMClient
}

// New constructs a ServiceContext from a loaded Config. It builds the
// exchange facade, the market data source, one adapter per enabled model,
// the broker, metrics registry, observer, persistence writer, and finally
// the scheduler itself (still in StateCreated — callers must Initialize it).
func New(cfg *config.Config) (*ServiceContext, error) {
	svc := &ServiceContext{Config: *cfg}

	svc.Facade = buildFacade(cfg)
	svc.Market = market.NewSource(svc.Facade, market.Config{
		MaxRequestsPerMinute: cfg.Data.RateLimit.MaxRequestsPerMinute,
		CacheTTL:             cfg.CacheTTL(),
	})
	svc.Broker = broker.New()
	svc.Metrics = metrics.NewRegistry()
	svc.Observer = observer.NewLogSink()
	svc.Persist = persistence.NewWriter(cfg.Results)

	svc.LedgerCfg = ledger.Config{
		InitialCapital:   cfg.Trading.CapitalPerModel,
		Slippage:         cfg.Trading.Slippage,
		CommissionRate:   cfg.Trading.CommissionRate,
		MinOrderUSD:      cfg.Trading.MinOrderUSD,
		MaxDailyLossFrac: cfg.Trading.MaxDailyLossFrac,
	}

	specs, client, err := buildModelSpecs(cfg)
	if err != nil {
		return nil, err
	}
	svc.ModelSpecs = specs
	svc.llmClient = client

	svc.Scheduler = scheduler.New(scheduler.Config{
		Symbols:          cfg.Exchange.Symbols,
		Timeframes:       cfg.Timeframes(),
		Lookback:         cfg.Data.Lookback,
		DecisionInterval: cfg.DecisionInterval(),
		RoundTimeout:     cfg.RoundTimeout(),
		CapitalPerModel:  cfg.Trading.CapitalPerModel,
	}, svc.Market, svc.Broker, svc.Observer, svc.Metrics, svc.Persist)

	if cfg.Arena.Debug {
		svc.Scheduler.SetDebugWriter(journal.NewWriter(cfg.Arena.DebugDir))
	}

	return svc, nil
}

// Close releases the exchange facade and, if one was constructed, the LLM
// client's underlying HTTP resources.
func (s *ServiceContext) Close() {
	if s.Facade != nil {
		if err := s.Facade.Close(); err != nil {
			log.Printf("svc: close facade: %v", err)
		}
	}
	if s.llmClient != nil {
		if err := s.llmClient.Close(); err != nil {
			log.Printf("svc: close llm client: %v", err)
		}
	}
}

func buildFacade(cfg *config.Config) xchfeed.Facade {
	if cfg.Exchange.BaseURL == "" || cfg.IsTestEnv() {
		start := make(map[string]float64, len(cfg.Exchange.Symbols))
		return simfeed.New(simfeed.Config{StartPrices: start})
	}
	return restfeed.New(cfg.Exchange.BaseURL)
}

// buildModelSpecs constructs one openaiadapter.Adapter per enabled model,
// sharing a single llm.Client (one API key/base URL, one HTTP transport)
// across every model alias, the way nof0's ServiceContext shares one
// llmpkg.Client across every trader.
func buildModelSpecs(cfg *config.Config) ([]scheduler.ModelSpec, llm.LLMClient, error) {
	if cfg.Models.Value == nil {
		return nil, nil, fmt.Errorf("svc: models config was not hydrated")
	}
	if cfg.LLM.Value == nil {
		return nil, nil, fmt.Errorf("svc: llm config was not hydrated")
	}

	client, err := llm.NewClient(cfg.LLM.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("svc: construct llm client: %w", err)
	}

	enabled := cfg.Models.Value.Enabled()
	specs := make([]scheduler.ModelSpec, 0, len(enabled))
	for _, m := range enabled {
		adapter := buildAdapter(client, cfg.LLM.Value, m)
		specs = append(specs, scheduler.ModelSpec{
			ID:       m.ID,
			Priority: m.Priority,
			Adapter:  adapter,
			Enabled:  true,
		})
	}
	return specs, client, nil
}

func buildAdapter(client llm.LLMClient, llmCfg *llm.Config, m modelspkg.Model) modeladapter.Adapter {
	modelCfg, _ := llmCfg.Model(m.Alias)
	return openaiadapter.New(client, openaiadapter.Config{
		ModelAlias:           llm.ResolveModelID(m.Alias, modelCfg),
		Temperature:          m.Parameters.Temperature,
		MaxTokens:            m.Parameters.MaxTokens,
		Timeout:              m.Parameters.Timeout,
		MaxRetries:           m.Parameters.MaxRetries,
		RetryDelay:           m.Parameters.RetryDelay,
		MaxRequestsPerMinute: m.Parameters.MaxRequestsPerMinute,
	})
}
