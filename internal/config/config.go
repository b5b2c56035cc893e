package config

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/conf"

	modelspkg "arena/internal/config/models"
	"arena/pkg/confkit"
	llmpkg "arena/pkg/llm"
	"arena/pkg/market"
)

// TradingConfig is the `trading.*` configuration block.
type TradingConfig struct {
	Mode             string  `json:",default=paper,options=paper|live"`
	CapitalPerModel  float64 `json:",default=10000"`
	MaxDailyLossFrac float64 `json:",default=0.05"`
	Slippage         float64 `json:",default=0.001"`
	CommissionRate   float64 `json:",default=0.001"`
	MinOrderUSD      float64 `json:",default=10"`
}

// ExchangeConfig is the `exchange.*` configuration block.
type ExchangeConfig struct {
	Symbols []string `json:",optional"`
	// BaseURL selects a live REST exchange facade when set; empty selects
	// the deterministic simulated facade (the default for IsTestEnv).
	BaseURL    string   `json:",optional"`
	Timeframes []string `json:",default=[1h]"`
}

// RateLimitConfig is `data.rateLimit.*`.
type RateLimitConfig struct {
	MaxRequestsPerMinute int `json:",default=60"`
}

// CacheConfig is `data.cache.*`.
type CacheConfig struct {
	TTLSeconds int `json:",default=30"`
}

// DataConfig groups the `data.*` configuration block.
type DataConfig struct {
	RateLimit RateLimitConfig `json:",optional"`
	Cache     CacheConfig     `json:",optional"`
	Lookback  int             `json:",default=100"`
}

// ArenaConfig is the `arena.*` configuration block.
type ArenaConfig struct {
	DecisionIntervalSeconds int `json:",default=180"`
	RoundTimeoutSeconds     int `json:",default=60"`
	// Debug enables the per-round-per-model journal (see pkg/journal); off
	// by default since it writes one JSON file per model per round.
	Debug    bool   `json:",default=false"`
	DebugDir string `json:",default=data/journal"`
}

// Config is the root configuration document, loaded from a single YAML/JSON
// file via go-zero's conf.Load, with the per-model table hydrated
// separately from its own file (see internal/config/models).
type Config struct {
	Env      string                             `json:",default=test"`
	Trading  TradingConfig                      `json:",optional"`
	Exchange ExchangeConfig                     `json:",optional"`
	Data     DataConfig                         `json:",optional"`
	Arena    ArenaConfig                        `json:",optional"`
	Results  string                             `json:",default=data/results"`
	LLM      confkit.Section[llmpkg.Config]      `json:",optional"`
	Models   confkit.Section[modelspkg.Config]   `json:",optional"`

	mainPath string
	baseDir  string
}

const defaultConfigRelativePath = "etc/arena.yaml"

var configFileFlag = flag.String("f", defaultConfigRelativePath, "the config file")

func init() {
	confkit.LoadDotenvOnce()
}

// ConfigFile returns the -f flag value, or the default relative path.
func ConfigFile() string {
	path := defaultConfigRelativePath
	if configFileFlag != nil {
		if trimmed := strings.TrimSpace(*configFileFlag); trimmed != "" {
			path = trimmed
		}
	}
	return path
}

// MustLoad loads Config from ConfigFile() and panics on error.
func MustLoad() *Config {
	cfg, err := Load(ConfigFile())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads and validates the root config document, then hydrates the
// per-model table from its referenced file.
func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	var cfg Config
	if err := conf.Load(absPath, &cfg, conf.UseEnv()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", absPath, err)
	}
	cfg.mainPath = absPath
	cfg.baseDir = filepath.Dir(absPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Models.Hydrate(cfg.baseDir, modelspkg.LoadConfig); err != nil {
		return nil, fmt.Errorf("load models config: %w", err)
	}
	if err := cfg.LLM.Hydrate(cfg.baseDir, llmpkg.LoadConfig); err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the root document: paper trading mode, positive capital,
// maxDailyLoss within [0,1], at least one symbol, only supported timeframes,
// and a positive decision interval. Enabled models and LLM credentials are
// checked by the models and LLM loaders that Load runs.
func (c *Config) Validate() error {
	if c.Trading.Mode != "paper" {
		return errors.New("config: trading.mode must be paper (live trading is out of scope)")
	}
	if c.Trading.CapitalPerModel <= 0 {
		return errors.New("config: trading.capitalPerModel must be positive")
	}
	if c.Trading.MaxDailyLossFrac < 0 || c.Trading.MaxDailyLossFrac > 1 {
		return errors.New("config: trading.risk.maxDailyLoss must be within [0,1]")
	}
	if len(c.Exchange.Symbols) == 0 {
		return errors.New("config: exchange.symbols must list at least one pair")
	}
	if len(c.Exchange.Timeframes) == 0 {
		return errors.New("config: exchange.timeframes must list at least one timeframe")
	}
	for _, tf := range c.Exchange.Timeframes {
		if !market.Timeframe(tf).Valid() {
			return fmt.Errorf("config: unknown timeframe %q", tf)
		}
	}
	if c.Arena.DecisionIntervalSeconds <= 0 {
		return errors.New("config: arena.decisionInterval must be positive")
	}
	return nil
}

// Timeframes returns Exchange.Timeframes parsed into market.Timeframe values.
func (c *Config) Timeframes() []market.Timeframe {
	out := make([]market.Timeframe, 0, len(c.Exchange.Timeframes))
	for _, tf := range c.Exchange.Timeframes {
		out = append(out, market.Timeframe(tf))
	}
	return out
}

// DecisionInterval returns arena.decisionInterval as a time.Duration.
func (c *Config) DecisionInterval() time.Duration {
	return time.Duration(c.Arena.DecisionIntervalSeconds) * time.Second
}

// RoundTimeout returns arena.roundTimeout as a time.Duration.
func (c *Config) RoundTimeout() time.Duration {
	return time.Duration(c.Arena.RoundTimeoutSeconds) * time.Second
}

// CacheTTL returns data.cache.ttlSeconds as a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Data.Cache.TTLSeconds) * time.Second
}

// BaseDir returns the directory containing the loaded config file.
func (c *Config) BaseDir() string { return c.baseDir }

// MainPath returns the absolute path of the loaded config file.
func (c *Config) MainPath() string { return c.mainPath }

// IsTestEnv reports whether Env is empty or "test"; internal/svc then wires
// the simulated exchange facade instead of the REST one.
func (c *Config) IsTestEnv() bool {
	return c.Env == "" || c.Env == "test"
}

