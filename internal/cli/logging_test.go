package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arena/internal/cli"
	"arena/internal/config"
)

func TestConfigSummaryLines_NilConfig(t *testing.T) {
	lines := cli.ConfigSummaryLines(nil)
	assert.Equal(t, []string{"Configuration: <nil>"}, lines)
}

func TestConfigSummaryLines_IncludesSymbolsAndTimeframes(t *testing.T) {
	cfg := &config.Config{}
	cfg.Exchange.Symbols = []string{"BTC/USDT", "ETH/USDT"}
	cfg.Exchange.Timeframes = []string{"1h", "4h"}
	cfg.Trading.Mode = "paper"

	lines := cli.ConfigSummaryLines(cfg)
	assert.Contains(t, lines, "Symbols: BTC/USDT, ETH/USDT")
	assert.Contains(t, lines, "Timeframes: 1h, 4h")
}
