package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/config"
)

const rootYAML = `
Env: test
Trading:
  Mode: paper
  CapitalPerModel: 10000
  MaxDailyLossFrac: 0.05
Exchange:
  Symbols:
    - BTC/USDT
    - ETH/USDT
  Timeframes:
    - 1h
Data:
  RateLimit:
    MaxRequestsPerMinute: 60
  Cache:
    TTLSeconds: 30
  Lookback: 100
Arena:
  DecisionIntervalSeconds: 180
  RoundTimeoutSeconds: 60
Models:
  File: models.yaml
`

const modelsYAML = `
models:
  gpt-5:
    enabled: true
    priority: 1
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "arena.yaml")
	require.NoError(t, os.WriteFile(root, []byte(rootYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.yaml"), []byte(modelsYAML), 0o644))
	return root
}

func TestLoad_ParsesNestedBlocksAndHydratesModels(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Exchange.Symbols)
	assert.Len(t, cfg.Timeframes(), 1)
	assert.Equal(t, 180*1e9, float64(cfg.DecisionInterval()))
	require.NotNil(t, cfg.Models.Value)
	assert.Contains(t, cfg.Models.Value.Models, "gpt-5")
}

func TestValidate_RejectsUnknownTimeframe(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "arena.yaml")
	bad := `
Env: test
Trading:
  Mode: paper
  CapitalPerModel: 10000
Exchange:
  Symbols: [BTC/USDT]
  Timeframes: [7h]
Arena:
  DecisionIntervalSeconds: 180
`
	require.NoError(t, os.WriteFile(root, []byte(bad), 0o644))

	_, err := config.Load(root)
	require.Error(t, err)
}

func TestValidate_RejectsLiveTradingMode(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "arena.yaml")
	bad := `
Env: test
Trading:
  Mode: live
  CapitalPerModel: 10000
Exchange:
  Symbols: [BTC/USDT]
  Timeframes: [1h]
Arena:
  DecisionIntervalSeconds: 180
`
	require.NoError(t, os.WriteFile(root, []byte(bad), 0o644))

	_, err := config.Load(root)
	require.Error(t, err)
}
