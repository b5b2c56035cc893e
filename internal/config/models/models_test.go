package models_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/config/models"
)

const sampleYAML = `
models:
  gpt-5:
    enabled: true
    priority: 2
    parameters:
      maxTokens: 600
      temperature: 0.3
  claude:
    enabled: true
    priority: 1
    parameters:
      timeout: 45s
      retryDelay: 2s
  disabled-one:
    enabled: false
    priority: 5
`

func TestLoadConfigFromReader_AppliesDefaultsAndParsesDurations(t *testing.T) {
	cfg, err := models.LoadConfigFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	gpt5 := cfg.Models["gpt-5"]
	assert.Equal(t, 600, gpt5.Parameters.MaxTokens)
	assert.Equal(t, "30s", gpt5.Parameters.TimeoutRaw)
	assert.Equal(t, "gpt-5", gpt5.Alias)

	claude := cfg.Models["claude"]
	assert.Equal(t, "45s", claude.Parameters.TimeoutRaw)
}

func TestConfig_EnabledOrdersByPriorityDescThenID(t *testing.T) {
	cfg, err := models.LoadConfigFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	enabled := cfg.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "gpt-5", enabled[0].ID)
	assert.Equal(t, "claude", enabled[1].ID)
}

func TestLoadConfigFromReader_FailsWithNoEnabledModels(t *testing.T) {
	_, err := models.LoadConfigFromReader(strings.NewReader(`
models:
  only-one:
    enabled: false
`))
	require.Error(t, err)
}
