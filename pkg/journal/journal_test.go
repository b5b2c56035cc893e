package journal_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/pkg/decision"
	"arena/pkg/journal"
	"arena/pkg/ledger"
)

func TestWriteRoundDebug_WritesFileAndAssignsSeq(t *testing.T) {
	dir := t.TempDir()
	w := journal.NewWriter(dir)

	rec1 := &journal.RoundDebugRecord{
		Round:   1,
		ModelID: "gpt-5",
		Prices:  map[string]float64{"BTC/USDT": 65000},
		Bundle: decision.Bundle{
			{Symbol: "BTC/USDT", Action: decision.ActionBuy, Confidence: 0.8, PositionSize: 0.1},
		},
		Account: ledger.AccountView{Cash: 9000, TotalValue: 10000, InitialCapital: 10000},
		Success: true,
	}
	path1, err := w.WriteRoundDebug(rec1)
	require.NoError(t, err)
	assert.FileExists(t, path1)
	assert.Equal(t, filepath.Dir(path1), dir)

	rec2 := &journal.RoundDebugRecord{Round: 1, ModelID: "claude", Success: false, ErrorMessage: "adapter failure"}
	path2, err := w.WriteRoundDebug(rec2)
	require.NoError(t, err)
	assert.NotEqual(t, path1, path2)

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	var decoded journal.RoundDebugRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "gpt-5", decoded.ModelID)
	assert.Equal(t, 1, decoded.Seq)
	assert.True(t, decoded.Success)
	require.Len(t, decoded.Bundle, 1)
	assert.Equal(t, decision.ActionBuy, decoded.Bundle[0].Action)
}

func TestWriteRoundDebug_RejectsNilRecord(t *testing.T) {
	w := journal.NewWriter(t.TempDir())
	_, err := w.WriteRoundDebug(nil)
	assert.Error(t, err)
}

func TestNewWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "journal")
	journal.NewWriter(dir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
