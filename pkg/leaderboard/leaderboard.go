// Package leaderboard derives a ranked view of ModelRuntimes: a pure
// function with no side effects and no persisted state of its own.
package leaderboard

import "sort"

// Entry is one model's ranked standing.
type Entry struct {
	ModelID        string
	TotalReturnPct float64
	DecisionsMade  int
	TradesExecuted int
	Errors         int
	WinRate        float64
	Enabled        bool
}

// Derive sorts entries by TotalReturnPct descending, stable by ModelID on
// ties. Models with no trades appear with return = 0 (callers are
// expected to have already computed TotalReturnPct as 0 for them).
func Derive(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalReturnPct != out[j].TotalReturnPct {
			return out[i].TotalReturnPct > out[j].TotalReturnPct
		}
		return out[i].ModelID < out[j].ModelID
	})
	return out
}
