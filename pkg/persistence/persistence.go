// Package persistence writes a finished competition session to disk, in
// the layout consumed by external tooling: a JSON document, a CSV
// leaderboard, and an optional msgpack archive. Write failures are
// logged, never propagated — persistence is best-effort, not part of the
// scheduler's control flow.
package persistence

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"arena/pkg/leaderboard"
)

// RoundResult is one persisted round: the per-symbol prices observed and
// the per-model action histogram/execution counts for that round.
type RoundResult struct {
	Round          int                `json:"round"`
	At             time.Time          `json:"at"`
	Prices         map[string]float64 `json:"prices"`
	ModelActions   map[string]Actions `json:"model_actions"`
	Leaderboard    []leaderboard.Entry `json:"leaderboard,omitempty"`
}

// Actions is one model's action histogram and execution count for a round.
type Actions struct {
	Holds     int `json:"holds"`
	Buys      int `json:"buys"`
	Sells     int `json:"sells"`
	Executed  int `json:"executed"`
	Rejected  int `json:"rejected"`
}

// SessionConfig is the subset of configuration worth recording alongside
// a session's results, for reproducibility.
type SessionConfig struct {
	DecisionIntervalSeconds int     `json:"decision_interval"`
	CapitalPerModel         float64 `json:"capital_per_model"`
}

// Session is a complete, finished competition run, ready to persist.
type Session struct {
	ID          string              `json:"session_id"`
	StartedAt   time.Time           `json:"session_start"`
	EndedAt     time.Time           `json:"session_end"`
	Symbols     []string            `json:"symbols"`
	TotalRounds int                 `json:"total_rounds"`
	Config      SessionConfig       `json:"config"`
	Leaderboard []leaderboard.Entry `json:"final_leaderboard"`
	Rounds      []RoundResult       `json:"round_results"`
	Summary     string              `json:"summary"`
}

// NewSessionID formats a session identifier in the documented
// YYYYMMDD_HHMMSS local-time layout.
func NewSessionID(at time.Time) string {
	return at.Format("20060102_150405")
}

// Writer persists finished sessions under a results directory, following
// the same directory-creation and deterministic-filename style as
// pkg/journal.Writer, generalized from per-cycle to per-session output.
type Writer struct {
	dir string
}

// NewWriter constructs a persistence writer rooted at dir (created lazily
// on first write). An empty dir defaults to "data/results".
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = filepath.Join("data", "results")
	}
	return &Writer{dir: dir}
}

// WriteSession writes the session's JSON document, CSV leaderboard, and
// msgpack archive. Each artifact's failure is logged independently; none
// of the three failing aborts the others, and no error is returned to the
// scheduler's control flow.
func (w *Writer) WriteSession(session Session) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		logx.Errorf("persistence: cannot create results dir %s: %v", w.dir, err)
		return
	}

	if err := w.writeJSON(session); err != nil {
		logx.Errorf("persistence: write session json: %v", err)
	}
	if err := w.writeCSV(session); err != nil {
		logx.Errorf("persistence: write leaderboard csv: %v", err)
	}
	if err := w.writeMsgpack(session); err != nil {
		logx.Errorf("persistence: write session msgpack: %v", err)
	}
}

func (w *Writer) writeJSON(session Session) error {
	path := filepath.Join(w.dir, fmt.Sprintf("session_%s.json", session.ID))
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (w *Writer) writeCSV(session Session) error {
	path := filepath.Join(w.dir, fmt.Sprintf("leaderboard_%s.csv", session.ID))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"model_id", "total_return_pct", "decisions_made", "trades_executed", "errors", "win_rate", "enabled"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, e := range session.Leaderboard {
		row := []string{
			e.ModelID,
			strconv.FormatFloat(e.TotalReturnPct, 'f', -1, 64),
			strconv.Itoa(e.DecisionsMade),
			strconv.Itoa(e.TradesExecuted),
			strconv.Itoa(e.Errors),
			strconv.FormatFloat(e.WinRate, 'f', -1, 64),
			strconv.FormatBool(e.Enabled),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeMsgpack(session Session) error {
	path := filepath.Join(w.dir, fmt.Sprintf("session_%s.msgpack", session.ID))
	data, err := msgpack.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
