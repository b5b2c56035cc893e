package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"arena/pkg/decision"
	"arena/pkg/ledger"
)

// RoundDebugRecord captures one model's participation in one round, for
// verbose debugging when a session's round-by-round reasoning needs
// inspecting after the fact: the persisted session/leaderboard files carry
// only the aggregate Actions histogram, not the raw bundle or account
// snapshot that produced it.
type RoundDebugRecord struct {
	Timestamp    time.Time          `json:"timestamp"`
	Round        int                `json:"round"`
	Seq          int                `json:"seq"`
	ModelID      string             `json:"model_id"`
	Prices       map[string]float64 `json:"prices,omitempty"`
	Bundle       decision.Bundle    `json:"bundle,omitempty"`
	Account      ledger.AccountView `json:"account_snapshot"`
	Success      bool               `json:"success"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

// Writer persists round-debug records to a directory as one JSON file per
// (round, model).
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteRoundDebug writes rec to a timestamped JSON file; the caller decides
// whether a write failure is worth logging.
func (w *Writer) WriteRoundDebug(rec *RoundDebugRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.Seq = w.seq
	name := fmt.Sprintf("round_%s_%05d_%s.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq, rec.ModelID)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
