// Package cli renders human-readable startup summaries for cmd/arena,
// mirroring the teacher's ConfigSummaryLines/LogConfigSummary split: a pure
// formatter plus a thin logx-backed wrapper.
package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"arena/internal/config"
	"arena/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded
// competition config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	return []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Trading mode: %s, capitalPerModel=%.2f", cfg.Trading.Mode, cfg.Trading.CapitalPerModel),
		fmt.Sprintf("Symbols: %s", strings.Join(cfg.Exchange.Symbols, ", ")),
		fmt.Sprintf("Timeframes: %s", strings.Join(cfg.Exchange.Timeframes, ", ")),
		fmt.Sprintf("Decision interval: %ds, round timeout: %ds", cfg.Arena.DecisionIntervalSeconds, cfg.Arena.RoundTimeoutSeconds),
		fmt.Sprintf("Results path: %s", cfg.Results),
		sectionLine("LLM config", cfg.LLM),
		sectionLine("Models config", cfg.Models),
	}
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	logx.Info("configuration summary")
	for _, line := range ConfigSummaryLines(cfg) {
		logx.Infof("config • %s", line)
	}
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
