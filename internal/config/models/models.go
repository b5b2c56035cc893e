// Package models loads the `models.<id>.*` competitor table from its own
// YAML file, the way pkg/manager/config.go loads its per-trader table:
// raw durations parsed separately from the struct tags that carry them,
// defaults applied before validation.
package models

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"arena/pkg/confkit"
)

// Parameters mirrors `models.<id>.parameters.*`.
type Parameters struct {
	MaxTokens            int     `yaml:"maxTokens"`
	Temperature          float64 `yaml:"temperature"`
	MaxRequestsPerMinute int     `yaml:"maxRequestsPerMinute"`
	MaxRetries           int     `yaml:"maxRetries"`

	TimeoutRaw    string `yaml:"timeout"`
	RetryDelayRaw string `yaml:"retryDelay"`

	Timeout    time.Duration `yaml:"-"`
	RetryDelay time.Duration `yaml:"-"`
}

// Model is one `models.<id>` entry.
type Model struct {
	ID         string     `yaml:"-"`
	Alias      string     `yaml:"alias"`
	Enabled    bool       `yaml:"enabled"`
	Priority   int        `yaml:"priority"`
	Parameters Parameters `yaml:"parameters"`
}

// Config is the full `models.<id>` table, keyed by model ID.
type Config struct {
	Models map[string]Model `yaml:"models"`
}

// LoadConfig reads the models table from path.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open models config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader parses, defaults, and validates a models table.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read models config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal models config: %w", err)
	}

	for id, m := range cfg.Models {
		m.ID = id
		m.applyDefaults()
		if err := m.parseDurations(); err != nil {
			return nil, err
		}
		cfg.Models[id] = m
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (m *Model) applyDefaults() {
	if strings.TrimSpace(m.Alias) == "" {
		m.Alias = m.ID
	}
	if m.Parameters.MaxTokens <= 0 {
		m.Parameters.MaxTokens = 800
	}
	if m.Parameters.MaxRequestsPerMinute <= 0 {
		m.Parameters.MaxRequestsPerMinute = 20
	}
	if strings.TrimSpace(m.Parameters.TimeoutRaw) == "" {
		m.Parameters.TimeoutRaw = "30s"
	}
	if strings.TrimSpace(m.Parameters.RetryDelayRaw) == "" {
		m.Parameters.RetryDelayRaw = "1s"
	}
}

func (m *Model) parseDurations() error {
	timeout, err := time.ParseDuration(m.Parameters.TimeoutRaw)
	if err != nil || timeout <= 0 {
		return fmt.Errorf("models config: %s.parameters.timeout invalid: %q", m.ID, m.Parameters.TimeoutRaw)
	}
	m.Parameters.Timeout = timeout

	retryDelay, err := time.ParseDuration(m.Parameters.RetryDelayRaw)
	if err != nil || retryDelay < 0 {
		return fmt.Errorf("models config: %s.parameters.retryDelay invalid: %q", m.ID, m.Parameters.RetryDelayRaw)
	}
	m.Parameters.RetryDelay = retryDelay
	return nil
}

// Validate checks that at least one model is enabled, per the
// "no enabled models -> fatal at initialization" rule.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("models config: at least one model must be defined")
	}
	enabled := 0
	for _, m := range c.Models {
		if m.Enabled {
			enabled++
		}
		if m.Priority < 0 {
			return fmt.Errorf("models config: %s.priority cannot be negative", m.ID)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("models config: at least one model must be enabled")
	}
	return nil
}

// Enabled returns enabled models ordered by descending priority, then by ID.
func (c *Config) Enabled() []Model {
	out := make([]Model, 0, len(c.Models))
	for _, m := range c.Models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}
