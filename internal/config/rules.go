package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SectorRule maps a sector name to the keywords that select it. Rules are
// held in a slice, not a map: the first matching rule wins, so declaration
// order in the file is significant.
type SectorRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Place is one gazetteer entry. Entries are scanned in declaration order and
// the first name found in the text wins.
type Place struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Source identifies one syndication feed to poll.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Rules is the hot-reloadable part of the configuration. The scheduler
// re-reads it at the start of every cycle so operators can edit keywords,
// places and sources without restarting the process. A Rules value is
// immutable once loaded.
type Rules struct {
	Sectors         []SectorRule `yaml:"sectors"`
	Gazetteer       []Place      `yaml:"gazetteer"`
	Sources         []Source     `yaml:"sources"`
	IntervalSeconds int          `yaml:"interval_seconds"`
}

// DefaultRules returns the safe-empty fallback used when no rules file has
// ever loaded successfully. Ingestion with empty rules classifies everything
// as GENERAL with no coordinates, which degrades accuracy but never crashes.
func DefaultRules() *Rules {
	return &Rules{IntervalSeconds: DefaultIntervalSeconds}
}

// LoadRules reads and parses the rules file. Callers keep their previous copy
// on error.
func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(raw, rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if rules.IntervalSeconds <= 0 {
		rules.IntervalSeconds = DefaultIntervalSeconds
	}
	return rules, nil
}

// Interval returns the poll interval between ingestion cycles.
func (r *Rules) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// SectorNames returns the configured sector set in declaration order.
func (r *Rules) SectorNames() []string {
	names := make([]string, 0, len(r.Sectors))
	for _, rule := range r.Sectors {
		names = append(names, rule.Name)
	}
	return names
}
