package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds process-level configuration. Everything here is fixed for the
// lifetime of the process; the hot-reloadable parts (sector rules, gazetteer,
// sources, poll interval) live in the rules file and are re-read every cycle.
type Config struct {
	// File paths
	DBPath    string
	RulesPath string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Classifier settings
	ClassifierURL     string
	ClassifierAPIKey  string
	ClassifierTimeout time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:            DefaultDBPath,
		RulesPath:         DefaultRulesPath,
		ServerHost:        DefaultServerHost,
		ServerPort:        DefaultServerPort,
		APIKey:            GetEnvString("MONITOR_API_KEY", ""),
		ClassifierURL:     GetEnvString("MONITOR_CLASSIFIER_URL", ""),
		ClassifierAPIKey:  GetEnvString("MONITOR_CLASSIFIER_API_KEY", ""),
		ClassifierTimeout: GetEnvDuration("MONITOR_CLASSIFIER_TIMEOUT", DefaultClassifierTimeout),
		LogLevel:          logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
