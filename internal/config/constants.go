package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultDBPath    = "./monitor.db"
	DefaultRulesPath = "./rules.yaml"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultIntervalSeconds   = 300 // Seconds between ingestion cycles
	DefaultClassifierTimeout = 15 * time.Second

	// MaxEntriesPerSource bounds per-cycle cost: only the first entries of
	// each feed are classified.
	MaxEntriesPerSource = 5

	// SnapshotLimit is the recency window analytics operates on.
	SnapshotLimit = 1000

	DefaultLogLevel = "debug"
)
