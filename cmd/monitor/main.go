package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"riskwatch/monitor/internal/classify"
	"riskwatch/monitor/internal/config"
	"riskwatch/monitor/internal/ingest"
	"riskwatch/monitor/internal/server"
	"riskwatch/monitor/internal/store"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func usage() {
	fmt.Println("Usage: monitor [command] [options]")
	fmt.Println("Commands: init, start, server")
	fmt.Println("\nFor command-specific options, use: monitor [command] -h")
}

func main() {
	cfg := config.DefaultConfig()

	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	initCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("MONITOR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: MONITOR_DB_PATH)")

	var initLogLevelStr string
	initCmd.StringVar(&initLogLevelStr, "log-level", config.GetEnvString("MONITOR_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: MONITOR_LOG_LEVEL)")

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	startCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("MONITOR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: MONITOR_DB_PATH)")
	startCmd.StringVar(&cfg.RulesPath, "rules", config.GetEnvString("MONITOR_RULES_PATH", config.DefaultRulesPath),
		"Path to the hot-reloadable rules file (env: MONITOR_RULES_PATH)")
	startCmd.StringVar(&cfg.ClassifierURL, "classifier", cfg.ClassifierURL,
		"Zero-shot classifier endpoint URL (env: MONITOR_CLASSIFIER_URL)")

	var once bool
	startCmd.BoolVar(&once, "once", false, "Run a single ingestion cycle and exit")

	var startLogLevelStr string
	startCmd.StringVar(&startLogLevelStr, "log-level", config.GetEnvString("MONITOR_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: MONITOR_LOG_LEVEL)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("MONITOR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: MONITOR_DB_PATH)")
	serverCmd.StringVar(&cfg.RulesPath, "rules", config.GetEnvString("MONITOR_RULES_PATH", config.DefaultRulesPath),
		"Path to the rules file, read for the tracked sector list (env: MONITOR_RULES_PATH)")
	serverCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("MONITOR_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: MONITOR_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("MONITOR_PORT", config.DefaultServerPort),
		"Port to listen on (env: MONITOR_PORT)")

	var serverLogLevelStr string
	serverCmd.StringVar(&serverLogLevelStr, "log-level", config.GetEnvString("MONITOR_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: MONITOR_LOG_LEVEL)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, initLogLevelStr)

		if err := runInit(cfg); err != nil {
			log.Error().Err(err).Msg("Init failed")
			os.Exit(1)
		}

	case "start":
		startCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, startLogLevelStr)

		if err := runStart(cfg, once); err != nil {
			log.Error().Err(err).Msg("Ingestion failed")
			os.Exit(1)
		}

	case "server":
		serverCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, serverLogLevelStr)

		if err := runServer(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		usage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		usage()
		os.Exit(1)
	}
}

func applyLogLevel(cfg *config.Config, levelStr string) {
	if level, err := zerolog.ParseLevel(levelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// runInit resets the article store to an empty schema. It prompts for
// confirmation before destroying an existing database.
func runInit(cfg *config.Config) error {
	if _, err := os.Stat(cfg.DBPath); err == nil {
		fmt.Printf("Database %s already exists. All stored articles will be lost.\n", cfg.DBPath)
		fmt.Print("Delete and recreate? (y/N): ")

		var answer string
		fmt.Scanln(&answer)

		if strings.ToLower(answer) != "y" {
			log.Info().Msg("Operation canceled by user")
			return fmt.Errorf("operation canceled by user")
		}

		if err := store.DeleteDB(cfg.DBPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("Deleted existing database")
	}

	db, err := store.Open(store.NewConfig(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	if err := db.Reset(context.Background()); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	log.Info().Str("path", cfg.DBPath).Msg("Article store initialized")
	return nil
}

// runStart runs the ingestion loop, either once or periodically. The store
// being unreachable here is fatal; everything past this point recovers
// per-source or per-item.
func runStart(cfg *config.Config, once bool) error {
	if cfg.ClassifierURL == "" {
		return fmt.Errorf("classifier endpoint is required (set -classifier or MONITOR_CLASSIFIER_URL)")
	}

	db, err := store.Open(store.NewConfig(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	classifier := classify.NewZeroShotClient(cfg.ClassifierURL, cfg.ClassifierAPIKey, cfg.ClassifierTimeout)
	scheduler := ingest.NewScheduler(ingest.Deps{
		Store:     db,
		Engine:    classify.NewEngine(classifier),
		Fetcher:   ingest.NewGofeedFetcher(cfg.ClassifierTimeout * 2),
		RulesPath: cfg.RulesPath,
	})

	if once {
		log.Info().Msg("Running in one-shot mode")
		scheduler.RunCycle(context.Background())
		processed, duplicates, skipped := scheduler.Stats()
		log.Info().
			Int64("processed", processed).
			Int64("duplicates", duplicates).
			Int64("skipped", skipped).
			Msg("Ingestion stats")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	return scheduler.Run(ctx)
}

// runServer starts the read-only analytics API.
func runServer(cfg *config.Config) error {
	dbCfg := store.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = true

	db, err := store.Open(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// The tracked sector set comes from the rules file; the server reads it
	// once at startup.
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.RulesPath).Msg("Rules load failed, sector status will be empty")
		rules = config.DefaultRules()
	}

	return server.RunServer(db, cfg.ListenAddr(), log.Logger, cfg.APIKey, rules.SectorNames())
}
