package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"riskwatch/monitor/internal/models"
)

// schema defines the articles table. Link uniqueness is the deduplication
// contract: inserting a known link is a no-op, not an error.
const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	link TEXT NOT NULL UNIQUE,
	published TEXT NOT NULL DEFAULT '',
	published_at DATETIME,
	source TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	risk_score INTEGER NOT NULL,
	sector TEXT NOT NULL,
	lat REAL,
	lon REAL,
	is_upcoming INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_sector ON articles(sector);
CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at);
`

// Store wraps the sqlite connection holding classified articles.
type Store struct {
	*sqlx.DB
}

// Open creates a store connection with settings tuned for a single writer and
// concurrent readers. WAL mode allows reads while the ingest loop writes.
// A failure here is fatal to the caller: an unreachable store at startup
// requires operator intervention.
func Open(cfg *Config) (*Store, error) {
	dir := filepath.Dir(cfg.DBPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	dsn := fmt.Sprintf("%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=%d",
		cfg.DBPath, cfg.BusyTimeoutMS)

	if cfg.ReadOnly {
		dsn += "&mode=ro"
		log.Info().Str("path", cfg.DBPath).Msg("Opening database in Read-Only mode")
	} else {
		log.Info().Str("path", cfg.DBPath).Msg("Opening database in Read-Write mode")
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	var pragmas []string
	if cfg.ReadOnly {
		pragmas = []string{
			fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
			"PRAGMA temp_store = MEMORY;",
			"PRAGMA query_only = ON;",
		}
	} else {
		pragmas = []string{
			fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
			"PRAGMA temp_store = MEMORY;",
		}
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Failed to set PRAGMA")
		}
	}

	if !cfg.ReadOnly {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db}, nil
}

// Insert writes an article unless its link is already present. The unique
// constraint plus ON CONFLICT DO NOTHING makes duplicate and concurrent
// inserts of the same link a no-op. Returns true when a new row was written.
func (s *Store) Insert(ctx context.Context, article *models.Article) (bool, error) {
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}

	res, err := s.ExecContext(ctx, `
		INSERT INTO articles (title, link, published, published_at, source, category, risk_score, sector, lat, lon, is_upcoming, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO NOTHING;`,
		article.Title, article.Link, article.Published, article.PublishedAt,
		article.Source, article.Category, article.RiskScore, article.Sector,
		article.Lat, article.Lon, article.IsUpcoming, article.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article %s: %w", article.Link, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for %s: %w", article.Link, err)
	}
	return rows > 0, nil
}

// Latest returns the most recently inserted articles, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]models.Article, error) {
	var articles []models.Article
	err := s.SelectContext(ctx, &articles,
		`SELECT * FROM articles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest articles: %w", err)
	}
	return articles, nil
}

// Reset drops all articles and recreates an empty schema. Called only at
// system (re)initialization, never during normal operation.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, `DROP TABLE IF EXISTS articles;`); err != nil {
		return fmt.Errorf("failed to drop articles table: %w", err)
	}
	if _, err := s.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to recreate schema: %w", err)
	}
	log.Info().Msg("Article store reset")
	return nil
}

// DeleteDB removes the database file if it exists.
func DeleteDB(dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		return os.Remove(dbPath)
	}
	return nil
}
