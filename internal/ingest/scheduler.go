package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"riskwatch/monitor/internal/classify"
	"riskwatch/monitor/internal/config"
	"riskwatch/monitor/internal/models"
)

// ArticleStore is the write side of the article store the scheduler needs.
type ArticleStore interface {
	Insert(ctx context.Context, article *models.Article) (bool, error)
}

// Scheduler drives the periodic ingestion cycle: reload rules, poll every
// configured source in list order, classify each entry and persist it. Every
// per-source and per-item failure is contained at its own boundary; the loop
// only stops when its context is cancelled, and cancellation is observed at
// the inter-cycle sleep.
type Scheduler struct {
	store     ArticleStore
	engine    *classify.Engine
	fetcher   FeedFetcher
	rulesPath string

	// lastRules is the last-known-good configuration, used when a reload
	// fails mid-flight.
	lastRules *config.Rules

	processed  atomic.Int64
	duplicates atomic.Int64
	skipped    atomic.Int64
}

// Deps wires the scheduler's collaborators.
type Deps struct {
	Store     ArticleStore
	Engine    *classify.Engine
	Fetcher   FeedFetcher
	RulesPath string
}

// NewScheduler builds an ingestion scheduler.
func NewScheduler(deps Deps) *Scheduler {
	return &Scheduler{
		store:     deps.Store,
		engine:    deps.Engine,
		fetcher:   deps.Fetcher,
		rulesPath: deps.RulesPath,
	}
}

// Run executes ingestion cycles until ctx is cancelled. The interval comes
// from the rules file and is re-read every cycle, so operators can retune it
// without a restart.
func (s *Scheduler) Run(ctx context.Context) error {
	rules := s.RunCycle(ctx)

	ticker := time.NewTicker(rules.Interval())
	defer ticker.Stop()

	log.Info().
		Dur("interval", rules.Interval()).
		Time("next_run", time.Now().Add(rules.Interval())).
		Msg("Waiting for next ingestion cycle")

	for {
		select {
		case <-ticker.C:
			rules = s.RunCycle(ctx)
			ticker.Reset(rules.Interval())

			processed, duplicates, skipped := s.Stats()
			log.Info().
				Int64("processed", processed).
				Int64("duplicates", duplicates).
				Int64("skipped", skipped).
				Time("next_run", time.Now().Add(rules.Interval())).
				Msg("Waiting for next ingestion cycle")

		case <-ctx.Done():
			log.Info().Msg("Shutting down ingestion loop")
			return nil
		}
	}
}

// RunCycle performs one full cycle and returns the rules version it ran
// with. Sources are processed sequentially in configured order; one bad
// source never aborts the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) *config.Rules {
	rules := s.reloadRules()

	startTime := time.Now()
	for _, source := range rules.Sources {
		if err := s.processSource(ctx, source, rules); err != nil {
			log.Error().
				Err(err).
				Str("source", source.Name).
				Msg("Source failed, continuing cycle")
		}
	}

	log.Info().
		Int("sources", len(rules.Sources)).
		Dur("duration", time.Since(startTime)).
		Msg("Ingestion cycle finished")
	return rules
}

// reloadRules re-reads the rules file, falling back to the last good copy
// (or safe empty defaults) when the read or parse fails. A bad config edit
// must never crash the in-flight cycle.
func (s *Scheduler) reloadRules() *config.Rules {
	rules, err := config.LoadRules(s.rulesPath)
	if err != nil {
		log.Warn().Err(err).Str("path", s.rulesPath).Msg("Rules reload failed, keeping previous configuration")
		if s.lastRules != nil {
			return s.lastRules
		}
		return config.DefaultRules()
	}

	s.lastRules = rules
	log.Debug().
		Int("sectors", len(rules.Sectors)).
		Int("places", len(rules.Gazetteer)).
		Int("sources", len(rules.Sources)).
		Msg("Rules reloaded")
	return rules
}

// processSource fetches one feed and runs its first entries through the
// classification engine and into the store.
func (s *Scheduler) processSource(ctx context.Context, source config.Source, rules *config.Rules) error {
	entries, err := s.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return fmt.Errorf("fetch source %s: %w", source.Name, err)
	}
	if len(entries) > config.MaxEntriesPerSource {
		entries = entries[:config.MaxEntriesPerSource]
	}

	for _, entry := range entries {
		if entry.Link == "" {
			log.Warn().Str("source", source.Name).Msg("Entry has empty link, skipping")
			s.skipped.Add(1)
			continue
		}

		title := classify.Normalize(entry.Title)

		category, score, err := s.engine.ClassifyRisk(ctx, title)
		if err != nil {
			// Never persist a guessed score. The source may re-serve the
			// entry next cycle and dedup makes the retry safe.
			log.Warn().
				Err(err).
				Str("source", source.Name).
				Str("link", entry.Link).
				Msg("Classification failed, skipping item")
			s.skipped.Add(1)
			continue
		}

		lat, lon := classify.Locate(title, rules.Gazetteer)
		article := &models.Article{
			Title:       title,
			Link:        entry.Link,
			Published:   entry.Published,
			PublishedAt: entry.PublishedAt,
			Source:      source.Name,
			Category:    category,
			RiskScore:   score,
			Sector:      classify.DetectSector(title, rules.Sectors),
			Lat:         lat,
			Lon:         lon,
			IsUpcoming:  classify.DetectUpcoming(title),
		}

		inserted, err := s.store.Insert(ctx, article)
		if err != nil {
			log.Error().
				Err(err).
				Str("link", entry.Link).
				Msg("Insert failed, skipping item")
			s.skipped.Add(1)
			continue
		}

		if inserted {
			s.processed.Add(1)
			log.Debug().
				Str("sector", article.Sector).
				Int("risk", article.RiskScore).
				Str("title", truncate(article.Title, 60)).
				Msg("Article stored")
		} else {
			s.duplicates.Add(1)
		}
	}

	return nil
}

// Stats returns cumulative ingestion counters.
func (s *Scheduler) Stats() (processed, duplicates, skipped int64) {
	return s.processed.Load(), s.duplicates.Load(), s.skipped.Load()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
