package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskwatch/monitor/internal/classify"
	"riskwatch/monitor/internal/config"
	"riskwatch/monitor/internal/models"
	"riskwatch/monitor/internal/store"
)

// stubFetcher serves canned entries (or an error) per feed URL.
type stubFetcher struct {
	entries map[string][]Entry
	errs    map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]Entry, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.entries[url], nil
}

// stubClassifier returns a fixed label with fixed confidence, or an error.
type stubClassifier struct {
	label      string
	confidence float64
	err        error
}

func (s stubClassifier) Classify(_ context.Context, _ string, _ []string) (classify.Result, error) {
	if s.err != nil {
		return classify.Result{}, s.err
	}
	return classify.Result{Labels: []string{s.label}, Scores: []float64{s.confidence}}, nil
}

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const threeSourceRules = `
sectors:
  - name: INFRASTRUCTURE
    keywords: [riot]
gazetteer:
  - { name: Colombo, lat: 6.9, lon: 79.8 }
sources:
  - { name: one, url: "https://one.example/rss" }
  - { name: two, url: "https://two.example/rss" }
  - { name: three, url: "https://three.example/rss" }
`

func TestCycleSurvivesFailingSource(t *testing.T) {
	t.Parallel()

	db := openTestStore(t)
	fetcher := &stubFetcher{
		entries: map[string][]Entry{
			"https://one.example/rss":   {{Title: "Quiet day in markets", Link: "https://one.example/1"}},
			"https://three.example/rss": {{Title: "Ports operating normally", Link: "https://three.example/1"}},
		},
		errs: map[string]error{
			"https://two.example/rss": errors.New("connection reset"),
		},
	}

	s := NewScheduler(Deps{
		Store:     db,
		Engine:    classify.NewEngine(stubClassifier{label: "Normal Business Operation", confidence: 0.9}),
		Fetcher:   fetcher,
		RulesPath: writeRulesFile(t, threeSourceRules),
	})

	s.RunCycle(context.Background())

	articles, err := db.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, articles, 2, "sources one and three must still persist despite source two failing")

	sources := []string{articles[0].Source, articles[1].Source}
	assert.ElementsMatch(t, []string{"one", "three"}, sources)

	processed, _, _ := s.Stats()
	assert.Equal(t, int64(2), processed)
}

func TestCycleEndToEnd(t *testing.T) {
	t.Parallel()

	db := openTestStore(t)
	fetcher := &stubFetcher{
		entries: map[string][]Entry{
			"https://one.example/rss": {{
				Title:     "<b>Riots erupt</b> in Colombo, scheduled curfew tomorrow",
				Link:      "L1",
				Published: "Mon, 02 Jan 2006 15:04:05 GMT",
			}},
		},
	}

	s := NewScheduler(Deps{
		Store:     db,
		Engine:    classify.NewEngine(stubClassifier{label: "Critical Unrest", confidence: 0.5}),
		Fetcher:   fetcher,
		RulesPath: writeRulesFile(t, threeSourceRules),
	})

	s.RunCycle(context.Background())

	articles, err := db.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "L1", a.Link)
	assert.NotContains(t, a.Title, "<")
	assert.Contains(t, a.Title, "Riots erupt in Colombo")
	assert.Equal(t, "INFRASTRUCTURE", a.Sector)
	assert.True(t, a.IsUpcoming)
	require.True(t, a.HasLocation())
	assert.InDelta(t, 6.9, *a.Lat, 1e-9)
	assert.InDelta(t, 79.8, *a.Lon, 1e-9)
	assert.Equal(t, models.CategoryCritical, a.Category)
	assert.Equal(t, 90, a.RiskScore)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", a.Published)
}

func TestCycleSkipsItemsWhenClassifierDown(t *testing.T) {
	t.Parallel()

	db := openTestStore(t)
	fetcher := &stubFetcher{
		entries: map[string][]Entry{
			"https://one.example/rss": {{Title: "Some headline", Link: "https://one.example/1"}},
		},
	}

	s := NewScheduler(Deps{
		Store:     db,
		Engine:    classify.NewEngine(stubClassifier{err: errors.New("model offline")}),
		Fetcher:   fetcher,
		RulesPath: writeRulesFile(t, threeSourceRules),
	})

	s.RunCycle(context.Background())

	// Nothing persisted with guessed data.
	articles, err := db.Latest(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, articles)

	_, _, skipped := s.Stats()
	assert.Equal(t, int64(1), skipped)
}

func TestCycleBoundsEntriesPerSource(t *testing.T) {
	t.Parallel()

	var entries []Entry
	for i := 0; i < 20; i++ {
		entries = append(entries, Entry{
			Title: fmt.Sprintf("headline %d", i),
			Link:  fmt.Sprintf("https://one.example/%d", i),
		})
	}

	db := openTestStore(t)
	s := NewScheduler(Deps{
		Store:     db,
		Engine:    classify.NewEngine(stubClassifier{label: "Normal Business Operation", confidence: 0.5}),
		Fetcher:   &stubFetcher{entries: map[string][]Entry{"https://one.example/rss": entries}},
		RulesPath: writeRulesFile(t, threeSourceRules),
	})

	s.RunCycle(context.Background())

	articles, err := db.Latest(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, articles, config.MaxEntriesPerSource)
}

func TestCycleDeduplicatesAcrossCycles(t *testing.T) {
	t.Parallel()

	db := openTestStore(t)
	s := NewScheduler(Deps{
		Store:  db,
		Engine: classify.NewEngine(stubClassifier{label: "Normal Business Operation", confidence: 0.5}),
		Fetcher: &stubFetcher{entries: map[string][]Entry{
			"https://one.example/rss": {{Title: "repeat story", Link: "https://one.example/1"}},
		}},
		RulesPath: writeRulesFile(t, threeSourceRules),
	})

	s.RunCycle(context.Background())
	s.RunCycle(context.Background())

	articles, err := db.Latest(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, articles, 1)

	processed, duplicates, _ := s.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Equal(t, int64(1), duplicates)
}

func TestReloadFallsBackToLastGoodRules(t *testing.T) {
	t.Parallel()

	path := writeRulesFile(t, threeSourceRules)

	s := NewScheduler(Deps{
		Store:     openTestStore(t),
		Engine:    classify.NewEngine(stubClassifier{label: "Normal Business Operation", confidence: 0.5}),
		Fetcher:   &stubFetcher{},
		RulesPath: path,
	})

	rules := s.RunCycle(context.Background())
	require.Len(t, rules.Sources, 3)

	// Corrupt the file; the next cycle keeps the previous configuration.
	require.NoError(t, os.WriteFile(path, []byte("sources: [not: valid"), 0644))
	rules = s.RunCycle(context.Background())
	assert.Len(t, rules.Sources, 3)
}

func TestReloadFallsBackToEmptyDefaults(t *testing.T) {
	t.Parallel()

	s := NewScheduler(Deps{
		Store:     openTestStore(t),
		Engine:    classify.NewEngine(stubClassifier{label: "Normal Business Operation", confidence: 0.5}),
		Fetcher:   &stubFetcher{},
		RulesPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})

	// No rules file has ever loaded: the cycle runs with safe empty
	// defaults instead of crashing.
	rules := s.RunCycle(context.Background())
	assert.Empty(t, rules.Sources)
	assert.Positive(t, rules.IntervalSeconds)
}
