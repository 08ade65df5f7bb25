package analytics

import (
	"context"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"riskwatch/monitor/internal/config"
	"riskwatch/monitor/internal/models"
)

// SectorAll disables sector filtering.
const SectorAll = "All"

const (
	indicatorWindow    = 50
	insightLimit       = 5
	sectorStatusWindow = 10
	upcomingLimit      = 5
	criticalThreshold  = 80
	riskThreshold      = 70
	opportunityCeiling = 20
)

// ArticleReader is the read side of the article store analytics depends on.
type ArticleReader interface {
	Latest(ctx context.Context, limit int) ([]models.Article, error)
}

// Engine computes derived views over a recency-bounded snapshot of the
// store. Every operation fetches its own snapshot at call time, so readers
// see a consistent window and never block the ingest writer.
type Engine struct {
	reader        ArticleReader
	snapshotLimit int
}

// NewEngine builds an analytics engine over the given reader.
func NewEngine(reader ArticleReader) *Engine {
	return &Engine{
		reader:        reader,
		snapshotLimit: config.SnapshotLimit,
	}
}

// snapshot returns the latest articles, newest first, optionally filtered to
// one sector. "All" or empty means no filtering.
func (e *Engine) snapshot(ctx context.Context, sector string) ([]models.Article, error) {
	articles, err := e.reader.Latest(ctx, e.snapshotLimit)
	if err != nil {
		return nil, err
	}
	return filterSector(articles, sector), nil
}

func filterSector(articles []models.Article, sector string) []models.Article {
	if sector == "" || sector == SectorAll {
		return articles
	}
	filtered := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if a.Sector == sector {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// Indicators are the national-level health numbers.
type Indicators struct {
	Stability     int `json:"stability"`
	CriticalCount int `json:"critical_count"`
	Volume24h     int `json:"volume_24h"`
}

// Indicators computes the stability score (inverse of the mean risk of the
// 50 most recent matching articles, an empty window counting as zero risk),
// the number of critical articles, and the matching volume over the last 24
// hours. When no article in the window has a parseable timestamp, the total
// matching count stands in for the 24h volume.
func (e *Engine) Indicators(ctx context.Context, sector string) (Indicators, error) {
	articles, err := e.snapshot(ctx, sector)
	if err != nil {
		return Indicators{}, err
	}

	window := articles
	if len(window) > indicatorWindow {
		window = window[:indicatorWindow]
	}

	avgRisk := 0.0
	if len(window) > 0 {
		scores := make([]float64, len(window))
		for i, a := range window {
			scores[i] = float64(a.RiskScore)
		}
		avgRisk, _ = stats.Mean(scores)
	}

	ind := Indicators{Stability: 100 - int(math.Round(avgRisk))}

	anyParseable := false
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	for _, a := range articles {
		if a.RiskScore > criticalThreshold {
			ind.CriticalCount++
		}
		if a.PublishedAt != nil {
			anyParseable = true
			if a.PublishedAt.After(cutoff) {
				ind.Volume24h++
			}
		}
	}
	if !anyParseable {
		ind.Volume24h = len(articles)
	}

	return ind, nil
}

// Insights pairs the top risk articles with the top opportunities.
type Insights struct {
	Risks         []models.Article `json:"risks"`
	Opportunities []models.Article `json:"opportunities"`
}

// TopInsights returns the first five matching high-risk articles and the
// first five opportunities, both in the store's recency order.
func (e *Engine) TopInsights(ctx context.Context, sector string) (Insights, error) {
	articles, err := e.snapshot(ctx, sector)
	if err != nil {
		return Insights{}, err
	}

	insights := Insights{
		Risks:         make([]models.Article, 0, insightLimit),
		Opportunities: make([]models.Article, 0, insightLimit),
	}
	for _, a := range articles {
		if a.RiskScore > riskThreshold && len(insights.Risks) < insightLimit {
			insights.Risks = append(insights.Risks, a)
		}
		if (a.RiskScore < opportunityCeiling || a.Category == models.CategoryOpportunity) &&
			len(insights.Opportunities) < insightLimit {
			insights.Opportunities = append(insights.Opportunities, a)
		}
	}
	return insights, nil
}

// SectorScore is the average recent risk for one tracked sector.
type SectorScore struct {
	Sector string `json:"sector"`
	Score  int    `json:"score"`
}

// SectorStatus averages the risk of the 10 most recent articles per tracked
// sector, in the order the sectors were configured. Sectors with no articles
// score zero.
func (e *Engine) SectorStatus(ctx context.Context, sectors []string) ([]SectorScore, error) {
	articles, err := e.snapshot(ctx, SectorAll)
	if err != nil {
		return nil, err
	}

	status := make([]SectorScore, 0, len(sectors))
	for _, sector := range sectors {
		matching := filterSector(articles, sector)
		if len(matching) > sectorStatusWindow {
			matching = matching[:sectorStatusWindow]
		}

		score := 0
		if len(matching) > 0 {
			scores := make([]float64, len(matching))
			for i, a := range matching {
				scores[i] = float64(a.RiskScore)
			}
			avg, _ := stats.Mean(scores)
			score = int(avg)
		}
		status = append(status, SectorScore{Sector: sector, Score: score})
	}
	return status, nil
}

// UpcomingEvents returns the first five matching articles flagged as
// future/scheduled events.
func (e *Engine) UpcomingEvents(ctx context.Context, sector string) ([]models.Article, error) {
	articles, err := e.snapshot(ctx, sector)
	if err != nil {
		return nil, err
	}

	upcoming := make([]models.Article, 0, upcomingLimit)
	for _, a := range articles {
		if a.IsUpcoming {
			upcoming = append(upcoming, a)
			if len(upcoming) == upcomingLimit {
				break
			}
		}
	}
	return upcoming, nil
}

// MapPoint is one plottable article location.
type MapPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	RiskScore int     `json:"risk_score"`
	Title     string  `json:"title"`
}

// MapPoints returns the matching articles that carry both coordinates.
func (e *Engine) MapPoints(ctx context.Context, sector string) ([]MapPoint, error) {
	articles, err := e.snapshot(ctx, sector)
	if err != nil {
		return nil, err
	}

	points := make([]MapPoint, 0, len(articles))
	for _, a := range articles {
		if a.HasLocation() {
			points = append(points, MapPoint{
				Lat:       *a.Lat,
				Lon:       *a.Lon,
				RiskScore: a.RiskScore,
				Title:     a.Title,
			})
		}
	}
	return points, nil
}

// Articles returns the filtered feed, newest first, capped at limit.
func (e *Engine) Articles(ctx context.Context, sector string, limit int) ([]models.Article, error) {
	articles, err := e.snapshot(ctx, sector)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}
