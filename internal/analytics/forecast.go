package analytics

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog/log"
)

const (
	minForecastBuckets = 3
	forecastHorizon    = 4
)

// ForecastPoint is one hourly sample of mean risk.
type ForecastPoint struct {
	Time  time.Time `json:"time"`
	Score float64   `json:"score"`
}

// Forecast combines the observed hourly risk trend with a short linear
// projection. Projection[0] duplicates the last observed value so charts
// join the two segments without a gap.
type Forecast struct {
	History    []ForecastPoint `json:"history"`
	Projection []ForecastPoint `json:"projection"`
}

// Forecast resamples matching articles into hourly mean-risk buckets
// (missing hours count as zero), fits a linear trend and projects four
// additional hourly points. It returns nil without error when there is not
// enough data: no parseable timestamps, or fewer than three buckets.
func (e *Engine) Forecast(ctx context.Context, sector string) (*Forecast, error) {
	articles, err := e.snapshot(ctx, sector)
	if err != nil {
		return nil, err
	}

	buckets := make(map[time.Time][]float64)
	var first, last time.Time
	for _, a := range articles {
		if a.PublishedAt == nil {
			continue
		}
		hour := a.PublishedAt.UTC().Truncate(time.Hour)
		buckets[hour] = append(buckets[hour], float64(a.RiskScore))
		if first.IsZero() || hour.Before(first) {
			first = hour
		}
		if last.IsZero() || hour.After(last) {
			last = hour
		}
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	span := int(last.Sub(first)/time.Hour) + 1
	if span < minForecastBuckets {
		return nil, nil
	}

	history := make([]ForecastPoint, 0, span)
	series := make(stats.Series, 0, span)
	for i := 0; i < span; i++ {
		hour := first.Add(time.Duration(i) * time.Hour)
		mean := 0.0
		if scores, ok := buckets[hour]; ok {
			mean, _ = stats.Mean(scores)
		}
		history = append(history, ForecastPoint{Time: hour, Score: mean})
		series = append(series, stats.Coordinate{X: float64(i), Y: mean})
	}

	fitted, err := stats.LinearRegression(series)
	if err != nil {
		log.Debug().Err(err).Msg("Trend fit failed, skipping forecast")
		return nil, nil
	}

	// Bucket indices are uniformly spaced, so the fitted slope is just the
	// step between consecutive fitted values.
	slope := fitted[1].Y - fitted[0].Y
	lastFit := fitted[len(fitted)-1].Y
	lastObserved := history[len(history)-1]

	projection := make([]ForecastPoint, 0, forecastHorizon+1)
	projection = append(projection, lastObserved)
	for k := 1; k <= forecastHorizon; k++ {
		projection = append(projection, ForecastPoint{
			Time:  lastObserved.Time.Add(time.Duration(k) * time.Hour),
			Score: lastFit + slope*float64(k),
		})
	}

	return &Forecast{History: history, Projection: projection}, nil
}
