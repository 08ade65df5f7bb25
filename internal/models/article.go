package models

import "time"

// Risk categories assigned by the classification engine. Score bands never
// overlap across categories: Critical 80-100, Warning 50-79, Opportunity 0,
// Info 10.
const (
	CategoryCritical    = "Critical"
	CategoryWarning     = "Warning"
	CategoryOpportunity = "Opportunity"
	CategoryInfo        = "Info"
)

// SectorGeneral is the fallback sector when no configured rule matches.
const SectorGeneral = "GENERAL"

// Article represents a row in the 'articles' table: one classified feed item.
// Articles are immutable after insert and deduplicated by link.
type Article struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Link        string     `db:"link" json:"link"`
	Published   string     `db:"published" json:"published"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	Source      string     `db:"source" json:"source"`
	Category    string     `db:"category" json:"category"`
	RiskScore   int        `db:"risk_score" json:"risk_score"`
	Sector      string     `db:"sector" json:"sector"`
	Lat         *float64   `db:"lat" json:"lat,omitempty"`
	Lon         *float64   `db:"lon" json:"lon,omitempty"`
	IsUpcoming  bool       `db:"is_upcoming" json:"is_upcoming"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// HasLocation reports whether both coordinates are present. Lat/lon nullity
// is always paired.
func (a *Article) HasLocation() bool {
	return a.Lat != nil && a.Lon != nil
}
