package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"riskwatch/monitor/internal/config"
	"riskwatch/monitor/internal/models"
)

// ErrClassifierUnavailable marks risk classification failures. The caller
// must skip the item for the cycle rather than persist a guessed score.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// riskLabels is the fixed candidate set the zero-shot classifier scores
// against. Only the top label and its confidence are consumed.
var riskLabels = []string{
	"Critical Unrest",
	"Natural Disaster",
	"Economic Crisis",
	"Political Instability",
	"Supply Chain Disruption",
	"Normal Business Operation",
	"Positive Growth",
}

// futureCues are the phrases that flag an article as describing a scheduled,
// not-yet-occurred event.
var futureCues = []string{
	"scheduled", "tomorrow", "next week", "planned", "to be",
	"upcoming", "postponed", "will be", "expected",
}

// Result is a ranked label/score response from a zero-shot classifier.
// Labels are ordered by descending score; Scores is parallel, each in [0,1].
type Result struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classifier is the external zero-shot classification capability. It is
// substituted with a deterministic stub in tests.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (Result, error)
}

// Engine maps normalized text plus the current rules to category, risk
// score, sector, coordinates and the upcoming flag. It is stateless per
// call; rules are passed in explicitly so each cycle sees one consistent
// configuration version.
type Engine struct {
	classifier Classifier
}

// NewEngine builds an engine around the given classifier capability.
func NewEngine(classifier Classifier) *Engine {
	return &Engine{classifier: classifier}
}

// DetectSector returns the first configured sector whose keyword list has a
// case-insensitive substring match in text. Rules are scanned in declaration
// order; no match yields GENERAL.
func DetectSector(text string, rules []config.SectorRule) string {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return rule.Name
			}
		}
	}
	return models.SectorGeneral
}

// DetectUpcoming reports whether text signals a future or scheduled event.
func DetectUpcoming(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range futureCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// Locate returns the coordinates of the first gazetteer place whose name
// appears in text, scanning entries in declaration order. No match yields
// nil for both.
func Locate(text string, gazetteer []config.Place) (lat, lon *float64) {
	for _, place := range gazetteer {
		if place.Name == "" {
			continue
		}
		if strings.Contains(text, place.Name) {
			la, lo := place.Lat, place.Lon
			return &la, &lo
		}
	}
	return nil, nil
}

// ClassifyRisk delegates to the zero-shot classifier and maps its top label
// and confidence c to a (category, score) pair. Score bands never overlap:
//
//	Critical Unrest / Natural Disaster / Supply Chain Disruption -> Critical, 80 + c*20
//	Economic Crisis / Political Instability                      -> Warning, 50 + c*29
//	Positive Growth                                              -> Opportunity, 0
//	anything else                                                -> Info, 10
//
// Non-overlap keeps downstream thresholds (>80 critical, >70 priority risk,
// <20 opportunity) aligned with category semantics.
func (e *Engine) ClassifyRisk(ctx context.Context, text string) (category string, score int, err error) {
	if e.classifier == nil {
		return "", 0, fmt.Errorf("%w: no classifier configured", ErrClassifierUnavailable)
	}

	result, err := e.classifier.Classify(ctx, text, riskLabels)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if len(result.Labels) == 0 || len(result.Labels) != len(result.Scores) {
		return "", 0, fmt.Errorf("%w: malformed result (%d labels, %d scores)",
			ErrClassifierUnavailable, len(result.Labels), len(result.Scores))
	}

	topLabel := result.Labels[0]
	confidence := result.Scores[0]

	switch topLabel {
	case "Critical Unrest", "Natural Disaster", "Supply Chain Disruption":
		return models.CategoryCritical, int(80 + confidence*20), nil
	case "Economic Crisis", "Political Instability":
		return models.CategoryWarning, int(50 + confidence*29), nil
	case "Positive Growth":
		return models.CategoryOpportunity, 0, nil
	default:
		return models.CategoryInfo, 10, nil
	}
}
