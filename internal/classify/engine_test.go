package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskwatch/monitor/internal/config"
	"riskwatch/monitor/internal/models"
)

// stubClassifier returns a canned result or error.
type stubClassifier struct {
	result Result
	err    error
}

func (s stubClassifier) Classify(_ context.Context, _ string, _ []string) (Result, error) {
	return s.result, s.err
}

func TestDetectSectorFirstRuleWins(t *testing.T) {
	t.Parallel()

	// "port" appears in both rule keyword lists; declaration order decides.
	rules := []config.SectorRule{
		{Name: "LOGISTICS", Keywords: []string{"port", "cargo"}},
		{Name: "INFRASTRUCTURE", Keywords: []string{"port", "road"}},
	}

	assert.Equal(t, "LOGISTICS", DetectSector("Main port reopens after strike", rules))

	reversed := []config.SectorRule{rules[1], rules[0]}
	assert.Equal(t, "INFRASTRUCTURE", DetectSector("Main port reopens after strike", reversed))
}

func TestDetectSectorCaseInsensitive(t *testing.T) {
	t.Parallel()

	rules := []config.SectorRule{{Name: "FINANCE", Keywords: []string{"Rupee"}}}
	assert.Equal(t, "FINANCE", DetectSector("RUPEE SLIDES FURTHER", rules))
}

func TestDetectSectorFallback(t *testing.T) {
	t.Parallel()

	rules := []config.SectorRule{{Name: "FINANCE", Keywords: []string{"rupee"}}}
	assert.Equal(t, models.SectorGeneral, DetectSector("local festival draws crowds", rules))
	assert.Equal(t, models.SectorGeneral, DetectSector("anything", nil))
}

func TestDetectUpcoming(t *testing.T) {
	t.Parallel()

	assert.True(t, DetectUpcoming("Curfew scheduled for Friday"))
	assert.True(t, DetectUpcoming("Port closure EXPECTED amid strike"))
	assert.True(t, DetectUpcoming("Elections postponed again"))
	assert.False(t, DetectUpcoming("Floods hit southern coast yesterday"))
}

func TestLocateFirstMatchWins(t *testing.T) {
	t.Parallel()

	gazetteer := []config.Place{
		{Name: "Colombo", Lat: 6.9271, Lon: 79.8612},
		{Name: "Kandy", Lat: 7.2906, Lon: 80.6337},
	}

	lat, lon := Locate("Protest moves from Kandy toward Colombo", gazetteer)
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	// Colombo is declared first, so it wins even though Kandy appears
	// earlier in the text.
	assert.InDelta(t, 6.9271, *lat, 1e-9)
	assert.InDelta(t, 79.8612, *lon, 1e-9)
}

func TestLocateNoMatch(t *testing.T) {
	t.Parallel()

	gazetteer := []config.Place{{Name: "Colombo", Lat: 6.9271, Lon: 79.8612}}
	lat, lon := Locate("Nothing geographic here", gazetteer)
	assert.Nil(t, lat)
	assert.Nil(t, lon)
}

func TestClassifyRiskBands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label      string
		confidence float64
		category   string
		score      int
	}{
		{"Critical Unrest", 0.0, models.CategoryCritical, 80},
		{"Natural Disaster", 0.5, models.CategoryCritical, 90},
		{"Supply Chain Disruption", 1.0, models.CategoryCritical, 100},
		{"Economic Crisis", 0.0, models.CategoryWarning, 50},
		{"Political Instability", 1.0, models.CategoryWarning, 79},
		{"Positive Growth", 0.99, models.CategoryOpportunity, 0},
		{"Normal Business Operation", 0.8, models.CategoryInfo, 10},
		{"Something Unrecognized", 0.8, models.CategoryInfo, 10},
	}

	for _, tc := range cases {
		engine := NewEngine(stubClassifier{result: Result{
			Labels: []string{tc.label},
			Scores: []float64{tc.confidence},
		}})

		category, score, err := engine.ClassifyRisk(context.Background(), "some text")
		require.NoError(t, err, tc.label)
		assert.Equal(t, tc.category, category, tc.label)
		assert.Equal(t, tc.score, score, tc.label)
	}
}

func TestClassifyRiskScoreBandInvariant(t *testing.T) {
	t.Parallel()

	for _, label := range riskLabels {
		for _, confidence := range []float64{0, 0.25, 0.5, 0.75, 1} {
			engine := NewEngine(stubClassifier{result: Result{
				Labels: []string{label},
				Scores: []float64{confidence},
			}})

			category, score, err := engine.ClassifyRisk(context.Background(), "x")
			require.NoError(t, err)

			switch category {
			case models.CategoryCritical:
				assert.GreaterOrEqual(t, score, 80)
				assert.LessOrEqual(t, score, 100)
			case models.CategoryWarning:
				assert.GreaterOrEqual(t, score, 50)
				assert.LessOrEqual(t, score, 79)
			case models.CategoryOpportunity:
				assert.Equal(t, 0, score)
			case models.CategoryInfo:
				assert.Equal(t, 10, score)
			default:
				t.Fatalf("unexpected category %q", category)
			}
		}
	}
}

func TestClassifyRiskUnavailable(t *testing.T) {
	t.Parallel()

	engine := NewEngine(stubClassifier{err: errors.New("connection refused")})
	_, _, err := engine.ClassifyRisk(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	engine = NewEngine(nil)
	_, _, err = engine.ClassifyRisk(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestClassifyRiskMalformedResult(t *testing.T) {
	t.Parallel()

	engine := NewEngine(stubClassifier{result: Result{Labels: []string{"a", "b"}, Scores: []float64{0.9}}})
	_, _, err := engine.ClassifyRisk(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	engine = NewEngine(stubClassifier{})
	_, _, err = engine.ClassifyRisk(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}
