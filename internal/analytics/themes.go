package analytics

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/rs/zerolog/log"

	"riskwatch/monitor/internal/models"
)

const (
	minThemeArticles  = 5
	maxThemes         = 3
	themeSamples      = 3
	themeTopicTerms   = 2
	minThemeTokenSize = 2
)

// Theme is one detected topic cluster.
type Theme struct {
	Topic    string           `json:"topic"`
	Count    int              `json:"count"`
	Articles []models.Article `json:"articles"`
}

// EmergingThemes partitions matching articles into up to three topic groups
// by clustering term-weighted title vectors. Each group is labeled with its
// two most distinctive terms and carries up to three representative
// articles. Clustering is best-effort: fewer than five matching articles, or
// any internal failure, yields an empty result.
func (e *Engine) EmergingThemes(ctx context.Context, sector string) ([]Theme, error) {
	articles, err := e.snapshot(ctx, sector)
	if err != nil {
		return nil, err
	}
	if len(articles) < minThemeArticles {
		return nil, nil
	}

	titles := make([]string, len(articles))
	for i, a := range articles {
		titles[i] = a.Title
	}

	vectors, terms := vectorize(titles)
	if len(terms) < themeTopicTerms {
		return nil, nil
	}

	k := len(articles) / 2
	if k > maxThemes {
		k = maxThemes
	}
	if k < 1 {
		k = 1
	}

	observations := make(clusters.Observations, len(vectors))
	for i, vec := range vectors {
		observations[i] = docObservation{vec: vec, index: i}
	}

	km := kmeans.New()
	partition, err := km.Partition(observations, k)
	if err != nil {
		log.Debug().Err(err).Msg("Clustering failed, returning no themes")
		return nil, nil
	}

	themes := make([]Theme, 0, len(partition))
	for _, cluster := range partition {
		members := make([]int, 0, len(cluster.Observations))
		for _, obs := range cluster.Observations {
			doc, ok := obs.(docObservation)
			if !ok {
				continue
			}
			members = append(members, doc.index)
		}
		if len(members) == 0 {
			continue
		}
		// Snapshot order is recency order; keep samples newest-first.
		sort.Ints(members)

		samples := make([]models.Article, 0, themeSamples)
		for _, idx := range members[:min(len(members), themeSamples)] {
			samples = append(samples, articles[idx])
		}

		themes = append(themes, Theme{
			Topic:    topicLabel(cluster.Center, terms),
			Count:    len(members),
			Articles: samples,
		})
	}
	return themes, nil
}

// docObservation ties a title vector back to its article index so cluster
// membership can be mapped onto the snapshot.
type docObservation struct {
	vec   clusters.Coordinates
	index int
}

func (d docObservation) Coordinates() clusters.Coordinates {
	return d.vec
}

func (d docObservation) Distance(point clusters.Coordinates) float64 {
	return d.vec.Distance(point)
}

// topicLabel names a cluster after its two highest-weighted centroid terms.
func topicLabel(center clusters.Coordinates, terms []string) string {
	indices := make([]int, len(center))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return center[indices[a]] > center[indices[b]]
	})

	top := make([]string, 0, themeTopicTerms)
	for _, idx := range indices[:min(len(indices), themeTopicTerms)] {
		top = append(top, terms[idx])
	}
	return strings.ToUpper(strings.Join(top, " & "))
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// vectorize turns titles into L2-normalized tf-idf vectors over a shared
// vocabulary (stopwords and single characters excluded). The returned terms
// slice is the vocabulary in sorted order, parallel to the vector columns.
func vectorize(titles []string) ([]clusters.Coordinates, []string) {
	docs := make([][]string, len(titles))
	docFreq := make(map[string]int)
	for i, title := range titles {
		tokens := tokenPattern.FindAllString(strings.ToLower(title), -1)
		seen := make(map[string]bool)
		for _, tok := range tokens {
			if len(tok) < minThemeTokenSize || stopwords[tok] {
				continue
			}
			docs[i] = append(docs[i], tok)
			if !seen[tok] {
				docFreq[tok]++
				seen[tok] = true
			}
		}
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	column := make(map[string]int, len(terms))
	for i, term := range terms {
		column[term] = i
	}

	n := float64(len(titles))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	vectors := make([]clusters.Coordinates, len(titles))
	for i, tokens := range docs {
		vec := make(clusters.Coordinates, len(terms))
		for _, tok := range tokens {
			vec[column[tok]] += idf[column[tok]]
		}
		normalize(vec)
		vectors[i] = vec
	}
	return vectors, terms
}

func normalize(vec clusters.Coordinates) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// stopwords is a compact english function-word list, enough to keep topic
// labels on content words.
var stopwords = map[string]bool{
	"a": true, "about": true, "after": true, "against": true, "all": true,
	"also": true, "an": true, "and": true, "any": true, "are": true,
	"as": true, "at": true, "be": true, "been": true, "before": true,
	"between": true, "but": true, "by": true, "can": true, "could": true,
	"did": true, "do": true, "does": true, "down": true, "during": true,
	"each": true, "for": true, "from": true, "further": true, "had": true,
	"has": true, "have": true, "he": true, "her": true, "here": true,
	"him": true, "his": true, "how": true, "if": true, "in": true,
	"into": true, "is": true, "it": true, "its": true, "just": true,
	"more": true, "most": true, "new": true, "no": true, "not": true,
	"now": true, "of": true, "off": true, "on": true, "once": true,
	"only": true, "or": true, "other": true, "our": true, "out": true,
	"over": true, "own": true, "said": true, "same": true, "she": true,
	"should": true, "so": true, "some": true, "such": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "those": true,
	"through": true, "to": true, "too": true, "under": true, "until": true,
	"up": true, "was": true, "we": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "who": true,
	"why": true, "will": true, "with": true, "would": true, "you": true,
	"your": true,
}
