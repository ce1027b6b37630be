// Package ranking implements a pure scoring function over a Dataset and a
// search query, used by the orchestrator to order search results.
package ranking

import (
	"sort"
	"strings"

	"github.com/btraven00/geofetch/pkg/models"
)

// Score is one dataset's ranked position plus the reasons that produced
// it, the explainability surface the search operation exposes to callers.
type Score struct {
	GeoID        string
	Value        float64
	MatchReasons []string
}

// QualityFromInputs derives a quality score in [0, 1], monotonic in every
// input: more complete metadata, more samples (log-scaled, capped), and a
// linked publication never lower the score.
func QualityFromInputs(in models.QualityInputs) float64 {
	score := 0.0
	if in.HasTitle {
		score += 0.2
	}
	if in.HasSummary {
		score += 0.2
	}
	if in.HasOrganism {
		score += 0.15
	}
	if in.HasPlatform {
		score += 0.15
	}
	if in.HasLinkedPubMIDs {
		score += 0.2
	}
	score += sampleCountBonus(in.SampleCount)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func sampleCountBonus(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n < 10:
		return 0.02
	case n < 50:
		return 0.05
	default:
		return 0.1
	}
}

// Rank scores every dataset against query's terms and returns them sorted
// best-first, with geo_id as the final deterministic tiebreaker so ranking
// is stable for identical inputs.
func Rank(datasets []models.Dataset, queryTerms []string) []Score {
	scores := make([]Score, 0, len(datasets))
	for _, ds := range datasets {
		scores = append(scores, scoreOne(ds, queryTerms))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Value != scores[j].Value {
			return scores[i].Value > scores[j].Value
		}
		return scores[i].GeoID < scores[j].GeoID
	})
	return scores
}

func scoreOne(ds models.Dataset, terms []string) Score {
	var reasons []string
	value := ds.QualityScore * 0.3

	haystacks := []struct{ field, text string }{
		{"title", strings.ToLower(ds.Title)},
		{"summary", strings.ToLower(ds.Summary)},
		{"organism", strings.ToLower(ds.Organism)},
		{"platform", strings.ToLower(ds.Platform)},
	}

	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		for _, h := range haystacks {
			if strings.Contains(h.text, t) {
				weight := fieldWeight(h.field)
				value += weight
				reasons = append(reasons, h.field+" matches "+term)
			}
		}
	}

	return Score{GeoID: ds.GeoID, Value: value, MatchReasons: reasons}
}

func fieldWeight(field string) float64 {
	switch field {
	case "title":
		return 0.4
	case "summary":
		return 0.2
	case "organism", "platform":
		return 0.15
	default:
		return 0.05
	}
}
