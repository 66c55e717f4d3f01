// Package dedup classifies a candidate store against existing records as an
// exact duplicate, a similar record needing human resolution, or genuinely
// new. The kernel is pure; the storage uniqueness constraint, not this
// classifier, is what makes concurrent submissions safe.
package dedup

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"plantpantry/internal/directory/models"
)

// Classification labels the outcome of duplicate detection.
type Classification string

const (
	// Exact: the candidate is provably the same real-world entity as an
	// existing record. Callers silently reuse the match.
	Exact Classification = "exact"
	// Similar: one or more existing records plausibly match; a human must
	// disambiguate before a new record is created.
	Similar Classification = "similar"
	// None: safe to insert.
	None Classification = "none"
)

// Scoring constants. A candidate is Similar when its best score reaches
// SimilarityThreshold; boundary behavior is covered by tests at the threshold
// plus and minus a small epsilon.
//
// Score = nameWeight*nameScore + locationWeight*locationScore, where
// nameScore is 1.0 for normalized-name containment, otherwise token overlap
// (an exact token counts 1.0 and a token within Levenshtein distance 1
// counts fuzzyTokenCredit) divided by the larger token count; locationScore
// is 1.0 for the same normalized city, 0.5 for the same state only.
const (
	SimilarityThreshold = 0.55
	nameWeight          = 0.7
	locationWeight      = 0.3
	fuzzyTokenCredit    = 0.8
	maxCandidates       = 5
)

// Candidate is one ranked similar match.
type Candidate struct {
	Store *models.Store `json:"store"`
	Score float64       `json:"score"`
}

// Result is a duplicate classification.
type Result struct {
	Classification Classification `json:"classification"`
	// Match is set for Exact.
	Match *models.Store `json:"match,omitempty"`
	// Candidates is set for Similar, ranked by score descending.
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Classify applies the matching policy in order, short-circuiting on the
// first exact hit: external place ID, then normalized name plus address
// (physical) or region (online/brand-direct), then similarity scoring.
func Classify(in models.StoreInput, existing []*models.Store) Result {
	if match := findExact(in, existing); match != nil {
		return Result{Classification: Exact, Match: match}
	}

	var candidates []Candidate
	for _, st := range existing {
		if score := Score(in, st); score >= SimilarityThreshold {
			candidates = append(candidates, Candidate{Store: st, Score: score})
		}
	}
	if len(candidates) == 0 {
		return Result{Classification: None}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Store.Name != candidates[j].Store.Name {
			return candidates[i].Store.Name < candidates[j].Store.Name
		}
		return candidates[i].Store.ID.String() < candidates[j].Store.ID.String()
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return Result{Classification: Similar, Candidates: candidates}
}

func findExact(in models.StoreInput, existing []*models.Store) *models.Store {
	placeID := strings.TrimSpace(in.PlaceID)
	key := models.DedupKeyFor(in.Type, in.Name, in.Address, in.Region, in.Latitude, in.Longitude)

	for _, st := range existing {
		if placeID != "" && st.PlaceID == placeID {
			return st
		}
		if st.Type == in.Type && st.DedupKey() == key {
			return st
		}
	}
	return nil
}

// Score computes the similarity between a candidate and an existing store.
// Exported so boundary tests can pin the documented scoring function.
func Score(in models.StoreInput, st *models.Store) float64 {
	return nameWeight*nameScore(in.Name, st.Name) + locationWeight*locationScore(in, st)
}

func nameScore(a, b string) float64 {
	na, nb := models.NormalizeName(a), models.NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 1
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	longest := len(ta)
	if len(tb) > longest {
		longest = len(tb)
	}

	var overlap float64
	used := make([]bool, len(tb))
	for _, tok := range ta {
		best, bestIdx := 0.0, -1
		for i, other := range tb {
			if used[i] {
				continue
			}
			switch {
			case tok == other:
				best, bestIdx = 1, i
			case best < fuzzyTokenCredit && tokenClose(tok, other):
				best, bestIdx = fuzzyTokenCredit, i
			}
			if best == 1 {
				break
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			overlap += best
		}
	}
	return overlap / float64(longest)
}

// tokenClose treats tokens within Levenshtein distance 1 as the same word
// misspelled. Very short tokens are excluded; a one-edit difference between
// three-letter tokens is usually a different word.
func tokenClose(a, b string) bool {
	if len(a) < 4 || len(b) < 4 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= 1
}

func locationScore(in models.StoreInput, st *models.Store) float64 {
	city := models.NormalizeName(in.City)
	if city != "" && city == models.NormalizeName(st.City) {
		return 1
	}
	state := strings.ToLower(strings.TrimSpace(in.State))
	if state != "" && state == strings.ToLower(strings.TrimSpace(st.State)) {
		return 0.5
	}
	return 0
}
