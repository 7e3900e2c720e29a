// Package similarity builds the advisory "looks related" index over a
// pattern set: for each pattern, up to five same-kind candidates whose
// canonical text is close by edit-distance ratio or shares a simple
// plural/abbreviation stem. It never merges patterns — only the
// operator's explicit alias/merge workflow does that.
package similarity

import (
	"sort"
	"strings"

	"triage/internal/models"
)

const maxCandidates = 5

// DefaultThreshold matches the configuration default.
const DefaultThreshold = 0.85

// Compute returns groups with SimilarGroupIDs populated. Candidates are
// restricted to patterns sharing a blocking key (first two characters or
// stem bucket) with the subject pattern — the same shape as a classic
// blocked nearest-neighbor join, keeping the comparison tractable for
// large pattern counts instead of an all-pairs O(P^2) scan.
func Compute(groups []models.PatternGroup, threshold float64) []models.PatternGroup {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	byKind := make(map[models.Kind][]int)
	for i, g := range groups {
		byKind[g.Kind] = append(byKind[g.Kind], i)
	}

	out := make([]models.PatternGroup, len(groups))
	copy(out, groups)

	for _, idxs := range byKind {
		buckets := buildBuckets(groups, idxs)
		for _, i := range idxs {
			candidates := candidatesFor(groups, idxs, buckets, i, threshold)
			out[i].SimilarGroupIDs = candidates
		}
	}
	return out
}

// buildBuckets maps each blocking key to the pattern indices sharing it.
func buildBuckets(groups []models.PatternGroup, idxs []int) map[string][]int {
	buckets := make(map[string][]int)
	for _, i := range idxs {
		for _, key := range blockingKeys(groups[i].CanonicalText) {
			buckets[key] = append(buckets[key], i)
		}
	}
	return buckets
}

// blockingKeys returns the blocking keys for a canonical text: its
// first-two-character prefix and its stem bucket.
func blockingKeys(canonicalText string) []string {
	runes := []rune(canonicalText)
	keys := make([]string, 0, 2)
	if len(runes) >= 2 {
		keys = append(keys, "p:"+string(runes[:2]))
	} else if len(runes) > 0 {
		keys = append(keys, "p:"+string(runes))
	}
	if stem := stemBucket(canonicalText); stem != "" {
		keys = append(keys, "s:"+stem)
	}
	return keys
}

// stemBucket applies a simple plural/abbreviation normalization: strip a
// trailing "." (common abbreviation marker), then a trailing "es", then a
// trailing "s"; each step applies to the result of the one before.
func stemBucket(s string) string {
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSuffix(s, "es")
	s = strings.TrimSuffix(s, "s")
	return s
}

type scored struct {
	id    string
	ratio float64
}

func candidatesFor(groups []models.PatternGroup, idxs []int, buckets map[string][]int, subject int, threshold float64) []string {
	seen := make(map[int]struct{})
	subjectText := groups[subject].CanonicalText

	var pool []int
	for _, key := range blockingKeys(subjectText) {
		for _, j := range buckets[key] {
			if j == subject {
				continue
			}
			if _, ok := seen[j]; ok {
				continue
			}
			seen[j] = struct{}{}
			pool = append(pool, j)
		}
	}

	subjectStem := stemBucket(subjectText)
	var scoredCandidates []scored
	for _, j := range pool {
		text := groups[j].CanonicalText
		r := ratio(subjectText, text)
		sameStem := subjectStem != "" && stemBucket(text) == subjectStem
		if r >= threshold || sameStem {
			scoredCandidates = append(scoredCandidates, scored{id: groups[j].ID, ratio: r})
		}
	}

	sort.Slice(scoredCandidates, func(a, b int) bool {
		if scoredCandidates[a].ratio != scoredCandidates[b].ratio {
			return scoredCandidates[a].ratio > scoredCandidates[b].ratio
		}
		return scoredCandidates[a].id < scoredCandidates[b].id
	})

	if len(scoredCandidates) > maxCandidates {
		scoredCandidates = scoredCandidates[:maxCandidates]
	}

	out := make([]string, len(scoredCandidates))
	for i, c := range scoredCandidates {
		out[i] = c.id
	}
	return out
}
