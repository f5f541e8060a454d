// Package similarity provides token-level fuzzy string comparison used to
// match indicator phrases against normalized sentence text.
//
// Two tokens are similar when their global alignment score (match +3,
// mismatch 0, gap -1, cells floored at 0) reaches the sum of their lengths.
// This tolerates small orthographic variation ("latine"/"latinae") while
// rejecting unrelated short words.
package similarity

import "strings"

const (
	matchScore    = 3
	mismatchScore = 0
	gapPenalty    = -1

	// maxMissingRatio is the share of needle tokens allowed to go unmatched
	// before WindowedJaccard reports no similarity
	maxMissingRatio = 0.25
)

// Tokenize splits text on whitespace
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// TokenSimilar reports whether two tokens are near-identical
func TokenSimilar(a, b string) bool {
	ra := []rune(strings.TrimSpace(a))
	rb := []rune(strings.TrimSpace(b))
	return alignmentScore(ra, rb) >= len(ra)+len(rb)
}

// alignmentScore runs Needleman-Wunsch over two rune slices keeping two rows
func alignmentScore(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j * gapPenalty
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i * gapPenalty
		for j := 1; j <= len(b); j++ {
			compare := mismatchScore
			if a[i-1] == b[j-1] {
				compare = matchScore
			}
			cur[j] = maxScore(prev[j-1]+compare, cur[j-1]+gapPenalty, prev[j]+gapPenalty)
		}
		prev, cur = cur, prev
	}

	return prev[len(b)]
}

// maxScore returns the largest value, never below zero
func maxScore(values ...int) int {
	best := 0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}

// ContainsOrderedSubstring reports whether the needle tokens can be matched,
// in order, to an index-increasing subsequence of the haystack tokens.
// An empty needle is contained in every haystack.
func ContainsOrderedSubstring(needle, haystack string) bool {
	n := Tokenize(needle)
	h := Tokenize(haystack)

	pos := 0
	for _, nt := range n {
		found := false
		for j := pos; j < len(h); j++ {
			if TokenSimilar(nt, h[j]) {
				pos = j + 1
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ContainsAllTokensUnordered reports whether every needle token has a similar
// token somewhere in the haystack
func ContainsAllTokensUnordered(needle, haystack string) bool {
	h := Tokenize(haystack)
	for _, nt := range Tokenize(needle) {
		found := false
		for _, ht := range h {
			if TokenSimilar(nt, ht) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// WindowedJaccard compares the needle with the smallest haystack window that
// covers every matched token. Matched haystack tokens are replaced by the
// needle token they matched before the sets are compared. Returns 0 when more
// than a quarter of the needle tokens are missing from the haystack.
func WindowedJaccard(needle, haystack string) float64 {
	n := Tokenize(needle)
	h := Tokenize(haystack)
	if len(n) == 0 || len(h) == 0 {
		return 0
	}

	matched := make([]bool, len(n))
	normalized := make([]string, len(h))
	copy(normalized, h)
	lo, hi := -1, -1

	for j, ht := range h {
		for i, nt := range n {
			if TokenSimilar(ht, nt) {
				normalized[j] = nt
				matched[i] = true
				if lo < 0 {
					lo = j
				}
				hi = j
				break
			}
		}
	}

	missing := 0
	for _, m := range matched {
		if !m {
			missing++
		}
	}
	if lo < 0 || float64(missing)/float64(len(n)) > maxMissingRatio {
		return 0
	}

	return jaccard(toSet(n), toSet(normalized[lo:hi+1]))
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
