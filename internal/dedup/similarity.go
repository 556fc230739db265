package dedup

import (
	"regexp"
	"strings"
)

// similarityThreshold is the Dice-coefficient cutoff used throughout near-
// duplicate matching.
const similarityThreshold = 0.80

// containmentMinLength is the minimum length a string must have before
// substring containment alone can decide similarity in isSimilarText.
const containmentMinLength = 8

// diceCoefficient computes the Sorensen-Dice coefficient between two bigram
// sets: 2*|A∩B| / (|A|+|B|). Two empty sets are defined as dissimilar (0),
// and so is one empty set against a non-empty one.
func diceCoefficient(a, b BigramSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}

	intersection := 0
	for k := range small {
		if _, ok := large[k]; ok {
			intersection++
		}
	}
	return 2 * float64(intersection) / float64(len(a)+len(b))
}

// isSimilarText implements the lenient text-similarity check used by the
// location-based near-duplicate branch: exact match, or
// containment when either string is long enough, or else Dice similarity
// at or above the threshold.
func isSimilarText(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if (len(a) >= containmentMinLength && strings.Contains(a, b)) ||
		(len(b) >= containmentMinLength && strings.Contains(b, a)) {
		return true
	}
	return diceCoefficient(bigrams(a), bigrams(b)) >= similarityThreshold
}

// keywordTokenRe tokenizes normalized text into ASCII word/number tokens and
// runs of two or more CJK characters (Han, Hiragana, Katakana), used by the
// common-keyword-token overlap check.
var keywordTokenRe = regexp.MustCompile(`[a-z0-9_]+|[\p{Han}\p{Hiragana}\p{Katakana}]{2,}`)

// keywordTokens extracts the keyword-token set of normalized text s, keeping
// only tokens of length >= 2.
func keywordTokens(s string) map[string]struct{} {
	matches := keywordTokenRe.FindAllString(s, -1)
	tokens := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if len([]rune(m)) >= 2 {
			tokens[m] = struct{}{}
		}
	}
	return tokens
}

// hasCommonKeywordToken reports whether the keyword-token sets derived from
// a's and b's concatenated title+summary text share at least one token.
func hasCommonKeywordToken(a, b string) bool {
	ta := keywordTokens(a)
	tb := keywordTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	small, large := ta, tb
	if len(large) < len(small) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}
