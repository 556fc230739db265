package dedup

import (
	"strings"
)

// collapseChars lists the whitespace-like separators whose runs normalize
// collapses to a single space: "|", "/", "\t", "\n", "\r", space, and the
// katakana middle-dot U+30FB.
var collapseChars = "|/\t\n\r ・"

// normalize lowercases s, strips the markdown formatting characters
// "`", "*", "_", collapses runs of collapseChars to a single space, and
// trims the result.
func normalize(s string) string {
	lowered := strings.ToLower(s)

	var stripped strings.Builder
	stripped.Grow(len(lowered))
	for _, r := range lowered {
		switch r {
		case '`', '*', '_':
			continue
		default:
			stripped.WriteRune(r)
		}
	}

	collapsed := collapseRuns(stripped.String())
	return strings.TrimSpace(collapsed)
}

func collapseRuns(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	inRun := false
	for _, r := range s {
		if strings.ContainsRune(collapseChars, r) {
			if !inRun {
				out.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		out.WriteRune(r)
	}
	return out.String()
}

// BigramSet is a compact set of character bigrams, keyed by a 16-bit-shift
// pack of adjacent code units (runes truncated to uint16).
type BigramSet map[int]struct{}

// bigrams computes the bigram set over s with all whitespace removed first.
// Strings of length 0 yield an empty set; length 1 yields a singleton set
// containing that one code unit.
func bigrams(s string) BigramSet {
	compact := removeWhitespace(s)
	runes := []rune(compact)

	set := make(BigramSet, len(runes))
	switch len(runes) {
	case 0:
		return set
	case 1:
		set[pack(runes[0], 0)] = struct{}{}
		return set
	}
	for i := 0; i < len(runes)-1; i++ {
		set[pack(runes[i], runes[i+1])] = struct{}{}
	}
	return set
}

func pack(a, b rune) int {
	return (int(uint16(a)) << 16) | int(uint16(b))
}

func removeWhitespace(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// Normalize builds a NormalizedFinding from a raw title and the extracted
// table fields of a finding body.
func Normalize(title string, fields TableFields) NormalizedFinding {
	n := NormalizedFinding{
		Title:    normalize(title),
		Priority: normalize(fields.Priority),
		Summary:  normalize(fields.Summary),
		Location: normalize(fields.Location),
	}
	n.TitleBigrams = bigrams(n.Title)
	n.SummaryBigrams = bigrams(n.Summary)
	n.LocationBigrams = bigrams(n.Location)
	return n
}
