package dedup

import (
	"crypto/sha256"
	"encoding/hex"
)

// Aggregator is the streaming near-duplicate collapser. It
// owns two inverted indices over the findings it has seen so far
// (byPriority and byPriorityAndPrefix) so each incoming finding only has to
// be compared against a small candidate set rather than the full history.
type Aggregator struct {
	findings []*AggregatedFinding

	byPriority          map[string][]*AggregatedFinding
	byPriorityAndPrefix map[string][]*AggregatedFinding

	seenFallbackKeys map[string]*AggregatedFinding
}

// NewAggregator constructs an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byPriority:          make(map[string][]*AggregatedFinding),
		byPriorityAndPrefix: make(map[string][]*AggregatedFinding),
		seenFallbackKeys:    make(map[string]*AggregatedFinding),
	}
}

// titlePrefixLen is how many runes of a normalized title key the secondary
// index, keeping candidate buckets small without needing the whole title.
const titlePrefixLen = 12

// Add folds one finding block from passNumber into the aggregator, either
// merging it into an existing near-duplicate or inserting it as new. It
// returns the AggregatedFinding the block ended up merged into.
func (ag *Aggregator) Add(block FindingBlock, passNumber int) *AggregatedFinding {
	fields := ExtractTableFields(block.Body)
	normalized := Normalize(block.Title, fields)

	if !hasAnySignal(normalized) {
		return ag.dedupeFallback(block, passNumber)
	}

	if match := ag.findNearDuplicate(normalized); match != nil {
		match.addPass(passNumber)
		return match
	}

	af := &AggregatedFinding{
		Title:       block.Title,
		Body:        block.Body,
		PassNumbers: []int{passNumber},
		Normalized:  normalized,
	}
	ag.index(af)
	return af
}

// Findings returns the aggregated findings in first-seen order.
func (ag *Aggregator) Findings() []*AggregatedFinding {
	return ag.findings
}

func (ag *Aggregator) index(af *AggregatedFinding) {
	ag.findings = append(ag.findings, af)

	priorityKey := af.Normalized.Priority
	ag.byPriority[priorityKey] = append(ag.byPriority[priorityKey], af)

	prefixKey := priorityKey + "|" + prefix(af.Normalized.Title, titlePrefixLen)
	ag.byPriorityAndPrefix[prefixKey] = append(ag.byPriorityAndPrefix[prefixKey], af)
}

// findNearDuplicate searches the candidate set for an existing finding that
// matches n under near-duplicate rule:
//
//   - if both have a non-empty location and their location bigrams have
//     Dice similarity >= 0.80, AND (summary is similar, OR title is
//     similar, OR they share a common keyword token), they are duplicates;
//   - otherwise, they are duplicates only if both title and summary Dice
//     similarity are independently >= 0.80.
func (ag *Aggregator) findNearDuplicate(n NormalizedFinding) *AggregatedFinding {
	candidates := ag.candidates(n)
	for _, candidate := range candidates {
		if isNearDuplicate(candidate.Normalized, n) {
			return candidate
		}
	}
	return nil
}

func (ag *Aggregator) candidates(n NormalizedFinding) []*AggregatedFinding {
	prefixKey := n.Priority + "|" + prefix(n.Title, titlePrefixLen)
	if bucket, ok := ag.byPriorityAndPrefix[prefixKey]; ok && len(bucket) > 0 {
		return bucket
	}
	return ag.byPriority[n.Priority]
}

func isNearDuplicate(a, b NormalizedFinding) bool {
	if a.Location != "" && b.Location != "" {
		locationDice := diceCoefficient(a.LocationBigrams, b.LocationBigrams)
		if locationDice >= similarityThreshold {
			if isSimilarText(a.Summary, b.Summary) ||
				isSimilarText(a.Title, b.Title) ||
				hasCommonKeywordToken(a.Title+" "+a.Summary, b.Title+" "+b.Summary) {
				return true
			}
		}
	}

	titleDice := diceCoefficient(a.TitleBigrams, b.TitleBigrams)
	summaryDice := diceCoefficient(a.SummaryBigrams, b.SummaryBigrams)
	return titleDice >= similarityThreshold && summaryDice >= similarityThreshold
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// fallbackKey derives the short, stable key used when a block has no title,
// or has a title but no priority, summary or location: the first 12 bytes
// (24 hex characters) of the SHA-256 digest of its normalized body.
func fallbackKey(normalizedBody string) string {
	sum := sha256.Sum256([]byte(normalizedBody))
	return hex.EncodeToString(sum[:12])
}

// dedupeFallback records block under a content-hash fallback key, returning
// the finding it was merged into when an identical-content block has
// already been seen in this run. This handles blocks that fail hasAnySignal
// (no title, or a title with no priority, summary or location), where the
// near-duplicate heuristics above have too little signal to work with.
func (ag *Aggregator) dedupeFallback(block FindingBlock, passNumber int) *AggregatedFinding {
	key := fallbackKey(normalize(block.Body))
	if existing, ok := ag.seenFallbackKeys[key]; ok {
		existing.addPass(passNumber)
		return existing
	}

	af := &AggregatedFinding{
		Title:       block.Title,
		Body:        block.Body,
		PassNumbers: []int{passNumber},
		Normalized:  Normalize(block.Title, ExtractTableFields(block.Body)),
	}
	ag.seenFallbackKeys[key] = af
	ag.index(af)
	return af
}

func hasAnySignal(n NormalizedFinding) bool {
	return n.Title != "" && (n.Summary != "" || n.Location != "" || n.Priority != "")
}
