package dedup

import (
	"github.com/sevigo/review-engine/internal/core"
)

// Dedupe groups a flat list of per-pass review results by agent name
// (preserving first-seen order) and reduces each agent's passes down to a
// single ReviewResult via per-agent aggregation:
//
//   - a single result is passed through unchanged;
//   - with multiple results, only the successful passes are folded through
//     the streaming deduplicator, in pass order;
//   - if every pass failed, the last pass's result is returned verbatim so
//     its error is still visible to the caller.
func Dedupe(results []core.ReviewResult) []core.ReviewResult {
	order, byAgent := groupByAgent(results)

	out := make([]core.ReviewResult, 0, len(order))
	for _, name := range order {
		out = append(out, dedupeAgent(byAgent[name]))
	}
	return out
}

func groupByAgent(results []core.ReviewResult) ([]string, map[string][]core.ReviewResult) {
	order := make([]string, 0)
	byAgent := make(map[string][]core.ReviewResult)
	for _, r := range results {
		name := r.AgentConfig.Name
		if _, ok := byAgent[name]; !ok {
			order = append(order, name)
		}
		byAgent[name] = append(byAgent[name], r)
	}
	return order, byAgent
}

func dedupeAgent(passes []core.ReviewResult) core.ReviewResult {
	if len(passes) == 1 {
		return passes[0]
	}

	successful := make([]core.ReviewResult, 0, len(passes))
	for _, p := range passes {
		if p.Success {
			successful = append(successful, p)
		}
	}

	if len(successful) == 0 {
		return passes[len(passes)-1]
	}

	failedPasses := len(passes) - len(successful)
	merged := mergePasses(successful)
	merged.ErrorMessage = ""
	merged.Success = true

	ag := NewAggregator()
	for i, p := range passes {
		if !p.Success {
			continue
		}
		for _, block := range ParseFindingBlocks(p.Content) {
			ag.Add(block, i+1)
		}
	}
	merged.Content = Render(ag.Findings(), len(passes), failedPasses)
	return merged
}

// mergePasses picks the non-content metadata (agent config, target display,
// timestamp of the latest pass) to carry on the synthesized result.
func mergePasses(successful []core.ReviewResult) core.ReviewResult {
	latest := successful[0]
	for _, p := range successful[1:] {
		if p.Timestamp.After(latest.Timestamp) {
			latest = p
		}
	}
	return core.ReviewResult{
		AgentConfig:   latest.AgentConfig,
		TargetDisplay: latest.TargetDisplay,
		Timestamp:     latest.Timestamp,
	}
}
