// Package summary assembles the top-level executive summary document: a
// thin, additive presentation layer over the per-agent ReviewResults the
// orchestrator already produced. It never changes orchestrator or dedup
// semantics, only renders their output.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/sevigo/review-engine/internal/core"
	"github.com/sevigo/review-engine/internal/ghauth"
	"github.com/sevigo/review-engine/internal/repometa"
)

// Input bundles everything the renderer needs. RepoSnapshot and Identity
// are optional best-effort data; a zero value means the lookup was skipped
// or failed, and the rendered section is simply omitted.
type Input struct {
	TargetDisplay string
	Results       []core.ReviewResult
	RepoSnapshot  *repometa.Snapshot
	Identity      *ghauth.Identity
	GeneratedAt   time.Time
}

// Render produces the executive summary markdown document for one run.
func Render(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Review summary: %s\n\n", in.TargetDisplay)
	fmt.Fprintf(&b, "Generated: %s\n\n", in.GeneratedAt.Format(time.RFC3339))

	if in.Identity != nil {
		fmt.Fprintf(&b, "Authenticated as **%s** (%d API calls remaining)\n\n", in.Identity.Login, in.Identity.RateRemaining)
	}

	if in.RepoSnapshot != nil {
		b.WriteString("## Repository\n\n")
		b.WriteString(in.RepoSnapshot.Summary)
		b.WriteString("\n")
	}

	b.WriteString("## Agent results\n\n")
	b.WriteString("| Agent | Status | Findings |\n")
	b.WriteString("|---|---|---|\n")
	for _, r := range in.Results {
		status := "ok"
		if !r.Success {
			status = "failed: " + r.ErrorMessage
		}
		fmt.Fprintf(&b, "| %s | %s | %d |\n", agentLabel(r.AgentConfig), status, findingCount(r))
	}

	succeeded, failed := countOutcomes(in.Results)
	fmt.Fprintf(&b, "\n%d of %d agents succeeded", succeeded, succeeded+failed)
	if failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", failed)
	}
	b.WriteString(".\n")

	return b.String()
}

func agentLabel(cfg core.AgentConfig) string {
	if cfg.DisplayName != "" {
		return cfg.DisplayName
	}
	return cfg.Name
}

// findingCount approximates a finding count by counting the report's
// numbered section headers ("### N. ..."), the same heading format the
// deduplicator renders.
func findingCount(r core.ReviewResult) int {
	if !r.Success {
		return 0
	}
	count := 0
	for _, line := range strings.Split(r.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "### ") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "### "))
		digits := len(rest) - len(strings.TrimLeft(rest, "0123456789"))
		if digits > 0 && strings.HasPrefix(rest[digits:], ".") {
			count++
		}
	}
	return count
}

func countOutcomes(results []core.ReviewResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return
}
