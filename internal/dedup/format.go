package dedup

import (
	"fmt"
	"strconv"
	"strings"
)

// Render assembles the deduplicated findings of one agent's run back into a
// single markdown document:
// sequentially numbered "### i. title" headers, a "検出パス" (detected
// passes) annotation line whenever a finding was confirmed by more than one
// pass, horizontal-rule separators between findings, and a trailing note
// when failedPasses > 0.
func Render(findings []*AggregatedFinding, totalPasses, failedPasses int) string {
	if len(findings) == 0 {
		return ""
	}

	var b strings.Builder
	for i, f := range findings {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "### %d. %s\n", i+1, f.Title)
		if len(f.PassNumbers) > 1 {
			fmt.Fprintf(&b, "> 検出パス: %s\n", joinPassNumbers(f.PassNumbers))
		}
		b.WriteString("\n")
		b.WriteString(f.Body)
		b.WriteString("\n")
	}

	if failedPasses > 0 {
		fmt.Fprintf(&b, "\n> **注記**: %d パス中 %d パスが失敗しました。上記は成功したパスの結果のみです。\n",
			totalPasses, failedPasses)
	}

	return b.String()
}

func joinPassNumbers(passes []int) string {
	parts := make([]string, len(passes))
	for i, p := range passes {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
