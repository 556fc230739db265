package dedup

import (
	"regexp"
	"strings"
)

// fallbackTitle is the synthetic title used when a pass's content has no
// recognizable "### N. title" headers at all.
const fallbackTitle = "レビュー結果"

var headingRe = regexp.MustCompile(`(?m)^###\s+(\d+)\.\s+(.+)$`)

// ParseFindingBlocks splits one pass's free-form markdown content into
// FindingBlocks by scanning for "### N. title" headings. The body of block
// i is the text between the end of header i and the start of header i+1
// (or end of content), trimmed; blank bodies are dropped. If no headers
// match, the whole content becomes a single fallback block.
func ParseFindingBlocks(content string) []FindingBlock {
	matches := headingRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []FindingBlock{{Title: fallbackTitle, Body: trimmed}}
	}

	blocks := make([]FindingBlock, 0, len(matches))
	for i, m := range matches {
		// m[0], m[1] = whole match span; m[4], m[5] = title capture group span.
		titleStart, titleEnd := m[4], m[5]
		title := strings.TrimSpace(content[titleStart:titleEnd])

		bodyStart := m[1]
		bodyEnd := len(content)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(content[bodyStart:bodyEnd])
		if body == "" {
			continue
		}
		blocks = append(blocks, FindingBlock{Title: title, Body: body})
	}
	return blocks
}

// IsFallbackParse reports whether content produced no real "### N." headers
// (i.e. ParseFindingBlocks fell back to a single synthetic block).
func IsFallbackParse(content string) bool {
	return len(headingRe.FindAllStringIndex(content, 1)) == 0
}

var (
	priorityFieldRe = regexp.MustCompile(`(?m)^\|\s*\*\*Priority\*\*\s*\|\s*(.*?)\s*\|\s*$`)
	summaryFieldRe  = regexp.MustCompile(`(?m)^\|\s*\*\*指摘の概要\*\*\s*\|\s*(.*?)\s*\|\s*$`)
	locationFieldRe = regexp.MustCompile(`(?m)^\|\s*\*\*該当箇所\*\*\s*\|\s*(.*?)\s*\|\s*$`)
)

// TableFields extracts the Priority / 指摘の概要 (summary) / 該当箇所
// (location) values from a finding body's markdown table rows. Missing
// fields yield empty strings.
type TableFields struct {
	Priority string
	Summary  string
	Location string
}

// ExtractTableFields pulls the three well-known fields out of a finding
// body's markdown table.
func ExtractTableFields(body string) TableFields {
	var f TableFields
	if m := priorityFieldRe.FindStringSubmatch(body); m != nil {
		f.Priority = m[1]
	}
	if m := summaryFieldRe.FindStringSubmatch(body); m != nil {
		f.Summary = m[1]
	}
	if m := locationFieldRe.FindStringSubmatch(body); m != nil {
		f.Location = m[1]
	}
	return f
}
