package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-engine/internal/core"
)

func agentConfig(name string) core.AgentConfig {
	return core.AgentConfig{Name: name, DisplayName: name}
}

func TestDedupe_SinglePassIsPassthrough(t *testing.T) {
	results := []core.ReviewResult{
		{AgentConfig: agentConfig("security"), Content: "### 1. 何か\n\nbody", Success: true},
	}
	out := Dedupe(results)
	require.Len(t, out, 1)
	assert.Equal(t, "### 1. 何か\n\nbody", out[0].Content)
}

func TestDedupe_GroupsByAgentPreservingOrder(t *testing.T) {
	results := []core.ReviewResult{
		{AgentConfig: agentConfig("security"), Content: "a", Success: true},
		{AgentConfig: agentConfig("style"), Content: "b", Success: true},
		{AgentConfig: agentConfig("security"), Content: "c", Success: true},
	}
	out := Dedupe(results)
	require.Len(t, out, 2)
	assert.Equal(t, "security", out[0].AgentConfig.Name)
	assert.Equal(t, "style", out[1].AgentConfig.Name)
}

func TestDedupe_MultiPassMergesNearDuplicates(t *testing.T) {
	pass1 := "### 1. SQLインジェクションのリスク\n\n" + findingBody("High", "検証なしでクエリに結合", "internal/db/query.go:42")
	pass2 := "### 1. SQLインジェクションの危険性\n\n" + findingBody("High", "検証なしでクエリに結合", "internal/db/query.go:42")

	results := []core.ReviewResult{
		{AgentConfig: agentConfig("security"), Content: pass1, Success: true, Timestamp: time.Unix(1, 0)},
		{AgentConfig: agentConfig("security"), Content: pass2, Success: true, Timestamp: time.Unix(2, 0)},
	}
	out := Dedupe(results)
	require.Len(t, out, 1)
	assert.True(t, out[0].Success)
	assert.Contains(t, out[0].Content, "検出パス: 1, 2")
}

func TestDedupe_PassNumbersReflectRealPositionNotFilteredIndex(t *testing.T) {
	body := findingBody("High", "検証なしでクエリに結合", "internal/db/query.go:42")
	pass1 := "### 1. SQLインジェクションのリスク\n\n" + body
	pass3 := "### 1. SQLインジェクションのリスク\n\n" + body

	results := []core.ReviewResult{
		{AgentConfig: agentConfig("security"), Content: pass1, Success: true, Timestamp: time.Unix(1, 0)},
		{AgentConfig: agentConfig("security"), Success: false, ErrorMessage: "timeout", Timestamp: time.Unix(2, 0)},
		{AgentConfig: agentConfig("security"), Content: pass3, Success: true, Timestamp: time.Unix(3, 0)},
	}
	out := Dedupe(results)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "検出パス: 1, 3")
	assert.NotContains(t, out[0].Content, "検出パス: 1, 2")
}

func TestDedupe_MultiPassSkipsFailedPasses(t *testing.T) {
	okContent := "### 1. 見つかった問題\n\n" + findingBody("Low", "小さな問題", "main.go:1")

	results := []core.ReviewResult{
		{AgentConfig: agentConfig("security"), Success: false, ErrorMessage: "timeout", Timestamp: time.Unix(1, 0)},
		{AgentConfig: agentConfig("security"), Content: okContent, Success: true, Timestamp: time.Unix(2, 0)},
	}
	out := Dedupe(results)
	require.Len(t, out, 1)
	assert.True(t, out[0].Success)
	assert.Contains(t, out[0].Content, "1 パスが失敗しました")
}

func TestDedupe_AllPassesFailedReturnsLastVerbatim(t *testing.T) {
	results := []core.ReviewResult{
		{AgentConfig: agentConfig("security"), Success: false, ErrorMessage: "timeout", Timestamp: time.Unix(1, 0)},
		{AgentConfig: agentConfig("security"), Success: false, ErrorMessage: "rate limited", Timestamp: time.Unix(2, 0)},
	}
	out := Dedupe(results)
	require.Len(t, out, 1)
	assert.False(t, out[0].Success)
	assert.Equal(t, "rate limited", out[0].ErrorMessage)
}
