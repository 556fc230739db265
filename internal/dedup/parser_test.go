package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContent = `## レビュー結果

### 1. SQLインジェクションの可能性

| 項目 | 内容 |
| --- | --- |
| **Priority** | High |
| **指摘の概要** | ユーザー入力が検証なしでクエリに結合されている |
| **該当箇所** | internal/db/query.go:42 |

### 2. ログへの機密情報混入

| 項目 | 内容 |
| --- | --- |
| **Priority** | Medium |
| **指摘の概要** | アクセストークンが平文でログ出力される |
| **該当箇所** | internal/auth/token.go:18 |
`

func TestParseFindingBlocks_ExtractsTwoBlocks(t *testing.T) {
	blocks := ParseFindingBlocks(sampleContent)
	require.Len(t, blocks, 2)
	assert.Equal(t, "SQLインジェクションの可能性", blocks[0].Title)
	assert.Equal(t, "ログへの機密情報混入", blocks[1].Title)
	assert.Contains(t, blocks[0].Body, "internal/db/query.go:42")
}

func TestParseFindingBlocks_NoHeadingsFallsBack(t *testing.T) {
	blocks := ParseFindingBlocks("問題は見つかりませんでした。")
	require.Len(t, blocks, 1)
	assert.Equal(t, fallbackTitle, blocks[0].Title)
}

func TestParseFindingBlocks_BlankContentYieldsNil(t *testing.T) {
	blocks := ParseFindingBlocks("   \n\n  ")
	assert.Nil(t, blocks)
}

func TestIsFallbackParse(t *testing.T) {
	assert.True(t, IsFallbackParse("no headings here"))
	assert.False(t, IsFallbackParse(sampleContent))
}

func TestExtractTableFields(t *testing.T) {
	blocks := ParseFindingBlocks(sampleContent)
	require.Len(t, blocks, 2)

	fields := ExtractTableFields(blocks[0].Body)
	assert.Equal(t, "High", fields.Priority)
	assert.Equal(t, "ユーザー入力が検証なしでクエリに結合されている", fields.Summary)
	assert.Equal(t, "internal/db/query.go:42", fields.Location)
}

func TestExtractTableFields_MissingFieldsAreEmpty(t *testing.T) {
	fields := ExtractTableFields("no table here at all")
	assert.Empty(t, fields.Priority)
	assert.Empty(t, fields.Summary)
	assert.Empty(t, fields.Location)
}
