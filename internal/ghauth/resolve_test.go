package ghauth

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-engine/internal/logger"
)

func TestResolve_ReturnsProvidedTokenTrimmed(t *testing.T) {
	r := New(5, "", logger.NewLogger(logger.Config{Level: "info"}, nil))
	token, ok := r.Resolve(context.Background(), "  ghp_abc123  ")
	assert.True(t, ok)
	assert.Equal(t, "ghp_abc123", token)
}

func TestResolve_RejectsUnexpandedPlaceholder(t *testing.T) {
	r := New(5, "/nonexistent/gh", logger.NewLogger(logger.Config{Level: "info"}, nil))
	token, ok := r.Resolve(context.Background(), "${GITHUB_TOKEN}")
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestResolve_EmptyProvidedFallsThroughToCLILookup(t *testing.T) {
	r := New(5, "/nonexistent/gh", logger.NewLogger(logger.Config{Level: "info"}, nil))
	token, ok := r.Resolve(context.Background(), "")
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestValidate_RejectsSymlinkToDisallowedName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink semantics differ on windows")
	}
	dir := t.TempDir()
	realBinary := filepath.Join(dir, "not-gh")
	require.NoError(t, os.WriteFile(realBinary, []byte("#!/bin/sh\necho fake\n"), 0o755))

	symlinkPath := filepath.Join(dir, "gh")
	require.NoError(t, os.Symlink(realBinary, symlinkPath))

	r := New(5, symlinkPath, logger.NewLogger(logger.Config{Level: "info"}, nil))
	_, err := r.validate(symlinkPath)
	assert.Error(t, err, "a symlink whose real target filename is not allowlisted must be rejected")
}

func TestValidate_AcceptsSymlinkToAllowlistedName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink semantics differ on windows")
	}
	dir := t.TempDir()
	realBinary := filepath.Join(dir, "gh")
	require.NoError(t, os.WriteFile(realBinary, []byte("#!/bin/sh\necho fake\n"), 0o755))

	symlinkPath := filepath.Join(dir, "gh-link")
	require.NoError(t, os.Symlink(realBinary, symlinkPath))

	r := New(5, "", logger.NewLogger(logger.Config{Level: "info"}, nil))
	resolved, err := r.validate(symlinkPath)
	require.NoError(t, err)
	assert.Equal(t, "gh", filepath.Base(resolved))
}

func TestValidate_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	ghDir := filepath.Join(dir, "gh")
	require.NoError(t, os.Mkdir(ghDir, 0o755))

	r := New(5, "", logger.NewLogger(logger.Config{Level: "info"}, nil))
	_, err := r.validate(ghDir)
	assert.Error(t, err)
}

func TestFirstNonBlankLine(t *testing.T) {
	assert.Equal(t, "ghp_token", firstNonBlankLine("\n\n  ghp_token  \nextra\n"))
	assert.Equal(t, "", firstNonBlankLine("\n\n   \n"))
}
