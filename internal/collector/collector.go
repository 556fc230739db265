// Package collector implements the local source collector: a bounded walk
// of a directory tree that assembles a single in-memory review artifact
// under per-file and aggregate byte caps, skipping ignored directories and
// sensitive files.
package collector

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sevigo/review-engine/internal/config"
	"github.com/sevigo/review-engine/internal/core"
)

// Collector walks a local directory tree into a core.SourceBundle.
type Collector struct {
	cfg    config.LocalFilesConfig
	logger *slog.Logger
}

// New constructs a Collector bound to the given local-files configuration.
func New(cfg config.LocalFilesConfig, logger *slog.Logger) *Collector {
	return &Collector{cfg: cfg, logger: logger}
}

type fileEntry struct {
	relPath string
	size    int64
}

// Collect walks rootDirectory and produces a SourceBundle whose content is
// bounded by cfg.MaxTotalSize, with each included file bounded by
// cfg.MaxFileSize. Sensitive files and ignored directories are excluded
// entirely; files beyond the aggregate budget are counted as excluded, not
// erroneous.
func (c *Collector) Collect(rootDirectory string) (core.SourceBundle, error) {
	candidates, err := c.walk(rootDirectory)
	if err != nil {
		return core.SourceBundle{}, fmt.Errorf("walking %s: %w", rootDirectory, err)
	}

	var content strings.Builder
	var totalSize int64
	included := 0
	excluded := 0

	for _, f := range candidates {
		if totalSize+f.size > c.cfg.MaxTotalSize {
			excluded++
			continue
		}

		data, err := os.ReadFile(filepath.Join(rootDirectory, f.relPath))
		if err != nil {
			c.logger.Warn("failed to read candidate file", "path", f.relPath, "error", err)
			excluded++
			continue
		}

		content.WriteString(fenceHeader(f.relPath))
		content.Write(data)
		content.WriteString("\n```\n\n")

		totalSize += f.size
		included++
	}

	return core.SourceBundle{
		ReviewContent:    content.String(),
		FileCount:        included,
		DirectorySummary: c.summarize(rootDirectory, included, excluded),
	}, nil
}

// walk enumerates every regular file under root that passes the ignored-
// directory, extension-allowlist, and sensitivity checks, without reading
// file contents yet.
func (c *Collector) walk(root string) ([]fileEntry, error) {
	var entries []fileEntry

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && c.isIgnoredDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !c.isSourceExtension(ext) {
			return nil
		}
		if c.isSensitive(info.Name(), ext) {
			return nil
		}
		if info.Size() > c.cfg.MaxFileSize {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, fileEntry{relPath: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Collector) isIgnoredDir(name string) bool {
	for _, ignored := range c.cfg.IgnoredDirectories {
		if name == ignored {
			return true
		}
	}
	return false
}

func (c *Collector) isSourceExtension(ext string) bool {
	for _, allowed := range c.cfg.SourceExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (c *Collector) isSensitive(name, ext string) bool {
	lowerName := strings.ToLower(name)
	for _, pattern := range c.cfg.SensitiveFilePatterns {
		if strings.Contains(lowerName, pattern) {
			return true
		}
	}
	for _, sensitiveExt := range c.cfg.SensitiveExtensions {
		if ext == sensitiveExt {
			return true
		}
	}
	return false
}

func (c *Collector) summarize(root string, included, excluded int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source collected from %s\n", root)
	fmt.Fprintf(&b, "Files included: %d\n", included)
	if excluded > 0 {
		fmt.Fprintf(&b, "Files excluded (size budget or read failure): %d\n", excluded)
	}
	return b.String()
}

// languageTags maps common source extensions to a markdown fence language
// tag; unrecognized extensions fall through to no tag at all.
var languageTags = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".jsx":  "jsx",
	".py":   "python",
	".java": "java",
	".c":    "c",
	".cpp":  "cpp",
	".h":    "c",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
}

func fenceHeader(relPath string) string {
	ext := strings.ToLower(filepath.Ext(relPath))
	lang := languageTags[ext]
	return fmt.Sprintf("### %s\n```%s\n", relPath, lang)
}
