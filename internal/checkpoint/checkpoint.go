// Package checkpoint writes per-agent review progress to disk atomically,
// so a crash mid-run never leaves a partially written checkpoint file.
package checkpoint

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sevigo/review-engine/internal/core"
)

// Writer atomically persists per-agent review checkpoints to a directory.
type Writer struct {
	directory string
	logger    *slog.Logger
}

// New constructs a Writer rooted at directory. The directory is created
// lazily on the first Write call.
func New(directory string, logger *slog.Logger) *Writer {
	return &Writer{directory: directory, logger: logger}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitize replaces every character outside [a-zA-Z0-9._-] with an
// underscore, matching the checkpoint filename-safety rule.
func sanitize(s string) string {
	return unsafeNameChars.ReplaceAllString(s, "_")
}

// Write renders the full set of an agent's pass results to markdown — one
// "## pass-result" section per pass, in pass order — and writes it to
// "<safeTarget>_<safeAgent>.md" under the writer's directory, atomically:
// the content lands in a temp file in the same directory first, then is
// renamed into place. Called once per agent task, after all of its passes
// have completed, so a crash mid-run never leaves an earlier pass's result
// clobbered by a later one. A write failure is logged at warn and otherwise
// swallowed, since checkpoint I/O must never fail the review task it backs.
func (w *Writer) Write(targetDisplay string, results []core.ReviewResult) {
	if len(results) == 0 {
		return
	}
	if err := w.write(targetDisplay, results); err != nil {
		w.logger.Warn("checkpoint write failed", "agent", results[0].AgentConfig.Name, "error", err)
	}
}

func (w *Writer) write(targetDisplay string, results []core.ReviewResult) error {
	if err := os.MkdirAll(w.directory, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	finalName := fmt.Sprintf("%s_%s.md", sanitize(targetDisplay), sanitize(results[0].AgentConfig.Name))
	finalPath := filepath.Join(w.directory, finalName)

	tmp, err := os.CreateTemp(w.directory, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(render(targetDisplay, results)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp checkpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp checkpoint file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming checkpoint file into place: %w", err)
	}
	return nil
}

func render(targetDisplay string, results []core.ReviewResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Intermediate Review Checkpoint\nagent=%s\ntarget=%s\n", results[0].AgentConfig.Name, targetDisplay)

	for _, r := range results {
		fmt.Fprintf(&b, "\n## pass-result\nsuccess=%t\n", r.Success)
		if r.ErrorMessage != "" {
			fmt.Fprintf(&b, "error=%s\n", r.ErrorMessage)
		}
		if r.Content != "" {
			b.WriteString(r.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
