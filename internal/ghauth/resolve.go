// Package ghauth resolves a GitHub bearer token either from caller input or
// by shelling out to the gh CLI, with a strict allowlist on which binary may
// be invoked.
package ghauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// placeholderToken is the literal unexpanded env-var placeholder some
// callers pass through by mistake; it must never be treated as a real
// token.
const placeholderToken = "${GITHUB_TOKEN}"

// allowedCLINames lists the filenames resolve will accept as the gh binary
// after symlink resolution, matching gh's own release artifact names.
var allowedCLINames = map[string]bool{
	"gh":     true,
	"gh.exe": true,
	"gh.cmd": true,
}

// Resolver resolves a bearer token for GitHub API calls.
type Resolver struct {
	timeout         time.Duration
	cliPathOverride string
	logger          *slog.Logger
}

// New constructs a Resolver. timeoutSeconds <= 0 defaults to 10s.
func New(timeoutSeconds int, cliPathOverride string, logger *slog.Logger) *Resolver {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 10
	}
	return &Resolver{
		timeout:         time.Duration(timeoutSeconds) * time.Second,
		cliPathOverride: cliPathOverride,
		logger:          logger,
	}
}

// Resolve returns providedToken trimmed when it is non-empty and not the
// unexpanded placeholder; otherwise it shells out to "gh auth token" and
// returns its first non-blank output line, trimmed. It never returns an error for expected
// failure modes: a failed resolution yields "", false and a warn-level log.
func (r *Resolver) Resolve(ctx context.Context, providedToken string) (string, bool) {
	if trimmed := strings.TrimSpace(providedToken); trimmed != "" && trimmed != placeholderToken {
		return trimmed, true
	}

	cliPath, err := r.locateCLI()
	if err != nil {
		r.logger.Warn("gh CLI not found", "error", err)
		return "", false
	}

	token, err := r.invoke(ctx, cliPath)
	if err != nil {
		r.logger.Warn("gh auth token invocation failed", "error", err)
		return "", false
	}
	return token, true
}

// locateCLI finds the gh binary via an explicit override (typically sourced
// from the GH_CLI_PATH env var by the caller) or a PATH scan, rejecting any
// candidate whose real, symlink-resolved filename is not in the allowlist.
func (r *Resolver) locateCLI() (string, error) {
	if r.cliPathOverride != "" {
		return r.validate(r.cliPathOverride)
	}

	name := "gh"
	if runtime.GOOS == "windows" {
		name = "gh.exe"
	}
	found, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("gh not found on PATH: %w", err)
	}
	return r.validate(found)
}

// validate resolves candidatePath to an absolute, symlink-real path and
// checks that its filename is in the allowlist.
func (r *Resolver) validate(candidatePath string) (string, error) {
	abs, err := filepath.Abs(candidatePath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving real path: %w", err)
	}

	name := filepath.Base(real)
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		name = strings.ToLower(name)
	}
	if !allowedCLINames[name] {
		return "", fmt.Errorf("resolved binary %q is not an allowlisted gh executable", real)
	}

	info, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("stat-ing resolved binary: %w", err)
	}
	if info.IsDir() {
		return "", errors.New("resolved gh path is a directory")
	}
	return real, nil
}

// invoke runs "gh auth token -h github.com" with a wall-clock timeout,
// returning its first non-blank output line, trimmed, on success.
func (r *Resolver) invoke(ctx context.Context, cliPath string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// stderr is merged into stdout: gh's auth diagnostics and its token
	// output share one stream per the subprocess contract.
	cmd := exec.CommandContext(runCtx, cliPath, "auth", "token", "-h", "github.com")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return "", fmt.Errorf("gh auth token timed out after %s", r.timeout)
		}
		return "", fmt.Errorf("gh auth token exited with error: %w (%s)", err, stdout.String())
	}

	firstLine := firstNonBlankLine(stdout.String())
	if firstLine == "" {
		return "", errors.New("gh auth token produced no output")
	}
	return firstLine, nil
}

func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
