package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/review-engine/internal/agentfile"
	"github.com/sevigo/review-engine/internal/breaker"
	"github.com/sevigo/review-engine/internal/checkpoint"
	"github.com/sevigo/review-engine/internal/collector"
	"github.com/sevigo/review-engine/internal/config"
	"github.com/sevigo/review-engine/internal/core"
	"github.com/sevigo/review-engine/internal/ghauth"
	"github.com/sevigo/review-engine/internal/llmclient"
	"github.com/sevigo/review-engine/internal/logger"
	"github.com/sevigo/review-engine/internal/orchestrator"
	"github.com/sevigo/review-engine/internal/repometa"
	"github.com/sevigo/review-engine/internal/retry"
	"github.com/sevigo/review-engine/internal/summary"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)

	summaryPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)
)

var (
	agentsDir   string
	reportsDir  string
	passes      int
	tokenFlag   string
	instrFlags  []string
	verboseFlag bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [target]",
	Short: "Run the configured review agents against a target",
	Long: `Run every agent defined under --agents-dir against target, which is
either a local directory path or a GitHub "owner/repo" handle.

Examples:
  reviewer review ./my-project
  reviewer review octocat/hello-world
  reviewer review octocat/hello-world --token "$GITHUB_TOKEN"`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // cobra flag registration
	reviewCmd.Flags().StringVar(&agentsDir, "agents-dir", "agents", "directory of YAML agent definitions")
	reviewCmd.Flags().StringVar(&reportsDir, "reports-dir", "reports", "directory to write final reports into")
	reviewCmd.Flags().IntVar(&passes, "passes", 0, "review passes per agent (0 = use config default)")
	reviewCmd.Flags().StringVar(&tokenFlag, "token", "", "GitHub token; falls back to gh CLI when empty")
	reviewCmd.Flags().StringArrayVar(&instrFlags, "instruction", nil, "additional free-text instruction (repeatable)")
	reviewCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "print per-agent timing and status")
}

func runReview(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	targetArg := args[0]

	titleColor.Println("Review Engine")
	dimColor.Printf("  Target: %s\n\n", targetArg)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w\n\nTip: check that config.yaml is valid YAML", err)
	}

	log := logger.NewLogger(cfg.Logging, nil)

	agents, err := agentfile.LoadDir(agentsDir)
	if err != nil {
		return fmt.Errorf("loading agent definitions from %s: %w", agentsDir, err)
	}
	if len(agents) == 0 {
		return fmt.Errorf("no agent definitions found under %s", agentsDir)
	}
	dimColor.Printf("  Loaded %d agent(s) from %s\n", len(agents), agentsDir)

	target, err := resolveTarget(targetArg)
	if err != nil {
		return err
	}

	resolver := ghauth.New(cfg.GHAuth.TimeoutSeconds, cfg.GHAuth.CLIPathOverride, log)
	var token string
	var identity *ghauth.Identity
	if target.IsGitHub() {
		resolved, ok := resolver.Resolve(ctx, tokenFlag)
		if ok {
			token = resolved
			if id, err := resolver.ConfirmIdentity(ctx, token); err == nil {
				identity = &id
			} else {
				log.Warn("token identity confirmation failed", "error", err)
			}
		} else {
			log.Warn("no GitHub token resolved; proceeding unauthenticated")
		}
	}

	client, err := llmclient.NewFromConfig(cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("initializing LLM backend: %w", err)
	}

	reviewBreaker := breaker.New(cfg.ReviewCircuit.FailureThreshold, int64(cfg.ReviewCircuit.OpenDurationSeconds)*1000, nil)
	reviewRetry := retry.Config{
		BaseBackoffMs: int64(cfg.ReviewRetry.BackoffBaseMs),
		MaxBackoffMs:  int64(cfg.ReviewRetry.BackoffMaxMs),
	}

	col := collector.New(cfg.LocalFiles, log)
	progressWriter := checkpoint.New(cfg.Orchestrator.CheckpointDirectory, log)

	orch := orchestrator.New(cfg.Orchestrator, client, col, progressWriter, reviewBreaker, reviewRetry, log)

	effectivePasses := passes
	if effectivePasses <= 0 {
		effectivePasses = cfg.Orchestrator.ReviewPasses
	}

	req := core.ReviewRequest{
		Target:       target,
		Agents:       agents,
		Passes:       effectivePasses,
		Token:        token,
		Instructions: instrFlags,
	}

	start := time.Now()
	results := orch.ExecuteReviews(ctx, req)
	if verboseFlag {
		dimColor.Printf("  Completed in %s\n\n", time.Since(start).Round(time.Millisecond))
	}

	finalWriter := checkpoint.New(reportsDir, log)
	for _, r := range results {
		finalWriter.Write(target.DisplayName(), []core.ReviewResult{r})
	}

	var snapshot *repometa.Snapshot
	if target.IsGitHub() {
		fetched, err := repometa.New(log).Fetch(ctx, target.OwnerRepo(), token)
		if err != nil {
			log.Warn("repository metadata snapshot failed", "error", err)
		} else {
			snapshot = &fetched
		}
	}

	doc := summary.Render(summary.Input{
		TargetDisplay: target.DisplayName(),
		Results:       results,
		RepoSnapshot:  snapshot,
		Identity:      identity,
		GeneratedAt:   time.Now(),
	})

	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return fmt.Errorf("creating reports directory: %w", err)
	}
	summaryPath := filepath.Join(reportsDir, "summary.md")
	if err := os.WriteFile(summaryPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing executive summary: %w", err)
	}

	printSummary(doc)
	failed := reportStatus(results)
	if failed > 0 {
		return fmt.Errorf("%d of %d agent result(s) failed", failed, len(results))
	}
	return nil
}

func resolveTarget(arg string) (core.Target, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return core.Target{}, fmt.Errorf("resolving local target path: %w", err)
		}
		return core.NewLocalTarget(abs), nil
	}
	if !strings.Contains(arg, "/") {
		return core.Target{}, fmt.Errorf("target %q is neither an existing directory nor an \"owner/repo\" handle", arg)
	}
	return core.NewGitHubTarget(arg), nil
}

func printSummary(doc string) {
	rendered, err := glamour.Render(doc, "dark")
	if err != nil {
		rendered = doc
	}
	fmt.Println(summaryPanel.Render(strings.TrimRight(rendered, "\n")))
}

// reportStatus prints a pass/fail banner and returns the failure count; the
// caller decides whether that failure count becomes a non-zero exit code.
func reportStatus(results []core.ReviewResult) int {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed == 0 {
		successColor.Printf("\nAll %d agent result(s) succeeded.\n", len(results))
		return 0
	}
	errorColor.Printf("\n%d of %d agent result(s) failed.\n", failed, len(results))
	return failed
}
