package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-engine/internal/config"
	"github.com/sevigo/review-engine/internal/ghauth"
	"github.com/sevigo/review-engine/internal/logger"
)

var resolveTokenCmd = &cobra.Command{
	Use:   "resolve-token",
	Short: "Resolve the GitHub token the engine would use and print its identity",
	Long: `resolve-token exercises the same resolution path "review" uses: a
provided --token, falling back to "gh auth token". Useful for diagnosing
why a run proceeded unauthenticated.`,
	RunE: runResolveToken,
}

func init() { //nolint:gochecknoinits // cobra flag registration
	resolveTokenCmd.Flags().StringVar(&tokenFlag, "token", "", "token to validate instead of resolving via gh")
}

func runResolveToken(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log := logger.NewLogger(cfg.Logging, nil)

	resolver := ghauth.New(cfg.GHAuth.TimeoutSeconds, cfg.GHAuth.CLIPathOverride, log)
	token, ok := resolver.Resolve(context.Background(), tokenFlag)
	if !ok {
		return fmt.Errorf("no token could be resolved")
	}

	identity, err := resolver.ConfirmIdentity(context.Background(), token)
	if err != nil {
		fmt.Printf("token resolved (identity check failed: %v)\n", err)
		return nil
	}
	fmt.Printf("token resolved for %s (%d API calls remaining)\n", identity.Login, identity.RateRemaining)
	return nil
}
