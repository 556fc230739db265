package ghauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

// Identity is the result of confirming a resolved token is live.
type Identity struct {
	Login         string
	RateRemaining int
}

// ConfirmIdentity calls the GitHub API once with token to recover the
// authenticated login and remaining rate limit for the executive summary
// header. It is a best-effort follow-up to Resolve: callers should log and
// continue on error rather than abort the run.
func (r *Resolver) ConfirmIdentity(ctx context.Context, token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, errors.New("no token to confirm")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return Identity{}, fmt.Errorf("confirming token identity: %w", err)
	}

	limits, _, err := client.RateLimit.Get(ctx)
	remaining := 0
	if err == nil && limits != nil && limits.Core != nil {
		remaining = limits.Core.Remaining
	} else {
		r.logger.Warn("rate limit lookup failed", "error", err)
	}

	return Identity{Login: user.GetLogin(), RateRemaining: remaining}, nil
}
