package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sevigo/review-engine/internal/breaker"
	"github.com/sevigo/review-engine/internal/core"
	"github.com/sevigo/review-engine/internal/retry"
)

// reviewContext is the collaborator boundary exposed to the per-agent task:
// an LLM client handle, the cached source bundle, and the retry/breaker
// configuration shared by every call on the review channel.
type reviewContext struct {
	client       core.Client
	sourceBundle core.SourceBundle
	instructions []string
	agentTimeout time.Duration
	idleTimeout  time.Duration
	maxRetries   int
	retryCfg     retry.Config
	breaker      *breaker.Breaker
}

// passOutcome is the typed result the retry executor operates over: either
// a successful Response or a classified failure message.
type passOutcome struct {
	response core.Response
	ok       bool
	errorMsg string
}

// reviewPasses opens one LLM session for agentCfg and drives its K passes
// sequentially, returning exactly one ReviewResult per pass regardless of
// outcome.
func (rc *reviewContext) reviewPasses(ctx context.Context, agentCfg core.AgentConfig, target core.Target, passes int) []core.ReviewResult {
	session, err := rc.client.CreateSession(ctx, agentCfg.Model, agentCfg.SystemPrompt, nil)
	if err != nil {
		return repeatFailure(agentCfg, target, passes, fmt.Sprintf("failed to create session: %v", err))
	}
	defer session.Close()

	results := make([]core.ReviewResult, passes)
	for i := 0; i < passes; i++ {
		results[i] = rc.runPass(ctx, session, agentCfg, target)
	}
	return results
}

// runPass drives one pass to completion under its own per-pass deadline
// (rc.agentTimeout), independent of the per-agent total budget the caller's
// context is already bound by. Retries for this one pass happen inside that
// same inner deadline, so a hung attempt cannot silently consume budget
// belonging to the agent's other passes.
func (rc *reviewContext) runPass(ctx context.Context, session core.Session, agentCfg core.AgentConfig, target core.Target) core.ReviewResult {
	passCtx, cancel := context.WithTimeout(ctx, rc.agentTimeout)
	defer cancel()

	executor := retry.New[passOutcome](retry.Config{
		MaxAttempts:   rc.maxRetries + 1,
		BaseBackoffMs: rc.retryCfg.BaseBackoffMs,
		MaxBackoffMs:  rc.retryCfg.MaxBackoffMs,
	}, rc.breaker)

	prompt := rc.buildPrompt(agentCfg, target)

	outcome := executor.Execute(passCtx,
		func(ctx context.Context) (passOutcome, error) {
			resp, err := session.Send(ctx, core.SessionOptions{
				Prompt:      prompt,
				IdleTimeout: int64(rc.idleTimeout / time.Millisecond),
			})
			if err != nil {
				return passOutcome{}, err
			}
			if strings.TrimSpace(resp.Content) == "" {
				return passOutcome{ok: false, errorMsg: "empty response from model"}, nil
			}
			return passOutcome{response: resp, ok: true}, nil
		},
		func(o passOutcome) bool { return o.ok },
		func(o passOutcome) bool { return retry.IsRetryableMessage(o.errorMsg) },
		func(err error) passOutcome { return passOutcome{ok: false, errorMsg: err.Error()} },
		func(remainingMs int64) passOutcome {
			return passOutcome{ok: false, errorMsg: fmt.Sprintf("circuit breaker open, %dms remaining", remainingMs)}
		},
	)

	result := core.ReviewResult{
		AgentConfig:   agentCfg,
		TargetDisplay: target.DisplayName(),
		Timestamp:     time.Now(),
	}
	if outcome.ok {
		result.Success = true
		result.Content = outcome.response.Content
	} else {
		result.Success = false
		result.ErrorMessage = outcome.errorMsg
		if passCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			result.ErrorMessage = fmt.Sprintf("pass timed out after %d minutes", int(rc.agentTimeout.Round(time.Minute)/time.Minute))
		}
	}
	return result
}

// buildPrompt assembles the per-call prompt from the agent's own
// instruction text, the caller-supplied run instructions, and the cached
// source bundle (for local targets).
func (rc *reviewContext) buildPrompt(agentCfg core.AgentConfig, target core.Target) string {
	var b strings.Builder
	b.WriteString(agentCfg.InstructionText)
	b.WriteString("\n\n")

	if len(rc.instructions) > 0 {
		b.WriteString("Additional instructions:\n")
		for _, instr := range rc.instructions {
			b.WriteString("- ")
			b.WriteString(instr)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Target: %s\n\n", target.DisplayName())

	if rc.sourceBundle.ReviewContent != "" {
		b.WriteString(rc.sourceBundle.DirectorySummary)
		b.WriteString("\n")
		b.WriteString(rc.sourceBundle.ReviewContent)
	}

	if agentCfg.OutputTemplate != "" {
		b.WriteString("\nRespond using this template:\n")
		b.WriteString(agentCfg.OutputTemplate)
	}

	return b.String()
}

func repeatFailure(agentCfg core.AgentConfig, target core.Target, passes int, message string) []core.ReviewResult {
	results := make([]core.ReviewResult, passes)
	for i := range results {
		results[i] = core.ReviewResult{
			AgentConfig:   agentCfg,
			TargetDisplay: target.DisplayName(),
			Success:       false,
			ErrorMessage:  message,
			Timestamp:     time.Now(),
		}
	}
	return results
}
