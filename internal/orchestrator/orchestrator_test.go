package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-engine/internal/breaker"
	"github.com/sevigo/review-engine/internal/checkpoint"
	"github.com/sevigo/review-engine/internal/config"
	"github.com/sevigo/review-engine/internal/core"
	"github.com/sevigo/review-engine/internal/logger"
	"github.com/sevigo/review-engine/internal/retry"
)

type fakeSession struct {
	sendFunc func(ctx context.Context, opts core.SessionOptions) (core.Response, error)
	closed   atomic.Bool
}

func (s *fakeSession) Send(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
	return s.sendFunc(ctx, opts)
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeClient struct {
	createSessionErr error
	sendFunc        func(ctx context.Context, opts core.SessionOptions) (core.Response, error)
	sessionsCreated atomic.Int32
}

func (c *fakeClient) CreateSession(ctx context.Context, model, systemPrompt string, mcp core.MCPServerConfig) (core.Session, error) {
	c.sessionsCreated.Add(1)
	if c.createSessionErr != nil {
		return nil, c.createSessionErr
	}
	return &fakeSession{sendFunc: c.sendFunc}, nil
}

func testOrchestratorConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		Parallelism:                4,
		AgentTimeoutMinutes:        1,
		OrchestratorTimeoutMinutes: 1,
		IdleTimeoutMinutes:         1,
		MaxRetries:                 1,
	}
}

func newTestOrchestrator(t *testing.T, client core.Client) *Orchestrator {
	t.Helper()
	b := breaker.New(5, 1000, nil)
	cp := checkpoint.New(t.TempDir(), logger.NewLogger(logger.Config{Level: "info"}, nil))
	return New(testOrchestratorConfig(), client, nil, cp, b, retry.Config{BaseBackoffMs: 1, MaxBackoffMs: 2}, logger.NewLogger(logger.Config{Level: "info"}, nil))
}

func TestExecuteReviews_OneResultPerAgentPass(t *testing.T) {
	client := &fakeClient{
		sendFunc: func(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
			return core.Response{Content: "### 1. ok\n\nfine"}, nil
		},
	}
	o := newTestOrchestrator(t, client)

	req := core.ReviewRequest{
		Target: core.NewGitHubTarget("owner/repo"),
		Agents: []core.AgentConfig{
			{Name: "security"}, {Name: "style"},
		},
		Passes: 1,
	}

	results := o.ExecuteReviews(context.Background(), req)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
	}
}

func TestExecuteReviews_MultiplePassesProduceKResultsBeforeDedup(t *testing.T) {
	var calls atomic.Int32
	client := &fakeClient{
		sendFunc: func(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
			calls.Add(1)
			return core.Response{Content: "### 1. finding\n\nbody"}, nil
		},
	}
	o := newTestOrchestrator(t, client)

	req := core.ReviewRequest{
		Target: core.NewGitHubTarget("owner/repo"),
		Agents: []core.AgentConfig{{Name: "security"}},
		Passes: 3,
	}

	results := o.ExecuteReviews(context.Background(), req)
	require.Len(t, results, 1, "K>1 passes should be deduplicated down to one synthesized ReviewResult per agent")
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecuteReviews_SessionCreationFailureProducesFailedResult(t *testing.T) {
	client := &fakeClient{createSessionErr: errors.New("model unavailable")}
	o := newTestOrchestrator(t, client)

	req := core.ReviewRequest{
		Target: core.NewGitHubTarget("owner/repo"),
		Agents: []core.AgentConfig{{Name: "security"}},
		Passes: 1,
	}

	results := o.ExecuteReviews(context.Background(), req)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].ErrorMessage, "model unavailable")
}

func TestExecuteReviews_EmptyAgentListYieldsNoResults(t *testing.T) {
	client := &fakeClient{sendFunc: func(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
		return core.Response{Content: "ok"}, nil
	}}
	o := newTestOrchestrator(t, client)

	results := o.ExecuteReviews(context.Background(), core.ReviewRequest{
		Target: core.NewGitHubTarget("owner/repo"),
		Passes: 1,
	})
	assert.Empty(t, results)
}

func TestExecuteReviews_RetriesTransientFailureThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := &fakeClient{
		sendFunc: func(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
			if calls.Add(1) == 1 {
				return core.Response{}, errors.New("connection reset")
			}
			return core.Response{Content: "### 1. ok\n\nfine"}, nil
		},
	}
	o := newTestOrchestrator(t, client)
	// keep retries fast
	o.retryCfg = retry.Config{BaseBackoffMs: 1, MaxBackoffMs: 2}

	req := core.ReviewRequest{
		Target: core.NewGitHubTarget("owner/repo"),
		Agents: []core.AgentConfig{{Name: "security"}},
		Passes: 1,
	}
	results := o.ExecuteReviews(context.Background(), req)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecuteReviews_TimeoutProducesTimedOutMessage(t *testing.T) {
	client := &fakeClient{
		sendFunc: func(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
			time.Sleep(50 * time.Millisecond)
			return core.Response{Content: "### 1. ok\n\nfine"}, nil
		},
	}
	o := newTestOrchestrator(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	req := core.ReviewRequest{
		Target: core.NewGitHubTarget("owner/repo"),
		Agents: []core.AgentConfig{{Name: "security"}},
		Passes: 1,
	}

	results := o.ExecuteReviews(ctx, req)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Regexp(t, regexp.MustCompile(`timed out after \d+ minutes`), results[0].ErrorMessage)
}

func TestExecuteReviews_ParallelismRespectsSemaphoreBound(t *testing.T) {
	var concurrent, maxConcurrent atomic.Int32
	client := &fakeClient{
		sendFunc: func(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
			cur := concurrent.Add(1)
			for {
				m := maxConcurrent.Load()
				if cur <= m || maxConcurrent.CompareAndSwap(m, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			concurrent.Add(-1)
			return core.Response{Content: "### 1. ok\n\nfine"}, nil
		},
	}
	o := newTestOrchestrator(t, client)
	o.cfg.Parallelism = 2

	agents := make([]core.AgentConfig, 6)
	for i := range agents {
		agents[i] = core.AgentConfig{Name: fmt.Sprintf("agent-%d", i)}
	}
	req := core.ReviewRequest{Target: core.NewGitHubTarget("owner/repo"), Agents: agents, Passes: 1}

	results := o.ExecuteReviews(context.Background(), req)
	require.Len(t, results, 6)
	assert.LessOrEqual(t, maxConcurrent.Load(), int32(2))
}
