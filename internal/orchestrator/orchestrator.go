// Package orchestrator is the structured-concurrency driver that fans a
// ReviewRequest out into one task per agent, each task running its passes
// sequentially against the LLM client through the retry+breaker layer,
// checkpointing progress, and joining under nested timeouts.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sevigo/review-engine/internal/breaker"
	"github.com/sevigo/review-engine/internal/checkpoint"
	"github.com/sevigo/review-engine/internal/collector"
	"github.com/sevigo/review-engine/internal/config"
	"github.com/sevigo/review-engine/internal/core"
	"github.com/sevigo/review-engine/internal/dedup"
	"github.com/sevigo/review-engine/internal/retry"
)

// Orchestrator drives a ReviewRequest to completion: it collects local
// source once, forks a semaphore-bounded task per agent, and joins all
// tasks under an orchestrator-wide deadline.
type Orchestrator struct {
	cfg        config.OrchestratorConfig
	client     core.Client
	collector  *collector.Collector
	checkpoint *checkpoint.Writer
	retryCfg   retry.Config
	breaker    *breaker.Breaker
	logger     *slog.Logger
}

// New constructs an Orchestrator. breaker and retryCfg govern every LLM call
// the orchestrator makes through the review channel.
func New(
	cfg config.OrchestratorConfig,
	client core.Client,
	collector *collector.Collector,
	checkpointWriter *checkpoint.Writer,
	reviewBreaker *breaker.Breaker,
	reviewRetryCfg retry.Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		collector:  collector,
		checkpoint: checkpointWriter,
		retryCfg:   reviewRetryCfg,
		breaker:    reviewBreaker,
		logger:     logger,
	}
}

// ExecuteReviews runs req to completion and returns one ReviewResult per
// (agent, pass) submitted, deduplicated per agent when req.Passes > 1.
func (o *Orchestrator) ExecuteReviews(ctx context.Context, req core.ReviewRequest) []core.ReviewResult {
	passes := req.Passes
	if passes < 1 {
		passes = 1
	}

	sourceBundle := o.collectSource(req.Target)
	rc := &reviewContext{
		client:       o.client,
		sourceBundle: sourceBundle,
		instructions: req.Instructions,
		agentTimeout: o.cfg.AgentTimeout(),
		idleTimeout:  o.cfg.IdleTimeout(),
		maxRetries:   o.cfg.MaxRetries,
		retryCfg:     o.retryCfg,
		breaker:      o.breaker,
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, o.cfg.OrchestratorTimeout())
	defer cancel()

	sem := semaphore.NewWeighted(int64(maxInt(1, o.cfg.Parallelism)))

	var (
		mu      sync.Mutex
		results []core.ReviewResult
		wg      sync.WaitGroup
	)

	for _, agentCfg := range req.Agents {
		wg.Add(1)
		go func(agentCfg core.AgentConfig) {
			defer wg.Done()
			agentResults := o.runAgentTask(deadlineCtx, sem, agentCfg, req.Target, passes, rc)
			mu.Lock()
			results = append(results, agentResults...)
			mu.Unlock()
		}(agentCfg)
	}
	wg.Wait()

	succeeded, failed := countOutcomes(results)
	o.logger.Info("review run complete", "succeeded", succeeded, "failed", failed)

	if passes > 1 {
		return dedup.Dedupe(results)
	}
	return results
}

// runAgentTask implements one agent's state machine: acquire a permit, run
// its K passes under a total time budget, checkpoint, release.
func (o *Orchestrator) runAgentTask(
	ctx context.Context,
	sem *semaphore.Weighted,
	agentCfg core.AgentConfig,
	target core.Target,
	passes int,
	rc *reviewContext,
) []core.ReviewResult {
	if err := sem.Acquire(ctx, 1); err != nil {
		return interruptedResults(agentCfg, target, passes)
	}
	defer sem.Release(1)

	passTimeout := o.cfg.AgentTimeout() * time.Duration(o.cfg.MaxRetries+1)
	totalBudget := passTimeout * time.Duration(maxInt(1, passes))

	taskCtx, cancel := context.WithTimeout(ctx, totalBudget)
	defer cancel()

	resultCh := make(chan []core.ReviewResult, 1)
	go func() {
		resultCh <- rc.reviewPasses(taskCtx, agentCfg, target, passes)
	}()

	var agentResults []core.ReviewResult
	select {
	case agentResults = <-resultCh:
	case <-taskCtx.Done():
		agentResults = timedOutResults(agentCfg, target, passes, totalBudget)
	}

	o.checkpoint.Write(target.DisplayName(), agentResults)
	return agentResults
}

func (o *Orchestrator) collectSource(target core.Target) core.SourceBundle {
	if !target.IsLocal() {
		return core.SourceBundle{}
	}
	bundle, err := o.collector.Collect(target.LocalDir())
	if err != nil {
		o.logger.Warn("local source collection failed", "dir", target.LocalDir(), "error", err)
		return core.SourceBundle{}
	}
	return bundle
}

func interruptedResults(agentCfg core.AgentConfig, target core.Target, passes int) []core.ReviewResult {
	results := make([]core.ReviewResult, passes)
	for i := range results {
		results[i] = core.ReviewResult{
			AgentConfig:   agentCfg,
			TargetDisplay: target.DisplayName(),
			Success:       false,
			ErrorMessage:  "interrupted before a scheduling permit was acquired",
			Timestamp:     time.Now(),
		}
	}
	return results
}

func timedOutResults(agentCfg core.AgentConfig, target core.Target, passes int, budget time.Duration) []core.ReviewResult {
	msg := fmt.Sprintf("review timed out after %d minutes", int(budget.Round(time.Minute)/time.Minute))
	results := make([]core.ReviewResult, passes)
	for i := range results {
		results[i] = core.ReviewResult{
			AgentConfig:   agentCfg,
			TargetDisplay: target.DisplayName(),
			Success:       false,
			ErrorMessage:  msg,
			Timestamp:     time.Now(),
		}
	}
	return results
}

func countOutcomes(results []core.ReviewResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
