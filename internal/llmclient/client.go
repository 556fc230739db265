// Package llmclient adapts a goframe llms.Model to the core.Client/Session
// collaborator boundary, so cmd/reviewer has a concrete, runnable backend
// without pulling the RAG/vector-store machinery into the review engine.
package llmclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/review-engine/internal/config"
	"github.com/sevigo/review-engine/internal/core"
)

// Client wraps a single goframe model and hands out one Session per
// CreateSession call. Unlike the teacher's RAG service it never touches a
// vector store: review context is assembled entirely by the orchestrator's
// review context, not retrieved here.
type Client struct {
	model  llms.Model
	logger *slog.Logger
}

// New constructs a Client from an already-configured goframe model.
func New(model llms.Model, logger *slog.Logger) *Client {
	return &Client{model: model, logger: logger}
}

// NewFromConfig builds the configured model backend (ollama or gemini) and
// wraps it in a Client.
func NewFromConfig(cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	model, err := buildModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("building LLM backend: %w", err)
	}
	return New(model, logger), nil
}

func buildModel(cfg config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(context.Background(), gemini.WithModel(cfg.Model), gemini.WithAPIKey(cfg.GeminiKey))
	default:
		return ollama.New(ollama.WithServerURL(cfg.OllamaHost), ollama.WithModel(cfg.Model))
	}
}

// CreateSession returns a Session bound to c's underlying model. model and
// mcpServers are accepted for collaborator-interface parity but unused:
// this client serves a single configured backend per process.
func (c *Client) CreateSession(_ context.Context, _ string, systemPrompt string, _ core.MCPServerConfig) (core.Session, error) {
	return &session{model: c.model, systemPrompt: systemPrompt, logger: c.logger}, nil
}

type session struct {
	model        llms.Model
	systemPrompt string
	logger       *slog.Logger
}

// Send renders systemPrompt and opts.Prompt as a single prompt string and
// runs it through the underlying model. opts.IdleTimeout is not separately
// enforced here: goframe's single-shot generation has no streaming side
// channel to watch, so the caller's context deadline is the only bound.
func (s *session) Send(ctx context.Context, opts core.SessionOptions) (core.Response, error) {
	prompt := composePrompt(s.systemPrompt, opts.Prompt)

	content, err := llms.GenerateFromSinglePrompt(ctx, s.model, prompt)
	if err != nil {
		return core.Response{}, fmt.Errorf("generating response: %w", err)
	}
	return core.Response{Content: content}, nil
}

// composePrompt joins the session's system prompt and the per-call prompt
// into the single string goframe's single-shot generation call expects.
func composePrompt(systemPrompt, callPrompt string) string {
	if systemPrompt == "" {
		return callPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(callPrompt)
	return b.String()
}

// Close is a no-op: goframe models are not per-session resources.
func (s *session) Close() error {
	return nil
}
