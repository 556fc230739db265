package core

import "context"

// MCPServerConfig is an opaque per-session configuration blob forwarded to
// the LLM client. The core never inspects its contents.
type MCPServerConfig map[string]any

// SessionOptions carries per-send options: reasoning-effort hints and
// instruction text assembled by the review context.
type SessionOptions struct {
	Prompt          string
	ReasoningEffort  string
	IdleTimeout      int64 // milliseconds; 0 disables idle-timeout side channel
}

// Response is the LLM client's reply to a single Send call. The core only
// ever looks at Content; any richer structure is the collaborator's concern.
type Response struct {
	Content string
}

// Session represents one LLM conversation tied to a single agent task. A
// Session is owned by exactly one goroutine for its lifetime.
type Session interface {
	// Send submits a prompt and blocks for a response, bounded by the
	// caller's context deadline. The idle-timeout side channel (no output
	// for IdleTimeout) is the collaborator's responsibility to enforce and
	// surface as a context-deadline-like error.
	Send(ctx context.Context, opts SessionOptions) (Response, error)

	// Close releases the session's resources. Idempotent.
	Close() error
}

// Client is the collaborator boundary between the core engine and the LLM
// provider. The core consumes exactly this surface: create a session bound
// to a model/agent, then send prompts through it.
type Client interface {
	// CreateSession opens a new Session scoped to model, with the given
	// system-prompt text and MCP server configuration. Bounded by ctx.
	CreateSession(ctx context.Context, model, systemPrompt string, mcpServers MCPServerConfig) (Session, error)
}
