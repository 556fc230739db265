package core

// AgentConfig describes a single configured review agent. Name is unique
// within a run and is used as an identity key by the orchestrator, the
// checkpoint writer and the deduplicator's per-agent grouping.
type AgentConfig struct {
	Name            string
	DisplayName     string
	Model           string
	SystemPrompt    string
	InstructionText string
	OutputTemplate  string
	FocusAreas      []string
	Skills          []string
}
