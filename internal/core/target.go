// Package core defines the essential types and collaborator interfaces that
// form the backbone of the review engine. These types are deliberately
// abstract so the orchestrator, dedup and collector packages can be composed
// and tested independently of any concrete LLM client.
package core

import "fmt"

// Target is the tagged variant the engine reviews: either a remote GitHub
// repository handle or a local directory tree. A Target is immutable once
// constructed; the only observable derived attribute is DisplayName.
type Target struct {
	kind     targetKind
	ownerRepo string
	localDir  string
}

type targetKind int

const (
	targetKindGitHub targetKind = iota
	targetKindLocal
)

// NewGitHubTarget constructs a Target pointing at a remote "owner/repo" handle.
func NewGitHubTarget(ownerRepo string) Target {
	return Target{kind: targetKindGitHub, ownerRepo: ownerRepo}
}

// NewLocalTarget constructs a Target pointing at an absolute local directory.
func NewLocalTarget(absoluteDirectory string) Target {
	return Target{kind: targetKindLocal, localDir: absoluteDirectory}
}

// IsLocal reports whether this target is a local directory tree.
func (t Target) IsLocal() bool { return t.kind == targetKindLocal }

// IsGitHub reports whether this target is a remote GitHub handle.
func (t Target) IsGitHub() bool { return t.kind == targetKindGitHub }

// LocalDir returns the absolute directory for a local target, or "" otherwise.
func (t Target) LocalDir() string { return t.localDir }

// OwnerRepo returns the "owner/repo" handle for a GitHub target, or "" otherwise.
func (t Target) OwnerRepo() string { return t.ownerRepo }

// DisplayName is the single observable attribute of a Target: a
// human-readable identifier used in prompts, reports and checkpoint file
// names. It is the raw "owner/repo" handle or absolute directory, so it may
// contain path separators; the checkpoint writer sanitizes it before using
// it in a file name.
func (t Target) DisplayName() string {
	switch t.kind {
	case targetKindGitHub:
		return t.ownerRepo
	case targetKindLocal:
		return t.localDir
	default:
		return fmt.Sprintf("unknown-target-%d", t.kind)
	}
}
