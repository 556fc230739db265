// Package agentfile loads core.AgentConfig values from small YAML files.
// It deliberately does not parse markdown frontmatter or skill files; each
// agent is one flat YAML document.
package agentfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/review-engine/internal/core"
)

// document mirrors core.AgentConfig's shape for YAML unmarshalling; kept
// separate so the core package stays free of struct tags.
type document struct {
	Name            string   `yaml:"name"`
	DisplayName     string   `yaml:"display_name"`
	Model           string   `yaml:"model"`
	SystemPrompt    string   `yaml:"system_prompt"`
	InstructionText string   `yaml:"instructions"`
	OutputTemplate  string   `yaml:"output_template"`
	FocusAreas      []string `yaml:"focus_areas"`
	Skills          []string `yaml:"skills"`
}

// Load reads a single agent definition from path.
func Load(path string) (core.AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.AgentConfig{}, fmt.Errorf("reading agent file %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.AgentConfig{}, fmt.Errorf("parsing agent file %s: %w", path, err)
	}
	if strings.TrimSpace(doc.Name) == "" {
		return core.AgentConfig{}, fmt.Errorf("agent file %s: name is required", path)
	}

	return core.AgentConfig{
		Name:            doc.Name,
		DisplayName:     doc.DisplayName,
		Model:           doc.Model,
		SystemPrompt:    doc.SystemPrompt,
		InstructionText: doc.InstructionText,
		OutputTemplate:  doc.OutputTemplate,
		FocusAreas:      doc.FocusAreas,
		Skills:          doc.Skills,
	}, nil
}

// LoadDir reads every *.yaml/*.yml file directly under dir (non-recursive)
// as an agent definition, sorted by filename for a deterministic run order.
func LoadDir(dir string) ([]core.AgentConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading agent directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	agents := make([]core.AgentConfig, 0, len(names))
	for _, name := range names {
		agent, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}
