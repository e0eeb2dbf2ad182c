// Package planio is the thin CLI/MCP-boundary adapter that reads the
// two YAML snapshots a planning run needs — the saved manifest and the
// freshly observed file map — from disk. Neither cmd/replan nor
// internal/mcpserver know how those snapshots were produced; producing
// them is the external parser's job (spec.md §1 scope line), so this
// package only decodes the wire shape the planner's constructor already
// expects (spec.md §6).
package planio

import (
	"fmt"
	"os"

	"github.com/anthropics/replan/internal/manifest"
	"gopkg.in/yaml.v3"
)

// Input is the on-disk shape a planning run is invoked against: the
// previous run's saved manifest, the current file map a parser would
// hand the planner, and an optional env-var override set.
type Input struct {
	Saved *manifest.Manifest            `yaml:"saved"`
	Fresh map[string]*manifest.SourceFile `yaml:"fresh"`
	// Env, when non-nil, is used instead of the live process
	// environment for this single run — a file-local analogue of
	// config.EnvConfig.Static, useful for reproducing a saved run.
	Env map[string]string `yaml:"env"`
}

// Load reads and decodes an Input snapshot from path.
func Load(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan input: %w", err)
	}
	in := &Input{}
	if err := yaml.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("parsing plan input: %w", err)
	}
	if in.Saved == nil {
		in.Saved = manifest.New()
	}
	if in.Fresh == nil {
		in.Fresh = make(map[string]*manifest.SourceFile)
	}
	return in, nil
}
