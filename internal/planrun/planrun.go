// Package planrun wires the four collaborators spec.md §6 names —
// EnvVarDiffer, FileDiffer, the Parser table, and the
// InvalidationEngine — into the single fixed pipeline both the CLI
// (internal/cmd) and the MCP server (internal/mcpserver) drive. Neither
// caller repeats this wiring; they only supply the saved/fresh state
// and an events.Sink.
package planrun

import (
	"github.com/anthropics/replan/internal/env"
	"github.com/anthropics/replan/internal/envdiff"
	"github.com/anthropics/replan/internal/events"
	"github.com/anthropics/replan/internal/filediff"
	"github.com/anthropics/replan/internal/invalidate"
	"github.com/anthropics/replan/internal/manifest"
	"github.com/anthropics/replan/internal/parser"
)

// Result is the outcome of one planning run: the accumulated
// ParsePlan dictionary plus the full-parse bailout signal spec.md
// §4.3.3 requires callers to act on.
type Result struct {
	ProjectParserFiles     map[string]map[parser.Name][]string
	DeletedSpecialOverride bool
}

// Run drives one planning pass over saved/fresh given envVars, using
// accessor to resolve the live environment (env.Process in production,
// env.Static in tests or reproducible CI runs).
func Run(saved *manifest.Manifest, fresh map[string]*manifest.SourceFile, accessor env.Accessor, sink events.Sink) (*Result, error) {
	if sink == nil {
		sink = events.NopSink{}
	}

	envResult := envdiff.Diff(saved.EnvVars, accessor, fresh)

	schemaEnvFiles := make(map[string]struct{}, len(envResult.SchemaFiles))
	for fileID := range envResult.SchemaFiles {
		schemaEnvFiles[fileID] = struct{}{}
	}
	diff := filediff.Diff(saved.Files, fresh, filediff.EnvAffected{
		SourceFiles: envResult.SourceFiles,
		SchemaFiles: schemaEnvFiles,
	})

	for name := range envResult.Deleted {
		delete(saved.EnvVars, name)
	}
	for name, value := range accessorChangedValues(envResult, accessor) {
		saved.EnvVars[name] = value
	}

	table := parser.DefaultTable()
	engine := invalidate.New(saved, fresh, table, sink)

	files, err := engine.Run(diff, envResult)
	if err != nil {
		return nil, err
	}

	return &Result{
		ProjectParserFiles:     files,
		DeletedSpecialOverride: engine.DeletedSpecialOverrideMacro(),
	}, nil
}

// accessorChangedValues re-reads the current value for every changed
// env-var name so the saved snapshot reflects the new value for the
// next run (spec.md §4.4 "the manifest's persisted name->value table").
func accessorChangedValues(envResult *envdiff.Result, accessor env.Accessor) map[string]string {
	out := make(map[string]string, len(envResult.Changed))
	for name := range envResult.Changed {
		if _, deleted := envResult.Deleted[name]; deleted {
			continue
		}
		if v, ok := accessor.Lookup(name); ok {
			out[name] = v
		}
	}
	return out
}
