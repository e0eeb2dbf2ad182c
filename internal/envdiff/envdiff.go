// Package envdiff implements the EnvVarDiffer component (spec.md §4.4):
// given saved env-var snapshots and the current process environment,
// classifies each file/key-name as env-affected.
package envdiff

import (
	"github.com/anthropics/replan/internal/env"
	"github.com/anthropics/replan/internal/manifest"
)

// Result is the EnvVarDiffer's output.
type Result struct {
	// Deleted is the set of saved env-var names no longer set (and not
	// protected by the default placeholder sentinel). Removed from the
	// manifest's env-var table by the caller after Diff returns.
	Deleted map[string]struct{}

	// Changed is the set of env-var names the planner must cascade on:
	// names with a different current value, *and* deleted names (a
	// deleted var's dependents must still be re-parsed — see
	// SPEC_FULL.md "Supplemented features" item 2).
	Changed map[string]struct{}

	// SourceFiles is the set of non-schema file_ids whose EnvVars
	// intersects Changed.
	SourceFiles map[string]struct{}

	// SchemaFiles maps schema file_id -> section -> ordered list of
	// element names whose recorded env vars intersect Changed.
	SchemaFiles map[string]map[manifest.SchemaSection][]string
}

func intersects(names map[string]struct{}, changed map[string]struct{}) bool {
	for n := range names {
		if _, ok := changed[n]; ok {
			return true
		}
	}
	return false
}

// Diff compares savedVars (the manifest's persisted name->value table)
// against the live process environment via accessor, then walks files
// to find which ones are env-affected.
func Diff(savedVars map[string]string, accessor env.Accessor, files map[string]*manifest.SourceFile) *Result {
	res := &Result{
		Deleted:     make(map[string]struct{}),
		Changed:     make(map[string]struct{}),
		SourceFiles: make(map[string]struct{}),
		SchemaFiles: make(map[string]map[manifest.SchemaSection][]string),
	}

	for name, savedValue := range savedVars {
		current, ok := accessor.Lookup(name)
		switch {
		case !ok && savedValue == manifest.DefaultEnvPlaceholder:
			// unchanged: still defaulted, nothing to do.
		case !ok:
			// Deleted. Also cascades as changed, matching the original
			// implementation's dual classification (SPEC_FULL.md
			// "Supplemented features" item 2).
			res.Deleted[name] = struct{}{}
			res.Changed[name] = struct{}{}
		case current != savedValue:
			res.Changed[name] = struct{}{}
		}
	}

	// Iterate a snapshot of file_ids; files is itself a snapshot input
	// from the caller, never mutated here.
	for fileID, sf := range files {
		if sf.Kind == manifest.KindFixture {
			continue
		}
		if sf.Kind == manifest.KindSchema {
			if sf.Schema == nil {
				continue
			}
			for section, byName := range sf.Schema.EnvVars {
				for elemName, vars := range byName {
					if intersects(vars, res.Changed) {
						bySection, ok := res.SchemaFiles[fileID]
						if !ok {
							bySection = make(map[manifest.SchemaSection][]string)
							res.SchemaFiles[fileID] = bySection
						}
						bySection[section] = appendUnique(bySection[section], elemName)
					}
				}
			}
			continue
		}
		if intersects(sf.EnvVars, res.Changed) {
			res.SourceFiles[fileID] = struct{}{}
		}
	}

	return res
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}
