// Package filediff implements the FileDiffer component (spec.md §4.1):
// a three-way set diff over file IDs, split by parse kind, augmented
// with the EnvVarDiffer's env-affected files.
//
// Grounded on the teacher's internal/store/diff.go (added/modified/
// removed categorization idiom over a DiffChange set) and
// internal/cache/fileindex.go's GetChangedFiles checksum comparison —
// adapted here from a SQL/Dolt row scan to a pure in-memory map diff.
package filediff

import "github.com/anthropics/replan/internal/manifest"

// Result is the FileDiffer's six disjoint file_id sets plus the
// macro-file bailout signal.
type Result struct {
	Added               []string
	Deleted             []string // parse_kind != Schema
	DeletedSchemaFiles  []string // parse_kind == Schema
	Changed             []string // parse_kind != Schema
	ChangedSchemaFiles  []string // parse_kind == Schema
	Unchanged           []string

	// ChangedOrDeletedMacroFile is set if any Macro or GenericTest file
	// appears in Changed or Deleted. When true, the engine demands a
	// built macro_child_map before proceeding.
	ChangedOrDeletedMacroFile bool
}

// SkipParsing reports whether every file-bearing set is empty: if so,
// the planner returns an empty plan without touching the manifest.
func (r *Result) SkipParsing() bool {
	return len(r.Added) == 0 && len(r.Changed) == 0 && len(r.Deleted) == 0 &&
		len(r.ChangedSchemaFiles) == 0 && len(r.DeletedSchemaFiles) == 0
}

// EnvAffected is the subset of EnvVarDiffer's output the FileDiffer
// needs: which file_ids (schema or not) are env-affected. Keeping this
// as a minimal interface avoids filediff importing envdiff, so either
// package can be tested independently.
type EnvAffected struct {
	SourceFiles map[string]struct{}
	SchemaFiles map[string]struct{}
}

// Diff computes the three-way set diff between saved and fresh file
// maps, then augments Changed/ChangedSchemaFiles with env-affected
// files, taking care not to duplicate IDs already present.
func Diff(saved, fresh map[string]*manifest.SourceFile, envAffected EnvAffected) *Result {
	r := &Result{}

	changedSet := make(map[string]struct{})
	changedSchemaSet := make(map[string]struct{})

	for fileID, newFile := range fresh {
		oldFile, existed := saved[fileID]
		if !existed {
			r.Added = append(r.Added, fileID)
			continue
		}
		if oldFile.Checksum.Equal(newFile.Checksum) {
			r.Unchanged = append(r.Unchanged, fileID)
			continue
		}
		if newFile.Kind == manifest.KindSchema {
			r.ChangedSchemaFiles = append(r.ChangedSchemaFiles, fileID)
			changedSchemaSet[fileID] = struct{}{}
		} else {
			r.Changed = append(r.Changed, fileID)
			changedSet[fileID] = struct{}{}
			if newFile.Kind == manifest.KindMacro || newFile.Kind == manifest.KindGenericTest {
				r.ChangedOrDeletedMacroFile = true
			}
		}
	}

	for fileID, oldFile := range saved {
		if _, stillPresent := fresh[fileID]; stillPresent {
			continue
		}
		if oldFile.Kind == manifest.KindSchema {
			r.DeletedSchemaFiles = append(r.DeletedSchemaFiles, fileID)
		} else {
			r.Deleted = append(r.Deleted, fileID)
			if oldFile.Kind == manifest.KindMacro || oldFile.Kind == manifest.KindGenericTest {
				r.ChangedOrDeletedMacroFile = true
			}
		}
	}

	for fileID := range envAffected.SourceFiles {
		if _, already := changedSet[fileID]; already {
			continue
		}
		if isInSet(r.Deleted, fileID) {
			continue
		}
		r.Changed = append(r.Changed, fileID)
		changedSet[fileID] = struct{}{}
	}

	for fileID := range envAffected.SchemaFiles {
		if _, already := changedSchemaSet[fileID]; already {
			continue
		}
		if isInSet(r.DeletedSchemaFiles, fileID) {
			continue
		}
		r.ChangedSchemaFiles = append(r.ChangedSchemaFiles, fileID)
		changedSchemaSet[fileID] = struct{}{}
	}

	// An env-affected file folded into a changed set above leaves Unchanged.
	unchanged := r.Unchanged[:0]
	for _, fileID := range r.Unchanged {
		if _, moved := changedSet[fileID]; moved {
			continue
		}
		if _, moved := changedSchemaSet[fileID]; moved {
			continue
		}
		unchanged = append(unchanged, fileID)
	}
	r.Unchanged = unchanged

	return r
}

func isInSet(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
