// Package parser defines the Parser table collaborator named in
// spec.md §6: "parse_kind -> parser_name, total over the non-Schema
// kinds". The parser proper — turning a single file's bytes into
// manifest entities — is explicitly out of scope for this module
// (spec.md §1, "described only by interface"); this package only names
// the boundary the planner calls through, mirroring the teacher's
// internal/parser.Language enum + factory shape without vendoring a
// real grammar (see DESIGN.md for why go-tree-sitter was dropped).
package parser

import "github.com/anthropics/replan/internal/manifest"

// Name identifies a parser implementation by name, e.g. "model_parser".
type Name string

// Table maps every non-Schema parse kind to the parser that handles
// it. Total over {Model, Seed, Snapshot, Analysis, SingularTest,
// Macro, GenericTest, Documentation, Fixture} — Schema files are
// consumed directly by the planner's schema-file machinery, not by a
// named parser.
type Table map[manifest.ParseKind]Name

// DefaultTable is the conventional parser naming used by the CLI and
// MCP boundary; callers may supply their own Table to the engine.
func DefaultTable() Table {
	return Table{
		manifest.KindModel:        "model_parser",
		manifest.KindSeed:         "seed_parser",
		manifest.KindSnapshot:     "snapshot_parser",
		manifest.KindAnalysis:     "analysis_parser",
		manifest.KindSingularTest: "singular_test_parser",
		manifest.KindMacro:        "macro_parser",
		manifest.KindGenericTest:  "generic_test_parser",
		manifest.KindDocumentation: "doc_parser",
		manifest.KindFixture:      "fixture_parser",
	}
}

// Lookup returns the parser name for kind, and false if kind has no
// registered parser (e.g. Schema, or a caller-supplied Table that
// doesn't cover every kind — an Inconsistency error per spec.md §7).
func (t Table) Lookup(kind manifest.ParseKind) (Name, bool) {
	n, ok := t[kind]
	return n, ok
}

// IsTotal reports whether t has an entry for every non-Schema kind.
func (t Table) IsTotal() bool {
	for _, k := range []manifest.ParseKind{
		manifest.KindModel, manifest.KindSeed, manifest.KindSnapshot,
		manifest.KindAnalysis, manifest.KindSingularTest, manifest.KindMacro,
		manifest.KindGenericTest, manifest.KindDocumentation, manifest.KindFixture,
	} {
		if _, ok := t[k]; !ok {
			return false
		}
	}
	return true
}
