package manifest

import "github.com/anthropics/replan/internal/fingerprint"

// SourceFile is the tagged union described in spec.md §3.1: common
// fields for every file, plus a payload selected by ParseKind. Exactly
// one of SQL, Schema, Doc, Fixture is non-nil, chosen by Kind — dispatch
// on Kind, never on which payload pointer happens to be set.
type SourceFile struct {
	FileID      string
	Checksum    fingerprint.Checksum
	Kind        ParseKind
	ProjectName string

	// EnvVars is the set of environment-variable names observed while
	// rendering this file, used by EnvVarDiffer. Schema files track
	// env vars per-section-per-element instead; see SchemaFile.EnvVars.
	EnvVars map[string]struct{}

	SQL     *SQLPayload
	Schema  *SchemaFile
	Doc     *DocPayload
	Fixture *FixturePayload
}

// SQLPayload is the payload for Model/Seed/Snapshot/Analysis/
// SingularTest/Macro/GenericTest files.
type SQLPayload struct {
	// Nodes is the ordered set of unique_ids this file produces (for
	// Macro files, this is empty; macro unique_ids live in Macros).
	Nodes *OrderedSet[string]

	// Macros is the ordered set of macro unique_ids this file defines
	// (only populated for Macro-kind files).
	Macros *OrderedSet[string]
}

// DocPayload is the payload for Documentation files.
type DocPayload struct {
	Docs *OrderedSet[string]
}

// FixturePayload is the payload for Fixture files.
type FixturePayload struct {
	Fixture string // the single fixture unique_id this file produces
	// UnitTests lists the unit_test unique_ids that consume this fixture.
	UnitTests *OrderedSet[string]
}

// Clone returns a deep, independent copy of f, per the deep-copy
// ownership rule in spec.md §3.4/§9: the saved manifest and the
// freshly-read file map must never share mutable state.
func (f *SourceFile) Clone() *SourceFile {
	if f == nil {
		return nil
	}
	c := &SourceFile{
		FileID:      f.FileID,
		Checksum:    f.Checksum,
		Kind:        f.Kind,
		ProjectName: f.ProjectName,
	}
	if f.EnvVars != nil {
		c.EnvVars = make(map[string]struct{}, len(f.EnvVars))
		for k := range f.EnvVars {
			c.EnvVars[k] = struct{}{}
		}
	}
	if f.SQL != nil {
		c.SQL = &SQLPayload{Nodes: f.SQL.Nodes.Clone(), Macros: f.SQL.Macros.Clone()}
	}
	if f.Schema != nil {
		c.Schema = f.Schema.Clone()
	}
	if f.Doc != nil {
		c.Doc = &DocPayload{Docs: f.Doc.Docs.Clone()}
	}
	if f.Fixture != nil {
		c.Fixture = &FixturePayload{Fixture: f.Fixture.Fixture, UnitTests: f.Fixture.UnitTests.Clone()}
	}
	return c
}
