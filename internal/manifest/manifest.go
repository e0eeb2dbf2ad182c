// Package manifest implements the ManifestStore component: the
// in-memory graph of build objects keyed by unique_id, the file map,
// and its lazily-built reverse indices (spec.md §3.2, §4, component
// table "ManifestStore").
package manifest

// Manifest is the saved_manifest of spec.md §6: every primary table
// keyed by unique_id, the disabled shadow lists, and the file map. It
// does not itself hold the reverse indices as persistent state — those
// are lazily built and cached for the duration of a single planner run
// via ChildMap, MacroChildMap, GroupMap and DisabledByFileID, then
// dropped (spec.md §9).
type Manifest struct {
	Nodes          map[string]*Entry
	Sources        map[string]*Entry
	Exposures      map[string]*Entry
	Metrics        map[string]*Entry
	Groups         map[string]*Entry
	SemanticModels map[string]*Entry
	SavedQueries   map[string]*Entry
	UnitTests      map[string]*Entry
	Macros         map[string]*Entry
	Docs           map[string]*Entry
	Fixtures       map[string]*Entry

	// Disabled maps unique_id -> ordered list of shadow Entries: an
	// object may be disabled in multiple places (spec.md §3.2).
	Disabled map[string][]*Entry

	// Files is the file map: file_id -> SourceFile.
	Files map[string]*SourceFile

	// EnvVars is the persisted env-var snapshot: name -> last observed
	// value. Unlike the reverse indices below, this is not lazily
	// dropped — it is the EnvVarDiffer's input/output state across runs.
	EnvVars map[string]string

	idx reverseIndices
}

// New returns an empty, fully-initialized Manifest.
func New() *Manifest {
	return &Manifest{
		Nodes:          make(map[string]*Entry),
		Sources:        make(map[string]*Entry),
		Exposures:      make(map[string]*Entry),
		Metrics:        make(map[string]*Entry),
		Groups:         make(map[string]*Entry),
		SemanticModels: make(map[string]*Entry),
		SavedQueries:   make(map[string]*Entry),
		UnitTests:      make(map[string]*Entry),
		Macros:         make(map[string]*Entry),
		Docs:           make(map[string]*Entry),
		Fixtures:       make(map[string]*Entry),
		Disabled:       make(map[string][]*Entry),
		Files:          make(map[string]*SourceFile),
		EnvVars:        make(map[string]string),
	}
}

// table returns the primary-table map for kind, or nil for EntryNode's
// siblings that don't apply (callers must already know which map a
// given EntryKind lives in; this helper exists for code that dispatches
// generically across kinds, e.g. the disabled/pop helpers in
// internal/invalidate).
func (m *Manifest) table(kind EntryKind) map[string]*Entry {
	switch kind {
	case EntryNode:
		return m.Nodes
	case EntrySource:
		return m.Sources
	case EntryExposure:
		return m.Exposures
	case EntryMetric:
		return m.Metrics
	case EntryGroup:
		return m.Groups
	case EntrySemanticModel:
		return m.SemanticModels
	case EntrySavedQuery:
		return m.SavedQueries
	case EntryUnitTest:
		return m.UnitTests
	case EntryMacro:
		return m.Macros
	case EntryDoc:
		return m.Docs
	case EntryFixture:
		return m.Fixtures
	default:
		return nil
	}
}

// Table exposes table for external (same-module) callers that need
// kind-generic dispatch, notably internal/invalidate.
func (m *Manifest) Table(kind EntryKind) map[string]*Entry { return m.table(kind) }

// Lookup finds uid in every primary table, returning the entry and
// which table held it.
func (m *Manifest) Lookup(uid string) (*Entry, EntryKind, bool) {
	tables := []EntryKind{
		EntryNode, EntrySource, EntryExposure, EntryMetric, EntryGroup,
		EntrySemanticModel, EntrySavedQuery, EntryUnitTest, EntryMacro,
		EntryDoc, EntryFixture,
	}
	for _, k := range tables {
		if e, ok := m.table(k)[uid]; ok {
			return e, k, true
		}
	}
	return nil, 0, false
}

// Pop removes uid from its primary table (if present) or from the
// disabled shadow list (if present), returning every removed entry.
// Per spec.md §3.3, a unique_id is in exactly one of those places, so
// at most one of the two branches does anything; per spec.md §7,
// popping an absent id is a silent no-op.
func (m *Manifest) Pop(uid string) []*Entry {
	if e, kind, ok := m.Lookup(uid); ok {
		delete(m.table(kind), uid)
		return []*Entry{e}
	}
	if shadows, ok := m.Disabled[uid]; ok {
		delete(m.Disabled, uid)
		return shadows
	}
	return nil
}

// DropIndices discards the cached reverse indices. The InvalidationEngine
// calls this once at the start of a planning run (indices must reflect
// the pre-mutation state the first time they're needed) and again once
// planning completes (they must never leak across runs, per spec.md §9).
func (m *Manifest) DropIndices() {
	m.idx = reverseIndices{}
}
