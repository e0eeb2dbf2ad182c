package manifest

// reverseIndices holds the four reverse indices named in spec.md §3.2
// (child_map, macro_child_map, group_map, disabled_by_file_id) plus
// the bookkeeping to build each lazily and only once per planner run,
// mirroring the adjacency-map shape of the teacher's
// internal/graph.Graph{Edges, ReverseEdges}.
type reverseIndices struct {
	childMap      map[string]map[string]struct{}
	macroChildMap map[string]map[string]struct{}
	groupMap      map[string]map[string]struct{}
	disabledByFID map[string]map[string]struct{}

	haveChild, haveMacroChild, haveGroup, haveDisabledByFID bool
}

func addEdge(idx map[string]map[string]struct{}, from, to string) {
	set, ok := idx[from]
	if !ok {
		set = make(map[string]struct{})
		idx[from] = set
	}
	set[to] = struct{}{}
}

func (m *Manifest) allEntries() []*Entry {
	var all []*Entry
	tables := []map[string]*Entry{
		m.Nodes, m.Sources, m.Exposures, m.Metrics, m.Groups,
		m.SemanticModels, m.SavedQueries, m.UnitTests, m.Macros, m.Docs, m.Fixtures,
	}
	for _, t := range tables {
		for _, e := range t {
			all = append(all, e)
		}
	}
	return all
}

// ChildMap returns unique_id -> set of dependent unique_ids, the
// reverse of every entry's forward Refs edges. Built lazily, cached
// for the life of this Manifest value until DropIndices is called.
func (m *Manifest) ChildMap() map[string]map[string]struct{} {
	if m.idx.haveChild {
		return m.idx.childMap
	}
	cm := make(map[string]map[string]struct{})
	for _, e := range m.allEntries() {
		for _, target := range e.Refs {
			addEdge(cm, target, e.UniqueID)
		}
	}
	m.idx.childMap = cm
	m.idx.haveChild = true
	return cm
}

// MacroChildMap returns macro_unique_id -> set of unique_ids referring
// to it, the reverse of every entry's MacroCalls edges. Per spec.md
// §3.3, this index is required only when a macro file was changed or
// deleted; callers build it lazily on first need via this method.
func (m *Manifest) MacroChildMap() map[string]map[string]struct{} {
	if m.idx.haveMacroChild {
		return m.idx.macroChildMap
	}
	mcm := make(map[string]map[string]struct{})
	for _, e := range m.allEntries() {
		for _, macroID := range e.MacroCalls {
			addEdge(mcm, macroID, e.UniqueID)
		}
	}
	m.idx.macroChildMap = mcm
	m.idx.haveMacroChild = true
	return mcm
}

// GroupMap returns group_name -> set of member unique_ids.
func (m *Manifest) GroupMap() map[string]map[string]struct{} {
	if m.idx.haveGroup {
		return m.idx.groupMap
	}
	gm := make(map[string]map[string]struct{})
	for _, e := range m.allEntries() {
		if e.Group != "" {
			addEdge(gm, e.Group, e.UniqueID)
		}
	}
	m.idx.groupMap = gm
	m.idx.haveGroup = true
	return gm
}

// DisabledByFileID returns file_id -> set of disabled unique_ids.
func (m *Manifest) DisabledByFileID() map[string]map[string]struct{} {
	if m.idx.haveDisabledByFID {
		return m.idx.disabledByFID
	}
	dbf := make(map[string]map[string]struct{})
	for uid, shadows := range m.Disabled {
		for _, shadow := range shadows {
			addEdge(dbf, shadow.FileID, uid)
		}
	}
	m.idx.disabledByFID = dbf
	m.idx.haveDisabledByFID = true
	return dbf
}
