package invalidate

import (
	"github.com/anthropics/replan/internal/manifest"
	"github.com/anthropics/replan/internal/manifest/yamlkit"
)

// gatherMacroReferrers performs the macro-calls-macro fan-out walk over
// macro_child_map: every direct referrer of uid is collected, and any
// referrer that is itself a macro is expanded in turn, with a visited
// set guarding against cycles (spec.md §4.3.3). Grounded on the
// teacher's graph.Graph adjacency-walk shape (internal/graph/graph.go's
// Predecessors over ReverseEdges), generalized to a recursive,
// cycle-safe multi-hop walk since macro_child_map is exactly one
// ReverseEdges layer.
func (e *Engine) gatherMacroReferrers(uid string) []string {
	mcm := e.manifest.MacroChildMap()
	visited := make(map[string]struct{})
	var collected []string

	var walk func(string)
	walk = func(id string) {
		for referrer := range mcm[id] {
			if _, seen := visited[referrer]; seen {
				continue
			}
			visited[referrer] = struct{}{}
			collected = append(collected, referrer)
			if _, kind, ok := e.manifest.Lookup(referrer); ok && kind == manifest.EntryMacro {
				walk(referrer)
			}
		}
	}
	walk(uid)
	return collected
}

// handleMacroFileLinks implements spec.md §4.3.3's handle_macro_file_links:
// for every macro sf currently defines, reschedule its referrers, pop
// the macro itself from the saved manifest, and — if it carried a
// schema patch (a documentation overlay) — preserve that patch back
// into its schema file. Used both ahead of adopting a fresh copy of sf
// (update path) and ahead of removing sf's macros outright (delete
// path, via deleteMacroFile): in both cases the old macro entries must
// not survive, per partial.py's handle_macro_file_links popping them
// unconditionally.
func (e *Engine) handleMacroFileLinks(sf *manifest.SourceFile, followReferences bool) error {
	if sf.SQL == nil {
		return nil
	}
	for _, macroUID := range sf.SQL.Macros.Items() {
		entry, ok := e.manifest.Macros[macroUID]
		if !ok {
			continue
		}
		delete(e.manifest.Macros, macroUID)

		var referrers []string
		if followReferences {
			referrers = e.gatherMacroReferrers(macroUID)
		} else {
			for r := range e.manifest.MacroChildMap()[macroUID] {
				referrers = append(referrers, r)
			}
		}
		if err := e.scheduleNodesForParsing(referrers); err != nil {
			return err
		}

		if entry.PatchPath != "" {
			if err := e.preserveMacroPatch(entry.PatchPath, entry.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// preserveMacroPatch implements spec.md §4.3.3 / partial.py's
// handle_macro_file_links patch-reapplication branch (lines 536-545):
// the macro named name has just been popped, but its documentation
// overlay lives in the schema file at patchPath, which may be untouched
// this run. Re-seed the overlay into that schema file's pending
// "macros" section (new_patch=false) and re-enqueue the schema file so
// the next real parse reapplies it to whatever macro comes back.
func (e *Engine) preserveMacroPatch(patchPath, name string) error {
	file, ok := e.manifest.Files[patchPath]
	if !ok || file.Schema == nil {
		return nil
	}
	elem, _ := yamlkit.FindByName(file.Schema.Section(manifest.SectionMacros), name)
	if elem == nil {
		return nil
	}
	return e.mergePatch(file.Schema, manifest.SectionMacros, elem, false)
}

// checkForSpecialDeletedMacros sets deletedSpecialOverrideMacro when a
// macro outside the builtin package shadows one of the six reserved
// override-macro names (spec.md §4.3.3, §6): deleting it changes
// dispatch behavior for every caller, so the planner bails out to a
// full parse instead of reasoning about the fan-out.
func (e *Engine) checkForSpecialDeletedMacros(uid string) {
	if uidPackage(uid) == manifest.BuiltinPackage {
		return
	}
	if manifest.IsSpecialOverrideMacro(uidLocalName(uid)) {
		e.deletedSpecialOverrideMacro = true
	}
}

// deleteMacroFile implements spec.md §4.3.3's delete_macro_file: check
// the override-macro bailout for every macro uid sf lists (the check
// reads only the uid's package and local name), then let
// handleMacroFileLinks reschedule referrers, pop each macro, and
// preserve any schema patch.
func (e *Engine) deleteMacroFile(sf *manifest.SourceFile, followReferences bool) error {
	if sf.SQL == nil {
		return nil
	}
	for _, macroUID := range sf.SQL.Macros.Items() {
		e.checkForSpecialDeletedMacros(macroUID)
	}
	return e.handleMacroFileLinks(sf, followReferences)
}
