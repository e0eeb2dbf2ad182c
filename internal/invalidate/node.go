package invalidate

import (
	"github.com/anthropics/replan/internal/events"
	"github.com/anthropics/replan/internal/manifest"
	"github.com/anthropics/replan/internal/manifest/yamlkit"
)

// detachPatch removes entry's uid from its owning schema file's
// NodePatches set and clears the ownership fields, the mirror image of
// mergePatch's adoption (spec.md §3.3 invariant).
func (e *Engine) detachPatch(entry *manifest.Entry) {
	if entry.PatchPath == "" {
		return
	}
	if sf, ok := e.manifest.Files[entry.PatchPath]; ok && sf.Schema != nil {
		sf.Schema.NodePatches.Remove(entry.UniqueID)
	}
	entry.PatchPath = ""
	entry.OwningSection = ""
}

// removeNodeAssociations detaches uid from its owning schema patch (if
// any) and removes it from whichever table currently holds it — the
// primary Nodes table, or a Disabled shadow scoped to file — per
// spec.md §4.3.2's remove_node. If the removed entry carried a
// patch_path, the patch is preserved back into its schema file (spec.md
// §4.3.2 step 2) and every remaining disabled shadow sharing uid has
// its now-dangling patch_path cleared (step 3).
func (e *Engine) removeNodeAssociations(file *manifest.SourceFile, uid string) ([]*manifest.Entry, error) {
	if entry, _, ok := e.manifest.Lookup(uid); ok {
		patchPath, section, name := entry.PatchPath, entry.OwningSection, entry.Name
		e.detachPatch(entry)
		e.manifest.Pop(uid)
		if patchPath != "" {
			if err := e.preserveNodePatch(patchPath, section, name); err != nil {
				return nil, err
			}
			e.clearDisabledShadowPatches(uid)
		}
		return []*manifest.Entry{entry}, nil
	}

	shadows := e.manifest.Disabled[uid]
	var kept, removed []*manifest.Entry
	var patchPath, name string
	var section manifest.SchemaSection
	for _, shadow := range shadows {
		if shadow.FileID != file.FileID {
			kept = append(kept, shadow)
			continue
		}
		if shadow.PatchPath != "" {
			patchPath, section, name = shadow.PatchPath, shadow.OwningSection, shadow.Name
		}
		e.detachPatch(shadow)
		removed = append(removed, shadow)
	}
	if len(kept) == 0 {
		delete(e.manifest.Disabled, uid)
	} else {
		e.manifest.Disabled[uid] = kept
	}
	if patchPath != "" {
		if err := e.preserveNodePatch(patchPath, section, name); err != nil {
			return nil, err
		}
		for _, k := range kept {
			k.PatchPath = ""
			k.OwningSection = ""
		}
	}
	return removed, nil
}

// preserveNodePatch implements spec.md §4.3.2 step 2 / partial.py's
// remove_node_in_saved reapply branch: the node carrying (patchPath,
// section, name) has just been removed from the saved manifest, but its
// patching schema file may be untouched this run and would otherwise
// lose the patch entirely. Re-seed it into that schema file's pending
// section (new_patch=false: don't clobber an already-scheduled patch)
// and re-enqueue the schema file so the next real parse reapplies it to
// whatever node comes back. Called only after the node itself has
// already been detached and popped, so this can never re-discover and
// reschedule the very node being removed.
func (e *Engine) preserveNodePatch(patchPath string, section manifest.SchemaSection, name string) error {
	file, ok := e.manifest.Files[patchPath]
	if !ok || file.Schema == nil {
		return nil
	}
	elem, _ := yamlkit.FindByName(file.Schema.Section(section), name)
	if elem == nil {
		return nil
	}
	return e.mergePatch(file.Schema, section, elem, false)
}

// clearDisabledShadowPatches clears patch_path/owning_section on every
// disabled shadow still registered under uid, mirroring
// remove_node_in_saved's trailing loop over self.saved_manifest.disabled
// (partial.py lines 371-375): once uid's patch has been reapplied
// elsewhere, any other shadow still pointing at it would otherwise carry
// a dangling link.
func (e *Engine) clearDisabledShadowPatches(uid string) {
	for _, shadow := range e.manifest.Disabled[uid] {
		shadow.PatchPath = ""
		shadow.OwningSection = ""
	}
}

// removeNodeInSaved implements spec.md §4.3.2's remove_node: detach and
// remove uid wherever it currently lives. Both callers (delete_from_saved
// and update_mssat_in_saved) cascade to the node's referrers separately
// via scheduleNodesForParsing right after calling this.
func (e *Engine) removeNodeInSaved(file *manifest.SourceFile, uid string) error {
	_, err := e.removeNodeAssociations(file, uid)
	return err
}

// scheduleNodesForParsing implements spec.md §4.3.4's schedule_nodes:
// dispatch each referrer uid by its current EntryKind rather than by
// parsing its unique_id, continuing the tagged-union convention spec.md
// §9 asks for. A uid already popped from the manifest (Lookup fails) is
// silently skipped — it has nothing left to reparse.
func (e *Engine) scheduleNodesForParsing(uids []string) error {
	for _, uid := range uids {
		entry, kind, ok := e.manifest.Lookup(uid)
		if !ok {
			continue
		}
		switch kind {
		case manifest.EntryNode:
			if entry.Test == manifest.TestGeneric {
				if err := e.scheduleSchemaOwnedReferrer(entry); err != nil {
					return err
				}
				continue
			}
			if err := e.scheduleMssatReferrer(entry); err != nil {
				return err
			}
		case manifest.EntryMacro:
			if err := e.scheduleMacroReferrer(entry); err != nil {
				return err
			}
		case manifest.EntrySource, manifest.EntryExposure, manifest.EntryMetric,
			manifest.EntryGroup, manifest.EntrySemanticModel, manifest.EntrySavedQuery,
			manifest.EntryUnitTest:
			if err := e.scheduleSchemaOwnedReferrer(entry); err != nil {
				return err
			}
		default:
			// Doc and Fixture entries are never referrers: nothing
			// calls ref()/source()/metric() on them, so there is
			// nothing to cascade.
		}
	}
	return nil
}

// scheduleMssatReferrer reschedules the mssat file owning entry — the
// same remove-and-readopt sequence update_mssat_in_saved already
// performs, since "a referrer needs reparsing" and "a changed file
// needs reparsing" converge on identical saved-manifest surgery.
func (e *Engine) scheduleMssatReferrer(entry *manifest.Entry) error {
	if e.alreadyScheduledForParsing(entry.FileID) {
		return nil
	}
	file, ok := e.manifest.Files[entry.FileID]
	if !ok {
		return nil
	}
	return e.updateMssatInSaved(file)
}

// scheduleMacroReferrer mirrors scheduleMssatReferrer for a macro
// referrer, delegating to update_macro_in_saved's existing sequence.
func (e *Engine) scheduleMacroReferrer(entry *manifest.Entry) error {
	if e.alreadyScheduledForParsing(entry.FileID) {
		return nil
	}
	file, ok := e.manifest.Files[entry.FileID]
	if !ok {
		return nil
	}
	return e.updateMacroInSaved(file)
}

// scheduleSchemaOwnedReferrer reschedules a referrer whose definition
// lives entirely inside a schema file — a source, exposure, metric,
// group, semantic_model, saved_query, unit_test, or generic test
// instance — by touching that schema file's patch state.
func (e *Engine) scheduleSchemaOwnedReferrer(entry *manifest.Entry) error {
	return e.touchSchemaPatch(entry)
}

// touchSchemaPatch ensures entry's owning schema file is enqueued for
// reparsing and that its pp_dict already carries the current element
// for entry's section/name, so the next real parse picks it up without
// depending on the on-disk diff finding it "changed" a second time.
func (e *Engine) touchSchemaPatch(entry *manifest.Entry) error {
	schemaFileID := entry.PatchPath
	if schemaFileID == "" {
		schemaFileID = entry.FileID
	}
	file, ok := e.manifest.Files[schemaFileID]
	if !ok || file.Schema == nil {
		return nil
	}
	sf := file.Schema

	if entry.OwningSection != "" {
		if elem, _ := yamlkit.FindByName(sf.Section(entry.OwningSection), entry.Name); elem != nil {
			if _, idx := yamlkit.FindByName(sf.PendingSection(entry.OwningSection), entry.Name); idx < 0 {
				sf.PPDict[entry.OwningSection] = append(sf.PPDict[entry.OwningSection], yamlkit.Clone(elem))
			}
		}
	}

	if e.alreadyScheduledForParsing(file.FileID) {
		return nil
	}
	return e.enqueueFile(file, events.OpUpdated)
}
