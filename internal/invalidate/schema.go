package invalidate

import (
	"fmt"

	"github.com/anthropics/replan/internal/envdiff"
	"github.com/anthropics/replan/internal/events"
	"github.com/anthropics/replan/internal/manifest"
	"github.com/anthropics/replan/internal/manifest/yamlkit"
	"github.com/anthropics/replan/internal/schemadiff"
)

// handleAddedSchemaFile implements spec.md §4.3.1's
// handle_added_schema_file: a brand-new schema file has nothing to diff
// against, so every section's on-disk elements are seeded into pp_dict
// wholesale — the next real parse processes all of them.
func (e *Engine) handleAddedSchemaFile(sf *manifest.SchemaFile) {
	for _, section := range manifest.AllSections {
		sf.PPDict[section] = yamlkit.CloneList(sf.DictFromYAML[section])
	}
}

// isMssaSection reports whether section is one of the four sections
// sharing the delete_schema_mssa_links code path (spec.md §4.3.5).
func isMssaSection(section manifest.SchemaSection) bool {
	for _, s := range manifest.MSSASections {
		if s == section {
			return true
		}
	}
	return false
}

// findPatchedEntry locates the node currently patched by sf under
// (section, name) — the uid is found by scanning sf.NodePatches rather
// than by parsing it out of a unique_id string (spec.md §9's tagged-
// union/closed-enum dispatch convention, extended to element lookup).
func (e *Engine) findPatchedEntry(sf *manifest.SchemaFile, section manifest.SchemaSection, name string) *manifest.Entry {
	for _, uid := range sf.NodePatches.Items() {
		if entry, _, ok := e.manifest.Lookup(uid); ok && entry.Name == name && entry.OwningSection == section {
			return entry
		}
	}
	return nil
}

// schemaOwnedKindAndSet maps a schema-owned section to its EntryKind
// and the SchemaFile field tracking its member names. Returns ok=false
// for macros (handled by mergeMacroPatch, since a macro's FileID is its
// own sql file, not the patching schema file) and for the four mssa
// sections plus data_tests (handled by mergeMssaPatch instead).
func schemaOwnedKindAndSet(sf *manifest.SchemaFile, section manifest.SchemaSection) (manifest.EntryKind, map[string]struct{}, bool) {
	switch section {
	case manifest.SectionSources:
		return manifest.EntrySource, sf.Sources, true
	case manifest.SectionExposures:
		return manifest.EntryExposure, sf.Exposures, true
	case manifest.SectionMetrics:
		return manifest.EntryMetric, sf.Metrics, true
	case manifest.SectionGroups:
		return manifest.EntryGroup, sf.Groups, true
	case manifest.SectionSemanticModels:
		return manifest.EntrySemanticModel, sf.SemanticModels, true
	case manifest.SectionSavedQueries:
		return manifest.EntrySavedQuery, sf.SavedQueries, true
	case manifest.SectionUnitTests:
		return manifest.EntryUnitTest, sf.UnitTests, true
	default:
		return 0, nil, false
	}
}

// findSchemaOwnedEntry locates the entry sf defines under (kind,
// section, name).
func (e *Engine) findSchemaOwnedEntry(sf *manifest.SchemaFile, kind manifest.EntryKind, section manifest.SchemaSection, name string) *manifest.Entry {
	for _, entry := range e.manifest.Table(kind) {
		if entry.FileID == sf.FileID && entry.OwningSection == section && entry.Name == name {
			return entry
		}
	}
	return nil
}

// mergePatch implements spec.md §4.3.8's merge_patch: fold elem into
// sf's pp_dict for section (replacing an already-pending element of the
// same name only when newPatch says this occurrence is the new patch's
// source), clear its stale env/unrendered bookkeeping, route to the
// mssa or schema-owned adoption path, then enqueue sf. newPatch=false
// at most call sites (an element already scheduled for reparsing keeps
// whichever patch got there first); the schema-file-change path always
// passes true, since the schema file itself is unambiguously the new
// patch's source there.
func (e *Engine) mergePatch(sf *manifest.SchemaFile, section manifest.SchemaSection, elem yamlkit.Element, newPatch bool) error {
	name, ok := yamlkit.Name(elem)
	if !ok {
		return nil
	}

	pending := sf.PendingSection(section)
	if _, idx := yamlkit.FindByName(pending, name); idx >= 0 {
		if newPatch {
			pending[idx] = yamlkit.Clone(elem)
		}
	} else {
		pending = append(pending, yamlkit.Clone(elem))
	}
	sf.PPDict[section] = pending
	sf.ClearEnvAndUnrendered(section, name)

	if section == manifest.SectionSources && yamlkit.HasField(elem, "overrides") {
		if err := e.removeSourceOverrideTarget(elem); err != nil {
			return err
		}
	}

	var dispatchErr error
	switch {
	case section == manifest.SectionMacros:
		dispatchErr = e.mergeMacroPatch(sf, name)
	case isMssaSection(section) || section == manifest.SectionDataTests:
		dispatchErr = e.mergeMssaPatch(sf, section, name)
	default:
		dispatchErr = e.mergeSchemaOwnedPatch(sf, section, name)
	}
	if dispatchErr != nil {
		return dispatchErr
	}

	// The dispatch above only enqueues sf when it finds an owning entry
	// to cascade from; a patch arriving before its node/macro/entity has
	// been parsed (spec.md §7) must still land sf in the plan so the
	// next real parse sees it.
	return e.enqueueSchemaFile(sf)
}

// enqueueSchemaFile enqueues the SourceFile wrapping sf, a no-op if sf
// is no longer tracked in the saved manifest's file map.
func (e *Engine) enqueueSchemaFile(sf *manifest.SchemaFile) error {
	file, ok := e.manifest.Files[sf.FileID]
	if !ok {
		return nil
	}
	return e.enqueueFile(file, events.OpUpdated)
}

// mergeMssaPatch adopts a changed/added patch against an mssat node or
// generic test instance (spec.md §4.3.8).
func (e *Engine) mergeMssaPatch(sf *manifest.SchemaFile, section manifest.SchemaSection, name string) error {
	entry := e.findPatchedEntry(sf, section, name)
	if entry == nil {
		// A patch arriving before its node has been parsed is tolerated
		// (spec.md §7): the real parser resolves it on the scheduled run.
		return nil
	}
	entry.PatchPath = sf.FileID
	entry.OwningSection = section
	sf.NodePatches.Add(entry.UniqueID)

	ids := append([]string{entry.UniqueID}, referrersOf(e.manifest, entry.UniqueID)...)
	return e.scheduleNodesForParsing(ids)
}

// mergeSchemaOwnedPatch adopts a changed/added patch against a
// schema-owned entity (source, exposure, metric, group, semantic_model,
// saved_query, unit_test).
func (e *Engine) mergeSchemaOwnedPatch(sf *manifest.SchemaFile, section manifest.SchemaSection, name string) error {
	kind, idSet, ok := schemaOwnedKindAndSet(sf, section)
	if !ok {
		return nil
	}
	idSet[name] = struct{}{}

	entry := e.findSchemaOwnedEntry(sf, kind, section, name)
	if entry == nil {
		return nil
	}
	ids := append([]string{entry.UniqueID}, referrersOf(e.manifest, entry.UniqueID)...)
	return e.scheduleNodesForParsing(ids)
}

// mergeMacroPatch adopts a changed/added schema-level documentation
// overlay against a macro. A macro's FileID always names its own sql
// file, never the patching schema file, so the owning entry is found
// by name alone across the Macros table.
func (e *Engine) mergeMacroPatch(sf *manifest.SchemaFile, name string) error {
	sf.MacroPatches[name] = struct{}{}
	for _, entry := range e.manifest.Macros {
		if entry.Name == name {
			entry.PatchPath = sf.FileID
			entry.OwningSection = manifest.SectionMacros
			ids := append([]string{entry.UniqueID}, referrersOf(e.manifest, entry.UniqueID)...)
			return e.scheduleNodesForParsing(ids)
		}
	}
	return nil
}

// changeSchemaFile implements spec.md §4.3.5/§4.3.8's handling of a
// changed schema file: per section, diff the saved and fresh element
// lists (folding in env-affected elements that didn't otherwise
// change), delete what's gone, and merge_patch what changed or arrived.
func (e *Engine) changeSchemaFile(fileID string, env *envdiff.Result) error {
	saved, ok := e.manifest.Files[fileID]
	if !ok || saved.Schema == nil {
		return fmt.Errorf("%w: %s listed as changed schema file but missing/non-schema in saved manifest", ErrInconsistentManifest, fileID)
	}
	freshFile, ok := e.newFiles[fileID]
	if !ok || freshFile.Schema == nil {
		return fmt.Errorf("%w: %s listed as changed but absent from new file map", ErrInconsistentManifest, fileID)
	}
	savedSchema := saved.Schema
	freshSchema := freshFile.Schema.Clone()

	envNames := env.SchemaFiles[fileID]

	for _, section := range manifest.AllSections {
		diff := schemadiff.Diff(savedSchema.Section(section), freshSchema.Section(section))

		for _, name := range envNames[section] {
			if _, already := diff.ChangedOrDeletedNames[name]; already {
				continue
			}
			if elem, _ := yamlkit.FindByName(freshSchema.Section(section), name); elem != nil {
				diff.Changed = append(diff.Changed, yamlkit.Clone(elem))
				diff.ChangedOrDeletedNames[name] = struct{}{}
			}
		}

		for _, elem := range diff.Deleted {
			if err := e.deleteSchemaSectionElement(savedSchema, section, elem); err != nil {
				return err
			}
		}
		for _, elem := range diff.Changed {
			if err := e.mergePatch(savedSchema, section, elem, true); err != nil {
				return err
			}
		}
		for _, elem := range diff.Added {
			if err := e.mergePatch(savedSchema, section, elem, true); err != nil {
				return err
			}
		}
	}

	savedSchema.Contents = freshSchema.Contents
	savedSchema.DFY = freshSchema.DFY
	savedSchema.DictFromYAML = freshSchema.DictFromYAML
	saved.Checksum = freshFile.Checksum

	return e.enqueueFile(saved, events.OpUpdated)
}
