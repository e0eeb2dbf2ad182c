package invalidate

import (
	"fmt"

	"github.com/anthropics/replan/internal/events"
	"github.com/anthropics/replan/internal/manifest"
	"github.com/anthropics/replan/internal/manifest/yamlkit"
)

// deleteSchemaSectionElement dispatches a deleted schema element to its
// section-specific removal helper (spec.md §4.3.7's delete_schema_*
// family), routed through the section rather than a type switch over
// entity kind.
func (e *Engine) deleteSchemaSectionElement(sf *manifest.SchemaFile, section manifest.SchemaSection, elem yamlkit.Element) error {
	name, ok := yamlkit.Name(elem)
	if !ok {
		return nil
	}
	switch section {
	case manifest.SectionModels, manifest.SectionSeeds, manifest.SectionSnapshots,
		manifest.SectionAnalyses, manifest.SectionDataTests:
		return e.deleteSchemaMssaLinks(sf, section, name)
	case manifest.SectionSources:
		return e.deleteSchemaSource(sf, elem, name)
	case manifest.SectionExposures:
		return e.deleteSchemaExposure(sf, name)
	case manifest.SectionMetrics:
		return e.deleteSchemaMetric(sf, name)
	case manifest.SectionGroups:
		return e.deleteSchemaGroup(sf, name)
	case manifest.SectionSemanticModels:
		return e.deleteSchemaSemanticModel(sf, name)
	case manifest.SectionSavedQueries:
		return e.deleteSchemaSavedQuery(sf, name)
	case manifest.SectionUnitTests:
		return e.deleteSchemaUnitTest(sf, name)
	case manifest.SectionMacros:
		return e.deleteSchemaMacroPatch(sf, name)
	default:
		return fmt.Errorf("%w: unknown schema section %s in delete_schema_section_element", ErrInconsistentManifest, section)
	}
}

// deleteSchemaMssaLinks implements spec.md §4.3.5's
// delete_schema_mssa_links: the patch documenting an mssat node (or a
// generic test instance, under data_tests) disappears, but the node
// itself survives — its own sql file still defines it — so only the
// ownership link is cut and the node is scheduled for reparsing without
// its patch. Per spec.md's literal section list, only models/seeds/
// snapshots additionally drop their attached generic tests; analyses
// and data_tests do not.
func (e *Engine) deleteSchemaMssaLinks(sf *manifest.SchemaFile, section manifest.SchemaSection, name string) error {
	entry := e.findPatchedEntry(sf, section, name)
	if entry == nil {
		return nil
	}
	e.detachPatch(entry)

	switch section {
	case manifest.SectionModels, manifest.SectionSeeds, manifest.SectionSnapshots:
		e.removeTests(entry.UniqueID)
	}

	ids := append([]string{entry.UniqueID}, referrersOf(e.manifest, entry.UniqueID)...)
	return e.scheduleNodesForParsing(ids)
}

// removeTests pops every generic test node that tests testedUID,
// identified by its Refs edge back to the tested node — a patch removal
// leaves those tests without the config that generated them.
func (e *Engine) removeTests(testedUID string) {
	var toRemove []string
	for id, entry := range e.manifest.Table(manifest.EntryNode) {
		if entry.Test != manifest.TestGeneric {
			continue
		}
		for _, ref := range entry.Refs {
			if ref == testedUID {
				toRemove = append(toRemove, id)
				break
			}
		}
	}
	for _, id := range toRemove {
		if entry, _, ok := e.manifest.Lookup(id); ok {
			e.detachPatch(entry)
		}
		e.manifest.Pop(id)
	}
}

// deleteSchemaGeneric removes a schema-owned entity named name from
// idSet and the saved manifest. cascadeBeforePop matches spec.md
// §4.3.7's literal enumeration: exposures, metrics, groups,
// semantic_models, and saved_queries schedule their referrers before
// popping; unit_tests pop first and schedule only the (now orphaned)
// referrers. Sources and macro patches go through their own helpers
// below.
func (e *Engine) deleteSchemaGeneric(sf *manifest.SchemaFile, idSet map[string]struct{}, kind manifest.EntryKind, section manifest.SchemaSection, name string, cascadeBeforePop bool) error {
	delete(idSet, name)
	entry := e.findSchemaOwnedEntry(sf, kind, section, name)
	if entry == nil {
		return nil
	}
	referrers := referrersOf(e.manifest, entry.UniqueID)

	if cascadeBeforePop {
		ids := append([]string{entry.UniqueID}, referrers...)
		if err := e.scheduleNodesForParsing(ids); err != nil {
			return err
		}
		e.manifest.Pop(entry.UniqueID)
		return nil
	}

	e.manifest.Pop(entry.UniqueID)
	return e.scheduleNodesForParsing(referrers)
}

// deleteSchemaSource implements spec.md §4.3.7's delete_schema_source:
// a source has no definition outside its schema file, so it is popped
// outright (not merely unpatched), then, if it was itself an override
// of another package's source, the overridden source's referrers are
// woken too since the effective definition they see has changed.
func (e *Engine) deleteSchemaSource(sf *manifest.SchemaFile, elem yamlkit.Element, name string) error {
	entry := e.findSchemaOwnedEntry(sf, manifest.EntrySource, manifest.SectionSources, name)
	delete(sf.Sources, name)
	if entry == nil {
		return nil
	}
	referrers := referrersOf(e.manifest, entry.UniqueID)
	e.manifest.Pop(entry.UniqueID)

	if yamlkit.HasField(elem, "overrides") {
		if err := e.removeSourceOverrideTarget(elem); err != nil {
			return err
		}
	}
	return e.scheduleNodesForParsing(referrers)
}

// removeSourceOverrideTarget reschedules the base source that elem
// overrode, now that the override is gone and the base definition is
// effective again.
func (e *Engine) removeSourceOverrideTarget(elem yamlkit.Element) error {
	overridesPkg, ok := yamlkit.StringField(elem, "overrides")
	if !ok || overridesPkg == "" {
		return nil
	}
	sourceName, ok := yamlkit.Name(elem)
	if !ok {
		return nil
	}
	for uid, entry := range e.manifest.Sources {
		if entry.Name == sourceName && uidPackage(uid) == overridesPkg {
			ids := append([]string{uid}, referrersOf(e.manifest, uid)...)
			return e.scheduleNodesForParsing(ids)
		}
	}
	return nil
}

func (e *Engine) deleteSchemaExposure(sf *manifest.SchemaFile, name string) error {
	return e.deleteSchemaGeneric(sf, sf.Exposures, manifest.EntryExposure, manifest.SectionExposures, name, true)
}

func (e *Engine) deleteSchemaMetric(sf *manifest.SchemaFile, name string) error {
	return e.deleteSchemaGeneric(sf, sf.Metrics, manifest.EntryMetric, manifest.SectionMetrics, name, true)
}

func (e *Engine) deleteSchemaGroup(sf *manifest.SchemaFile, name string) error {
	return e.deleteSchemaGeneric(sf, sf.Groups, manifest.EntryGroup, manifest.SectionGroups, name, true)
}

// deleteSchemaSemanticModel additionally pops every metric this
// semantic model's measures auto-generated, the fix_metrics_from_measures
// backward-compatibility shim (SPEC_FULL.md "Supplemented features").
func (e *Engine) deleteSchemaSemanticModel(sf *manifest.SchemaFile, name string) error {
	if err := e.fixMetricsFromMeasures(sf, name); err != nil {
		return err
	}
	return e.deleteSchemaGeneric(sf, sf.SemanticModels, manifest.EntrySemanticModel, manifest.SectionSemanticModels, name, true)
}

func (e *Engine) deleteSchemaSavedQuery(sf *manifest.SchemaFile, name string) error {
	return e.deleteSchemaGeneric(sf, sf.SavedQueries, manifest.EntrySavedQuery, manifest.SectionSavedQueries, name, true)
}

func (e *Engine) deleteSchemaUnitTest(sf *manifest.SchemaFile, name string) error {
	return e.deleteSchemaGeneric(sf, sf.UnitTests, manifest.EntryUnitTest, manifest.SectionUnitTests, name, false)
}

// deleteSchemaMacroPatch implements spec.md §4.3.7's handling of a
// removed macro documentation overlay: the macro itself survives (its
// own sql file still defines it), only the patch link is cut.
func (e *Engine) deleteSchemaMacroPatch(sf *manifest.SchemaFile, name string) error {
	delete(sf.MacroPatches, name)
	for _, entry := range e.manifest.Macros {
		if entry.Name == name && entry.PatchPath == sf.FileID {
			e.detachPatch(entry)
			return e.scheduleNodesForParsing(referrersOf(e.manifest, entry.UniqueID))
		}
	}
	return nil
}

// fixMetricsFromMeasures pops every metric auto-generated from
// semanticModelName's measures when that semantic model is deleted
// (SPEC_FULL.md "Supplemented features" item 5): a generated metric has
// no life of its own once its source semantic model is gone.
func (e *Engine) fixMetricsFromMeasures(sf *manifest.SchemaFile, semanticModelName string) error {
	generated := sf.GeneratedMetrics[semanticModelName]
	for _, metricUID := range generated {
		entry, _, ok := e.manifest.Lookup(metricUID)
		if !ok {
			continue
		}
		referrers := referrersOf(e.manifest, metricUID)
		delete(sf.Metrics, entry.Name)
		e.manifest.Pop(metricUID)
		if err := e.scheduleNodesForParsing(referrers); err != nil {
			return err
		}
	}
	delete(sf.GeneratedMetrics, semanticModelName)
	delete(sf.MetricsFromMeasures, semanticModelName)
	return nil
}

// deleteSchemaFile implements spec.md §4.3.6's delete_schema_file: every
// section's elements are deleted one by one through the same per-section
// helpers a partial deletion uses, then the file itself is dropped.
func (e *Engine) deleteSchemaFile(fileID string) error {
	file, ok := e.manifest.Files[fileID]
	if !ok {
		return nil
	}
	if file.Schema == nil {
		return fmt.Errorf("%w: %s tagged Schema with no schema payload in delete_schema_file", ErrInconsistentManifest, fileID)
	}
	sf := file.Schema

	for _, section := range manifest.AllSections {
		for _, elem := range sf.Section(section) {
			if err := e.deleteSchemaSectionElement(sf, section, elem); err != nil {
				return err
			}
		}
	}

	delete(e.manifest.Files, fileID)
	e.sink.PartialParsingFile(events.File{Operation: events.OpDeleted, FileID: fileID})
	return nil
}
