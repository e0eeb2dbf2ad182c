// Package schemadiff implements the SchemaYamlDiffer component
// (spec.md §4.2): a per-section, name-keyed diff of two YAML element
// lists, used for every schema section (models, sources, macros,
// exposures, metrics, groups, semantic_models, saved_queries,
// unit_tests, data_tests, analyses, seeds, snapshots).
package schemadiff

import "github.com/anthropics/replan/internal/manifest/yamlkit"

// Result is one section's diff.
type Result struct {
	Deleted []yamlkit.Element
	Added   []yamlkit.Element
	Changed []yamlkit.Element

	// ChangedOrDeletedNames is the union of the names in Changed and Deleted.
	ChangedOrDeletedNames map[string]struct{}
}

// Diff compares saved and fresh element lists for one section.
// Elements are compared by structural equality of their YAML subtree
// (order-sensitive for sequences, order-insensitive for mappings, via
// yamlkit.Equal). Returned elements are defensive deep copies so the
// InvalidationEngine may mutate them freely.
func Diff(saved, fresh []yamlkit.Element) *Result {
	r := &Result{ChangedOrDeletedNames: make(map[string]struct{})}

	freshByName := make(map[string]yamlkit.Element, len(fresh))
	for _, e := range fresh {
		if name, ok := yamlkit.Name(e); ok {
			freshByName[name] = e
		}
	}
	savedByName := make(map[string]yamlkit.Element, len(saved))
	for _, e := range saved {
		if name, ok := yamlkit.Name(e); ok {
			savedByName[name] = e
		}
	}

	// Walk saved/fresh in their own order, not map iteration order, so
	// the diff is deterministic and reflects the order-preserving
	// schema-file representation (spec.md §9).
	for _, savedElem := range saved {
		name, ok := yamlkit.Name(savedElem)
		if !ok {
			continue
		}
		freshElem, stillPresent := freshByName[name]
		if !stillPresent {
			r.Deleted = append(r.Deleted, yamlkit.Clone(savedElem))
			r.ChangedOrDeletedNames[name] = struct{}{}
			continue
		}
		if !yamlkit.Equal(savedElem, freshElem) {
			r.Changed = append(r.Changed, yamlkit.Clone(freshElem))
			r.ChangedOrDeletedNames[name] = struct{}{}
		}
	}
	for _, freshElem := range fresh {
		name, ok := yamlkit.Name(freshElem)
		if !ok {
			continue
		}
		if _, existed := savedByName[name]; !existed {
			r.Added = append(r.Added, yamlkit.Clone(freshElem))
		}
	}

	return r
}
