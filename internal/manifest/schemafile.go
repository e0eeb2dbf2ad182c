package manifest

import (
	"github.com/anthropics/replan/internal/manifest/yamlkit"
	"gopkg.in/yaml.v3"
)

// SchemaFile is the payload for Schema-kind files (spec.md §3.1).
//
// Contents and DFY are kept as two fields, always written together by
// the single call site that replaces both during a schema-file update
// (see SPEC_FULL.md §9 resolution (a)) — there is no separate
// derivation path between them.
type SchemaFile struct {
	FileID      string
	ProjectName string

	// Contents is the raw file bytes; DFY is the parsed document node
	// ("dfy" in the original source's terminology) from which
	// DictFromYAML's per-section element lists are sliced.
	Contents []byte
	DFY      *yaml.Node

	// DictFromYAML maps section -> ordered element list, as currently
	// on disk.
	DictFromYAML map[SchemaSection][]yamlkit.Element

	// PPDict is the pending-parse delta: the subset (per section) that
	// still needs to flow through to the next real parse. Seeded from
	// DictFromYAML on add, merged into incrementally by merge_patch.
	PPDict map[SchemaSection][]yamlkit.Element

	// NodePatches is the set of mssat unique_ids patched from this
	// file (spec.md §3.3 invariant).
	NodePatches *OrderedSet[string]

	MacroPatches   map[string]struct{}
	Sources        map[string]struct{}
	Exposures      map[string]struct{}
	Metrics        map[string]struct{}
	Groups         map[string]struct{}
	SemanticModels map[string]struct{}
	SavedQueries   map[string]struct{}
	UnitTests      map[string]struct{}
	Snapshots      map[string]struct{}

	// EnvVars maps section -> element name -> set of env-var names
	// observed while rendering that element.
	EnvVars map[SchemaSection]map[string]map[string]struct{}

	// UnrenderedConfigs maps section -> set of element names; cleared
	// alongside EnvVars in merge_patch (spec.md §4.3.8). The planner never reads its
	// contents, only clears it on patch replacement.
	UnrenderedConfigs map[SchemaSection]map[string]struct{}

	// GeneratedMetrics maps semantic_model_name -> ordered list of
	// metric unique_ids generated from that model's measures.
	GeneratedMetrics map[string][]string

	// MetricsFromMeasures has the same shape as GeneratedMetrics.
	// fixMetricsFromMeasures in internal/invalidate pops the metrics
	// listed in GeneratedMetrics for a deleted semantic model and drops
	// that model's key from both maps.
	MetricsFromMeasures map[string][]string
}

func emptySectionMap() map[SchemaSection][]yamlkit.Element {
	return make(map[SchemaSection][]yamlkit.Element, len(AllSections))
}

func newStringSet() map[string]struct{} { return make(map[string]struct{}) }

// NewSchemaFile builds an empty, fully-initialized SchemaFile.
func NewSchemaFile(fileID, projectName string) *SchemaFile {
	return &SchemaFile{
		FileID:              fileID,
		ProjectName:         projectName,
		DictFromYAML:        emptySectionMap(),
		PPDict:              emptySectionMap(),
		NodePatches:         NewOrderedSet[string](),
		MacroPatches:        newStringSet(),
		Sources:             newStringSet(),
		Exposures:           newStringSet(),
		Metrics:             newStringSet(),
		Groups:              newStringSet(),
		SemanticModels:      newStringSet(),
		SavedQueries:        newStringSet(),
		UnitTests:           newStringSet(),
		Snapshots:           newStringSet(),
		EnvVars:             make(map[SchemaSection]map[string]map[string]struct{}),
		UnrenderedConfigs:   make(map[SchemaSection]map[string]struct{}),
		GeneratedMetrics:    make(map[string][]string),
		MetricsFromMeasures: make(map[string][]string),
	}
}

// Section returns the current (on-disk) element list for a section,
// nil if the section has no elements.
func (sf *SchemaFile) Section(section SchemaSection) []yamlkit.Element {
	return sf.DictFromYAML[section]
}

// PendingSection returns the pp_dict element list for a section, nil if
// nothing is pending for it.
func (sf *SchemaFile) PendingSection(section SchemaSection) []yamlkit.Element {
	return sf.PPDict[section]
}

// ClearEnvAndUnrendered clears the per-element env-var and
// unrendered-config bookkeeping for (section, name), as the last step
// of merge_patch (spec.md §4.3.8).
func (sf *SchemaFile) ClearEnvAndUnrendered(section SchemaSection, name string) {
	if m, ok := sf.EnvVars[section]; ok {
		delete(m, name)
	}
	if m, ok := sf.UnrenderedConfigs[section]; ok {
		delete(m, name)
	}
}

// Clone returns a deep, independent copy of sf.
func (sf *SchemaFile) Clone() *SchemaFile {
	if sf == nil {
		return nil
	}
	c := &SchemaFile{
		FileID:              sf.FileID,
		ProjectName:         sf.ProjectName,
		Contents:            append([]byte(nil), sf.Contents...),
		NodePatches:         sf.NodePatches.Clone(),
		MacroPatches:        cloneStringSet(sf.MacroPatches),
		Sources:             cloneStringSet(sf.Sources),
		Exposures:           cloneStringSet(sf.Exposures),
		Metrics:             cloneStringSet(sf.Metrics),
		Groups:              cloneStringSet(sf.Groups),
		SemanticModels:      cloneStringSet(sf.SemanticModels),
		SavedQueries:        cloneStringSet(sf.SavedQueries),
		UnitTests:           cloneStringSet(sf.UnitTests),
		Snapshots:           cloneStringSet(sf.Snapshots),
		DictFromYAML:        cloneSectionMap(sf.DictFromYAML),
		PPDict:              cloneSectionMap(sf.PPDict),
		EnvVars:             cloneEnvVars(sf.EnvVars),
		UnrenderedConfigs:   cloneUnrendered(sf.UnrenderedConfigs),
		GeneratedMetrics:    cloneStringListMap(sf.GeneratedMetrics),
		MetricsFromMeasures: cloneStringListMap(sf.MetricsFromMeasures),
	}
	if sf.DFY != nil {
		c.DFY = yamlkit.Clone(sf.DFY)
	}
	return c
}

func cloneStringSet(m map[string]struct{}) map[string]struct{} {
	c := make(map[string]struct{}, len(m))
	for k := range m {
		c[k] = struct{}{}
	}
	return c
}

func cloneSectionMap(m map[SchemaSection][]yamlkit.Element) map[SchemaSection][]yamlkit.Element {
	c := make(map[SchemaSection][]yamlkit.Element, len(m))
	for k, v := range m {
		c[k] = yamlkit.CloneList(v)
	}
	return c
}

func cloneEnvVars(m map[SchemaSection]map[string]map[string]struct{}) map[SchemaSection]map[string]map[string]struct{} {
	c := make(map[SchemaSection]map[string]map[string]struct{}, len(m))
	for section, byName := range m {
		inner := make(map[string]map[string]struct{}, len(byName))
		for name, vars := range byName {
			inner[name] = cloneStringSet(vars)
		}
		c[section] = inner
	}
	return c
}

func cloneUnrendered(m map[SchemaSection]map[string]struct{}) map[SchemaSection]map[string]struct{} {
	c := make(map[SchemaSection]map[string]struct{}, len(m))
	for section, names := range m {
		c[section] = cloneStringSet(names)
	}
	return c
}

func cloneStringListMap(m map[string][]string) map[string][]string {
	c := make(map[string][]string, len(m))
	for k, v := range m {
		c[k] = append([]string(nil), v...)
	}
	return c
}
