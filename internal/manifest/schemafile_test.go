package manifest

import (
	"testing"

	"github.com/anthropics/replan/internal/manifest/yamlkit"
	"gopkg.in/yaml.v3"
)

func elemWithName(name string) yamlkit.Element {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "name"}
	val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
	n.Content = append(n.Content, key, val)
	return n
}

func TestNewSchemaFileInitializesEverySet(t *testing.T) {
	sf := NewSchemaFile("models.yml", "proj")
	if sf.DictFromYAML == nil || sf.PPDict == nil || sf.NodePatches == nil {
		t.Fatalf("NewSchemaFile must initialize DictFromYAML, PPDict, NodePatches")
	}
	if sf.Sources == nil || sf.Exposures == nil || sf.Groups == nil {
		t.Errorf("NewSchemaFile must initialize the schema-owned name sets")
	}
}

func TestSectionAndPendingSectionNilWhenUntouched(t *testing.T) {
	sf := NewSchemaFile("models.yml", "proj")
	if sf.Section(SectionModels) != nil {
		t.Errorf("Section of an untouched schema file should be an empty (nil) slice, not panic")
	}
	if sf.PendingSection(SectionModels) != nil {
		t.Errorf("PendingSection of an untouched schema file should be an empty (nil) slice, not panic")
	}
}

func TestClearEnvAndUnrendered(t *testing.T) {
	sf := NewSchemaFile("models.yml", "proj")
	sf.EnvVars[SectionModels] = map[string]map[string]struct{}{"a": {"MY_VAR": {}}}
	sf.UnrenderedConfigs[SectionModels] = map[string]struct{}{"a": {}}

	sf.ClearEnvAndUnrendered(SectionModels, "a")

	if _, ok := sf.EnvVars[SectionModels]["a"]; ok {
		t.Errorf("ClearEnvAndUnrendered should remove the element's env-var bookkeeping")
	}
	if _, ok := sf.UnrenderedConfigs[SectionModels]["a"]; ok {
		t.Errorf("ClearEnvAndUnrendered should remove the element's unrendered-config bookkeeping")
	}
}

func TestSchemaFileCloneIsIndependent(t *testing.T) {
	sf := NewSchemaFile("models.yml", "proj")
	sf.DictFromYAML[SectionModels] = []yamlkit.Element{elemWithName("a")}
	sf.NodePatches.Add("model.p.a")
	sf.Sources["s"] = struct{}{}

	c := sf.Clone()
	c.DictFromYAML[SectionModels][0] = elemWithName("mutated")
	c.NodePatches.Add("model.p.b")
	c.Sources["other"] = struct{}{}

	name, _ := yamlkit.Name(sf.DictFromYAML[SectionModels][0])
	if name != "a" {
		t.Errorf("cloning must deep-copy DictFromYAML elements, got name=%q", name)
	}
	if sf.NodePatches.Has("model.p.b") {
		t.Errorf("cloning must deep-copy NodePatches")
	}
	if _, ok := sf.Sources["other"]; ok {
		t.Errorf("cloning must deep-copy the Sources name set")
	}
}

func TestSchemaFileCloneNil(t *testing.T) {
	var sf *SchemaFile
	if sf.Clone() != nil {
		t.Errorf("Clone of a nil SchemaFile should return nil")
	}
}
