package yamlkit

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func mapping(pairs ...string) Element {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		n.Content = append(n.Content, scalar(pairs[i]), scalar(pairs[i+1]))
	}
	return n
}

func TestName(t *testing.T) {
	elem := mapping("name", "a", "group", "g1")
	name, ok := Name(elem)
	if !ok || name != "a" {
		t.Errorf("Name() = (%q, %v), want (\"a\", true)", name, ok)
	}

	if _, ok := Name(mapping("group", "g1")); ok {
		t.Errorf("Name() of an element with no name key should report false")
	}
	if _, ok := Name(nil); ok {
		t.Errorf("Name(nil) should report false")
	}
}

func TestStringField(t *testing.T) {
	elem := mapping("name", "a", "group", "g1")
	v, ok := StringField(elem, "group")
	if !ok || v != "g1" {
		t.Errorf("StringField(group) = (%q, %v), want (\"g1\", true)", v, ok)
	}
	if _, ok := StringField(elem, "missing"); ok {
		t.Errorf("StringField of an absent field should report false")
	}
}

func TestStringFieldNonScalarValue(t *testing.T) {
	nested := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	elem := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{scalar("overrides"), nested}}
	v, ok := StringField(elem, "overrides")
	if !ok {
		t.Errorf("StringField should report ok=true for a present but non-scalar field")
	}
	if v != "" {
		t.Errorf("StringField of a non-scalar value should return empty string, got %q", v)
	}
}

func TestHasField(t *testing.T) {
	elem := mapping("name", "s", "overrides", "p_orig")
	if !HasField(elem, "overrides") {
		t.Errorf("HasField(overrides) should be true")
	}
	if HasField(elem, "versions") {
		t.Errorf("HasField(versions) should be false")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := mapping("name", "a")
	clone := Clone(orig)
	clone.Content[1].Value = "mutated"

	name, _ := Name(orig)
	if name != "a" {
		t.Errorf("mutating the clone must not affect the original, got name=%q", name)
	}
}

func TestCloneNil(t *testing.T) {
	if Clone(nil) != nil {
		t.Errorf("Clone(nil) should return nil")
	}
}

func TestEqualScalarsAndMappingOrderInsensitive(t *testing.T) {
	a := mapping("name", "x", "group", "g1")
	b := mapping("group", "g1", "name", "x")
	if !Equal(a, b) {
		t.Errorf("mappings with the same pairs in different order should be Equal")
	}
}

func TestEqualDetectsValueDifference(t *testing.T) {
	a := mapping("name", "x", "group", "g1")
	b := mapping("name", "x", "group", "g2")
	if Equal(a, b) {
		t.Errorf("mappings differing in a value should not be Equal")
	}
}

func TestEqualDetectsFieldCountDifference(t *testing.T) {
	a := mapping("name", "x")
	b := mapping("name", "x", "group", "g1")
	if Equal(a, b) {
		t.Errorf("mappings with a different number of fields should not be Equal")
	}
}

func TestEqualSequenceIsOrderSensitive(t *testing.T) {
	a := &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{scalar("a"), scalar("b")}}
	b := &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{scalar("b"), scalar("a")}}
	if Equal(a, b) {
		t.Errorf("sequences in a different order should not be Equal")
	}
	c := &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{scalar("a"), scalar("b")}}
	if !Equal(a, c) {
		t.Errorf("sequences with the same order should be Equal")
	}
}

func TestEqualNilHandling(t *testing.T) {
	if !Equal(nil, nil) {
		t.Errorf("Equal(nil, nil) should be true")
	}
	if Equal(nil, mapping("name", "a")) {
		t.Errorf("Equal(nil, non-nil) should be false")
	}
}

func TestFindByName(t *testing.T) {
	list := []Element{mapping("name", "a"), mapping("name", "b")}
	elem, idx := FindByName(list, "b")
	if idx != 1 || elem == nil {
		t.Errorf("FindByName(b) = (%v, %d), want index 1", elem, idx)
	}
	if _, idx := FindByName(list, "missing"); idx != -1 {
		t.Errorf("FindByName of a missing name should return idx -1, got %d", idx)
	}
}

func TestCloneList(t *testing.T) {
	list := []Element{mapping("name", "a")}
	clone := CloneList(list)
	clone[0].Content[1].Value = "mutated"

	name, _ := Name(list[0])
	if name != "a" {
		t.Errorf("CloneList elements must be independent of the source list")
	}
}
