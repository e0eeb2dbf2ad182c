package schemadiff

import (
	"testing"

	"github.com/anthropics/replan/internal/manifest/yamlkit"
	"gopkg.in/yaml.v3"
)

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func mapping(pairs ...string) yamlkit.Element {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		n.Content = append(n.Content, scalar(pairs[i]), scalar(pairs[i+1]))
	}
	return n
}

func TestDiffAdded(t *testing.T) {
	saved := []yamlkit.Element{mapping("name", "a")}
	fresh := []yamlkit.Element{mapping("name", "a"), mapping("name", "b")}

	r := Diff(saved, fresh)
	if len(r.Added) != 1 {
		t.Fatalf("Added = %v, want 1 element", r.Added)
	}
	name, _ := yamlkit.Name(r.Added[0])
	if name != "b" {
		t.Errorf("Added element name = %q, want %q", name, "b")
	}
}

func TestDiffDeleted(t *testing.T) {
	saved := []yamlkit.Element{mapping("name", "a"), mapping("name", "b")}
	fresh := []yamlkit.Element{mapping("name", "a")}

	r := Diff(saved, fresh)
	if len(r.Deleted) != 1 {
		t.Fatalf("Deleted = %v, want 1 element", r.Deleted)
	}
	name, _ := yamlkit.Name(r.Deleted[0])
	if name != "b" {
		t.Errorf("Deleted element name = %q, want %q", name, "b")
	}
	if _, ok := r.ChangedOrDeletedNames["b"]; !ok {
		t.Errorf("ChangedOrDeletedNames should include the deleted element's name")
	}
}

func TestDiffChanged(t *testing.T) {
	saved := []yamlkit.Element{mapping("name", "a", "group", "g1")}
	fresh := []yamlkit.Element{mapping("name", "a", "group", "g2")}

	r := Diff(saved, fresh)
	if len(r.Changed) != 1 {
		t.Fatalf("Changed = %v, want 1 element", r.Changed)
	}
	if group, _ := yamlkit.StringField(r.Changed[0], "group"); group != "g2" {
		t.Errorf("Changed element should carry the fresh value, got group=%q", group)
	}
	if _, ok := r.ChangedOrDeletedNames["a"]; !ok {
		t.Errorf("ChangedOrDeletedNames should include the changed element's name")
	}
}

func TestDiffUnchangedProducesNothing(t *testing.T) {
	saved := []yamlkit.Element{mapping("name", "a", "group", "g1")}
	fresh := []yamlkit.Element{mapping("group", "g1", "name", "a")} // reordered, still equal

	r := Diff(saved, fresh)
	if len(r.Added) != 0 || len(r.Deleted) != 0 || len(r.Changed) != 0 {
		t.Errorf("a structurally-equal (reordered) element should produce no diff entries, got %+v", r)
	}
}

func TestDiffReturnsDeepCopies(t *testing.T) {
	saved := []yamlkit.Element{}
	origFresh := mapping("name", "a")
	fresh := []yamlkit.Element{origFresh}

	r := Diff(saved, fresh)
	r.Added[0].Content[1].Value = "mutated"

	name, _ := yamlkit.Name(origFresh)
	if name != "a" {
		t.Errorf("Diff's returned elements must be independent deep copies of the input")
	}
}

func TestDiffPreservesSavedOrder(t *testing.T) {
	saved := []yamlkit.Element{mapping("name", "z"), mapping("name", "a")}
	fresh := []yamlkit.Element{}

	r := Diff(saved, fresh)
	if len(r.Deleted) != 2 {
		t.Fatalf("expected both elements deleted, got %v", r.Deleted)
	}
	first, _ := yamlkit.Name(r.Deleted[0])
	if first != "z" {
		t.Errorf("Deleted should preserve saved's order, first = %q, want %q", first, "z")
	}
}
