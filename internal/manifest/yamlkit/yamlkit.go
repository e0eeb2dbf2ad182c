// Package yamlkit provides the order-preserving YAML element
// operations schema files need: locating an element by its "name"
// key, deep-copying an element so the engine may mutate it freely,
// and comparing two elements for structural equality.
//
// yaml.Node is used as the concrete representation because it
// preserves mapping and sequence order natively (spec.md §9,
// "Order-preserving mappings") — an unordered map[string]any would
// lose exactly the ordering the reparse plan's determinism depends on.
package yamlkit

import "gopkg.in/yaml.v3"

// Element is a single YAML mapping node carrying a "name" key, e.g.
// one entry of a schema file's `models:` list.
type Element = *yaml.Node

// Name extracts the "name" key's scalar value from a mapping element.
// Returns ("", false) if the element isn't a mapping or has no
// "name" key.
func Name(elem Element) (string, bool) {
	if elem == nil || elem.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(elem.Content); i += 2 {
		key := elem.Content[i]
		if key.Kind == yaml.ScalarNode && key.Value == "name" {
			val := elem.Content[i+1]
			if val.Kind == yaml.ScalarNode {
				return val.Value, true
			}
		}
	}
	return "", false
}

// StringField extracts a top-level scalar field's value, e.g. "group"
// or "relation". Returns ("", false) if absent.
func StringField(elem Element, field string) (string, bool) {
	if elem == nil || elem.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(elem.Content); i += 2 {
		key := elem.Content[i]
		if key.Kind == yaml.ScalarNode && key.Value == field {
			val := elem.Content[i+1]
			if val.Kind == yaml.ScalarNode {
				return val.Value, true
			}
			return "", true // present but not a scalar (e.g. "overrides" object)
		}
	}
	return "", false
}

// HasField reports whether elem has a top-level key named field,
// regardless of its value's shape (used for "overrides", whose
// presence — not value — is what matters).
func HasField(elem Element, field string) bool {
	if elem == nil || elem.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(elem.Content); i += 2 {
		if elem.Content[i].Kind == yaml.ScalarNode && elem.Content[i].Value == field {
			return true
		}
	}
	return false
}

// Clone returns a deep, independent copy of elem so the engine may
// mutate its copy without disturbing the source tree (spec.md §9,
// "every adoption is a deep copy").
func Clone(elem Element) Element {
	if elem == nil {
		return nil
	}
	return cloneNode(elem)
}

func cloneNode(n *yaml.Node) *yaml.Node {
	c := *n
	c.Content = nil
	c.Alias = nil
	if n.Alias != nil {
		c.Alias = cloneNode(n.Alias)
	}
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return &c
}

// Equal reports structural equality of two elements: order-sensitive
// for sequences, order-insensitive for mappings (spec.md §4.2).
// Scalars compare by tag and value; anchors/styles are ignored, since
// they carry no semantic content for the planner.
func Equal(a, b Element) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case yaml.ScalarNode:
		return a.Tag == b.Tag && a.Value == b.Value
	case yaml.SequenceNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := range a.Content {
			if !Equal(a.Content[i], b.Content[i]) {
				return false
			}
		}
		return true
	case yaml.MappingNode:
		return mappingEqual(a, b)
	case yaml.DocumentNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := range a.Content {
			if !Equal(a.Content[i], b.Content[i]) {
				return false
			}
		}
		return true
	case yaml.AliasNode:
		return Equal(a.Alias, b.Alias)
	default:
		return false
	}
}

func mappingEqual(a, b Element) bool {
	pairsA := pairs(a)
	pairsB := pairs(b)
	if len(pairsA) != len(pairsB) {
		return false
	}
	usedB := make([]bool, len(pairsB))
	for _, pa := range pairsA {
		found := false
		for j, pb := range pairsB {
			if usedB[j] {
				continue
			}
			if pa.key == pb.key && Equal(pa.val, pb.val) {
				usedB[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type kv struct {
	key string
	val *yaml.Node
}

func pairs(n *yaml.Node) []kv {
	out := make([]kv, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, kv{key: n.Content[i].Value, val: n.Content[i+1]})
	}
	return out
}

// FindByName searches an ordered element list for the element whose
// "name" key equals name. Returns (nil, -1) if absent.
func FindByName(list []Element, name string) (Element, int) {
	for i, e := range list {
		if n, ok := Name(e); ok && n == name {
			return e, i
		}
	}
	return nil, -1
}

// CloneList deep-copies an ordered element list.
func CloneList(list []Element) []Element {
	out := make([]Element, len(list))
	for i, e := range list {
		out[i] = Clone(e)
	}
	return out
}
