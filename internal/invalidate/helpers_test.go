package invalidate

import (
	"github.com/anthropics/replan/internal/fingerprint"
	"github.com/anthropics/replan/internal/manifest"
	"github.com/anthropics/replan/internal/manifest/yamlkit"
	"github.com/anthropics/replan/internal/parser"
	"gopkg.in/yaml.v3"
)

// scalar builds a plain string scalar yaml.Node.
func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// yamlMap builds a mapping yaml.Node from alternating key/value pairs,
// e.g. yamlMap("name", "a", "group", "g1").
func yamlMap(pairs ...string) yamlkit.Element {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		n.Content = append(n.Content, scalar(pairs[i]), scalar(pairs[i+1]))
	}
	return n
}

func checksum(seed string) fingerprint.Checksum {
	return fingerprint.Sum([]byte(seed))
}

func sqlSourceFile(fileID, project string, kind manifest.ParseKind, seed string, nodeIDs ...string) *manifest.SourceFile {
	return &manifest.SourceFile{
		FileID:      fileID,
		ProjectName: project,
		Kind:        kind,
		Checksum:    checksum(seed),
		SQL: &manifest.SQLPayload{
			Nodes:  manifest.NewOrderedSet(nodeIDs...),
			Macros: manifest.NewOrderedSet[string](),
		},
	}
}

func macroSourceFile(fileID, project, seed string, macroIDs ...string) *manifest.SourceFile {
	return &manifest.SourceFile{
		FileID:      fileID,
		ProjectName: project,
		Kind:        manifest.KindMacro,
		Checksum:    checksum(seed),
		SQL: &manifest.SQLPayload{
			Nodes:  manifest.NewOrderedSet[string](),
			Macros: manifest.NewOrderedSet(macroIDs...),
		},
	}
}

func schemaSourceFile(fileID, project, seed string, schema *manifest.SchemaFile) *manifest.SourceFile {
	return &manifest.SourceFile{
		FileID:      fileID,
		ProjectName: project,
		Kind:        manifest.KindSchema,
		Checksum:    checksum(seed),
		Schema:      schema,
	}
}

func nodeEntry(uid, name, fileID string, refs ...string) *manifest.Entry {
	return &manifest.Entry{
		UniqueID: uid,
		Name:     name,
		Kind:     manifest.EntryNode,
		FileID:   fileID,
		Refs:     refs,
	}
}

func macroEntry(uid, name, fileID string) *manifest.Entry {
	return &manifest.Entry{
		UniqueID: uid,
		Name:     name,
		Kind:     manifest.EntryMacro,
		FileID:   fileID,
	}
}

// contains reports whether list holds id anywhere.
func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func planFiles(plan map[string]map[parser.Name][]string, project string, name parser.Name) []string {
	byParser, ok := plan[project]
	if !ok {
		return nil
	}
	return byParser[name]
}
