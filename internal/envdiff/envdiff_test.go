package envdiff

import (
	"testing"

	"github.com/anthropics/replan/internal/env"
	"github.com/anthropics/replan/internal/manifest"
)

func TestDiffUnchangedValue(t *testing.T) {
	res := Diff(map[string]string{"A": "1"}, env.Static{"A": "1"}, nil)
	if len(res.Changed) != 0 || len(res.Deleted) != 0 {
		t.Errorf("an unchanged var should produce no Changed/Deleted, got %+v", res)
	}
}

func TestDiffChangedValue(t *testing.T) {
	res := Diff(map[string]string{"A": "1"}, env.Static{"A": "2"}, nil)
	if _, ok := res.Changed["A"]; !ok {
		t.Errorf("a changed var should appear in Changed")
	}
	if _, ok := res.Deleted["A"]; ok {
		t.Errorf("a changed (not unset) var should not appear in Deleted")
	}
}

func TestDiffDeletedValueCascadesAsChanged(t *testing.T) {
	res := Diff(map[string]string{"A": "1"}, env.Static{}, nil)
	if _, ok := res.Deleted["A"]; !ok {
		t.Errorf("an unset var should appear in Deleted")
	}
	if _, ok := res.Changed["A"]; !ok {
		t.Errorf("a deleted var must also cascade into Changed")
	}
}

func TestDiffDefaultPlaceholderToleratesUnset(t *testing.T) {
	res := Diff(map[string]string{"A": manifest.DefaultEnvPlaceholder}, env.Static{}, nil)
	if len(res.Deleted) != 0 || len(res.Changed) != 0 {
		t.Errorf("an unset var still defaulted via the placeholder should produce no classification, got %+v", res)
	}
}

func TestDiffSourceFilesIntersection(t *testing.T) {
	files := map[string]*manifest.SourceFile{
		"a.sql": {FileID: "a.sql", Kind: manifest.KindModel, EnvVars: map[string]struct{}{"A": {}}},
		"b.sql": {FileID: "b.sql", Kind: manifest.KindModel, EnvVars: map[string]struct{}{"B": {}}},
	}
	res := Diff(map[string]string{"A": "1"}, env.Static{"A": "2"}, files)

	if _, ok := res.SourceFiles["a.sql"]; !ok {
		t.Errorf("a.sql references the changed var A, should be in SourceFiles")
	}
	if _, ok := res.SourceFiles["b.sql"]; ok {
		t.Errorf("b.sql does not reference A, should not be in SourceFiles")
	}
}

func TestDiffSkipsFixtureFiles(t *testing.T) {
	files := map[string]*manifest.SourceFile{
		"fx.yml": {FileID: "fx.yml", Kind: manifest.KindFixture, EnvVars: map[string]struct{}{"A": {}}},
	}
	res := Diff(map[string]string{"A": "1"}, env.Static{"A": "2"}, files)
	if len(res.SourceFiles) != 0 {
		t.Errorf("fixture files must never be classified as env-affected source files, got %+v", res.SourceFiles)
	}
}

func TestDiffSchemaFilesPerElement(t *testing.T) {
	sf := manifest.NewSchemaFile("models.yml", "proj")
	sf.EnvVars[manifest.SectionModels] = map[string]map[string]struct{}{
		"a": {"A": {}},
		"b": {"B": {}},
	}
	files := map[string]*manifest.SourceFile{
		"models.yml": {FileID: "models.yml", Kind: manifest.KindSchema, Schema: sf},
	}
	res := Diff(map[string]string{"A": "1"}, env.Static{"A": "2"}, files)

	names := res.SchemaFiles["models.yml"][manifest.SectionModels]
	if len(names) != 1 || names[0] != "a" {
		t.Errorf("expected only element %q to be env-affected, got %v", "a", names)
	}
}
