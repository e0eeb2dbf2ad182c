package manifest

import "testing"

func TestEntryCloneIsIndependent(t *testing.T) {
	e := &Entry{
		UniqueID:   "model.p.a",
		Refs:       []string{"model.p.b"},
		MacroCalls: []string{"macro.p.m1"},
	}
	c := e.Clone()
	c.Refs[0] = "model.p.mutated"
	c.MacroCalls[0] = "macro.p.mutated"

	if e.Refs[0] != "model.p.b" {
		t.Errorf("mutating the clone's Refs must not affect the original")
	}
	if e.MacroCalls[0] != "macro.p.m1" {
		t.Errorf("mutating the clone's MacroCalls must not affect the original")
	}
}

func TestEntryCloneNil(t *testing.T) {
	var e *Entry
	if e.Clone() != nil {
		t.Errorf("Clone of a nil Entry should return nil")
	}
}
