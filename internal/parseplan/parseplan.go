// Package parseplan implements the ParsePlan component (spec.md §4.5):
// the project -> parser -> [file_id] dictionary the planner emits, and
// the already-scheduled read every schedule_* operation in
// internal/invalidate consults before re-enqueuing a file.
package parseplan

import (
	"fmt"

	"github.com/anthropics/replan/internal/manifest"
	"github.com/anthropics/replan/internal/parser"
)

// Plan accumulates the project_parser_files dictionary across a single
// planning run.
type Plan struct {
	files     map[string]map[parser.Name][]string
	scheduled map[string]struct{}
	excluded  map[string]struct{} // file_ids already in deleted / deleted_schema_files
	table     parser.Table
}

// New builds an empty Plan. excluded is the union of the FileDiffer's
// Deleted and DeletedSchemaFiles sets: a file_id there must never be
// scheduled for (re-)parsing (spec.md §4.5, §7 "file_id appears in
// project_parser_files but is also in deleted" is a fatal
// inconsistency).
func New(table parser.Table, excluded map[string]struct{}) *Plan {
	if excluded == nil {
		excluded = make(map[string]struct{})
	}
	return &Plan{
		files:     make(map[string]map[parser.Name][]string),
		scheduled: make(map[string]struct{}),
		excluded:  excluded,
		table:     table,
	}
}

// AlreadyScheduled reports whether fileID has already been enqueued in
// this run (already_scheduled_for_parsing, spec.md §4.5).
func (p *Plan) AlreadyScheduled(fileID string) bool {
	_, ok := p.scheduled[fileID]
	return ok
}

// Add enqueues sf for parsing (add_to_pp_files, spec.md §4.5): looks
// up the parser for sf.Kind, creates plan[project][parser] on first
// use, and appends sf.FileID unless it's already scheduled or excluded
// (deleted). Returns an error only for a Schema-kind file (Schema
// files are never parser-table members — an Inconsistency per
// spec.md §7) or an unregistered parse kind.
func (p *Plan) Add(sf *manifest.SourceFile) error {
	if p.AlreadyScheduled(sf.FileID) {
		return nil
	}
	if _, isExcluded := p.excluded[sf.FileID]; isExcluded {
		return nil
	}
	name, ok := p.table.Lookup(sf.Kind)
	if !ok {
		return fmt.Errorf("parseplan: no parser registered for kind %q (file %s)", sf.Kind, sf.FileID)
	}
	byParser, ok := p.files[sf.ProjectName]
	if !ok {
		byParser = make(map[parser.Name][]string)
		p.files[sf.ProjectName] = byParser
	}
	byParser[name] = append(byParser[name], sf.FileID)
	p.scheduled[sf.FileID] = struct{}{}
	return nil
}

// SchemaParserName is the fixed parser-table key schema files are
// enqueued under. Schema files are not covered by the Parser table
// collaborator (spec.md §6 says that table is "total over the
// non-Schema kinds") because the planner itself — not an external
// parser lookup — decides that every schema file goes through one
// fixed schema-parsing step; see DESIGN.md.
const SchemaParserName parser.Name = "schema_parser"

// AddSchemaFile enqueues a schema file under SchemaParserName,
// bypassing the parser.Table lookup Add uses for every other kind.
func (p *Plan) AddSchemaFile(sf *manifest.SchemaFile) error {
	if sf == nil {
		return fmt.Errorf("parseplan: nil schema file")
	}
	if p.AlreadyScheduled(sf.FileID) {
		return nil
	}
	if _, isExcluded := p.excluded[sf.FileID]; isExcluded {
		return nil
	}
	byParser, ok := p.files[sf.ProjectName]
	if !ok {
		byParser = make(map[parser.Name][]string)
		p.files[sf.ProjectName] = byParser
	}
	byParser[SchemaParserName] = append(byParser[SchemaParserName], sf.FileID)
	p.scheduled[sf.FileID] = struct{}{}
	return nil
}

// ProjectParserFiles returns the accumulated project -> parser ->
// [file_id] dictionary.
func (p *Plan) ProjectParserFiles() map[string]map[parser.Name][]string {
	return p.files
}

// IsEmpty reports whether nothing has been scheduled.
func (p *Plan) IsEmpty() bool {
	return len(p.files) == 0
}
