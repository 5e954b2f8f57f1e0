package flatten

import (
	"fmt"
	"strings"
)

// Column binds one output column name to the field path extracted per
// array element.
type Column struct {
	Name string
	Path Path
}

// ColumnSpec is the raw name/path pair a projection is built from.
type ColumnSpec struct {
	Name string
	Path string
}

// Projection is the ordered set of columns emitted per element.
type Projection struct {
	cols []Column
}

// DefaultProjection returns the canonical issue projection.
func DefaultProjection() Projection {
	return Projection{cols: []Column{
		{Name: "issue_id", Path: mustPath("id")},
		{Name: "issue_key", Path: mustPath("key")},
		{Name: "summary", Path: mustPath("fields.summary")},
		{Name: "status", Path: mustPath("fields.status.name")},
		{Name: "priority", Path: mustPath("fields.priority.name")},
		{Name: "assignee", Path: mustPath("fields.assignee.displayName")},
		{Name: "created_date", Path: mustPath("fields.created")},
	}}
}

// mustPath parses a statically known path and panics on failure.
func mustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// NewProjection builds a projection from column specs. Names must be
// unique and non-empty; paths must parse.
func NewProjection(specs []ColumnSpec) (Projection, error) {
	if len(specs) == 0 {
		return Projection{}, fmt.Errorf("projection needs at least one column")
	}

	cols := make([]Column, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return Projection{}, fmt.Errorf("column[%d]: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return Projection{}, fmt.Errorf("column[%d]: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}

		path, err := ParsePath(spec.Path)
		if err != nil {
			return Projection{}, fmt.Errorf("column %q: %w", name, err)
		}
		cols = append(cols, Column{Name: name, Path: path})
	}
	return Projection{cols: cols}, nil
}

// ColumnNames returns the output header in column order.
func (p Projection) ColumnNames() []string {
	names := make([]string, len(p.cols))
	for i, col := range p.cols {
		names[i] = col.Name
	}
	return names
}

// Specs returns the name/path pairs the projection was built from,
// usable to fingerprint a run.
func (p Projection) Specs() []ColumnSpec {
	specs := make([]ColumnSpec, len(p.cols))
	for i, col := range p.cols {
		specs[i] = ColumnSpec{Name: col.Name, Path: col.Path.String()}
	}
	return specs
}

// Len returns the number of columns.
func (p Projection) Len() int { return len(p.cols) }

// project extracts one cell per column from a single array element.
// Unresolvable paths leave the zero Value, which is null.
func (p Projection) project(element map[string]any) []Value {
	cells := make([]Value, len(p.cols))
	for i, col := range p.cols {
		leaf, ok := col.Path.Resolve(element)
		if !ok {
			continue
		}
		cells[i] = Scalar(leaf)
	}
	return cells
}
