package filter

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"

	"schedview/internal/model"
)

// Field names a sortable event attribute.
type Field string

const (
	FieldTitle    Field = "title"
	FieldLocation Field = "location"
	FieldAssignee Field = "assignee"
	FieldStart    Field = "start"
	FieldEnd      Field = "end"
	FieldPriority Field = "priority"
	FieldStatus   Field = "status"
)

// Fields lists the sortable fields in the order the TUI binds them to keys.
var Fields = []Field{FieldTitle, FieldStart, FieldEnd, FieldPriority, FieldStatus, FieldAssignee, FieldLocation}

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the active single-key ordering. The zero value leaves input order
// untouched.
type Sort struct {
	Field Field     `json:"field,omitempty"`
	Dir   Direction `json:"dir,omitempty"`
}

// Toggle returns the sort after the user picks field: the same field flips
// direction, a different field starts ascending.
func (s Sort) Toggle(field Field) Sort {
	if s.Field == field {
		if s.Dir == Desc {
			return Sort{Field: field, Dir: Asc}
		}
		return Sort{Field: field, Dir: Desc}
	}
	return Sort{Field: field, Dir: Asc}
}

// ParseField normalizes a field name. ok is false for unknown fields.
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	return f, slices.Contains(Fields, f)
}

// ParseDirection returns Desc for "desc" and Asc for anything else.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort orders events in place. Ties keep their input order. Unknown fields
// are a no-op.
//
// Comparison by field type:
//   - start, end: timestamps.
//   - priority, status: the rank tables in package model, never lexical order.
//   - title, location, assignee: collation for the engine's language.
func (e *Engine) Sort(events []model.Event, s Sort) {
	cmp := e.comparator(s.Field)
	if cmp == nil {
		return
	}
	if s.Dir == Desc {
		slices.SortStableFunc(events, func(a, b model.Event) int { return cmp(b, a) })
		return
	}
	slices.SortStableFunc(events, cmp)
}

func (e *Engine) comparator(f Field) func(a, b model.Event) int {
	switch f {
	case FieldStart:
		return func(a, b model.Event) int { return a.Start.Compare(b.Start) }
	case FieldEnd:
		return func(a, b model.Event) int { return a.End.Compare(b.End) }
	case FieldPriority:
		return func(a, b model.Event) int { return a.Priority.Rank() - b.Priority.Rank() }
	case FieldStatus:
		return func(a, b model.Event) int { return a.Status.Rank() - b.Status.Rank() }
	case FieldTitle:
		return e.stringComparator(func(ev model.Event) string { return ev.Title })
	case FieldLocation:
		return e.stringComparator(func(ev model.Event) string { return ev.Location })
	case FieldAssignee:
		return e.stringComparator(func(ev model.Event) string { return ev.AssigneeName })
	}
	return nil
}

// stringComparator builds a fresh collator per sort; collate.Collator keeps
// internal buffers and is not safe for concurrent use.
func (e *Engine) stringComparator(key func(model.Event) string) func(a, b model.Event) int {
	c := collate.New(e.lang)
	return func(a, b model.Event) int {
		return c.CompareString(key(a), key(b))
	}
}
