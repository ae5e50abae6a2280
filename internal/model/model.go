package model

import (
	"sort"
	"strings"
	"time"
)

// Event is a single schedule record as returned by the CRUD list endpoint.
// The engine only reads events; creation and mutation happen upstream.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"allDay"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority,omitempty"`

	ClientID     string `json:"clientId,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
	ServiceID    string `json:"serviceId,omitempty"`
	AssigneeID   string `json:"assigneeId,omitempty"`
	AssigneeName string `json:"assigneeName,omitempty"`

	Recurrence    Recurrence `json:"recurrence,omitempty"`
	RecurrenceEnd *time.Time `json:"recurrenceEndDate,omitempty"`

	// RRule carries a raw RFC 5545 rule for events imported from ICS feeds.
	RRule string `json:"rrule,omitempty"`

	Color Color `json:"color,omitempty"`

	// SourceID names the feed the event was loaded from.
	SourceID string `json:"sourceId,omitempty"`

	// InstanceKey identifies one occurrence of a recurring event after
	// expansion; empty for stored records.
	InstanceKey string `json:"instanceKey,omitempty"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Recurring reports whether the event carries any recurrence rule.
func (e Event) Recurring() bool {
	return (e.Recurrence != "" && e.Recurrence != RecurrenceNone) || e.RRule != ""
}

// ValidationError collects per-field messages so a form can show each one
// next to the offending input.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the record invariants. It returns nil or a *ValidationError.
func (e Event) Validate() error {
	fields := map[string]string{}

	if strings.TrimSpace(e.Title) == "" {
		fields["title"] = "title is required"
	}
	if e.Start.IsZero() {
		fields["start"] = "start is required"
	}
	if e.End.IsZero() {
		fields["end"] = "end is required"
	}
	if !e.Start.IsZero() && !e.End.IsZero() && e.End.Before(e.Start) {
		fields["end"] = "end must not be before start"
	}
	if e.Status != "" && !e.Status.Valid() {
		fields["status"] = "unknown status " + string(e.Status)
	}
	if e.Priority != "" && !e.Priority.Valid() {
		fields["priority"] = "unknown priority " + string(e.Priority)
	}
	if e.Color != "" && !e.Color.Valid() {
		fields["color"] = "unknown color " + string(e.Color)
	}

	switch {
	case e.Recurrence != "" && !e.Recurrence.Valid():
		fields["recurrence"] = "unknown recurrence " + string(e.Recurrence)
	case e.Recurrence != "" && e.Recurrence != RecurrenceNone:
		if e.RecurrenceEnd == nil {
			fields["recurrenceEndDate"] = "recurrence end date is required"
		} else if !e.Start.IsZero() && dateOnly(*e.RecurrenceEnd).Before(dateOnly(e.Start)) {
			fields["recurrenceEndDate"] = "recurrence end date must not be before start date"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
