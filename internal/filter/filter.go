// Package filter narrows and orders event lists for the list views.
package filter

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"

	"schedview/internal/calendar"
	"schedview/internal/model"
)

// All is the sentinel filter value that matches everything, same as "".
const All = "all"

// Filters is the set of active list filters. They combine with AND; an empty
// or "all" value disables a filter.
type Filters struct {
	Search     string        `json:"search,omitempty"`
	Status     string        `json:"status,omitempty"`
	Priority   string        `json:"priority,omitempty"`
	ClientID   string        `json:"clientId,omitempty"`
	AssigneeID string        `json:"assigneeId,omitempty"`
	StartDate  calendar.Date `json:"startDate,omitzero"`
	EndDate    calendar.Date `json:"endDate,omitzero"`
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return strings.TrimSpace(f.Search) != "" || !unset(f.Status) || !unset(f.Priority) ||
		!unset(f.ClientID) || !unset(f.AssigneeID) || !f.StartDate.IsZero() || !f.EndDate.IsZero()
}

func unset(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All)
}

// Engine applies filters and sorts. The zero value is not usable; use New.
type Engine struct {
	loc  *time.Location
	lang language.Tag
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone used to turn event timestamps into days for the
// date-range filter.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLanguage sets the collation used for string sort fields.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) { e.lang = tag }
}

func New(opts ...Option) *Engine {
	e := &Engine{loc: time.Local, lang: language.English}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Apply returns the events matching f, ordered by s. The input slice is not
// modified.
func (e *Engine) Apply(events []model.Event, f Filters, s Sort) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if e.Match(ev, f) {
			out = append(out, ev)
		}
	}
	e.Sort(out, s)
	return out
}

// Apply runs the default engine (local time, English collation).
func Apply(events []model.Event, f Filters, s Sort) []model.Event {
	return New().Apply(events, f, s)
}

// Match reports whether ev passes every active filter.
func (e *Engine) Match(ev model.Event, f Filters) bool {
	if strings.TrimSpace(f.Search) != "" && !matchText(ev, f.Search) {
		return false
	}
	if !unset(f.Status) {
		want, _ := model.ParseStatus(f.Status)
		if ev.Status != want {
			return false
		}
	}
	if !unset(f.Priority) {
		want, _ := model.ParsePriority(f.Priority)
		if ev.Priority != want {
			return false
		}
	}
	if !unset(f.ClientID) && ev.ClientID != strings.TrimSpace(f.ClientID) {
		return false
	}
	if !unset(f.AssigneeID) && ev.AssigneeID != strings.TrimSpace(f.AssigneeID) {
		return false
	}
	if !f.StartDate.IsZero() || !f.EndDate.IsZero() {
		from, to, ok := calendar.Span(ev, e.loc)
		if !ok {
			return false
		}
		if !f.StartDate.IsZero() && to.Before(f.StartDate) {
			return false
		}
		if !f.EndDate.IsZero() && from.After(f.EndDate) {
			return false
		}
	}
	return true
}

// matchText is a case-insensitive substring match over title, description
// and assignee name.
func matchText(ev model.Event, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	return slices.ContainsFunc([]string{ev.Title, ev.Description, ev.AssigneeName}, func(s string) bool {
		return strings.Contains(strings.ToLower(s), q)
	})
}
