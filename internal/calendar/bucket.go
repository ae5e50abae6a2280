package calendar

import (
	"time"

	"schedview/internal/model"
)

// DefaultCellLimit is how many events a month cell shows before collapsing
// the rest into a "+K more" marker.
const DefaultCellLimit = 3

// Buckets maps each grid date to the events intersecting it, in the order the
// events were supplied.
type Buckets map[Date][]model.Event

// Bucket assigns every event to each grid date its [start day, end day]
// interval covers, so multi-day events show on every day they span.
//
// Timed events are converted to loc before taking their day. All-day events
// keep their own calendar date (they are floating dates, not instants). An
// end at exactly midnight is exclusive for both, matching the ICS form
// [day 00:00, next day 00:00).
func Bucket(events []model.Event, dates []Date, loc *time.Location) Buckets {
	if loc == nil {
		loc = time.Local
	}

	out := make(Buckets, len(dates))
	for _, d := range dates {
		out[d] = nil
	}
	if len(dates) == 0 {
		return out
	}

	first, last := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	for _, ev := range events {
		from, to, ok := Span(ev, loc)
		if !ok || to.Before(first) || from.After(last) {
			continue
		}
		for _, d := range dates {
			if d.Before(from) || d.After(to) {
				continue
			}
			out[d] = append(out[d], ev)
		}
	}
	return out
}

// Span returns the first and last calendar day ev occupies.
// ok is false when the event has no usable timestamps.
func Span(ev model.Event, loc *time.Location) (from, to Date, ok bool) {
	if ev.Start.IsZero() {
		return Date{}, Date{}, false
	}
	end := ev.End
	if end.IsZero() || end.Before(ev.Start) {
		end = ev.Start
	}

	if ev.AllDay {
		from = DateOf(ev.Start)
		to = DateOf(end)
		if end.After(ev.Start) && isMidnight(end) {
			to = to.AddDays(-1)
		}
		if to.Before(from) {
			to = from
		}
		return from, to, true
	}

	start := ev.Start.In(loc)
	end = end.In(loc)
	from, to = DateOf(start), DateOf(end)
	// A timed event ending exactly at midnight does not touch the next day.
	if end.After(start) && isMidnight(end) {
		to = to.AddDays(-1)
	}
	return from, to, true
}

// Events returns the events placed on d.
func (b Buckets) Events(d Date) []model.Event {
	return b[d]
}

// Visible returns at most limit events for d and how many were held back.
// A limit <= 0 shows everything.
func (b Buckets) Visible(d Date, limit int) ([]model.Event, int) {
	evs := b[d]
	if limit <= 0 || len(evs) <= limit {
		return evs, 0
	}
	return evs[:limit], len(evs) - limit
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
