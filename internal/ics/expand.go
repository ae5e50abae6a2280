package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "schedview/internal/log"
	"schedview/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone timed occurrences are converted to.
	// All-day occurrences keep their floating date. If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences
	// of recurring events.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid infinite or extremely
	// large expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded events and information about truncation.
type ExpandResult struct {
	Events []model.Event
	// TruncatedEvents records IDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences turns recurring records into one model.Event per
// occurrence within the configured range. It handles:
//
//   - raw RRULE strings from ICS feeds
//   - the daily/weekly/monthly recurrence field with its end date
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides
//   - all-day semantics
//
// Non-recurring records pass through unchanged whatever the range, so list
// views still see every stored record. Output order follows input order.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overridesByID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.RecurrenceID != nil {
			overridesByID[ev.ID] = append(overridesByID[ev.ID], ev)
		}
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.IsOverride && ev.RecurrenceID != nil {
			continue
		}
		// Occurrences from an earlier expansion carry an InstanceKey.
		if !ev.Recurring() || ev.InstanceKey != "" {
			out = append(out, ev.Event)
			continue
		}

		occ, hitCap := expandRecurringEvent(ev, overridesByID[ev.ID], cfg)
		out = append(out, occ...)
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.ID)
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"id", ev.ID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Events = out
	return result, nil
}

// ruleFor builds the recurrence rule for ev: a raw RRULE wins over the
// recurrence field.
func ruleFor(ev ParsedEvent) (*rrule.RRule, error) {
	if ev.RRule != "" {
		r, err := rrule.StrToRRule(ev.RRule)
		if err != nil {
			return nil, err
		}
		// Ensure Dtstart is set to the event's DTSTART.
		r.DTStart(ev.Start)
		return r, nil
	}

	opt := rrule.ROption{Dtstart: ev.Start}
	switch ev.Recurrence {
	case model.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case model.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case model.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
	default:
		return nil, errors.New("expand: not a recurring event")
	}
	if ev.RecurrenceEnd != nil {
		// The end date is inclusive: the last day still gets its occurrence.
		e := *ev.RecurrenceEnd
		loc := ev.Start.Location()
		opt.Until = time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, loc)
	}
	return rrule.NewRRule(opt)
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	out := make([]model.Event, 0)
	hitCap := false

	r, err := ruleFor(ev)
	if err != nil {
		appLog.Error("expand: failed to build rule", err, "id", ev.ID, "rrule", ev.RRule, "recurrence", ev.Recurrence)
		return append(out, ev.Event), false
	}

	// Build a set so we can apply EXDATE.
	var set rrule.Set
	set.RRule(r)

	for _, ex := range ev.ExDates {
		// Best effort: align EXDATE location with event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Adjust range into the event's original location for Between().
	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// Keep the stored day span; AddDate stays on midnight across DST.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			days := int(dur.Round(24*time.Hour) / (24 * time.Hour))
			if days < 1 {
				days = 1
			}
			occStart = date
			occEnd = date.AddDate(0, 0, days)
		} else {
			// Preserve original duration.
			occEnd = occStart.Add(dur)
		}

		key := occStart
		baseEv := ev.Event

		if o, ok := findOverrideForStart(overrides, occStart); ok {
			baseEv = o.Event
			occStart, occEnd = o.Start, o.End
		}

		out = append(out, makeOccurrence(baseEv, key, occStart, occEnd, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart finds an override event whose RECURRENCE-ID matches
// the given baseStart with exact time equality.
func findOverrideForStart(overrides []ParsedEvent, baseStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.RecurrenceID == nil {
			continue
		}
		if ov.RecurrenceID.Equal(baseStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeOccurrence copies ev onto a concrete start/end. Timed occurrences are
// normalized into displayLoc.
func makeOccurrence(ev model.Event, key, start, end time.Time, displayLoc *time.Location) model.Event {
	occ := ev
	if ev.AllDay {
		occ.Start, occ.End = start, end
	} else {
		occ.Start, occ.End = start.In(displayLoc), end.In(displayLoc)
	}

	// InstanceKey: the rule's start time, stable even when overridden.
	occ.InstanceKey = key.Format(time.RFC3339Nano)
	return occ
}
