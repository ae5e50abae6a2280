package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "schedview/internal/log"
	"schedview/internal/model"
)

// ParsedEvent is a VEVENT mapped onto the schedule record plus the RFC 5545
// details recurrence expansion needs.
type ParsedEvent struct {
	model.Event

	Seq int

	ExDates      []time.Time
	RecurrenceID *time.Time // RECURRENCE-ID (if present) in event's own timezone
	IsOverride   bool       // true if this VEVENT is an override for a recurring instance
}

// FromEvents wraps stored records so they can go through ExpandOccurrences.
func FromEvents(events []model.Event) []ParsedEvent {
	out := make([]ParsedEvent, len(events))
	for i, ev := range events {
		out[i] = ParsedEvent{Event: ev}
	}
	return out
}

// ParseICS parses a single ICS payload into a list of ParsedEvent.
//
//   - It relies on the underlying library's VTIMEZONE/TZID handling to
//     construct proper time.Time values (with Location set).
//   - It detects all-day events by inspecting the DTSTART value format.
//   - It records RRULE/EXDATE/RECURRENCE-ID but does not expand recurrences;
//     expansion is done in expand.go.
func ParseICS(sourceID string, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", sourceID)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(sourceID, comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "id", sourceID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", sourceID, "event_count", len(events))
	return events, nil
}

func parseVEvent(sourceID string, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.SourceID = sourceID
	out.Status = model.StatusScheduled

	// Feeds occasionally omit UID; give such events a stable-per-parse id
	// instead of dropping them.
	if uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId); uidProp != nil && uidProp.Value != "" {
		out.ID = uidProp.Value
	} else {
		out.ID = uuid.NewString()
	}

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = statusFromICS(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyPriority); p != nil {
		out.Priority = priorityFromICS(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentProperty("COLOR")); p != nil {
		if c := model.Color(strings.ToLower(strings.TrimSpace(p.Value))); c.Valid() {
			out.Color = c
		}
	}

	for prop, dst := range map[string]*string{
		propClient:   &out.ClientID,
		propProject:  &out.ProjectID,
		propService:  &out.ServiceID,
		propAssignee: &out.AssigneeName,
	} {
		if p := ve.GetProperty(ical.ComponentProperty(prop)); p != nil {
			*dst = p.Value
		}
	}

	// Detect all-day: if DTSTART has VALUE=DATE or is in YYYYMMDD form.
	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil {
		return out, errors.New("missing DTSTART")
	}
	if vs, ok := dtStartProp.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStartProp.Value, "T") {
		out.AllDay = true
	}

	var start, end time.Time
	var err error
	if out.AllDay {
		start, err = ve.GetAllDayStartAt()
		if err != nil {
			return out, err
		}
		end, err = ve.GetAllDayEndAt()
		if err != nil || !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	} else {
		start, err = ve.GetStartAt()
		if err != nil {
			return out, err
		}
		end, err = ve.GetEndAt()
		if err != nil || end.Before(start) {
			end = start
		}
	}
	out.Start = start
	out.End = end

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RRule = rruleProp.Value
	}

	// EXDATE can appear multiple times, each possibly comma separated.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value, start.Location()); err == nil {
			out.RecurrenceID = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func statusFromICS(v string) model.Status {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "TENTATIVE", "NEEDS-ACTION":
		return model.StatusPending
	case "IN-PROCESS":
		return model.StatusInProgress
	case "COMPLETED":
		return model.StatusCompleted
	case "CANCELLED":
		return model.StatusCancelled
	default:
		return model.StatusScheduled
	}
}

// priorityFromICS maps the RFC 5545 1..9 scale (1 highest, 0 undefined).
func priorityFromICS(v string) model.Priority {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return ""
	}
	switch {
	case n == 1:
		return model.PriorityUrgent
	case n >= 2 && n <= 4:
		return model.PriorityHigh
	case n == 5:
		return model.PriorityMedium
	case n >= 6 && n <= 9:
		return model.PriorityLow
	}
	return ""
}

// parseICSTime parses a basic ICS date/date-time string for EXDATE and
// RECURRENCE-ID values, whose parameters we do not inspect. Floating values
// are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
