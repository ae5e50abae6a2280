package ics

import (
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"schedview/internal/model"
)

const productID = "-//schedview//schedule export//EN"

// Property names carrying schedule fields RFC 5545 has no slot for.
const (
	propClient   = "X-SCHEDVIEW-CLIENT"
	propProject  = "X-SCHEDVIEW-PROJECT"
	propService  = "X-SCHEDVIEW-SERVICE"
	propAssignee = "X-SCHEDVIEW-ASSIGNEE"
)

// Export renders events as a PUBLISH calendar named name. Events are written
// in the given order; stamp is used as DTSTAMP on every VEVENT.
func Export(events []model.Event, name string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		uid := ev.ID
		if ev.InstanceKey != "" {
			uid += "/" + ev.InstanceKey
		}
		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(stamp.UTC())

		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			end := ev.End
			if !end.After(ev.Start) {
				end = ev.Start.AddDate(0, 0, 1)
			}
			ve.SetAllDayEndAt(end)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}

		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		ve.SetStatus(statusToICS(ev.Status))
		if p := priorityToICS(ev.Priority); p > 0 {
			ve.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(p))
		}
		if ev.Color != "" {
			ve.SetProperty(ical.ComponentProperty("COLOR"), string(ev.Color))
		}
		if ev.InstanceKey == "" {
			if rule := ruleString(ev); rule != "" {
				ve.AddRrule(rule)
			}
		}

		for _, kv := range [][2]string{
			{propClient, ev.ClientID},
			{propProject, ev.ProjectID},
			{propService, ev.ServiceID},
			{propAssignee, ev.AssigneeName},
		} {
			if kv[1] != "" {
				ve.SetProperty(ical.ComponentProperty(kv[0]), kv[1])
			}
		}
	}

	return cal.Serialize()
}

// ruleString renders the recurrence field as an RRULE value. A raw RRULE
// from an imported feed is passed through.
func ruleString(ev model.Event) string {
	if ev.RRule != "" {
		return ev.RRule
	}
	var freq string
	switch ev.Recurrence {
	case model.RecurrenceDaily:
		freq = "DAILY"
	case model.RecurrenceWeekly:
		freq = "WEEKLY"
	case model.RecurrenceMonthly:
		freq = "MONTHLY"
	default:
		return ""
	}
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(freq)
	if ev.RecurrenceEnd != nil {
		// Last second of the end date in the event's zone, as expansion uses.
		e := *ev.RecurrenceEnd
		until := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, ev.Start.Location())
		b.WriteString(";UNTIL=")
		b.WriteString(until.UTC().Format("20060102T150405Z"))
	}
	return b.String()
}

func statusToICS(s model.Status) ical.ObjectStatus {
	switch s {
	case model.StatusPending, model.StatusBlocked:
		return ical.ObjectStatusTentative
	case model.StatusInProgress:
		return ical.ObjectStatusInProcess
	case model.StatusCompleted:
		return ical.ObjectStatusCompleted
	case model.StatusCancelled:
		return ical.ObjectStatusCancelled
	default:
		return ical.ObjectStatusConfirmed
	}
}

// priorityToICS is the inverse of priorityFromICS; 0 means unset.
func priorityToICS(p model.Priority) int {
	switch p {
	case model.PriorityUrgent:
		return 1
	case model.PriorityHigh:
		return 3
	case model.PriorityMedium:
		return 5
	case model.PriorityLow:
		return 7
	}
	return 0
}
