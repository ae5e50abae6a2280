package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/model"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@example.com\r\n" +
	"DTSTAMP:20240601T000000Z\r\n" +
	"DTSTART:20240603T090000Z\r\n" +
	"DTEND:20240603T093000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"STATUS:TENTATIVE\r\n" +
	"PRIORITY:1\r\n" +
	"RRULE:FREQ=DAILY;COUNT=5\r\n" +
	"EXDATE:20240605T090000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@example.com\r\n" +
	"DTSTAMP:20240601T000000Z\r\n" +
	"RECURRENCE-ID:20240606T090000Z\r\n" +
	"DTSTART:20240606T100000Z\r\n" +
	"DTEND:20240606T103000Z\r\n" +
	"SUMMARY:Standup (moved)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20240601T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240610\r\n" +
	"SUMMARY:Holiday\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	evs, err := ParseICS("team", []byte(sampleICS))
	require.NoError(t, err)
	require.Len(t, evs, 3)

	base := evs[0]
	assert.Equal(t, "standup@example.com", base.ID)
	assert.Equal(t, "team", base.SourceID)
	assert.Equal(t, "Standup", base.Title)
	assert.Equal(t, model.StatusPending, base.Status)
	assert.Equal(t, model.PriorityUrgent, base.Priority)
	assert.Equal(t, "FREQ=DAILY;COUNT=5", base.RRule)
	require.Len(t, base.ExDates, 1)
	assert.True(t, base.ExDates[0].Equal(time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)))
	assert.False(t, base.IsOverride)

	override := evs[1]
	assert.True(t, override.IsOverride)
	require.NotNil(t, override.RecurrenceID)

	holiday := evs[2]
	assert.True(t, holiday.AllDay)
	assert.NotEmpty(t, holiday.ID, "missing UID gets a generated id")
	assert.Equal(t, 24*time.Hour, holiday.Duration())
	assert.Equal(t, model.StatusScheduled, holiday.Status)
}

func TestParseICSEmpty(t *testing.T) {
	_, err := ParseICS("x", nil)
	assert.Error(t, err)
}

func TestExpandRRuleWithExDateAndOverride(t *testing.T) {
	evs, err := ParseICS("team", []byte(sampleICS))
	require.NoError(t, err)

	res, err := ExpandOccurrences(evs, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, res.TruncatedEvents)

	var titles []string
	var starts []int
	for _, ev := range res.Events {
		if ev.ID != "standup@example.com" {
			continue
		}
		titles = append(titles, ev.Title)
		starts = append(starts, ev.Start.Day()*100+ev.Start.Hour())
	}
	// 3rd..7th minus the 5th; the 6th is moved to 10:00.
	assert.Equal(t, []int{309, 409, 610, 709}, starts)
	assert.Equal(t, "Standup (moved)", titles[2])
	assert.Len(t, res.Events, 5)
}

func TestExpandRecurrenceField(t *testing.T) {
	end := time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC)
	ev := model.Event{
		ID:            "weekly",
		Title:         "Cleaning",
		Start:         time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
		Recurrence:    model.RecurrenceWeekly,
		RecurrenceEnd: &end,
	}
	single := model.Event{
		ID:    "once",
		Start: time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	res, err := ExpandOccurrences(FromEvents([]model.Event{single, ev}), ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 5, "single record plus 3,10,17,24 June")
	assert.Equal(t, "once", res.Events[0].ID)
	assert.Empty(t, res.Events[0].InstanceKey)

	last := res.Events[4]
	assert.Equal(t, 24, last.Start.Day())
	assert.Equal(t, 2*time.Hour, last.Duration())
	assert.Equal(t, "2024-06-24T08:00:00Z", last.InstanceKey)

	again, err := ExpandOccurrences(FromEvents(res.Events), ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, again.Events, 5, "occurrences are not expanded twice")
}

func TestExpandCap(t *testing.T) {
	ev := model.Event{
		ID:         "daily",
		Start:      time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		RRule:      "FREQ=DAILY",
		Recurrence: model.RecurrenceNone,
	}
	res, err := ExpandOccurrences(FromEvents([]model.Event{ev}), ExpandConfig{
		RangeStart:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 10,
	})
	require.NoError(t, err)
	assert.Len(t, res.Events, 10)
	assert.Equal(t, []string{"daily"}, res.TruncatedEvents)
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{
		RangeStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestExportUntilUsesEventZone(t *testing.T) {
	zone := time.FixedZone("EST", -5*3600)
	end := time.Date(2024, 6, 24, 0, 0, 0, 0, zone)
	ev := model.Event{
		ID:            "night-shift",
		Title:         "Night shift",
		Start:         time.Date(2024, 6, 3, 20, 0, 0, 0, zone),
		End:           time.Date(2024, 6, 3, 22, 0, 0, 0, zone),
		Recurrence:    model.RecurrenceWeekly,
		RecurrenceEnd: &end,
	}
	cfg := ExpandConfig{
		DisplayLocation: zone,
		RangeStart:      time.Date(2024, 6, 1, 0, 0, 0, 0, zone),
		RangeEnd:        time.Date(2024, 7, 1, 0, 0, 0, 0, zone),
	}

	body := Export([]model.Event{ev}, "Schedule", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;UNTIL=20240625T045959Z")

	local, err := ExpandOccurrences(FromEvents([]model.Event{ev}), cfg)
	require.NoError(t, err)
	require.Len(t, local.Events, 4, "3, 10, 17 and 24 June")

	out, err := ParseICS("export", []byte(body))
	require.NoError(t, err)
	res, err := ExpandOccurrences(out, cfg)
	require.NoError(t, err)
	require.Len(t, res.Events, 4, "the exported feed keeps the last occurrence")
	assert.Equal(t, 24, res.Events[3].Start.In(zone).Day())
}

func TestExportParsesBack(t *testing.T) {
	end := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	in := []model.Event{
		{
			ID:            "evt-1",
			Title:         "Site visit",
			Location:      "Warehouse",
			Start:         time.Date(2024, 7, 1, 13, 0, 0, 0, time.UTC),
			End:           time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC),
			Status:        model.StatusInProgress,
			Priority:      model.PriorityHigh,
			Color:         model.ColorGreen,
			ClientID:      "acme",
			AssigneeName:  "Dana",
			Recurrence:    model.RecurrenceMonthly,
			RecurrenceEnd: &end,
		},
		{
			ID:     "evt-2",
			Title:  "Offsite",
			AllDay: true,
			Start:  time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC),
		},
	}

	body := Export(in, "Schedule", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "X-WR-CALNAME:Schedule")
	assert.Contains(t, body, "RRULE:FREQ=MONTHLY;UNTIL=20240731T235959Z")

	out, err := ParseICS("export", []byte(body))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "evt-1", out[0].ID)
	assert.Equal(t, "Site visit", out[0].Title)
	assert.Equal(t, "Warehouse", out[0].Location)
	assert.Equal(t, model.StatusInProgress, out[0].Status)
	assert.Equal(t, model.PriorityHigh, out[0].Priority)
	assert.Equal(t, model.ColorGreen, out[0].Color)
	assert.Equal(t, "acme", out[0].ClientID)
	assert.Equal(t, "Dana", out[0].AssigneeName)
	assert.True(t, out[0].Start.Equal(in[0].Start))

	assert.True(t, out[1].AllDay)
	assert.Equal(t, 48*time.Hour, out[1].Duration())
}
