package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/model"
)

func ids(evs []model.Event) []string {
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.ID)
	}
	return out
}

func TestBucketMultiDayEvent(t *testing.T) {
	loc := time.UTC
	ev := model.Event{
		ID:    "review",
		Start: time.Date(2024, 6, 10, 9, 0, 0, 0, loc),
		End:   time.Date(2024, 6, 12, 17, 0, 0, 0, loc),
	}

	dates, err := Dates(NewDate(2024, time.June, 1), Month)
	require.NoError(t, err)

	b := Bucket([]model.Event{ev}, dates, loc)
	require.Len(t, b, MonthCells)

	var hit []Date
	for _, d := range dates {
		if len(b.Events(d)) > 0 {
			hit = append(hit, d)
		}
	}
	assert.Equal(t, []Date{
		NewDate(2024, time.June, 10),
		NewDate(2024, time.June, 11),
		NewDate(2024, time.June, 12),
	}, hit)
}

func TestBucketKeepsInputOrder(t *testing.T) {
	loc := time.UTC
	day := NewDate(2024, time.June, 10)
	at := func(h int) time.Time { return time.Date(2024, 6, 10, h, 0, 0, 0, loc) }

	events := []model.Event{
		{ID: "late", Start: at(15), End: at(16)},
		{ID: "early", Start: at(8), End: at(9)},
		{ID: "span", Start: at(6).AddDate(0, 0, -1), End: at(10)},
	}
	b := Bucket(events, []Date{day}, loc)
	assert.Equal(t, []string{"late", "early", "span"}, ids(b.Events(day)))
}

func TestBucketAllDayExclusiveEnd(t *testing.T) {
	ev := model.Event{
		ID:     "offsite",
		AllDay: true,
		Start:  time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
	}
	dates, err := Dates(NewDate(2024, time.June, 9), Week)
	require.NoError(t, err)

	// Display zone west of UTC must not pull the floating all-day dates back.
	b := Bucket([]model.Event{ev}, dates, time.FixedZone("EST", -5*3600))
	assert.Empty(t, b.Events(NewDate(2024, time.June, 9)))
	assert.Len(t, b.Events(NewDate(2024, time.June, 10)), 1)
	assert.Len(t, b.Events(NewDate(2024, time.June, 11)), 1)
	assert.Empty(t, b.Events(NewDate(2024, time.June, 12)))
}

func TestBucketTimedEndAtMidnight(t *testing.T) {
	loc := time.UTC
	ev := model.Event{
		ID:    "late-shift",
		Start: time.Date(2024, 6, 10, 20, 0, 0, 0, loc),
		End:   time.Date(2024, 6, 11, 0, 0, 0, 0, loc),
	}
	dates, err := Dates(NewDate(2024, time.June, 9), Week)
	require.NoError(t, err)

	b := Bucket([]model.Event{ev}, dates, loc)
	assert.Len(t, b.Events(NewDate(2024, time.June, 10)), 1)
	assert.Empty(t, b.Events(NewDate(2024, time.June, 11)))

	_, ok := Position(ev, NewDate(2024, time.June, 11), loc)
	assert.False(t, ok)
}

func TestBucketSingleDayAllDay(t *testing.T) {
	ev := model.Event{
		ID:     "holiday",
		AllDay: true,
		Start:  time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}
	from, to, ok := Span(ev, time.UTC)
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, time.June, 10), from)
	assert.Equal(t, from, to)
}

func TestBucketUsesDisplayZone(t *testing.T) {
	// 23:30 UTC on the 10th is already the 11th in Seoul.
	ev := model.Event{
		ID:    "call",
		Start: time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 10, 23, 45, 0, 0, time.UTC),
	}
	seoul := time.FixedZone("KST", 9*3600)
	dates := []Date{NewDate(2024, time.June, 10), NewDate(2024, time.June, 11)}
	b := Bucket([]model.Event{ev}, dates, seoul)
	assert.Empty(t, b.Events(dates[0]))
	assert.Len(t, b.Events(dates[1]), 1)
}

func TestBucketIgnoresOutOfRange(t *testing.T) {
	ev := model.Event{
		ID:    "old",
		Start: time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	dates, err := Dates(NewDate(2024, time.June, 1), Month)
	require.NoError(t, err)
	b := Bucket([]model.Event{ev, {ID: "no-time"}}, dates, time.UTC)
	for _, d := range dates {
		assert.Empty(t, b.Events(d))
	}
}

func TestVisibleCap(t *testing.T) {
	day := NewDate(2024, time.June, 10)
	b := Buckets{day: {{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}}

	shown, more := b.Visible(day, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(shown))
	assert.Equal(t, 2, more)

	shown, more = b.Visible(day, 0)
	assert.Len(t, shown, 5)
	assert.Zero(t, more)

	shown, more = b.Visible(NewDate(2024, time.June, 11), 3)
	assert.Empty(t, shown)
	assert.Zero(t, more)
}

func TestPosition(t *testing.T) {
	loc := time.UTC
	day := NewDate(2024, time.June, 10)
	at := func(d, h, m int) time.Time { return time.Date(2024, 6, d, h, m, 0, 0, loc) }

	tests := []struct {
		name   string
		ev     model.Event
		day    Date
		want   Slot
		wantOK bool
	}{
		{
			name:   "morning meeting",
			ev:     model.Event{Start: at(10, 9, 0), End: at(10, 10, 30)},
			day:    day,
			want:   Slot{Offset: 540.0 / 1440, Height: 1.5},
			wantOK: true,
		},
		{
			name:   "runs past midnight is clipped",
			ev:     model.Event{Start: at(10, 23, 0), End: at(11, 2, 0)},
			day:    day,
			want:   Slot{Offset: 1380.0 / 1440, Height: 1},
			wantOK: true,
		},
		{
			name:   "continuation on next day",
			ev:     model.Event{Start: at(10, 23, 0), End: at(11, 2, 0)},
			day:    day.AddDays(1),
			want:   Slot{Offset: 0, Height: 2},
			wantOK: true,
		},
		{
			name: "ends exactly at midnight does not touch next day",
			ev:   model.Event{Start: at(10, 22, 0), End: at(11, 0, 0)},
			day:  day.AddDays(1),
		},
		{
			name: "all-day has no slot",
			ev:   model.Event{AllDay: true, Start: at(10, 0, 0), End: at(11, 0, 0)},
			day:  day,
		},
		{
			name: "other day",
			ev:   model.Event{Start: at(12, 9, 0), End: at(12, 10, 0)},
			day:  day,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Position(tt.ev, tt.day, loc)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want.Offset, got.Offset, 1e-9)
				assert.InDelta(t, tt.want.Height, got.Height, 1e-9)
			}
		})
	}
}
