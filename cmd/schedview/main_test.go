package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/calendar"
	"schedview/internal/config"
	"schedview/internal/feed"
	"schedview/internal/filter"
	"schedview/internal/model"
	"schedview/internal/viewstate"
)

func TestStateFlagsStore(t *testing.T) {
	sf := stateFlags{view: "week", date: "2024-06-11", status: "pending", sort: "priority", order: "desc"}
	st, err := sf.store(time.UTC)
	require.NoError(t, err)

	assert.Equal(t, calendar.Week, st.View())
	assert.Equal(t, calendar.NewDate(2024, time.June, 11), st.Anchor())
	assert.Equal(t, "pending", st.Filters().Status)
	assert.Equal(t, filter.Sort{Field: filter.FieldPriority, Dir: filter.Desc}, st.Sort())
}

func TestStateFlagsRejectBadInput(t *testing.T) {
	for name, sf := range map[string]stateFlags{
		"date": {date: "2024-13-01"},
		"from": {from: "yesterday"},
		"view": {view: "year"},
		"sort": {sort: "color"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := sf.store(time.UTC)
			assert.Error(t, err)
		})
	}
}

func TestBuildSources(t *testing.T) {
	c := config.DefaultConfig()
	assert.Empty(t, buildSources(c, time.Now))

	c.API.URL = "https://example.test/api/schedules"
	c.ICS = []config.ICSConfig{{ID: "holidays", URL: "https://example.test/h.ics"}}
	srcs := buildSources(c, time.Now)
	require.Len(t, srcs, 2)
	assert.IsType(t, &feed.APISource{}, srcs[0])

	ics, ok := srcs[1].(*feed.ICSSource)
	require.True(t, ok)
	from, to := ics.Window()
	assert.True(t, from.Before(to))
}

func TestStateFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tui-state")
	assert.Empty(t, readState(path))

	st := viewstate.New(viewstate.State{View: calendar.Day, Anchor: calendar.NewDate(2024, time.June, 11)},
		viewstate.WithPersister(writeState(path)))
	st.SetSearch("audit")

	got := viewstate.Hydrate(readState(path))
	assert.Equal(t, calendar.Day, got.View())
	assert.Equal(t, calendar.NewDate(2024, time.June, 11), got.Anchor())
	assert.Equal(t, "audit", got.Filters().Search)
}

func TestPrintGridMonth(t *testing.T) {
	st := viewstate.New(viewstate.State{View: calendar.Month, Anchor: calendar.NewDate(2024, time.June, 11)},
		viewstate.WithNavigator(calendar.WithLocation(time.UTC)))

	at := func(h int) time.Time { return time.Date(2024, 6, 11, h, 0, 0, 0, time.UTC) }
	var events []model.Event
	for i := range 5 {
		events = append(events, model.Event{ID: string(rune('a' + i)), Title: "Visit", Start: at(8 + i), End: at(9 + i)})
	}

	var buf bytes.Buffer
	require.NoError(t, printGrid(&buf, st, events, time.UTC, 3))
	out := buf.String()

	assert.Contains(t, out, "month view, 2024-05-26 to 2024-07-06")
	assert.Contains(t, out, "Tue 2024-06-11")
	assert.Contains(t, out, "08:00–09:00  Visit")
	assert.Contains(t, out, "+2 more")
	assert.Contains(t, out, "~ Sun 2024-05-26")
}

func TestListTableMarksSort(t *testing.T) {
	events := []model.Event{{
		ID:       "1",
		Title:    "Deep clean",
		Start:    time.Date(2024, 6, 11, 8, 0, 0, 0, time.UTC),
		Priority: model.PriorityHigh,
	}}
	out := listTable(events, filter.Sort{Field: filter.FieldPriority, Dir: filter.Desc}, time.UTC)
	assert.Contains(t, out, "PRIORITY ▼")
	assert.Contains(t, out, "Deep clean")
	assert.Contains(t, out, "2024-06-11 08:00")
}

func TestRangeFlagsDescribeOverlap(t *testing.T) {
	for _, name := range []string{"from", "to"} {
		fl := listCmd.Flags().Lookup(name)
		require.NotNil(t, fl, name)
		assert.Contains(t, fl.Usage, "overlapping", name)
	}
}
