package calendar

import (
	"math"
	"time"

	"schedview/internal/model"
)

const (
	// MinutesPerDay is the height of a day column in minutes.
	MinutesPerDay = 24 * 60
	// MinutesPerRow is the span of one hour row in the week and day views.
	MinutesPerRow = 60
)

// Slot positions an event inside a 24-hour day column.
type Slot struct {
	// Offset is the start as a fraction of the day column, in [0, 1).
	Offset float64 `json:"offset"`
	// Height is the length in hour rows, clipped to the end of the column.
	Height float64 `json:"height"`
}

// Position returns the slot for the part of ev that falls on day.
// ok is false for all-day events and for events that do not touch day.
func Position(ev model.Event, day Date, loc *time.Location) (Slot, bool) {
	if ev.AllDay || ev.Start.IsZero() {
		return Slot{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	dayStart := day.In(loc)
	dayEnd := day.AddDays(1).In(loc)

	start := ev.Start.In(loc)
	end := ev.End.In(loc)
	if end.Before(start) {
		end = start
	}
	if !start.Before(dayEnd) || end.Before(dayStart) {
		return Slot{}, false
	}
	if end.Equal(dayStart) && end.After(start) {
		return Slot{}, false
	}

	if start.Before(dayStart) {
		start = dayStart
	}
	if end.After(dayEnd) {
		end = dayEnd
	}

	startMin := 0.0
	if start.After(dayStart) {
		startMin = float64(start.Hour()*60+start.Minute()) + float64(start.Second())/60
	}
	durMin := end.Sub(start).Minutes()
	remaining := (MinutesPerDay - startMin) / MinutesPerRow

	return Slot{
		Offset: startMin / MinutesPerDay,
		Height: math.Min(durMin/MinutesPerRow, remaining),
	}, true
}
