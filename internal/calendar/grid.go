package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Granularity selects the span a grid covers.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// WeekStart is the first column of every week row.
const WeekStart = time.Sunday

// MonthCells is the fixed month grid size: 6 rows of 7 days, regardless of
// how many weeks the month actually touches, so the grid height never jumps.
const MonthCells = 42

// ParseGranularity accepts "day", "week" or "month" (case-insensitive).
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("calendar: unknown view %q", s)
	}
	return g, nil
}

func (g Granularity) Valid() bool {
	switch g {
	case Day, Week, Month:
		return true
	}
	return false
}

// Cell is one day of a rendered grid.
type Cell struct {
	Date Date `json:"date"`
	// InMonth is false for the leading/trailing days a month grid borrows
	// from adjacent months. Day and week grids never dim cells.
	InMonth bool `json:"in_month"`
	Today   bool `json:"today"`
}

// Dates returns the ordered dates of the grid anchored at anchor.
//
//   - Day:   the anchor itself.
//   - Week:  7 days starting at the latest Sunday on or before anchor.
//   - Month: 42 days starting at the Sunday on or before the 1st of the
//     anchor's month.
func Dates(anchor Date, g Granularity) ([]Date, error) {
	if !anchor.Valid() {
		return nil, fmt.Errorf("%w: anchor %s", ErrInvalidDate, anchor)
	}

	var (
		start Date
		n     int
	)
	switch g {
	case Day:
		return []Date{anchor}, nil
	case Week:
		start, n = StartOfWeek(anchor), 7
	case Month:
		start, n = StartOfWeek(anchor.FirstOfMonth()), MonthCells
	default:
		return nil, fmt.Errorf("calendar: unknown view %q", g)
	}

	out := make([]Date, n)
	for i := range out {
		out[i] = start.AddDays(i)
	}
	return out, nil
}

// Grid is Dates with per-cell presentation flags.
func Grid(anchor Date, g Granularity, today Date) ([]Cell, error) {
	dates, err := Dates(anchor, g)
	if err != nil {
		return nil, err
	}
	cells := make([]Cell, len(dates))
	for i, d := range dates {
		cells[i] = Cell{
			Date:    d,
			InMonth: g != Month || d.SameMonth(anchor),
			Today:   d == today,
		}
	}
	return cells, nil
}

// StartOfWeek returns the latest WeekStart on or before d.
func StartOfWeek(d Date) Date {
	offset := (int(d.Weekday()) - int(WeekStart) + 7) % 7
	return d.AddDays(-offset)
}

// Shift moves anchor by n grid units of g: n days, n weeks or n calendar
// months. Unknown granularities leave the anchor unchanged.
func Shift(anchor Date, g Granularity, n int) Date {
	switch g {
	case Day:
		return anchor.AddDays(n)
	case Week:
		return anchor.AddDays(7 * n)
	case Month:
		return anchor.AddMonths(n)
	}
	return anchor
}
