package calendar

import "time"

// Navigator owns the anchor date and granularity of a calendar view and
// moves the visible range one grid unit at a time.
type Navigator struct {
	view   Granularity
	anchor Date

	loc   *time.Location
	clock func() time.Time
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithLocation sets the zone used to decide what "today" is.
func WithLocation(loc *time.Location) NavigatorOption {
	return func(n *Navigator) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) NavigatorOption {
	return func(n *Navigator) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNavigator returns a navigator positioned at anchor. An invalid anchor
// starts at today; an invalid view starts at Month.
func NewNavigator(view Granularity, anchor Date, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		loc:   time.Local,
		clock: time.Now,
	}
	for _, o := range opts {
		o(n)
	}
	if !view.Valid() {
		view = Month
	}
	if !anchor.Valid() {
		anchor = n.TodayDate()
	}
	n.view = view
	n.anchor = anchor
	return n
}

func (n *Navigator) View() Granularity { return n.view }
func (n *Navigator) Anchor() Date      { return n.anchor }

// Location returns the zone used for "today".
func (n *Navigator) Location() *time.Location { return n.loc }

// TodayDate is the current calendar date in the navigator's zone.
func (n *Navigator) TodayDate() Date {
	return DateOf(n.clock().In(n.loc))
}

// Next advances by one day, week or month.
func (n *Navigator) Next() { n.anchor = Shift(n.anchor, n.view, 1) }

// Previous goes back by one day, week or month.
func (n *Navigator) Previous() { n.anchor = Shift(n.anchor, n.view, -1) }

// Today moves the anchor to the current date.
func (n *Navigator) Today() { n.anchor = n.TodayDate() }

// SetView switches granularity; invalid values are ignored.
func (n *Navigator) SetView(g Granularity) {
	if g.Valid() {
		n.view = g
	}
}

// SetAnchor jumps to d; invalid dates are ignored.
func (n *Navigator) SetAnchor(d Date) {
	if d.Valid() {
		n.anchor = d
	}
}

// Grid recomputes the cells for the current anchor and view.
func (n *Navigator) Grid() ([]Cell, error) {
	return Grid(n.anchor, n.view, n.TodayDate())
}

// Range returns the first and last visible dates.
func (n *Navigator) Range() (Date, Date) {
	dates, err := Dates(n.anchor, n.view)
	if err != nil || len(dates) == 0 {
		return n.anchor, n.anchor
	}
	return dates[0], dates[len(dates)-1]
}
