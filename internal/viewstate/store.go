// Package viewstate holds the scheduling view's UI state: granularity,
// anchor date, filters, sort and the deep-linked event detail.
//
// A Store has exactly one owner. Everything else reads through its accessors
// and asks for changes through its mutators, each of which persists the new
// state to the query string via the configured Persister. A Store is not safe
// for concurrent use; the HTTP layer builds one per request and the TUI keeps
// one on its event loop.
package viewstate

import (
	"net/url"
	"strings"

	"schedview/internal/calendar"
	"schedview/internal/filter"
)

// Action is what a deep link does with the referenced event.
type Action string

const (
	ActionView Action = "view"
	ActionEdit Action = "edit"
)

func parseAction(s string) Action {
	if strings.EqualFold(strings.TrimSpace(s), string(ActionEdit)) {
		return ActionEdit
	}
	return ActionView
}

// Detail references the event whose modal is open, if any.
type Detail struct {
	ID     string `json:"id,omitempty"`
	Action Action `json:"action,omitempty"`
}

func (d Detail) action() Action {
	if d.Action == ActionEdit {
		return ActionEdit
	}
	return ActionView
}

// State is a read-only snapshot of a Store.
type State struct {
	View    calendar.Granularity `json:"view"`
	Anchor  calendar.Date        `json:"anchor"`
	Filters filter.Filters       `json:"filters"`
	Sort    filter.Sort          `json:"sort"`
	Detail  Detail               `json:"detail"`
}

// Persister receives the encoded state after every mutation.
type Persister func(url.Values)

// Option configures a Store.
type Option func(*Store)

// WithPersister installs p; it is called once with the hydrated state and
// after every mutation.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// WithNavigator passes options (clock, location) to the underlying
// calendar.Navigator.
func WithNavigator(opts ...calendar.NavigatorOption) Option {
	return func(s *Store) { s.navOpts = append(s.navOpts, opts...) }
}

// Store is the single owner of view state.
type Store struct {
	nav     *calendar.Navigator
	navOpts []calendar.NavigatorOption

	filters filter.Filters
	sort    filter.Sort
	detail  Detail

	persist Persister
}

// New returns a store starting from initial. A zero anchor starts at today.
func New(initial State, opts ...Option) *Store {
	s := &Store{}
	for _, o := range opts {
		o(s)
	}
	s.nav = calendar.NewNavigator(initial.View, initial.Anchor, s.navOpts...)
	s.filters = normalizeFilters(initial.Filters)
	s.sort = initial.Sort
	s.detail = initial.Detail
	s.changed()
	return s
}

// Hydrate builds a store from URL query parameters.
func Hydrate(q url.Values, opts ...Option) *Store {
	return New(FromQuery(q), opts...)
}

// Clone returns an independent store with the same state and options but no
// persister, handy for computing "what if" links (next page, toggled sort).
func (s *Store) Clone() *Store {
	return New(s.State(), WithNavigator(s.navOpts...))
}

// --- accessors ---

func (s *Store) State() State {
	return State{
		View:    s.nav.View(),
		Anchor:  s.nav.Anchor(),
		Filters: s.filters,
		Sort:    s.sort,
		Detail:  s.detail,
	}
}

func (s *Store) View() calendar.Granularity { return s.nav.View() }
func (s *Store) Anchor() calendar.Date      { return s.nav.Anchor() }
func (s *Store) Filters() filter.Filters    { return s.filters }
func (s *Store) Sort() filter.Sort          { return s.sort }
func (s *Store) Detail() Detail             { return s.detail }

// Today is the current date in the store's zone.
func (s *Store) Today() calendar.Date { return s.nav.TodayDate() }

// Grid returns the cells for the current view.
func (s *Store) Grid() ([]calendar.Cell, error) { return s.nav.Grid() }

// Range returns the first and last visible dates.
func (s *Store) Range() (calendar.Date, calendar.Date) { return s.nav.Range() }

// Query returns the encoded state.
func (s *Store) Query() url.Values { return Encode(s.State()) }

// --- mutators ---

func (s *Store) SetView(g calendar.Granularity) {
	s.nav.SetView(g)
	s.changed()
}

func (s *Store) SetAnchor(d calendar.Date) {
	s.nav.SetAnchor(d)
	s.changed()
}

func (s *Store) Next() {
	s.nav.Next()
	s.changed()
}

func (s *Store) Previous() {
	s.nav.Previous()
	s.changed()
}

// GoToday resets the anchor to the current date.
func (s *Store) GoToday() {
	s.nav.Today()
	s.changed()
}

func (s *Store) SetSearch(q string) {
	s.filters.Search = strings.TrimSpace(q)
	s.changed()
}

func (s *Store) SetStatus(v string) {
	s.filters.Status = clean(v)
	s.changed()
}

func (s *Store) SetPriority(v string) {
	s.filters.Priority = clean(v)
	s.changed()
}

func (s *Store) SetClient(id string) {
	s.filters.ClientID = clean(id)
	s.changed()
}

func (s *Store) SetAssignee(id string) {
	s.filters.AssigneeID = clean(id)
	s.changed()
}

// SetDateRange sets the list's date bounds; zero dates clear a bound.
func (s *Store) SetDateRange(from, to calendar.Date) {
	s.filters.StartDate = validOrZero(from)
	s.filters.EndDate = validOrZero(to)
	s.changed()
}

// ResetFilters clears every filter but keeps view, anchor and sort.
func (s *Store) ResetFilters() {
	s.filters = filter.Filters{}
	s.changed()
}

// ToggleSort applies the column-click rule: same field flips direction,
// a new field starts ascending.
func (s *Store) ToggleSort(f filter.Field) {
	s.sort = s.sort.Toggle(f)
	s.changed()
}

// OpenDetail deep-links to an event.
func (s *Store) OpenDetail(id string, action Action) {
	id = strings.TrimSpace(id)
	if id == "" {
		s.detail = Detail{}
	} else {
		s.detail = Detail{ID: id, Action: parseAction(string(action))}
	}
	s.changed()
}

func (s *Store) CloseDetail() {
	s.detail = Detail{}
	s.changed()
}

func (s *Store) changed() {
	if s.persist != nil {
		s.persist(s.Query())
	}
}

func normalizeFilters(f filter.Filters) filter.Filters {
	f.Search = strings.TrimSpace(f.Search)
	f.Status = clean(f.Status)
	f.Priority = clean(f.Priority)
	f.ClientID = clean(f.ClientID)
	f.AssigneeID = clean(f.AssigneeID)
	f.StartDate = validOrZero(f.StartDate)
	f.EndDate = validOrZero(f.EndDate)
	return f
}

func validOrZero(d calendar.Date) calendar.Date {
	if d.Valid() {
		return d
	}
	return calendar.Date{}
}
