package viewstate

import (
	"net/url"
	"strings"

	"schedview/internal/calendar"
	"schedview/internal/filter"
)

// Query parameter names shared with the admin UI's links.
const (
	ParamSearch     = "search"
	ParamStatus     = "status"
	ParamPriority   = "priority"
	ParamClientID   = "clientId"
	ParamAssigneeID = "assigneeId"
	ParamStartDate  = "startDate"
	ParamEndDate    = "endDate"
	ParamView       = "view"
	ParamDate       = "date"
	ParamSort       = "sort"
	ParamOrder      = "order"
	ParamID         = "id"
	ParamAction     = "action"
)

// DefaultView is used when the query carries no valid view.
const DefaultView = calendar.Month

// Encode serializes the persisted subset of st. Empty filters, the default
// view and ascending order are left out so URLs stay short.
func Encode(st State) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" && !strings.EqualFold(v, filter.All) {
			q.Set(k, v)
		}
	}

	// Search is free text: "all" is a word to look for, not the sentinel.
	if v := strings.TrimSpace(st.Filters.Search); v != "" {
		q.Set(ParamSearch, v)
	}
	set(ParamStatus, st.Filters.Status)
	set(ParamPriority, st.Filters.Priority)
	set(ParamClientID, st.Filters.ClientID)
	set(ParamAssigneeID, st.Filters.AssigneeID)
	if !st.Filters.StartDate.IsZero() {
		q.Set(ParamStartDate, st.Filters.StartDate.String())
	}
	if !st.Filters.EndDate.IsZero() {
		q.Set(ParamEndDate, st.Filters.EndDate.String())
	}

	if st.View.Valid() && st.View != DefaultView {
		q.Set(ParamView, string(st.View))
	}
	if st.Anchor.Valid() {
		q.Set(ParamDate, st.Anchor.String())
	}

	if st.Sort.Field != "" {
		q.Set(ParamSort, string(st.Sort.Field))
		if st.Sort.Dir == filter.Desc {
			q.Set(ParamOrder, string(filter.Desc))
		}
	}

	if st.Detail.ID != "" {
		q.Set(ParamID, st.Detail.ID)
		q.Set(ParamAction, string(st.Detail.action()))
	}
	return q
}

// FromQuery hydrates a State from URL parameters. Malformed values fall back
// to their defaults instead of failing: a bad date is dropped, an unknown
// view becomes DefaultView, an unknown sort field clears the sort. A missing
// anchor stays zero so the store can start at today.
func FromQuery(q url.Values) State {
	st := State{View: DefaultView}

	st.Filters = filter.Filters{
		Search:     strings.TrimSpace(q.Get(ParamSearch)),
		Status:     clean(q.Get(ParamStatus)),
		Priority:   clean(q.Get(ParamPriority)),
		ClientID:   clean(q.Get(ParamClientID)),
		AssigneeID: clean(q.Get(ParamAssigneeID)),
	}
	if d, err := calendar.ParseDate(q.Get(ParamStartDate)); err == nil {
		st.Filters.StartDate = d
	}
	if d, err := calendar.ParseDate(q.Get(ParamEndDate)); err == nil {
		st.Filters.EndDate = d
	}

	if g, err := calendar.ParseGranularity(q.Get(ParamView)); err == nil {
		st.View = g
	}
	if d, err := calendar.ParseDate(q.Get(ParamDate)); err == nil {
		st.Anchor = d
	}

	if f, ok := filter.ParseField(q.Get(ParamSort)); ok {
		st.Sort = filter.Sort{Field: f, Dir: filter.ParseDirection(q.Get(ParamOrder))}
	}

	if id := strings.TrimSpace(q.Get(ParamID)); id != "" {
		st.Detail = Detail{ID: id, Action: parseAction(q.Get(ParamAction))}
	}
	return st
}

// clean trims v and folds the "all" sentinel to empty.
func clean(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, filter.All) {
		return ""
	}
	return v
}
