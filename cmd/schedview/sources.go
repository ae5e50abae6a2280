package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schedview/internal/calendar"
	"schedview/internal/config"
	"schedview/internal/feed"
	"schedview/internal/filter"
	"schedview/internal/ics"
	"schedview/internal/model"
	"schedview/internal/refresh"
	"schedview/internal/viewstate"
)

// buildSources wires the API list endpoint and every ICS subscription into
// one source. ICS feeds expand their recurrences inside the config window.
func buildSources(c *config.Config, now func() time.Time) feed.Multi {
	fetcher := feed.NewFetcher(c.CacheDir)
	loc := c.Location()

	var srcs feed.Multi
	if c.API.URL != "" {
		srcs = append(srcs, &feed.APISource{
			ID:      "api",
			URL:     c.API.URL,
			Token:   c.API.Token,
			Fetcher: fetcher,
		})
	}
	for _, sub := range c.ICS {
		srcs = append(srcs, &feed.ICSSource{
			ID:       sub.ID,
			URL:      sub.URL,
			Fetcher:  fetcher,
			Location: loc,
			Window:   func() (time.Time, time.Time) { return c.Window(now()) },
		})
	}
	return srcs
}

func refreshOptions(c *config.Config) refresh.Options {
	return refresh.Options{
		Expand:   c.ExpandRecurrence,
		Location: c.Location(),
		Window:   c.Window,
	}
}

// expanding wraps src so stored recurrence rules become occurrences when
// the config asks for it. Filters are still forwarded to src.
func expanding(c *config.Config, src feed.Source) feed.Source {
	if !c.ExpandRecurrence {
		return src
	}
	return feed.SourceFunc(func(ctx context.Context, f filter.Filters) ([]model.Event, error) {
		events, err := src.Load(ctx, f)
		if len(events) == 0 {
			return events, err
		}
		from, to := c.Window(time.Now())
		res, xerr := ics.ExpandOccurrences(ics.FromEvents(events), ics.ExpandConfig{
			DisplayLocation: c.Location(),
			RangeStart:      from,
			RangeEnd:        to,
		})
		if xerr != nil {
			return events, errors.Join(err, xerr)
		}
		return res.Events, err
	})
}

// stateFlags are the view state flags shared by the one-shot commands.
type stateFlags struct {
	view       string
	date       string
	search     string
	status     string
	priority   string
	clientID   string
	assigneeID string
	from       string
	to         string
	sort       string
	order      string
}

func (sf *stateFlags) register(cmd *cobra.Command, withView bool) {
	fl := cmd.Flags()
	if withView {
		fl.StringVar(&sf.view, "view", string(viewstate.DefaultView), "calendar view: day, week or month")
		fl.StringVar(&sf.date, "date", "", "anchor date YYYY-MM-DD (default today)")
	}
	fl.StringVarP(&sf.search, "search", "s", "", "match title, description or assignee")
	fl.StringVar(&sf.status, "status", "", "status filter")
	fl.StringVar(&sf.priority, "priority", "", "priority filter")
	fl.StringVar(&sf.clientID, "client", "", "client ID filter")
	fl.StringVar(&sf.assigneeID, "assignee", "", "assignee ID filter")
	fl.StringVar(&sf.from, "from", "", "range start YYYY-MM-DD; keeps events overlapping the range")
	fl.StringVar(&sf.to, "to", "", "range end YYYY-MM-DD; keeps events overlapping the range")
	fl.StringVar(&sf.sort, "sort", "", "sort field")
	fl.StringVar(&sf.order, "order", "", "sort order: asc or desc")
}

// store builds a view state store the same way the web UI hydrates one from
// its URL, so flag validation matches query validation.
func (sf *stateFlags) store(loc *time.Location) (*viewstate.Store, error) {
	q := viewstate.Encode(viewstate.State{})
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set(viewstate.ParamView, sf.view)
	set(viewstate.ParamDate, sf.date)
	set(viewstate.ParamSearch, sf.search)
	set(viewstate.ParamStatus, sf.status)
	set(viewstate.ParamPriority, sf.priority)
	set(viewstate.ParamClientID, sf.clientID)
	set(viewstate.ParamAssigneeID, sf.assigneeID)
	set(viewstate.ParamStartDate, sf.from)
	set(viewstate.ParamEndDate, sf.to)
	set(viewstate.ParamSort, sf.sort)
	set(viewstate.ParamOrder, sf.order)

	for _, d := range []string{sf.date, sf.from, sf.to} {
		if d == "" {
			continue
		}
		if _, err := calendar.ParseDate(d); err != nil {
			return nil, fmt.Errorf("date %q: %w", d, err)
		}
	}
	if sf.view != "" {
		if _, err := calendar.ParseGranularity(sf.view); err != nil {
			return nil, err
		}
	}
	if sf.sort != "" {
		if _, ok := filter.ParseField(sf.sort); !ok {
			return nil, fmt.Errorf("unknown sort field %q", sf.sort)
		}
	}

	return viewstate.Hydrate(q, viewstate.WithNavigator(calendar.WithLocation(loc))), nil
}

// loadFor fetches events for the store's filters with a timeout.
func loadFor(ctx context.Context, c *config.Config, st *viewstate.Store) ([]model.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	return expanding(c, buildSources(c, time.Now)).Load(ctx, st.Filters())
}
