package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"schedview/internal/filter"
	"schedview/internal/ics"
	appLog "schedview/internal/log"
	"schedview/internal/model"
	"schedview/internal/viewstate"
)

// Source yields schedule records for the given filters. Sources may narrow
// server-side; callers still apply filter.Apply locally.
type Source interface {
	Load(ctx context.Context, f filter.Filters) ([]model.Event, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, f filter.Filters) ([]model.Event, error)

func (fn SourceFunc) Load(ctx context.Context, f filter.Filters) ([]model.Event, error) {
	return fn(ctx, f)
}

// APISource reads the CRUD list endpoint. Active filters are forwarded as
// query parameters using the same names as the UI's URLs.
type APISource struct {
	ID      string
	URL     string
	Token   string
	Fetcher *Fetcher
}

// listEnvelope is the wrapped form some list endpoints return.
type listEnvelope struct {
	Data []model.Event `json:"data"`
}

func (s *APISource) Load(ctx context.Context, f filter.Filters) ([]model.Event, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, fmt.Errorf("feed: api %s: %w", s.ID, err)
	}
	q := u.Query()
	for k, vs := range viewstate.Encode(viewstate.State{Filters: f}) {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	res, err := s.Fetcher.FetchOne(ctx, Target{ID: s.ID, URL: u.String(), Token: s.Token, Accept: "application/json"})
	if err != nil {
		return nil, fmt.Errorf("feed: api %s: %w", s.ID, err)
	}

	events, err := decodeList(res.Body)
	if err != nil {
		return nil, fmt.Errorf("feed: api %s: decode: %w", s.ID, err)
	}
	for i := range events {
		if events[i].SourceID == "" {
			events[i].SourceID = s.ID
		}
	}
	return events, nil
}

// decodeList accepts a bare JSON array or {"data": [...]}.
func decodeList(body []byte) ([]model.Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var env listEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		return env.Data, nil
	}
	var events []model.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ICSSource reads an ICS subscription. Filters are not forwarded.
//
// When Window is set, recurring VEVENTs are expanded into occurrences inside
// that window, applying EXDATE and RECURRENCE-ID overrides. Without it the
// base events are returned with their RRULE and overrides are dropped.
type ICSSource struct {
	ID       string
	URL      string
	Fetcher  *Fetcher
	Location *time.Location
	Window   func() (start, end time.Time)
}

func (s *ICSSource) Load(ctx context.Context, _ filter.Filters) ([]model.Event, error) {
	res, err := s.Fetcher.FetchOne(ctx, Target{ID: s.ID, URL: s.URL, Accept: "text/calendar"})
	if err != nil {
		return nil, fmt.Errorf("feed: ics %s: %w", s.ID, err)
	}

	parsed, err := ics.ParseICS(s.ID, res.Body)
	if err != nil {
		return nil, fmt.Errorf("feed: ics %s: %w", s.ID, err)
	}

	if s.Window == nil {
		out := make([]model.Event, 0, len(parsed))
		for _, p := range parsed {
			if !p.IsOverride {
				out = append(out, p.Event)
			}
		}
		return out, nil
	}

	start, end := s.Window()
	exp, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: s.Location,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("feed: ics %s: %w", s.ID, err)
	}
	return exp.Events, nil
}

// Multi loads all sources concurrently and concatenates their events in
// source order. A failing source does not discard the others: the events that
// did load are returned together with the joined errors.
type Multi []Source

func (m Multi) Load(ctx context.Context, f filter.Filters) ([]model.Event, error) {
	results := make([][]model.Event, len(m))
	errs := make([]error, len(m))

	var g errgroup.Group
	g.SetLimit(4)
	for i, src := range m {
		g.Go(func() error {
			evs, err := src.Load(ctx, f)
			if err != nil {
				errs[i] = err
				appLog.Error("feed source failed", err, "index", i)
				return nil
			}
			results[i] = evs
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []model.Event
	for _, evs := range results {
		out = append(out, evs...)
	}
	return out, errors.Join(errs...)
}
