package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"schedview/internal/calendar"
	"schedview/internal/config"
	"schedview/internal/feed"
	"schedview/internal/filter"
	"schedview/internal/ics"
	appLog "schedview/internal/log"
	"schedview/internal/model"
	"schedview/internal/viewstate"
)

const maxValidateBody = 1 << 20

// request bundles what one request needs to render: its own view state
// store, the display zone and a filter engine for the configured locale.
type request struct {
	cfg    *config.Config
	store  *viewstate.Store
	loc    *time.Location
	engine *filter.Engine
}

func (s *Server) newRequest(r *http.Request) request {
	cfg := s.config()
	loc := cfg.Location()
	return request{
		cfg: cfg,
		store: viewstate.Hydrate(r.URL.Query(), viewstate.WithNavigator(
			calendar.WithLocation(loc),
			calendar.WithClock(s.now),
		)),
		loc:    loc,
		engine: filter.New(filter.WithLocation(loc), filter.WithLanguage(cfg.Language())),
	}
}

// eventDTO is an event as placed in one cell.
type eventDTO struct {
	model.Event
	Class string         `json:"class"`
	Link  string         `json:"link"`
	Slot  *calendar.Slot `json:"slot,omitempty"`
}

type cellDTO struct {
	calendar.Cell
	Events []eventDTO `json:"events"`
	More   int        `json:"more"`
}

type navDTO struct {
	Prev  string `json:"prev"`
	Next  string `json:"next"`
	Today string `json:"today"`
}

// calendarResponse is the JSON response shape for /api/calendar and the
// data behind the /calendar page.
type calendarResponse struct {
	View       calendar.Granularity `json:"view"`
	Anchor     calendar.Date        `json:"anchor"`
	Today      calendar.Date        `json:"today"`
	RangeStart calendar.Date        `json:"range_start"`
	RangeEnd   calendar.Date        `json:"range_end"`
	Timezone   string               `json:"display_timezone"`
	WeekStart  string               `json:"week_start"`
	Query      string               `json:"query"`
	Nav        navDTO               `json:"nav"`
	Filters    filter.Filters       `json:"filters"`
	Cells      []cellDTO            `json:"cells"`
	Detail     *model.Event         `json:"detail,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Error      string               `json:"error,omitempty"`
}

func (rq request) calendar(snap []model.Event) (calendarResponse, error) {
	st := rq.store
	cells, err := st.Grid()
	if err != nil {
		return calendarResponse{}, err
	}
	dates := make([]calendar.Date, len(cells))
	for i, c := range cells {
		dates[i] = c.Date
	}

	// Grid cells keep upstream order; only list views sort.
	visible := rq.engine.Apply(snap, st.Filters(), filter.Sort{})
	buckets := calendar.Bucket(visible, dates, rq.loc)

	limit := 0
	if st.View() == calendar.Month {
		limit = rq.cfg.MaxEventsPerCell
	}

	from, to := st.Range()
	resp := calendarResponse{
		View:       st.View(),
		Anchor:     st.Anchor(),
		Today:      st.Today(),
		RangeStart: from,
		RangeEnd:   to,
		Timezone:   rq.loc.String(),
		WeekStart:  calendar.WeekStart.String(),
		Query:      st.Query().Encode(),
		Nav:        rq.nav(),
		Filters:    st.Filters(),
		Cells:      make([]cellDTO, 0, len(cells)),
	}

	for _, c := range cells {
		evs, more := buckets.Visible(c.Date, limit)
		cell := cellDTO{Cell: c, Events: make([]eventDTO, 0, len(evs)), More: more}
		for _, ev := range evs {
			dto := eventDTO{Event: ev, Class: ev.Color.Style().Class, Link: rq.detailLink(ev.ID)}
			if st.View() != calendar.Month {
				if slot, ok := calendar.Position(ev, c.Date, rq.loc); ok {
					dto.Slot = &slot
				}
			}
			cell.Events = append(cell.Events, dto)
		}
		resp.Cells = append(resp.Cells, cell)
	}

	if id := st.Detail().ID; id != "" {
		for i := range snap {
			if snap[i].ID == id {
				ev := snap[i]
				resp.Detail = &ev
				break
			}
		}
	}
	return resp, nil
}

// nav computes the page links for the previous/next/today links.
func (rq request) nav() navDTO {
	link := func(move func(*viewstate.Store)) string {
		c := rq.store.Clone()
		move(c)
		return pagePath(c)
	}
	return navDTO{
		Prev:  link((*viewstate.Store).Previous),
		Next:  link((*viewstate.Store).Next),
		Today: link((*viewstate.Store).GoToday),
	}
}

// detailLink is the page link that opens id over the current view.
func (rq request) detailLink(id string) string {
	c := rq.store.Clone()
	c.OpenDetail(id, viewstate.ActionView)
	return pagePath(c)
}

func pagePath(st *viewstate.Store) string {
	q := st.Query().Encode()
	if q == "" {
		return "/calendar"
	}
	return "/calendar?" + q
}

// handleCalendar returns the grid for the view state in the URL.
//
// GET /api/calendar?view=week&date=2024-06-12&status=pending
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	rq := s.newRequest(r)
	snap := s.events.Snapshot()

	resp, err := rq.calendar(snap.Events)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp.UpdatedAt = snap.UpdatedAt
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type eventsResponse struct {
	Events    []model.Event  `json:"events"`
	Total     int            `json:"total"`
	Filters   filter.Filters `json:"filters"`
	Sort      filter.Sort    `json:"sort"`
	Query     string         `json:"query"`
	UpdatedAt time.Time      `json:"updated_at"`
	Error     string         `json:"error,omitempty"`
}

// handleEvents returns the filtered, sorted list view.
//
// GET /api/events?search=audit&priority=high&sort=priority&order=desc
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rq := s.newRequest(r)
	snap := s.events.Snapshot()

	list := rq.engine.Apply(snap.Events, rq.store.Filters(), rq.store.Sort())
	resp := eventsResponse{
		Events:    list,
		Total:     len(snap.Events),
		Filters:   rq.store.Filters(),
		Sort:      rq.store.Sort(),
		Query:     rq.store.Query().Encode(),
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEventsICS exports the filtered, sorted list as an ICS calendar.
func (s *Server) handleEventsICS(w http.ResponseWriter, r *http.Request) {
	rq := s.newRequest(r)
	snap := s.events.Snapshot()

	list := rq.engine.Apply(snap.Events, rq.store.Filters(), rq.store.Sort())
	body := ics.Export(list, "Schedule", s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	_, _ = io.WriteString(w, body)
}

// handleValidate checks an event payload the way the edit form does and
// returns the per-field messages.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxValidateBody))
	if err := dec.Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := ev.Validate(); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errResp{Error: "validation failed", Fields: verr.Fields})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleRefresh reloads the snapshot now. Errors are reported but the last
// good events stay in place; the client may retry.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.events.Refresh(r.Context())
	switch {
	case errors.Is(err, feed.ErrSuperseded):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "superseded"})
		return
	case err != nil:
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	snap := s.events.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"events":     len(snap.Events),
		"updated_at": snap.UpdatedAt,
	})
}
