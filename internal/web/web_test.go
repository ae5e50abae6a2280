package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/config"
	"schedview/internal/model"
	"schedview/internal/refresh"
)

type fakeStore struct {
	snap       refresh.Snapshot
	refreshErr error
	refreshed  int
}

func (f *fakeStore) Snapshot() refresh.Snapshot { return f.snap }

func (f *fakeStore) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleEvents() []model.Event {
	at := func(d, h int) time.Time { return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC) }
	return []model.Event{
		{ID: "1", Title: "Review", Start: at(10, 9), End: at(12, 17), Status: model.StatusScheduled, Priority: model.PriorityLow, Color: model.ColorBlue},
		{ID: "2", Title: "Audit", Start: at(11, 9), End: at(11, 10), Status: model.StatusPending, Priority: model.PriorityUrgent},
		{ID: "3", Title: "Call", Start: at(11, 13), End: at(11, 14), Status: model.StatusPending, Priority: model.PriorityHigh},
		{ID: "4", Title: "Filing", Start: at(11, 15), End: at(11, 16), Status: model.StatusCompleted},
		{ID: "5", Title: "Lunch", Start: at(11, 12), End: at(11, 13), Status: model.StatusCancelled},
	}
}

func newTestServer(t *testing.T, store *fakeStore, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Snapshot.Output = t.TempDir() + "/preview.png"
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, store, WithClock(func() time.Time { return testNow })).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeStore{}, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCalendarMonth(t *testing.T) {
	h := newTestServer(t, &fakeStore{snap: refresh.Snapshot{Events: sampleEvents()}}, nil)
	rec := get(t, h, "/api/calendar?date=2024-06-11")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp calendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Cells, 42)
	assert.Equal(t, "2024-05-26", resp.RangeStart.String())
	assert.Equal(t, "2024-07-06", resp.RangeEnd.String())
	assert.Equal(t, "2024-06-15", resp.Today.String())

	var june11 cellDTO
	for _, c := range resp.Cells {
		if c.Date.String() == "2024-06-11" {
			june11 = c
		}
	}
	// Review spans the 11th plus four single events: capped at three.
	require.Len(t, june11.Events, 3)
	assert.Equal(t, 2, june11.More)
	assert.Equal(t, "1", june11.Events[0].ID)
	assert.Equal(t, "ev-blue", june11.Events[0].Class)
	assert.Equal(t, "ev-gray", june11.Events[1].Class)
	assert.Nil(t, june11.Events[0].Slot)
	assert.Equal(t, "/calendar?action=view&date=2024-06-11&id=1", june11.Events[0].Link)

	assert.Equal(t, "/calendar?date=2024-05-11", resp.Nav.Prev)
	assert.Equal(t, "/calendar?date=2024-07-11", resp.Nav.Next)
	assert.Equal(t, "/calendar?date=2024-06-15", resp.Nav.Today)
}

func TestCalendarWeekHasSlots(t *testing.T) {
	h := newTestServer(t, &fakeStore{snap: refresh.Snapshot{Events: sampleEvents()}}, nil)
	rec := get(t, h, "/api/calendar?view=week&date=2024-06-11&status=pending")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp calendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Cells, 7)
	assert.Equal(t, "2024-06-09", resp.Cells[0].Date.String())

	tue := resp.Cells[2]
	require.Len(t, tue.Events, 2, "status filter applies to the grid")
	require.NotNil(t, tue.Events[0].Slot)
	assert.InDelta(t, 9.0/24, tue.Events[0].Slot.Offset, 1e-9)
	assert.InDelta(t, 1.0, tue.Events[0].Slot.Height, 1e-9)
}

func TestCalendarBadAnchorFallsBackToToday(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeStore{}, nil), "/api/calendar?date=2024-02-30&view=bogus")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp calendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "month", string(resp.View))
	assert.Equal(t, "2024-06-15", resp.Anchor.String())
}

func TestEventsFilterAndSort(t *testing.T) {
	h := newTestServer(t, &fakeStore{snap: refresh.Snapshot{Events: sampleEvents()}}, nil)
	rec := get(t, h, "/api/events?status=all&sort=priority&order=desc")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	var ids []string
	for _, e := range resp.Events {
		ids = append(ids, e.ID)
	}
	// Descending rank: unset (4,5 in input order) > low > high > urgent.
	assert.Equal(t, []string{"4", "5", "1", "3", "2"}, ids)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, "order=desc&sort=priority", resp.Query)
}

func TestEventsSurfacesSnapshotError(t *testing.T) {
	store := &fakeStore{snap: refresh.Snapshot{Events: sampleEvents(), Err: errors.New("upstream 500")}}
	rec := get(t, newTestServer(t, store, nil), "/api/events?search=AUD")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Audit", resp.Events[0].Title)
	assert.Equal(t, "upstream 500", resp.Error)
}

func TestEventsICS(t *testing.T) {
	h := newTestServer(t, &fakeStore{snap: refresh.Snapshot{Events: sampleEvents()}}, nil)
	rec := get(t, h, "/api/events.ics?status=completed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "SUMMARY:Filing")
	assert.NotContains(t, body, "SUMMARY:Audit")
}

func TestValidate(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, nil)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events/validate", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"title":"","start":"2024-06-10T10:00:00Z","end":"2024-06-10T09:00:00Z","recurrence":"weekly"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Contains(t, e.Fields, "title")
	assert.Contains(t, e.Fields, "end")
	assert.Contains(t, e.Fields, "recurrenceEndDate")

	rec = post(`{"title":"ok","start":"2024-06-10T09:00:00Z","end":"2024-06-10T10:00:00Z"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(`{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh(t *testing.T) {
	store := &fakeStore{}
	h := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.refreshed)

	store.refreshErr = errors.New("boom")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = get(t, h, "/api/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPageRendersReadyMarker(t *testing.T) {
	h := newTestServer(t, &fakeStore{snap: refresh.Snapshot{Events: sampleEvents()}}, nil)

	rec := get(t, h, "/calendar?date=2024-06-11&id=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "June 2024")
	assert.Contains(t, body, ".ev-blue { background: #3b82f6; }")
	assert.Contains(t, body, "+2 more")
	assert.Contains(t, body, `<div class="detail">`)

	rec = get(t, h, "/calendar?view=day&date=2024-06-11")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tuesday, June 11, 2024")
	assert.Contains(t, rec.Body.String(), "top: 37.500%")
}

func TestBasicAuth(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "pw"}
	})

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/events").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "pw")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreviewMissing(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(t, &fakeStore{}, nil), "/preview.png").Code)
}
