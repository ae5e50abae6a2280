package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"schedview/internal/calendar"
	appLog "schedview/internal/log"
	"schedview/internal/model"
)

var pageFuncs = template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.3f%%", f*100) },
	"rows": func(h float64) string {
		return fmt.Sprintf("%.3f%%", h*100*calendar.MinutesPerRow/calendar.MinutesPerDay)
	},
	"clock": func(t time.Time, loc *time.Location) string { return t.In(loc).Format("15:04") },
}

// pageData is what templates/calendar.html renders.
type pageData struct {
	calendarResponse
	Title    string
	Weekdays []string
	Palette  []model.StyleTokens
	Loc      *time.Location
}

// handlePage renders the calendar server-side. The root element carries
// data-ready="true" once the markup is complete, which the snapshot capture
// waits for.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rq := s.newRequest(r)
	snap := s.events.Snapshot()

	resp, err := rq.calendar(snap.Events)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp.UpdatedAt = snap.UpdatedAt
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}

	data := pageData{
		calendarResponse: resp,
		Title:            pageTitle(resp.View, resp.Anchor),
		Palette:          make([]model.StyleTokens, 0, len(model.Colors)),
		Loc:              rq.loc,
	}
	for _, c := range model.Colors {
		data.Palette = append(data.Palette, c.Style())
	}
	if resp.View != calendar.Day {
		for i := range 7 {
			data.Weekdays = append(data.Weekdays, time.Weekday((int(calendar.WeekStart)+i)%7).String()[:3])
		}
	}

	// Render into a buffer so a template error does not leave half a page.
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		appLog.Error("calendar page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func pageTitle(view calendar.Granularity, anchor calendar.Date) string {
	t := anchor.In(time.UTC)
	switch view {
	case calendar.Day:
		return t.Format("Monday, January 2, 2006")
	case calendar.Week:
		start := calendar.StartOfWeek(anchor).In(time.UTC)
		return "Week of " + start.Format("January 2, 2006")
	default:
		return t.Format("January 2006")
	}
}
