package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"schedview/internal/calendar"
	"schedview/internal/filter"
	"schedview/internal/model"
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	dim     lipgloss.Style
	today   lipgloss.Style
	errLine lipgloss.Style
	help    lipgloss.Style
	cell    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		today:   lipgloss.NewStyle().Reverse(true).Bold(true),
		errLine: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		cell:    lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true),
	}
}

// eventStyle colors a chip with the event's palette entry.
func eventStyle(c model.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Style().ANSI))
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render(m.title()))
	if m.loading {
		b.WriteString(m.styles.dim.Render("  loading…"))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.dim.Render(m.filterLine()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(m.styles.errLine.Render("error: " + m.err.Error() + " (r to retry)"))
		b.WriteString("\n")
	}
	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.pane == paneList {
		b.WriteString(m.listView())
	} else {
		b.WriteString(m.gridView())
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("n/p move · t today · d/w/m view · / search · s status · f priority · x clear · 1-7 sort · tab list · r reload · q quit"))
	return b.String()
}

func (m Model) title() string {
	a := m.store.Anchor().In(time.UTC)
	switch m.store.View() {
	case calendar.Day:
		return a.Format("Monday, January 2, 2006")
	case calendar.Week:
		from, to := m.store.Range()
		return from.In(time.UTC).Format("Jan 2") + " – " + to.In(time.UTC).Format("Jan 2, 2006")
	default:
		return a.Format("January 2006")
	}
}

func (m Model) filterLine() string {
	f := m.store.Filters()
	parts := []string{
		"status=" + orAll(f.Status),
		"priority=" + orAll(f.Priority),
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", f.Search))
	}
	if s := m.store.Sort(); s.Field != "" {
		parts = append(parts, "sort="+string(s.Field)+" "+string(s.Dir))
	}
	return strings.Join(parts, "  ")
}

func orAll(v string) string {
	if v == "" {
		return filter.All
	}
	return v
}

func (m Model) gridView() string {
	cells, err := m.store.Grid()
	if err != nil {
		return m.styles.errLine.Render(err.Error())
	}
	dates := make([]calendar.Date, len(cells))
	for i, c := range cells {
		dates[i] = c.Date
	}
	buckets := calendar.Bucket(m.visible(false), dates, m.loc)

	if m.store.View() == calendar.Day {
		return m.dayColumn(cells[0], buckets, m.width)
	}

	colWidth := max(m.width/7-1, 10)
	var rows []string

	header := make([]string, 0, 7)
	for i := range 7 {
		wd := time.Weekday((int(calendar.WeekStart) + i) % 7)
		header = append(header, m.styles.header.Width(colWidth).Render(wd.String()[:3]))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	limit := m.limit
	if m.store.View() == calendar.Week {
		limit = 0
	}
	for start := 0; start < len(cells); start += 7 {
		row := make([]string, 0, 7)
		for _, c := range cells[start:min(start+7, len(cells))] {
			row = append(row, m.cellView(c, buckets, colWidth, limit))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) cellView(c calendar.Cell, b calendar.Buckets, width, limit int) string {
	num := fmt.Sprintf("%2d", c.Date.Day)
	switch {
	case c.Today:
		num = m.styles.today.Render(num)
	case !c.InMonth:
		num = m.styles.dim.Render(num)
	}

	lines := []string{num}
	evs, more := b.Visible(c.Date, limit)
	for _, ev := range evs {
		label := ev.Title
		if !ev.AllDay && m.store.View() == calendar.Week {
			label = ev.Start.In(m.loc).Format("15:04") + " " + label
		}
		lines = append(lines, eventStyle(ev.Color).Render(truncate(label, width-1)))
	}
	if more > 0 {
		lines = append(lines, m.styles.dim.Render(fmt.Sprintf("+%d more", more)))
	}

	height := 1
	if m.store.View() == calendar.Month {
		height = m.limit + 2
	}
	return m.styles.cell.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

// dayColumn lists the day's events by hour row.
func (m Model) dayColumn(c calendar.Cell, b calendar.Buckets, width int) string {
	var lines []string
	for _, ev := range b.Events(c.Date) {
		when := "all day"
		if slot, ok := calendar.Position(ev, c.Date, m.loc); ok {
			startMin := int(slot.Offset * calendar.MinutesPerDay)
			when = fmt.Sprintf("%02d:%02d %4.1fh", startMin/60, startMin%60, slot.Height)
		}
		line := fmt.Sprintf("%-12s %s", when, ev.Title)
		if ev.Location != "" {
			line += m.styles.dim.Render(" @ " + ev.Location)
		}
		lines = append(lines, eventStyle(ev.Color).Render(truncate(line, width)))
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.dim.Render("no events"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) listView() string {
	list := m.visible(true)
	s := m.store.Sort()

	col := func(f filter.Field, label string, w int) string {
		if s.Field == f {
			if s.Dir == filter.Desc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		return fmt.Sprintf("%-*s", w, label)
	}

	var b strings.Builder
	b.WriteString(m.styles.header.Render(
		col(filter.FieldTitle, "1 Title", 28) +
			col(filter.FieldStart, "2 Start", 18) +
			col(filter.FieldPriority, "4 Priority", 12) +
			col(filter.FieldStatus, "5 Status", 14) +
			col(filter.FieldAssignee, "6 Assignee", 16),
	))
	b.WriteString("\n")

	for _, ev := range list {
		start := ev.Start.In(m.loc).Format("2006-01-02 15:04")
		if ev.AllDay {
			start = ev.Start.Format("2006-01-02") + " all"
		}
		b.WriteString(eventStyle(ev.Color).Render(fmt.Sprintf("%-28s", truncate(ev.Title, 27))))
		b.WriteString(fmt.Sprintf("%-18s%-12s%-14s%-16s\n",
			start, orDash(string(ev.Priority)), orDash(string(ev.Status)), truncate(orDash(ev.AssigneeName), 15)))
	}
	b.WriteString(m.styles.dim.Render(fmt.Sprintf("%d of %d events", len(list), len(m.events))))
	return b.String()
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
