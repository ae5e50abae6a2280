package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"schedview/internal/calendar"
	"schedview/internal/filter"
	"schedview/internal/ics"
	"schedview/internal/model"
	"schedview/internal/viewstate"
)

var (
	gridFlags   stateFlags
	listFlags   stateFlags
	exportFlags stateFlags

	exportOutput string
	exportName   string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the day, week or month grid with its events",
	Example: `  schedview grid --view week --date 2024-06-11
  schedview grid --status pending`,
	RunE: runGrid,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the filtered, sorted event list",
	Example: `  schedview list --sort priority --order desc
  schedview list --search cleaning --from 2024-06-01 --to 2024-06-30`,
	RunE: runList,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered events as an iCalendar file",
	RunE:  runExport,
}

func init() {
	gridFlags.register(gridCmd, true)
	listFlags.register(listCmd, false)
	exportFlags.register(exportCmd, false)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output path, - for stdout")
	exportCmd.Flags().StringVar(&exportName, "name", "Schedule", "calendar name")
}

func runGrid(cmd *cobra.Command, args []string) error {
	loc := cfg.Location()
	st, err := gridFlags.store(loc)
	if err != nil {
		return err
	}
	events, err := loadFor(cmd.Context(), cfg, st)
	if err != nil && len(events) == 0 {
		return err
	}
	engine := filter.New(filter.WithLocation(loc), filter.WithLanguage(cfg.Language()))
	return printGrid(cmd.OutOrStdout(), st, engine.Apply(events, st.Filters(), filter.Sort{}), loc, cfg.MaxEventsPerCell)
}

// printGrid writes one block per grid row: a header line of dates followed
// by the visible events of each day.
func printGrid(w io.Writer, st *viewstate.Store, events []model.Event, loc *time.Location, limit int) error {
	cells, err := st.Grid()
	if err != nil {
		return err
	}
	dates := make([]calendar.Date, len(cells))
	for i, c := range cells {
		dates[i] = c.Date
	}
	buckets := calendar.Bucket(events, dates, loc)
	if st.View() != calendar.Month {
		limit = 0
	}

	from, to := st.Range()
	fmt.Fprintf(w, "%s view, %s to %s\n", st.View(), from, to)
	for _, c := range cells {
		mark := " "
		switch {
		case c.Today:
			mark = "*"
		case !c.InMonth:
			mark = "~"
		}
		fmt.Fprintf(w, "\n%s %s %s\n", mark, c.Date.Weekday().String()[:3], c.Date)

		evs, more := buckets.Visible(c.Date, limit)
		for _, ev := range evs {
			fmt.Fprintf(w, "    %s  %s\n", when(ev, c.Date, loc), ev.Title)
		}
		if more > 0 {
			fmt.Fprintf(w, "    +%d more\n", more)
		}
	}
	return nil
}

func when(ev model.Event, day calendar.Date, loc *time.Location) string {
	if ev.AllDay {
		return "all day    "
	}
	if calendar.DateOf(ev.Start.In(loc)) != day {
		return "(cont.)    "
	}
	return ev.Start.In(loc).Format("15:04") + "–" + ev.End.In(loc).Format("15:04")
}

func runList(cmd *cobra.Command, args []string) error {
	loc := cfg.Location()
	st, err := listFlags.store(loc)
	if err != nil {
		return err
	}
	events, err := loadFor(cmd.Context(), cfg, st)
	if err != nil && len(events) == 0 {
		return err
	}
	engine := filter.New(filter.WithLocation(loc), filter.WithLanguage(cfg.Language()))
	list := engine.Apply(events, st.Filters(), st.Sort())

	fmt.Fprintln(cmd.OutOrStdout(), listTable(list, st.Sort(), loc))
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d events\n", len(list), len(events))
	return nil
}

func listTable(list []model.Event, s filter.Sort, loc *time.Location) string {
	header := func(f filter.Field) string {
		h := strings.ToUpper(string(f))
		if s.Field == f {
			if s.Dir == filter.Desc {
				return h + " ▼"
			}
			return h + " ▲"
		}
		return h
	}

	rows := make([][]string, 0, len(list))
	for _, ev := range list {
		start := ev.Start.In(loc).Format("2006-01-02 15:04")
		if ev.AllDay {
			start = ev.Start.Format("2006-01-02")
		}
		rows = append(rows, []string{
			ev.Title,
			start,
			string(ev.Priority),
			string(ev.Status),
			ev.AssigneeName,
			ev.Location,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(
			header(filter.FieldTitle),
			header(filter.FieldStart),
			header(filter.FieldPriority),
			header(filter.FieldStatus),
			header(filter.FieldAssignee),
			header(filter.FieldLocation),
		).
		Rows(rows...).
		String()
}

func runExport(cmd *cobra.Command, args []string) error {
	loc := cfg.Location()
	st, err := exportFlags.store(loc)
	if err != nil {
		return err
	}
	events, err := loadFor(cmd.Context(), cfg, st)
	if err != nil && len(events) == 0 {
		return err
	}
	engine := filter.New(filter.WithLocation(loc), filter.WithLanguage(cfg.Language()))
	body := ics.Export(engine.Apply(events, st.Filters(), st.Sort()), exportName, time.Now())

	if exportOutput == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), body)
		return err
	}
	return os.WriteFile(exportOutput, []byte(body), 0o644)
}
