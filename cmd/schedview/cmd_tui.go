package main

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"schedview/internal/calendar"
	"schedview/internal/feed"
	"schedview/internal/filter"
	appLog "schedview/internal/log"
	"schedview/internal/tui"
	"schedview/internal/viewstate"
)

var tuiFresh bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the calendar interactively in the terminal",
	Long: `tui opens an interactive calendar. The view state (view, date, filters
and sort) is saved on every change and restored on the next start.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiFresh, "fresh", false, "ignore the saved view state")
}

// tuiStatePath is where the TUI persists its view state as a URL query.
func tuiStatePath() string {
	return filepath.Join(cfg.CacheDir, "tui-state")
}

func readState(path string) url.Values {
	data, err := os.ReadFile(path)
	if err != nil {
		return url.Values{}
	}
	q, err := url.ParseQuery(strings.TrimSpace(string(data)))
	if err != nil {
		appLog.Warn("ignoring unreadable tui state", "path", path, "error", err)
		return url.Values{}
	}
	return q
}

func writeState(path string) viewstate.Persister {
	return func(q url.Values) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			appLog.Error("failed to save tui state", err, "path", path)
			return
		}
		if err := os.WriteFile(path, []byte(q.Encode()+"\n"), 0o644); err != nil {
			appLog.Error("failed to save tui state", err, "path", path)
		}
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The log writes to stderr, which would tear the alt screen.
	appLog.SetLevel(appLog.LevelError)

	loc := cfg.Location()
	path := tuiStatePath()

	q := url.Values{}
	if !tuiFresh {
		q = readState(path)
	}
	store := viewstate.Hydrate(q,
		viewstate.WithPersister(writeState(path)),
		viewstate.WithNavigator(calendar.WithLocation(loc)),
	)

	ctx, stop := signalContext()
	defer stop()

	loader := feed.NewLoader(expanding(cfg, buildSources(cfg, time.Now)))
	m := tui.New(ctx, store, loader, tui.Options{
		Location:  loc,
		Engine:    filter.New(filter.WithLocation(loc), filter.WithLanguage(cfg.Language())),
		CellLimit: cfg.MaxEventsPerCell,
	})

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
