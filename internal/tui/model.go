// Package tui is the interactive terminal calendar. All state transitions
// run on the Bubble Tea event loop; loads run as commands and report back
// with a message.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"schedview/internal/calendar"
	"schedview/internal/feed"
	"schedview/internal/filter"
	"schedview/internal/model"
	"schedview/internal/viewstate"
)

type pane int

const (
	paneGrid pane = iota
	paneList
)

// loadedMsg carries the outcome of a load back to the event loop.
type loadedMsg struct {
	events []model.Event
	err    error
}

// Options configures a Model.
type Options struct {
	Location  *time.Location
	Engine    *filter.Engine
	CellLimit int
}

// Model is the Bubble Tea model. It owns the view state store.
type Model struct {
	ctx    context.Context
	store  *viewstate.Store
	loader *feed.Loader
	engine *filter.Engine
	loc    *time.Location
	limit  int

	events  []model.Event
	err     error
	loading bool

	pane      pane
	search    textinput.Model
	searching bool

	width  int
	height int
	styles styles
}

// New builds a model over store. Loads go through loader, so a newer load
// always wins over one still in flight.
func New(ctx context.Context, store *viewstate.Store, loader *feed.Loader, opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Engine == nil {
		opts.Engine = filter.New(filter.WithLocation(opts.Location))
	}
	if opts.CellLimit <= 0 {
		opts.CellLimit = calendar.DefaultCellLimit
	}

	si := textinput.New()
	si.Prompt = "search: "
	si.Placeholder = "title, description or assignee"
	si.CharLimit = 80
	si.Width = 40
	si.SetValue(store.Filters().Search)

	return Model{
		ctx:    ctx,
		store:  store,
		loader: loader,
		engine: opts.Engine,
		loc:    opts.Location,
		limit:  opts.CellLimit,
		search: si,
		width:  100,
		height: 40,
		styles: defaultStyles(),
	}
}

// Init starts the first load.
func (m Model) Init() tea.Cmd {
	return m.reload()
}

// reload marks the model loading and returns the command doing the fetch.
func (m *Model) reload() tea.Cmd {
	m.loading = true
	ctx, loader, f := m.ctx, m.loader, m.store.Filters()
	return func() tea.Msg {
		events, err := loader.Load(ctx, f)
		if errors.Is(err, feed.ErrSuperseded) {
			return nil
		}
		return loadedMsg{events: events, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		// A failed load keeps the previous events on screen.
		if msg.err == nil || len(msg.events) > 0 {
			m.events = msg.events
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		if m.search.Value() == m.store.Filters().Search {
			return m, nil
		}
		m.store.SetSearch(m.search.Value())
		cmd := m.reload()
		return m, cmd
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.store.Filters().Search)
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.loader.Cancel()
		return m, tea.Quit

	case "n", "right":
		m.store.Next()
	case "p", "left":
		m.store.Previous()
	case "t":
		m.store.GoToday()
	case "d":
		m.store.SetView(calendar.Day)
	case "w":
		m.store.SetView(calendar.Week)
	case "m":
		m.store.SetView(calendar.Month)

	case "tab":
		if m.pane == paneGrid {
			m.pane = paneList
		} else {
			m.pane = paneGrid
		}

	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd

	case "s":
		m.store.SetStatus(cycle(m.store.Filters().Status, statusChoices))
		cmd := m.reload()
		return m, cmd
	case "f":
		m.store.SetPriority(cycle(m.store.Filters().Priority, priorityChoices))
		cmd := m.reload()
		return m, cmd
	case "x":
		m.store.ResetFilters()
		m.search.SetValue("")
		cmd := m.reload()
		return m, cmd

	case "1", "2", "3", "4", "5", "6", "7":
		i := int(key[0] - '1')
		m.store.ToggleSort(filter.Fields[i])
		m.pane = paneList

	case "r":
		cmd := m.reload()
		return m, cmd
	}
	return m, nil
}

var (
	statusChoices   = choices(model.Statuses)
	priorityChoices = choices(model.Priorities)
)

func choices[T ~string](vals []T) []string {
	out := []string{""}
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

// cycle returns the value after cur in opts, wrapping to the first.
func cycle(cur string, opts []string) string {
	for i, o := range opts {
		if o == cur {
			return opts[(i+1)%len(opts)]
		}
	}
	return opts[0]
}

// visible returns the events after the active filters, in list order when
// sorted is set.
func (m Model) visible(sorted bool) []model.Event {
	s := filter.Sort{}
	if sorted {
		s = m.store.Sort()
	}
	return m.engine.Apply(m.events, m.store.Filters(), s)
}
