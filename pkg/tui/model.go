// Package tui is the interactive terminal front end: a bubbletea program over
// a stack of paginated list views.
package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/wagerboard/pkg/app"
	"gitlab.com/tinyland/lab/wagerboard/pkg/config"
	"gitlab.com/tinyland/lab/wagerboard/pkg/pages"
	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// Options configures New.
type Options struct {
	// PageSizes are cycled by the page size key.
	PageSizes []int
	// Timeout bounds every fetch. Zero means no deadline.
	Timeout time.Duration
	// RefreshEvery reloads the current view periodically when positive.
	RefreshEvery time.Duration
	Zones        *zone.Manager
	Logger       *slog.Logger
}

// Model is the root bubbletea model.
type Model struct {
	stack   app.Stack
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	pager   paginator.Model
	opts    Options
	log     *slog.Logger

	width    int
	height   int
	pending  int
	err      error
	opening  *record.Record
	quitting bool
}

// New creates a model with no views. Push the root view before running it.
func New(opts Options) *Model {
	if len(opts.PageSizes) == 0 {
		opts.PageSizes = config.DefaultPageSizes()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	p := paginator.New()
	p.Type = paginator.Dots
	return &Model{
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: s,
		pager:   p,
		opts:    opts,
		log:     logger,
	}
}

// OpenSession is the sessions view click handler: the clicked session's
// rounds open after the click is processed.
func (m *Model) OpenSession(rec *record.Record) {
	m.opening = rec
}

// Push makes v the current view.
func (m *Model) Push(v *pages.View) {
	m.stack.Push(v)
}

// Current returns the view on top of the stack.
func (m *Model) Current() *pages.View { return m.stack.Current() }

// Err returns the error shown in the status line.
func (m *Model) Err() error { return m.err }

// Pending returns the number of fetches in flight.
func (m *Model) Pending() int { return m.pending }

// Keys returns the bindings with their current enabled state.
func (m *Model) Keys() KeyMap { return m.keys }

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if v := m.Current(); v != nil && !v.Engine.HasData() {
		m.pending++
		cmds = append(cmds, app.LoadCmd(v, m.opts.Timeout))
	}
	if m.opts.RefreshEvery > 0 {
		cmds = append(cmds, app.TickCmd(m.opts.RefreshEvery))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		v := m.Current()
		if v == nil || !v.Table.HandleMouse(msg) {
			return m, nil
		}
		return m, m.afterClick(v)

	case app.LoadEvent:
		m.settle(msg.View, msg.Err)
		return m, nil

	case app.NavigateEvent:
		m.settle(msg.View, msg.Err)
		if msg.Err == nil && !msg.Moved {
			m.log.Debug("navigation did not move", "direction", msg.Dir.String())
		}
		return m, nil

	case app.OpenEvent:
		m.pending = max(m.pending-1, 0)
		if msg.View != nil {
			m.stack.Push(msg.View)
		}
		m.err = msg.Err
		return m, nil

	case app.ResizeEvent:
		m.pending = max(m.pending-1, 0)
		if msg.View != nil && m.stack.Replace(msg.Old, msg.View) {
			m.log.Info("page size changed", "limit", msg.View.Limit())
		}
		m.err = msg.Err
		return m, nil

	case app.TickEvent:
		if m.opts.RefreshEvery <= 0 {
			return m, nil
		}
		cmds := []tea.Cmd{app.TickCmd(m.opts.RefreshEvery)}
		if v := m.Current(); v != nil && m.pending == 0 {
			m.pending++
			cmds = append(cmds, app.RefreshCmd(v, m.opts.Timeout))
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// settle records the outcome of a fetch. Results of views no longer on the
// stack are dropped.
func (m *Model) settle(v *pages.View, err error) {
	m.pending = max(m.pending-1, 0)
	if !m.stack.Contains(v) {
		return
	}
	m.err = err
	if err != nil {
		m.log.Warn("fetch failed", "view", v.Title, "error", err)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.syncKeys()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}

	v := m.Current()
	if v == nil {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Prev):
		return m.navigate(v, table.Prev)
	case key.Matches(msg, m.keys.Next):
		return m.navigate(v, table.Next)
	case key.Matches(msg, m.keys.Up):
		v.Table.MoveFocus(-1)
	case key.Matches(msg, m.keys.Down):
		v.Table.MoveFocus(1)
	case key.Matches(msg, m.keys.Select):
		if v.Table.ClickFocused() {
			return m.afterClick(v)
		}
	case key.Matches(msg, m.keys.PageSize):
		next := config.NextPageSize(m.opts.PageSizes, v.Limit())
		if next == v.Limit() {
			return nil
		}
		m.pending++
		return app.ResizeCmd(v, next, m.opts.Timeout)
	case key.Matches(msg, m.keys.Refresh):
		m.pending++
		return app.RefreshCmd(v, m.opts.Timeout)
	case key.Matches(msg, m.keys.Back):
		if m.stack.Pop() {
			m.err = nil
		}
	}
	return nil
}

func (m *Model) navigate(v *pages.View, dir table.Direction) tea.Cmd {
	m.pending++
	return app.NavigateCmd(v, dir, m.opts.Timeout)
}

// afterClick opens the rounds of a session clicked in v.
func (m *Model) afterClick(v *pages.View) tea.Cmd {
	rec := m.opening
	m.opening = nil
	if rec == nil {
		return nil
	}
	cfg := v.Child()
	users := v.Users()
	m.pending++
	m.log.Debug("opening rounds", "session", rec.ID)
	return app.OpenCmd(func(ctx context.Context) (*pages.View, error) {
		return pages.NewRoundsView(ctx, cfg, rec.ID, users)
	}, m.opts.Timeout)
}

// syncKeys mirrors the current view's pagination controls onto the bindings.
func (m *Model) syncKeys() {
	v := m.Current()
	if v == nil {
		m.keys.Prev.SetEnabled(false)
		m.keys.Next.SetEnabled(false)
		return
	}
	m.keys.Prev.SetEnabled(v.Table.PrevEnabled())
	m.keys.Next.SetEnabled(v.Table.NextEnabled())
	m.keys.Back.SetEnabled(m.stack.Depth() > 1)
}

// statusError is the one-line form of err for the status bar.
func statusError(err error) string {
	var fe *table.FetchError
	if errors.As(err, &fe) {
		if fe.Detail != "" {
			return "error: " + fe.Message + " (" + fe.Detail + ")"
		}
		return "error: " + fe.Message
	}
	return "error: " + err.Error()
}
