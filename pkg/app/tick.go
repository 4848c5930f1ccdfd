package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/wagerboard/pkg/pages"
	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// TickCmd returns a Cmd that sends a TickEvent after d.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickEvent{Time: t}
	})
}

// withTimeout bounds an engine call. A zero timeout means no deadline.
func withTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// LoadCmd fetches the current page of v.
func LoadCmd(v *pages.View, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return LoadEvent{View: v, Err: v.Load(ctx)}
	}
}

// RefreshCmd drops v's cache and reloads its current page.
func RefreshCmd(v *pages.View, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return LoadEvent{View: v, Err: v.Engine.Refresh(ctx)}
	}
}

// NavigateCmd moves v one page in dir.
func NavigateCmd(v *pages.View, dir table.Direction, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		moved, err := v.Engine.Navigate(ctx, dir)
		return NavigateEvent{View: v, Dir: dir, Moved: moved, Err: err}
	}
}

// OpenCmd builds a view in the background and loads its first page. A load
// failure is still delivered with the view so the host can show it.
func OpenCmd(build func(ctx context.Context) (*pages.View, error), timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		v, err := build(ctx)
		if err != nil {
			return OpenEvent{Err: err}
		}
		if !v.Engine.HasData() {
			err = v.Load(ctx)
		}
		return OpenEvent{View: v, Err: err}
	}
}

// ResizeCmd rebuilds old with limit rows per page, starting over at offset
// 0, and loads the first page.
func ResizeCmd(old *pages.View, limit int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		v, err := old.Resize(ctx, limit)
		if err != nil {
			return ResizeEvent{Old: old, Err: err}
		}
		return ResizeEvent{Old: old, View: v, Err: v.Load(ctx)}
	}
}
