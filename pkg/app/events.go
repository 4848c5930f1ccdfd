// Package app provides the event types, commands and view stack the
// wagerboard TUI is built from. Engine work runs inside tea.Cmd goroutines
// and reports back through the events defined here.
package app

import (
	"time"

	"gitlab.com/tinyland/lab/wagerboard/pkg/pages"
	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// LoadEvent reports a page load or refresh of View.
type LoadEvent struct {
	View *pages.View
	Err  error // Non-nil if the fetch failed
}

// NavigateEvent reports a prev/next navigation. Moved is false at a
// boundary, while another navigation was in flight, or for a stale response.
type NavigateEvent struct {
	View  *pages.View
	Dir   table.Direction
	Moved bool
	Err   error
}

// OpenEvent carries a newly built view to push onto the stack.
type OpenEvent struct {
	View *pages.View
	Err  error
}

// ResizeEvent carries the rebuilt view after a page size change. It replaces
// Old on the stack.
type ResizeEvent struct {
	Old  *pages.View
	View *pages.View
	Err  error
}

// TickEvent is sent periodically to trigger a refresh of the current view.
type TickEvent struct {
	Time time.Time
}
