// Package source provides the wager API data sources consumed by the list
// views. HTTPSource talks to a running wager server; MockSource simulates one
// in memory for -use-mocks and tests. Both page their lists the way the server
// does: an active (unfinished) record is prepended to every page and the
// remaining limit-1 slots are filled from offset.
package source

import (
	"context"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// Source is the interface every wager data source implements.
type Source interface {
	// Name identifies the source in logs (e.g., "http", "mock").
	Name() string

	// Sessions returns one page of sessions. query carries limit and offset.
	Sessions(ctx context.Context, query string) ([]*record.Record, error)

	// Rounds returns one page of game sessions (rounds) of a session.
	Rounds(ctx context.Context, sessionID int, query string) ([]*record.Record, error)

	// Users maps user ids to display names.
	Users(ctx context.Context) (map[int]string, error)

	// Games maps game ids to game names.
	Games(ctx context.Context) (map[int]string, error)
}

// Counter is implemented by sources that know their list sizes, which lets
// the host compute an exact last page.
type Counter interface {
	SessionCount(ctx context.Context) (int, error)
	RoundCount(ctx context.Context, sessionID int) (int, error)
}

// MaxPage returns max(ceil(count/limit), 1).
func MaxPage(count, limit int) int {
	if limit <= 0 || count <= 0 {
		return 1
	}
	return max((count+limit-1)/limit, 1)
}
