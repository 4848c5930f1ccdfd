package pages

import (
	"context"
	"fmt"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
	"gitlab.com/tinyland/lab/wagerboard/pkg/source"
	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// RoundColumns are the rounds view headers.
var RoundColumns = []string{"ID", "Game", "Rounds", "Started", "Ended", "Duration"}

// NewRoundsView builds the game sessions list of one session. Players are
// resolved through users, looked up from the source when nil, and games
// through the source's game list.
func NewRoundsView(ctx context.Context, cfg Config, sessionID int, users map[int]string) (*View, error) {
	log := cfg.logger()
	if users == nil {
		users = lookupNames(ctx, log, "users", cfg.Source.Users)
	}
	games := lookupNames(ctx, log, "games", cfg.Source.Games)
	list := listDef{
		title:   fmt.Sprintf("Rounds of session %d", sessionID),
		name:    fmt.Sprintf("rounds-%d", sessionID),
		noun:    "game session",
		columns: RoundColumns,
		rule:    roundRule(games),
		fetch: func(ctx context.Context, query string) ([]*record.Record, error) {
			return cfg.Source.Rounds(ctx, sessionID, query)
		},
		names:  users,
		detail: resultDetail,
	}
	if c, ok := cfg.Source.(source.Counter); ok {
		list.count = func(ctx context.Context) (int, error) { return c.RoundCount(ctx, sessionID) }
	}
	return newView(ctx, cfg, list)
}

func roundRule(games map[int]string) table.Rule {
	return func(col table.Column, raw any, _ *table.Slot, rec *record.Record) (table.Value, error) {
		if col.Name == "game" {
			id, ok := record.Int(rec.Value("gameId"))
			if !ok {
				return table.TextValue("-"), nil
			}
			if name, ok := games[id]; ok {
				return table.TextValue(name), nil
			}
			return table.TextValue(fmt.Sprintf("game %d", id)), nil
		}
		return defaultCell(raw), nil
	}
}

// Users returns the player names the view resolves, for views opened from it.
func (v *View) Users() map[int]string { return v.names }
