package pages

import (
	"context"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
	"gitlab.com/tinyland/lab/wagerboard/pkg/source"
	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// SessionColumns are the sessions view headers.
var SessionColumns = []string{"ID", "Users", "Sessions", "Started", "Ended", "Duration"}

// NewSessionsView builds the sessions list. onOpen receives the clicked
// session; the host opens its rounds.
func NewSessionsView(ctx context.Context, cfg Config, onOpen func(*record.Record)) (*View, error) {
	log := cfg.logger()
	users := lookupNames(ctx, log, "users", cfg.Source.Users)
	list := listDef{
		title:   "Sessions",
		name:    "sessions",
		noun:    "session",
		columns: SessionColumns,
		rule:    sessionRule(users),
		fetch:   cfg.Source.Sessions,
		names:   users,
		onClick: onOpen,
		detail:  resultDetail,
	}
	if c, ok := cfg.Source.(source.Counter); ok {
		list.count = c.SessionCount
	}
	return newView(ctx, cfg, list)
}

func sessionRule(users map[int]string) table.Rule {
	return func(col table.Column, raw any, _ *table.Slot, rec *record.Record) (table.Value, error) {
		switch col.Name {
		case "users":
			return table.TextValue(joinNames(users, rec.Value("users"))), nil
		case "sessions":
			games, _ := rec.Value("gameSessions").([]any)
			return table.TextValue(strconv.Itoa(len(games))), nil
		}
		return defaultCell(raw), nil
	}
}

// joinNames renders an id list as comma separated names.
func joinNames(names map[int]string, raw any) string {
	ids, _ := raw.([]any)
	parts := make([]string, 0, len(ids))
	for _, v := range ids {
		id, ok := record.Int(v)
		if !ok {
			continue
		}
		parts = append(parts, playerName(names, id))
	}
	return strings.Join(parts, ", ")
}

// resultDetail summarizes a record's "result" field.
func resultDetail(rec *record.Record, names map[int]string) string {
	raw := rec.Value("result")
	if raw == nil {
		return "no result yet"
	}
	res, err := ParseResult(raw)
	if err != nil {
		return err.Error()
	}
	if len(res) == 0 {
		return "no result yet"
	}
	return res.Summary(names)
}
