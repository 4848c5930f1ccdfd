// Package pages builds the two list views of the front end, sessions and the
// rounds of one session, on top of the table engine. Each view owns its
// engine, the slot table it renders into and its query state.
package pages

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/wagerboard/pkg/components"
	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
	"gitlab.com/tinyland/lab/wagerboard/pkg/source"
	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// Config is shared by both views.
type Config struct {
	Source source.Source
	Limit  int
	Offset int
	// Total is the record count when known up front. Zero asks the source
	// (when it implements source.Counter) and otherwise leaves the last page
	// open.
	Total      int
	TimeLayout string
	// IDPrefix prefixes row ids. Each view appends its own name.
	IDPrefix string
	Zones    *zone.Manager
	Logger   *slog.Logger
	// Seed is the first page when already fetched.
	Seed []*record.Record
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// View is one paginated list.
type View struct {
	Title  string
	Engine *table.Engine
	Table  *components.SlotTable
	Query  *table.Query

	cfg    Config
	list   listDef
	noun   string
	names  map[int]string
	limit  int
	total  int
	bound  *openBound
	detail func(rec *record.Record, names map[int]string) string
}

// Limit is the page size the view was built with.
func (v *View) Limit() int { return v.limit }

// Total is the known record count, 0 when open ended.
func (v *View) Total() int { return v.total }

// Detail renders the result summary of the selected row, or of the active
// row when nothing is selected. It is empty when there is neither.
func (v *View) Detail() (title, body string) {
	rec := v.Engine.Selected()
	if rec == nil {
		rec = v.Engine.Active()
	}
	if rec == nil || v.detail == nil {
		return "", ""
	}
	return fmt.Sprintf("%s %d", v.noun, rec.ID), v.detail(rec, v.names)
}

// Load fetches the current page.
func (v *View) Load(ctx context.Context) error { return v.Engine.Load(ctx) }

// Resize rebuilds the view with limit rows per page starting over at
// offset 0. The record count is looked up again unless it was given.
func (v *View) Resize(ctx context.Context, limit int) (*View, error) {
	cfg := v.cfg
	cfg.Limit = limit
	cfg.Offset = 0
	cfg.Seed = nil
	return newView(ctx, cfg, v.list)
}

// Child returns the configuration for a view opened from v: same source,
// page size and layout, first page, no seed.
func (v *View) Child() Config {
	cfg := v.cfg
	cfg.Limit = v.limit
	cfg.Offset = 0
	cfg.Seed = nil
	return cfg
}

// listDef is what differs between the views.
type listDef struct {
	title   string
	name    string
	noun    string
	columns []string
	rule    table.Rule
	fetch   table.FetchFunc
	count   func(ctx context.Context) (int, error)
	names   map[int]string
	onClick func(*record.Record)
	detail  func(rec *record.Record, names map[int]string) string
}

func newView(ctx context.Context, cfg Config, list listDef) (*View, error) {
	log := cfg.logger().With("view", list.name)
	limit := cfg.Limit
	if limit == 0 {
		limit = table.DefaultLimit
	}

	total := cfg.Total
	if total == 0 && list.count != nil {
		n, err := list.count(ctx)
		if err != nil {
			log.Warn("record count unavailable, leaving last page open", "error", err)
		} else {
			total = n
		}
	}

	v := &View{
		Title:  list.title,
		cfg:    cfg,
		list:   list,
		noun:   list.noun,
		names:  list.names,
		limit:  limit,
		total:  total,
		detail: list.detail,
	}
	maxPage := func() int { return source.MaxPage(total, limit) }
	if total == 0 {
		v.bound = &openBound{limit: limit}
		maxPage = v.bound.maxPage
	}

	v.Query = table.NewQueryState(map[string][]string{
		table.ParamLimit:  {fmt.Sprint(limit)},
		table.ParamOffset: {fmt.Sprint(cfg.Offset)},
	})
	v.Query.OnChange(func(encoded string) {
		log.Debug("query state", "query", encoded)
	})

	prefix := list.name
	if cfg.IDPrefix != "" {
		prefix = cfg.IDPrefix + "-" + list.name
	}
	v.Table = components.NewSlotTable(components.SlotTableConfig{
		Columns:    components.ColumnsFor(list.columns...),
		ShowBorder: true,
		Zones:      cfg.Zones,
		ZonePrefix: prefix + "-",
	})

	eng, err := table.Initialize(table.Config{
		IDPrefix:   prefix,
		Columns:    list.columns,
		Transform:  list.rule,
		OnRowClick: list.onClick,
		TimeLayout: cfg.TimeLayout,
		Fetch:      list.fetch,
		Surface:    v.Table,
		Controls:   v.Table,
		Query:      v.Query,
		MaxPage:    maxPage,
		Seed:       cfg.Seed,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("pages: %s: %w", list.name, err)
	}
	v.Engine = eng
	if v.bound != nil {
		v.bound.attach(eng)
	}
	return v, nil
}

// openBound is the last page when the record count is unknown: one past the
// current page while the current page came back full.
type openBound struct {
	mu    sync.Mutex
	limit int
	eng   *table.Engine
}

func (b *openBound) attach(eng *table.Engine) {
	b.mu.Lock()
	b.eng = eng
	b.mu.Unlock()
	eng.RefreshControls()
}

func (b *openBound) maxPage() int {
	b.mu.Lock()
	eng := b.eng
	b.mu.Unlock()
	if eng == nil {
		return 1
	}
	page := eng.Cursor().Current()
	recs, ok := eng.Cache().Get(page)
	if !ok || len(recs) >= b.limit {
		return page + 1
	}
	return page
}

// names resolves a lookup, logging and falling back to ids on failure.
func lookupNames(ctx context.Context, log *slog.Logger, what string, fn func(context.Context) (map[int]string, error)) map[int]string {
	names, err := fn(ctx)
	if err != nil {
		log.Warn("name lookup failed, showing ids", "names", what, "error", err)
		return map[int]string{}
	}
	return names
}

// defaultCell is the fallback rendering for columns a view does not
// special-case.
func defaultCell(raw any) table.Value {
	return table.TextValue(table.FormatRaw(raw))
}
