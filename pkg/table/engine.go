// Package table is the paginated list engine shared by the list views. It
// keeps the server cursor, the page cache, a fixed pool of row slots and the
// active/selected state consistent while pages are fetched concurrently.
//
// An Engine is owned by one view. The rendering surface, the transport and
// the query state are collaborators supplied through Config.
package table

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// Config configures Initialize. Columns, Fetch and Surface are required.
type Config struct {
	// IDPrefix prefixes stable row ids: "<IDPrefix>-row-<id>".
	IDPrefix string
	// Columns are the header labels in render order.
	Columns []string
	// Transform renders columns not covered by the built-in rules.
	Transform Rule
	// OnRowClick is called with the clicked record after selection updates.
	OnRowClick func(rec *record.Record)
	// TimeLayout formats concrete temporal values. Defaults to DefaultTimeLayout.
	TimeLayout string

	Fetch    FetchFunc
	Surface  Surface
	Controls Controls
	Query    QueryState
	// MaxPage is the host's last page. Nil means a single page.
	MaxPage func() int
	// Seed is the first page as already rendered by the host, if any.
	Seed   []*record.Record
	Logger *slog.Logger
}

// Engine is one view's table. All methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	log      *slog.Logger
	columns  []Column
	cursor   *Cursor
	cache    *PageCache
	pool     *RowPool
	pipeline *Pipeline
	sel      *Selection
	orch     *Orchestrator
	controls Controls

	mu   sync.Mutex
	busy bool
	gen  uint64
}

// Initialize validates cfg, creates the row slots and renders the seed page.
func Initialize(cfg Config) (*Engine, error) {
	columns := ParseColumns(cfg.Columns...)
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if cfg.Surface == nil {
		return nil, ErrNoSurface
	}
	if cfg.Fetch == nil {
		return nil, ErrNoFetch
	}
	if cfg.Query == nil {
		cfg.Query = NewQueryState(nil)
	}
	if cfg.Controls == nil {
		cfg.Controls = nopControls{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	limit := ParseInt(cfg.Query, ParamLimit, DefaultLimit)
	offset := ParseInt(cfg.Query, ParamOffset, DefaultOffset)
	cursor, err := NewCursor(limit, offset, cfg.MaxPage, cfg.Query)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		log:      logger.With("table", cfg.IDPrefix),
		columns:  columns,
		cursor:   cursor,
		cache:    NewPageCache(limit),
		pipeline: NewPipeline(cfg.TimeLayout, cfg.Transform),
		controls: cfg.Controls,
	}
	e.sel = NewSelection(cfg.Surface, limit)
	e.orch = NewOrchestrator(e.cache, cfg.Fetch, cfg.Controls, e.log)
	e.pool = NewRowPool(limit, cfg.IDPrefix, columns, e.pipeline, cfg.Surface, func(ordinal int) {
		e.Click(ordinal)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.Seed != nil {
		e.cache.Put(1, cfg.Seed)
		if err := e.renderLocked(); err != nil {
			return nil, err
		}
	}
	e.refreshControlsLocked()
	e.log.Debug("table initialized", "limit", limit, "offset", offset, "columns", len(columns))
	return e, nil
}

func (e *Engine) Cursor() *Cursor { return e.cursor }
func (e *Engine) Cache() *PageCache { return e.cache }
func (e *Engine) Pool() *RowPool { return e.pool }
func (e *Engine) Columns() []Column { return e.columns }
func (e *Engine) Orchestrator() *Orchestrator { return e.orch }

// Selection exposes the selection state. Callers must not mutate it while
// the engine is in use; use Click instead.
func (e *Engine) Selection() *Selection { return e.sel }

// HasData reports whether any cached page has records.
func (e *Engine) HasData() bool { return e.cache.HasData() }

// Busy reports whether a navigation fetch is outstanding.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// RenderCurrentPage rebinds the cached records of the current page. It is a
// no-op when the page is not cached.
func (e *Engine) RenderCurrentPage() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderLocked()
}

func (e *Engine) renderLocked() error {
	return e.renderPageLocked(e.cursor.Current())
}

// renderPageLocked binds the cached records of page.
func (e *Engine) renderPageLocked(page int) error {
	recs, ok := e.cache.Get(page)
	if !ok {
		return nil
	}
	return e.bindLocked(page, recs)
}

// latest prefers the cached page, which carries mutations deferred during the
// fetch, over the fetched records. A fetch that was not stored binds as is.
func (e *Engine) latest(page int, fetched []*record.Record) []*record.Record {
	if recs, ok := e.cache.Get(page); ok {
		return recs
	}
	return fetched
}

// bindLocked fills the pool with recs and resets the selection. The pool
// and the selection are untouched when a rule fails.
func (e *Engine) bindLocked(page int, recs []*record.Record) error {
	active, err := e.pool.Fill(recs)
	if err != nil {
		return err
	}
	switch len(active) {
	case 0:
		e.sel.Reset(none)
	case 1:
		e.sel.Reset(active[0])
	default:
		e.log.Warn("more than one active record on page, using the first", "page", page, "count", len(active))
		e.sel.Reset(active[0])
	}
	return nil
}

func (e *Engine) refreshControlsLocked() {
	if e.busy {
		e.controls.SetPrevEnabled(false)
		e.controls.SetNextEnabled(false)
	} else {
		e.controls.SetPrevEnabled(!e.cursor.IsFirst())
		e.controls.SetNextEnabled(!e.cursor.IsLast())
	}
	e.controls.SetPage(e.cursor.Current(), e.cursor.MaxPage())
}

// RefreshControls re-derives the control state, for hosts whose MaxPage
// changed outside a navigation.
func (e *Engine) RefreshControls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshControlsLocked()
}

// Load ensures the current page is cached and renders it.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	pos := e.cursor.Position()
	req := Request{
		Page:  pos.Page,
		Query: e.cursor.QueryFor(pos),
		First: e.cursor.IsFirst(),
		Last:  e.cursor.IsLast(),
	}
	gen := e.gen
	e.mu.Unlock()

	recs, err := e.orch.EnsurePage(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.refreshControlsLocked()
		return err
	}
	if gen != e.gen || e.cursor.Current() != req.Page {
		e.log.Debug("discarding stale page", "page", req.Page)
		return nil
	}
	e.refreshControlsLocked()
	return e.bindLocked(req.Page, e.latest(req.Page, recs))
}

// Refresh drops every cached page and reloads the current one. Responses of
// navigations started before the call are discarded.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	e.gen++
	e.busy = false
	e.cache.Clear()
	e.mu.Unlock()
	return e.Load(ctx)
}

// Navigate moves one page in dir. It reports false without error at a
// boundary, while another navigation is in flight, or when the response
// arrived after the view moved on. On a FetchError or a TransformError the
// cursor, rows and selection keep their last-good state.
func (e *Engine) Navigate(ctx context.Context, dir Direction) (bool, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		e.log.Debug("navigation ignored", "direction", dir.String(), "error", ErrBusy)
		return false, nil
	}
	normalizer := 0
	if _, ok := e.sel.Active(); ok {
		normalizer = 1
	}
	pos, ok := e.cursor.Step(dir, normalizer)
	if !ok {
		e.refreshControlsLocked()
		e.mu.Unlock()
		return false, nil
	}
	req := Request{
		Page:  pos.Page,
		Query: e.cursor.QueryFor(pos),
		First: pos.Page <= 1,
		Last:  pos.Page >= e.cursor.MaxPage(),
	}
	e.busy = true
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	e.log.Debug("navigate", "direction", dir.String(), "page", pos.Page, "offset", pos.Offset, "limit", pos.Limit)
	recs, err := e.orch.EnsurePage(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.gen {
		e.busy = false
	}
	if err != nil {
		e.refreshControlsLocked()
		return false, err
	}
	if gen != e.gen {
		e.log.Debug("discarding stale page", "page", req.Page)
		e.refreshControlsLocked()
		return false, nil
	}
	if err := e.bindLocked(pos.Page, e.latest(pos.Page, recs)); err != nil {
		e.refreshControlsLocked()
		return false, err
	}
	e.cursor.Commit(pos)
	e.refreshControlsLocked()
	return true, nil
}

// Click applies the selection transitions for a row click and then calls
// the configured OnRowClick with the slot's record. Hidden slots ignore
// clicks.
func (e *Engine) Click(ordinal int) {
	e.mu.Lock()
	slot := e.pool.Slot(ordinal)
	if slot == nil || !slot.Visible() {
		e.mu.Unlock()
		return
	}
	e.sel.Click(ordinal)
	rec := slot.Record()
	e.mu.Unlock()

	if e.cfg.OnRowClick != nil && rec != nil {
		e.cfg.OnRowClick(rec)
	}
}

// Active returns the record in the active slot.
func (e *Engine) Active() *record.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.sel.Active(); ok {
		return e.pool.Slot(i).Record()
	}
	return nil
}

// Selected returns the record in the selected slot.
func (e *Engine) Selected() *record.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.sel.Selected(); ok {
		return e.pool.Slot(i).Record()
	}
	return nil
}

// Highlighted returns the record in the highlighted slot. It is part of the
// caller API next to Active and Selected; the TUI reads highlight state from
// its surface instead.
func (e *Engine) Highlighted() *record.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.sel.Highlighted(); ok {
		return e.pool.Slot(i).Record()
	}
	return nil
}

// Prepend, Remove and Update are the local mutation API for hosts with
// create, delete or edit workflows, such as adding a round to the open
// session. The list views in this module are read-only and do not call them.

// Prepend pushes rec to the front of a cached page and drops the other
// cached pages. If page is being fetched the mutation is applied once the
// fetch resolves.
func (e *Engine) Prepend(page int, rec *record.Record) error {
	apply := func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.cache.Prepend(page, rec) {
			return ErrNotCached
		}
		return e.rerenderLocked(page)
	}
	if e.orch.Defer(page, func() { e.logMutation("prepend", page, apply()) }) {
		return nil
	}
	return apply()
}

// Remove splices record id out of a cached page. Deferred like Prepend.
func (e *Engine) Remove(page, id int) (bool, error) {
	var removed bool
	apply := func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		removed = e.cache.Remove(page, id)
		if !removed {
			return nil
		}
		return e.rerenderLocked(page)
	}
	if e.orch.Defer(page, func() { e.logMutation("remove", page, apply()) }) {
		return true, nil
	}
	err := apply()
	return removed, err
}

// Update mutates the cached record id in place and rebinds its slot if it is
// on screen. When the record is not cached yet but a fetch is in flight the
// mutation waits for it.
func (e *Engine) Update(id int, fn func(*record.Record)) (bool, error) {
	var found bool
	apply := func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		found = e.cache.Update(id, fn)
		if !found {
			return nil
		}
		return e.rebindLocked(id)
	}
	if _, page, ok := e.cache.Find(id); ok {
		if e.orch.Defer(page, func() { e.logMutation("update", page, apply()) }) {
			return true, nil
		}
		err := apply()
		return found, err
	}
	if e.orch.DeferAny(func() { e.logMutation("update", 0, apply()) }) {
		return true, nil
	}
	return false, nil
}

func (e *Engine) rerenderLocked(page int) error {
	if page != e.cursor.Current() {
		return nil
	}
	return e.renderLocked()
}

func (e *Engine) rebindLocked(id int) error {
	slot := e.pool.Find(id)
	if slot == nil {
		return nil
	}
	if err := e.pool.Bind(slot.Ordinal(), slot.Record()); err != nil {
		return err
	}
	active := none
	for i := 0; i < e.pool.Size(); i++ {
		if s := e.pool.Slot(i); s.Visible() && s.Active() {
			active = i
			break
		}
	}
	if cur, _ := e.sel.Active(); cur != active {
		e.sel.SetActive(active)
	}
	return nil
}

func (e *Engine) logMutation(op string, page int, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotCached) {
		e.log.Debug("deferred mutation found no page", "op", op, "page", page)
		return
	}
	e.log.Error("deferred mutation failed", "op", op, "page", page, "error", err)
}
