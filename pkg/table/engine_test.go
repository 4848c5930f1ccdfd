package table

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

type engineFixture struct {
	engine   *Engine
	surface  *fakeSurface
	controls *fakeControls
	server   *fakeServer
	query    *Query
	clicked  []*record.Record
}

func newEngine(t *testing.T, srv *fakeServer, maxPage int, seed []*record.Record) *engineFixture {
	t.Helper()
	f := &engineFixture{
		surface:  newFakeSurface(),
		controls: &fakeControls{},
		server:   srv,
		query:    NewQueryState(url.Values{}),
	}
	e, err := Initialize(Config{
		IDPrefix:   "sessions",
		Columns:    sessionColumns,
		OnRowClick: func(r *record.Record) { f.clicked = append(f.clicked, r) },
		Fetch:      srv.fetch,
		Surface:    f.surface,
		Controls:   f.controls,
		Query:      f.query,
		MaxPage:    func() int { return maxPage },
		Seed:       seed,
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	f.engine = e
	return f
}

// visibleIDs reads the record ids currently bound to shown slots.
func (f *engineFixture) visibleIDs() []int {
	var out []int
	pool := f.engine.Pool()
	for i := 0; i < pool.Size(); i++ {
		if s := pool.Slot(i); s.Visible() {
			out = append(out, s.Record().ID)
		}
	}
	return out
}

func TestEngineSimulatedServer(t *testing.T) {
	srv := simulatedServer()
	f := newEngine(t, srv, 3, nil)
	ctx := context.Background()

	if err := f.engine.Load(ctx); err != nil {
		t.Fatal(err)
	}

	seen := map[int]int{}
	var offsets []string
	for page := 1; ; page++ {
		got := f.visibleIDs()
		if len(got) == 0 || got[0] != 25 {
			t.Fatalf("page %d: active record not pinned first: %v", page, got)
		}
		for _, id := range got[1:] {
			if id == 25 {
				t.Fatalf("page %d: active record repeated: %v", page, got)
			}
			seen[id]++
		}
		if a := f.engine.Active(); a == nil || a.ID != 25 {
			t.Fatalf("page %d: Active() = %v", page, a)
		}
		if h := f.surface.highlighted(); fmt.Sprint(h) != "[0]" {
			t.Fatalf("page %d: highlighted %v", page, h)
		}
		offsets = append(offsets, f.query.Get("offset"))

		moved, err := f.engine.Navigate(ctx, Next)
		if err != nil {
			t.Fatal(err)
		}
		if !moved {
			if page != 3 {
				t.Fatalf("stopped at page %d", page)
			}
			break
		}
	}

	if fmt.Sprint(offsets) != "[0 9 18]" {
		t.Errorf("offsets = %v", offsets)
	}
	for id := 1; id <= 24; id++ {
		if seen[id] != 1 {
			t.Errorf("record %d seen %d times", id, seen[id])
		}
	}
	if srv.calls() != 3 {
		t.Errorf("fetches = %d, want 3", srv.calls())
	}

	// Going back is served from the cache with consistent offsets.
	for _, want := range []string{"9", "0"} {
		moved, err := f.engine.Navigate(ctx, Prev)
		if err != nil || !moved {
			t.Fatalf("Prev: moved=%v err=%v", moved, err)
		}
		if f.query.Get("offset") != want {
			t.Errorf("offset after prev = %s, want %s", f.query.Get("offset"), want)
		}
	}
	if srv.calls() != 3 {
		t.Errorf("cached pages refetched: %d calls", srv.calls())
	}
	if moved, _ := f.engine.Navigate(ctx, Prev); moved {
		t.Error("Prev at page 1 should report false")
	}
	if prev, next := f.controls.state(); prev || !next {
		t.Errorf("controls on page 1: prev=%v next=%v", prev, next)
	}
}

func TestEngineNextOffsetWithActive(t *testing.T) {
	seed := recs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	seed[0] = rec(1, true)
	srv := &fakeServer{}
	f := newEngine(t, srv, 2, seed)

	if srv.calls() != 0 {
		t.Fatal("seeded page should not be fetched")
	}
	if _, err := f.engine.Navigate(context.Background(), Next); err != nil {
		t.Fatal(err)
	}
	if got := srv.lastQuery().Get("offset"); got != "9" {
		t.Errorf("requested offset = %s, want 9", got)
	}
}

func TestEngineLocalDelete(t *testing.T) {
	srv := &fakeServer{others: recs(11, 12, 13)}
	f := newEngine(t, srv, 2, recs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	removed, err := f.engine.Remove(1, 5)
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	if fmt.Sprint(f.visibleIDs()) != "[1 2 3 4 6 7 8 9 10]" {
		t.Errorf("visible = %v", f.visibleIDs())
	}
	if f.surface.visibleCount() != 9 {
		t.Errorf("surface shows %d rows", f.surface.visibleCount())
	}
	if srv.calls() != 0 {
		t.Error("delete must not fetch")
	}
}

func TestEnginePrependRound(t *testing.T) {
	srv := simulatedServer()
	f := newEngine(t, srv, 3, nil)
	ctx := context.Background()
	if err := f.engine.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Navigate(ctx, Next); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Navigate(ctx, Prev); err != nil {
		t.Fatal(err)
	}

	if err := f.engine.Prepend(1, rec(26, true)); err != nil {
		t.Fatal(err)
	}
	got := f.visibleIDs()
	if len(got) != 10 || got[0] != 26 || got[9] != 17 {
		t.Errorf("visible after prepend = %v", got)
	}
	if f.engine.Cache().Has(2) {
		t.Error("page 2 should be dropped after prepend")
	}
	if err := f.engine.Prepend(3, rec(27, false)); !errors.Is(err, ErrNotCached) {
		t.Errorf("prepend to uncached page: %v", err)
	}
}

func TestEngineUpdateRebinds(t *testing.T) {
	seed := []*record.Record{rec(3, true), rec(2, false), rec(1, false)}
	f := newEngine(t, &fakeServer{}, 1, seed)
	f.surface.click(1)

	ok, err := f.engine.Update(3, func(r *record.Record) {
		r.Set("rounds", []any{1, 2, 3})
	})
	if err != nil || !ok {
		t.Fatalf("Update ok=%v err=%v", ok, err)
	}
	if f.surface.cell(0, "rounds") != "3" {
		t.Errorf("rounds cell = %q", f.surface.cell(0, "rounds"))
	}
	if s := f.engine.Selected(); s == nil || s.ID != 2 {
		t.Errorf("Update should keep the selection, got %v", s)
	}

	// Ending the active record clears the active pointer.
	if _, err := f.engine.Update(3, func(r *record.Record) {
		end, _ := record.ParseTemporal("2024-05-01T23:00:00Z")
		r.Set("ended", end)
	}); err != nil {
		t.Fatal(err)
	}
	if f.engine.Active() != nil {
		t.Error("ended record still active")
	}
	if ok, _ := f.engine.Update(42, func(*record.Record) {}); ok {
		t.Error("unknown id should report false")
	}
}

func TestEngineFetchErrorKeepsState(t *testing.T) {
	srv := simulatedServer()
	f := newEngine(t, srv, 3, nil)
	ctx := context.Background()
	if err := f.engine.Load(ctx); err != nil {
		t.Fatal(err)
	}
	before := f.visibleIDs()

	srv.mu.Lock()
	srv.err = errBoom
	srv.mu.Unlock()
	moved, err := f.engine.Navigate(ctx, Next)
	var fe *FetchError
	if moved || !errors.As(err, &fe) || fe.Page != 2 {
		t.Fatalf("moved=%v err=%v", moved, err)
	}
	if f.engine.Cursor().Current() != 1 || f.query.Get("offset") != "0" {
		t.Errorf("cursor moved: page=%d offset=%s", f.engine.Cursor().Current(), f.query.Get("offset"))
	}
	if fmt.Sprint(f.visibleIDs()) != fmt.Sprint(before) {
		t.Errorf("rows changed on error: %v", f.visibleIDs())
	}
	if prev, next := f.controls.state(); prev || !next {
		t.Errorf("controls not restored: prev=%v next=%v", prev, next)
	}
	if f.engine.Busy() {
		t.Error("engine left busy")
	}
}

func TestEngineNavigateWhileBusy(t *testing.T) {
	srv := simulatedServer()
	f := newEngine(t, srv, 3, nil)
	ctx := context.Background()
	if err := f.engine.Load(ctx); err != nil {
		t.Fatal(err)
	}

	srv.mu.Lock()
	srv.gate = make(chan struct{})
	srv.started = make(chan struct{}, 1)
	srv.mu.Unlock()

	done := make(chan bool, 1)
	go func() {
		moved, err := f.engine.Navigate(ctx, Next)
		if err != nil {
			t.Error(err)
		}
		done <- moved
	}()
	<-srv.started

	if moved, err := f.engine.Navigate(ctx, Next); moved || err != nil {
		t.Errorf("concurrent Navigate: moved=%v err=%v", moved, err)
	}
	if prev, next := f.controls.state(); prev || next {
		t.Error("controls should be disabled while fetching")
	}
	close(srv.gate)
	if !<-done {
		t.Error("first navigation should succeed")
	}
	if f.engine.Cursor().Current() != 2 {
		t.Errorf("page = %d", f.engine.Cursor().Current())
	}
}

func TestEngineRefreshDiscardsStale(t *testing.T) {
	srv := simulatedServer()
	f := newEngine(t, srv, 3, nil)
	ctx := context.Background()
	if err := f.engine.Load(ctx); err != nil {
		t.Fatal(err)
	}

	srv.mu.Lock()
	srv.gate = make(chan struct{})
	srv.started = make(chan struct{}, 2)
	srv.mu.Unlock()

	done := make(chan bool, 1)
	go func() {
		moved, _ := f.engine.Navigate(ctx, Next)
		done <- moved
	}()
	<-srv.started

	refreshed := make(chan error, 1)
	go func() { refreshed <- f.engine.Refresh(ctx) }()
	<-srv.started
	close(srv.gate)

	if <-done {
		t.Error("navigation answered after a refresh must be discarded")
	}
	if err := <-refreshed; err != nil {
		t.Fatal(err)
	}
	if f.engine.Cursor().Current() != 1 {
		t.Errorf("page = %d, want 1", f.engine.Cursor().Current())
	}
	if f.engine.Cache().Has(2) {
		t.Error("a page fetched before the refresh must not repopulate the cache")
	}
}

func TestEngineClick(t *testing.T) {
	seed := []*record.Record{rec(3, true), rec(2, false)}
	f := newEngine(t, &fakeServer{}, 1, seed)

	f.surface.click(1)
	if s := f.engine.Selected(); s == nil || s.ID != 2 {
		t.Fatalf("Selected = %v", s)
	}
	if h := f.engine.Highlighted(); h == nil || h.ID != 2 {
		t.Errorf("Highlighted = %v", h)
	}
	f.surface.click(0)
	if f.engine.Selected() != nil {
		t.Error("clicking the active row clears the selection")
	}
	f.surface.click(5)
	if len(f.clicked) != 2 || f.clicked[0].ID != 2 || f.clicked[1].ID != 3 {
		t.Errorf("OnRowClick saw %v", ids(f.clicked))
	}
}

func TestEngineMultipleActive(t *testing.T) {
	seed := []*record.Record{rec(3, false), rec(2, true), rec(1, true)}
	f := newEngine(t, &fakeServer{}, 1, seed)
	if a := f.engine.Active(); a == nil || a.ID != 2 {
		t.Errorf("first active record should win, got %v", a)
	}
}

func TestInitializeValidation(t *testing.T) {
	srv := &fakeServer{}
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no columns", Config{Fetch: srv.fetch, Surface: newFakeSurface()}, ErrNoColumns},
		{"no surface", Config{Columns: []string{"ID"}, Fetch: srv.fetch}, ErrNoSurface},
		{"no fetch", Config{Columns: []string{"ID"}, Surface: newFakeSurface()}, ErrNoFetch},
		{"bad limit", Config{
			Columns: []string{"ID"}, Fetch: srv.fetch, Surface: newFakeSurface(),
			Query: NewQueryState(url.Values{"limit": {"0"}}),
		}, ErrBadLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Initialize(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInitializeDefaults(t *testing.T) {
	q := NewQueryState(url.Values{"limit": {"abc"}})
	e, err := Initialize(Config{Columns: []string{"ID"}, Fetch: (&fakeServer{}).fetch, Surface: newFakeSurface(), Query: q})
	if err != nil {
		t.Fatal(err)
	}
	if e.Pool().Size() != DefaultLimit || q.Get("limit") != "10" || q.Get("offset") != "0" {
		t.Errorf("size=%d query=%s", e.Pool().Size(), q.Encode())
	}
	if e.HasData() {
		t.Error("unseeded engine has data")
	}
	if err := e.RenderCurrentPage(); err != nil {
		t.Errorf("render of uncached page: %v", err)
	}
}

func TestEngineNavigateRuleErrorKeepsPage(t *testing.T) {
	srv := &fakeServer{others: recs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20)}
	surface := newFakeSurface()
	controls := &fakeControls{}
	query := NewQueryState(url.Values{})
	e, err := Initialize(Config{
		IDPrefix: "sessions",
		Columns:  sessionColumns,
		Transform: func(col Column, raw any, _ *Slot, r *record.Record) (Value, error) {
			if r.ID == 14 {
				return Value{}, errBoom
			}
			return TextValue(FormatRaw(raw)), nil
		},
		Fetch:    srv.fetch,
		Surface:  surface,
		Controls: controls,
		Query:    query,
		MaxPage:  func() int { return 2 },
		Seed:     recs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
	})
	if err != nil {
		t.Fatal(err)
	}
	e.Click(3)
	f := &engineFixture{engine: e, surface: surface}

	moved, err := e.Navigate(context.Background(), Next)
	var te *TransformError
	if moved || !errors.As(err, &te) || te.RecordID != 14 {
		t.Fatalf("Navigate = %v, %v", moved, err)
	}
	if e.Cursor().Current() != 1 || query.Get(ParamOffset) == "10" {
		t.Errorf("cursor moved: page %d offset %q", e.Cursor().Current(), query.Get(ParamOffset))
	}
	if got := fmt.Sprint(f.visibleIDs()); got != "[1 2 3 4 5 6 7 8 9 10]" {
		t.Errorf("rows = %s", got)
	}
	if surface.cell(0, "id") != "1" || surface.cell(9, "id") != "10" {
		t.Errorf("surface cells changed: %q %q", surface.cell(0, "id"), surface.cell(9, "id"))
	}
	if sel := e.Selected(); sel == nil || sel.ID != 4 {
		t.Errorf("selection = %v, want record 4", sel)
	}
	if prev, next := controls.state(); prev || !next {
		t.Errorf("controls = prev %v next %v", prev, next)
	}
}

func TestEngineAbsentEndedIsNotActive(t *testing.T) {
	sparse, err := record.FromMap(map[string]any{"id": 7, "started": "2024-05-01T18:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}
	f := newEngine(t, &fakeServer{}, 1, []*record.Record{sparse, rec(6, false)})
	if a := f.engine.Active(); a != nil {
		t.Errorf("record without ended became active: %v", a.ID)
	}
	if got := f.surface.cell(0, "ended"); got != "" {
		t.Errorf("ended cell = %q, want empty", got)
	}
	if f.surface.active[0] || f.surface.cell(0, "duration") != "-" {
		t.Errorf("active=%v duration=%q", f.surface.active[0], f.surface.cell(0, "duration"))
	}
}
