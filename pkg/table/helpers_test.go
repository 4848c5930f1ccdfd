package table

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

var baseTime = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

// rec builds a finished record, or an in-progress one when active.
func rec(id int, active bool) *record.Record {
	started := baseTime.Add(time.Duration(id) * time.Hour)
	m := map[string]any{
		"id":      id,
		"started": started.Format(time.RFC3339),
		"ended":   started.Add(90 * time.Minute).Format(time.RFC3339),
		"rounds":  []any{"a", "b"},
	}
	if active {
		m["ended"] = nil
	}
	r, err := record.FromMap(m)
	if err != nil {
		panic(err)
	}
	return r
}

func recs(ids ...int) []*record.Record {
	out := make([]*record.Record, len(ids))
	for i, id := range ids {
		out[i] = rec(id, false)
	}
	return out
}

type surfaceCall struct {
	op      string
	ordinal int
	arg     string
}

type fakeSurface struct {
	mu        sync.Mutex
	created   []int
	visible   map[int]bool
	cells     map[int]map[string]string
	ids       map[int]string
	active    map[int]bool
	highlight map[int]bool
	clicks    map[int]func()
	calls     []surfaceCall
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		visible:   map[int]bool{},
		cells:     map[int]map[string]string{},
		ids:       map[int]string{},
		active:    map[int]bool{},
		highlight: map[int]bool{},
		clicks:    map[int]func(){},
	}
}

func (f *fakeSurface) note(op string, ordinal int, arg string) {
	f.calls = append(f.calls, surfaceCall{op: op, ordinal: ordinal, arg: arg})
}

func (f *fakeSurface) CreateSlot(ordinal int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, ordinal)
	f.cells[ordinal] = map[string]string{}
	f.note("create", ordinal, "")
}

func (f *fakeSurface) ShowSlot(ordinal int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[ordinal] = true
	f.note("show", ordinal, "")
}

func (f *fakeSurface) HideSlot(ordinal int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[ordinal] = false
	f.note("hide", ordinal, "")
}

func (f *fakeSurface) SetCell(ordinal int, column string, v Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[ordinal][column] = v.String()
	f.note("cell", ordinal, column+"="+v.String())
}

func (f *fakeSurface) SetSlotID(ordinal int, rowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[ordinal] = rowID
	f.note("id", ordinal, rowID)
}

func (f *fakeSurface) SetSlotActive(ordinal int, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[ordinal] = active
	f.note("active", ordinal, strconv.FormatBool(active))
}

func (f *fakeSurface) SetHighlight(ordinal int, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.highlight[ordinal] = on
}

func (f *fakeSurface) OnRowClick(ordinal int, handler func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks[ordinal] = handler
}

func (f *fakeSurface) click(ordinal int) {
	f.mu.Lock()
	h := f.clicks[ordinal]
	f.mu.Unlock()
	h()
}

func (f *fakeSurface) visibleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.visible {
		if v {
			n++
		}
	}
	return n
}

func (f *fakeSurface) highlighted() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for i := 0; i < len(f.created); i++ {
		if f.highlight[i] {
			out = append(out, i)
		}
	}
	return out
}

func (f *fakeSurface) cell(ordinal int, column string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells[ordinal][column]
}

type fakeControls struct {
	mu       sync.Mutex
	prev     bool
	next     bool
	current  int
	max      int
	disables int
}

func (c *fakeControls) SetPrevEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prev = enabled
	if !enabled {
		c.disables++
	}
}

func (c *fakeControls) SetNextEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = enabled
}

func (c *fakeControls) SetPage(current, max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current, c.max = current, max
}

func (c *fakeControls) state() (prev, next bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prev, c.next
}

// fakeServer pages records the way the wager API does: the active record is
// prepended to every page and limit-1 others are read from offset.
type fakeServer struct {
	mu      sync.Mutex
	active  *record.Record
	others  []*record.Record
	queries []string
	err     error
	gate    chan struct{}
	started chan struct{}
}

func (s *fakeServer) fetch(ctx context.Context, query string) ([]*record.Record, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	gate, err, started := s.gate, s.err, s.started
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	vals, perr := url.ParseQuery(query)
	if perr != nil {
		return nil, perr
	}
	limit, _ := strconv.Atoi(vals.Get("limit"))
	offset, _ := strconv.Atoi(vals.Get("offset"))
	var page []*record.Record
	if s.active != nil {
		page = append(page, s.active)
	}
	for i := offset; i < len(s.others) && len(page) < limit; i++ {
		page = append(page, s.others[i])
	}
	return page, nil
}

func (s *fakeServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *fakeServer) lastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return nil
	}
	v, _ := url.ParseQuery(s.queries[len(s.queries)-1])
	return v
}

// simulatedServer holds 25 records: id 25 is active, the rest are ordered
// newest first.
func simulatedServer() *fakeServer {
	s := &fakeServer{active: rec(25, true)}
	for id := 24; id >= 1; id-- {
		s.others = append(s.others, rec(id, false))
	}
	return s
}

type detailErr struct{ msg, detail string }

func (e detailErr) Error() string { return e.msg }
func (e detailErr) Detail() string { return e.detail }

var errBoom = errors.New("boom")

var sessionColumns = []string{"ID", "Started", "Ended", "Duration", "Rounds"}
