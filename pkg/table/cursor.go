package table

import (
	"net/url"
	"strconv"
	"sync"
)

// Query parameter names written by the cursor.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamPage   = "page"
)

// Default pagination when the query state carries no usable values.
const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// Direction is a navigation intent.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// Position is a cursor state: the 1-indexed page and the server skip count
// that produces it.
type Position struct {
	Page   int
	Offset int
	Limit  int
}

// Cursor tracks the current page, limit and offset. maxPage is supplied by
// the host and never computed here.
type Cursor struct {
	mu      sync.RWMutex
	pos     Position
	maxPage func() int
	query   QueryState
}

// NewCursor starts at page 1 with the given limit and offset.
func NewCursor(limit, offset int, maxPage func() int, query QueryState) (*Cursor, error) {
	if limit <= 0 {
		return nil, ErrBadLimit
	}
	if offset < 0 {
		offset = 0
	}
	if maxPage == nil {
		maxPage = func() int { return 1 }
	}
	if query == nil {
		query = NewQueryState(nil)
	}
	c := &Cursor{
		pos:     Position{Page: 1, Offset: offset, Limit: limit},
		maxPage: maxPage,
		query:   query,
	}
	query.SetSoft(ParamLimit, strconv.Itoa(limit))
	query.SetSoft(ParamOffset, strconv.Itoa(offset))
	return c, nil
}

// Current returns the current page.
func (c *Cursor) Current() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos.Page
}

// Position returns the full cursor state.
func (c *Cursor) Position() Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

func (c *Cursor) Limit() int { return c.Position().Limit }
func (c *Cursor) Offset() int { return c.Position().Offset }

// MaxPage returns the host's last page, never less than 1.
func (c *Cursor) MaxPage() int {
	return max(c.maxPage(), 1)
}

func (c *Cursor) IsFirst() bool { return c.Current() <= 1 }

func (c *Cursor) IsLast() bool { return c.Current() >= c.MaxPage() }

// Step computes the position one page in dir without changing the cursor.
// normalizer is 1 when an active record is pinned in the current view.
// ok is false at the first/last boundary.
func (c *Cursor) Step(dir Direction, normalizer int) (Position, bool) {
	c.mu.RLock()
	pos := c.pos
	c.mu.RUnlock()

	switch dir {
	case Next:
		if pos.Page >= c.MaxPage() {
			return pos, false
		}
		pos.Page++
		pos.Offset = pos.Limit + pos.Offset - normalizer
	case Prev:
		if pos.Page <= 1 {
			return pos, false
		}
		pos.Page--
		pos.Offset = max(pos.Offset-(pos.Limit-normalizer), 0)
	default:
		return pos, false
	}
	return pos, true
}

// Commit moves the cursor to pos and persists offset and page.
func (c *Cursor) Commit(pos Position) {
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
	c.query.SetSoft(ParamOffset, strconv.Itoa(pos.Offset))
	c.query.SetSoft(ParamPage, strconv.Itoa(pos.Page))
}

// Advance commits one page forward. It reports false at the last page.
func (c *Cursor) Advance(normalizer int) bool {
	pos, ok := c.Step(Next, normalizer)
	if ok {
		c.Commit(pos)
	}
	return ok
}

// Retreat commits one page backward. It reports false at page 1.
func (c *Cursor) Retreat(normalizer int) bool {
	pos, ok := c.Step(Prev, normalizer)
	if ok {
		c.Commit(pos)
	}
	return ok
}

// QueryFor encodes the query state with pos applied, leaving the stored
// state untouched.
func (c *Cursor) QueryFor(pos Position) string {
	vals, err := url.ParseQuery(c.query.Encode())
	if err != nil {
		vals = url.Values{}
	}
	vals.Set(ParamLimit, strconv.Itoa(pos.Limit))
	vals.Set(ParamOffset, strconv.Itoa(pos.Offset))
	vals.Del(ParamPage)
	return vals.Encode()
}

// Query encodes the current position.
func (c *Cursor) Query() string { return c.QueryFor(c.Position()) }

// ParseInt reads an integer query parameter, returning def when
// the parameter is absent or malformed.
func ParseInt(q QueryState, name string, def int) int {
	raw := q.Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
