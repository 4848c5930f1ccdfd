package table

import (
	"context"
	"net/url"
	"sync"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// FetchFunc retrieves one page of records. query is the encoded query string
// (limit, offset and any view parameters) without a leading '?'.
type FetchFunc func(ctx context.Context, query string) ([]*record.Record, error)

// Surface is the row-slot rendering capability. Ordinals run 0..limit-1 and
// are created exactly once per engine.
type Surface interface {
	CreateSlot(ordinal int)
	ShowSlot(ordinal int)
	HideSlot(ordinal int)
	SetCell(ordinal int, column string, v Value)
	SetSlotID(ordinal int, rowID string)
	SetSlotActive(ordinal int, active bool)
	SetHighlight(ordinal int, on bool)
	OnRowClick(ordinal int, handler func())
}

// Controls are the previous/next pagination controls and the page indicator.
type Controls interface {
	SetPrevEnabled(enabled bool)
	SetNextEnabled(enabled bool)
	SetPage(current, max int)
}

// QueryState persists view parameters without reloading the view.
type QueryState interface {
	Get(name string) string
	SetSoft(name, value string)
	Encode() string
}

type nopControls struct{}

func (nopControls) SetPrevEnabled(bool) {}
func (nopControls) SetNextEnabled(bool) {}
func (nopControls) SetPage(int, int) {}

// Query is an in-memory QueryState backed by url.Values.
type Query struct {
	mu       sync.RWMutex
	values   url.Values
	onChange func(encoded string)
}

// NewQueryState copies v into a new Query.
func NewQueryState(v url.Values) *Query {
	q := &Query{values: url.Values{}}
	for k, vals := range v {
		q.values[k] = append([]string(nil), vals...)
	}
	return q
}

// OnChange registers fn to receive the encoded query after every SetSoft.
func (q *Query) OnChange(fn func(encoded string)) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

func (q *Query) Get(name string) string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.values.Get(name)
}

func (q *Query) SetSoft(name, value string) {
	q.mu.Lock()
	q.values.Set(name, value)
	fn := q.onChange
	encoded := q.values.Encode()
	q.mu.Unlock()
	if fn != nil {
		fn(encoded)
	}
}

func (q *Query) Encode() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.values.Encode()
}
