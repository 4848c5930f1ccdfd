package table

import (
	"slices"
	"sync"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// PageCache maps pages to the records last fetched for them. Entries live as
// long as the view; only the mutation methods change them.
type PageCache struct {
	mu    sync.RWMutex
	limit int
	epoch uint64
	pages map[int][]*record.Record
}

// NewPageCache returns an empty cache whose pages hold at most limit records.
func NewPageCache(limit int) *PageCache {
	return &PageCache{limit: limit, pages: make(map[int][]*record.Record)}
}

// Get returns the cached records for page.
func (c *PageCache) Get(page int) ([]*record.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	recs, ok := c.pages[page]
	return recs, ok
}

func (c *PageCache) Has(page int) bool {
	_, ok := c.Get(page)
	return ok
}

// Put stores recs for page, replacing any previous entry.
func (c *PageCache) Put(page int, recs []*record.Record) {
	if recs == nil {
		recs = []*record.Record{}
	}
	c.mu.Lock()
	c.pages[page] = recs
	c.mu.Unlock()
}

// PutAt stores recs for page only if the cache has not been cleared since
// epoch was read. It reports whether recs were stored.
func (c *PageCache) PutAt(page int, recs []*record.Record, epoch uint64) bool {
	if recs == nil {
		recs = []*record.Record{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	c.pages[page] = recs
	return true
}

// Epoch counts Clear calls.
func (c *PageCache) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Clear drops every page and starts a new epoch.
func (c *PageCache) Clear() {
	c.mu.Lock()
	c.pages = make(map[int][]*record.Record)
	c.epoch++
	c.mu.Unlock()
}

// Pages returns the cached page numbers in ascending order.
func (c *PageCache) Pages() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int, 0, len(c.pages))
	for p := range c.pages {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// HasData reports whether any cached page holds at least one record.
func (c *PageCache) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, recs := range c.pages {
		if len(recs) > 0 {
			return true
		}
	}
	return false
}

// Prepend pushes rec to the front of page, trimming the tail to the limit.
// Every other cached page is dropped since its server offset has shifted.
func (c *PageCache) Prepend(page int, rec *record.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.pages[page]
	if !ok {
		return false
	}
	next := make([]*record.Record, 0, min(len(recs)+1, c.limit))
	next = append(next, rec)
	for _, r := range recs {
		if len(next) >= c.limit {
			break
		}
		next = append(next, r)
	}
	c.pages = map[int][]*record.Record{page: next}
	return true
}

// Remove splices the record with id out of page. Nothing moves in from the
// following page.
func (c *PageCache) Remove(page, id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.pages[page]
	if !ok {
		return false
	}
	i := slices.IndexFunc(recs, func(r *record.Record) bool { return r.ID == id })
	if i < 0 {
		return false
	}
	c.pages[page] = slices.Delete(slices.Clone(recs), i, i+1)
	return true
}

// Find returns the first cached record with id and its page.
func (c *PageCache) Find(id int) (*record.Record, int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pages := make([]int, 0, len(c.pages))
	for p := range c.pages {
		pages = append(pages, p)
	}
	slices.Sort(pages)
	for _, p := range pages {
		for _, r := range c.pages[p] {
			if r.ID == id {
				return r, p, true
			}
		}
	}
	return nil, 0, false
}

// Update mutates every cached record with id in place. Records are shared by
// pointer, so the change is visible through every page holding them.
func (c *PageCache) Update(id int, fn func(*record.Record)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[*record.Record]bool{}
	for _, recs := range c.pages {
		for _, r := range recs {
			if r.ID == id && !seen[r] {
				seen[r] = true
				fn(r)
			}
		}
	}
	return len(seen) > 0
}
