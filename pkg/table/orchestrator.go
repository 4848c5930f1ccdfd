package table

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// Request describes one page to ensure. First and Last are the boundary state
// the controls take once the page is stored.
type Request struct {
	Page  int
	Query string
	First bool
	Last  bool
}

// Orchestrator serves pages from the cache or the fetch function. Concurrent
// requests for one page share a single fetch.
type Orchestrator struct {
	cache    *PageCache
	fetch    FetchFunc
	controls Controls
	log      *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	flights  map[string]*flight
	inflight map[int]int
	deferred map[int][]func()
}

// flight is the context of one shared fetch. It is detached from every
// caller's cancellation and cancelled once the last waiting caller returns.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewOrchestrator wires cache and fetch. controls and logger may be nil.
func NewOrchestrator(cache *PageCache, fetch FetchFunc, controls Controls, logger *slog.Logger) *Orchestrator {
	if controls == nil {
		controls = nopControls{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		cache:    cache,
		fetch:    fetch,
		controls: controls,
		log:      logger,
		flights:  make(map[string]*flight),
		inflight: make(map[int]int),
		deferred: make(map[int][]func()),
	}
}

// EnsurePage returns the records for req.Page. A cached page is returned
// without network access. On a miss the controls are disabled for the
// duration of the fetch and set from req's boundary state once it is stored.
// A failed fetch leaves the cache untouched and the controls disabled; the
// caller restores them from its own boundary state.
//
// Callers joining an in-flight fetch wait only as long as their own ctx
// allows. The fetch itself runs until the last waiting caller gives up. A
// fetch that started before the cache was cleared is not stored.
func (o *Orchestrator) EnsurePage(ctx context.Context, req Request) ([]*record.Record, error) {
	if recs, ok := o.cache.Get(req.Page); ok {
		return recs, nil
	}

	o.controls.SetPrevEnabled(false)
	o.controls.SetNextEnabled(false)

	epoch := o.cache.Epoch()
	key := strconv.FormatUint(epoch, 10) + "/" + strconv.Itoa(req.Page)
	f := o.join(ctx, key)
	ch := o.group.DoChan(key, func() (any, error) {
		if recs, ok := o.cache.Get(req.Page); ok {
			return recs, nil
		}
		o.mu.Lock()
		o.inflight[req.Page]++
		o.mu.Unlock()
		o.log.Debug("fetching page", "page", req.Page, "query", req.Query)
		recs, err := o.fetch(f.ctx, req.Query)
		o.settle(req.Page, recs, err, epoch)
		if err != nil {
			return nil, newFetchError(req.Page, err)
		}
		return recs, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		o.leave(key, f)
	case <-ctx.Done():
		o.leave(key, f)
		o.log.Debug("stopped waiting for page", "page", req.Page, "error", ctx.Err())
		return nil, newFetchError(req.Page, ctx.Err())
	}
	if res.Shared {
		o.log.Debug("joined in-flight fetch", "page", req.Page)
	}
	if res.Err != nil {
		o.log.Warn("page fetch failed", "page", req.Page, "error", res.Err)
		return nil, res.Err
	}

	o.controls.SetPrevEnabled(!req.First)
	o.controls.SetNextEnabled(!req.Last)
	return res.Val.([]*record.Record), nil
}

// join registers the caller as a waiter on the flight for key.
func (o *Orchestrator) join(ctx context.Context, key string) *flight {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		o.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter. The last one cancels the fetch and forgets the key
// so later callers start a fresh fetch.
func (o *Orchestrator) leave(key string, f *flight) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if o.flights[key] == f {
		delete(o.flights, key)
		o.group.Forget(key)
	}
}

// settle clears the in-flight mark and, when recs were stored, runs the
// mutations deferred while the fetch was outstanding.
func (o *Orchestrator) settle(page int, recs []*record.Record, err error, epoch uint64) {
	o.mu.Lock()
	stored := err == nil && o.cache.PutAt(page, recs, epoch)
	o.inflight[page]--
	last := o.inflight[page] <= 0
	if last {
		delete(o.inflight, page)
	}
	var fns []func()
	if stored || last {
		fns = o.deferred[page]
		delete(o.deferred, page)
	}
	o.mu.Unlock()

	if err == nil && !stored {
		o.log.Debug("discarding page fetched before the cache was cleared", "page", page)
	}
	if !stored && len(fns) > 0 {
		o.log.Warn("dropping deferred mutations for unstored page", "page", page, "count", len(fns))
		return
	}
	for _, fn := range fns {
		fn()
	}
}

// Defer queues fn until the in-flight fetch of page resolves. It reports
// false, without queuing, when no fetch of page is in flight.
func (o *Orchestrator) Defer(page int, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[page] == 0 {
		return false
	}
	o.deferred[page] = append(o.deferred[page], fn)
	return true
}

// DeferAny queues fn on every in-flight page; it runs once, after the first
// of them resolves. It reports false when nothing is in flight.
func (o *Orchestrator) DeferAny(fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.inflight) == 0 {
		return false
	}
	var once sync.Once
	run := func() { once.Do(fn) }
	for page := range o.inflight {
		o.deferred[page] = append(o.deferred[page], run)
	}
	return true
}

// InFlight reports whether page is being fetched.
func (o *Orchestrator) InFlight(page int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight[page] > 0
}
