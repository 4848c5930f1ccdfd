package source

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// ErrNotFound is returned by MockSource for unknown session ids.
var ErrNotFound = &HTTPError{Status: 404, Message: "resource not found", ErrorText: "sql: no rows in result set"}

var (
	mockUsers = map[int]string{1: "alice", 2: "bob", 3: "carol", 4: "dave", 5: "erin"}
	mockGames = map[int]string{1: "Poker", 2: "Blackjack", 3: "Catan", 4: "Rummy"}
)

// MockSource implements Source and Counter over generated in-memory data. It
// tracks how many list calls were made.
type MockSource struct {
	mu       sync.RWMutex
	sessions []*record.Record
	rounds   map[int][]*record.Record
	err      error
	latency  time.Duration

	count    int
	roundMax int
	active   bool
	seed     int64
	base     time.Time

	callCount atomic.Int64

	// FetchFunc, if set, replaces list fetches. Tests use it to block or fail
	// individual calls.
	FetchFunc func(ctx context.Context, path, query string) ([]*record.Record, error)
}

// MockOption configures a MockSource.
type MockOption func(*MockSource)

// WithSessionCount sets how many sessions are generated.
func WithSessionCount(n int) MockOption {
	return func(m *MockSource) { m.count = n }
}

// WithMaxRounds bounds the game sessions generated per session.
func WithMaxRounds(n int) MockOption {
	return func(m *MockSource) { m.roundMax = n }
}

// WithActive controls whether the newest session (and its newest game
// session) is left in progress.
func WithActive(active bool) MockOption {
	return func(m *MockSource) { m.active = active }
}

// WithSeed makes generation deterministic.
func WithSeed(seed int64) MockOption {
	return func(m *MockSource) { m.seed = seed }
}

// WithLatency delays every list call.
func WithLatency(d time.Duration) MockOption {
	return func(m *MockSource) { m.latency = d }
}

// WithError makes every call fail with err.
func WithError(err error) MockOption {
	return func(m *MockSource) { m.err = err }
}

// WithBase sets the start time of the oldest session.
func WithBase(t time.Time) MockOption {
	return func(m *MockSource) { m.base = t }
}

// NewMockSource generates sessions with the given options. Defaults: 25
// sessions, up to 12 rounds each, newest session active, seed 1.
func NewMockSource(opts ...MockOption) *MockSource {
	m := &MockSource{
		count:    25,
		roundMax: 12,
		active:   true,
		seed:     1,
		base:     time.Date(2024, 1, 5, 19, 0, 0, 0, time.UTC),
		rounds:   map[int][]*record.Record{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.generate()
	return m
}

func (m *MockSource) generate() {
	rng := rand.New(rand.NewSource(m.seed))
	gameID := 0
	userIDs := make([]int, 0, len(mockUsers))
	for id := range mockUsers {
		userIDs = append(userIDs, id)
	}
	sort.Ints(userIDs)

	for id := 1; id <= m.count; id++ {
		started := m.base.Add(time.Duration(id-1) * 72 * time.Hour)
		active := m.active && id == m.count

		players := append([]int(nil), userIDs[:2+rng.Intn(len(userIDs)-1)]...)
		users := make([]any, len(players))
		for i, u := range players {
			users[i] = int64(u)
		}

		n := 1 + rng.Intn(max(m.roundMax, 1))
		games := make([]*record.Record, 0, n)
		at := started
		for g := 0; g < n; g++ {
			gameID++
			gActive := active && g == n-1
			length := time.Duration(5+rng.Intn(40)) * time.Minute
			rounds := 1 + rng.Intn(6)
			roundList := make([]any, rounds)
			for r := range roundList {
				roundList[r] = map[string]any{"id": int64(r + 1), "round": int64(r + 1), "wager": int64(5 * (1 + rng.Intn(4)))}
			}
			gs := record.New(gameID)
			gs.Set("gameId", int64(1+rng.Intn(len(mockGames))))
			gs.Set("sessionId", int64(id))
			gs.Set("rounds", roundList)
			gs.Set("started", record.At(at))
			if gActive {
				gs.Set("ended", record.Pending())
			} else {
				gs.Set("ended", record.At(at.Add(length)))
				gs.Set("result", mockResult(rng, players))
			}
			games = append(games, gs)
			at = at.Add(length + time.Duration(rng.Intn(10))*time.Minute)
		}
		m.rounds[id] = games

		gameSessions := make([]any, len(games))
		for i, g := range games {
			gameSessions[i] = map[string]any{"id": int64(g.ID), "gameId": g.Value("gameId")}
		}
		s := record.New(id)
		s.Set("users", users)
		s.Set("gameSessions", gameSessions)
		s.Set("started", record.At(started))
		if active {
			s.Set("ended", record.Pending())
		} else {
			s.Set("ended", record.At(at))
			s.Set("result", mockResult(rng, players))
		}
		m.sessions = append(m.sessions, s)
	}
}

// mockResult builds a map of who owes whom: result[debtor][creditor].
// Unfinished sessions carry no result.
func mockResult(rng *rand.Rand, players []int) map[string]any {
	out := make(map[string]any, len(players))
	for _, from := range players {
		owes := make(map[string]any, len(players)-1)
		for _, to := range players {
			if to == from {
				continue
			}
			amount := int64(0)
			if rng.Intn(3) == 0 {
				amount = int64(5 * (1 + rng.Intn(6)))
			}
			owes[strconv.Itoa(to)] = amount
		}
		out[strconv.Itoa(from)] = owes
	}
	return out
}

// Name returns "mock".
func (m *MockSource) Name() string { return "mock" }

// SetError updates the returned error (thread-safe).
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CallCount returns how many list calls were made.
func (m *MockSource) CallCount() int64 { return m.callCount.Load() }

func (m *MockSource) Sessions(ctx context.Context, query string) ([]*record.Record, error) {
	if m.FetchFunc != nil {
		m.callCount.Add(1)
		return m.FetchFunc(ctx, "/api/session", query)
	}
	m.mu.RLock()
	all := m.sessions
	m.mu.RUnlock()
	return m.page(ctx, all, query)
}

func (m *MockSource) Rounds(ctx context.Context, sessionID int, query string) ([]*record.Record, error) {
	if m.FetchFunc != nil {
		m.callCount.Add(1)
		return m.FetchFunc(ctx, "/api/game-session/"+strconv.Itoa(sessionID), query)
	}
	m.mu.RLock()
	all, ok := m.rounds[sessionID]
	m.mu.RUnlock()
	if !ok {
		m.callCount.Add(1)
		return nil, ErrNotFound
	}
	return m.page(ctx, all, query)
}

func (m *MockSource) Users(ctx context.Context) (map[int]string, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return copyNames(mockUsers), nil
}

func (m *MockSource) Games(ctx context.Context) (map[int]string, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return copyNames(mockGames), nil
}

func (m *MockSource) SessionCount(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

func (m *MockSource) RoundCount(ctx context.Context, sessionID int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rounds, ok := m.rounds[sessionID]
	if !ok {
		return 0, ErrNotFound
	}
	return len(rounds), nil
}

// Session returns the generated session with id.
func (m *MockSource) Session(id int) (*record.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

func (m *MockSource) failure() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// page applies the server's paging: the unfinished record first, then
// limit-1 of the others newest first from offset.
func (m *MockSource) page(ctx context.Context, all []*record.Record, query string) ([]*record.Record, error) {
	m.callCount.Add(1)
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.failure(); err != nil {
		return nil, err
	}

	vals, err := url.ParseQuery(query)
	if err != nil {
		return nil, &HTTPError{Status: 400, Message: "invalid query", ErrorText: err.Error()}
	}
	limit := intParam(vals, "limit", 10)
	offset := intParam(vals, "offset", 0)
	if limit <= 0 || limit > 100 {
		return nil, &HTTPError{Status: 400, Message: fmt.Sprintf("invalid limit %d", limit)}
	}

	var active *record.Record
	others := make([]*record.Record, 0, len(all))
	for _, r := range all {
		if t, ok := r.Temporal("ended"); ok && t.IsPending() && active == nil {
			active = r
			continue
		}
		others = append(others, r)
	}
	sort.SliceStable(others, func(i, j int) bool {
		a, _ := others[i].Temporal("ended")
		b, _ := others[j].Temporal("ended")
		at, _ := a.Time()
		bt, _ := b.Time()
		return at.After(bt)
	})

	out := make([]*record.Record, 0, limit)
	if active != nil {
		out = append(out, active)
	}
	for i := max(offset, 0); i < len(others) && len(out) < limit; i++ {
		out = append(out, others[i])
	}
	return out, nil
}

func intParam(vals url.Values, name string, def int) int {
	if !vals.Has(name) {
		return def
	}
	n, err := strconv.Atoi(vals.Get(name))
	if err != nil {
		return def
	}
	return n
}

func copyNames(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
