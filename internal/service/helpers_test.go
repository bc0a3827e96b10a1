package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"smart_switch/internal/models"
	"smart_switch/internal/repository"
	"smart_switch/internal/repository/db"
)

// flakyStore wraps a real store and fails writes to selected keys.
type flakyStore struct {
	repository.KVStore

	mu   sync.Mutex
	fail map[string]error
}

func (f *flakyStore) failKey(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = make(map[string]error)
	}
	f.fail[key] = err
}

func (f *flakyStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	f.mu.Lock()
	err := f.fail[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.KVStore.Set(ctx, key, value)
}

type fakeSink struct {
	mu  sync.Mutex
	got []models.Notification
}

func (f *fakeSink) Dispatch(n models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, n)
}

func (f *fakeSink) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.got))
	for _, n := range f.got {
		out = append(out, n.Title)
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

type harness struct {
	ctl    *Controller
	store  *flakyStore
	usage  repository.UsageRepo
	events *fakeEventRepo
	sink   *fakeSink
	clock  *clock
	ctx    context.Context
}

// testStart is a Wednesday.
var testStart = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		// tickers are driven by hand
		PollInterval:  time.Hour,
		UsageInterval: time.Hour,
		OverrideTTL:   time.Hour,
		WriteTimeout:  2 * time.Second,
		Location:      time.UTC,
	}
}

// newHarness seeds the store, starts the controller and waits until it has
// loaded its state.
func newHarness(t *testing.T, cfg Config, seed map[string]any) *harness {
	t.Helper()
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "switch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := &flakyStore{KVStore: repository.NewKVSQLite(conn)}
	for k, v := range seed {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, k, raw))
	}

	h := &harness{
		store:  store,
		usage:  repository.NewUsageSQLite(conn),
		events: &fakeEventRepo{},
		sink:   &fakeSink{},
		clock:  &clock{t: testStart},
		ctx:    ctx,
	}
	h.ctl = NewController(store, h.events, h.usage, h.sink, cfg, nil)
	h.ctl.now = h.clock.Now

	go func() { _ = h.ctl.Run(ctx) }()
	require.NoError(t, h.ctl.do(ctx, func(*switchState) {}))
	return h
}

// state runs fn on the controller goroutine.
func (h *harness) state(t *testing.T, fn func(s *switchState)) {
	t.Helper()
	require.NoError(t, h.ctl.do(h.ctx, fn))
}

func (h *harness) relayStored(t *testing.T) string {
	t.Helper()
	raw, err := h.store.Get(h.ctx, keyRelay)
	require.NoError(t, err)
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

func (h *harness) hasEvent(typ string) bool {
	for _, got := range h.events.types() {
		if got == typ {
			return true
		}
	}
	return false
}

func clockTime(hour, min int) time.Time {
	return time.Date(2025, 1, 1, hour, min, 0, 0, time.UTC)
}

func allDays() []int { return []int{0, 1, 2, 3, 4, 5, 6} }
