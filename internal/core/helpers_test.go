package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// Compile-time check: fakeEngine must satisfy EngineClient.
var _ EngineClient = (*fakeEngine)(nil)

// fakeEngine is an in-process EngineClient double. It counts calls per
// operation and returns configurable canned results and errors. Safe for
// concurrent use.
type fakeEngine struct {
	mu    sync.Mutex
	calls map[string]int

	listResult  []ContainerSummary
	detail      ContainerDetail
	statsResult ContainerStats

	listErr    error
	inspectErr error
	statsErr   error
	startErr   error
	stopErr    error
	restartErr error
	pingErr    error
	closeErr   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		calls:  make(map[string]int),
		detail: ContainerDetail{ID: "c1", Name: "xray-vless", Status: "running", Running: true},
	}
}

func (f *fakeEngine) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

// callCount returns how many times op has been invoked.
func (f *fakeEngine) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// setDetail replaces the canned inspect result.
func (f *fakeEngine) setDetail(d ContainerDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detail = d
}

// setErr sets the error returned by the named operation.
func (f *fakeEngine) setErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch op {
	case "list":
		f.listErr = err
	case "inspect":
		f.inspectErr = err
	case "stats":
		f.statsErr = err
	case "start":
		f.startErr = err
	case "stop":
		f.stopErr = err
	case "restart":
		f.restartErr = err
	case "ping":
		f.pingErr = err
	default:
		panic("unknown op " + op)
	}
}

func (f *fakeEngine) List(_ context.Context, _ Filter) ([]ContainerSummary, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listResult, f.listErr
}

func (f *fakeEngine) Inspect(_ context.Context, _ string) (ContainerDetail, error) {
	f.record("inspect")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detail, f.inspectErr
}

func (f *fakeEngine) Stats(_ context.Context, id string) (ContainerStats, error) {
	f.record("stats")
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := f.statsResult
	stats.ContainerID = id
	return stats, f.statsErr
}

func (f *fakeEngine) Start(_ context.Context, _ string) error {
	f.record("start")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startErr
}

func (f *fakeEngine) Stop(_ context.Context, _ string) error {
	f.record("stop")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopErr
}

func (f *fakeEngine) Restart(_ context.Context, _ string) error {
	f.record("restart")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restartErr
}

func (f *fakeEngine) Ping(_ context.Context) error {
	f.record("ping")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeEngine) Close() error {
	f.record("close")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeErr
}

// singleEngineDialer returns a dialer that hands out the same fakeEngine on
// every dial. Dial counts are visible via the returned counter.
func singleEngineDialer(engine *fakeEngine) (EngineDialer, *callCounter) {
	dials := &callCounter{}
	return func(_ context.Context) (EngineClient, error) {
		dials.inc()
		return engine, nil
	}, dials
}

// callCounter is a mutex-guarded counter for dial bookkeeping in tests.
type callCounter struct {
	mu sync.Mutex
	n  int
}

func (c *callCounter) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *callCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// validConfig returns a Config that passes Validate, wired to the given
// dialer. The health monitor is disabled so tests drive maintenance
// explicitly.
func validConfig(dial EngineDialer) Config {
	return Config{
		Dialer:               dial,
		MaxConnections:       10,
		ConnectionTimeout:    30 * time.Second,
		MaxIdleTime:          5 * time.Minute,
		HealthCheckInterval:  time.Minute,
		StatusTTL:            30 * time.Second,
		StatsTTL:             5 * time.Second,
		ListTTL:              time.Minute,
		MaxCacheEntries:      1000,
		DisableHealthMonitor: true,
	}
}

// fakeClock is a manually advanced clock for TTL and idle-age tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// requirePanicContains calls fn and verifies it panics with a message
// containing wantSubstr.
func requirePanicContains(t *testing.T, fn func(), wantSubstr string) {
	t.Helper()

	var recovered string
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = fmt.Sprint(r)
			}
		}()
		fn()
	}()

	if recovered == "" {
		t.Fatalf("expected panic containing %q, got none", wantSubstr)
	}
	if !strings.Contains(recovered, wantSubstr) {
		t.Fatalf("panic message %q does not contain %q", recovered, wantSubstr)
	}
}
