package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// newTestGateway builds a Gateway over a single fake engine with the health
// monitor disabled, so tests drive maintenance explicitly.
func newTestGateway(t *testing.T, engine *fakeEngine) *Gateway {
	t.Helper()

	dial, _ := singleEngineDialer(engine)
	gw := NewGateway(validConfig(dial))
	t.Cleanup(func() {
		_ = gw.Close()
	})
	return gw
}

func TestNewGatewayPanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	requirePanicContains(t, func() {
		NewGateway(Config{})
	}, "invalid gateway config")
}

func TestGatewayStatusServedFromCache(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	status, err := gw.Status(ctx, "c1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != "running" {
		t.Fatalf("got %q, want running", status)
	}
	if got := engine.callCount("inspect"); got != 1 {
		t.Fatalf("expected 1 engine inspect, got %d", got)
	}

	// The second read inside the freshness window never reaches the engine.
	if _, err := gw.Status(ctx, "c1"); err != nil {
		t.Fatalf("second Status: %v", err)
	}
	if got := engine.callCount("inspect"); got != 1 {
		t.Fatalf("cached read hit the engine, inspect count %d", got)
	}
}

func TestGatewayInspectAndStatusShareCacheEntry(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	if _, err := gw.Inspect(ctx, "c1"); err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if _, err := gw.Status(ctx, "c1"); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got := engine.callCount("inspect"); got != 1 {
		t.Fatalf("expected a single engine inspect, got %d", got)
	}
}

func TestGatewayListCachedPerFilter(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.listResult = []ContainerSummary{{ID: "c1", Name: "xray-vless"}}
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	all, err := gw.ListContainers(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListContainers: %v", err)
	}
	if len(all) != 1 || all[0].ID != "c1" {
		t.Fatalf("unexpected list result: %+v", all)
	}
	if _, err := gw.ListContainers(ctx, Filter{}); err != nil {
		t.Fatalf("second ListContainers: %v", err)
	}
	if got := engine.callCount("list"); got != 1 {
		t.Fatalf("repeated unfiltered list hit the engine, count %d", got)
	}

	// A different filter is a different cache entry.
	if _, err := gw.ListContainers(ctx, Filter{Label: "app=xray"}); err != nil {
		t.Fatalf("filtered ListContainers: %v", err)
	}
	if got := engine.callCount("list"); got != 2 {
		t.Fatalf("expected a fresh engine list for the new filter, got %d", got)
	}
}

func TestGatewayStatsCachedSeparatelyFromStatus(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.statsResult = ContainerStats{CPUPercent: 12.5}
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	if _, err := gw.Status(ctx, "c1"); err != nil {
		t.Fatalf("Status: %v", err)
	}
	stats, err := gw.Stats(ctx, "c1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ContainerID != "c1" || stats.CPUPercent != 12.5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if engine.callCount("inspect") != 1 || engine.callCount("stats") != 1 {
		t.Fatalf("classes must not share entries: inspect=%d stats=%d",
			engine.callCount("inspect"), engine.callCount("stats"))
	}
	if _, err := gw.Stats(ctx, "c1"); err != nil {
		t.Fatalf("second Stats: %v", err)
	}
	if got := engine.callCount("stats"); got != 1 {
		t.Fatalf("cached stats read hit the engine, count %d", got)
	}
}

func TestGatewayErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.setErr("inspect", errors.New("no such container"))
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	_, err := gw.Status(ctx, "ghost")
	if err == nil {
		t.Fatal("expected inspect error to surface")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OperationError, got %T: %v", err, err)
	}
	if opErr.Op != "inspect" || opErr.ContainerID != "ghost" {
		t.Fatalf("unexpected operation error fields: %+v", opErr)
	}

	// After the engine recovers, the next read must reach it rather than
	// replay a cached failure.
	engine.setErr("inspect", nil)
	status, err := gw.Status(ctx, "ghost")
	if err != nil {
		t.Fatalf("Status after recovery: %v", err)
	}
	if status != "running" {
		t.Fatalf("got %q, want running", status)
	}
	if got := engine.callCount("inspect"); got != 2 {
		t.Fatalf("expected 2 engine inspects, got %d", got)
	}
}

func TestGatewayMutationInvalidatesEveryClass(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.listResult = []ContainerSummary{{ID: "c1"}}
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	// Prime all three classes.
	if _, err := gw.Status(ctx, "c1"); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if _, err := gw.Stats(ctx, "c1"); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if _, err := gw.ListContainers(ctx, Filter{}); err != nil {
		t.Fatalf("ListContainers: %v", err)
	}

	engine.setDetail(ContainerDetail{ID: "c1", Status: "restarting"})
	if err := gw.Restart(ctx, "c1"); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if got := engine.callCount("restart"); got != 1 {
		t.Fatalf("expected 1 engine restart, got %d", got)
	}

	// Every class refetches and observes post-mutation state.
	status, err := gw.Status(ctx, "c1")
	if err != nil {
		t.Fatalf("Status after restart: %v", err)
	}
	if status != "restarting" {
		t.Fatalf("stale status %q after restart", status)
	}
	if _, err := gw.Stats(ctx, "c1"); err != nil {
		t.Fatalf("Stats after restart: %v", err)
	}
	if _, err := gw.ListContainers(ctx, Filter{}); err != nil {
		t.Fatalf("ListContainers after restart: %v", err)
	}
	if engine.callCount("inspect") != 2 || engine.callCount("stats") != 2 || engine.callCount("list") != 2 {
		t.Fatalf("expected fresh engine calls after restart: inspect=%d stats=%d list=%d",
			engine.callCount("inspect"), engine.callCount("stats"), engine.callCount("list"))
	}
}

func TestGatewayFailedMutationStillInvalidates(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	if _, err := gw.Status(ctx, "c1"); err != nil {
		t.Fatalf("Status: %v", err)
	}

	engine.setErr("stop", errors.New("container is restarting"))
	err := gw.Stop(ctx, "c1")
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "stop" {
		t.Fatalf("expected stop *OperationError, got %v", err)
	}

	// The rejected mutation may have partially applied; cached state is
	// dropped either way.
	if _, err := gw.Status(ctx, "c1"); err != nil {
		t.Fatalf("Status after failed stop: %v", err)
	}
	if got := engine.callCount("inspect"); got != 2 {
		t.Fatalf("expected refetch after failed mutation, inspect count %d", got)
	}
}

func TestGatewayReleasesLeaseOnEngineError(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.setErr("inspect", errors.New("engine hiccup"))
	engine.setErr("start", errors.New("engine hiccup"))
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	if _, err := gw.Status(ctx, "c1"); err == nil {
		t.Fatal("expected inspect error")
	}
	if err := gw.Start(ctx, "c1"); err == nil {
		t.Fatal("expected start error")
	}

	stats := gw.pool.Stats()
	if stats.Idle != stats.Live {
		t.Fatalf("lease leaked on error path: %+v", stats)
	}
}

func TestGatewayOperationsAfterClose(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	dial, _ := singleEngineDialer(engine)
	gw := NewGateway(validConfig(dial))

	if _, err := gw.Status(context.Background(), "c1"); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := gw.Status(context.Background(), "c1"); !errors.Is(err, ErrGatewayClosed) {
		t.Fatalf("expected ErrGatewayClosed from read, got %v", err)
	}
	if err := gw.Restart(context.Background(), "c1"); !errors.Is(err, ErrGatewayClosed) {
		t.Fatalf("expected ErrGatewayClosed from mutation, got %v", err)
	}
	// Close is idempotent.
	if err := gw.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestGatewayCloseReleasesResources(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	dial, _ := singleEngineDialer(engine)
	gw := NewGateway(validConfig(dial))

	if _, err := gw.Status(context.Background(), "c1"); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := engine.callCount("close"); got != 1 {
		t.Fatalf("expected idle connection closed, close count %d", got)
	}
	if got := gw.cache.Len(); got != 0 {
		t.Fatalf("cache not purged on close, Len=%d", got)
	}
}

func TestGatewayAcquireFailureSurfacesDirectly(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	dial, _ := singleEngineDialer(engine)
	cfg := validConfig(dial)
	cfg.MaxConnections = 1
	cfg.ConnectionTimeout = 0
	gw := NewGateway(cfg)
	defer gw.Close()

	// Hold the only lease so the next operation finds the pool exhausted.
	lease, token, err := gw.pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer gw.pool.Release(lease, token)

	_, err = gw.Status(context.Background(), "c1")
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		t.Fatalf("acquire failures must not be wrapped as operation errors: %v", err)
	}
}

func TestGatewayWrongTypeCacheEntryIsDiscarded(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	// Plant a value of the wrong type under the status key.
	key := Key{ContainerID: "c1", Class: ClassStatus}
	if err := gw.cache.Put(key, 42, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	detail, err := gw.Inspect(ctx, "c1")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if detail.Status != "running" {
		t.Fatalf("got %q, want running", detail.Status)
	}
	if got := engine.callCount("inspect"); got != 1 {
		t.Fatalf("expected refetch past the corrupt entry, inspect count %d", got)
	}
}

// gatedInspectEngine reads the inspect result, then parks the first Inspect
// call on gate. A test can hold an in-flight read across a concurrent
// mutation this way.
type gatedInspectEngine struct {
	*fakeEngine
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func (e *gatedInspectEngine) Inspect(ctx context.Context, id string) (ContainerDetail, error) {
	detail, err := e.fakeEngine.Inspect(ctx, id)
	e.once.Do(func() {
		e.started <- struct{}{}
		<-e.gate
	})
	return detail, err
}

func TestGatewayReadOverlappingMutationIsNotCached(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.setDetail(ContainerDetail{ID: "c1", Status: "stopped"})
	gated := &gatedInspectEngine{
		fakeEngine: engine,
		gate:       make(chan struct{}),
		started:    make(chan struct{}, 1),
	}
	gw := NewGateway(validConfig(func(context.Context) (EngineClient, error) {
		return gated, nil
	}))
	t.Cleanup(func() {
		_ = gw.Close()
	})
	ctx := context.Background()

	// The first read misses the cache and parks inside the engine call,
	// carrying pre-restart state.
	overlapped := make(chan string, 1)
	go func() {
		status, err := gw.Status(ctx, "c1")
		if err != nil {
			overlapped <- "error: " + err.Error()
			return
		}
		overlapped <- status
	}()
	<-gated.started

	engine.setDetail(ContainerDetail{ID: "c1", Status: "running"})
	if err := gw.Restart(ctx, "c1"); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	close(gated.gate)
	if got := <-overlapped; got != "stopped" {
		t.Fatalf("overlapped read returned %q, want its point-in-time answer", got)
	}

	// The overlapped read completed after the restart's invalidation; its
	// result must not have been cached. The next read reaches the engine
	// and observes post-restart state.
	status, err := gw.Status(ctx, "c1")
	if err != nil {
		t.Fatalf("Status after restart: %v", err)
	}
	if status != "running" {
		t.Fatalf("stale status %q served after restart", status)
	}
	if got := engine.callCount("inspect"); got != 2 {
		t.Fatalf("expected a fresh engine inspect after restart, count %d", got)
	}
}

// panickingStopEngine simulates a defective engine client whose Stop
// panics mid-call.
type panickingStopEngine struct {
	*fakeEngine
}

func (e *panickingStopEngine) Stop(context.Context, string) error {
	panic("engine client bug")
}

func TestGatewayMutationPanicReleasesLease(t *testing.T) {
	t.Parallel()

	engine := &panickingStopEngine{fakeEngine: newFakeEngine()}
	gw := NewGateway(validConfig(func(context.Context) (EngineClient, error) {
		return engine, nil
	}))
	t.Cleanup(func() {
		_ = gw.Close()
	})
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the engine panic to propagate")
			}
		}()
		_ = gw.Stop(ctx, "c1")
	}()

	stats := gw.pool.Stats()
	if stats.Idle != stats.Live {
		t.Fatalf("lease leaked after panic: %+v", stats)
	}

	// The pool remains usable.
	if _, err := gw.Status(ctx, "c1"); err != nil {
		t.Fatalf("Status after panic: %v", err)
	}
}

func TestGatewayListReturnsPrivateCopy(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.listResult = []ContainerSummary{{ID: "a"}, {ID: "b"}}
	gw := newTestGateway(t, engine)
	ctx := context.Background()

	first, err := gw.ListContainers(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListContainers: %v", err)
	}
	first[0] = ContainerSummary{ID: "mangled"}

	second, err := gw.ListContainers(ctx, Filter{})
	if err != nil {
		t.Fatalf("second ListContainers: %v", err)
	}
	if got := engine.callCount("list"); got != 1 {
		t.Fatalf("expected the second list served from cache, engine count %d", got)
	}
	if second[0].ID != "a" || second[1].ID != "b" {
		t.Fatalf("caller mutation corrupted the cached entry: %+v", second)
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want bool
	}{
		"pool exhausted":         {ErrPoolExhausted, true},
		"acquire timeout":        {ErrAcquireTimeout, true},
		"wrapped exhausted":      {&OperationError{Op: "list", Err: ErrPoolExhausted}, true},
		"connection failed":      {ErrConnectionFailed, false},
		"pool closed":            {ErrPoolClosed, false},
		"gateway closed":         {ErrGatewayClosed, false},
		"plain error":            {errors.New("boom"), false},
		"nil":                    {nil, false},
		"wrapped engine failure": {&OperationError{Op: "stop", Err: errors.New("boom")}, false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
