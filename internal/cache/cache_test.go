package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"caja/internal/core"
	"caja/internal/ledger"
	"caja/internal/ledger/memory"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)}
}

func seed(t *testing.T, s *memory.Store, clk *fakeClock, n int) {
	t.Helper()
	key := ledger.ActiveKey(clk.Now())
	for i := 0; i < n; i++ {
		m := core.NewMovement(clk.Now(), "10:00", "cliente", decimal.NewFromInt(int64(100+i)), true)
		if err := s.Append(context.Background(), key, m); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGetWithinTTLReturnsSameSnapshot(t *testing.T) {
	clk := newClock()
	store := memory.New()
	seed(t, store, clk, 2)
	c := New(store, 5*time.Minute, clk.Now)

	first, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Minute)
	second, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("snapshot within TTL should be the same object")
	}
	if store.Reads() != 1 {
		t.Errorf("expected a single store fetch, got %d", store.Reads())
	}
}

func TestGetRefreshesAfterTTL(t *testing.T) {
	clk := newClock()
	store := memory.New()
	seed(t, store, clk, 1)
	c := New(store, 5*time.Minute, clk.Now)

	if _, err := c.Get(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	clk.Advance(5 * time.Minute)
	snap, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if store.Reads() != 2 {
		t.Errorf("expected refetch after TTL, reads=%d", store.Reads())
	}
	if !snap.FetchedAt.Equal(clk.Now()) {
		t.Errorf("snapshot timestamp not refreshed: %v", snap.FetchedAt)
	}
}

func TestForceRefreshBypassesTTL(t *testing.T) {
	clk := newClock()
	store := memory.New()
	seed(t, store, clk, 1)
	c := New(store, 5*time.Minute, clk.Now)

	if _, err := c.Get(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if store.Reads() != 2 {
		t.Errorf("force refresh should refetch, reads=%d", store.Reads())
	}
}

func TestInvalidateForcesNextGet(t *testing.T) {
	clk := newClock()
	store := memory.New()
	seed(t, store, clk, 1)
	c := New(store, 5*time.Minute, clk.Now)

	if _, err := c.Get(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	c.Invalidate()
	if _, err := c.Get(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if store.Reads() != 2 {
		t.Errorf("invalidate should force refetch, reads=%d", store.Reads())
	}
}

func TestMonthRolloverForcesRefetch(t *testing.T) {
	clk := newClock()
	store := memory.New()
	seed(t, store, clk, 1)
	c := New(store, time.Hour, clk.Now)

	snap, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Partition != "2026-09" {
		t.Fatalf("unexpected partition %s", snap.Partition)
	}

	clk.t = time.Date(2026, 10, 1, 0, 1, 0, 0, time.UTC)
	snap, err = c.Get(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Partition != "2026-10" {
		t.Errorf("expected october partition, got %s", snap.Partition)
	}
	if len(snap.Movements) != 0 {
		t.Errorf("new month should start empty, got %d movements", len(snap.Movements))
	}
}

func TestFetchFailureServesStaleSnapshot(t *testing.T) {
	clk := newClock()
	store := memory.New()
	seed(t, store, clk, 2)
	c := New(store, 5*time.Minute, clk.Now)

	c.Retry = ledger.RetryPolicy{Attempts: 1, Timeout: time.Second}

	first, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	store.ReadErr = errors.New("quota exceeded")
	clk.Advance(10 * time.Minute)
	stale, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatalf("stale snapshot should be served, got error %v", err)
	}
	if stale != first {
		t.Error("expected the previous snapshot on fetch failure")
	}
}

func TestFetchFailureWithoutSnapshotPropagates(t *testing.T) {
	clk := newClock()
	store := memory.New()
	store.ReadErr = errors.New("auth failure")
	c := New(store, 5*time.Minute, clk.Now)
	c.Retry = ledger.RetryPolicy{Attempts: 1, Timeout: time.Second}

	if _, err := c.Get(context.Background(), false); err == nil {
		t.Fatal("expected error when no snapshot was ever populated")
	}
}

func TestOptimisticMutations(t *testing.T) {
	clk := newClock()
	store := memory.New()
	seed(t, store, clk, 1)
	c := New(store, 5*time.Minute, clk.Now)

	before, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	m := core.NewMovement(clk.Now(), "12:30", "Distri", decimal.NewFromInt(-500), false)
	c.ApplyOptimistic(m)

	after, _ := c.Get(context.Background(), false)
	if len(after.Movements) != 2 {
		t.Fatalf("optimistic append missing, have %d movements", len(after.Movements))
	}
	if len(before.Movements) != 1 {
		t.Error("published snapshot must not be mutated in place")
	}
	if store.Reads() != 1 {
		t.Error("optimistic apply must not hit the store")
	}

	paid := m
	paid.Paid = true
	c.UpdateOptimistic(paid)
	after, _ = c.Get(context.Background(), false)
	if !after.Movements[1].Paid {
		t.Error("optimistic update not visible")
	}

	removed, ok := c.RemoveOptimisticLast(func(mv core.Movement) bool { return mv.IsCustomer() })
	if !ok || !removed.IsCustomer() {
		t.Fatalf("expected customer row removed, ok=%v removed=%+v", ok, removed)
	}
	after, _ = c.Get(context.Background(), false)
	if len(after.Movements) != 1 || after.Movements[0].Counterparty != "Distri" {
		t.Errorf("unexpected snapshot after removal: %+v", after.Movements)
	}

	if _, ok := c.RemoveOptimisticLast(func(core.Movement) bool { return false }); ok {
		t.Error("removal predicate matching nothing should report false")
	}
}
