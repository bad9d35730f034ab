// Package cache holds the materialized view of the active monthly
// partition: a timestamped snapshot refreshed from the backing store when
// its TTL expires, mutated optimistically ahead of store confirmation so
// aggregations see writes immediately.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"caja/internal/core"
	"caja/internal/ledger"
	"caja/internal/log"
)

// DefaultTTL matches the legacy cache duration of five minutes.
const DefaultTTL = 5 * time.Minute

// Snapshot is an immutable-at-a-point-in-time materialization of the
// active partition. Callers must not mutate Movements.
type Snapshot struct {
	Partition ledger.PartitionKey
	Movements []core.Movement
	FetchedAt time.Time
}

// MovementCache serves reads over the active partition. All mutation of
// the shared snapshot happens under the lock by replacing the snapshot
// pointer whole, so readers never observe a half-replaced state.
type MovementCache struct {
	store ledger.Store
	ttl   time.Duration
	now   func() time.Time

	// Retry applies to store fetches; zero fields use ledger.DefaultRetry.
	Retry ledger.RetryPolicy

	mu    sync.RWMutex
	snap  *Snapshot
	dirty bool // set by Invalidate; forces the next Get to refetch

	group singleflight.Group
}

func New(store ledger.Store, ttl time.Duration, now func() time.Time) *MovementCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MovementCache{store: store, ttl: ttl, now: now, Retry: ledger.DefaultRetry}
}

// Get returns the active partition's snapshot, refetching when forced,
// when no snapshot exists, when the TTL has expired, or when the month
// rolled over. A failed refetch degrades to the stale snapshot unless none
// has ever been populated.
func (c *MovementCache) Get(ctx context.Context, forceRefresh bool) (*Snapshot, error) {
	key := ledger.ActiveKey(c.now())

	c.mu.RLock()
	snap, dirty := c.snap, c.dirty
	c.mu.RUnlock()

	fresh := snap != nil && !dirty &&
		snap.Partition == key &&
		c.now().Sub(snap.FetchedAt) < c.ttl
	if fresh && !forceRefresh {
		return snap, nil
	}

	refreshed, err := c.refresh(ctx, key)
	if err != nil {
		if snap != nil {
			slog.WarnContext(ctx, "partition refresh failed, serving stale snapshot",
				log.FieldPartition, key, "age", c.now().Sub(snap.FetchedAt), log.FieldError, err)
			return snap, nil
		}
		return nil, fmt.Errorf("refresh partition %s: %w", key, err)
	}
	return refreshed, nil
}

// refresh fetches the partition once, coalescing concurrent callers onto a
// single store read.
func (c *MovementCache) refresh(ctx context.Context, key ledger.PartitionKey) (*Snapshot, error) {
	v, err, _ := c.group.Do(string(key), func() (interface{}, error) {
		var movements []core.Movement
		err := c.Retry.Do(ctx, func(ctx context.Context) error {
			var err error
			movements, err = c.store.ReadAll(ctx, key)
			return err
		})
		if err != nil {
			return nil, err
		}
		snap := &Snapshot{Partition: key, Movements: movements, FetchedAt: c.now()}
		c.mu.Lock()
		c.snap = snap
		c.dirty = false
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate marks the snapshot stale so the next Get refetches. The data
// itself is kept: a read between Invalidate and the refetch completing can
// still degrade to it if the store is down.
func (c *MovementCache) Invalidate() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// ApplyOptimistic appends the movement to the in-memory snapshot ahead of
// store confirmation. Best-effort: superseded by the next real refresh. A
// missing snapshot is left missing; the caller's next read will fetch.
func (c *MovementCache) ApplyOptimistic(m core.Movement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return
	}
	next := c.cloneLocked()
	next.Movements = append(next.Movements, m)
	c.snap = next
}

// UpdateOptimistic replaces the snapshot movement with the same ID.
func (c *MovementCache) UpdateOptimistic(m core.Movement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return
	}
	next := c.cloneLocked()
	for i := range next.Movements {
		if next.Movements[i].ID == m.ID {
			next.Movements[i] = m
			break
		}
	}
	c.snap = next
}

// RemoveOptimisticLast removes the last snapshot movement matching pred
// and returns it. The second result is false when nothing matched.
func (c *MovementCache) RemoveOptimisticLast(pred func(core.Movement) bool) (core.Movement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return core.Movement{}, false
	}
	for i := len(c.snap.Movements) - 1; i >= 0; i-- {
		if pred(c.snap.Movements[i]) {
			removed := c.snap.Movements[i]
			next := c.cloneLocked()
			next.Movements = append(next.Movements[:i], next.Movements[i+1:]...)
			c.snap = next
			return removed, true
		}
	}
	return core.Movement{}, false
}

// cloneLocked copies the current snapshot so published snapshots stay
// immutable. Callers must hold the write lock.
func (c *MovementCache) cloneLocked() *Snapshot {
	movements := make([]core.Movement, len(c.snap.Movements))
	copy(movements, c.snap.Movements)
	return &Snapshot{
		Partition: c.snap.Partition,
		Movements: movements,
		FetchedAt: c.snap.FetchedAt,
	}
}
