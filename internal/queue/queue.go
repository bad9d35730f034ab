// Package queue buffers mutation intents and drains them to the backing
// store on a single background worker, decoupling user-facing latency from
// store latency. Intents are applied in enqueue order; a failed intent is
// dropped with a logged warning after bounded retries; the next forced
// cache refresh reconciles the in-memory view with the store.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"caja/internal/core"
	"caja/internal/ledger"
	"caja/internal/log"
)

type IntentKind int

const (
	AppendIntent IntentKind = iota
	MarkPaidIntent
	DeleteIntent
)

func (k IntentKind) String() string {
	switch k {
	case AppendIntent:
		return "append"
	case MarkPaidIntent:
		return "mark_paid"
	case DeleteIntent:
		return "delete"
	}
	return "unknown"
}

// Intent is a queued, not-yet-committed mutation. It carries the full
// movement: appends write it, updates and deletes use its content to
// re-resolve the physical row immediately before applying, so positions
// computed before an intervening delete never reach the store.
type Intent struct {
	Kind     IntentKind
	Movement core.Movement
}

const (
	// DefaultCapacity bounds the intent buffer.
	DefaultCapacity = 64
	// DefaultDelay spaces store operations to respect the request-rate
	// ceiling of the Sheets API.
	DefaultDelay = 1100 * time.Millisecond
)

// Committer is the single writer to the backing store.
type Committer struct {
	store ledger.Store
	delay time.Duration

	// Retry applies per store operation; zero fields use ledger.DefaultRetry.
	Retry ledger.RetryPolicy

	intents chan Intent
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func New(store ledger.Store, capacity int, delay time.Duration) *Committer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Committer{
		store:   store,
		delay:   delay,
		Retry:   ledger.DefaultRetry,
		intents: make(chan Intent, capacity),
		done:    make(chan struct{}),
	}
}

// Enqueue queues an intent and returns immediately. When the buffer is
// full the intent is dropped and logged, keeping the user path non-blocking.
func (c *Committer) Enqueue(intent Intent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		slog.Warn("write queue closed, dropping intent", log.FieldIntent, intent.Kind.String())
		return false
	}
	c.pending.Add(1)
	select {
	case c.intents <- intent:
		return true
	default:
		c.pending.Done()
		slog.Warn("write queue full, dropping intent",
			log.FieldIntent, intent.Kind.String(),
			log.FieldCounterparty, intent.Movement.Counterparty)
		return false
	}
}

// Start launches the single background worker. It drains until Stop is
// called or ctx is cancelled.
func (c *Committer) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Committer) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case intent, ok := <-c.intents:
			if !ok {
				return
			}
			c.commit(ctx, intent)
			c.pending.Done()
			if c.delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.delay):
				}
			}
		}
	}
}

// Stop closes the queue and waits for the worker to finish the buffered
// intents, bounded by ctx.
func (c *Committer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.intents)
	}
	c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush blocks until every intent enqueued so far has been applied or
// dropped. Test helper; production code relies on drain order instead.
func (c *Committer) Flush() {
	c.pending.Wait()
}

// commit applies one intent with bounded retries; the final failure is
// logged and the intent discarded.
func (c *Committer) commit(ctx context.Context, intent Intent) {
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		return c.apply(ctx, intent)
	})
	if err != nil {
		slog.WarnContext(ctx, "dropping failed write intent",
			log.FieldIntent, intent.Kind.String(),
			log.FieldCounterparty, intent.Movement.Counterparty,
			log.FieldAmount, intent.Movement.Amount.String(),
			log.FieldError, err)
	}
}

func (c *Committer) apply(ctx context.Context, intent Intent) error {
	key := ledger.ActiveKey(intent.Movement.Date)
	switch intent.Kind {
	case AppendIntent:
		return c.store.Append(ctx, key, intent.Movement)
	case MarkPaidIntent:
		row, err := c.resolveRow(ctx, key, intent.Movement, true)
		if err != nil {
			return err
		}
		return c.store.UpdateCell(ctx, key, row, ledger.ColPaid, ledger.EncodePaid(true))
	case DeleteIntent:
		row, err := c.resolveRow(ctx, key, intent.Movement, false)
		if err != nil {
			return err
		}
		return c.store.DeleteRow(ctx, key, row)
	}
	return fmt.Errorf("unknown intent kind %d", intent.Kind)
}

// resolveRow finds the current physical position of the movement by
// content, scanning bottom-up so duplicated rows resolve to the most
// recent one. When preferUnpaid is set, unpaid matches win over paid ones.
func (c *Committer) resolveRow(ctx context.Context, key ledger.PartitionKey, m core.Movement, preferUnpaid bool) (int, error) {
	rows, err := c.store.ReadAll(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("resolve row: %w", err)
	}
	fallback := 0
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].SameContent(m) {
			continue
		}
		if !preferUnpaid || !rows[i].Paid {
			return i + 1, nil
		}
		if fallback == 0 {
			fallback = i + 1
		}
	}
	if fallback != 0 {
		return fallback, nil
	}
	return 0, fmt.Errorf("resolve %s %s %s: %w", m.Date.Format("2006-01-02"), m.Counterparty, m.Amount, errRowVanished)
}

var errRowVanished = errors.New("row not found in partition")
