// Package services implements the bookkeeping operations on top of the
// snapshot cache and the write queue: recording movements, marking
// expenses paid, undoing, and the daily/monthly aggregations.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"caja/internal/cache"
	"caja/internal/core"
	"caja/internal/queue"
)

// ErrQueueFull is returned when a write intent cannot be buffered.
var ErrQueueFull = errors.New("write queue full")

// Finance coordinates reads through the snapshot cache and writes through
// the asynchronous committer. All record operations mutate the snapshot
// optimistically first, so a read issued immediately after observes them.
type Finance struct {
	cache     *cache.MovementCache
	committer *queue.Committer
	guard     *Guard
	now       func() time.Time
}

func New(c *cache.MovementCache, committer *queue.Committer, guard *Guard, now func() time.Time) *Finance {
	if now == nil {
		now = time.Now
	}
	return &Finance{cache: c, committer: committer, guard: guard, now: now}
}

// RecordIncome registers a customer sale. Equal amounts resubmitted within
// the guard window are rejected with core.ErrDuplicateSubmission; this
// catches double-taps without blocking a genuinely repeated sale later.
func (f *Finance) RecordIncome(ctx context.Context, amount decimal.Decimal) (core.Movement, error) {
	if !amount.IsPositive() {
		return core.Movement{}, core.ErrInvalidAmount
	}
	now := f.now()
	if f.guard != nil && f.guard.ShouldSuppress(amount, now) {
		return core.Movement{}, core.ErrDuplicateSubmission
	}
	m := core.NewMovement(now, now.Format("15:04"), core.CustomerLabel, amount, true)
	return m, f.submit(ctx, m)
}

// RecordExpense registers an outgoing movement. The amount is stored
// negative regardless of the sign the caller passes; paid=false leaves it
// pending until MarkPaid.
func (f *Finance) RecordExpense(ctx context.Context, counterparty string, amount decimal.Decimal, paid bool) (core.Movement, error) {
	if strings.TrimSpace(counterparty) == "" {
		return core.Movement{}, core.ErrEmptyCounterparty
	}
	if amount.IsZero() {
		return core.Movement{}, core.ErrInvalidAmount
	}
	now := f.now()
	m := core.NewMovement(now, now.Format("15:04"), strings.TrimSpace(counterparty), amount.Abs().Neg(), paid)
	return m, f.submit(ctx, m)
}

func (f *Finance) submit(ctx context.Context, m core.Movement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	// Populate the snapshot first so the optimistic apply has somewhere to
	// land; a store outage here degrades to write-only operation.
	if _, err := f.cache.Get(ctx, false); err == nil {
		f.cache.ApplyOptimistic(m)
	}
	if !f.committer.Enqueue(queue.Intent{Kind: queue.AppendIntent, Movement: m}) {
		return ErrQueueFull
	}
	return nil
}

// MarkPaid settles the pending expense at the given 1-based snapshot
// position, as reported by PendingExpenses. Positions shift on deletion, so
// callers must re-list after any mutating operation.
func (f *Finance) MarkPaid(ctx context.Context, position int) (core.Movement, error) {
	snap, err := f.cache.Get(ctx, false)
	if err != nil {
		return core.Movement{}, err
	}
	if position < 1 || position > len(snap.Movements) {
		return core.Movement{}, core.ErrNoSuchRow
	}
	m := snap.Movements[position-1]
	if !m.IsExpense() || m.Paid {
		return core.Movement{}, core.ErrNotPending
	}
	m.Paid = true
	f.cache.UpdateOptimistic(m)
	if !f.committer.Enqueue(queue.Intent{Kind: queue.MarkPaidIntent, Movement: m}) {
		return core.Movement{}, ErrQueueFull
	}
	return m, nil
}

// UndoLast removes the most recent movement matching pred and returns it.
// A nil pred undoes the last customer sale, the common fat-finger case.
func (f *Finance) UndoLast(ctx context.Context, pred func(core.Movement) bool) (core.Movement, error) {
	if pred == nil {
		pred = func(m core.Movement) bool { return m.IsCustomer() && m.IsIncome() }
	}
	if _, err := f.cache.Get(ctx, false); err != nil {
		return core.Movement{}, err
	}
	removed, ok := f.cache.RemoveOptimisticLast(pred)
	if !ok {
		return core.Movement{}, core.ErrNoSuchRow
	}
	if !f.committer.Enqueue(queue.Intent{Kind: queue.DeleteIntent, Movement: removed}) {
		return core.Movement{}, ErrQueueFull
	}
	return removed, nil
}

// DailyTotals aggregates the given calendar day; a zero date means today.
func (f *Finance) DailyTotals(ctx context.Context, date time.Time) (core.DailyTotals, error) {
	if date.IsZero() {
		date = f.now()
	}
	snap, err := f.cache.Get(ctx, false)
	if err != nil {
		return core.DailyTotals{}, err
	}
	totals := core.DailyTotals{
		Date:       core.Midnight(date),
		ByCategory: make(map[core.Category]decimal.Decimal),
	}
	for _, m := range snap.Movements {
		if !core.SameDay(m.Date, date) {
			continue
		}
		totals.MovementCount++
		cat := core.Categorize(m.Counterparty)
		totals.ByCategory[cat] = totals.ByCategory[cat].Add(m.Amount)
		if m.IsIncome() {
			totals.Income = totals.Income.Add(m.Amount)
			if m.IsCustomer() {
				totals.CustomerIncome = totals.CustomerIncome.Add(m.Amount)
			}
		} else {
			totals.Expense = totals.Expense.Add(m.Amount)
		}
	}
	totals.Net = totals.Income.Add(totals.Expense)
	return totals, nil
}

// MonthlyTotals aggregates the active month with the default exclusions
// applied, so merchandise purchases and waste stay out of the result line.
func (f *Finance) MonthlyTotals(ctx context.Context) (core.MonthlyTotals, error) {
	return f.MonthlyTotalsExcluding(ctx, core.DefaultExclusions)
}

// MonthlyTotalsExcluding aggregates the active month, skipping movements
// whose category is in exclusions. OperatingDays counts distinct dates with
// at least one non-excluded movement.
func (f *Finance) MonthlyTotalsExcluding(ctx context.Context, exclusions []core.Category) (core.MonthlyTotals, error) {
	snap, err := f.cache.Get(ctx, false)
	if err != nil {
		return core.MonthlyTotals{}, err
	}
	var totals core.MonthlyTotals
	days := make(map[time.Time]struct{})
	for _, m := range snap.Movements {
		if core.Categorize(m.Counterparty).Excluded(exclusions) {
			continue
		}
		days[core.Midnight(m.Date)] = struct{}{}
		if m.IsIncome() {
			totals.Income = totals.Income.Add(m.Amount)
			if m.IsCustomer() {
				totals.CustomerIncome = totals.CustomerIncome.Add(m.Amount)
			}
		} else {
			totals.Expense = totals.Expense.Add(m.Amount)
		}
	}
	totals.Net = totals.Income.Add(totals.Expense)
	totals.OperatingDays = len(days)
	return totals, nil
}

// TotalForCounterparty sums every movement recorded for the exact
// counterparty name, case-insensitively, regardless of category exclusions.
// The second result is the number of matching movements.
func (f *Finance) TotalForCounterparty(ctx context.Context, name string) (decimal.Decimal, int, error) {
	snap, err := f.cache.Get(ctx, false)
	if err != nil {
		return decimal.Zero, 0, err
	}
	var total decimal.Decimal
	count := 0
	for _, m := range snap.Movements {
		if strings.EqualFold(strings.TrimSpace(m.Counterparty), strings.TrimSpace(name)) {
			total = total.Add(m.Amount)
			count++
		}
	}
	return total, count, nil
}

// PendingExpenses lists unpaid expenses in snapshot order, with their
// current 1-based positions for MarkPaid.
func (f *Finance) PendingExpenses(ctx context.Context) ([]core.PendingExpense, error) {
	snap, err := f.cache.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	var pending []core.PendingExpense
	for i, m := range snap.Movements {
		if m.IsExpense() && !m.Paid {
			pending = append(pending, core.PendingExpense{Position: i + 1, Movement: m})
		}
	}
	return pending, nil
}

// AdvancedStatistics computes the monthly analysis: average daily customer
// sale, the best day, the five largest expense counterparties, and a linear
// projection to month end scaled by elapsed days.
func (f *Finance) AdvancedStatistics(ctx context.Context) (core.Statistics, error) {
	snap, err := f.cache.Get(ctx, false)
	if err != nil {
		return core.Statistics{}, err
	}
	if len(snap.Movements) == 0 {
		return core.Statistics{}, nil
	}

	now := f.now()
	daysElapsed := now.Day()

	salesByDay := make(map[time.Time]decimal.Decimal)
	expenseByCounterparty := make(map[string]decimal.Decimal)
	operatingDays := make(map[time.Time]struct{})
	var totalIncome, totalExpense decimal.Decimal

	for _, m := range snap.Movements {
		day := core.Midnight(m.Date)
		operatingDays[day] = struct{}{}
		switch {
		case m.IsIncome():
			// The projection uses every income; the sale figures below
			// stay customer-only.
			totalIncome = totalIncome.Add(m.Amount)
			if m.IsCustomer() {
				salesByDay[day] = salesByDay[day].Add(m.Amount)
			}
		case m.IsExpense():
			abs := m.Amount.Abs()
			expenseByCounterparty[m.Counterparty] = expenseByCounterparty[m.Counterparty].Add(abs)
			totalExpense = totalExpense.Add(abs)
		}
	}

	stats := core.Statistics{HasData: true, OperatingDays: len(operatingDays)}

	if len(salesByDay) > 0 {
		var sum decimal.Decimal
		for day, amount := range salesByDay {
			sum = sum.Add(amount)
			if amount.GreaterThan(stats.BestDayAmount) || stats.BestDay.IsZero() {
				stats.BestDay, stats.BestDayAmount = day, amount
			}
		}
		stats.AverageDailySale = sum.Div(decimal.NewFromInt(int64(len(salesByDay)))).Round(2)
	}

	top := make([]core.CounterpartyTotal, 0, len(expenseByCounterparty))
	for name, amount := range expenseByCounterparty {
		top = append(top, core.CounterpartyTotal{Counterparty: name, Amount: amount})
	}
	sort.Slice(top, func(i, j int) bool {
		if !top[i].Amount.Equal(top[j].Amount) {
			return top[i].Amount.GreaterThan(top[j].Amount)
		}
		return top[i].Counterparty < top[j].Counterparty
	})
	if len(top) > 5 {
		top = top[:5]
	}
	stats.TopExpenses = top

	// Project the rest of the month linearly from the pace so far. Scaling
	// by calendar days elapsed, not operating days, keeps closed days from
	// inflating the projection.
	factor := decimal.NewFromInt(int64(core.DaysInMonth(now))).
		Div(decimal.NewFromInt(int64(daysElapsed)))
	stats.Projection = core.Projection{
		Income:  totalIncome.Mul(factor).Round(2),
		Expense: totalExpense.Mul(factor).Round(2),
		Net:     totalIncome.Sub(totalExpense).Mul(factor).Round(2),
	}
	return stats, nil
}

// Refresh forces a store round-trip, bypassing the TTL.
func (f *Finance) Refresh(ctx context.Context) error {
	_, err := f.cache.Get(ctx, true)
	return err
}
