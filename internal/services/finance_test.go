package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"caja/internal/cache"
	"caja/internal/core"
	"caja/internal/ledger"
	"caja/internal/ledger/memory"
	"caja/internal/queue"
)

var septNoon = time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

func newFinance(t *testing.T) (*Finance, *memory.Store) {
	t.Helper()
	store := memory.New()
	now := func() time.Time { return septNoon }

	c := cache.New(store, cache.DefaultTTL, now)
	c.Retry = ledger.RetryPolicy{Attempts: 1, Timeout: time.Second}

	committer := queue.New(store, 16, 0)
	committer.Retry = ledger.RetryPolicy{Attempts: 1, Timeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	committer.Start(ctx)
	t.Cleanup(cancel)

	return New(c, committer, NewGuard(DefaultGuardCapacity, DefaultGuardWindow), now), store
}

func amt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestRecordIncomeVisibleBeforeCommit(t *testing.T) {
	f, _ := newFinance(t)
	ctx := context.Background()

	m, err := f.RecordIncome(ctx, amt(1500))
	if err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if !m.IsCustomer() || !m.Paid {
		t.Errorf("income should be a paid customer movement, got %+v", m)
	}

	day, err := f.DailyTotals(ctx, time.Time{})
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if !day.Net.Equal(amt(1500)) {
		t.Errorf("net = %s, want 1500 immediately after recording", day.Net)
	}
	if !day.CustomerIncome.Equal(amt(1500)) {
		t.Errorf("customer income = %s, want 1500", day.CustomerIncome)
	}
}

func TestRecordIncomeRejectsDuplicateWithinWindow(t *testing.T) {
	f, _ := newFinance(t)
	ctx := context.Background()

	if _, err := f.RecordIncome(ctx, amt(1500)); err != nil {
		t.Fatalf("first income: %v", err)
	}
	if _, err := f.RecordIncome(ctx, amt(1500)); !errors.Is(err, core.ErrDuplicateSubmission) {
		t.Fatalf("second identical income: got %v, want ErrDuplicateSubmission", err)
	}
	if _, err := f.RecordIncome(ctx, amt(2000)); err != nil {
		t.Fatalf("different amount should pass: %v", err)
	}

	day, _ := f.DailyTotals(ctx, septNoon)
	if !day.Income.Equal(amt(3500)) {
		t.Errorf("income = %s, want 3500 (duplicate counted once)", day.Income)
	}
}

func TestRecordIncomeValidation(t *testing.T) {
	f, _ := newFinance(t)
	if _, err := f.RecordIncome(context.Background(), amt(-5)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative income: got %v, want ErrInvalidAmount", err)
	}
	if _, err := f.RecordExpense(context.Background(), "  ", amt(100), true); !errors.Is(err, core.ErrEmptyCounterparty) {
		t.Errorf("blank counterparty: got %v, want ErrEmptyCounterparty", err)
	}
}

func TestExpenseAmountAlwaysNegative(t *testing.T) {
	f, _ := newFinance(t)
	m, err := f.RecordExpense(context.Background(), "Distri", amt(500), true)
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if !m.Amount.Equal(amt(-500)) {
		t.Errorf("amount = %s, want -500 regardless of input sign", m.Amount)
	}
}

func TestPendingExpenseLifecycle(t *testing.T) {
	f, store := newFinance(t)
	ctx := context.Background()

	if _, err := f.RecordExpense(ctx, "Coca", amt(500), false); err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}

	pending, err := f.PendingExpenses(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending=%d err=%v, want exactly one", len(pending), err)
	}
	if pending[0].Movement.Counterparty != "Coca" || !pending[0].Movement.Amount.Equal(amt(-500)) {
		t.Fatalf("unexpected pending entry %+v", pending[0])
	}

	settled, err := f.MarkPaid(ctx, pending[0].Position)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !settled.Paid {
		t.Error("settled movement should be paid")
	}

	pending, _ = f.PendingExpenses(ctx)
	if len(pending) != 0 {
		t.Fatalf("pending=%d after MarkPaid, want 0", len(pending))
	}

	f.committer.Flush()
	rows, _ := store.ReadAll(ctx, ledger.ActiveKey(septNoon))
	if len(rows) != 1 || !rows[0].Paid {
		t.Errorf("store row should be settled after drain, got %+v", rows)
	}
}

func TestMarkPaidRejectsNonPending(t *testing.T) {
	f, _ := newFinance(t)
	ctx := context.Background()

	f.RecordIncome(ctx, amt(1500))
	f.RecordExpense(ctx, "Distri", amt(300), true)

	if _, err := f.MarkPaid(ctx, 1); !errors.Is(err, core.ErrNotPending) {
		t.Errorf("income position: got %v, want ErrNotPending", err)
	}
	if _, err := f.MarkPaid(ctx, 2); !errors.Is(err, core.ErrNotPending) {
		t.Errorf("already-paid position: got %v, want ErrNotPending", err)
	}
	if _, err := f.MarkPaid(ctx, 99); !errors.Is(err, core.ErrNoSuchRow) {
		t.Errorf("out of range: got %v, want ErrNoSuchRow", err)
	}
}

func TestMonthlyTotalsApplyDefaultExclusions(t *testing.T) {
	f, _ := newFinance(t)
	ctx := context.Background()

	f.RecordIncome(ctx, amt(1500))
	f.RecordExpense(ctx, "Mercaderia", amt(700), true)

	month, err := f.MonthlyTotals(ctx)
	if err != nil {
		t.Fatalf("MonthlyTotals: %v", err)
	}
	if !month.Net.Equal(amt(1500)) {
		t.Errorf("net = %s, want 1500 with merchandise excluded", month.Net)
	}

	// The per-counterparty total ignores exclusions.
	total, count, err := f.TotalForCounterparty(ctx, "mercaderia")
	if err != nil || count != 1 || !total.Equal(amt(-700)) {
		t.Errorf("counterparty total = %s count=%d err=%v, want -700/1", total, count, err)
	}

	all, err := f.MonthlyTotalsExcluding(ctx, nil)
	if err != nil || !all.Net.Equal(amt(800)) {
		t.Errorf("unfiltered net = %s err=%v, want 800", all.Net, err)
	}
}

func TestUndoLastRemovesMostRecentSale(t *testing.T) {
	f, store := newFinance(t)
	ctx := context.Background()

	f.RecordIncome(ctx, amt(1000))
	f.RecordIncome(ctx, amt(2000))
	f.RecordExpense(ctx, "Distri", amt(300), true)

	removed, err := f.UndoLast(ctx, nil)
	if err != nil {
		t.Fatalf("UndoLast: %v", err)
	}
	if !removed.Amount.Equal(amt(2000)) {
		t.Errorf("removed %s, want the later sale of 2000", removed.Amount)
	}

	day, _ := f.DailyTotals(ctx, septNoon)
	if !day.Income.Equal(amt(1000)) {
		t.Errorf("income = %s after undo, want 1000", day.Income)
	}

	f.committer.Flush()
	rows, _ := store.ReadAll(ctx, ledger.ActiveKey(septNoon))
	if len(rows) != 2 {
		t.Fatalf("store rows = %d after drain, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Amount.Equal(amt(2000)) {
			t.Error("undone sale still present in store")
		}
	}
}

func TestUndoLastWithNothingToUndo(t *testing.T) {
	f, _ := newFinance(t)
	if _, err := f.UndoLast(context.Background(), nil); !errors.Is(err, core.ErrNoSuchRow) {
		t.Errorf("got %v, want ErrNoSuchRow on empty month", err)
	}
}

func TestProjectionCountsNonCustomerIncome(t *testing.T) {
	f, store := newFinance(t)
	ctx := context.Background()

	// A correction row entered as a positive amount is income without
	// being a customer sale; seed it store-side the way a manual sheet
	// edit would land.
	key := ledger.ActiveKey(septNoon)
	store.Append(ctx, key, core.NewMovement(septNoon, "10:00", "cliente", amt(1000), true))
	store.Append(ctx, key, core.NewMovement(septNoon, "11:00", "Corrección Caja", amt(500), true))

	stats, err := f.AdvancedStatistics(ctx)
	if err != nil {
		t.Fatalf("AdvancedStatistics: %v", err)
	}
	// Sep 10 of a 30-day month: factor 3 over 1500 of total income.
	if !stats.Projection.Income.Equal(amt(4500)) {
		t.Errorf("projected income = %s, want 4500 (all income counts)", stats.Projection.Income)
	}
	if !stats.Projection.Net.Equal(amt(4500)) {
		t.Errorf("projected net = %s, want 4500", stats.Projection.Net)
	}
	// The sale figures stay customer-only.
	if !stats.AverageDailySale.Equal(amt(1000)) {
		t.Errorf("average daily sale = %s, want 1000 (customer sales only)", stats.AverageDailySale)
	}
	if !stats.BestDayAmount.Equal(amt(1000)) {
		t.Errorf("best day amount = %s, want 1000", stats.BestDayAmount)
	}
}

func TestAdvancedStatisticsEmptyMonth(t *testing.T) {
	f, _ := newFinance(t)
	stats, err := f.AdvancedStatistics(context.Background())
	if err != nil {
		t.Fatalf("AdvancedStatistics: %v", err)
	}
	if stats.HasData {
		t.Error("HasData should be false for an empty month")
	}
}

func TestAdvancedStatistics(t *testing.T) {
	f, _ := newFinance(t)
	ctx := context.Background()

	f.RecordIncome(ctx, amt(1500))
	f.RecordExpense(ctx, "Distri", amt(700), true)
	f.RecordExpense(ctx, "Tandil", amt(200), true)

	stats, err := f.AdvancedStatistics(ctx)
	if err != nil {
		t.Fatalf("AdvancedStatistics: %v", err)
	}
	if !stats.HasData {
		t.Fatal("HasData should be true")
	}
	if !stats.AverageDailySale.Equal(amt(1500)) {
		t.Errorf("average daily sale = %s, want 1500", stats.AverageDailySale)
	}
	if !core.SameDay(stats.BestDay, septNoon) || !stats.BestDayAmount.Equal(amt(1500)) {
		t.Errorf("best day = %v/%s, want today/1500", stats.BestDay, stats.BestDayAmount)
	}
	if len(stats.TopExpenses) != 2 || stats.TopExpenses[0].Counterparty != "Distri" {
		t.Fatalf("top expenses = %+v, want Distri first", stats.TopExpenses)
	}
	if !stats.TopExpenses[0].Amount.Equal(amt(700)) {
		t.Errorf("top expense amount = %s, want 700 (absolute)", stats.TopExpenses[0].Amount)
	}
	if stats.OperatingDays != 1 {
		t.Errorf("operating days = %d, want 1", stats.OperatingDays)
	}

	// Sep 10 of a 30-day month projects at a factor of 3.
	if !stats.Projection.Income.Equal(amt(4500)) {
		t.Errorf("projected income = %s, want 4500", stats.Projection.Income)
	}
	if !stats.Projection.Expense.Equal(amt(2700)) {
		t.Errorf("projected expense = %s, want 2700", stats.Projection.Expense)
	}
	if !stats.Projection.Net.Equal(amt(1800)) {
		t.Errorf("projected net = %s, want 1800", stats.Projection.Net)
	}
}
