package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyTotals aggregates one calendar day. Expense stays negative;
// Net = Income + Expense.
type DailyTotals struct {
	Date           time.Time
	Income         decimal.Decimal
	Expense        decimal.Decimal
	Net            decimal.Decimal
	CustomerIncome decimal.Decimal
	MovementCount  int
	ByCategory     map[Category]decimal.Decimal
}

// MonthlyTotals aggregates the current month. OperatingDays is the number
// of distinct dates with at least one movement after exclusions.
type MonthlyTotals struct {
	Income         decimal.Decimal
	Expense        decimal.Decimal
	Net            decimal.Decimal
	CustomerIncome decimal.Decimal
	OperatingDays  int
}

// PendingExpense is an unpaid expense row together with its current
// position in the snapshot. The position is 1-based and is invalidated by
// any deletion; callers must not hold it across mutating operations.
type PendingExpense struct {
	Position int
	Movement Movement
}

// CounterpartyTotal is one entry of a top-N expense ranking; Amount is the
// summed absolute expense.
type CounterpartyTotal struct {
	Counterparty string
	Amount       decimal.Decimal
}

// Projection is the linear extrapolation of the current month to its end.
// Expense is kept positive here (absolute outflow).
type Projection struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// Statistics is the advanced monthly analysis. HasData is false when no
// movements exist or zero days have elapsed; all other fields are then
// zero values.
type Statistics struct {
	HasData          bool
	AverageDailySale decimal.Decimal
	BestDay          time.Time
	BestDayAmount    decimal.Decimal
	TopExpenses      []CounterpartyTotal
	OperatingDays    int
	Projection       Projection
}
