package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerLabel is the counterparty recorded for direct customer sales.
const CustomerLabel = "cliente"

var (
	ErrInvalidAmount       = errors.New("amount must be non-zero")
	ErrEmptyCounterparty   = errors.New("counterparty must not be empty")
	ErrZeroDate            = errors.New("movement date must be set")
	ErrDuplicateSubmission = errors.New("identical amount submitted moments ago")
	ErrInsufficientData    = errors.New("not enough data for statistics")
	ErrNoSuchRow           = errors.New("no such row")
	ErrNotPending          = errors.New("movement is not a pending expense")
)

// Movement is a single ledger entry. Income carries a positive Amount,
// expenses a negative one. The ID exists only in memory; the backing store
// never persists it, so two reads of the same row yield distinct IDs.
type Movement struct {
	ID           uuid.UUID
	Date         time.Time
	Time         string
	Counterparty string
	Amount       decimal.Decimal
	Paid         bool
}

// NewMovement builds a movement with a fresh ID. The date is truncated to
// midnight in its own location; the wall-clock time lives in the Time field.
func NewMovement(date time.Time, clock, counterparty string, amount decimal.Decimal, paid bool) Movement {
	return Movement{
		ID:           uuid.New(),
		Date:         Midnight(date),
		Time:         clock,
		Counterparty: counterparty,
		Amount:       amount,
		Paid:         paid,
	}
}

func (m Movement) Validate() error {
	if m.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(m.Counterparty) == "" {
		return ErrEmptyCounterparty
	}
	if m.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Movement) IsIncome() bool  { return m.Amount.IsPositive() }
func (m Movement) IsExpense() bool { return m.Amount.IsNegative() }

// IsCustomer reports whether the movement is a direct customer sale.
func (m Movement) IsCustomer() bool {
	return strings.EqualFold(strings.TrimSpace(m.Counterparty), CustomerLabel)
}

// SameContent compares the persisted columns of two movements. The ID and
// the paid flag are ignored: the former never reaches the store, the latter
// may have been flipped remotely between read and write.
func (m Movement) SameContent(o Movement) bool {
	return SameDay(m.Date, o.Date) &&
		m.Time == o.Time &&
		m.Counterparty == o.Counterparty &&
		m.Amount.Equal(o.Amount)
}

// Midnight truncates t to the start of its day, preserving the location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// FirstOfMonth returns midnight on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of calendar days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
