// Package ledger defines the port to the backing tabular store and the
// row codec shared by its adapters. A partition is the movement set of one
// calendar month; exactly one partition (the current month) is active.
package ledger

import (
	"context"
	"time"

	"caja/internal/core"
)

// PartitionKey identifies a monthly partition, formatted "2006-01".
type PartitionKey string

// ActiveKey returns the partition key for the month containing now.
func ActiveKey(now time.Time) PartitionKey {
	return PartitionKey(now.Format("2006-01"))
}

// Column addresses one field of the five-column schema
// [Fecha, Hora, Proveedor, Monto, Pagado].
type Column int

const (
	ColDate Column = iota + 1
	ColTime
	ColCounterparty
	ColAmount
	ColPaid
)

// Header is the fixed header row written when a partition is created.
var Header = []string{"Fecha", "Hora", "Proveedor", "Monto", "Pagado"}

// Store is the port to the backing tabular store. Row positions are
// 1-based over the partition's movements (the header row is an adapter
// concern and never leaks through this interface). Adapters open or create
// the partition lazily on first use of a key.
type Store interface {
	// ReadAll returns the partition's movements in row order. Malformed
	// rows are skipped, not errors.
	ReadAll(ctx context.Context, key PartitionKey) ([]core.Movement, error)

	// Append adds a movement as the partition's last row.
	Append(ctx context.Context, key PartitionKey, m core.Movement) error

	// UpdateCell overwrites a single cell of the given row.
	UpdateCell(ctx context.Context, key PartitionKey, row int, col Column, value string) error

	// DeleteRow removes the given row, shifting subsequent positions.
	DeleteRow(ctx context.Context, key PartitionKey, row int) error
}
