// Package memory provides an in-process ledger store, used as the default
// backend and as the fake store in tests.
package memory

import (
	"context"
	"sync"

	"caja/internal/core"
	"caja/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	partitions map[ledger.PartitionKey][]core.Movement

	// ReadErr, when set, is returned by ReadAll. Tests use it to simulate
	// transient store failures.
	ReadErr  error
	WriteErr error

	reads int
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{partitions: make(map[ledger.PartitionKey][]core.Movement)}
}

func (s *Store) ReadAll(_ context.Context, key ledger.PartitionKey) ([]core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	s.reads++
	rows := s.partitions[key]
	out := make([]core.Movement, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *Store) Append(_ context.Context, key ledger.PartitionKey, m core.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.partitions[key] = append(s.partitions[key], m)
	return nil
}

func (s *Store) UpdateCell(_ context.Context, key ledger.PartitionKey, row int, col ledger.Column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	rows := s.partitions[key]
	if row < 1 || row > len(rows) {
		return core.ErrNoSuchRow
	}
	m := rows[row-1]
	switch col {
	case ledger.ColTime:
		m.Time = value
	case ledger.ColCounterparty:
		m.Counterparty = value
	case ledger.ColPaid:
		m.Paid = ledger.DecodePaid(value)
	default:
		// Date and amount cells are never rewritten by the engine.
		return core.ErrNoSuchRow
	}
	rows[row-1] = m
	return nil
}

func (s *Store) DeleteRow(_ context.Context, key ledger.PartitionKey, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	rows := s.partitions[key]
	if row < 1 || row > len(rows) {
		return core.ErrNoSuchRow
	}
	s.partitions[key] = append(rows[:row-1], rows[row:]...)
	return nil
}

// Reads returns how many ReadAll calls have succeeded, for cache tests.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
