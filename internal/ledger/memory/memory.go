// Package memory provides an in-memory ledger backend for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

var _ ledger.Writer = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}
