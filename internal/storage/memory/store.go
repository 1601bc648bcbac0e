// Package memory is an in-memory implementation of interfaces.Store. It
// backs tests and serves as the fallback when no database is configured;
// durability then lasts only for the process lifetime.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cardbank/ledger/internal/interfaces"
	"github.com/cardbank/ledger/internal/models"
)

// Store keeps the audit trail in a slice and the snapshot table in a map.
// It is mutex-guarded, though the log worker is normally its only caller.
type Store struct {
	mu       sync.Mutex
	entries  []models.LedgerEntry
	accounts map[string]models.AccountRecord
}

func NewStore() *Store {
	return &Store{accounts: make(map[string]models.AccountRecord)}
}

func (s *Store) AppendEntry(_ context.Context, entry models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) EntriesByAccount(_ context.Context, accountID string) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.Account == accountID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Entries returns a copy of the whole audit trail in append order.
func (s *Store) Entries() []models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) PurgeEntries(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func (s *Store) UpsertAccount(_ context.Context, rec models.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[rec.ID] = rec
	return nil
}

func (s *Store) UpdateCash(_ context.Context, id string, cash int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.accounts[id]
	if !ok {
		return interfaces.ErrNoRecord
	}
	rec.Cash = cash
	s.accounts[id] = rec
	return nil
}

func (s *Store) UpdateProperties(_ context.Context, id string, properties []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.accounts[id]
	if !ok {
		return interfaces.ErrNoRecord
	}
	rec.Properties = append([]string(nil), properties...)
	s.accounts[id] = rec
	return nil
}

func (s *Store) SetCredentials(_ context.Context, id string, salt, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.accounts[id]
	if !ok {
		return interfaces.ErrNoRecord
	}
	rec.Salt = append([]byte(nil), salt...)
	rec.PasswordHash = append([]byte(nil), hash...)
	s.accounts[id] = rec
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}

func (s *Store) AllAccounts(_ context.Context) ([]models.AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AccountRecord, 0, len(s.accounts))
	for _, rec := range s.accounts {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PurgeAccounts(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]models.AccountRecord)
	return nil
}

func (s *Store) Close() error { return nil }

var _ interfaces.Store = (*Store)(nil)
