package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bloodbuddy/donor-cli/internal/model"
)

// MemoryStore keeps donors in process memory. It backs dry runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	donors   []model.Donor
	contacts map[string]bool
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{contacts: make(map[string]bool)}
}

func (s *MemoryStore) InsertDonor(_ context.Context, d model.Donor) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contacts[d.Contact] {
		return "", ErrDuplicateContact
	}
	d.ID = uuid.New().String()
	s.contacts[d.Contact] = true
	s.donors = append(s.donors, d)
	return d.ID, nil
}

func (s *MemoryStore) ListDonors(_ context.Context) ([]model.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Donor, len(s.donors))
	copy(out, s.donors)
	return out, nil
}

// Len returns the number of stored donors.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.donors)
}

func (s *MemoryStore) Ping(context.Context) error    { return nil }
func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }
