package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"algoforce/internal/domain"
)

// MemoryContactStore keeps contacts in process memory. It is selected with
// DATABASE_URL=memory:// for local development and used by tests.
type MemoryContactStore struct {
	mu       sync.RWMutex
	contacts map[string]*domain.Contact
	writes   int
	nowF     func() time.Time
}

// NewMemoryContactStore returns an empty in-memory store.
func NewMemoryContactStore() *MemoryContactStore {
	return &MemoryContactStore{
		contacts: make(map[string]*domain.Contact),
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a copy of c, filling its defaults
func (s *MemoryContactStore) Create(ctx context.Context, c *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ApplyDefaults(s.nowF())
	s.contacts[c.ID] = c.Clone()
	s.writes++
	return nil
}

// Find returns matching records, newest first
func (s *MemoryContactStore) Find(ctx context.Context, f Filter) ([]domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Contact, 0)
	for _, c := range s.contacts {
		if f.Channel != "" && c.ContactChannel != f.Channel {
			continue
		}
		if !f.SubmittedSince.IsZero() && c.SubmittedAt.Before(f.SubmittedSince) {
			continue
		}
		if f.Verified != nil && c.OTPVerified != *f.Verified {
			continue
		}
		out = append(out, *c.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Get returns a copy of the record with the given id
func (s *MemoryContactStore) Get(ctx context.Context, id string) (*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// Update applies ch to the record with the given id
func (s *MemoryContactStore) Update(ctx context.Context, id string, ch Changes) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if ch.RequireUnverified && c.OTPVerified {
		return nil, ErrConflict
	}

	if ch.Status != nil {
		c.Status = *ch.Status
	}
	if ch.OTPVerified != nil {
		c.OTPVerified = *ch.OTPVerified
	}
	if ch.Profile != nil {
		p := *ch.Profile
		if p.Email == "" {
			p.Email = c.Profile().Email
		}
		c.SetProfile(p)
	}
	now := s.nowF()
	c.UpdatedAt = &now
	s.writes++
	return c.Clone(), nil
}

// Ping always succeeds
func (s *MemoryContactStore) Ping(ctx context.Context) error {
	return nil
}

// Writes returns the number of successful Create and Update calls.
func (s *MemoryContactStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// SetClock replaces the clock used for default timestamps.
func (s *MemoryContactStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowF = now
}
