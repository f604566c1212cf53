package otp

import (
	"context"
	"sync"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
)

// MemoryStore keeps challenges in process memory. It suits tests and single
// instance deployments; challenges are lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	challenges map[string]Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]Challenge)}
}

func (s *MemoryStore) Put(ctx context.Context, c Challenge) error {
	c.Email = domain.NormalizeEmail(c.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.Email] = c
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, email string) (Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[domain.NormalizeEmail(email)]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) Update(ctx context.Context, c Challenge) error {
	c.Email = domain.NormalizeEmail(c.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[c.Email]; !ok {
		return ErrNotFound
	}
	s.challenges[c.Email] = c
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, domain.NormalizeEmail(email))
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for email, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, email)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored challenges.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.challenges)
}
