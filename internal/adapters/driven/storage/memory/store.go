// Package memory provides an in-memory CredentialStore for tests and
// single-process tooling. Lock only excludes goroutines within the process.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CredentialStore = (*Store)(nil)

// Store is an in-memory implementation of driven.CredentialStore.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.TokenRecord
	locks   map[string]*semaphore
}

// semaphore is a context-aware mutex.
type semaphore struct {
	ch chan struct{}
}

func newSemaphore() *semaphore {
	return &semaphore{ch: make(chan struct{}, 1)}
}

func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() { <-s.ch }

// NewStore creates an empty in-memory credential store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]domain.TokenRecord),
		locks:   make(map[string]*semaphore),
	}
}

// Load returns the tenant's record or domain.ErrNotFound.
func (s *Store) Load(_ context.Context, tenant string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[tenant]
	if !ok || !rec.Valid() {
		return nil, domain.ErrNotFound
	}
	copied := rec
	return &copied, nil
}

// Save replaces the tenant's record.
func (s *Store) Save(_ context.Context, tenant string, rec domain.TokenRecord) error {
	if !rec.Valid() {
		return &domain.StoreError{Tenant: tenant, Op: "save",
			Err: fmt.Errorf("record is incomplete or expires before it was issued")}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[tenant] = rec
	return nil
}

// Revoke marks the tenant's record unusable.
func (s *Store) Revoke(_ context.Context, tenant string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[tenant]
	if !ok {
		return domain.ErrNotFound
	}
	rec.RevokedAt = &at
	s.records[tenant] = rec
	return nil
}

// Lock acquires the tenant's refresh lock.
func (s *Store) Lock(ctx context.Context, tenant string) (func(), error) {
	s.mu.Lock()
	sem, ok := s.locks[tenant]
	if !ok {
		sem = newSemaphore()
		s.locks[tenant] = sem
	}
	s.mu.Unlock()

	if err := sem.acquire(ctx); err != nil {
		return nil, &domain.StoreError{Tenant: tenant, Op: "lock", Err: err}
	}
	return sem.release, nil
}
