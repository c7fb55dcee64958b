// Package memstore provides an in-memory implementation of analysis.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/herdsight/internal/analysis"
)

// Store holds run records in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	results map[string]*analysis.Result // run ID -> result
	byFarm  map[string]string           // farm code -> latest run ID (dedup)
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		results: make(map[string]*analysis.Result),
		byFarm:  make(map[string]string),
	}
}

// Get retrieves a run record by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*analysis.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetByFarm retrieves the latest run record for a farm, for
// deduplication. Returns a copy.
func (s *Store) GetByFarm(_ context.Context, farmCode string) (*analysis.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byFarm[farmCode]
	if !ok {
		return nil, false, nil
	}
	r := s.results[id]
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the run record.
func (s *Store) Put(_ context.Context, r *analysis.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.results[r.ID] = &cp
	s.byFarm[r.FarmCode] = r.ID
	return nil
}
