package memstore

import (
	"sync"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/repository"
)

// Store is an in-memory configuration store for testing and dry runs.
type Store struct {
	cfg   *table.Config
	saves int
	mutex sync.RWMutex
}

// New returns a new empty Store.
func New() *Store {
	return &Store{}
}

// Save keeps a copy of the configuration if it is newer than the held one.
func (s *Store) Save(cfg table.Config) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cfg != nil && cfg.Version <= s.cfg.Version {
		return nil
	}

	copied := cfg.Copy()
	s.cfg = &copied
	s.saves++
	return nil
}

// Load returns a copy of the held configuration.
func (s *Store) Load() (table.Config, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.cfg == nil {
		return table.Config{}, repository.ErrNotExist
	}
	return s.cfg.Copy(), nil
}

// Saves returns the number of accepted saves.
func (s *Store) Saves() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.saves
}

// Close does nothing.
func (s *Store) Close() error {
	return nil
}
