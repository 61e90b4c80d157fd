package store

import (
	"errors"
	"sync"

	"github.com/i474232898/current-conditions/internal/weather"
)

var (
	// ErrNotFound is returned when no snapshot is available.
	ErrNotFound = errors.New("no weather snapshot available")
)

// MemoryStore is a concurrency-safe in-memory holder of the latest snapshot per position.
// Saving replaces the previous snapshot wholesale; no history is kept.
type MemoryStore struct {
	mu sync.RWMutex

	// key: coordinates key
	data map[string]weather.WeatherSnapshot

	// key of the most recent save
	lastKey string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]weather.WeatherSnapshot),
	}
}

// SaveSnapshot stores snapshot as the latest for its coordinates.
func (s *MemoryStore) SaveSnapshot(snapshot weather.WeatherSnapshot) {
	key := snapshot.Coordinates.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = snapshot
	s.lastKey = key
}

// GetLatest returns the most recent snapshot for coords.
func (s *MemoryStore) GetLatest(coords weather.Coordinates) (weather.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[coords.Key()]
	if !ok {
		return weather.WeatherSnapshot{}, ErrNotFound
	}
	return snap, nil
}

// Latest returns the most recently saved snapshot regardless of position.
func (s *MemoryStore) Latest() (weather.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastKey == "" {
		return weather.WeatherSnapshot{}, ErrNotFound
	}
	return s.data[s.lastKey], nil
}
