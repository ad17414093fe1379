package cache

import (
	"context"
	"sync"

	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/models"
)

// MemoryPreferenceStore is the process-local preference store used when no
// Redis is configured.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs models.MPreferences
	saved bool
}

var _ interfaces.IPreferenceStore = (*MemoryPreferenceStore)(nil)

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: models.DefaultPreferences()}
}

func (s *MemoryPreferenceStore) Load(ctx context.Context) (models.MPreferences, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs, s.saved, nil
}

func (s *MemoryPreferenceStore) Save(ctx context.Context, prefs models.MPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
	s.saved = true
	return nil
}
