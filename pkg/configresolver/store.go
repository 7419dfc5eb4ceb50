package configresolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Store.Get when userId has no configuration.
var ErrNotFound = errors.New("configresolver: configuration not found")

// Store is the persistence boundary C4 consumes. Concrete adapters
// (Postgres, a document store, etc.) live outside the core; only the
// interface and a reference in-memory implementation live here.
type Store interface {
	Get(ctx context.Context, userID string) (*StoredConfig, error)
	ListByOwner(ctx context.Context, apiKeyIDHash string) ([]*StoredConfig, error)
	Create(ctx context.Context, cfg *StoredConfig) error
	Update(ctx context.Context, cfg *StoredConfig) error
	Delete(ctx context.Context, userID string) error
}

// InMemoryStore is a reference Store implementation for tests and local
// development; it is not meant to back a production deployment.
type InMemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*StoredConfig
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{configs: make(map[string]*StoredConfig)}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (*StoredConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, apiKeyIDHash string) ([]*StoredConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*StoredConfig
	for _, cfg := range s.configs {
		if cfg.APIKeyIDHash == apiKeyIDHash {
			clone := *cfg
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Create(_ context.Context, cfg *StoredConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	clone := *cfg
	s.configs[cfg.UserID] = &clone
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, cfg *StoredConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.UserID]; !ok {
		return ErrNotFound
	}
	cfg.UpdatedAt = time.Now()
	clone := *cfg
	s.configs[cfg.UserID] = &clone
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[userID]; !ok {
		return ErrNotFound
	}
	delete(s.configs, userID)
	return nil
}
