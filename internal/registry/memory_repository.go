package registry

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]map[string]*RegisteredToken // device ID -> token key -> registration
}

// NewInMemoryRepository creates a new in-memory token registry repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tokens: make(map[string]map[string]*RegisteredToken),
	}
}

// ListByDevice retrieves every registered token for a device.
func (r *InMemoryRepository) ListByDevice(_ context.Context, deviceID string) ([]*RegisteredToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.tokens[deviceID]))
	for key := range r.tokens[deviceID] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]*RegisteredToken, 0, len(keys))
	for _, key := range keys {
		t := *r.tokens[deviceID][key]
		items = append(items, &t)
	}

	return items, nil
}

// Register creates or replaces a token registration for a device.
func (r *InMemoryRepository) Register(_ context.Context, deviceID string, token *RegisteredToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tokens[deviceID] == nil {
		r.tokens[deviceID] = make(map[string]*RegisteredToken)
	}

	t := *token
	r.tokens[deviceID][TokenKey(token.Token)] = &t
	return nil
}

// Remove deletes the registration for the given token value.
func (r *InMemoryRepository) Remove(_ context.Context, deviceID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens[deviceID], TokenKey(token))
	return nil
}
