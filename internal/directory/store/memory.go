// Package store persists stores and chains. The in-memory and Postgres
// implementations share one contract: Create enforces the exact-match
// uniqueness keys (external place ID and the derived dedup key) and reports
// violations as sentinel.ErrConflict, which is the only write-ordering
// guarantee duplicate classification relies on.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"plantpantry/internal/directory/models"
	"plantpantry/pkg/domain"
	"plantpantry/pkg/platform/sentinel"
)

// Filter narrows List results.
type Filter struct {
	ChainID *domain.ChainID
	City    string
	State   string
}

func (f Filter) matches(s *models.Store) bool {
	if f.ChainID != nil && (s.ChainID == nil || *s.ChainID != *f.ChainID) {
		return false
	}
	if f.City != "" && !strings.EqualFold(f.City, s.City) {
		return false
	}
	if f.State != "" && !strings.EqualFold(f.State, s.State) {
		return false
	}
	return true
}

// InMemoryStores keeps stores in maps guarded by an RWMutex. Used in tests
// and when no DATABASE_URL is configured.
type InMemoryStores struct {
	mu      sync.RWMutex
	byID    map[domain.StoreID]*models.Store
	byPlace map[string]domain.StoreID
	byKey   map[string]domain.StoreID
}

// NewInMemoryStores constructs an empty store.
func NewInMemoryStores() *InMemoryStores {
	return &InMemoryStores{
		byID:    make(map[domain.StoreID]*models.Store),
		byPlace: make(map[string]domain.StoreID),
		byKey:   make(map[string]domain.StoreID),
	}
}

// Create inserts the store, enforcing uniqueness on place ID and dedup key.
func (s *InMemoryStores) Create(_ context.Context, st *models.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.PlaceID != "" {
		if _, exists := s.byPlace[st.PlaceID]; exists {
			return fmt.Errorf("place id %q: %w", st.PlaceID, sentinel.ErrConflict)
		}
	}
	key := st.DedupKey()
	if _, exists := s.byKey[key]; exists {
		return fmt.Errorf("dedup key %q: %w", key, sentinel.ErrConflict)
	}

	cp := *st
	s.byID[st.ID] = &cp
	if st.PlaceID != "" {
		s.byPlace[st.PlaceID] = st.ID
	}
	s.byKey[key] = st.ID
	return nil
}

// FindByID fetches a store by ID.
func (s *InMemoryStores) FindByID(_ context.Context, id domain.StoreID) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// FindByPlaceID fetches a store by its external place identifier.
func (s *InMemoryStores) FindByPlaceID(_ context.Context, placeID string) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPlace[placeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// FindByDedupKey fetches a store by its derived uniqueness key.
func (s *InMemoryStores) FindByDedupKey(_ context.Context, key string) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// List returns stores matching the filter, ordered by name then ID.
func (s *InMemoryStores) List(_ context.Context, f Filter) ([]*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Store
	for _, st := range s.byID {
		if f.matches(st) {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Search returns candidate stores for duplicate classification: any store
// sharing a normalized name token with the query, or in the same city.
func (s *InMemoryStores) Search(_ context.Context, nameTokens []string, city string) ([]*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make(map[string]struct{}, len(nameTokens))
	for _, t := range nameTokens {
		tokens[t] = struct{}{}
	}
	normCity := models.NormalizeName(city)

	var out []*models.Store
	for _, st := range s.byID {
		if normCity != "" && models.NormalizeName(st.City) == normCity {
			cp := *st
			out = append(out, &cp)
			continue
		}
		for _, t := range models.NameTokens(st.Name) {
			if _, ok := tokens[t]; ok {
				cp := *st
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// InMemoryChains keeps chains in a map guarded by an RWMutex, enforcing
// case-insensitive name uniqueness.
type InMemoryChains struct {
	mu     sync.RWMutex
	byID   map[domain.ChainID]*models.StoreChain
	byName map[string]domain.ChainID
}

// NewInMemoryChains constructs an empty chain store.
func NewInMemoryChains() *InMemoryChains {
	return &InMemoryChains{
		byID:   make(map[domain.ChainID]*models.StoreChain),
		byName: make(map[string]domain.ChainID),
	}
}

// Create inserts the chain if its name is available (case-insensitive).
func (s *InMemoryChains) Create(_ context.Context, chain *models.StoreChain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nameKey := strings.ToLower(chain.Name)
	if _, exists := s.byName[nameKey]; exists {
		return fmt.Errorf("chain name %q: %w", chain.Name, sentinel.ErrConflict)
	}
	cp := *chain
	s.byID[chain.ID] = &cp
	s.byName[nameKey] = chain.ID
	return nil
}

// Update replaces the stored chain, keeping the name index consistent.
func (s *InMemoryChains) Update(_ context.Context, chain *models.StoreChain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[chain.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	newKey := strings.ToLower(chain.Name)
	if existing, taken := s.byName[newKey]; taken && existing != chain.ID {
		return fmt.Errorf("chain name %q: %w", chain.Name, sentinel.ErrConflict)
	}
	delete(s.byName, strings.ToLower(prev.Name))
	cp := *chain
	s.byID[chain.ID] = &cp
	s.byName[newKey] = chain.ID
	return nil
}

// FindByID fetches a chain by ID.
func (s *InMemoryChains) FindByID(_ context.Context, id domain.ChainID) (*models.StoreChain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *chain
	return &cp, nil
}

// List returns every chain ordered by name.
func (s *InMemoryChains) List(_ context.Context) ([]*models.StoreChain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.StoreChain, 0, len(s.byID))
	for _, chain := range s.byID {
		cp := *chain
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
