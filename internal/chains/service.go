package chains

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"plantpantry/internal/directory/models"
	"plantpantry/pkg/domain"
	dErrors "plantpantry/pkg/domain-errors"
	"plantpantry/pkg/platform/sentinel"
	"plantpantry/pkg/requestcontext"
)

// ChainStore is the persistence surface the chain service needs.
type ChainStore interface {
	Create(ctx context.Context, chain *models.StoreChain) error
	Update(ctx context.Context, chain *models.StoreChain) error
	FindByID(ctx context.Context, id domain.ChainID) (*models.StoreChain, error)
	List(ctx context.Context) ([]*models.StoreChain, error)
}

// Service owns chain CRUD and related-chain resolution.
//
// Related chains are grouped by company key through an index rebuilt from the
// full chain list whenever a chain is created or renamed. Rebuilding rather
// than patching keeps group membership exactly consistent with current names;
// chain counts are small enough that a full rebuild is cheap. Concurrent
// rebuild requests collapse through singleflight.
type Service struct {
	store  ChainStore
	logger *slog.Logger

	mu    sync.RWMutex
	index map[string][]domain.ChainID
	built bool

	rebuild singleflight.Group
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs the chain service.
func New(store ChainStore, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChain validates and persists a new chain, then invalidates the
// company-key index.
func (s *Service) CreateChain(ctx context.Context, name string, chainType models.ChainType) (*models.StoreChain, error) {
	chain, err := models.NewStoreChain(name, chainType, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, chain); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "chain name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create chain")
	}
	s.InvalidateIndex()
	s.logger.InfoContext(ctx, "chain created", "chain_id", chain.ID, "company_key", CompanyKey(chain.Name))
	return chain, nil
}

// RenameChain updates a chain's display name. Group membership follows the
// new name on the next index rebuild.
func (s *Service) RenameChain(ctx context.Context, id domain.ChainID, name string) (*models.StoreChain, error) {
	chain, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "chain not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load chain")
	}
	if err := chain.Rename(name, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, chain); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update chain")
	}
	s.InvalidateIndex()
	return chain, nil
}

// GetChain fetches a chain by ID.
func (s *Service) GetChain(ctx context.Context, id domain.ChainID) (*models.StoreChain, error) {
	chain, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "chain not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load chain")
	}
	return chain, nil
}

// ListChains returns every chain.
func (s *Service) ListChains(ctx context.Context) ([]*models.StoreChain, error) {
	chains, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list chains")
	}
	return chains, nil
}

// RelatedChains returns the IDs of every chain sharing the target chain's
// company key, including the target itself. With includeRelated false it is
// the singleton input. An unknown chain ID yields an empty set, not an error:
// callers treat it as "no related chains".
func (s *Service) RelatedChains(ctx context.Context, id domain.ChainID, includeRelated bool) ([]domain.ChainID, error) {
	if !includeRelated {
		return []domain.ChainID{id}, nil
	}

	chain, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return []domain.ChainID{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load chain")
	}

	index, err := s.companyIndex(ctx)
	if err != nil {
		return nil, err
	}

	key := CompanyKey(chain.Name)
	related := index[key]
	out := make([]domain.ChainID, len(related))
	copy(out, related)
	return out, nil
}

// InvalidateIndex discards the company-key index; the next RelatedChains call
// rebuilds it from current names.
func (s *Service) InvalidateIndex() {
	s.mu.Lock()
	s.built = false
	s.index = nil
	s.mu.Unlock()
}

func (s *Service) companyIndex(ctx context.Context) (map[string][]domain.ChainID, error) {
	s.mu.RLock()
	if s.built {
		index := s.index
		s.mu.RUnlock()
		return index, nil
	}
	s.mu.RUnlock()

	built, err, _ := s.rebuild.Do("index", func() (any, error) {
		chains, err := s.store.List(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rebuild chain index")
		}
		index := make(map[string][]domain.ChainID, len(chains))
		for _, c := range chains {
			key := CompanyKey(c.Name)
			index[key] = append(index[key], c.ID)
		}
		// Deterministic member order for stable API responses.
		for _, ids := range index {
			sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		}
		s.mu.Lock()
		s.index = index
		s.built = true
		s.mu.Unlock()
		return index, nil
	})
	if err != nil {
		return nil, err
	}
	return built.(map[string][]domain.ChainID), nil
}
