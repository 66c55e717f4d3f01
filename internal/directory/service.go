// Package directory orchestrates store contribution and lookup: duplicate
// classification at creation time, conflict recovery against the storage
// uniqueness constraint, and proximity queries over the store list.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"plantpantry/internal/directory/dedup"
	"plantpantry/internal/directory/models"
	"plantpantry/internal/directory/store"
	"plantpantry/internal/geo"
	"plantpantry/internal/platform/metrics"
	"plantpantry/pkg/domain"
	dErrors "plantpantry/pkg/domain-errors"
	"plantpantry/pkg/platform/sentinel"
	"plantpantry/pkg/requestcontext"
)

// StoreStore is the persistence surface the directory service needs.
type StoreStore interface {
	Create(ctx context.Context, st *models.Store) error
	FindByID(ctx context.Context, id domain.StoreID) (*models.Store, error)
	FindByPlaceID(ctx context.Context, placeID string) (*models.Store, error)
	FindByDedupKey(ctx context.Context, key string) (*models.Store, error)
	List(ctx context.Context, f store.Filter) ([]*models.Store, error)
	Search(ctx context.Context, nameTokens []string, city string) ([]*models.Store, error)
}

// Service orchestrates store creation and queries.
type Service struct {
	stores        StoreStore
	logger        *slog.Logger
	metrics       *metrics.Metrics
	defaultRadius float64
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDefaultRadius sets the base radius, in miles, for nearby queries that
// don't specify one.
func WithDefaultRadius(miles float64) Option {
	return func(s *Service) {
		if miles > 0 {
			s.defaultRadius = miles
		}
	}
}

// New constructs a Service.
func New(stores StoreStore, opts ...Option) *Service {
	s := &Service{stores: stores, logger: slog.Default(), defaultRadius: 25}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateResult is the outcome of a store contribution: either a created store
// or a duplicate classification, never both.
type CreateResult struct {
	Created   *models.Store
	Duplicate *dedup.Result
}

// CreateStore classifies the candidate against existing records and inserts
// it when genuinely new.
//
// skipDuplicateCheck bypasses classification (administrative override) but
// not the storage uniqueness constraint: a conflicting insert on either path
// is recovered by re-classifying and returned as an exact duplicate rather
// than an error, which is what makes two concurrent submissions of the same
// store converge on a single record.
func (s *Service) CreateStore(ctx context.Context, in models.StoreInput, skipDuplicateCheck bool) (*CreateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if !skipDuplicateCheck {
		candidates, err := s.stores.Search(ctx, models.NameTokens(in.Name), in.City)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load duplicate candidates")
		}
		result := dedup.Classify(in, candidates)
		if result.Classification != dedup.None {
			s.metrics.IncDuplicatesDetected(string(result.Classification))
			s.logger.InfoContext(ctx, "duplicate store detected",
				"request_id", requestcontext.RequestID(ctx),
				"classification", string(result.Classification),
				"name", in.Name,
			)
			return &CreateResult{Duplicate: &result}, nil
		}
	}

	st, err := models.NewStore(in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.stores.Create(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.recoverConflict(ctx, in)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create store")
	}

	s.metrics.IncStoresCreated()
	s.logger.InfoContext(ctx, "store created",
		"request_id", requestcontext.RequestID(ctx),
		"store_id", st.ID,
		"type", string(st.Type),
	)
	return &CreateResult{Created: st}, nil
}

// recoverConflict resolves a storage uniqueness violation by locating the
// record that won the race and reporting it as an exact duplicate.
func (s *Service) recoverConflict(ctx context.Context, in models.StoreInput) (*CreateResult, error) {
	if placeID := strings.TrimSpace(in.PlaceID); placeID != "" {
		if winner, err := s.stores.FindByPlaceID(ctx, placeID); err == nil {
			return s.conflictAsExact(ctx, winner), nil
		}
	}
	key := models.DedupKeyFor(in.Type, in.Name, in.Address, in.Region, in.Latitude, in.Longitude)
	if winner, err := s.stores.FindByDedupKey(ctx, key); err == nil {
		return s.conflictAsExact(ctx, winner), nil
	}

	// The winning row vanished between the failed insert and the lookup.
	// Surface the conflict; the caller can simply retry.
	return nil, dErrors.New(dErrors.CodeConflict, "store already exists")
}

func (s *Service) conflictAsExact(ctx context.Context, winner *models.Store) *CreateResult {
	s.metrics.IncDuplicatesDetected(string(dedup.Exact))
	s.logger.InfoContext(ctx, "concurrent duplicate recovered",
		"request_id", requestcontext.RequestID(ctx),
		"store_id", winner.ID,
	)
	return &CreateResult{Duplicate: &dedup.Result{Classification: dedup.Exact, Match: winner}}
}

// GetStore fetches a store by ID.
func (s *Service) GetStore(ctx context.Context, id domain.StoreID) (*models.Store, error) {
	st, err := s.stores.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "store not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load store")
	}
	return st, nil
}

// ListStores returns stores matching the filter.
func (s *Service) ListStores(ctx context.Context, f store.Filter) ([]*models.Store, error) {
	stores, err := s.stores.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stores")
	}
	return stores, nil
}

// NearbyStore is a store annotated with its distance from the origin.
// DistanceMiles is -1 when no origin was available.
type NearbyStore struct {
	Store         *models.Store `json:"store"`
	DistanceMiles float64       `json:"distance_miles"`
}

// NearbyResult is the outcome of a proximity query.
type NearbyResult struct {
	Stores     []NearbyStore `json:"stores"`
	RadiusUsed float64       `json:"radius_used,omitempty"`
	Expanded   bool          `json:"expanded"`
	// Sorted is false when the origin had no usable coordinates and the
	// full store list was returned instead ("showing all stores").
	Sorted bool `json:"sorted"`
}

// Nearby ranks stores around the origin, walking the capped radius expansion
// schedule until something is found. A nil origin returns the full store
// list unsorted rather than guessing.
func (s *Service) Nearby(ctx context.Context, origin *geo.Point, radiusMiles float64, f store.Filter) (*NearbyResult, error) {
	s.metrics.IncNearbyRequests()
	if radiusMiles <= 0 {
		radiusMiles = s.defaultRadius
	}

	stores, err := s.stores.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stores")
	}

	byID := make(map[string]*models.Store, len(stores))
	sites := make([]geo.Site, 0, len(stores))
	for _, st := range stores {
		byID[st.ID.String()] = st
		sites = append(sites, geo.Site{
			ID:    st.ID.String(),
			Name:  st.Name,
			City:  st.City,
			Point: st.Point(),
		})
	}

	if origin != nil {
		// Prune through the cell index before exact distances; the probe
		// covers the whole expansion schedule.
		ix := geo.NewIndex(sites)
		schedule := geo.ExpandSchedule(radiusMiles)
		sites = ix.Candidates(*origin, schedule[len(schedule)-1])
	}

	result := geo.NearbyWithFallback(origin, sites, radiusMiles)
	if result.Expanded {
		s.metrics.IncRadiusExpansions()
	}

	out := &NearbyResult{
		RadiusUsed: result.RadiusUsed,
		Expanded:   result.Expanded,
		Sorted:     result.Sorted,
		Stores:     make([]NearbyStore, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		out.Stores = append(out.Stores, NearbyStore{
			Store:         byID[r.ID],
			DistanceMiles: r.DistanceMiles,
		})
	}
	return out, nil
}
