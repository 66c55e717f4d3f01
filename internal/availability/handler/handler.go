package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"plantpantry/internal/availability"
	"plantpantry/internal/directory/models"
	"plantpantry/internal/directory/store"
	"plantpantry/internal/geo"
	"plantpantry/internal/location"
	"plantpantry/internal/transport/http/shared"
	"plantpantry/pkg/domain"
	dErrors "plantpantry/pkg/domain-errors"
	"plantpantry/pkg/requestcontext"
)

// StoreLister lists stores for the grouped view.
type StoreLister interface {
	ListStores(ctx context.Context, f store.Filter) ([]*models.Store, error)
}

// ChainLister resolves chains referenced by the grouped view.
type ChainLister interface {
	ListChains(ctx context.Context) ([]*models.StoreChain, error)
}

// Handler composes the grouped availability endpoint from the directory and
// location services.
type Handler struct {
	stores    StoreLister
	chains    ChainLister
	resolvers *location.Manager
	logger    *slog.Logger
}

// New creates an availability Handler. resolvers may be nil; the session
// fallback for the origin is then skipped.
func New(stores StoreLister, chains ChainLister, resolvers *location.Manager, logger *slog.Logger) *Handler {
	return &Handler{stores: stores, chains: chains, resolvers: resolvers, logger: logger}
}

// Register registers the availability routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/availability/grouped", h.handleGrouped)
}

// handleGrouped returns stores grouped by chain with online and independent
// buckets. The origin comes from lat/lon query params, falling back to the
// session's resolved location.
func (h *Handler) handleGrouped(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := store.Filter{
		City:  r.URL.Query().Get("city"),
		State: r.URL.Query().Get("state"),
	}

	origin, err := h.origin(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	stores, err := h.stores.ListStores(ctx, filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	chains, err := h.chains.ListChains(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	decls, err := declaredChains(r.URL.Query().Get("declared_chains"), chains)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	grouped := availability.Aggregate(origin, stores, decls, chains)
	shared.WriteJSON(w, http.StatusOK, grouped)
}

func (h *Handler) origin(r *http.Request) (*geo.Point, error) {
	latStr, lonStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid coordinates")
		}
		return &geo.Point{Lat: lat, Lon: lon}, nil
	}

	if h.resolvers == nil {
		return nil, nil
	}
	key := requestcontext.SessionKey(r.Context())
	if key == "" {
		return nil, nil
	}
	loc, state := h.resolvers.For(key).Current()
	if state != location.StateResolved || loc == nil {
		return nil, nil
	}
	return loc.Point, nil
}

// declaredChains resolves the comma-separated declared_chains query value
// against the known chains. Unknown IDs are rejected rather than silently
// dropped.
func declaredChains(raw string, known []*models.StoreChain) ([]*models.StoreChain, error) {
	if raw == "" {
		return nil, nil
	}
	byID := make(map[domain.ChainID]*models.StoreChain, len(known))
	for _, c := range known {
		byID[c.ID] = c
	}

	var decls []*models.StoreChain
	for _, part := range strings.Split(raw, ",") {
		id, err := domain.ParseChainID(strings.TrimSpace(part))
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid declared chain id")
		}
		chain, ok := byID[id]
		if !ok {
			return nil, dErrors.New(dErrors.CodeNotFound, "declared chain not found")
		}
		decls = append(decls, chain)
	}
	return decls, nil
}
