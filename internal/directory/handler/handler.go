package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"plantpantry/internal/directory"
	"plantpantry/internal/directory/models"
	"plantpantry/internal/directory/store"
	"plantpantry/internal/geo"
	"plantpantry/internal/platform/middleware"
	"plantpantry/internal/transport/http/shared"
	"plantpantry/pkg/domain"
	dErrors "plantpantry/pkg/domain-errors"
)

// Service defines the directory operations the handler needs.
type Service interface {
	CreateStore(ctx context.Context, in models.StoreInput, skipDuplicateCheck bool) (*directory.CreateResult, error)
	GetStore(ctx context.Context, id domain.StoreID) (*models.Store, error)
	ListStores(ctx context.Context, f store.Filter) ([]*models.Store, error)
	Nearby(ctx context.Context, origin *geo.Point, radiusMiles float64, f store.Filter) (*directory.NearbyResult, error)
}

// Handler handles store endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a store Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the store routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/stores", h.handleCreateStore)
	r.Get("/stores", h.handleListStores)
	r.Get("/stores/nearby", h.handleNearby)
	r.Get("/stores/{storeID}", h.handleGetStore)
}

type createStoreRequest struct {
	models.StoreInput
	SkipDuplicateCheck bool `json:"skip_duplicate_check,omitempty"`
}

// handleCreateStore classifies and creates a store. A duplicate comes back
// as 200 with the classification; only a genuinely new store yields 201.
func (h *Handler) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.CreateStore(ctx, req.StoreInput, req.SkipDuplicateCheck)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) || dErrors.Is(err, dErrors.CodeConflict) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create store",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to create store"))
		return
	}

	if result.Duplicate != nil {
		shared.WriteJSON(w, http.StatusOK, map[string]any{"duplicate": result.Duplicate})
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"created": result.Created})
}

func (h *Handler) handleGetStore(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseStoreID(chi.URLParam(r, "storeID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid store id"))
		return
	}
	st, err := h.service.GetStore(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleListStores(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	stores, err := h.service.ListStores(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

// handleNearby ranks stores around lat/lon. Without usable coordinates the
// full list comes back with sorted=false so the UI can say "showing all
// stores".
func (h *Handler) handleNearby(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var origin *geo.Point
	latStr, lonStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid coordinates"))
			return
		}
		origin = &geo.Point{Lat: lat, Lon: lon}
	}

	var radius float64
	if radiusStr := r.URL.Query().Get("radius"); radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid radius"))
			return
		}
	}

	result, err := h.service.Nearby(r.Context(), origin, radius, filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func filterFromQuery(r *http.Request) (store.Filter, error) {
	f := store.Filter{
		City:  r.URL.Query().Get("city"),
		State: r.URL.Query().Get("state"),
	}
	if chainStr := r.URL.Query().Get("chain_id"); chainStr != "" {
		chainID, err := domain.ParseChainID(chainStr)
		if err != nil {
			return f, dErrors.New(dErrors.CodeBadRequest, "invalid chain id")
		}
		f.ChainID = &chainID
	}
	return f, nil
}
