package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"plantpantry/internal/directory/models"
	"plantpantry/internal/platform/middleware"
	"plantpantry/internal/transport/http/shared"
	"plantpantry/pkg/domain"
	dErrors "plantpantry/pkg/domain-errors"
)

// Service defines the chain operations the handler needs.
type Service interface {
	CreateChain(ctx context.Context, name string, chainType models.ChainType) (*models.StoreChain, error)
	RenameChain(ctx context.Context, id domain.ChainID, name string) (*models.StoreChain, error)
	GetChain(ctx context.Context, id domain.ChainID) (*models.StoreChain, error)
	ListChains(ctx context.Context) ([]*models.StoreChain, error)
	RelatedChains(ctx context.Context, id domain.ChainID, includeRelated bool) ([]domain.ChainID, error)
}

// Handler handles chain endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a chain Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the read-only chain routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/chains", h.handleListChains)
	r.Get("/chains/{chainID}", h.handleGetChain)
	r.Get("/chains/{chainID}/related", h.handleRelatedChains)
}

// RegisterAdmin registers the curation routes, guarded by the caller.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/chains", h.handleCreateChain)
	r.Put("/chains/{chainID}", h.handleRenameChain)
}

type chainRequest struct {
	Name string           `json:"name"`
	Type models.ChainType `json:"type"`
}

func (h *Handler) handleCreateChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	chain, err := h.service.CreateChain(ctx, req.Name, req.Type)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeValidation) && !dErrors.Is(err, dErrors.CodeConflict) {
			h.logger.ErrorContext(ctx, "failed to create chain",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, chain)
}

func (h *Handler) handleGetChain(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseChainID(chi.URLParam(r, "chainID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid chain id"))
		return
	}
	chain, err := h.service.GetChain(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, chain)
}

func (h *Handler) handleListChains(w http.ResponseWriter, r *http.Request) {
	chains, err := h.service.ListChains(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"chains": chains})
}

func (h *Handler) handleRenameChain(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseChainID(chi.URLParam(r, "chainID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid chain id"))
		return
	}

	var req chainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	chain, err := h.service.RenameChain(r.Context(), id, req.Name)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, chain)
}

// handleRelatedChains resolves the chain's company-level siblings. With
// include_related=false only the chain itself comes back.
func (h *Handler) handleRelatedChains(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseChainID(chi.URLParam(r, "chainID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid chain id"))
		return
	}

	includeRelated := true
	if raw := r.URL.Query().Get("include_related"); raw != "" {
		includeRelated, err = strconv.ParseBool(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid include_related"))
			return
		}
	}

	ids, err := h.service.RelatedChains(r.Context(), id, includeRelated)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []domain.ChainID{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"chain_ids": ids})
}
