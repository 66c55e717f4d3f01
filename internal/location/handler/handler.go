package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"plantpantry/internal/geo"
	"plantpantry/internal/location"
	"plantpantry/internal/platform/middleware"
	"plantpantry/internal/transport/http/shared"
	dErrors "plantpantry/pkg/domain-errors"
	"plantpantry/pkg/requestcontext"
)

// Handler exposes the session location endpoints. Each request is routed to
// the resolver owned by the caller's session key.
type Handler struct {
	manager *location.Manager
	places  location.PlaceClient
	logger  *slog.Logger
}

// New creates a location Handler. places may be nil when no mapping provider
// is configured; the place routes then report capability errors.
func New(manager *location.Manager, places location.PlaceClient, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, places: places, logger: logger}
}

// Register registers the location routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/location", h.handleGetLocation)
	r.Delete("/location", h.handleClearLocation)
	r.Post("/location/geolocate", h.handleGeolocate)
	r.Post("/location/select", h.handleSelectCity)
	r.Post("/location/hydrate", h.handleHydrate)
	r.Get("/location/autocomplete", h.handleAutocomplete)
	r.Get("/location/places/{placeID}", h.handlePlaceDetails)
}

type locationResponse struct {
	Location *location.UserLocation `json:"location,omitempty"`
	State    location.State         `json:"state"`
}

func (h *Handler) resolver(r *http.Request) (*location.Resolver, error) {
	key := requestcontext.SessionKey(r.Context())
	if key == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing session key")
	}
	return h.manager.For(key), nil
}

func (h *Handler) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	loc, state := res.Current()
	shared.WriteJSON(w, http.StatusOK, locationResponse{Location: loc, State: state})
}

func (h *Handler) handleClearLocation(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	res.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type geolocateRequest struct {
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
	Error string   `json:"error,omitempty"`
}

// handleGeolocate resolves the session location from the device position the
// client reported. A resolution superseded by a newer one while in flight
// reports 409 without disturbing the winner.
func (h *Handler) handleGeolocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.resolver(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req geolocateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}
	switch {
	case req.Error != "":
		ctx = location.WithReportedFailure(ctx, location.FailureByCode(req.Error))
	case req.Lat != nil && req.Lon != nil:
		ctx = location.WithReportedPosition(ctx, geo.Point{Lat: *req.Lat, Lon: *req.Lon})
	}

	loc, err := res.RequestGeolocation(ctx)
	if err != nil {
		if errors.Is(err, location.ErrSuperseded) {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeConflict, "geolocation superseded"))
			return
		}
		h.logger.WarnContext(ctx, "geolocation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, locationResponse{Location: loc, State: location.StateResolved})
}

type selectCityRequest struct {
	City  string `json:"city"`
	State string `json:"state"`
}

func (h *Handler) handleSelectCity(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req selectCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	loc, err := res.SelectCity(r.Context(), req.City, req.State)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, locationResponse{Location: loc, State: location.StateResolved})
}

type hydrateRequest struct {
	Profile *struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"profile,omitempty"`
}

// handleHydrate seeds the session resolver from a signed-in profile or the
// session's saved choice, whichever applies.
func (h *Handler) handleHydrate(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req hydrateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	var profile *location.Profile
	if req.Profile != nil {
		profile = &location.Profile{City: req.Profile.City, State: req.Profile.State}
	}

	loc, err := res.Hydrate(r.Context(), profile)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	_, state := res.Current()
	shared.WriteJSON(w, http.StatusOK, locationResponse{Location: loc, State: state})
}

func (h *Handler) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeCapability, "no mapping provider configured"))
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing query"))
		return
	}

	predictions, err := h.places.Autocomplete(r.Context(), q)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeProvider, "autocomplete failed"))
		return
	}
	if predictions == nil {
		predictions = []location.PlacePrediction{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"predictions": predictions})
}

// handlePlaceDetails fetches the structured record behind a place ID, the
// input to pre-filled store submissions.
func (h *Handler) handlePlaceDetails(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeCapability, "no mapping provider configured"))
		return
	}
	details, err := h.places.PlaceDetails(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeProvider, "place lookup failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, details)
}
