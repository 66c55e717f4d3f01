package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"plantpantry/internal/geo"
	"plantpantry/pkg/platform/sentinel"
)

// PlacePrediction is one ranked autocomplete suggestion.
type PlacePrediction struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// PlaceDetails is the structured record behind a place ID, used as input to
// duplicate classification.
type PlaceDetails struct {
	PlaceID    string     `json:"place_id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	PostalCode string     `json:"postal_code"`
	Point      *geo.Point `json:"point,omitempty"`
	Website    string     `json:"website,omitempty"`
}

// PlaceClient is the narrow interface onto the external mapping provider.
// The core never touches the provider SDK directly; a concrete adapter is
// injected.
type PlaceClient interface {
	Autocomplete(ctx context.Context, text string) ([]PlacePrediction, error)
	PlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// HTTPGeocoder adapts a JSON-over-HTTP mapping provider to ReverseGeocoder
// and PlaceClient.
type HTTPGeocoder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGeocoder constructs an adapter against the provider's base URL.
func NewHTTPGeocoder(baseURL string) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ReverseGeocode fetches a best-effort city/state for the coordinates.
func (g *HTTPGeocoder) ReverseGeocode(ctx context.Context, p geo.Point) (string, string, error) {
	var out struct {
		City  string `json:"city"`
		State string `json:"state"`
	}
	params := url.Values{
		"lat": {fmt.Sprintf("%f", p.Lat)},
		"lon": {fmt.Sprintf("%f", p.Lon)},
	}
	if err := g.get(ctx, "/reverse", params, &out); err != nil {
		return "", "", err
	}
	if out.City == "" {
		return "", "", fmt.Errorf("reverse geocode returned no city: %w", sentinel.ErrUnavailable)
	}
	return out.City, out.State, nil
}

// Autocomplete returns ranked place predictions for free text.
func (g *HTTPGeocoder) Autocomplete(ctx context.Context, text string) ([]PlacePrediction, error) {
	var out struct {
		Predictions []PlacePrediction `json:"predictions"`
	}
	if err := g.get(ctx, "/autocomplete", url.Values{"q": {text}}, &out); err != nil {
		return nil, err
	}
	return out.Predictions, nil
}

// PlaceDetails fetches the structured record behind a place ID.
func (g *HTTPGeocoder) PlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error) {
	var out PlaceDetails
	if err := g.get(ctx, "/details", url.Values{"id": {placeID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGeocoder) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build geocoder request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocoder response: %w", err)
	}
	return nil
}

// CachedGeocoder memoizes reverse-geocode results in a TTL cache keyed by
// rounded coordinates, so repeated lookups around the same point don't hit
// the provider.
type CachedGeocoder struct {
	inner ReverseGeocoder
	cache *gocache.Cache
}

type geocodeHit struct {
	city  string
	state string
}

// NewCachedGeocoder wraps a ReverseGeocoder with a TTL cache.
func NewCachedGeocoder(inner ReverseGeocoder, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// ReverseGeocode serves from cache when a nearby lookup already succeeded.
// Failures are not cached; the next call retries the provider.
func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, p geo.Point) (string, string, error) {
	// Four decimal places is ~11m, close enough to share a city lookup.
	key := fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lon)
	if v, ok := c.cache.Get(key); ok {
		hit := v.(geocodeHit)
		return hit.city, hit.state, nil
	}
	city, state, err := c.inner.ReverseGeocode(ctx, p)
	if err != nil {
		return "", "", err
	}
	c.cache.Set(key, geocodeHit{city: city, state: state}, gocache.DefaultExpiration)
	return city, state, nil
}
