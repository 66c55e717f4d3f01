// Package location reconciles device geolocation, manual city choice, and a
// saved profile into a single active user location per session.
package location

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"plantpantry/internal/geo"
	"plantpantry/internal/platform/metrics"
	dErrors "plantpantry/pkg/domain-errors"
)

// Source records how the active location was chosen.
type Source string

const (
	SourceManual      Source = "manual"
	SourceGeolocation Source = "geolocation"
	SourceProfile     Source = "profile"
)

// UserLocation is the session's active location. Exactly one is active at a
// time; every resolution replaces the previous one.
type UserLocation struct {
	City  string     `json:"city,omitempty"`
	State string     `json:"state,omitempty"`
	Point *geo.Point `json:"point,omitempty"`
	// Label is a display name; a placeholder when reverse geocoding failed
	// but coordinates are still usable.
	Label  string `json:"label"`
	Source Source `json:"source"`
}

// State is the resolver's lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateResolved      State = "resolved"
	StateErrored       State = "errored"
)

// Device geolocation failures, mapped to CodeCapability at the service
// boundary. Never retried automatically.
var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("geolocation timed out")
	ErrUnsupported         = errors.New("geolocation not supported")
)

// ErrSuperseded is returned when a geolocation request completed after the
// session had already resolved a newer location; the stale result is
// discarded, never applied.
var ErrSuperseded = errors.New("geolocation request superseded")

// placeholderLabel names a coordinates-only location when reverse geocoding
// fails; the coordinates stay usable for proximity queries.
const placeholderLabel = "Current location"

// DeviceLocator is the device/browser geolocation capability.
type DeviceLocator interface {
	CurrentPosition(ctx context.Context) (geo.Point, error)
}

// ReverseGeocoder turns coordinates into a best-effort city/state.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, p geo.Point) (city, state string, err error)
}

// SessionStore persists the last manual choice for a session key.
type SessionStore interface {
	SaveChoice(ctx context.Context, key string, loc UserLocation) error
	LoadChoice(ctx context.Context, key string) (*UserLocation, error)
}

// Profile is the slice of a user profile the resolver consumes.
type Profile struct {
	City  string
	State string
}

// Resolver owns one session's location state. Construct it with injected
// collaborators and pass it explicitly; there is no ambient global location.
//
// A geolocation request in flight is sequence-numbered: any newer resolution
// (another request, a manual pick, a clear) bumps the sequence, and the stale
// completion is discarded instead of overwriting the newer state.
type Resolver struct {
	device   DeviceLocator
	geocoder ReverseGeocoder
	sessions SessionStore
	logger   *slog.Logger
	metrics  *metrics.Metrics

	sessionKey string

	mu      sync.Mutex
	seq     uint64
	state   State
	current *UserLocation
	lastErr error
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver constructs a resolver for one session.
func NewResolver(sessionKey string, device DeviceLocator, geocoder ReverseGeocoder, sessions SessionStore, opts ...Option) *Resolver {
	r := &Resolver{
		sessionKey: sessionKey,
		device:     device,
		geocoder:   geocoder,
		sessions:   sessions,
		logger:     slog.Default(),
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the active location and state. The location is nil unless
// the state is StateResolved.
func (r *Resolver) Current() (*UserLocation, State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, r.state
	}
	cp := *r.current
	return &cp, r.state
}

// Hydrate establishes the initial session location: a profile city/state
// wins, then a previously persisted manual choice. Profile precedence applies
// only here; later explicit actions replace it for the session.
func (r *Resolver) Hydrate(ctx context.Context, profile *Profile) (*UserLocation, error) {
	if profile != nil && strings.TrimSpace(profile.City) != "" {
		loc := UserLocation{
			City:   strings.TrimSpace(profile.City),
			State:  strings.TrimSpace(profile.State),
			Source: SourceProfile,
		}
		loc.Label = displayLabel(loc.City, loc.State)
		r.apply(loc)
		return &loc, nil
	}

	if r.sessions != nil && r.sessionKey != "" {
		stored, err := r.sessions.LoadChoice(ctx, r.sessionKey)
		if err == nil && stored != nil {
			r.apply(*stored)
			cp := *stored
			return &cp, nil
		}
	}
	return nil, nil
}

// RequestGeolocation asks the device for coordinates and reverse geocodes
// them. Reverse-geocode failure is non-fatal: the location resolves with
// coordinates and a placeholder label. Device failures surface as capability
// errors and move the resolver to StateErrored.
func (r *Resolver) RequestGeolocation(ctx context.Context) (*UserLocation, error) {
	if r.device == nil {
		err := dErrors.Wrap(ErrUnsupported, dErrors.CodeCapability, "geolocation not supported")
		r.fail(err)
		return nil, err
	}

	r.mu.Lock()
	r.seq++
	mySeq := r.seq
	r.mu.Unlock()

	point, err := r.device.CurrentPosition(ctx)
	if err != nil {
		derr := dErrors.Wrap(err, dErrors.CodeCapability, capabilityMessage(err))
		r.mu.Lock()
		if r.seq == mySeq {
			r.state = StateErrored
			r.lastErr = derr
		}
		r.mu.Unlock()
		return nil, derr
	}

	loc := UserLocation{Point: &point, Source: SourceGeolocation}
	city, state, gerr := r.geocode(ctx, point)
	if gerr != nil {
		r.metrics.IncGeocodeFailures()
		r.logger.WarnContext(ctx, "reverse geocode failed, keeping coordinates",
			"error", gerr.Error(),
		)
		loc.Label = placeholderLabel
	} else {
		loc.City, loc.State = city, state
		loc.Label = displayLabel(city, state)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq != mySeq {
		// A newer resolution happened while we waited on the device or the
		// geocoder; this result must not overwrite it.
		return nil, ErrSuperseded
	}
	r.state = StateResolved
	r.current = &loc
	r.lastErr = nil
	cp := loc
	return &cp, nil
}

// SelectCity resolves to a manual city choice. A manually chosen city
// carries no precise point, so any previous coordinates are discarded. The
// choice is persisted for the session on a best-effort basis.
func (r *Resolver) SelectCity(ctx context.Context, city, state string) (*UserLocation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "city is required")
	}
	loc := UserLocation{
		City:   city,
		State:  strings.TrimSpace(state),
		Source: SourceManual,
	}
	loc.Label = displayLabel(loc.City, loc.State)
	r.apply(loc)

	if r.sessions != nil && r.sessionKey != "" {
		if err := r.sessions.SaveChoice(ctx, r.sessionKey, loc); err != nil {
			r.logger.WarnContext(ctx, "failed to persist city choice",
				"error", err.Error(),
			)
		}
	}
	cp := loc
	return &cp, nil
}

// Clear returns the resolver to Uninitialized and invalidates any in-flight
// geolocation request.
func (r *Resolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.state = StateUninitialized
	r.current = nil
	r.lastErr = nil
}

func (r *Resolver) apply(loc UserLocation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.state = StateResolved
	r.current = &loc
	r.lastErr = nil
}

func (r *Resolver) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.state = StateErrored
	r.lastErr = err
}

func (r *Resolver) geocode(ctx context.Context, p geo.Point) (string, string, error) {
	if r.geocoder == nil {
		return "", "", errors.New("no reverse geocoder configured")
	}
	return r.geocoder.ReverseGeocode(ctx, p)
}

func capabilityMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "geolocation permission denied"
	case errors.Is(err, ErrPositionUnavailable):
		return "position unavailable"
	case errors.Is(err, ErrTimeout):
		return "geolocation timed out"
	case errors.Is(err, ErrUnsupported):
		return "geolocation not supported"
	default:
		return "geolocation failed"
	}
}

func displayLabel(city, state string) string {
	if state == "" {
		return city
	}
	return city + ", " + state
}
