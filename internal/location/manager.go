package location

import (
	"log/slog"
	"sync"

	"plantpantry/internal/platform/metrics"
)

// Manager hands out one Resolver per session key, so each HTTP session owns
// an explicit resolver instance instead of sharing a mutable global.
type Manager struct {
	device   DeviceLocator
	geocoder ReverseGeocoder
	sessions SessionStore
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	resolvers map[string]*Resolver
}

// NewManager constructs a resolver manager with shared collaborators.
func NewManager(device DeviceLocator, geocoder ReverseGeocoder, sessions SessionStore, logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		device:    device,
		geocoder:  geocoder,
		sessions:  sessions,
		logger:    logger,
		metrics:   m,
		resolvers: make(map[string]*Resolver),
	}
}

// For returns the session's resolver, creating it on first use.
func (m *Manager) For(sessionKey string) *Resolver {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.resolvers[sessionKey]; ok {
		return r
	}
	r := NewResolver(sessionKey, m.device, m.geocoder, m.sessions,
		WithLogger(m.logger), WithMetrics(m.metrics))
	m.resolvers[sessionKey] = r
	return r
}

// Drop forgets the session's resolver (session end).
func (m *Manager) Drop(sessionKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resolvers, sessionKey)
}
