package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"plantpantry/internal/platform/redis"
	"plantpantry/pkg/platform/sentinel"
)

// MemorySessions keeps session choices in a map. The fallback when Redis is
// not configured; choices survive only as long as the process.
type MemorySessions struct {
	mu      sync.RWMutex
	choices map[string]UserLocation
}

// NewMemorySessions constructs an empty session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{choices: make(map[string]UserLocation)}
}

// SaveChoice records the session's last manual choice.
func (s *MemorySessions) SaveChoice(_ context.Context, key string, loc UserLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.choices[key] = loc
	return nil
}

// LoadChoice returns the session's saved choice, or sentinel.ErrNotFound.
func (s *MemorySessions) LoadChoice(_ context.Context, key string) (*UserLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.choices[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := loc
	return &cp, nil
}

// RedisSessions persists session choices in Redis with a TTL, so a saved city
// survives process restarts.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions constructs a Redis-backed session store.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func sessionChoiceKey(key string) string {
	return "location:choice:" + key
}

// SaveChoice records the session's last manual choice.
func (s *RedisSessions) SaveChoice(ctx context.Context, key string, loc UserLocation) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal session choice: %w", err)
	}
	if err := s.client.Set(ctx, sessionChoiceKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session choice: %w", err)
	}
	return nil
}

// LoadChoice returns the session's saved choice, or sentinel.ErrNotFound.
func (s *RedisSessions) LoadChoice(ctx context.Context, key string) (*UserLocation, error) {
	payload, err := s.client.Get(ctx, sessionChoiceKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session choice: %w", err)
	}
	var loc UserLocation
	if err := json.Unmarshal(payload, &loc); err != nil {
		return nil, fmt.Errorf("unmarshal session choice: %w", err)
	}
	return &loc, nil
}
