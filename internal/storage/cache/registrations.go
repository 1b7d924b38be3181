// --- File: internal/storage/cache/registrations.go ---
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-push-client/internal/session"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns ErrMiss (or any error) if the key cannot be read.
	Get(ctx context.Context, key string, dest any) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

type registration struct {
	Platform     string         `json:"platform"`
	RegisteredAt time.Time      `json:"registered_at"`
	Result       map[string]any `json:"result,omitempty"`
}

// CachedService is a push.Service decorator that remembers recent device
// registrations, so an app re-registering the same token on every launch
// does not hit the server each time.
//
// Entries are scoped by the session's identity: the same token registered by
// another user, or against another server, is a different entry.
type CachedService struct {
	newService func(*session.Session) push.Service
	session    *session.Session
	cache      CacheClient
	ttl        time.Duration
	logger     *slog.Logger
}

// NewCachedService decorates the services newService builds for sess.
func NewCachedService(
	newService func(*session.Session) push.Service,
	sess *session.Session,
	cache CacheClient,
	ttl time.Duration,
	logger *slog.Logger,
) *CachedService {
	return &CachedService{
		newService: newService,
		session:    sess,
		cache:      cache,
		ttl:        ttl,
		logger:     logger.With("component", "CachedService"),
	}
}

// --- WRITE PATHS ---

// AddDevice skips the remote call when the token is already registered for
// this identity and platform. A skipped call still reaches the session's
// success handler, with the result the server returned when it was cached.
func (s *CachedService) AddDevice(ctx context.Context, token push.DeviceToken, platform string) error {
	key := s.cacheKey(token)

	var cached registration
	if err := s.cache.Get(ctx, key, &cached); err == nil && cached.Platform == platform {
		s.logger.Debug("Device already registered, skipping remote call", "platform", platform)
		s.session.Succeed(cached.Result)
		return nil
	}

	var result map[string]any
	recording := s.session.WithHandlers(
		func(r map[string]any) {
			result = r
			s.session.Succeed(r)
		},
		s.session.Fail,
	)
	if err := s.newService(recording).AddDevice(ctx, token, platform); err != nil {
		return err
	}

	// Caching is an optimization. A Redis outage only costs a repeat call.
	entry := registration{Platform: platform, RegisteredAt: time.Now().UTC(), Result: result}
	if err := s.cache.Set(ctx, key, entry, s.ttl); err != nil {
		s.logger.Warn("Failed to cache device registration", "err", err)
	}
	return nil
}

func (s *CachedService) DeleteDevice(ctx context.Context, token push.DeviceToken) error {
	// Invalidate first: a failed delete must not leave a stale "registered" entry
	// that would suppress the next AddDevice.
	if err := s.cache.Del(ctx, s.cacheKey(token)); err != nil {
		s.logger.Warn("Failed to invalidate device registration", "err", err)
	}
	return s.newService(s.session).DeleteDevice(ctx, token)
}

func (s *CachedService) SendNotification(ctx context.Context, userIDs []int64, payload string) error {
	return s.newService(s.session).SendNotification(ctx, userIDs, payload)
}

func (s *CachedService) cacheKey(token push.DeviceToken) string {
	return fmt.Sprintf("push:device:%s:%s", s.session.Identity(), token)
}
