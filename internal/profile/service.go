package profile

import (
	"context"
	"fmt"
	"net/url"

	"github.com/repasse/repasse-go/internal/platform/errors"
)

// Getter is the slice of the transport client the service consumes.
type Getter interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Service combines the durable cache with backend fetches.
type Service struct {
	cache *Cache
	api   Getter
}

// NewService creates a profile service.
func NewService(cache *Cache, api Getter) *Service {
	return &Service{cache: cache, api: api}
}

// Cached returns the cached profile, or a miss. It never fetches.
func (s *Service) Cached(ctx context.Context, userID int64) (UserProfile, bool) {
	return s.cache.Get(ctx, userID)
}

// Fetch loads the profile from the backend and fills the cache on success.
// A failed cache write does not fail the fetch; the profile is still
// returned and the write failure is surfaced through the cache logger.
func (s *Service) Fetch(ctx context.Context, userID int64) (UserProfile, error) {
	if s == nil || s.api == nil {
		return UserProfile{}, fmt.Errorf("profile service is not configured")
	}

	var wire struct {
		ID             *int64 `json:"id"`
		Name           string `json:"name"`
		Email          string `json:"email"`
		ProfilePicture string `json:"profilePicture"`
	}
	if err := s.api.GetJSON(ctx, fmt.Sprintf("/users/%d", userID), nil, &wire); err != nil {
		return UserProfile{}, err
	}
	if wire.ID == nil {
		return UserProfile{}, errors.New(errors.CodeMalformedResponse, "user record is missing id")
	}

	fetched := UserProfile{
		ID:             *wire.ID,
		Name:           wire.Name,
		Email:          wire.Email,
		ProfilePicture: wire.ProfilePicture,
	}
	if err := s.cache.Put(ctx, userID, fetched); err != nil && s.cache.log != nil {
		s.cache.log.WithError(err).WithField("user_id", userID).Warn("profile fetched but not cached")
	}
	return fetched, nil
}

// Invalidate removes one cached profile.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	return s.cache.Invalidate(ctx, userID)
}

// InvalidateAll removes every cached profile.
func (s *Service) InvalidateAll(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}
