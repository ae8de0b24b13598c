// Package profile caches user profiles durably and fetches them from the
// backend on demand. Cache reads never touch the network; callers decide
// what a miss means.
package profile

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/repasse/repasse-go/internal/platform/errors"
	"github.com/repasse/repasse-go/internal/storage"
	"github.com/sirupsen/logrus"
)

// UserProfile is the canonical cached profile record.
type UserProfile struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// cacheEntry wraps a profile with its storage timestamp. Entries never
// expire on their own; invalidation is explicit.
type cacheEntry struct {
	Profile  UserProfile `json:"profile"`
	StoredAt time.Time   `json:"storedAt"`
}

// Cache is a durable, manual-invalidation profile cache keyed by user id.
type Cache struct {
	kv    storage.KV
	log   *logrus.Entry
	clock func() time.Time
}

// NewCache creates a profile cache over the given durable KV.
func NewCache(kv storage.KV, log *logrus.Entry) *Cache {
	return &Cache{kv: kv, log: log, clock: time.Now}
}

// Get returns the cached profile for the user, or a miss. Corrupt entries
// count as misses; Get never fails.
func (c *Cache) Get(ctx context.Context, userID int64) (UserProfile, bool) {
	if c == nil || c.kv == nil {
		return UserProfile{}, false
	}
	raw, err := c.kv.Get(ctx, storage.BucketProfiles, cacheKey(userID))
	if err != nil {
		return UserProfile{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		if c.log != nil {
			c.log.WithError(err).WithField("user_id", userID).Warn("discarding corrupt profile entry")
		}
		return UserProfile{}, false
	}
	return entry.Profile, true
}

// Put stores or overwrites the profile for the user.
func (c *Cache) Put(ctx context.Context, userID int64, profile UserProfile) error {
	payload, err := json.Marshal(cacheEntry{Profile: profile, StoredAt: c.clock().UTC()})
	if err != nil {
		return errors.Wrap(errors.CodeStorageWriteFailed, "serialize profile entry", err)
	}
	if err := c.kv.Put(ctx, storage.BucketProfiles, cacheKey(userID), string(payload)); err != nil {
		return errors.Wrap(errors.CodeStorageWriteFailed, "persist profile entry", err)
	}
	return nil
}

// Invalidate removes one cached profile.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.kv.Delete(ctx, storage.BucketProfiles, cacheKey(userID)); err != nil {
		return errors.Wrap(errors.CodeStorageWriteFailed, "invalidate profile entry", err)
	}
	return nil
}

// InvalidateAll removes every cached profile. Called on logout so a shared
// device never leaks profiles across accounts.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	if err := c.kv.Purge(ctx, storage.BucketProfiles); err != nil {
		return errors.Wrap(errors.CodeStorageWriteFailed, "invalidate profile cache", err)
	}
	return nil
}

func cacheKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
