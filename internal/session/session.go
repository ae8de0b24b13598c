// Package session owns the authenticated session for the running client.
// The store is the single writer of its backing storage; everything else
// reads through it.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/repasse/repasse-go/internal/platform/errors"
	"github.com/repasse/repasse-go/internal/storage"
	"github.com/sirupsen/logrus"
)

// sessionKey is the single storage key holding the serialized session, so a
// replace is one atomic write.
const sessionKey = "current"

// Session identifies the authenticated user. The zero value is the empty
// (unauthenticated) session.
type Session struct {
	UserID int64  `json:"userId"`
	Token  string `json:"token"`
}

// IsAuthenticated reports whether both the user id and token are present.
func (s Session) IsAuthenticated() bool {
	return s.UserID != 0 && s.Token != ""
}

// Store holds the process-wide session and persists it durably. The
// in-memory copy stays authoritative for the process lifetime even when a
// durable write fails.
type Store struct {
	mu      sync.RWMutex
	kv      storage.KV
	log     *logrus.Entry
	clock   func() time.Time
	current Session
}

// NewStore creates a session store over the given durable KV.
func NewStore(kv storage.KV, log *logrus.Entry) *Store {
	return &Store{kv: kv, log: log, clock: time.Now}
}

// Restore loads a previously persisted session. Missing, corrupt, or expired
// data yields the empty session; Restore never fails.
func (s *Store) Restore(ctx context.Context) Session {
	if s == nil || s.kv == nil {
		return Session{}
	}

	raw, err := s.kv.Get(ctx, storage.BucketSession, sessionKey)
	if err != nil {
		return s.replace(Session{})
	}

	var restored Session
	if err := json.Unmarshal([]byte(raw), &restored); err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("discarding corrupt persisted session")
		}
		return s.replace(Session{})
	}
	if !restored.IsAuthenticated() || s.tokenExpired(restored.Token) {
		return s.replace(Session{})
	}
	return s.replace(restored)
}

// Set replaces the session in memory and persists it. A failed durable write
// is reported but does not roll back the in-memory session.
func (s *Store) Set(ctx context.Context, sess Session) error {
	s.replace(sess)

	payload, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(errors.CodeStorageWriteFailed, "serialize session", err)
	}
	if err := s.kv.Put(ctx, storage.BucketSession, sessionKey, string(payload)); err != nil {
		if s.log != nil {
			s.log.WithError(err).Error("persist session failed; in-memory session kept")
		}
		return errors.Wrap(errors.CodeStorageWriteFailed, "persist session", err)
	}
	return nil
}

// Clear drops the session from memory and durable storage.
func (s *Store) Clear(ctx context.Context) error {
	s.replace(Session{})
	if err := s.kv.Purge(ctx, storage.BucketSession); err != nil {
		if s.log != nil {
			s.log.WithError(err).Error("clear persisted session failed")
		}
		return errors.Wrap(errors.CodeStorageWriteFailed, "clear persisted session", err)
	}
	return nil
}

// Current returns the in-memory session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// UserID returns the authenticated user id, or zero.
func (s *Store) UserID() int64 {
	return s.Current().UserID
}

// Token returns the credential token for outgoing requests, or empty.
// Implements the transport token source.
func (s *Store) Token() string {
	return s.Current().Token
}

// IsAuthenticated reports whether a complete session is present.
func (s *Store) IsAuthenticated() bool {
	return s.Current().IsAuthenticated()
}

func (s *Store) replace(sess Session) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	return sess
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; verification is the backend's job. Tokens that do not parse as
// JWTs are treated as corrupt.
func (s *Store) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("persisted token is not a parseable JWT")
		}
		return true
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return expiry.Before(s.clock())
}
