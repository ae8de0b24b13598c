// Package app wires the client core and exposes the surface consumed by
// view layers: collection loads, like toggles, profile reads, and the auth
// lifecycle.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/repasse/repasse-go/internal/engagement"
	"github.com/repasse/repasse-go/internal/platform/config"
	"github.com/repasse/repasse-go/internal/platform/errors"
	"github.com/repasse/repasse-go/internal/platform/logging"
	"github.com/repasse/repasse-go/internal/profile"
	"github.com/repasse/repasse-go/internal/publication"
	"github.com/repasse/repasse-go/internal/query"
	"github.com/repasse/repasse-go/internal/session"
	"github.com/repasse/repasse-go/internal/storage"
	storagebbolt "github.com/repasse/repasse-go/internal/storage/bbolt"
	storagesqlite "github.com/repasse/repasse-go/internal/storage/sqlite"
	"github.com/repasse/repasse-go/internal/transport"
	"github.com/sirupsen/logrus"
)

// Client is the Publication Data & Engagement Layer facade.
type Client struct {
	log        *logrus.Logger
	kv         storage.KV
	api        *transport.Client
	sessions   *session.Store
	profiles   *profile.Service
	engagement *engagement.Manager
	queries    *query.Coordinator
}

// New builds a client from configuration. Call Restore to pick up a
// persisted session and Close when done.
func New(cfg config.Config, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.New(cfg.LogLevel)
	}

	kv, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(kv, logging.ForComponent(logger, "session"))
	api, err := transport.New(cfg.APIBaseURL, cfg.HTTPTimeout, sessions, logging.ForComponent(logger, "transport"))
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	manager := engagement.NewManager(
		&likeToggler{api: api, sessions: sessions},
		logging.ForComponent(logger, "engagement"),
	)
	repo := publication.NewRepository(api)

	return &Client{
		log:        logger,
		kv:         kv,
		api:        api,
		sessions:   sessions,
		profiles:   profile.NewService(profile.NewCache(kv, logging.ForComponent(logger, "profile")), api),
		engagement: manager,
		queries:    query.NewCoordinator(repo, manager),
	}, nil
}

func openStorage(cfg config.Config) (storage.KV, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		return storagesqlite.Open(cfg.StoragePath)
	case config.DriverBBolt, "":
		return storagebbolt.Open(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Close waits for in-flight toggles to settle and releases storage.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.engagement.Wait()
	return c.kv.Close()
}

// Restore loads a persisted session, if any.
func (c *Client) Restore(ctx context.Context) session.Session {
	return c.sessions.Restore(ctx)
}

// IsAuthenticated reports whether a complete session is present.
func (c *Client) IsAuthenticated() bool {
	return c.sessions.IsAuthenticated()
}

// Session returns the current session.
func (c *Client) Session() session.Session {
	return c.sessions.Current()
}

// LoadFeed fetches the reverse-chronological publication feed.
func (c *Client) LoadFeed(ctx context.Context) (query.Result, error) {
	return c.queries.Fetch(ctx, query.Feed())
}

// Search fetches publications matching the text. Blank text returns an
// empty result without a network call.
func (c *Client) Search(ctx context.Context, text string) (query.Result, error) {
	return c.queries.Fetch(ctx, query.Search(text))
}

// LoadByAuthor fetches publications authored by the user.
func (c *Client) LoadByAuthor(ctx context.Context, userID int64) (query.Result, error) {
	return c.queries.Fetch(ctx, query.ByAuthor(userID))
}

// LoadLiked fetches publications the user has liked.
func (c *Client) LoadLiked(ctx context.Context, userID int64) (query.Result, error) {
	return c.queries.Fetch(ctx, query.ByLiker(userID))
}

// ToggleLike flips the like state for the publication, optimistically. The
// returned view reflects the immediate optimistic state; subscribers learn
// the reconciled outcome.
func (c *Client) ToggleLike(ctx context.Context, publicationID int64) (engagement.View, error) {
	if !c.sessions.IsAuthenticated() {
		return engagement.View{}, errors.New(errors.CodeAuthenticationRequired, "liking requires a session")
	}
	return c.engagement.Toggle(ctx, publicationID)
}

// Engagement returns the renderable like state for the publication.
func (c *Client) Engagement(publicationID int64) engagement.View {
	return c.engagement.Engagement(publicationID)
}

// SubscribeEngagement registers a callback for engagement updates and
// returns its unsubscribe function.
func (c *Client) SubscribeEngagement(fn func(engagement.Update)) func() {
	return c.engagement.Subscribe(fn)
}

// Profile returns the cached profile for the user, or a miss. Never fetches.
func (c *Client) Profile(ctx context.Context, userID int64) (profile.UserProfile, bool) {
	return c.profiles.Cached(ctx, userID)
}

// FetchProfile loads the profile from the backend and fills the cache.
func (c *Client) FetchProfile(ctx context.Context, userID int64) (profile.UserProfile, error) {
	return c.profiles.Fetch(ctx, userID)
}

// Logout waits out pending toggles, drops engagement state, clears the
// session, and empties the profile cache so nothing leaks to the next
// account on a shared device.
func (c *Client) Logout(ctx context.Context) error {
	c.engagement.Wait()
	c.engagement.Reset()
	return stderrors.Join(
		c.sessions.Clear(ctx),
		c.profiles.InvalidateAll(ctx),
	)
}

// RegisterInput carries the registration form. Picture is optional.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Picture     io.Reader
	PictureName string
}
