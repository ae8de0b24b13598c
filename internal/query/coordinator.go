// Package query coordinates publication fetches: identical in-flight
// requests share one network call, and a newer request for a channel
// supersedes an older one so stale responses never reach the screen.
package query

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/repasse/repasse-go/internal/publication"
	"golang.org/x/sync/singleflight"
)

// Kind names a query channel. Supersession is tracked per channel: a fresh
// search replaces the previous search, not the feed.
type Kind string

// Query channels.
const (
	KindFeed     Kind = "feed"
	KindSearch   Kind = "search"
	KindByAuthor Kind = "author"
	KindByLiker  Kind = "liker"
)

// Query identifies one fetch: a channel plus its parameter.
type Query struct {
	Kind  Kind
	Param string
}

// Feed is the unfiltered feed query.
func Feed() Query { return Query{Kind: KindFeed} }

// Search is a full-text search query.
func Search(text string) Query { return Query{Kind: KindSearch, Param: text} }

// ByAuthor queries publications authored by the user.
func ByAuthor(userID int64) Query {
	return Query{Kind: KindByAuthor, Param: strconv.FormatInt(userID, 10)}
}

// ByLiker queries publications liked by the user.
func ByLiker(userID int64) Query {
	return Query{Kind: KindByLiker, Param: strconv.FormatInt(userID, 10)}
}

// Scope is the dedup identity of the query.
func (q Query) Scope() string {
	return string(q.Kind) + ":" + q.Param
}

// Source runs queries against the backend. *publication.Repository satisfies it.
type Source interface {
	Feed(ctx context.Context) ([]publication.Publication, error)
	Search(ctx context.Context, query string) ([]publication.Publication, error)
	ByAuthor(ctx context.Context, userID int64) ([]publication.Publication, error)
	ByLiker(ctx context.Context, userID int64) ([]publication.Publication, error)
}

// Observer receives authoritative snapshots from applied results. The
// engagement manager satisfies it.
type Observer interface {
	Observe(publicationID, likeCount int64, likedByViewer *bool)
}

// Result is the outcome of a coordinated fetch. A superseded result carries
// no publications and no error: a newer query for the same channel owns the
// screen now.
type Result struct {
	Publications []publication.Publication
	Superseded   bool
}

type channelState struct {
	issued         uint64
	applied        uint64
	scopeChangedAt uint64
	scope          string
	flightCtx      context.Context
	cancel         context.CancelFunc
	latest         []publication.Publication
}

// Coordinator wraps a Source with per-scope deduplication and per-channel
// last-write-wins supersession.
type Coordinator struct {
	source   Source
	observer Observer

	group    singleflight.Group
	mu       sync.Mutex
	channels map[Kind]*channelState
}

// NewCoordinator creates a coordinator over the given source. The observer
// may be nil.
func NewCoordinator(source Source, observer Observer) *Coordinator {
	return &Coordinator{
		source:   source,
		observer: observer,
		channels: make(map[Kind]*channelState),
	}
}

// Fetch runs the query. Identical in-flight queries share one network call;
// when a newer query for the same channel starts before this one resolves,
// the stale result is dropped silently and Superseded is reported instead of
// an error.
func (c *Coordinator) Fetch(ctx context.Context, q Query) (Result, error) {
	if c == nil || c.source == nil {
		return Result{}, fmt.Errorf("query coordinator is not configured")
	}

	scope := q.Scope()

	c.mu.Lock()
	ch, ok := c.channels[q.Kind]
	if !ok {
		ch = &channelState{}
		c.channels[q.Kind] = ch
	}
	ch.issued++
	ticket := ch.issued
	if ch.scope != scope || ch.cancel == nil {
		if ch.cancel != nil {
			// A different query owns the channel now; cancel interest in
			// the old flight. Best effort: the call may still complete,
			// but its result will not be applied.
			ch.cancel()
			c.group.Forget(ch.scope)
		}
		// The flight context outlives the caller so that joiners sharing
		// the flight are not torn down with whoever started it.
		ch.flightCtx, ch.cancel = context.WithCancel(context.WithoutCancel(ctx))
		ch.scope = scope
		ch.scopeChangedAt = ticket
	}
	flightCtx := ch.flightCtx
	c.mu.Unlock()

	result, err, _ := c.group.Do(scope, func() (any, error) {
		return c.run(flightCtx, q)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket < ch.scopeChangedAt {
		// A different query took over the channel while we were in flight.
		return Result{Superseded: true}, nil
	}
	if err != nil {
		return Result{}, err
	}
	pubs := result.([]publication.Publication)
	if ticket > ch.applied {
		ch.applied = ticket
		ch.latest = pubs
		if c.observer != nil {
			for _, pub := range pubs {
				c.observer.Observe(pub.ID, pub.LikeCount, pub.LikedByViewer)
			}
		}
	}
	return Result{Publications: pubs}, nil
}

// Latest returns the most recently applied result for the channel. Screens
// re-reading after a superseded fetch get the winning query's publications.
func (c *Coordinator) Latest(kind Kind) []publication.Publication {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.channels[kind]; ok {
		return ch.latest
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context, q Query) ([]publication.Publication, error) {
	switch q.Kind {
	case KindFeed:
		return c.source.Feed(ctx)
	case KindSearch:
		return c.source.Search(ctx, q.Param)
	case KindByAuthor:
		userID, err := strconv.ParseInt(q.Param, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("author query needs a numeric user id: %w", err)
		}
		return c.source.ByAuthor(ctx, userID)
	case KindByLiker:
		userID, err := strconv.ParseInt(q.Param, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("liker query needs a numeric user id: %w", err)
		}
		return c.source.ByLiker(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown query kind %q", q.Kind)
	}
}
