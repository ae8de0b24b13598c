// Package engagement owns per-publication like state for the authenticated
// session. Toggles apply optimistically, collapse rapid re-taps into a single
// pending intent, and reconcile against the server once the in-flight call
// settles. State is session-scoped and never persisted; server truth is
// re-fetched on the next load.
package engagement

import (
	"context"
	"fmt"
	"sync"

	"github.com/repasse/repasse-go/internal/platform/errors"
	"github.com/sirupsen/logrus"
)

// Result is the backend's answer to a like toggle. LikeCount is nil when the
// backend only acknowledges the toggle; the optimistic count is then kept.
type Result struct {
	Liked     bool
	LikeCount *int64
}

// Toggler performs the network half of a like toggle.
type Toggler interface {
	ToggleLike(ctx context.Context, publicationID int64) (Result, error)
}

// View is the renderable engagement state for one publication.
type View struct {
	Liked          bool
	DisplayedCount int64
}

// Update notifies subscribers that a publication's engagement changed.
// RolledBack is true exactly once per failed toggle, with Err carrying the
// rollback error for the view to surface.
type Update struct {
	PublicationID  int64
	Liked          bool
	DisplayedCount int64
	RolledBack     bool
	Err            error
}

// state tracks one publication. Displayed count is always
// baseCount + pendingDelta; pendingDelta is nonzero only while a toggle is
// unresolved.
type state struct {
	serverLiked  bool  // last server-confirmed like state
	liked        bool  // displayed like state
	baseCount    int64 // last server-confirmed count
	pendingDelta int64 // -1, 0 or +1
	inFlight     bool
	intent       *bool // queued desired state while a call is in flight
}

func (st *state) view() View {
	return View{Liked: st.liked, DisplayedCount: st.baseCount + st.pendingDelta}
}

func (st *state) recomputeDelta() {
	switch {
	case st.liked && !st.serverLiked:
		st.pendingDelta = 1
	case !st.liked && st.serverLiked:
		st.pendingDelta = -1
	default:
		st.pendingDelta = 0
	}
}

// Manager coordinates optimistic like toggles. At most one toggle per
// publication is in flight; a second tap while one is pending replaces the
// queued intent instead of issuing another call.
type Manager struct {
	mu      sync.Mutex
	toggler Toggler
	log     *logrus.Entry
	states  map[int64]*state
	subs    map[int64]func(Update)
	nextSub int64
	wg      sync.WaitGroup
}

// NewManager creates an engagement manager using the given toggler.
func NewManager(toggler Toggler, log *logrus.Entry) *Manager {
	return &Manager{
		toggler: toggler,
		log:     log,
		states:  make(map[int64]*state),
		subs:    make(map[int64]func(Update)),
	}
}

// Subscribe registers a callback for engagement updates and returns its
// unsubscribe function. Callbacks run outside the manager lock.
func (m *Manager) Subscribe(fn func(Update)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Observe merges an authoritative server snapshot for one publication into
// local state. Pending optimistic state survives the merge: only the base
// count (and, when reported, the viewer's like flag) is refreshed.
func (m *Manager) Observe(publicationID, likeCount int64, likedByViewer *bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[publicationID]
	if !ok {
		st = &state{}
		m.states[publicationID] = st
	}
	st.baseCount = likeCount
	if likedByViewer != nil && !st.inFlight {
		st.serverLiked = *likedByViewer
	}
	if !st.inFlight && st.intent == nil {
		st.liked = st.serverLiked
	}
	st.recomputeDelta()
}

// Engagement returns the renderable state for one publication. Publications
// never observed render as unliked with a zero count.
func (m *Manager) Engagement(publicationID int64) View {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[publicationID]; ok {
		return st.view()
	}
	return View{}
}

// Toggle flips the like state optimistically and returns the immediate view.
// The network call settles asynchronously; subscribers learn the outcome.
func (m *Manager) Toggle(ctx context.Context, publicationID int64) (View, error) {
	if m == nil || m.toggler == nil {
		return View{}, fmt.Errorf("engagement manager is not configured")
	}

	m.mu.Lock()
	st, ok := m.states[publicationID]
	if !ok {
		st = &state{}
		m.states[publicationID] = st
	}

	st.liked = !st.liked
	st.recomputeDelta()
	view := st.view()

	if st.inFlight {
		// Collapse rapid taps into a single pending intent.
		desired := st.liked
		st.intent = &desired
		update := m.updateLocked(publicationID, st)
		subs := m.subscribersLocked()
		m.mu.Unlock()
		notify(subs, update)
		return view, nil
	}

	st.inFlight = true
	m.dispatchLocked(ctx, publicationID)
	update := m.updateLocked(publicationID, st)
	subs := m.subscribersLocked()
	m.mu.Unlock()
	notify(subs, update)
	return view, nil
}

// Wait blocks until every in-flight toggle has settled. Intended for
// shutdown and tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Reset drops all engagement state, e.g. when the session changes.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[int64]*state)
}

// dispatchLocked launches the network call for the publication's current
// displayed state. Caller holds the lock.
func (m *Manager) dispatchLocked(ctx context.Context, publicationID int64) {
	// The toggle must settle even if the originating screen is gone.
	callCtx := context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		result, err := m.toggler.ToggleLike(callCtx, publicationID)
		m.settle(callCtx, publicationID, result, err)
	}()
}

func (m *Manager) settle(ctx context.Context, publicationID int64, result Result, err error) {
	m.mu.Lock()
	st, ok := m.states[publicationID]
	if !ok {
		// Reset while in flight; drop the response.
		m.mu.Unlock()
		return
	}

	if err != nil {
		st.liked = st.serverLiked
		st.pendingDelta = 0
		st.inFlight = false
		st.intent = nil
		update := m.updateLocked(publicationID, st)
		update.RolledBack = true
		update.Err = errors.Wrap(errors.CodeToggleRolledBack, "like toggle reverted", err)
		subs := m.subscribersLocked()
		m.mu.Unlock()
		if m.log != nil {
			m.log.WithError(err).WithField("publication_id", publicationID).Warn("like toggle rolled back")
		}
		notify(subs, update)
		return
	}

	previousServerLiked := st.serverLiked
	st.serverLiked = result.Liked
	if result.LikeCount != nil {
		st.baseCount = *result.LikeCount
	} else if result.Liked != previousServerLiked {
		// Acknowledge-only backend: keep the optimistic count.
		if result.Liked {
			st.baseCount++
		} else {
			st.baseCount--
		}
	}

	if st.intent != nil && *st.intent != st.serverLiked {
		// The user changed their mind while the call was in flight; issue
		// one follow-up reflecting the final intent.
		st.intent = nil
		st.recomputeDelta()
		m.dispatchLocked(ctx, publicationID)
		update := m.updateLocked(publicationID, st)
		subs := m.subscribersLocked()
		m.mu.Unlock()
		notify(subs, update)
		return
	}

	st.intent = nil
	st.inFlight = false
	st.liked = st.serverLiked
	st.recomputeDelta()
	update := m.updateLocked(publicationID, st)
	subs := m.subscribersLocked()
	m.mu.Unlock()
	notify(subs, update)
}

func (m *Manager) updateLocked(publicationID int64, st *state) Update {
	view := st.view()
	return Update{
		PublicationID:  publicationID,
		Liked:          view.Liked,
		DisplayedCount: view.DisplayedCount,
	}
}

func (m *Manager) subscribersLocked() []func(Update) {
	subs := make([]func(Update), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Update), update Update) {
	for _, fn := range subs {
		fn(update)
	}
}
