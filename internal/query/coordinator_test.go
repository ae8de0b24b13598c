package query

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/repasse/repasse-go/internal/publication"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves canned results and can block individual scopes until
// released, so tests control response ordering.
type fakeSource struct {
	mu      sync.Mutex
	calls   map[string]int
	gates   map[string]chan struct{}
	started map[string]chan struct{}
	results map[string][]publication.Publication
	errs    map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:   map[string]int{},
		gates:   map[string]chan struct{}{},
		started: map[string]chan struct{}{},
		results: map[string][]publication.Publication{},
		errs:    map[string]error{},
	}
}

func (f *fakeSource) serve(ctx context.Context, scope string) ([]publication.Publication, error) {
	f.mu.Lock()
	f.calls[scope]++
	gate := f.gates[scope]
	started := f.started[scope]
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[scope]; err != nil {
		return nil, err
	}
	return f.results[scope], nil
}

func (f *fakeSource) Feed(ctx context.Context) ([]publication.Publication, error) {
	return f.serve(ctx, "feed:")
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]publication.Publication, error) {
	return f.serve(ctx, "search:"+query)
}

func (f *fakeSource) ByAuthor(ctx context.Context, userID int64) ([]publication.Publication, error) {
	return f.serve(ctx, "author:")
}

func (f *fakeSource) ByLiker(ctx context.Context, userID int64) ([]publication.Publication, error) {
	return f.serve(ctx, "liker:")
}

func (f *fakeSource) callCount(scope string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[scope]
}

func pubs(ids ...int64) []publication.Publication {
	out := make([]publication.Publication, 0, len(ids))
	for _, id := range ids {
		out = append(out, publication.Publication{ID: id, Images: []string{}})
	}
	return out
}

func TestFetchReturnsSourceResult(t *testing.T) {
	source := newFakeSource()
	source.results["feed:"] = pubs(1, 2)
	coordinator := NewCoordinator(source, nil)

	result, err := coordinator.Fetch(context.Background(), Feed())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Superseded {
		t.Fatal("lone fetch should not be superseded")
	}
	if len(result.Publications) != 2 {
		t.Fatalf("len = %d, want 2", len(result.Publications))
	}
}

func TestNewerQuerySupersedesOlderRegardlessOfArrivalOrder(t *testing.T) {
	source := newFakeSource()
	source.gates["search:te"] = make(chan struct{})
	source.started["search:te"] = make(chan struct{}, 1)
	source.results["search:te"] = pubs(1)
	source.results["search:tenis"] = pubs(2)
	coordinator := NewCoordinator(source, nil)

	type outcome struct {
		result Result
		err    error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		result, err := coordinator.Fetch(context.Background(), Search("te"))
		firstDone <- outcome{result, err}
	}()
	<-source.started["search:te"]

	// The user kept typing; a newer search starts and resolves first.
	second, err := coordinator.Fetch(context.Background(), Search("tenis"))
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if second.Superseded || len(second.Publications) != 1 || second.Publications[0].ID != 2 {
		t.Fatalf("second result = %+v, want publication 2", second)
	}

	close(source.gates["search:te"])
	first := <-firstDone
	if first.err != nil {
		t.Fatalf("superseded fetch must be silent, got error %v", first.err)
	}
	if !first.result.Superseded {
		t.Fatal("stale fetch should report superseded")
	}
	if len(first.result.Publications) != 0 {
		t.Fatal("stale fetch must not deliver publications")
	}

	latest := coordinator.Latest(KindSearch)
	if len(latest) != 1 || latest[0].ID != 2 {
		t.Fatalf("latest = %+v, want the newer query's result", latest)
	}
}

func TestSupersededFailureStaysSilent(t *testing.T) {
	source := newFakeSource()
	source.gates["search:te"] = make(chan struct{})
	source.started["search:te"] = make(chan struct{}, 1)
	source.errs["search:te"] = stderrors.New("boom")
	source.results["search:tenis"] = pubs(2)
	coordinator := NewCoordinator(source, nil)

	done := make(chan error, 1)
	go func() {
		_, err := coordinator.Fetch(context.Background(), Search("te"))
		done <- err
	}()
	<-source.started["search:te"]

	if _, err := coordinator.Fetch(context.Background(), Search("tenis")); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	close(source.gates["search:te"])

	if err := <-done; err != nil {
		t.Fatalf("superseded failure should be dropped, got %v", err)
	}
}

func TestIdenticalInFlightQueriesShareOneCall(t *testing.T) {
	source := newFakeSource()
	source.gates["search:sofa"] = make(chan struct{})
	source.started["search:sofa"] = make(chan struct{}, 1)
	source.results["search:sofa"] = pubs(3)
	coordinator := NewCoordinator(source, nil)

	results := make(chan Result, 2)
	errs := make(chan error, 2)
	fetch := func() {
		result, err := coordinator.Fetch(context.Background(), Search("sofa"))
		results <- result
		errs <- err
	}
	go fetch()
	<-source.started["search:sofa"]
	go fetch()
	time.Sleep(50 * time.Millisecond) // let the second caller join the flight
	close(source.gates["search:sofa"])

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		result := <-results
		if result.Superseded {
			t.Fatal("identical queries share the flight; neither is superseded")
		}
		if len(result.Publications) != 1 || result.Publications[0].ID != 3 {
			t.Fatalf("result = %+v, want publication 3", result)
		}
	}
	if got := source.callCount("search:sofa"); got != 1 {
		t.Fatalf("source calls = %d, want 1", got)
	}
}

func TestChannelsSupersedeIndependently(t *testing.T) {
	source := newFakeSource()
	source.results["feed:"] = pubs(1)
	source.results["search:sofa"] = pubs(2)
	coordinator := NewCoordinator(source, nil)
	ctx := context.Background()

	if _, err := coordinator.Fetch(ctx, Feed()); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if _, err := coordinator.Fetch(ctx, Search("sofa")); err != nil {
		t.Fatalf("search: %v", err)
	}

	feedLatest := coordinator.Latest(KindFeed)
	if len(feedLatest) != 1 || feedLatest[0].ID != 1 {
		t.Fatalf("feed latest = %+v; search must not displace the feed", feedLatest)
	}
}

// recordingObserver collects observed publication ids.
type recordingObserver struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingObserver) Observe(publicationID, likeCount int64, likedByViewer *bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, publicationID)
}

func TestOnlyAppliedResultsReachTheObserver(t *testing.T) {
	source := newFakeSource()
	source.gates["search:te"] = make(chan struct{})
	source.started["search:te"] = make(chan struct{}, 1)
	source.results["search:te"] = pubs(1)
	source.results["search:tenis"] = pubs(2)
	observer := &recordingObserver{}
	coordinator := NewCoordinator(source, observer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = coordinator.Fetch(context.Background(), Search("te"))
	}()
	<-source.started["search:te"]

	if _, err := coordinator.Fetch(context.Background(), Search("tenis")); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	close(source.gates["search:te"])
	<-done

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.ids) != 1 || observer.ids[0] != 2 {
		t.Fatalf("observed ids = %v, want only the applied result (2)", observer.ids)
	}
}

func TestFetchSurfacesCurrentQueryFailure(t *testing.T) {
	source := newFakeSource()
	source.errs["feed:"] = stderrors.New("backend down")
	coordinator := NewCoordinator(source, nil)

	_, err := coordinator.Fetch(context.Background(), Feed())
	if err == nil {
		t.Fatal("expected the current query's failure to surface")
	}
}

func TestUnknownKindFails(t *testing.T) {
	coordinator := NewCoordinator(newFakeSource(), nil)
	_, err := coordinator.Fetch(context.Background(), Query{Kind: "mystery"})
	if err == nil {
		t.Fatal("expected unknown kind error")
	}
}
