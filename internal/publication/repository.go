package publication

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Getter is the slice of the transport client the repository consumes.
type Getter interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Repository fetches publication collections. It is stateless: retry policy
// and response ordering belong to the query coordinator.
type Repository struct {
	api Getter
}

// NewRepository creates a repository over the given transport.
func NewRepository(api Getter) *Repository {
	return &Repository{api: api}
}

// Feed fetches the reverse-chronological, unfiltered publication feed.
func (r *Repository) Feed(ctx context.Context) ([]Publication, error) {
	return r.fetch(ctx, "/publications", nil)
}

// Search fetches publications matching the query text against description and
// location. An empty or whitespace-only query returns an empty sequence
// without touching the network: search is never "browse everything".
func (r *Repository) Search(ctx context.Context, query string) ([]Publication, error) {
	if strings.TrimSpace(query) == "" {
		return []Publication{}, nil
	}
	return r.fetch(ctx, "/publications", url.Values{"search": []string{query}})
}

// ByAuthor fetches publications authored by the given user, any status.
func (r *Repository) ByAuthor(ctx context.Context, userID int64) ([]Publication, error) {
	return r.fetch(ctx, fmt.Sprintf("/publications/user/%d", userID), nil)
}

// ByLiker fetches publications the given user has liked.
func (r *Repository) ByLiker(ctx context.Context, userID int64) ([]Publication, error) {
	return r.fetch(ctx, fmt.Sprintf("/publications/liked/%d", userID), nil)
}

func (r *Repository) fetch(ctx context.Context, path string, query url.Values) ([]Publication, error) {
	if r == nil || r.api == nil {
		return nil, fmt.Errorf("repository is not configured")
	}
	var records []wirePublication
	if err := r.api.GetJSON(ctx, path, query, &records); err != nil {
		return nil, err
	}
	return normalizeAll(records)
}
