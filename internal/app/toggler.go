package app

import (
	"context"
	"fmt"

	"github.com/repasse/repasse-go/internal/engagement"
	"github.com/repasse/repasse-go/internal/session"
	"github.com/repasse/repasse-go/internal/transport"
)

// likeToggler performs the network half of a like toggle for the
// engagement manager.
type likeToggler struct {
	api      *transport.Client
	sessions *session.Store
}

// ToggleLike flips the like relationship between the session user and the
// publication. The backend may omit the post-toggle count; the engagement
// manager then keeps the optimistic one.
func (t *likeToggler) ToggleLike(ctx context.Context, publicationID int64) (engagement.Result, error) {
	var resp struct {
		Liked     bool   `json:"liked"`
		LikeCount *int64 `json:"likeCount"`
	}
	body := map[string]int64{"userId": t.sessions.UserID()}
	path := fmt.Sprintf("/publications/%d/like", publicationID)
	if err := t.api.PostJSON(ctx, path, body, &resp); err != nil {
		return engagement.Result{}, err
	}
	return engagement.Result{Liked: resp.Liked, LikeCount: resp.LikeCount}, nil
}
