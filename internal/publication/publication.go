// Package publication defines the canonical publication shape and the
// queries that fetch publication collections from the backend.
package publication

import (
	"fmt"
	"time"

	"github.com/repasse/repasse-go/internal/platform/errors"
)

// Status is the backend-defined lifecycle state of a publication. The exact
// string set is owned by the backend; unknown values pass through untouched.
type Status string

// Statuses observed in backend payloads.
const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusCompleted Status = "completed"
)

// UserSummary is the denormalized author snapshot embedded in a publication.
// It may go stale relative to the profile cache; no live sync is attempted.
type UserSummary struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// LocationInfo places a publication for display and search.
type LocationInfo struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// Publication is the canonical client-side publication record.
type Publication struct {
	ID          int64        `json:"id"`
	Description string       `json:"description"`
	Images      []string     `json:"images"`
	ContactInfo string       `json:"contactInfo"`
	Status      Status       `json:"status"`
	User        UserSummary  `json:"user"`
	CreatedAt   time.Time    `json:"createdAt"`
	Location    LocationInfo `json:"location"`
	LikeCount   int64        `json:"likeCount"`
	// LikedByViewer is set when the backend reports whether the
	// authenticated user already likes this publication.
	LikedByViewer *bool `json:"likedByViewer,omitempty"`
}

// wirePublication mirrors the raw backend record. The pointer id
// distinguishes a missing field from a zero value.
type wirePublication struct {
	ID            *int64       `json:"id"`
	Description   string       `json:"description"`
	Images        []string     `json:"images"`
	ContactInfo   string       `json:"contactInfo"`
	Status        string       `json:"status"`
	User          UserSummary  `json:"user"`
	CreatedAt     time.Time    `json:"createdAt"`
	Location      LocationInfo `json:"location"`
	LikeCount     int64        `json:"likeCount"`
	LikedByViewer *bool        `json:"likedByViewer"`
}

// normalize validates one raw record into the canonical shape. Image order is
// preserved for carousel display.
func (w wirePublication) normalize() (Publication, error) {
	if w.ID == nil {
		return Publication{}, errors.New(errors.CodeMalformedResponse, "publication record is missing id")
	}
	if w.LikeCount < 0 {
		return Publication{}, errors.WithMetadata(errors.CodeMalformedResponse,
			"publication like count is negative",
			map[string]string{"publication_id": fmt.Sprint(*w.ID)},
		)
	}
	images := w.Images
	if images == nil {
		images = []string{}
	}
	return Publication{
		ID:            *w.ID,
		Description:   w.Description,
		Images:        images,
		ContactInfo:   w.ContactInfo,
		Status:        Status(w.Status),
		User:          w.User,
		CreatedAt:     w.CreatedAt,
		Location:      w.Location,
		LikeCount:     w.LikeCount,
		LikedByViewer: w.LikedByViewer,
	}, nil
}

func normalizeAll(records []wirePublication) ([]Publication, error) {
	out := make([]Publication, 0, len(records))
	for _, record := range records {
		pub, err := record.normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, pub)
	}
	return out, nil
}
