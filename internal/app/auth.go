package app

import (
	"context"
	"strings"

	"github.com/repasse/repasse-go/internal/platform/errors"
	"github.com/repasse/repasse-go/internal/session"
)

// authResponse is the backend's answer to login and register.
type authResponse struct {
	UserID *int64 `json:"userId"`
	Token  string `json:"token"`
}

func (r authResponse) session() (session.Session, error) {
	if r.UserID == nil || strings.TrimSpace(r.Token) == "" {
		return session.Session{}, errors.New(errors.CodeMalformedResponse, "auth response is missing userId or token")
	}
	return session.Session{UserID: *r.UserID, Token: r.Token}, nil
}

// Login authenticates against the backend and installs the session. Any
// engagement state from a previous session is dropped.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.api.PostJSON(ctx, "/auth/login", body, &resp); err != nil {
		return session.Session{}, err
	}
	sess, err := resp.session()
	if err != nil {
		return session.Session{}, err
	}

	c.engagement.Reset()
	if err := c.sessions.Set(ctx, sess); err != nil {
		// The in-memory session is installed; the durable write failure is
		// reported so the view can warn about a non-sticky login.
		return sess, err
	}
	return sess, nil
}

// Register creates an account (multipart, with an optional profile picture)
// and installs the returned session.
func (c *Client) Register(ctx context.Context, input RegisterInput) (session.Session, error) {
	fields := map[string]string{
		"name":     input.Name,
		"email":    input.Email,
		"password": input.Password,
	}
	fileName := input.PictureName
	if fileName == "" {
		fileName = "profile.jpg"
	}

	var resp authResponse
	if err := c.api.PostMultipart(ctx, "/auth/register", fields, "profilePicture", fileName, input.Picture, &resp); err != nil {
		return session.Session{}, err
	}
	sess, err := resp.session()
	if err != nil {
		return session.Session{}, err
	}

	c.engagement.Reset()
	if err := c.sessions.Set(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}
