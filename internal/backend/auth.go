package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated state returned by the auth service. It is
// persisted locally so restarts stay signed in.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token has passed (or is within a
// minute of) its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt.Add(-time.Minute))
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn performs a password-grant sign-in and installs the session on the
// client.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.tokenRequest(ctx, "/auth/v1/token", url.Values{"grant_type": []string{"password"}}, map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignUp registers a new account. Depending on backend settings the
// returned session may be nil until the email is confirmed.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.tokenRequest(ctx, "/auth/v1/signup", nil, map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshSession exchanges the refresh token for a new access token.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return nil, fmt.Errorf("no session to refresh")
	}

	return c.tokenRequest(ctx, "/auth/v1/token", url.Values{"grant_type": []string{"refresh_token"}}, map[string]string{
		"refresh_token": session.RefreshToken,
	})
}

// SignOut revokes the session server-side and clears it locally.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil, "application/json", nil)

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("signing out: %w", err)
	}

	return nil
}

// SetSession installs a previously persisted session.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// CurrentSession returns the active session, or nil when signed out.
func (c *Client) CurrentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.session
}

func (c *Client) tokenRequest(ctx context.Context, path string, query url.Values, payload map[string]string) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling auth payload: %w", err)
	}

	var tr tokenResponse
	if err := c.do(ctx, http.MethodPost, path, query, nil, bytes.NewReader(body), "application/json", &tr); err != nil {
		return nil, err
	}

	if tr.AccessToken == "" {
		return nil, nil
	}

	session := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
		ExpiresAt:    tokenExpiry(tr.AccessToken),
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return session, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend is the verifier, the client only needs to know when to refresh.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Now().Add(time.Hour)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(time.Hour)
	}

	return exp.Time
}
