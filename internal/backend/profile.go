package backend

import (
	"context"
	"fmt"
	"time"
)

// Profile is the user's profile row, one per account.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	session := c.CurrentSession()
	if session == nil {
		return nil, fmt.Errorf("getting profile: no active session")
	}

	var p Profile

	err := c.From("profiles").Eq("id", session.UserID).Single(ctx, &p)
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	return &p, nil
}

// ProfilePatch holds the fields a user may change on their own profile.
type ProfilePatch struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// UpdateProfile patches the signed-in user's profile and returns the
// updated row.
func (c *Client) UpdateProfile(ctx context.Context, patch ProfilePatch) (*Profile, error) {
	session := c.CurrentSession()
	if session == nil {
		return nil, fmt.Errorf("updating profile: no active session")
	}

	var updated []Profile

	err := c.From("profiles").Eq("id", session.UserID).Update(ctx, patch, &updated)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	if len(updated) == 0 {
		return nil, fmt.Errorf("updating profile: no row updated")
	}

	return &updated[0], nil
}
