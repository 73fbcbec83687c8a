package client

import (
	"context"
	"fmt"
	"net/http"
)

// Profile is the signed-in user's account as the backend reports it.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileUpdate carries the edit-profile form. An empty Password leaves the
// password unchanged.
type ProfileUpdate struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

func (u ProfileUpdate) Validate() error {
	if u.Password != u.ConfirmPassword {
		return &ValidationError{Field: "confirmPassword", Message: MsgPasswordMismatch}
	}
	return nil
}

type profileUpdatePayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type ProfileClient struct {
	c *Client
}

func NewProfileClient(c *Client) *ProfileClient {
	return &ProfileClient{c: c}
}

func (p *ProfileClient) Get(ctx context.Context) (*Profile, error) {
	var profile Profile
	req := Request{Method: http.MethodGet, Path: "/auth/api/user/profile"}
	if err := p.c.call(ctx, req, "Failed to load user profile. Please try again later.", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *ProfileClient) Update(ctx context.Context, userID int64, update ProfileUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	req, err := NewJSONRequest(http.MethodPut, fmt.Sprintf("/auth/api/update/%d", userID), profileUpdatePayload{
		Username: update.Username,
		Email:    update.Email,
		Password: update.Password,
	})
	if err != nil {
		return err
	}

	return p.c.call(ctx, req, "Failed to update profile. Please try again.", nil)
}
