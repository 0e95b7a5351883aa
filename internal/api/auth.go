package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Login exchanges credentials for tokens and stores them. The profile is
// fetched afterwards; a failure there is logged and yields a nil profile.
func (c *Client) Login(ctx context.Context, username, password string) (*Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("api: username and password are required")
	}
	var toks Tokens
	body := map[string]string{"username": username, "password": password}
	if err := c.request(ctx, http.MethodPost, "/auth/login/", body, &toks, false); err != nil {
		return nil, err
	}
	if toks.Access == "" {
		return nil, fmt.Errorf("api: login returned no access token")
	}
	if err := c.tokens.Save(toks); err != nil {
		return nil, fmt.Errorf("api: save tokens: %w", err)
	}

	profile, err := c.Profile(ctx)
	if err != nil {
		c.logger.Warn("fetch profile after login", "err", err)
		return nil, nil
	}
	return profile, nil
}

// Register creates an account. Returned tokens are stored.
func (c *Client) Register(ctx context.Context, r Registration) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.request(ctx, http.MethodPost, "/auth/register/", r, &out, false); err != nil {
		return nil, err
	}
	if out.Tokens.Access != "" {
		if err := c.tokens.Save(out.Tokens); err != nil {
			return nil, fmt.Errorf("api: save tokens: %w", err)
		}
	}
	return &out, nil
}

// Logout forgets the stored tokens.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

// Profile returns the current user's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	if !c.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/auth/profile/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile writes the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (*Profile, error) {
	if !c.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	var p Profile
	if err := c.do(ctx, http.MethodPut, "/auth/profile/", u, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
