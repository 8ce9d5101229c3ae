package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
)

// AuthResponse is returned by every endpoint that opens a session
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

// MagicLinkResponse is returned when a magic link is requested. Token is
// only filled in by development servers.
type MagicLinkResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// ProfileUpdate changes the display fields of the signed-in user
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

func (c *Client) storeAuth(resp AuthResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Token = resp.Token
	c.session.UserID = resp.UserID
	c.session.Username = resp.Username
	c.session.ExpiresAt = resp.ExpiresAt
	return c.saveSessionLocked()
}

// Register creates an account and signs in
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/register", nil, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	logger.Info("Registered", logger.F("username", username))
	return c.storeAuth(resp)
}

// Login signs in with a username and password
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/login", nil, map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	logger.Info("Logged in", logger.F("username", resp.Username))
	return c.storeAuth(resp)
}

// RequestMagicLink asks the server to send a sign-in link to email
func (c *Client) RequestMagicLink(ctx context.Context, email string) (MagicLinkResponse, error) {
	var resp MagicLinkResponse
	err := c.do(ctx, http.MethodPost, "/magic-link", nil, map[string]string{"email": email}, &resp)
	return resp, err
}

// VerifyMagicLink exchanges a magic link token for a session
func (c *Client) VerifyMagicLink(ctx context.Context, token string) error {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodGet, "/magic-link/"+url.PathEscape(token), nil, nil, &resp); err != nil {
		return err
	}
	return c.storeAuth(resp)
}

// Logout ends the session on the server and forgets it locally
func (c *Client) Logout(ctx context.Context) error {
	if c.IsLoggedIn() {
		if err := c.do(ctx, http.MethodPost, "/logout", nil, nil, nil); err != nil {
			logger.Warn("Server logout failed", logger.F("error", err))
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Token = ""
	c.session.UserID = ""
	c.session.Username = ""
	c.session.ExpiresAt = ""
	return c.saveSessionLocked()
}

// Me returns the profile of the signed-in user
func (c *Client) Me(ctx context.Context) (model.Profile, error) {
	if err := c.requireLogin(); err != nil {
		return model.Profile{}, err
	}
	var p model.Profile
	err := c.do(ctx, http.MethodGet, "/me", nil, nil, &p)
	return p, err
}

// UpdateProfile changes the signed-in user's display fields
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (model.Profile, error) {
	if err := c.requireLogin(); err != nil {
		return model.Profile{}, err
	}
	var p model.Profile
	err := c.do(ctx, http.MethodPatch, "/me", nil, update, &p)
	return p, err
}
