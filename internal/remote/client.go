// Package remote is the HTTP and websocket client of the dashcraft server.
// It keeps the login session in a JSON file and implements the data
// interfaces the editor core depends on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
)

// DefaultServerURL is used until a server is configured
const DefaultServerURL = "http://localhost:8080"

// Session is the persisted login state
type Session struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Client talks to the dashcraft server
type Client struct {
	mu          sync.RWMutex
	session     *Session
	sessionPath string
	httpClient  *http.Client
}

// DefaultSessionPath returns ~/.dashcraft/session.json
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dashcraft", "session.json"), nil
}

// NewClient creates a client using the session stored at the default path
func NewClient() (*Client, error) {
	path, err := DefaultSessionPath()
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(nil, path), nil
}

// NewClientWithConfig creates a client storing its session at path. A nil
// session is loaded from path, falling back to an empty one.
func NewClientWithConfig(session *Session, path string) *Client {
	c := &Client{
		session:     session,
		sessionPath: path,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	if c.session == nil {
		c.loadSession()
	}
	if c.session.ServerURL == "" {
		c.session.ServerURL = DefaultServerURL
	}
	return c
}

func (c *Client) loadSession() {
	c.session = &Session{}
	data, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, c.session); err != nil {
		logger.Warn("Ignoring unreadable session file", logger.F("path", c.sessionPath), logger.F("error", err))
		c.session = &Session{}
	}
}

func (c *Client) saveSessionLocked() error {
	if c.sessionPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.sessionPath, data, 0600)
}

// SetServer sets the server URL and persists it
func (c *Client) SetServer(serverURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.ServerURL = strings.TrimRight(serverURL, "/")
	return c.saveSessionLocked()
}

// ServerURL returns the configured server
func (c *Client) ServerURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.ServerURL
}

// IsLoggedIn reports whether a session token is stored
func (c *Client) IsLoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Token != ""
}

// UserID returns the signed-in user, or "" when anonymous
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.UserID
}

// Username returns the signed-in username
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Username
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Token
}

func (c *Client) requireLogin() error {
	if !c.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out when it is
// non-nil. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.ServerURL() + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Request failed", logger.F("method", method), logger.F("path", path), logger.F("error", err))
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug("Request completed",
		logger.F("method", method),
		logger.F("path", path),
		logger.F("status", resp.StatusCode),
		logger.F("duration", time.Since(start).String()))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
