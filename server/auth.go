package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/server/database"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionTTL        = 30 * 24 * time.Hour
	minPasswordLength = 8
	maxDisplayName    = 100
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type profileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

// handleRegister handles user registration
func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "username, email, and password required")
	}
	email, err := model.ValidateEmail(req.Email)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if len(req.Password) < minPasswordLength {
		return errorJSON(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.queries.CreateUser(c.Request().Context(), database.CreateUserParams{
		Username:     req.Username,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  req.Username,
	})
	if errors.Is(err, database.ErrConflict) {
		return errorJSON(c, http.StatusConflict, "username or email already exists")
	}
	if err != nil {
		return err
	}

	logger.Info("User registered", logger.F("username", user.Username))
	return s.openSession(c, user)
}

// handleLogin handles user login
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	user, err := s.queries.GetUserByUsername(c.Request().Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("User logged in", logger.F("username", user.Username))
	return s.openSession(c, user)
}

// handleMe returns current user info
func (s *Server) handleMe(c echo.Context) error {
	user, err := s.queries.GetUser(c.Request().Context(), currentUser(c))
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// handleUpdateMe changes the display fields of the current user
func (s *Server) handleUpdateMe(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return errorJSON(c, http.StatusBadRequest, "display name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxDisplayName {
			return errorJSON(c, http.StatusBadRequest, "display name must be at most 100 characters")
		}
		req.DisplayName = &name
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		req.AvatarURL = &avatar
	}

	user, err := s.queries.UpdateUserProfile(c.Request().Context(), database.UpdateUserProfileParams{
		ID:          currentUser(c),
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// handleLogout ends the session used for the request
func (s *Server) handleLogout(c echo.Context) error {
	token, _ := c.Get(ctxToken).(string)
	if err := s.queries.DeleteSession(c.Request().Context(), token); err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// openSession creates a session for user and writes the auth response
func (s *Server) openSession(c echo.Context, user model.Profile) error {
	token, expiresAt, err := s.createSession(c, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		UserID:    user.ID,
		Username:  user.Username,
	})
}

// createSession creates a new session for a user
func (s *Server) createSession(c echo.Context, userID string) (string, time.Time, error) {
	token, err := randomToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(sessionTTL)
	err = s.queries.CreateSession(c.Request().Context(), userID, token, expiresAt)
	return token, expiresAt, err
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
