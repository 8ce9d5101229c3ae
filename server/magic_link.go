package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/server/database"
	"github.com/labstack/echo/v4"
)

const magicLinkTTL = 15 * time.Minute

const magicLinkMessage = "if email exists, a magic link will be sent"

type magicLinkRequest struct {
	Email string `json:"email"`
}

type magicLinkResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// handleMagicLink creates a magic link for passwordless login
func (s *Server) handleMagicLink(c echo.Context) error {
	var req magicLinkRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	if req.Email == "" {
		return errorJSON(c, http.StatusBadRequest, "email required")
	}
	email, err := model.ValidateEmail(req.Email)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	// Unknown addresses get the same answer as known ones
	if _, err := s.queries.GetUserByEmail(ctx, email); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		return c.JSON(http.StatusOK, magicLinkResponse{Message: magicLinkMessage})
	}

	token, err := randomToken()
	if err != nil {
		return err
	}
	if err := s.queries.CreateMagicLink(ctx, email, token, time.Now().Add(magicLinkTTL)); err != nil {
		return err
	}

	logger.Info("Magic link created", logger.F("email", email))

	resp := magicLinkResponse{Message: magicLinkMessage}
	if s.exposeMagicTokens {
		resp.Token = token
	}
	return c.JSON(http.StatusOK, resp)
}

// handleMagicLinkVerify verifies a magic link and creates a session
func (s *Server) handleMagicLinkVerify(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return errorJSON(c, http.StatusBadRequest, "token required")
	}

	ctx := c.Request().Context()
	link, err := s.queries.GetMagicLink(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusBadRequest, "invalid token")
	}
	if err != nil {
		return err
	}
	if link.Used {
		return errorJSON(c, http.StatusBadRequest, "token already used")
	}
	if link.IsExpired() {
		return errorJSON(c, http.StatusBadRequest, "token expired")
	}

	// Two concurrent verifications race here; only one marks the link
	ok, err := s.queries.UseMagicLink(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "token already used")
	}

	user, err := s.queries.GetUserByEmail(ctx, link.Email)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return err
	}

	logger.Info("Magic link login", logger.F("email", link.Email))
	return s.openSession(c, user)
}
