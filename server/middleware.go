package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/server/database"
	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxToken  = "token"
)

// requestLogger logs every request and its outcome
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		logger.Debug("HTTP Request",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("remote", req.RemoteAddr))

		err := next(c)

		res := c.Response()
		logger.Info("HTTP Response",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", time.Since(start).String()))

		return err
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth || token == "" {
		return "", false
	}
	return token, true
}

// sessionUser validates a session token and returns its user
func (s *Server) sessionUser(c echo.Context, token string) (string, error) {
	session, err := s.queries.GetSession(c.Request().Context(), token)
	if errors.Is(err, database.ErrNotFound) {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	if err != nil {
		return "", err
	}
	if session.IsExpired() {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token expired")
	}
	return session.UserID, nil
}

// authMiddleware checks for valid session token
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") == "" {
			return errorJSON(c, http.StatusUnauthorized, "authorization required")
		}
		token, ok := bearerToken(c)
		if !ok {
			return errorJSON(c, http.StatusUnauthorized, "invalid authorization format")
		}

		userID, err := s.sessionUser(c, token)
		if err != nil {
			return err
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxToken, token)
		return next(c)
	}
}

// optionalAuthMiddleware identifies the caller when a token is sent and
// lets anonymous requests through. A bad token is still rejected.
func (s *Server) optionalAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") == "" {
			return next(c)
		}
		token, ok := bearerToken(c)
		if !ok {
			return errorJSON(c, http.StatusUnauthorized, "invalid authorization format")
		}
		userID, err := s.sessionUser(c, token)
		if err != nil {
			return err
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxToken, token)
		return next(c)
	}
}

// currentUser returns the authenticated user, or "" for anonymous callers
func currentUser(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}
