// Package server is the dashcraft backend: accounts, projects, sharing,
// comments, templates, notifications and the realtime change feed.
package server

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/realtime"
	"github.com/existflow/dashcraft/server/database"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Server is the dashcraft API server
type Server struct {
	db      *sql.DB
	queries database.Querier
	echo    *echo.Echo
	hub     *realtime.Hub

	jwtSecret         []byte
	realtimeSettings  realtime.Settings
	bcryptCost        int
	exposeMagicTokens bool
}

// Option configures a Server
type Option func(*Server)

// WithJWTSecret sets the key realtime tickets are signed with
func WithJWTSecret(secret []byte) Option {
	return func(s *Server) { s.jwtSecret = secret }
}

// WithRealtimeSettings overrides the websocket timeouts
func WithRealtimeSettings(settings realtime.Settings) Option {
	return func(s *Server) { s.realtimeSettings = settings }
}

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.bcryptCost = cost }
}

// WithMagicLinkTokens returns magic link tokens in the API response. Only
// for development servers that cannot send mail.
func WithMagicLinkTokens(expose bool) Option {
	return func(s *Server) { s.exposeMagicTokens = expose }
}

// New connects to Postgres, runs migrations and builds the router
func New(dbURL string, opts ...Option) (*Server, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := newServer(database.New(db), opts...)
	s.db = db

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// NewWithQuerier builds a server over an existing query implementation.
// No migrations are run.
func NewWithQuerier(q database.Querier, opts ...Option) *Server {
	return newServer(q, opts...)
}

func newServer(q database.Querier, opts ...Option) *Server {
	s := &Server{
		queries:          q,
		hub:              realtime.NewHub(),
		realtimeSettings: realtime.DefaultSettings(),
		bcryptCost:       bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.jwtSecret) == 0 {
		s.jwtSecret = make([]byte, 32)
		if _, err := rand.Read(s.jwtSecret); err != nil {
			panic(fmt.Sprintf("failed to generate jwt secret: %v", err))
		}
		logger.Warn("No JWT secret configured, realtime tickets will not survive a restart")
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	// API v1
	api := e.Group("/api/v1")

	// Auth endpoints (public)
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)
	api.POST("/magic-link", s.handleMagicLink)
	api.GET("/magic-link/:token", s.handleMagicLinkVerify)
	api.GET("/realtime", s.handleRealtime)

	// Readable anonymously when the project is public
	public := api.Group("")
	public.Use(s.optionalAuthMiddleware)
	public.GET("/projects/:id", s.handleGetProject)
	public.GET("/projects/:id/access", s.handleAccess)
	public.GET("/projects/:id/members", s.handleListMembers)
	public.GET("/projects/:id/comments", s.handleListComments)
	public.GET("/comments/:id", s.handleGetComment)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/me", s.handleMe)
	protected.PATCH("/me", s.handleUpdateMe)
	protected.POST("/logout", s.handleLogout)

	protected.GET("/projects", s.handleListProjects)
	protected.POST("/projects", s.handleCreateProject)
	protected.PATCH("/projects/:id", s.handleUpdateProject)
	protected.PUT("/projects/:id/canvas", s.handleSaveCanvas)
	protected.DELETE("/projects/:id", s.handleDeleteProject)

	protected.GET("/projects/:id/collaborators", s.handleListCollaborators)
	protected.POST("/projects/:id/collaborators", s.handleInviteCollaborator)
	protected.PATCH("/projects/:id/collaborators/:userId", s.handleUpdateCollaborator)
	protected.DELETE("/projects/:id/collaborators/:userId", s.handleRemoveCollaborator)

	protected.POST("/comments", s.handleCreateComment)
	protected.DELETE("/comments/:id", s.handleDeleteComment)

	protected.GET("/templates", s.handleListTemplates)
	protected.POST("/templates", s.handleCreateTemplate)
	protected.GET("/templates/:id", s.handleGetTemplate)
	protected.PUT("/templates/:id", s.handleUpdateTemplate)
	protected.DELETE("/templates/:id", s.handleDeleteTemplate)

	protected.GET("/notifications", s.handleListNotifications)
	protected.POST("/notifications", s.handleCreateNotification)
	protected.POST("/notifications/:id/read", s.handleMarkNotificationRead)

	protected.GET("/realtime/ticket", s.handleRealtimeTicket)

	s.echo = e
}

// Close closes the database connection
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Hub returns the realtime hub writes are published to
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// httpErrorHandler renders every error as {"error": message}
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "internal error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		logger.Error("Request failed",
			logger.F("method", c.Request().Method),
			logger.F("uri", c.Request().RequestURI),
			logger.F("error", err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = errorJSON(c, status, message)
	}
	if err != nil {
		logger.Error("Failed to write error response", logger.F("error", err))
	}
}

// publish sends a row change to realtime subscribers
func (s *Server) publish(t realtime.EventType, table string, newRow, oldRow any) {
	e, err := realtime.NewEvent(t, table, newRow, oldRow)
	if err != nil {
		logger.Warn("Failed to build change event", logger.F("table", table), logger.F("error", err))
		return
	}
	n := s.hub.Publish(e)
	logger.Debug("Change published",
		logger.F("table", table),
		logger.F("event", string(t)),
		logger.F("subscribers", n),
		logger.F("at", time.Now().UTC().Format(time.RFC3339)))
}
