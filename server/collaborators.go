package server

import (
	"errors"
	"net/http"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/realtime"
	"github.com/existflow/dashcraft/server/database"
	"github.com/labstack/echo/v4"
)

const tableCollaborators = "project_collaborators"

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleListCollaborators(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.authorize(c, id, nil, ""); err != nil {
		return err
	}
	collaborators, err := s.queries.ListCollaborators(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if collaborators == nil {
		collaborators = []model.Collaborator{}
	}
	return c.JSON(http.StatusOK, collaborators)
}

// handleListMembers returns the owner and every collaborator of a project,
// the people a comment can mention
func (s *Server) handleListMembers(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.authorize(c, id, nil, ""); err != nil {
		return err
	}
	members, err := s.queries.ListMembers(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if members == nil {
		members = []model.Profile{}
	}
	return c.JSON(http.StatusOK, members)
}

func (s *Server) handleInviteCollaborator(c echo.Context) error {
	id := c.Param("id")
	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	email, err := model.ValidateEmail(req.Email)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	perms, facts, err := s.permissionsFor(c, id, currentUser(c))
	if err != nil {
		return err
	}
	if !perms.CanInvite {
		return errorJSON(c, http.StatusForbidden, "you cannot invite collaborators to this project")
	}

	ctx := c.Request().Context()
	user, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "no user with that email")
	}
	if err != nil {
		return err
	}
	if user.ID == facts.OwnerID {
		return errorJSON(c, http.StatusBadRequest, "the owner already has full access")
	}

	collaborator, err := s.queries.AddCollaborator(ctx, database.AddCollaboratorParams{
		ProjectID: id,
		UserID:    user.ID,
		Role:      role,
		InvitedBy: currentUser(c),
	})
	if errors.Is(err, database.ErrConflict) {
		return errorJSON(c, http.StatusConflict, "user is already a collaborator")
	}
	if err != nil {
		return err
	}

	logger.Info("Collaborator invited",
		logger.F("project", id),
		logger.F("user", user.ID),
		logger.F("role", string(role)))
	s.publish(realtime.EventInsert, tableCollaborators, collaborator, nil)
	return c.JSON(http.StatusCreated, collaborator)
}

func (s *Server) handleUpdateCollaborator(c echo.Context) error {
	id := c.Param("id")
	userID := c.Param("userId")
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if _, err := s.authorize(c, id, canInvite, "you cannot manage collaborators of this project"); err != nil {
		return err
	}

	ctx := c.Request().Context()
	old, err := s.queries.GetCollaborator(ctx, id, userID)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "collaborator not found")
	}
	if err != nil {
		return err
	}

	collaborator, err := s.queries.UpdateCollaboratorRole(ctx, id, userID, role)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "collaborator not found")
	}
	if err != nil {
		return err
	}

	s.publish(realtime.EventUpdate, tableCollaborators, collaborator, old)
	return c.JSON(http.StatusOK, collaborator)
}

// handleRemoveCollaborator revokes access. Collaborators may always remove
// themselves.
func (s *Server) handleRemoveCollaborator(c echo.Context) error {
	id := c.Param("id")
	userID := c.Param("userId")

	check := canInvite
	if userID == currentUser(c) {
		check = nil
	}
	if _, err := s.authorize(c, id, check, "you cannot manage collaborators of this project"); err != nil {
		return err
	}

	ctx := c.Request().Context()
	old, err := s.queries.GetCollaborator(ctx, id, userID)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "collaborator not found")
	}
	if err != nil {
		return err
	}

	ok, err := s.queries.RemoveCollaborator(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errorJSON(c, http.StatusNotFound, "collaborator not found")
	}

	logger.Info("Collaborator removed", logger.F("project", id), logger.F("user", userID))
	s.publish(realtime.EventDelete, tableCollaborators, nil, old)
	return c.NoContent(http.StatusNoContent)
}
