package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleListNotifications(c echo.Context) error {
	unread := c.QueryParam("unread") == "true"
	list, err := s.queries.ListNotifications(c.Request().Context(), currentUser(c), unread)
	if err != nil {
		return err
	}
	if list == nil {
		list = []model.Notification{}
	}
	return c.JSON(http.StatusOK, list)
}

// handleCreateNotification records a notification from the caller to
// another member of a project
func (s *Server) handleCreateNotification(c echo.Context) error {
	var req model.Notification
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Kind == "" {
		req.Kind = model.NotificationMention
	}
	if req.Kind != model.NotificationMention {
		return errorJSON(c, http.StatusBadRequest, "unknown notification kind")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return errorJSON(c, http.StatusBadRequest, "message required")
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid recipient")
	}
	if _, err := s.authorize(c, req.ProjectID, canComment, "you cannot comment on this project"); err != nil {
		return err
	}

	// The recipient must be able to open what they are pointed at
	if _, _, err := s.permissionsFor(c, req.ProjectID, req.UserID); err != nil {
		if errors.Is(err, errProjectNotFound) {
			return errorJSON(c, http.StatusForbidden, "recipient cannot view this project")
		}
		return err
	}

	req.ID = ""
	req.ActorID = currentUser(c)
	req.Read = false

	created, err := s.queries.CreateNotification(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleMarkNotificationRead(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return errorJSON(c, http.StatusNotFound, "notification not found")
	}
	ok, err := s.queries.MarkNotificationRead(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return err
	}
	if !ok {
		return errorJSON(c, http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}
