package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/server/database"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errProjectNotFound = echo.NewHTTPError(http.StatusNotFound, "project not found")

// permissionsFor resolves userID's permissions on a project. Projects the
// user cannot view are reported as not found.
func (s *Server) permissionsFor(c echo.Context, projectID, userID string) (access.Permissions, access.Facts, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return access.Permissions{}, access.Facts{}, errProjectNotFound
	}
	facts, err := s.queries.GetAccessFacts(c.Request().Context(), projectID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return access.Permissions{}, access.Facts{}, errProjectNotFound
	}
	if err != nil {
		return access.Permissions{}, access.Facts{}, fmt.Errorf("failed to load access facts: %w", err)
	}
	perms := access.Evaluate(userID, facts)
	if !perms.CanView {
		return perms, facts, errProjectNotFound
	}
	return perms, facts, nil
}

// authorize loads the caller's permissions on projectID and checks them
// with allowed. A nil check only requires view access.
func (s *Server) authorize(c echo.Context, projectID string, allowed func(access.Permissions) bool, denied string) (access.Permissions, error) {
	perms, _, err := s.permissionsFor(c, projectID, currentUser(c))
	if err != nil {
		return perms, err
	}
	if allowed != nil && !allowed(perms) {
		return perms, echo.NewHTTPError(http.StatusForbidden, denied)
	}
	return perms, nil
}

func canEdit(p access.Permissions) bool    { return p.CanEdit }
func canShare(p access.Permissions) bool   { return p.CanShare }
func canInvite(p access.Permissions) bool  { return p.CanInvite }
func canComment(p access.Permissions) bool { return p.CanComment }
func canDelete(p access.Permissions) bool  { return p.CanDelete }
