package server

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/realtime"
	"github.com/existflow/dashcraft/server/database"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const tableComments = "comments"

var errCommentNotFound = echo.NewHTTPError(http.StatusNotFound, "comment not found")

// handleListComments returns the thread of one element, oldest first
func (s *Server) handleListComments(c echo.Context) error {
	id := c.Param("id")
	elementID := c.QueryParam("element_id")
	if elementID == "" {
		return errorJSON(c, http.StatusBadRequest, "element_id required")
	}
	if _, err := s.authorize(c, id, nil, ""); err != nil {
		return err
	}
	list, err := s.queries.ListComments(c.Request().Context(), id, elementID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []model.Comment{}
	}
	return c.JSON(http.StatusOK, list)
}

// loadComment fetches a comment the caller is allowed to see
func (s *Server) loadComment(c echo.Context, id string) (model.Comment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Comment{}, errCommentNotFound
	}
	comment, err := s.queries.GetComment(c.Request().Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		return model.Comment{}, errCommentNotFound
	}
	if err != nil {
		return model.Comment{}, err
	}
	return comment, nil
}

func (s *Server) handleGetComment(c echo.Context) error {
	comment, err := s.loadComment(c, c.Param("id"))
	if err != nil {
		return err
	}
	if _, err := s.authorize(c, comment.ProjectID, nil, ""); err != nil {
		if errors.Is(err, errProjectNotFound) {
			return errCommentNotFound
		}
		return err
	}
	return c.JSON(http.StatusOK, comment)
}

func (s *Server) handleCreateComment(c echo.Context) error {
	var req model.NewComment
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return errorJSON(c, http.StatusBadRequest, "comment cannot be empty")
	}
	if utf8.RuneCountInString(req.Content) > model.MaxCommentLength {
		return errorJSON(c, http.StatusBadRequest, "comment must be at most 2000 characters")
	}
	if req.ElementID == "" {
		return errorJSON(c, http.StatusBadRequest, "element_id required")
	}
	if _, err := s.authorize(c, req.ProjectID, canComment, "you cannot comment on this project"); err != nil {
		return err
	}
	req.Mentions = dedupe(req.Mentions)

	comment, err := s.queries.CreateComment(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return err
	}

	s.publish(realtime.EventInsert, tableComments, comment, nil)
	return c.JSON(http.StatusCreated, comment)
}

// handleDeleteComment removes a comment. Authors may delete their own;
// owners and admins may delete any.
func (s *Server) handleDeleteComment(c echo.Context) error {
	comment, err := s.loadComment(c, c.Param("id"))
	if err != nil {
		return err
	}
	perms, err := s.authorize(c, comment.ProjectID, nil, "")
	if err != nil {
		if errors.Is(err, errProjectNotFound) {
			return errCommentNotFound
		}
		return err
	}
	if comment.UserID != currentUser(c) && !perms.CanShare {
		return errorJSON(c, http.StatusForbidden, "you can only delete your own comments")
	}

	ok, err := s.queries.DeleteComment(c.Request().Context(), comment.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errCommentNotFound
	}

	s.publish(realtime.EventDelete, tableComments, nil, comment)
	return c.NoContent(http.StatusNoContent)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
