package server

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/server/database"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errTemplateNotFound = echo.NewHTTPError(http.StatusNotFound, "template not found")

// validateTemplate trims the name and checks the canvas decodes
func validateTemplate(rec *model.TemplateRecord) error {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return model.ErrEmptyName
	}
	if utf8.RuneCountInString(rec.Name) > model.MaxTemplateNameLength {
		return errors.New("name must be at most 100 characters")
	}
	t, err := model.DecodeTemplate(*rec)
	if err != nil {
		return err
	}
	normalized, err := model.EncodeTemplate(t)
	if err != nil {
		return err
	}
	rec.Screens = normalized.Screens
	rec.Elements = normalized.Elements
	return nil
}

func (s *Server) handleListTemplates(c echo.Context) error {
	list, err := s.queries.ListTemplates(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	if list == nil {
		list = []model.TemplateRecord{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetTemplate(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return errTemplateNotFound
	}
	rec, err := s.queries.GetTemplate(c.Request().Context(), id, currentUser(c))
	if errors.Is(err, database.ErrNotFound) {
		return errTemplateNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleCreateTemplate(c echo.Context) error {
	var rec model.TemplateRecord
	if err := c.Bind(&rec); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if err := validateTemplate(&rec); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	rec.ID = ""
	rec.UserID = currentUser(c)

	created, err := s.queries.CreateTemplate(c.Request().Context(), rec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTemplate(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return errTemplateNotFound
	}
	var rec model.TemplateRecord
	if err := c.Bind(&rec); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if err := validateTemplate(&rec); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	rec.ID = id
	rec.UserID = currentUser(c)

	updated, err := s.queries.UpdateTemplate(c.Request().Context(), rec)
	if errors.Is(err, database.ErrNotFound) {
		return errTemplateNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteTemplate(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return errTemplateNotFound
	}
	ok, err := s.queries.DeleteTemplate(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return err
	}
	if !ok {
		return errTemplateNotFound
	}
	return c.NoContent(http.StatusNoContent)
}
