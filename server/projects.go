package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/realtime"
	"github.com/existflow/dashcraft/server/database"
	"github.com/labstack/echo/v4"
)

const tableProjects = "projects"

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

type canvasRequest struct {
	Screens  json.RawMessage `json:"screens"`
	Elements json.RawMessage `json:"elements"`
}

type accessResponse struct {
	Facts       access.Facts       `json:"facts"`
	Permissions access.Permissions `json:"permissions"`
}

// projectRef is the row image published when a project is deleted
type projectRef struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

func (s *Server) handleListProjects(c echo.Context) error {
	projects, err := s.queries.ListProjectsForUser(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	name, err := model.ValidateProjectName(req.Name)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	desc, err := model.ValidateDescription(req.Description)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	// New projects start with one active screen
	blank := model.DefaultProject("", currentUser(c), name)
	screens, err := json.Marshal(blank.Screens)
	if err != nil {
		return err
	}
	elements, err := json.Marshal(blank.Elements)
	if err != nil {
		return err
	}

	project, err := s.queries.CreateProject(c.Request().Context(), database.CreateProjectParams{
		OwnerID:     currentUser(c),
		Name:        name,
		Description: desc,
		Screens:     screens,
		Elements:    elements,
	})
	if err != nil {
		return err
	}

	logger.Info("Project created", logger.F("project", project.ID), logger.F("owner", project.OwnerID))
	s.publish(realtime.EventInsert, tableProjects, project, nil)
	return c.JSON(http.StatusCreated, project)
}

func (s *Server) handleGetProject(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.authorize(c, id, nil, ""); err != nil {
		return err
	}
	project, err := s.queries.GetProject(c.Request().Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		return errProjectNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	id := c.Param("id")
	var req updateProjectRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Name == nil && req.Description == nil && req.IsPublic == nil {
		return errorJSON(c, http.StatusBadRequest, "nothing to update")
	}

	perms, err := s.authorize(c, id, nil, "")
	if err != nil {
		return err
	}
	if (req.Name != nil || req.Description != nil) && !perms.CanEdit {
		return errorJSON(c, http.StatusForbidden, "you cannot edit this project")
	}
	if req.IsPublic != nil && !perms.CanShare {
		return errorJSON(c, http.StatusForbidden, "you cannot change sharing of this project")
	}

	if req.Name != nil {
		name, err := model.ValidateProjectName(*req.Name)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		req.Name = &name
	}
	if req.Description != nil {
		desc, err := model.ValidateDescription(*req.Description)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		req.Description = &desc
	}

	project, err := s.queries.UpdateProjectMeta(c.Request().Context(), database.UpdateProjectMetaParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if errors.Is(err, database.ErrNotFound) {
		return errProjectNotFound
	}
	if err != nil {
		return err
	}

	s.publish(realtime.EventUpdate, tableProjects, project, nil)
	return c.JSON(http.StatusOK, project)
}

// handleSaveCanvas overwrites the screens and elements of a project
func (s *Server) handleSaveCanvas(c echo.Context) error {
	id := c.Param("id")
	var req canvasRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if _, err := s.authorize(c, id, canEdit, "you cannot edit this project"); err != nil {
		return err
	}

	screens, elements, err := normalizeCanvas(req)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	project, err := s.queries.UpdateProjectCanvas(c.Request().Context(), id, screens, elements)
	if errors.Is(err, database.ErrNotFound) {
		return errProjectNotFound
	}
	if err != nil {
		return err
	}

	logger.Debug("Canvas saved",
		logger.F("project", id),
		logger.F("screens", len(project.Screens)),
		logger.F("elements", len(project.Elements)))
	s.publish(realtime.EventUpdate, tableProjects, project, nil)
	return c.NoContent(http.StatusNoContent)
}

// normalizeCanvas checks that both lists decode and re-encodes them so only
// known fields are stored. Missing lists are stored as empty.
func normalizeCanvas(req canvasRequest) (json.RawMessage, json.RawMessage, error) {
	screens := []model.Screen{}
	if len(req.Screens) > 0 && string(req.Screens) != "null" {
		if err := json.Unmarshal(req.Screens, &screens); err != nil {
			return nil, nil, errors.New("screens must be a list of screens")
		}
	}
	elements := []model.Element{}
	if len(req.Elements) > 0 && string(req.Elements) != "null" {
		if err := json.Unmarshal(req.Elements, &elements); err != nil {
			return nil, nil, errors.New("elements must be a list of elements")
		}
	}
	for i := range elements {
		if elements[i].Properties == nil {
			elements[i].Properties = map[string]any{}
		}
	}

	screensJSON, err := json.Marshal(screens)
	if err != nil {
		return nil, nil, err
	}
	elementsJSON, err := json.Marshal(elements)
	if err != nil {
		return nil, nil, err
	}
	return screensJSON, elementsJSON, nil
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.authorize(c, id, canDelete, "only the owner can delete a project"); err != nil {
		return err
	}

	ok, err := s.queries.DeleteProject(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return errProjectNotFound
	}

	logger.Info("Project deleted", logger.F("project", id))
	s.publish(realtime.EventDelete, tableProjects, nil, projectRef{ID: id, OwnerID: currentUser(c)})
	return c.NoContent(http.StatusNoContent)
}

// handleAccess returns the caller's facts and permissions on a project
func (s *Server) handleAccess(c echo.Context) error {
	perms, facts, err := s.permissionsFor(c, c.Param("id"), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessResponse{Facts: facts, Permissions: perms})
}
