package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/model"
)

// ProjectUpdate changes project metadata. Nil fields are left as they are.
type ProjectUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// AccessInfo is the caller's standing on a project
type AccessInfo struct {
	Facts       access.Facts       `json:"facts"`
	Permissions access.Permissions `json:"permissions"`
}

func projectPath(id string) string {
	return "/projects/" + url.PathEscape(id)
}

// ListProjects returns the projects the user owns or collaborates on
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var projects []model.Project
	err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &projects)
	return projects, err
}

// CreateProject creates a project owned by the signed-in user
func (c *Client) CreateProject(ctx context.Context, name, description string) (model.Project, error) {
	if err := c.requireLogin(); err != nil {
		return model.Project{}, err
	}
	var p model.Project
	err := c.do(ctx, http.MethodPost, "/projects", nil, map[string]string{
		"name":        name,
		"description": description,
	}, &p)
	return p, err
}

// GetProject loads a project. Public projects can be read anonymously.
func (c *Client) GetProject(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	err := c.do(ctx, http.MethodGet, projectPath(id), nil, nil, &p)
	return p, err
}

// UpdateProject changes project metadata
func (c *Client) UpdateProject(ctx context.Context, id string, update ProjectUpdate) (model.Project, error) {
	if err := c.requireLogin(); err != nil {
		return model.Project{}, err
	}
	var p model.Project
	err := c.do(ctx, http.MethodPatch, projectPath(id), nil, update, &p)
	return p, err
}

// SetPublic toggles anonymous read access
func (c *Client) SetPublic(ctx context.Context, id string, public bool) (model.Project, error) {
	return c.UpdateProject(ctx, id, ProjectUpdate{IsPublic: &public})
}

// SaveCanvas overwrites the screens and elements of a project
func (c *Client) SaveCanvas(ctx context.Context, projectID string, screens []model.Screen, elements []model.Element) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	if screens == nil {
		screens = []model.Screen{}
	}
	if elements == nil {
		elements = []model.Element{}
	}
	return c.do(ctx, http.MethodPut, projectPath(projectID)+"/canvas", nil, map[string]any{
		"screens":  screens,
		"elements": elements,
	}, nil)
}

// DeleteProject deletes a project. Only the owner may do this.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, projectPath(id), nil, nil, nil)
}

// Access returns the caller's facts and permissions on a project
func (c *Client) Access(ctx context.Context, projectID string) (AccessInfo, error) {
	var info AccessInfo
	err := c.do(ctx, http.MethodGet, projectPath(projectID)+"/access", nil, nil, &info)
	return info, err
}

// AccessFacts loads the facts role resolution needs. A project the caller
// cannot see yields empty facts, which resolve to no access.
func (c *Client) AccessFacts(ctx context.Context, projectID string) (access.Facts, error) {
	info, err := c.Access(ctx, projectID)
	if errors.Is(err, ErrNotFound) {
		return access.Facts{}, nil
	}
	if err != nil {
		return access.Facts{}, err
	}
	return info.Facts, nil
}
