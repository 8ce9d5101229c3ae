package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/existflow/dashcraft/internal/model"
)

func collaboratorPath(projectID, userID string) string {
	return projectPath(projectID) + "/collaborators/" + url.PathEscape(userID)
}

// ListCollaborators returns the collaborators of a project with profiles
func (c *Client) ListCollaborators(ctx context.Context, projectID string) ([]model.Collaborator, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var out []model.Collaborator
	err := c.do(ctx, http.MethodGet, projectPath(projectID)+"/collaborators", nil, nil, &out)
	return out, err
}

// ListMembers returns the owner and collaborators of a project, the people
// who can be mentioned in its comments
func (c *Client) ListMembers(ctx context.Context, projectID string) ([]model.Profile, error) {
	var out []model.Profile
	err := c.do(ctx, http.MethodGet, projectPath(projectID)+"/members", nil, nil, &out)
	return out, err
}

// InviteCollaborator grants role to the user registered with email
func (c *Client) InviteCollaborator(ctx context.Context, projectID, email string, role model.Role) (model.Collaborator, error) {
	if err := c.requireLogin(); err != nil {
		return model.Collaborator{}, err
	}
	var out model.Collaborator
	err := c.do(ctx, http.MethodPost, projectPath(projectID)+"/collaborators", nil, map[string]string{
		"email": email,
		"role":  string(role),
	}, &out)
	return out, err
}

// UpdateCollaboratorRole changes a collaborator's role
func (c *Client) UpdateCollaboratorRole(ctx context.Context, projectID, userID string, role model.Role) (model.Collaborator, error) {
	if err := c.requireLogin(); err != nil {
		return model.Collaborator{}, err
	}
	var out model.Collaborator
	err := c.do(ctx, http.MethodPatch, collaboratorPath(projectID, userID), nil,
		map[string]string{"role": string(role)}, &out)
	return out, err
}

// RemoveCollaborator revokes a collaborator's access
func (c *Client) RemoveCollaborator(ctx context.Context, projectID, userID string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, collaboratorPath(projectID, userID), nil, nil, nil)
}
