package database

import (
	"context"
	"database/sql"

	"github.com/existflow/dashcraft/internal/model"
)

const collaboratorColumns = `
c.project_id, c.user_id, c.role, COALESCE(c.invited_by::text, ''), c.created_at,
u.id, u.username, u.email, u.display_name, u.avatar_url, u.created_at`

func scanCollaborator(row rowScanner) (model.Collaborator, error) {
	var (
		c    model.Collaborator
		p    model.Profile
		role string
	)
	err := row.Scan(&c.ProjectID, &c.UserID, &role, &c.InvitedBy, &c.CreatedAt,
		&p.ID, &p.Username, &p.Email, &p.DisplayName, &p.AvatarURL, &p.CreatedAt)
	if err != nil {
		return model.Collaborator{}, translate(err)
	}
	c.Role = model.Role(role)
	c.Profile = &p
	return c, nil
}

const listCollaborators = `
SELECT ` + collaboratorColumns + `
FROM project_collaborators c
JOIN users u ON u.id = c.user_id
WHERE c.project_id = $1
ORDER BY c.created_at ASC`

func (q *Queries) ListCollaborators(ctx context.Context, projectID string) ([]model.Collaborator, error) {
	rows, err := q.db.QueryContext(ctx, listCollaborators, projectID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.Collaborator{}
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const getCollaborator = `
SELECT ` + collaboratorColumns + `
FROM project_collaborators c
JOIN users u ON u.id = c.user_id
WHERE c.project_id = $1 AND c.user_id = $2`

func (q *Queries) GetCollaborator(ctx context.Context, projectID, userID string) (model.Collaborator, error) {
	return scanCollaborator(q.db.QueryRowContext(ctx, getCollaborator, projectID, userID))
}

type AddCollaboratorParams struct {
	ProjectID string
	UserID    string
	Role      model.Role
	InvitedBy string
}

func (q *Queries) AddCollaborator(ctx context.Context, arg AddCollaboratorParams) (model.Collaborator, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO project_collaborators (project_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid)`,
		arg.ProjectID, arg.UserID, string(arg.Role), arg.InvitedBy)
	if err != nil {
		return model.Collaborator{}, translate(err)
	}
	return q.GetCollaborator(ctx, arg.ProjectID, arg.UserID)
}

func (q *Queries) UpdateCollaboratorRole(ctx context.Context, projectID, userID string, role model.Role) (model.Collaborator, error) {
	ok, err := affected(q.db.ExecContext(ctx, `
		UPDATE project_collaborators SET role = $3
		WHERE project_id = $1 AND user_id = $2`,
		projectID, userID, string(role)))
	if err != nil {
		return model.Collaborator{}, err
	}
	if !ok {
		return model.Collaborator{}, ErrNotFound
	}
	return q.GetCollaborator(ctx, projectID, userID)
}

func (q *Queries) RemoveCollaborator(ctx context.Context, projectID, userID string) (bool, error) {
	return affected(q.db.ExecContext(ctx,
		`DELETE FROM project_collaborators WHERE project_id = $1 AND user_id = $2`, projectID, userID))
}

const listMembers = `
SELECT u.id, u.username, u.display_name, u.avatar_url
FROM projects p
JOIN users u ON u.id = p.owner_id
WHERE p.id = $1
UNION
SELECT u.id, u.username, u.display_name, u.avatar_url
FROM project_collaborators c
JOIN users u ON u.id = c.user_id
WHERE c.project_id = $1`

// ListMembers returns the public profiles of the owner and collaborators
func (q *Queries) ListMembers(ctx context.Context, projectID string) ([]model.Profile, error) {
	rows, err := q.db.QueryContext(ctx, listMembers, projectID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.Profile{}
	for rows.Next() {
		var p model.Profile
		var avatar sql.NullString
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &avatar); err != nil {
			return nil, translate(err)
		}
		p.AvatarURL = avatar.String
		out = append(out, p)
	}
	return out, rows.Err()
}
