package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/model"
)

const projectColumns = `p.id, p.name, p.description, p.owner_id, p.screens, p.elements, p.is_public, p.created_at, p.updated_at`

func scanProject(row rowScanner) (model.Project, error) {
	var (
		p           model.Project
		description sql.NullString
		screens     []byte
		elements    []byte
	)
	err := row.Scan(&p.ID, &p.Name, &description, &p.OwnerID, &screens, &elements, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Project{}, translate(err)
	}
	if description.Valid {
		p.Description = description.String
	}
	p.Screens = model.DecodeScreens(screens)
	p.Elements = model.DecodeElements(elements)
	return p, nil
}

func scanProjects(rows *sql.Rows, err error) ([]model.Project, error) {
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

type CreateProjectParams struct {
	OwnerID     string
	Name        string
	Description string
	Screens     json.RawMessage
	Elements    json.RawMessage
}

const createProject = `
INSERT INTO projects AS p (owner_id, name, description, screens, elements)
VALUES ($1, $2, NULLIF($3, ''), $4, $5)
RETURNING ` + projectColumns

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (model.Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, createProject,
		arg.OwnerID, arg.Name, arg.Description, []byte(arg.Screens), []byte(arg.Elements)))
}

func (q *Queries) GetProject(ctx context.Context, id string) (model.Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id))
}

const listProjectsForUser = `
SELECT ` + projectColumns + `
FROM projects p
WHERE p.owner_id = $1
   OR EXISTS (
       SELECT 1 FROM project_collaborators c
       WHERE c.project_id = p.id AND c.user_id = $1
   )
ORDER BY p.updated_at DESC`

func (q *Queries) ListProjectsForUser(ctx context.Context, userID string) ([]model.Project, error) {
	return scanProjects(q.db.QueryContext(ctx, listProjectsForUser, userID))
}

type UpdateProjectMetaParams struct {
	ID          string
	Name        *string
	Description *string
	IsPublic    *bool
}

const updateProjectMeta = `
UPDATE projects AS p
SET name = COALESCE($2, p.name),
    description = COALESCE($3, p.description),
    is_public = COALESCE($4, p.is_public),
    updated_at = NOW()
WHERE p.id = $1
RETURNING ` + projectColumns

func (q *Queries) UpdateProjectMeta(ctx context.Context, arg UpdateProjectMetaParams) (model.Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, updateProjectMeta, arg.ID, arg.Name, arg.Description, arg.IsPublic))
}

const updateProjectCanvas = `
UPDATE projects AS p
SET screens = $2, elements = $3, updated_at = NOW()
WHERE p.id = $1
RETURNING ` + projectColumns

func (q *Queries) UpdateProjectCanvas(ctx context.Context, id string, screens, elements json.RawMessage) (model.Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, updateProjectCanvas, id, []byte(screens), []byte(elements)))
}

func (q *Queries) DeleteProject(ctx context.Context, id string) (bool, error) {
	return affected(q.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id))
}

const getAccessFacts = `
SELECT p.owner_id, p.is_public, COALESCE(c.role, '')
FROM projects p
LEFT JOIN project_collaborators c
       ON c.project_id = p.id AND c.user_id::text = $2
WHERE p.id = $1`

func (q *Queries) GetAccessFacts(ctx context.Context, projectID, userID string) (access.Facts, error) {
	var (
		f    access.Facts
		role string
	)
	err := q.db.QueryRowContext(ctx, getAccessFacts, projectID, userID).Scan(&f.OwnerID, &f.IsPublic, &role)
	if err != nil {
		return access.Facts{}, translate(err)
	}
	f.CollaboratorRole = model.Role(role)
	return f, nil
}
