package database

import (
	"context"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/lib/pq"
)

const commentColumns = `
c.id, c.content, c.user_id, c.project_id, c.element_id, c.mentions, c.created_at, c.updated_at,
u.username, u.display_name, u.avatar_url`

func scanComment(row rowScanner) (model.Comment, error) {
	var (
		c        model.Comment
		a        model.Author
		mentions []string
	)
	err := row.Scan(&c.ID, &c.Content, &c.UserID, &c.ProjectID, &c.ElementID, pq.Array(&mentions),
		&c.CreatedAt, &c.UpdatedAt, &a.Username, &a.DisplayName, &a.AvatarURL)
	if err != nil {
		return model.Comment{}, translate(err)
	}
	if mentions == nil {
		mentions = []string{}
	}
	c.Mentions = mentions
	c.Author = &a
	return c, nil
}

const listComments = `
SELECT ` + commentColumns + `
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.project_id = $1 AND c.element_id = $2
ORDER BY c.created_at ASC`

func (q *Queries) ListComments(ctx context.Context, projectID, elementID string) ([]model.Comment, error) {
	rows, err := q.db.QueryContext(ctx, listComments, projectID, elementID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) GetComment(ctx context.Context, id string) (model.Comment, error) {
	return scanComment(q.db.QueryRowContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1`, id))
}

const createComment = `
WITH c AS (
    INSERT INTO comments (project_id, element_id, user_id, content, mentions)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING *
)
SELECT ` + commentColumns + `
FROM c
JOIN users u ON u.id = c.user_id`

func (q *Queries) CreateComment(ctx context.Context, userID string, arg model.NewComment) (model.Comment, error) {
	mentions := arg.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return scanComment(q.db.QueryRowContext(ctx, createComment,
		arg.ProjectID, arg.ElementID, userID, arg.Content, pq.Array(mentions)))
}

func (q *Queries) DeleteComment(ctx context.Context, id string) (bool, error) {
	return affected(q.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id))
}
