package database

import (
	"context"

	"github.com/existflow/dashcraft/internal/model"
)

const templateColumns = `id, user_id, name, screens, elements, created_at, updated_at`

func scanTemplate(row rowScanner) (model.TemplateRecord, error) {
	var t model.TemplateRecord
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Screens, &t.Elements, &t.CreatedAt, &t.UpdatedAt)
	return t, translate(err)
}

func (q *Queries) ListTemplates(ctx context.Context, userID string) ([]model.TemplateRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.TemplateRecord{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) GetTemplate(ctx context.Context, id, userID string) (model.TemplateRecord, error) {
	return scanTemplate(q.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates WHERE id = $1 AND user_id = $2`, id, userID))
}

func (q *Queries) CreateTemplate(ctx context.Context, arg model.TemplateRecord) (model.TemplateRecord, error) {
	return scanTemplate(q.db.QueryRowContext(ctx, `
		INSERT INTO templates (user_id, name, screens, elements)
		VALUES ($1, $2, $3, $4)
		RETURNING `+templateColumns,
		arg.UserID, arg.Name, arg.Screens, arg.Elements))
}

func (q *Queries) UpdateTemplate(ctx context.Context, arg model.TemplateRecord) (model.TemplateRecord, error) {
	return scanTemplate(q.db.QueryRowContext(ctx, `
		UPDATE templates
		SET name = $3, screens = $4, elements = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+templateColumns,
		arg.ID, arg.UserID, arg.Name, arg.Screens, arg.Elements))
}

func (q *Queries) DeleteTemplate(ctx context.Context, id, userID string) (bool, error) {
	return affected(q.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1 AND user_id = $2`, id, userID))
}
