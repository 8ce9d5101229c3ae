package database

import (
	"context"

	"github.com/existflow/dashcraft/internal/model"
)

const notificationColumns = `
id, user_id, COALESCE(actor_id::text, ''), project_id, COALESCE(element_id, ''),
COALESCE(comment_id::text, ''), kind, message, read, created_at`

func scanNotification(row rowScanner) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.ActorID, &n.ProjectID, &n.ElementID,
		&n.CommentID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt)
	return n, translate(err)
}

func (q *Queries) CreateNotification(ctx context.Context, arg model.Notification) (model.Notification, error) {
	return scanNotification(q.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, actor_id, project_id, element_id, comment_id, kind, message)
		VALUES ($1, NULLIF($2, '')::uuid, $3, NULLIF($4, ''), NULLIF($5, '')::uuid, $6, $7)
		RETURNING `+notificationColumns,
		arg.UserID, arg.ActorID, arg.ProjectID, arg.ElementID, arg.CommentID, arg.Kind, arg.Message))
}

func (q *Queries) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT 100`, userID, unreadOnly)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (q *Queries) MarkNotificationRead(ctx context.Context, id, userID string) (bool, error) {
	return affected(q.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID))
}
