package database

import (
	"context"
	"time"

	"github.com/existflow/dashcraft/internal/model"
)

const userColumns = `id, username, email, password_hash, display_name, avatar_url, created_at`

func scanUser(row rowScanner) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.DisplayName, &p.AvatarURL, &p.CreatedAt)
	return p, translate(err)
}

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
}

const createUser = `
INSERT INTO users (username, email, password_hash, display_name)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.Profile, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser, arg.Username, arg.Email, arg.PasswordHash, arg.DisplayName))
}

func (q *Queries) GetUser(ctx context.Context, id string) (model.Profile, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (model.Profile, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.Profile, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

type UpdateUserProfileParams struct {
	ID          string
	DisplayName *string
	AvatarURL   *string
}

const updateUserProfile = `
UPDATE users
SET display_name = COALESCE($2, display_name),
    avatar_url = COALESCE($3, avatar_url),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.Profile, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserProfile, arg.ID, arg.DisplayName, arg.AvatarURL))
}

func (q *Queries) CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token, expires_at)
		VALUES ($1, $2, $3)`,
		userID, token, expiresAt)
	return translate(err)
}

func (q *Queries) GetSession(ctx context.Context, token string) (model.Session, error) {
	var s model.Session
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions WHERE token = $1`, token,
	).Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.CreatedAt)
	return s, translate(err)
}

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return translate(err)
}

func (q *Queries) CreateMagicLink(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO magic_links (email, token, expires_at)
		VALUES ($1, $2, $3)`,
		email, token, expiresAt)
	return translate(err)
}

func (q *Queries) GetMagicLink(ctx context.Context, token string) (model.MagicLink, error) {
	var m model.MagicLink
	err := q.db.QueryRowContext(ctx, `
		SELECT id, email, token, used, expires_at, created_at
		FROM magic_links WHERE token = $1`, token,
	).Scan(&m.ID, &m.Email, &m.Token, &m.Used, &m.ExpiresAt, &m.CreatedAt)
	return m, translate(err)
}

// UseMagicLink marks an unused link as used and reports whether it was
// unused
func (q *Queries) UseMagicLink(ctx context.Context, token string) (bool, error) {
	return affected(q.db.ExecContext(ctx,
		`UPDATE magic_links SET used = TRUE WHERE token = $1 AND used = FALSE`, token))
}
