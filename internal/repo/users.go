package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"effortline/internal/domain"
)

// UpsertUser creates the user or replaces its secret.
func (r Repo) UpsertUser(ctx context.Context, u domain.User) error {
	if u.ID == "" {
		return errors.New("id required")
	}
	if u.SecretHash == "" {
		return errors.New("secret required")
	}
	if u.CreatedAt == "" {
		u.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id, secret_hash, created_at) VALUES (?,?,?)
		ON CONFLICT(id) DO UPDATE SET secret_hash=excluded.secret_hash`,
		u.ID, u.SecretHash, u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT id, secret_hash, created_at FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.SecretHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, secret_hash, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.SecretHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
