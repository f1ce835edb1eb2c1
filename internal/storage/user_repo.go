package storage

import (
	"context"
	"fmt"

	"coeus/internal/models"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// UpsertUser registers a user by name, returning the existing row when the
// name is already taken. Collection naming downstream keys off user_name, so
// it is unique.
func (r *UserRepo) UpsertUser(ctx context.Context, userName string) (models.User, error) {
	var u models.User
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO users (user_id, user_name)
VALUES (gen_random_uuid(), $1)
ON CONFLICT (user_name)
DO UPDATE SET updated_at = NOW()
RETURNING user_id::text, user_name, created_at, updated_at`, userName).
		Scan(&u.UserID, &u.UserName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	err := r.db.Pool.QueryRow(ctx, `
SELECT user_id::text, user_name, created_at, updated_at
FROM users WHERE user_id=$1`, userID).
		Scan(&u.UserID, &u.UserName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT user_id::text, user_name, created_at, updated_at
FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.UserName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}
