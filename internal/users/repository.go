package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListUsers returns one page of users and the total number of matches.
func (r *Repository) ListUsers(ctx context.Context, filters ListFilters, offset int) ([]User, int, error) {
	pattern := ""
	if s := strings.TrimSpace(filters.Search); s != "" {
		pattern = "%" + escapeLike(strings.ToLower(s)) + "%"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users
WHERE $1 = '' OR username LIKE $1 OR email LIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT u.id, u.username, u.email, u.role, u.is_active,
       (SELECT COUNT(*) FROM novels n WHERE n.user_id = u.id), u.created_at, u.updated_at
FROM users u
WHERE $1 = '' OR u.username LIKE $1 OR u.email LIKE $1
ORDER BY u.id
LIMIT $2 OFFSET $3`, pattern, filters.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive,
			&user.NovelCount, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetActive enables or disables an account.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	var user User
	err := r.db.QueryRow(ctx, `UPDATE users u SET is_active = $2, updated_at = NOW()
WHERE u.id = $1
RETURNING u.id, u.username, u.email, u.role, u.is_active,
          (SELECT COUNT(*) FROM novels n WHERE n.user_id = u.id), u.created_at, u.updated_at`, id, active).
		Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive, &user.NovelCount, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("users: set active: %w", err)
	}
	return user, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
