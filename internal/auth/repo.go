package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	FindByLogin(ctx context.Context, login string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const userColumns = `id, username, email, password_hash, role, is_active, created_at, updated_at`

// CreateUser inserts a new account. Duplicate usernames or emails yield
// shared.ErrConflict.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (User, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, TRUE)
RETURNING `+userColumns, user.Username, user.Email, user.PasswordHash, user.Role)
	created, err := scanUser(row)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return User{}, shared.ErrConflict
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}
	return created, nil
}

// FindByLogin fetches a user by canonical username or email.
func (r *PGRepository) FindByLogin(ctx context.Context, login string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $2 LIMIT 1`,
		CanonicalUsername(login), CanonicalEmail(login))
	return r.one(row)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.one(row)
}

func (r *PGRepository) one(row pgx.Row) (User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, fmt.Errorf("auth: load user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

var _ Repository = (*PGRepository)(nil)
