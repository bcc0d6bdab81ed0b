package characters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/shared"
)

// Repository persists characters scoped to the novel owner.
type Repository interface {
	NovelOwned(ctx context.Context, userID, novelID int64) error
	List(ctx context.Context, userID, novelID int64) ([]Character, error)
	Get(ctx context.Context, userID, id int64) (Character, error)
	Create(ctx context.Context, c Character) (Character, error)
	Update(ctx context.Context, userID int64, c Character) (Character, error)
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const characterColumns = `c.id, c.novel_id, c.name, c.role, c.description, c.traits, c.backstory, c.created_at, c.updated_at`

func (r *repository) NovelOwned(ctx context.Context, userID, novelID int64) error {
	var one int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM novels WHERE id = $1 AND user_id = $2`, novelID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("characters: check novel: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, userID, novelID int64) ([]Character, error) {
	rows, err := r.db.Query(ctx, `SELECT `+characterColumns+`
FROM characters c JOIN novels n ON n.id = c.novel_id
WHERE c.novel_id = $1 AND n.user_id = $2
ORDER BY c.name, c.id`, novelID, userID)
	if err != nil {
		return nil, fmt.Errorf("characters: list: %w", err)
	}
	defer rows.Close()

	var out []Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("characters: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Character, error) {
	return one(r.db.QueryRow(ctx, `SELECT `+characterColumns+`
FROM characters c JOIN novels n ON n.id = c.novel_id
WHERE c.id = $1 AND n.user_id = $2`, id, userID))
}

func (r *repository) Create(ctx context.Context, c Character) (Character, error) {
	return one(r.db.QueryRow(ctx, `INSERT INTO characters AS c (novel_id, name, role, description, traits, backstory)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+characterColumns,
		c.NovelID, c.Name, string(c.Role), c.Description, c.Traits, c.Backstory))
}

func (r *repository) Update(ctx context.Context, userID int64, c Character) (Character, error) {
	return one(r.db.QueryRow(ctx, `UPDATE characters AS c
SET name = $3, role = $4, description = $5, traits = $6, backstory = $7, updated_at = NOW()
FROM novels n
WHERE c.id = $1 AND n.id = c.novel_id AND n.user_id = $2
RETURNING `+characterColumns,
		c.ID, userID, c.Name, string(c.Role), c.Description, c.Traits, c.Backstory))
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM characters AS c USING novels n
WHERE c.id = $1 AND n.id = c.novel_id AND n.user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("characters: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func one(row pgx.Row) (Character, error) {
	c, err := scanCharacter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Character{}, shared.ErrNotFound
		}
		return Character{}, fmt.Errorf("characters: load: %w", err)
	}
	return c, nil
}

func scanCharacter(row pgx.Row) (Character, error) {
	var c Character
	var role string
	err := row.Scan(&c.ID, &c.NovelID, &c.Name, &role, &c.Description, &c.Traits, &c.Backstory, &c.CreatedAt, &c.UpdatedAt)
	c.Role = Role(role)
	return c, err
}
