package worldnotes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/shared"
)

// Repository persists notes scoped to the novel owner.
type Repository interface {
	NovelOwned(ctx context.Context, userID, novelID int64) error
	List(ctx context.Context, userID, novelID int64, req ListRequest) ([]Note, error)
	Get(ctx context.Context, userID, id int64) (Note, error)
	Create(ctx context.Context, n Note) (Note, error)
	Update(ctx context.Context, userID int64, n Note) (Note, error)
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const noteColumns = `w.id, w.novel_id, w.title, w.category, w.content, w.created_at, w.updated_at`

func (r *repository) NovelOwned(ctx context.Context, userID, novelID int64) error {
	var one int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM novels WHERE id = $1 AND user_id = $2`, novelID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("worldnotes: check novel: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, userID, novelID int64, req ListRequest) ([]Note, error) {
	rows, err := r.db.Query(ctx, `SELECT `+noteColumns+`
FROM world_notes w JOIN novels n ON n.id = w.novel_id
WHERE w.novel_id = $1 AND n.user_id = $2 AND ($3 = '' OR w.category = $3)
ORDER BY w.category, w.title, w.id`, novelID, userID, string(req.Category))
	if err != nil {
		return nil, fmt.Errorf("worldnotes: list: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("worldnotes: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Note, error) {
	return one(r.db.QueryRow(ctx, `SELECT `+noteColumns+`
FROM world_notes w JOIN novels n ON n.id = w.novel_id
WHERE w.id = $1 AND n.user_id = $2`, id, userID))
}

func (r *repository) Create(ctx context.Context, n Note) (Note, error) {
	return one(r.db.QueryRow(ctx, `INSERT INTO world_notes AS w (novel_id, title, category, content)
VALUES ($1, $2, $3, $4)
RETURNING `+noteColumns, n.NovelID, n.Title, string(n.Category), n.Content))
}

func (r *repository) Update(ctx context.Context, userID int64, n Note) (Note, error) {
	return one(r.db.QueryRow(ctx, `UPDATE world_notes AS w
SET title = $3, category = $4, content = $5, updated_at = NOW()
FROM novels n
WHERE w.id = $1 AND n.id = w.novel_id AND n.user_id = $2
RETURNING `+noteColumns, n.ID, userID, n.Title, string(n.Category), n.Content))
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM world_notes AS w USING novels n
WHERE w.id = $1 AND n.id = w.novel_id AND n.user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("worldnotes: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func one(row pgx.Row) (Note, error) {
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Note{}, shared.ErrNotFound
		}
		return Note{}, fmt.Errorf("worldnotes: load: %w", err)
	}
	return n, nil
}

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	var category string
	err := row.Scan(&n.ID, &n.NovelID, &n.Title, &category, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	n.Category = Category(category)
	return n, err
}
