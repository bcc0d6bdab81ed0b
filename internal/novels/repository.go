package novels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/shared"
)

// Repository persists novels. Every method is scoped to the owner.
type Repository interface {
	List(ctx context.Context, userID int64, req ListRequest, offset int) ([]Novel, int, error)
	Get(ctx context.Context, userID, id int64) (Novel, error)
	Create(ctx context.Context, novel Novel) (Novel, error)
	Update(ctx context.Context, novel Novel) (Novel, error)
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const selectNovel = `SELECT n.id, n.user_id, n.title, n.genre, n.synopsis, n.status, n.target_word_count,
	COALESCE(SUM(c.word_count), 0)::int AS word_count, COUNT(c.id)::int AS chapter_count,
	n.created_at, n.updated_at
FROM novels n
LEFT JOIN chapters c ON c.novel_id = n.id`

func (r *repository) List(ctx context.Context, userID int64, req ListRequest, offset int) ([]Novel, int, error) {
	where := []string{"n.user_id = $1"}
	args := []any{userID}
	if req.Search != "" {
		args = append(args, "%"+escapeLike(req.Search)+"%")
		where = append(where, fmt.Sprintf("(n.title ILIKE $%d OR n.synopsis ILIKE $%d)", len(args), len(args)))
	}
	if req.Status != "" {
		args = append(args, string(req.Status))
		where = append(where, fmt.Sprintf("n.status = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM novels n WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("novels: count: %w", err)
	}

	args = append(args, req.Limit, offset)
	query := fmt.Sprintf(`%s WHERE %s GROUP BY n.id ORDER BY n.updated_at DESC, n.id DESC LIMIT $%d OFFSET $%d`,
		selectNovel, clause, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("novels: list: %w", err)
	}
	defer rows.Close()

	var out []Novel
	for rows.Next() {
		n, err := scanNovel(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("novels: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Novel, error) {
	row := r.db.QueryRow(ctx, selectNovel+` WHERE n.id = $1 AND n.user_id = $2 GROUP BY n.id`, id, userID)
	n, err := scanNovel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Novel{}, shared.ErrNotFound
		}
		return Novel{}, fmt.Errorf("novels: get: %w", err)
	}
	return n, nil
}

func (r *repository) Create(ctx context.Context, novel Novel) (Novel, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO novels (user_id, title, genre, synopsis, status, target_word_count)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		novel.UserID, novel.Title, novel.Genre, novel.Synopsis, string(novel.Status), novel.TargetWordCount).Scan(&id)
	if err != nil {
		return Novel{}, fmt.Errorf("novels: insert: %w", err)
	}
	return r.Get(ctx, novel.UserID, id)
}

func (r *repository) Update(ctx context.Context, novel Novel) (Novel, error) {
	tag, err := r.db.Exec(ctx, `UPDATE novels SET title = $3, genre = $4, synopsis = $5, status = $6,
	target_word_count = $7, updated_at = NOW()
WHERE id = $1 AND user_id = $2`,
		novel.ID, novel.UserID, novel.Title, novel.Genre, novel.Synopsis, string(novel.Status), novel.TargetWordCount)
	if err != nil {
		return Novel{}, fmt.Errorf("novels: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Novel{}, shared.ErrNotFound
	}
	return r.Get(ctx, novel.UserID, novel.ID)
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM novels WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("novels: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanNovel(row pgx.Row) (Novel, error) {
	var n Novel
	var status string
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Genre, &n.Synopsis, &status, &n.TargetWordCount,
		&n.WordCount, &n.ChapterCount, &n.CreatedAt, &n.UpdatedAt)
	n.Status = Status(status)
	return n, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
