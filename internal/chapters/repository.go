package chapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/reorder"
	"github.com/novelforge/novelforge/internal/shared"
)

// Repository persists chapters. Reads and writes join through novels so a
// chapter is only visible to the novel's owner.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	NovelOwned(ctx context.Context, userID, novelID int64) error
	List(ctx context.Context, userID, novelID int64) ([]Chapter, error)
	Get(ctx context.Context, userID, id int64) (Chapter, error)
	Create(ctx context.Context, chapter Chapter) (Chapter, error)
	Update(ctx context.Context, userID int64, chapter Chapter) (Chapter, error)
	Delete(ctx context.Context, userID, id int64) (Chapter, error)
	Positions(ctx context.Context, novelID int64) ([]reorder.Item, error)
	SetOrder(ctx context.Context, novelID int64, items []reorder.Item) error
}

type dbtx interface {
	db.DBTX
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type repository struct {
	db   dbtx
	pool db.TxBeginner
}

// NewRepository constructs a PostgreSQL repository. conn is usually a
// *pgxpool.Pool, which both queries and begins transactions.
func NewRepository(conn interface {
	dbtx
	db.TxBeginner
}) Repository {
	return &repository{db: conn, pool: conn}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const chapterColumns = `c.id, c.novel_id, c.title, c.summary, c.content, c.notes, c.status, c.sort_order, c.word_count, c.created_at, c.updated_at`

func (r *repository) NovelOwned(ctx context.Context, userID, novelID int64) error {
	var one int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM novels WHERE id = $1 AND user_id = $2`, novelID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("chapters: check novel: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, userID, novelID int64) ([]Chapter, error) {
	rows, err := r.db.Query(ctx, `SELECT `+chapterColumns+`
FROM chapters c JOIN novels n ON n.id = c.novel_id
WHERE c.novel_id = $1 AND n.user_id = $2
ORDER BY c.sort_order, c.id`, novelID, userID)
	if err != nil {
		return nil, fmt.Errorf("chapters: list: %w", err)
	}
	defer rows.Close()

	var out []Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("chapters: scan: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Chapter, error) {
	row := r.db.QueryRow(ctx, `SELECT `+chapterColumns+`
FROM chapters c JOIN novels n ON n.id = c.novel_id
WHERE c.id = $1 AND n.user_id = $2`, id, userID)
	return one(row)
}

func (r *repository) Create(ctx context.Context, ch Chapter) (Chapter, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO chapters AS c (novel_id, title, summary, content, notes, status, word_count, sort_order)
SELECT $1, $2, $3, $4, $5, $6, $7, COALESCE(MAX(sort_order), 0) + 1 FROM chapters WHERE novel_id = $1
RETURNING `+chapterColumns,
		ch.NovelID, ch.Title, ch.Summary, ch.Content, ch.Notes, string(ch.Status), ch.WordCount)
	created, err := scanChapter(row)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return Chapter{}, shared.ErrConflict
		}
		return Chapter{}, fmt.Errorf("chapters: insert: %w", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, userID int64, ch Chapter) (Chapter, error) {
	row := r.db.QueryRow(ctx, `UPDATE chapters AS c
SET title = $3, summary = $4, content = $5, notes = $6, status = $7, word_count = $8, updated_at = NOW()
FROM novels n
WHERE c.id = $1 AND n.id = c.novel_id AND n.user_id = $2
RETURNING `+chapterColumns,
		ch.ID, userID, ch.Title, ch.Summary, ch.Content, ch.Notes, string(ch.Status), ch.WordCount)
	return one(row)
}

func (r *repository) Delete(ctx context.Context, userID, id int64) (Chapter, error) {
	row := r.db.QueryRow(ctx, `DELETE FROM chapters AS c
USING novels n
WHERE c.id = $1 AND n.id = c.novel_id AND n.user_id = $2
RETURNING `+chapterColumns, id, userID)
	return one(row)
}

func (r *repository) Positions(ctx context.Context, novelID int64) ([]reorder.Item, error) {
	rows, err := r.db.Query(ctx, `SELECT id, sort_order FROM chapters WHERE novel_id = $1 ORDER BY sort_order FOR UPDATE`, novelID)
	if err != nil {
		return nil, fmt.Errorf("chapters: positions: %w", err)
	}
	defer rows.Close()

	var out []reorder.Item
	for rows.Next() {
		var it reorder.Item
		if err := rows.Scan(&it.ID, &it.Order); err != nil {
			return nil, fmt.Errorf("chapters: scan position: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SetOrder writes every position in one batch. The unique (novel_id,
// sort_order) constraint is deferred so intermediate swaps are allowed.
func (r *repository) SetOrder(ctx context.Context, novelID int64, items []reorder.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`UPDATE chapters SET sort_order = $1, updated_at = NOW() WHERE id = $2 AND novel_id = $3`, it.Order, it.ID, novelID)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("chapters: set order: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return shared.ErrNotFound
		}
	}
	return nil
}

func one(row pgx.Row) (Chapter, error) {
	ch, err := scanChapter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chapter{}, shared.ErrNotFound
		}
		return Chapter{}, fmt.Errorf("chapters: load: %w", err)
	}
	return ch, nil
}

func scanChapter(row pgx.Row) (Chapter, error) {
	var ch Chapter
	var status string
	err := row.Scan(&ch.ID, &ch.NovelID, &ch.Title, &ch.Summary, &ch.Content, &ch.Notes, &status,
		&ch.Order, &ch.WordCount, &ch.CreatedAt, &ch.UpdatedAt)
	ch.Status = Status(status)
	return ch, err
}
