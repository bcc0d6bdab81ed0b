package dashboard

import (
	"context"
	"fmt"

	"github.com/novelforge/novelforge/internal/platform/db"
)

// Repository computes stats from PostgreSQL.
type Repository interface {
	Stats(ctx context.Context, userID int64) (Stats, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) Stats(ctx context.Context, userID int64) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM novels WHERE user_id = $1),
  (SELECT COUNT(*) FROM chapters c JOIN novels n ON n.id = c.novel_id WHERE n.user_id = $1),
  (SELECT COUNT(*) FROM characters c JOIN novels n ON n.id = c.novel_id WHERE n.user_id = $1),
  (SELECT COUNT(*) FROM world_notes w JOIN novels n ON n.id = w.novel_id WHERE n.user_id = $1),
  (SELECT COALESCE(SUM(c.word_count), 0) FROM chapters c JOIN novels n ON n.id = c.novel_id WHERE n.user_id = $1)`,
		userID).Scan(&s.Novels, &s.Chapters, &s.Characters, &s.WorldNotes, &s.TotalWords)
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: totals: %w", err)
	}

	s.ByStatus = map[string]int{}
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM novels WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return Stats{}, err
		}
		s.ByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows, err = r.db.Query(ctx, `SELECT n.id, n.title, n.status, COALESCE(SUM(c.word_count), 0), n.updated_at
FROM novels n LEFT JOIN chapters c ON c.novel_id = n.id
WHERE n.user_id = $1
GROUP BY n.id
ORDER BY n.updated_at DESC
LIMIT 5`, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: recent: %w", err)
	}
	defer rows.Close()
	s.RecentNovels = []RecentNovel{}
	for rows.Next() {
		var rn RecentNovel
		if err := rows.Scan(&rn.ID, &rn.Title, &rn.Status, &rn.WordCount, &rn.UpdatedAt); err != nil {
			return Stats{}, err
		}
		s.RecentNovels = append(s.RecentNovels, rn)
	}
	return s, rows.Err()
}
