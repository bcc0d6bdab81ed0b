package dashboard

import "time"

// Stats summarises a user's writing.
type Stats struct {
	Novels       int            `json:"novels"`
	Chapters     int            `json:"chapters"`
	Characters   int            `json:"characters"`
	WorldNotes   int            `json:"world_notes"`
	TotalWords   int64          `json:"total_words"`
	ByStatus     map[string]int `json:"novels_by_status"`
	RecentNovels []RecentNovel  `json:"recent_novels"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// RecentNovel is a recently touched novel.
type RecentNovel struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	WordCount int64     `json:"word_count"`
	UpdatedAt time.Time `json:"updated_at"`
}
