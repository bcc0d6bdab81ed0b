package worldnotes

import "time"

// Category groups world-building notes.
type Category string

const (
	CategoryLocation   Category = "location"
	CategoryCulture    Category = "culture"
	CategoryHistory    Category = "history"
	CategoryMagic      Category = "magic"
	CategoryTechnology Category = "technology"
	CategoryOther      Category = "other"
)

// Note is a world-building entry attached to a novel.
type Note struct {
	ID        int64     `json:"id"`
	NovelID   int64     `json:"novel_id"`
	Title     string    `json:"title"`
	Category  Category  `json:"category"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
