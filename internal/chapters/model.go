package chapters

import (
	"strings"
	"time"
)

// Status is the editorial state of a chapter.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusRevised Status = "revised"
	StatusFinal   Status = "final"
)

// Chapter is one ordered section of a novel.
type Chapter struct {
	ID        int64     `json:"id"`
	NovelID   int64     `json:"novel_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Notes     string    `json:"notes"`
	Status    Status    `json:"status"`
	Order     int       `json:"order"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CountWords counts whitespace separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
