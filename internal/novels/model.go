package novels

import "time"

// Status tracks where a novel is in the writing process.
type Status string

const (
	StatusPlanning Status = "planning"
	StatusDrafting Status = "drafting"
	StatusRevising Status = "revising"
	StatusComplete Status = "complete"
)

// Novel is a writing project owned by one user.
type Novel struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Title           string    `json:"title"`
	Genre           string    `json:"genre"`
	Synopsis        string    `json:"synopsis"`
	Status          Status    `json:"status"`
	TargetWordCount int       `json:"target_word_count"`
	WordCount       int       `json:"word_count"`
	ChapterCount    int       `json:"chapter_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Progress is the share of the target word count reached, capped at 1.
func (n Novel) Progress() float64 {
	if n.TargetWordCount <= 0 {
		return 0
	}
	p := float64(n.WordCount) / float64(n.TargetWordCount)
	if p > 1 {
		return 1
	}
	return p
}
