package generation

import "time"

// GenerateRequest asks for a new drafted chapter.
type GenerateRequest struct {
	Instructions string `json:"instructions" validate:"max=4000"`
	TargetWords  int    `json:"target_words" validate:"omitempty,min=200,max=6000"`
}

// Ticket acknowledges an enqueued request.
type Ticket struct {
	TaskID   string `json:"task_id"`
	State    string `json:"state"`
	Replayed bool   `json:"replayed"`
}

// TaskStatus reports the progress of a generation task.
type TaskStatus struct {
	TaskID      string     `json:"task_id"`
	NovelID     int64      `json:"novel_id"`
	State       string     `json:"state"`
	Retried     int        `json:"retried"`
	MaxRetry    int        `json:"max_retry"`
	LastError   string     `json:"last_error,omitempty"`
	ChapterID   int64      `json:"chapter_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
