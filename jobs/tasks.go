package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskChapterGenerate drafts a new chapter with the language model.
	TaskChapterGenerate = "chapter:generate"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

	// GenerateMaxRetry bounds provider retries for a single draft.
	GenerateMaxRetry = 3
	// GenerateRetention keeps finished tasks queryable by status.
	GenerateRetention = 24 * time.Hour
)

// ChapterGeneratePayload describes a drafting request.
type ChapterGeneratePayload struct {
	UserID       int64     `json:"user_id"`
	NovelID      int64     `json:"novel_id"`
	Instructions string    `json:"instructions"`
	TargetWords  int       `json:"target_words"`
	RequestedAt  time.Time `json:"requested_at"`
}

// ChapterGenerateResult is written to the task result on success.
type ChapterGenerateResult struct {
	ChapterID int64 `json:"chapter_id"`
	Words     int   `json:"words"`
}

// NewChapterGenerateTask constructs an Asynq task.
func NewChapterGenerateTask(payload ChapterGeneratePayload) (*asynq.Task, error) {
	if payload.UserID <= 0 || payload.NovelID <= 0 {
		return nil, errors.New("jobs: generate payload requires user and novel")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChapterGenerate, data), nil
}

// DecodeChapterGenerate parses a task payload.
func DecodeChapterGenerate(raw []byte) (ChapterGeneratePayload, error) {
	var payload ChapterGeneratePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ChapterGeneratePayload{}, err
	}
	if payload.UserID <= 0 || payload.NovelID <= 0 {
		return ChapterGeneratePayload{}, errors.New("jobs: generate payload requires user and novel")
	}
	return payload, nil
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
