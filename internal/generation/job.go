package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/novelforge/novelforge/internal/chapters"
	jobmetrics "github.com/novelforge/novelforge/internal/jobs"
	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/jobs"
)

// DraftWriter stores a generated chapter.
type DraftWriter interface {
	AppendDraft(ctx context.Context, userID, novelID int64, title, content string) (chapters.Chapter, error)
}

// Job processes chapter:generate tasks.
type Job struct {
	Sources   Sources
	Completer Completer
	Drafts    DraftWriter
	Metrics   *jobmetrics.Metrics
	Logger    *slog.Logger
}

// Handle drafts one chapter. Malformed payloads, missing novels and
// client-side provider errors are not retried.
func (j *Job) Handle(ctx context.Context, t *asynq.Task) error {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	payload, err := jobs.DecodeChapterGenerate(t.Payload())
	if err != nil {
		logger.Warn("discard malformed generate task", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	logger = logger.With(slog.Int64("user_id", payload.UserID), slog.Int64("novel_id", payload.NovelID))

	tracker := j.Metrics.Track(jobs.TaskChapterGenerate)
	chapter, err := j.run(ctx, payload)
	if err = tracker.End(err); err != nil {
		logger.Error("chapter generation failed", slog.Any("error", err))
		return classify(err)
	}

	words := chapters.CountWords(chapter.Content)
	j.Metrics.AddGeneratedWords(words)
	logger.Info("chapter generated", slog.Int64("chapter_id", chapter.ID), slog.Int("words", words))

	if w := t.ResultWriter(); w != nil {
		raw, _ := json.Marshal(jobs.ChapterGenerateResult{ChapterID: chapter.ID, Words: words})
		if _, err := w.Write(raw); err != nil {
			logger.Warn("write task result", slog.Any("error", err))
		}
	}
	return nil
}

func (j *Job) run(ctx context.Context, payload jobs.ChapterGeneratePayload) (chapters.Chapter, error) {
	sc, err := j.Sources.Load(ctx, payload.UserID, payload.NovelID)
	if err != nil {
		return chapters.Chapter{}, fmt.Errorf("load story context: %w", err)
	}
	completion, err := j.Completer.Complete(ctx, BuildPrompt(sc, payload.Instructions, payload.TargetWords))
	if err != nil {
		return chapters.Chapter{}, err
	}
	title, body := ParseDraft(completion.Text, fmt.Sprintf("Chapter %d", len(sc.Chapters)+1))
	if body == "" {
		return chapters.Chapter{}, ErrEmptyCompletion
	}
	return j.Drafts.AppendDraft(ctx, payload.UserID, payload.NovelID, title, body)
}

func classify(err error) error {
	var perr *ProviderError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	case errors.As(err, &perr) && !perr.Retryable():
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return err
}
