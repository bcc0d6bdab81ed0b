package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/jobs"
)

// Enqueuer submits generation tasks.
type Enqueuer interface {
	EnqueueChapterGenerate(ctx context.Context, payload jobs.ChapterGeneratePayload, taskID string) (*asynq.TaskInfo, error)
}

// TaskInspector reads task state; *asynq.Inspector satisfies it.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// KeyClaimer records idempotency keys; *shared.IdempotencyStore satisfies it.
type KeyClaimer interface {
	Claim(ctx context.Context, module, key string) error
	Release(ctx context.Context, module, key string) error
}

// OwnershipChecker confirms a novel belongs to a user.
type OwnershipChecker interface {
	Owned(ctx context.Context, userID, id int64) error
}

const idempotencyModule = "generation"

// Service enqueues drafting work and reports its progress.
type Service struct {
	novels    OwnershipChecker
	queue     Enqueuer
	inspector TaskInspector
	keys      KeyClaimer
	changes   shared.ChangeRecorder
	now       func() time.Time
}

// NewService constructs a Service. keys may be nil.
func NewService(novels OwnershipChecker, queue Enqueuer, inspector TaskInspector, keys KeyClaimer, changes shared.ChangeRecorder) *Service {
	return &Service{novels: novels, queue: queue, inspector: inspector, keys: keys, changes: changes, now: time.Now}
}

// TaskIDFor derives the task id for an idempotency key. Equal keys from the
// same user for the same novel map to the same task.
func TaskIDFor(userID, novelID int64, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("novelforge:%d:%d:%s", userID, novelID, key))).String()
}

// Enqueue schedules a draft. Repeating a request with the same idempotency key
// returns the original task instead of scheduling another.
func (s *Service) Enqueue(ctx context.Context, userID, novelID int64, req GenerateRequest, idemKey string) (Ticket, error) {
	if err := s.novels.Owned(ctx, userID, novelID); err != nil {
		return Ticket{}, err
	}
	idemKey = strings.TrimSpace(idemKey)

	taskID := uuid.NewString()
	claimKey := ""
	if idemKey != "" {
		taskID = TaskIDFor(userID, novelID, idemKey)
		claimKey = fmt.Sprintf("%d:%d:%s", userID, novelID, idemKey)
		if s.keys != nil {
			if err := s.keys.Claim(ctx, idempotencyModule, claimKey); err != nil {
				if errors.Is(err, shared.ErrIdempotencyConflict) {
					return Ticket{TaskID: taskID, State: s.stateOf(taskID), Replayed: true}, nil
				}
				return Ticket{}, err
			}
		}
	}

	info, err := s.queue.EnqueueChapterGenerate(ctx, jobs.ChapterGeneratePayload{
		UserID:       userID,
		NovelID:      novelID,
		Instructions: strings.TrimSpace(req.Instructions),
		TargetWords:  req.TargetWords,
		RequestedAt:  s.now().UTC(),
	}, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return Ticket{TaskID: taskID, State: s.stateOf(taskID), Replayed: true}, nil
		}
		if claimKey != "" && s.keys != nil {
			_ = s.keys.Release(ctx, idempotencyModule, claimKey)
		}
		return Ticket{}, fmt.Errorf("generation: enqueue: %w", err)
	}

	s.changes.Changed(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   shared.ActionEnqueue,
		Entity:   "novel",
		EntityID: novelID,
		Meta:     map[string]any{"task_id": taskID},
	})
	state := asynq.TaskStatePending.String()
	if info != nil {
		state = info.State.String()
	}
	return Ticket{TaskID: taskID, State: state}, nil
}

// Status reports a task owned by userID. Tasks of other users are reported as
// not found.
func (s *Service) Status(ctx context.Context, userID int64, taskID string) (TaskStatus, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return TaskStatus{}, shared.NewValidationError("task_id", "must be a valid task id")
	}
	if s.inspector == nil {
		return TaskStatus{}, shared.ErrNotFound
	}
	info, err := s.inspector.GetTaskInfo(jobs.QueueDefault, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return TaskStatus{}, shared.ErrNotFound
		}
		return TaskStatus{}, fmt.Errorf("generation: inspect: %w", err)
	}
	payload, err := jobs.DecodeChapterGenerate(info.Payload)
	if err != nil || payload.UserID != userID {
		return TaskStatus{}, shared.ErrNotFound
	}

	status := TaskStatus{
		TaskID:    info.ID,
		NovelID:   payload.NovelID,
		State:     info.State.String(),
		Retried:   info.Retried,
		MaxRetry:  info.MaxRetry,
		LastError: info.LastErr,
	}
	if len(info.Result) > 0 {
		var result jobs.ChapterGenerateResult
		if json.Unmarshal(info.Result, &result) == nil {
			status.ChapterID = result.ChapterID
		}
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt.UTC()
		status.CompletedAt = &completed
	}
	return status, nil
}

func (s *Service) stateOf(taskID string) string {
	if s.inspector == nil {
		return ""
	}
	info, err := s.inspector.GetTaskInfo(jobs.QueueDefault, taskID)
	if err != nil || info == nil {
		return ""
	}
	return info.State.String()
}
