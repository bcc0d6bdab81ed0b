package chapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/novelforge/novelforge/internal/reorder"
	"github.com/novelforge/novelforge/internal/shared"
)

// SaveObserver is told about every snapshot save.
type SaveObserver interface {
	ObserveChapterSave(err error)
}

// Service applies chapter business rules.
type Service struct {
	repo     Repository
	changes  shared.ChangeRecorder
	observer SaveObserver
}

// NewService constructs a Service. observer may be nil.
func NewService(repo Repository, changes shared.ChangeRecorder, observer SaveObserver) *Service {
	return &Service{repo: repo, changes: changes, observer: observer}
}

// List returns the novel's chapters in display order.
func (s *Service) List(ctx context.Context, userID, novelID int64) ([]Chapter, error) {
	if err := s.repo.NovelOwned(ctx, userID, novelID); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, userID, novelID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Chapter{}
	}
	return items, nil
}

// Get returns one chapter.
func (s *Service) Get(ctx context.Context, userID, id int64) (Chapter, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create appends a chapter after the last one of the novel.
func (s *Service) Create(ctx context.Context, userID, novelID int64, req ChapterRequest) (Chapter, error) {
	chapter := fromRequest(req)
	chapter.NovelID = novelID

	var created Chapter
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.NovelOwned(ctx, userID, novelID); err != nil {
			return err
		}
		var err error
		created, err = repo.Create(ctx, chapter)
		return err
	})
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return Chapter{}, shared.ErrConflict
		}
		return Chapter{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionCreate, Entity: "chapter", EntityID: created.ID,
		Meta: map[string]any{"novel_id": novelID}})
	return created, nil
}

// AppendDraft stores generated text as a new draft chapter.
func (s *Service) AppendDraft(ctx context.Context, userID, novelID int64, title, content string) (Chapter, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled draft"
	}
	if len([]rune(title)) > 200 {
		title = string([]rune(title)[:200])
	}
	return s.Create(ctx, userID, novelID, ChapterRequest{Title: title, Content: content, Status: StatusDraft})
}

// Save replaces a chapter with the submitted snapshot. It is the target of
// client auto-save; the last writer wins.
func (s *Service) Save(ctx context.Context, userID, id int64, req ChapterRequest) (Chapter, error) {
	chapter := fromRequest(req)
	chapter.ID = id
	saved, err := s.repo.Update(ctx, userID, chapter)
	if s.observer != nil {
		s.observer.ObserveChapterSave(err)
	}
	if err != nil {
		return Chapter{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionUpdate, Entity: "chapter", EntityID: id,
		Meta: map[string]any{"word_count": saved.WordCount}})
	return saved, nil
}

// Delete removes a chapter. Remaining chapters keep their order values.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionDelete, Entity: "chapter", EntityID: id,
		Meta: map[string]any{"novel_id": deleted.NovelID}})
	return nil
}

// Reorder applies a complete batch of positions for the novel's chapters in
// one transaction and returns the chapters in their new order.
func (s *Service) Reorder(ctx context.Context, userID, novelID int64, items []reorder.Item) ([]Chapter, error) {
	if len(items) == 0 {
		return nil, shared.NewValidationError("items", "is required")
	}
	if err := reorder.Validate(items); err != nil {
		return nil, shared.NewValidationError("items", err.Error())
	}

	var out []Chapter
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.NovelOwned(ctx, userID, novelID); err != nil {
			return err
		}
		current, err := repo.Positions(ctx, novelID)
		if err != nil {
			return err
		}
		if !sameIDs(current, items) {
			return shared.NewValidationError("items", "must list every chapter of the novel exactly once")
		}
		if err := repo.SetOrder(ctx, novelID, items); err != nil {
			return err
		}
		out, err = repo.List(ctx, userID, novelID)
		return err
	})
	if err != nil {
		var verr *shared.ValidationError
		if errors.As(err, &verr) || errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if shared.IsUniqueViolation(err) {
			return nil, shared.ErrConflict
		}
		return nil, fmt.Errorf("chapters: reorder: %w", err)
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionReorder, Entity: "novel", EntityID: novelID,
		Meta: map[string]any{"count": len(items)}})
	return out, nil
}

func sameIDs(current, proposed []reorder.Item) bool {
	if len(current) != len(proposed) {
		return false
	}
	seen := make(map[int64]struct{}, len(current))
	for _, it := range current {
		seen[it.ID] = struct{}{}
	}
	for _, it := range proposed {
		if _, ok := seen[it.ID]; !ok {
			return false
		}
	}
	return true
}

func fromRequest(req ChapterRequest) Chapter {
	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	return Chapter{
		Title:     strings.TrimSpace(req.Title),
		Summary:   req.Summary,
		Content:   req.Content,
		Notes:     req.Notes,
		Status:    status,
		WordCount: CountWords(req.Content),
	}
}
