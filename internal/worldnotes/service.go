package worldnotes

import (
	"context"
	"strings"

	"github.com/novelforge/novelforge/internal/shared"
)

// Service applies world-note rules.
type Service struct {
	repo    Repository
	changes shared.ChangeRecorder
}

// NewService constructs a Service.
func NewService(repo Repository, changes shared.ChangeRecorder) *Service {
	return &Service{repo: repo, changes: changes}
}

// List returns a novel's notes, optionally filtered by category.
func (s *Service) List(ctx context.Context, userID, novelID int64, req ListRequest) ([]Note, error) {
	if req.Category != "" && !validCategory(req.Category) {
		return nil, shared.NewValidationError("category", "is not a known category")
	}
	if err := s.repo.NovelOwned(ctx, userID, novelID); err != nil {
		return nil, err
	}
	notes, err := s.repo.List(ctx, userID, novelID, req)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

// Get returns one note.
func (s *Service) Get(ctx context.Context, userID, id int64) (Note, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create adds a note to a novel.
func (s *Service) Create(ctx context.Context, userID, novelID int64, req NoteRequest) (Note, error) {
	if err := s.repo.NovelOwned(ctx, userID, novelID); err != nil {
		return Note{}, err
	}
	n := fromRequest(req)
	n.NovelID = novelID
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return Note{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionCreate, Entity: "world_note", EntityID: created.ID})
	return created, nil
}

// Update replaces a note.
func (s *Service) Update(ctx context.Context, userID, id int64, req NoteRequest) (Note, error) {
	n := fromRequest(req)
	n.ID = id
	updated, err := s.repo.Update(ctx, userID, n)
	if err != nil {
		return Note{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionUpdate, Entity: "world_note", EntityID: id})
	return updated, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionDelete, Entity: "world_note", EntityID: id})
	return nil
}

func fromRequest(req NoteRequest) Note {
	category := req.Category
	if category == "" {
		category = CategoryOther
	}
	return Note{Title: strings.TrimSpace(req.Title), Category: category, Content: req.Content}
}

func validCategory(c Category) bool {
	switch c {
	case CategoryLocation, CategoryCulture, CategoryHistory, CategoryMagic, CategoryTechnology, CategoryOther:
		return true
	}
	return false
}
