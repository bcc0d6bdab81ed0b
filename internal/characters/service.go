package characters

import (
	"context"
	"strings"

	"github.com/novelforge/novelforge/internal/shared"
)

// Service applies character rules.
type Service struct {
	repo    Repository
	changes shared.ChangeRecorder
}

// NewService constructs a Service.
func NewService(repo Repository, changes shared.ChangeRecorder) *Service {
	return &Service{repo: repo, changes: changes}
}

// List returns the cast of a novel.
func (s *Service) List(ctx context.Context, userID, novelID int64) ([]Character, error) {
	if err := s.repo.NovelOwned(ctx, userID, novelID); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, userID, novelID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Character{}
	}
	return items, nil
}

// Get returns one character.
func (s *Service) Get(ctx context.Context, userID, id int64) (Character, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create adds a character to a novel.
func (s *Service) Create(ctx context.Context, userID, novelID int64, req CharacterRequest) (Character, error) {
	if err := s.repo.NovelOwned(ctx, userID, novelID); err != nil {
		return Character{}, err
	}
	c := fromRequest(req)
	c.NovelID = novelID
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Character{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionCreate, Entity: "character", EntityID: created.ID})
	return created, nil
}

// Update replaces a character.
func (s *Service) Update(ctx context.Context, userID, id int64, req CharacterRequest) (Character, error) {
	c := fromRequest(req)
	c.ID = id
	updated, err := s.repo.Update(ctx, userID, c)
	if err != nil {
		return Character{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionUpdate, Entity: "character", EntityID: id})
	return updated, nil
}

// Delete removes a character.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionDelete, Entity: "character", EntityID: id})
	return nil
}

func fromRequest(req CharacterRequest) Character {
	role := req.Role
	if role == "" {
		role = RoleSupporting
	}
	return Character{
		Name:        strings.TrimSpace(req.Name),
		Role:        role,
		Description: req.Description,
		Traits:      req.Traits,
		Backstory:   req.Backstory,
	}
}
