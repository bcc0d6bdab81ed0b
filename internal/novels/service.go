package novels

import (
	"context"
	"strings"

	"github.com/novelforge/novelforge/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service applies novel business rules.
type Service struct {
	repo    Repository
	changes shared.ChangeRecorder
}

// NewService constructs a Service.
func NewService(repo Repository, changes shared.ChangeRecorder) *Service {
	return &Service{repo: repo, changes: changes}
}

// List returns a page of the caller's novels.
func (s *Service) List(ctx context.Context, userID int64, req ListRequest) (ListResponse, error) {
	if req.Limit <= 0 {
		req.Limit = defaultPageSize
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}
	req.Search = strings.TrimSpace(req.Search)
	page := shared.NewPagination(req.Page, req.Limit, 0)

	items, total, err := s.repo.List(ctx, userID, req, page.Offset())
	if err != nil {
		return ListResponse{}, err
	}
	if items == nil {
		items = []Novel{}
	}
	return ListResponse{Novels: items, Pagination: shared.NewPagination(page.Page, req.Limit, total)}, nil
}

// Get returns a novel owned by userID.
func (s *Service) Get(ctx context.Context, userID, id int64) (Novel, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create stores a new novel.
func (s *Service) Create(ctx context.Context, userID int64, req NovelRequest) (Novel, error) {
	novel := fromRequest(req)
	novel.UserID = userID
	created, err := s.repo.Create(ctx, novel)
	if err != nil {
		return Novel{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionCreate, Entity: "novel", EntityID: created.ID})
	return created, nil
}

// Update replaces the editable state of a novel.
func (s *Service) Update(ctx context.Context, userID, id int64, req NovelRequest) (Novel, error) {
	novel := fromRequest(req)
	novel.ID = id
	novel.UserID = userID
	updated, err := s.repo.Update(ctx, novel)
	if err != nil {
		return Novel{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionUpdate, Entity: "novel", EntityID: id})
	return updated, nil
}

// Delete removes a novel together with its chapters, characters and notes.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.changes.Changed(ctx, shared.AuditLog{ActorID: userID, Action: shared.ActionDelete, Entity: "novel", EntityID: id})
	return nil
}

// Owned reports shared.ErrNotFound unless userID owns the novel. Other
// modules use it to scope child records.
func (s *Service) Owned(ctx context.Context, userID, id int64) error {
	_, err := s.repo.Get(ctx, userID, id)
	return err
}

func fromRequest(req NovelRequest) Novel {
	status := req.Status
	if status == "" {
		status = StatusPlanning
	}
	return Novel{
		Title:           strings.TrimSpace(req.Title),
		Genre:           strings.TrimSpace(req.Genre),
		Synopsis:        req.Synopsis,
		Status:          status,
		TargetWordCount: req.TargetWordCount,
	}
}
