package users

import (
	"context"

	"github.com/novelforge/novelforge/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filters ListFilters, offset int) ([]User, int, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo    RepositoryPort
	changes shared.ChangeRecorder
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, changes: shared.ChangeRecorder{Audit: audit}}
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, filters ListFilters) (ListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Limit > 200 {
		filters.Limit = 200
	}
	page := shared.NewPagination(filters.Page, filters.Limit, 0)
	users, total, err := s.repo.ListUsers(ctx, filters, page.Offset())
	if err != nil {
		return ListResponse{}, err
	}
	if users == nil {
		users = []User{}
	}
	return ListResponse{Users: users, Pagination: shared.NewPagination(page.Page, filters.Limit, total)}, nil
}

// SetActive enables or disables an account. Tokens already issued stay valid
// until they expire. Admins cannot disable themselves.
func (s *Service) SetActive(ctx context.Context, actor shared.Identity, id int64, active bool) (User, error) {
	if !active && actor.UserID == id {
		return User{}, shared.NewValidationError("is_active", "cannot disable your own account")
	}
	user, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}
	s.changes.Changed(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.ActionUpdate,
		Entity:   "user",
		EntityID: id,
		Meta:     map[string]any{"is_active": active},
	})
	return user, nil
}
