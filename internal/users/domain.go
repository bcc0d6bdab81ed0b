package users

import (
	"time"

	"github.com/novelforge/novelforge/internal/shared"
)

// User is an account as seen by administrators. Password hashes never leave
// the auth package.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	NovelCount int       `json:"novel_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListFilters narrows the admin listing.
type ListFilters struct {
	Search string
	Page   int
	Limit  int
}

// ListResponse is a page of users.
type ListResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// ActiveRequest toggles an account.
type ActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
