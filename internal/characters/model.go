package characters

import "time"

// Role is a character's narrative function.
type Role string

const (
	RoleProtagonist Role = "protagonist"
	RoleAntagonist  Role = "antagonist"
	RoleSupporting  Role = "supporting"
	RoleMinor       Role = "minor"
)

// Character is a person in a novel's cast.
type Character struct {
	ID          int64     `json:"id"`
	NovelID     int64     `json:"novel_id"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Description string    `json:"description"`
	Traits      string    `json:"traits"`
	Backstory   string    `json:"backstory"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
