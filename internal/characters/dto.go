package characters

// CharacterRequest is the full editable state of a character.
type CharacterRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Role        Role   `json:"role" validate:"omitempty,oneof=protagonist antagonist supporting minor"`
	Description string `json:"description" validate:"max=5000"`
	Traits      string `json:"traits" validate:"max=2000"`
	Backstory   string `json:"backstory" validate:"max=20000"`
}

// ListResponse lists a novel's cast.
type ListResponse struct {
	Characters []Character `json:"characters"`
}
