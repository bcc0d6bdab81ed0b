package worldnotes

// NoteRequest is the full editable state of a note.
type NoteRequest struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Category Category `json:"category" validate:"omitempty,oneof=location culture history magic technology other"`
	Content  string   `json:"content" validate:"max=50000"`
}

// ListRequest filters a novel's notes.
type ListRequest struct {
	Category Category
}

// ListResponse lists notes.
type ListResponse struct {
	Notes []Note `json:"notes"`
}
