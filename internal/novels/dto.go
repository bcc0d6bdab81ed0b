package novels

import "github.com/novelforge/novelforge/internal/shared"

// NovelRequest is the full editable state of a novel, used for create and
// update.
type NovelRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Genre           string `json:"genre" validate:"max=80"`
	Synopsis        string `json:"synopsis" validate:"max=5000"`
	Status          Status `json:"status" validate:"omitempty,oneof=planning drafting revising complete"`
	TargetWordCount int    `json:"target_word_count" validate:"gte=0,lte=5000000"`
}

// ListRequest filters a user's novels.
type ListRequest struct {
	Search string
	Status Status
	Page   int
	Limit  int
}

// ListResponse is a page of novels.
type ListResponse struct {
	Novels     []Novel           `json:"novels"`
	Pagination shared.Pagination `json:"pagination"`
}
