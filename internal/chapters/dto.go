package chapters

// ChapterRequest is the complete editable snapshot of a chapter. PUT
// replaces every field, so clients always send all of them.
type ChapterRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Summary string `json:"summary" validate:"max=2000"`
	Content string `json:"content" validate:"max=400000"`
	Notes   string `json:"notes" validate:"max=20000"`
	Status  Status `json:"status" validate:"omitempty,oneof=draft revised final"`
}

// ListResponse lists a novel's chapters in display order.
type ListResponse struct {
	Chapters []Chapter `json:"chapters"`
}
