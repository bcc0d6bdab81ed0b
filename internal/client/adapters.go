package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/novelforge/novelforge/internal/autosave"
	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/reorder"
)

// Chapter field names used by the editor.
const (
	FieldTitle   = "title"
	FieldSummary = "summary"
	FieldContent = "content"
	FieldNotes   = "notes"
	FieldStatus  = "status"
)

// ChapterFields converts a chapter into editable fields.
func ChapterFields(ch chapters.Chapter) autosave.Fields {
	return autosave.Fields{
		FieldTitle:   ch.Title,
		FieldSummary: ch.Summary,
		FieldContent: ch.Content,
		FieldNotes:   ch.Notes,
		FieldStatus:  string(ch.Status),
	}
}

// ChapterSaver saves autosave snapshots as full chapter updates. The document
// id is the chapter id.
type ChapterSaver struct {
	Client *Client
}

// Save implements autosave.Saver.
func (s ChapterSaver) Save(ctx context.Context, docID string, fields autosave.Fields) error {
	id, err := strconv.ParseInt(docID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("client: invalid chapter id %q", docID)
	}
	_, err = s.Client.SaveChapter(ctx, id, chapters.ChapterRequest{
		Title:   fields[FieldTitle],
		Summary: fields[FieldSummary],
		Content: fields[FieldContent],
		Notes:   fields[FieldNotes],
		Status:  chapters.Status(fields[FieldStatus]),
	})
	return err
}

// ChapterItems converts chapters into reorder items.
func ChapterItems(list []chapters.Chapter) []reorder.Item {
	items := make([]reorder.Item, len(list))
	for i, ch := range list {
		items[i] = reorder.Item{ID: ch.ID, Order: ch.Order}
	}
	return items
}

// ChapterOrder returns a persister that writes the order of novelID.
func (c *Client) ChapterOrder(novelID int64) reorder.Persister {
	return reorder.PersisterFunc(func(ctx context.Context, items []reorder.Item) error {
		_, err := c.ReorderChapters(ctx, novelID, items)
		return err
	})
}
