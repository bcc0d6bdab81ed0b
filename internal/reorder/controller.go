package reorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrIndexOutOfRange reports an index outside the list.
	ErrIndexOutOfRange = errors.New("reorder: index out of range")
	// ErrNoDrag is returned when no drag is in progress.
	ErrNoDrag = errors.New("reorder: no drag in progress")
	// ErrItemMismatch is returned when the dragged item is not at the given index.
	ErrItemMismatch = errors.New("reorder: item is not at source index")
)

// Persister stores a complete, renumbered list in one call.
type Persister interface {
	Persist(ctx context.Context, items []Item) error
}

// PersisterFunc adapts a function into a Persister.
type PersisterFunc func(ctx context.Context, items []Item) error

// Persist calls f.
func (f PersisterFunc) Persist(ctx context.Context, items []Item) error {
	return f(ctx, items)
}

type dragState struct {
	item   Item
	source int
	over   int
}

// Controller holds the displayed order of a list and applies drops
// optimistically. A failed persist keeps the new order locally and marks it
// unsynced; Retry sends it again.
type Controller struct {
	mu        sync.Mutex
	items     []Item
	persister Persister
	logger    *slog.Logger
	drag      *dragState
	unsynced  bool
	err       error
}

// NewController returns a controller over items, displayed by ascending order.
func NewController(items []Item, persister Persister, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{items: Sorted(items), persister: persister, logger: logger}
}

// Items returns a copy of the displayed list.
func (c *Controller) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

// BeginDrag records the item being dragged and where it started.
func (c *Controller) BeginDrag(item Item, sourceIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sourceIndex < 0 || sourceIndex >= len(c.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, sourceIndex)
	}
	if c.items[sourceIndex].ID != item.ID {
		return fmt.Errorf("%w: %d at %d", ErrItemMismatch, item.ID, sourceIndex)
	}
	c.drag = &dragState{item: c.items[sourceIndex], source: sourceIndex, over: sourceIndex}
	return nil
}

// DragOver updates the hover target. It never changes the list.
func (c *Controller) DragOver(targetIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return ErrNoDrag
	}
	if targetIndex < 0 || targetIndex >= len(c.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, targetIndex)
	}
	c.drag.over = targetIndex
	return nil
}

// Hover reports the current hover target of an active drag.
func (c *Controller) Hover() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return 0, false
	}
	return c.drag.over, true
}

// Cancel abandons the drag without changes.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.drag = nil
	c.mu.Unlock()
}

// Drop moves the dragged item so it ends at targetIndex, renumbers the list
// and persists it. It reports whether the order changed. Dropping on the
// source index changes nothing and makes no persist call.
func (c *Controller) Drop(ctx context.Context, targetIndex int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked(ctx, targetIndex)
}

// DropAtSlot drops into the gap before position slot of the original list;
// slot len(items) is the end.
func (c *Controller) DropAtSlot(ctx context.Context, slot int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return false, ErrNoDrag
	}
	if slot < 0 || slot > len(c.items) {
		return false, fmt.Errorf("%w: slot %d", ErrIndexOutOfRange, slot)
	}
	return c.dropLocked(ctx, SlotToIndex(c.drag.source, slot))
}

func (c *Controller) dropLocked(ctx context.Context, targetIndex int) (bool, error) {
	if c.drag == nil {
		return false, ErrNoDrag
	}
	drag := c.drag
	c.drag = nil

	if targetIndex == drag.source {
		return false, nil
	}
	next, err := Move(c.items, drag.source, targetIndex)
	if err != nil {
		return false, err
	}
	c.items = next
	return true, c.persistLocked(ctx)
}

// Unsynced reports whether the displayed order failed to persist.
func (c *Controller) Unsynced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsynced
}

// Err returns the last persist error.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Retry re-sends the displayed order after a failed persist.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.unsynced {
		return nil
	}
	return c.persistLocked(ctx)
}

func (c *Controller) persistLocked(ctx context.Context) error {
	batch := append([]Item(nil), c.items...)
	if err := c.persister.Persist(ctx, batch); err != nil {
		c.unsynced = true
		c.err = err
		c.logger.Warn("reorder persist failed", slog.Int("items", len(batch)), slog.Any("error", err))
		return err
	}
	c.unsynced = false
	c.err = nil
	return nil
}
