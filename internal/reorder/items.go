// Package reorder implements drag-and-drop reordering of sibling items with
// an optimistic local update followed by one batch persist call.
package reorder

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateID reports two items sharing an id.
	ErrDuplicateID = errors.New("reorder: duplicate item id")
	// ErrDuplicateOrder reports two items sharing an order value.
	ErrDuplicateOrder = errors.New("reorder: duplicate order")
	// ErrInvalidOrder reports a non-positive order value or id.
	ErrInvalidOrder = errors.New("reorder: order and id must be positive")
)

// Item is one orderable entity within a parent.
type Item struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

// Validate checks that ids are unique and that orders are unique positive
// integers. Gaps between orders are allowed.
func Validate(items []Item) error {
	ids := make(map[int64]struct{}, len(items))
	orders := make(map[int]struct{}, len(items))
	for _, it := range items {
		if it.ID <= 0 || it.Order <= 0 {
			return fmt.Errorf("%w: id %d order %d", ErrInvalidOrder, it.ID, it.Order)
		}
		if _, ok := ids[it.ID]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateID, it.ID)
		}
		if _, ok := orders[it.Order]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateOrder, it.Order)
		}
		ids[it.ID] = struct{}{}
		orders[it.Order] = struct{}{}
	}
	return nil
}

// Sorted returns a copy of items in ascending order.
func Sorted(items []Item) []Item {
	out := append([]Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Renumber sets every item's Order to its 1-based position.
func Renumber(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = Item{ID: it.ID, Order: i + 1}
	}
	return out
}

// Move removes the item at from and reinserts it so that it ends up at
// index to, then renumbers. The input is not modified.
func Move(items []Item, from, to int) ([]Item, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: from %d to %d of %d", ErrIndexOutOfRange, from, to, len(items))
	}
	moved := items[from]
	rest := make([]Item, 0, len(items))
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)

	out := make([]Item, 0, len(items))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return Renumber(out), nil
}

// SlotToIndex converts a drop slot into a final index. Slot k is the gap
// before the item at k in the original list; a slot after the source shifts
// left by one once the source is removed.
func SlotToIndex(source, slot int) int {
	if source < slot {
		return slot - 1
	}
	return slot
}
