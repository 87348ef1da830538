package board

import (
	"fmt"
	"slices"
)

// MoveResult describes an applied move. It carries enough to undo it.
type MoveResult struct {
	Moved         bool   `json:"moved"`
	ItemID        string `json:"item_id"`
	FromColumnID  string `json:"from_column_id"`
	ToColumnID    string `json:"to_column_id"`
	FromIndex     int    `json:"-"`
	PreviousLabel string `json:"-"`
	NewLabel      string `json:"department"`
}

// Move reassigns itemID from one column to another, appending it to the destination
// and rewriting its DepartmentLabel to the destination title.
// All validation happens before any mutation; on error the board is unchanged.
// A move within the same column is a no-op with Moved=false.
func (b *Board) Move(itemID, fromColumnID, toColumnID string) (MoveResult, error) {
	res := MoveResult{ItemID: itemID, FromColumnID: fromColumnID, ToColumnID: toColumnID}

	fi := b.columnIndex(fromColumnID)
	if fi < 0 {
		return res, fmt.Errorf("%w: column %q", ErrItemNotFound, fromColumnID)
	}
	idx := b.Columns[fi].itemIndex(itemID)
	if idx < 0 {
		return res, fmt.Errorf("%w: item %q in column %q", ErrItemNotFound, itemID, fromColumnID)
	}
	if fromColumnID == toColumnID {
		res.NewLabel = b.Columns[fi].Items[idx].DepartmentLabel
		return res, nil
	}
	ti := b.columnIndex(toColumnID)
	if ti < 0 {
		return res, fmt.Errorf("%w: column %q", ErrItemNotFound, toColumnID)
	}

	item := b.Columns[fi].Items[idx]
	res.Moved = true
	res.FromIndex = idx
	res.PreviousLabel = item.DepartmentLabel
	res.NewLabel = b.Columns[ti].Title

	item.DepartmentLabel = b.Columns[ti].Title
	b.Columns[fi].Items = slices.Delete(b.Columns[fi].Items, idx, idx+1)
	b.Columns[ti].Items = append(b.Columns[ti].Items, item)
	return res, nil
}

// Undo reverts a move returned by Move, restoring the item's original position and label.
func (b *Board) Undo(res MoveResult) error {
	if !res.Moved {
		return nil
	}
	ti := b.columnIndex(res.ToColumnID)
	fi := b.columnIndex(res.FromColumnID)
	if ti < 0 || fi < 0 {
		return fmt.Errorf("undo move of %q: %w", res.ItemID, ErrItemNotFound)
	}
	idx := b.Columns[ti].itemIndex(res.ItemID)
	if idx < 0 {
		return fmt.Errorf("undo move of %q: %w", res.ItemID, ErrItemNotFound)
	}

	item := b.Columns[ti].Items[idx]
	item.DepartmentLabel = res.PreviousLabel
	b.Columns[ti].Items = slices.Delete(b.Columns[ti].Items, idx, idx+1)
	at := min(max(res.FromIndex, 0), len(b.Columns[fi].Items))
	b.Columns[fi].Items = slices.Insert(b.Columns[fi].Items, at, item)
	return nil
}
