package board

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoActiveDrag is returned when a drop or hover does not match the recorded drag.
	ErrNoActiveDrag = errors.New("no active drag")
	// ErrDragExpired is returned when a drop arrives after the drag ticket lapsed.
	ErrDragExpired = errors.New("drag expired")
)

// Drag is the provisional transfer intent recorded by DragStart.
type Drag struct {
	Token        string    `json:"token"`
	ItemID       string    `json:"item_id"`
	FromColumnID string    `json:"from_column_id"`
	StartedAt    time.Time `json:"started_at"`
}

// State is one client's board together with its pending drag, if any.
type State struct {
	Board   Board `json:"board"`
	Pending *Drag `json:"pending,omitempty"`
}

// DragStartInput groups parameters for DragStart.
type DragStartInput struct {
	Token        string
	ItemID       string
	FromColumnID string
	Now          time.Time
}

// DragStart records transfer intent for an item currently in FromColumnID.
// A new DragStart replaces any previous pending drag.
func (s *State) DragStart(in DragStartInput) error {
	if in.Token == "" {
		return errors.New("drag token is required")
	}
	c, ok := s.Board.Column(in.FromColumnID)
	if !ok {
		return fmt.Errorf("%w: column %q", ErrItemNotFound, in.FromColumnID)
	}
	if c.itemIndex(in.ItemID) < 0 {
		return fmt.Errorf("%w: item %q in column %q", ErrItemNotFound, in.ItemID, in.FromColumnID)
	}
	s.Pending = &Drag{
		Token:        in.Token,
		ItemID:       in.ItemID,
		FromColumnID: in.FromColumnID,
		StartedAt:    in.Now,
	}
	return nil
}

// DropHint is the presentation hint returned while hovering over a column.
type DropHint struct {
	ColumnID   string `json:"column_id"`
	Accepts    bool   `json:"accepts"`
	SameColumn bool   `json:"same_column"`
}

// DragOver reports whether dropping on candidateColumnID would move the item.
// It never mutates state.
func (s State) DragOver(token, candidateColumnID string) (DropHint, error) {
	if s.Pending == nil || s.Pending.Token != token {
		return DropHint{}, ErrNoActiveDrag
	}
	_, exists := s.Board.Column(candidateColumnID)
	same := candidateColumnID == s.Pending.FromColumnID
	return DropHint{
		ColumnID:   candidateColumnID,
		Accepts:    exists && !same,
		SameColumn: same,
	}, nil
}

// DropInput groups parameters for Drop.
type DropInput struct {
	Token      string
	ToColumnID string
	Now        time.Time
	// TTL bounds how long a drag ticket stays valid. Zero disables expiry.
	TTL time.Duration
}

// Drop completes the pending drag by moving its item to ToColumnID.
// A drop without a matching DragStart token is rejected and leaves the board untouched.
// A matching drop consumes the ticket whether or not the move succeeds.
func (s *State) Drop(in DropInput) (MoveResult, error) {
	if s.Pending == nil || s.Pending.Token != in.Token || in.Token == "" {
		return MoveResult{}, ErrNoActiveDrag
	}
	pending := *s.Pending
	s.Pending = nil
	if in.TTL > 0 && in.Now.Sub(pending.StartedAt) > in.TTL {
		return MoveResult{}, ErrDragExpired
	}
	return s.Board.Move(pending.ItemID, pending.FromColumnID, in.ToColumnID)
}

// CancelDrag discards the pending drag when the token matches. It reports whether a drag was cleared.
func (s *State) CancelDrag(token string) bool {
	if s.Pending == nil || s.Pending.Token != token {
		return false
	}
	s.Pending = nil
	return true
}
