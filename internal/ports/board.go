package ports

import (
	"context"
	"errors"

	"github.com/target/convenios-ui/internal/domain/board"
)

// ErrStateNotFound is returned by a BoardStore when no state exists for a key.
var ErrStateNotFound = errors.New("board state not found")

// WorkItemSource supplies the initial snapshot a board is built from.
type WorkItemSource interface {
	Snapshot(ctx context.Context) ([]board.Column, error)
}

// AssignmentWriter persists the department a work item was moved to.
type AssignmentWriter interface {
	AssignDepartment(ctx context.Context, itemID, columnID string) error
}

// BoardStore keeps per-session board state between requests.
type BoardStore interface {
	Load(ctx context.Context, key string) (board.State, error)
	Save(ctx context.Context, key string, st board.State) error
	Delete(ctx context.Context, key string) error
}
