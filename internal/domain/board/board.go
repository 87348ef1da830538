// Package board models the contract Kanban board: columns partitioning work items,
// the atomic move between columns, filtered projections and the drag protocol.
package board

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the execution status of a contract.
type Status string

const (
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusHalted         Status = "halted"
	StatusUnderAmendment Status = "under_amendment"
)

//nolint:gochecknoglobals // static read-only lookup
var statusLabels = map[Status]string{
	StatusInProgress:     "Em andamento",
	StatusCompleted:      "Concluído",
	StatusHalted:         "Paralisado",
	StatusUnderAmendment: "Em aditamento",
}

// Label returns the display label used by the back office.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts either the status code or its display label, case-insensitively.
func ParseStatus(v string) (Status, error) {
	v = strings.TrimSpace(v)
	for st, label := range statusLabels {
		if strings.EqualFold(v, string(st)) || strings.EqualFold(v, label) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", v)
}

// WorkItem is a contract surfaced as a card on the board.
type WorkItem struct {
	ID                string    `json:"id"`
	Number            string    `json:"number"`
	ObjectDescription string    `json:"object"`
	CounterpartyName  string    `json:"company"`
	ValueCents        int64     `json:"value_cents"`
	EndDate           time.Time `json:"end_date"`
	Status            Status    `json:"status"`
	DepartmentLabel   string    `json:"department"`
}

// Column is a named partition of work items. Title is the value written into
// the DepartmentLabel of items moved into it.
type Column struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Items []WorkItem `json:"items"`
}

// Board is an ordered sequence of columns. Every item belongs to exactly one column
// and item ids are unique board-wide.
type Board struct {
	Columns []Column `json:"columns"`
}

var (
	// ErrItemNotFound is returned when an item or column referenced by a move does not exist.
	ErrItemNotFound = errors.New("item not found")
	// ErrDuplicateID is returned when a snapshot repeats a column or item id.
	ErrDuplicateID = errors.New("duplicate id")
)

// New builds a board from a snapshot, validating id uniqueness. The snapshot is copied.
func New(columns []Column) (Board, error) {
	colIDs := make(map[string]struct{}, len(columns))
	itemIDs := make(map[string]struct{})
	for _, c := range columns {
		if c.ID == "" {
			return Board{}, errors.New("column id is required")
		}
		if _, dup := colIDs[c.ID]; dup {
			return Board{}, fmt.Errorf("%w: column %q", ErrDuplicateID, c.ID)
		}
		colIDs[c.ID] = struct{}{}
		for _, it := range c.Items {
			if it.ID == "" {
				return Board{}, fmt.Errorf("item without id in column %q", c.ID)
			}
			if _, dup := itemIDs[it.ID]; dup {
				return Board{}, fmt.Errorf("%w: item %q", ErrDuplicateID, it.ID)
			}
			itemIDs[it.ID] = struct{}{}
		}
	}
	return Board{Columns: columns}.Clone(), nil
}

// Clone returns a deep copy that shares no slices with b.
func (b Board) Clone() Board {
	out := Board{Columns: make([]Column, len(b.Columns))}
	for i, c := range b.Columns {
		out.Columns[i] = Column{ID: c.ID, Title: c.Title, Items: slices.Clone(c.Items)}
		if out.Columns[i].Items == nil {
			out.Columns[i].Items = []WorkItem{}
		}
	}
	return out
}

// Count returns the total number of items on the board.
func (b Board) Count() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Items)
	}
	return n
}

// Column returns the column with the given id.
func (b Board) Column(id string) (Column, bool) {
	if i := b.columnIndex(id); i >= 0 {
		return b.Columns[i], true
	}
	return Column{}, false
}

// Departments returns column titles in board order, used as the department filter options.
func (b Board) Departments() []string {
	out := make([]string, 0, len(b.Columns))
	for _, c := range b.Columns {
		if !slices.Contains(out, c.Title) {
			out = append(out, c.Title)
		}
	}
	return out
}

func (b Board) columnIndex(id string) int {
	return slices.IndexFunc(b.Columns, func(c Column) bool { return c.ID == id })
}

func (c Column) itemIndex(itemID string) int {
	return slices.IndexFunc(c.Items, func(it WorkItem) bool { return it.ID == itemID })
}
