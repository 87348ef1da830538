package board

import (
	"strings"
)

// AllDepartments is the department filter value meaning "no restriction".
const AllDepartments = "all"

// Filter selects which items a board view shows.
type Filter struct {
	// Search matches case-insensitively as a substring of number, object or company.
	Search string
	// Department restricts the view to the column with this title. Empty or "all" keeps every column.
	Department string
}

func (f Filter) restrictsDepartment() bool {
	return f.Department != "" && f.Department != AllDepartments
}

func (f Filter) matches(it WorkItem) bool {
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(it.Number), term) ||
		strings.Contains(strings.ToLower(it.ObjectDescription), term) ||
		strings.Contains(strings.ToLower(it.CounterpartyName), term)
}

// ApplyFilter returns a filtered copy of the board. The receiver is not modified.
func (b Board) ApplyFilter(f Filter) Board {
	out := Board{Columns: make([]Column, 0, len(b.Columns))}
	for _, c := range b.Columns {
		if f.restrictsDepartment() && c.Title != f.Department {
			continue
		}
		view := Column{ID: c.ID, Title: c.Title, Items: make([]WorkItem, 0, len(c.Items))}
		for _, it := range c.Items {
			if f.matches(it) {
				view.Items = append(view.Items, it)
			}
		}
		out.Columns = append(out.Columns, view)
	}
	return out
}
