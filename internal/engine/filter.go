package engine

import (
	"fmt"
	"strings"

	"tasksync/internal/service"
)

// Filter selects tasks by status.
type Filter int

const (
	FilterAll Filter = iota
	FilterPending
	FilterCompleted
)

// ParseFilter accepts all, pending or completed, case-insensitively.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "pending":
		return FilterPending, nil
	case "completed":
		return FilterCompleted, nil
	default:
		return FilterAll, fmt.Errorf("invalid status filter: %s", s)
	}
}

// Match reports whether t passes the filter.
func (f Filter) Match(t service.Task) bool {
	switch f {
	case FilterPending:
		return t.Status == service.StatusPending
	case FilterCompleted:
		return t.Status == service.StatusCompleted
	default:
		return true
	}
}

// Next cycles All -> Pending -> Completed -> All.
func (f Filter) Next() Filter {
	return (f + 1) % 3
}

func (f Filter) String() string {
	switch f {
	case FilterPending:
		return "Pending"
	case FilterCompleted:
		return "Completed"
	default:
		return "All"
	}
}
