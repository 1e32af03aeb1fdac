package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tasksync/internal/service"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Num int    // 1-based position in the list output, 0 when ID is set
	ID  string // server id given as #<id>
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from the first arg.
//
// Parsing rules:
// 1. All digits → position in the list output
// 2. '#' followed by a non-empty id → server id
// 3. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	arg := strings.TrimSpace(args[0])

	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{Num: num}, nil
	}

	if id, ok := strings.CutPrefix(arg, "#"); ok && strings.TrimSpace(id) != "" {
		return TaskRef{ID: id}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
}

// Resolve returns the id the reference names within tasks, which must be
// in list order. An id reference is returned as is; callers check that it
// exists.
func (r TaskRef) Resolve(tasks []service.Task) (string, error) {
	if r.ID != "" {
		return r.ID, nil
	}
	if r.Num < 1 || r.Num > len(tasks) {
		return "", fmt.Errorf("task number out of range: %d", r.Num)
	}
	return tasks[r.Num-1].ID, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
