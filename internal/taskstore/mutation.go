package taskstore

import (
	"strings"

	"github.com/google/uuid"

	"tasksync/internal/service"
)

// temporaryPrefix marks client-assigned ids awaiting server confirmation.
const temporaryPrefix = "tmp-"

// NewTemporaryID returns a fresh client-side placeholder id.
func NewTemporaryID() string {
	return temporaryPrefix + uuid.NewString()
}

// IsTemporaryID reports whether id was assigned locally.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, temporaryPrefix)
}

// Kind is the type of change a mutation applies.
type Kind int

const (
	KindCreate Kind = iota + 1
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// State is the position of a mutation in its lifecycle:
// Applied -> Confirmed | RolledBack. Both outcomes are terminal.
type State int

const (
	StateApplied State = iota + 1
	StateConfirmed
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateApplied:
		return "applied"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled back"
	default:
		return "new"
	}
}

// Mutation is an optimistic change awaiting the remote outcome.
type Mutation struct {
	// TargetID is the record the mutation touches. For creates it is set
	// by ApplyOptimistic to a temporary id.
	TargetID string
	Kind     Kind

	// Record is the optimistic value: the draft for a create, the full
	// replacement for an update, unused for a delete.
	Record service.Task

	// Edit, when set on an update, derives Record from the current record
	// while the store is locked.
	Edit func(service.Task) service.Task

	// Prior is the record before the change; nil for creates.
	Prior *service.Task
	// PriorIndex is the list position Prior occupied; -1 for creates.
	PriorIndex int

	State State
}

// Create builds a create mutation for draft.
func Create(draft service.Task) Mutation {
	return Mutation{Kind: KindCreate, Record: draft}
}

// Update builds an update mutation replacing the record with next.
func Update(next service.Task) Mutation {
	return Mutation{Kind: KindUpdate, TargetID: next.ID, Record: next}
}

// EditOf builds an update mutation whose record is fn applied to the
// record held for id at the time it is applied.
func EditOf(id string, fn func(service.Task) service.Task) Mutation {
	return Mutation{Kind: KindUpdate, TargetID: id, Edit: fn}
}

// Delete builds a delete mutation for id.
func Delete(id string) Mutation {
	return Mutation{Kind: KindDelete, TargetID: id}
}
