// Package taskstore holds the local view of the user's tasks and the
// optimistic mutations that have not been resolved by the server yet.
//
// Records are kept in display order, newest first. Every mutation touches a
// single record, and at most one unresolved mutation may exist per id, so
// mutations on different records never conflict and may resolve in any
// order.
package taskstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tasksync/internal/service"
)

var (
	// ErrNotFoundLocal is returned when the target id is not in the store.
	ErrNotFoundLocal = errors.New("task not found")

	// ErrMutationPending is returned when the target already has an
	// unresolved mutation.
	ErrMutationPending = errors.New("task has a change in flight")

	// ErrNoPending is returned by Confirm and Rollback when no mutation is
	// outstanding for the id, e.g. after a refresh discarded it.
	ErrNoPending = errors.New("no change in flight")

	// ErrInvalidMutation is returned for malformed mutations.
	ErrInvalidMutation = errors.New("invalid mutation")
)

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []service.Task
	pending map[string]*Mutation

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for provisional CreatedAt values.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides temporary id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		pending: make(map[string]*Mutation),
		now:     time.Now,
		newID:   NewTemporaryID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a copy of the records, most recent first.
func (s *Store) List() []service.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]service.Task, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with id.
func (s *Store) Get(id string) (service.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], true
	}
	return service.Task{}, false
}

// Pending returns the unresolved mutation for id.
func (s *Store) Pending(id string) (Mutation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.pending[id]
	if !ok {
		return Mutation{}, false
	}
	return *m, true
}

// PendingCount returns the number of unresolved mutations.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Counts returns how many records are pending and completed.
func (s *Store) Counts() (pending, completed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Completed() {
			completed++
		} else {
			pending++
		}
	}
	return pending, completed
}

// ApplyOptimistic applies m to the records immediately and records it for
// a later Confirm or Rollback. The returned mutation carries the assigned
// TargetID and the prior snapshot.
func (s *Store) ApplyOptimistic(m Mutation) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m.Kind {
	case KindCreate:
		rec := m.Record
		rec.ID = s.newID()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = s.now()
		}
		if rec.Status == "" {
			rec.Status = service.StatusPending
		}
		s.insertAt(s.orderedIndex(rec, 0), rec)
		m.TargetID = rec.ID
		m.Record = rec
		m.Prior = nil
		m.PriorIndex = -1

	case KindUpdate, KindDelete:
		i := s.indexOf(m.TargetID)
		if i < 0 {
			return Mutation{}, fmt.Errorf("%w: %s", ErrNotFoundLocal, m.TargetID)
		}
		if _, busy := s.pending[m.TargetID]; busy {
			return Mutation{}, fmt.Errorf("%w: %s", ErrMutationPending, m.TargetID)
		}
		prior := s.records[i]
		m.Prior = &prior
		m.PriorIndex = i
		if m.Kind == KindUpdate {
			rec := m.Record
			if m.Edit != nil {
				rec = m.Edit(prior)
				m.Edit = nil
			}
			rec.ID = m.TargetID
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = prior.CreatedAt
			}
			m.Record = rec
			s.records[i] = rec
		} else {
			s.removeAt(i)
		}

	default:
		return Mutation{}, fmt.Errorf("%w: kind %d", ErrInvalidMutation, m.Kind)
	}

	m.State = StateApplied
	stored := m
	s.pending[m.TargetID] = &stored
	return m, nil
}

// Confirm reconciles the mutation for targetID with the server's record
// and discards it. Creates are rekeyed from the temporary id to the server
// id; updates adopt the server's fields; deletes need nothing. A record
// whose CreatedAt changed moves to its ordered position.
func (s *Store) Confirm(targetID string, server service.Task) (service.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.pending[targetID]
	if !ok {
		return service.Task{}, fmt.Errorf("%w: %s", ErrNoPending, targetID)
	}

	var result service.Task
	switch m.Kind {
	case KindCreate:
		if server.ID == "" {
			return service.Task{}, fmt.Errorf("%w: server record has no id", ErrInvalidMutation)
		}
		if err := s.rekey(targetID, server.ID); err != nil {
			return service.Task{}, err
		}
		targetID = server.ID
		result = s.merge(server.ID, server)
		s.reorder(server.ID)

	case KindUpdate:
		result = s.merge(targetID, server)
		s.reorder(targetID)
	}

	m.State = StateConfirmed
	delete(s.pending, targetID)
	return result, nil
}

// Rollback restores the snapshot taken when the mutation for targetID was
// applied and discards the mutation.
func (s *Store) Rollback(targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.pending[targetID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPending, targetID)
	}

	switch m.Kind {
	case KindCreate:
		if i := s.indexOf(targetID); i >= 0 {
			s.removeAt(i)
		}
	case KindUpdate, KindDelete:
		if i := s.indexOf(targetID); i >= 0 {
			s.records[i] = *m.Prior
			s.reorder(targetID)
		} else {
			s.insertAt(s.orderedIndex(*m.Prior, m.PriorIndex), *m.Prior)
		}
	}

	m.State = StateRolledBack
	delete(s.pending, targetID)
	return nil
}

// Rekey substitutes newID for oldID in place, carrying any pending
// mutation along.
func (s *Store) Rekey(oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rekey(oldID, newID)
}

func (s *Store) rekey(oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	if _, busy := s.pending[newID]; busy {
		return fmt.Errorf("%w: %s", ErrMutationPending, newID)
	}
	i := s.indexOf(oldID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFoundLocal, oldID)
	}

	if j := s.indexOf(newID); j >= 0 {
		// The server record arrived by another route (a refresh); keep
		// that one and drop the placeholder.
		s.removeAt(i)
	} else {
		s.records[i].ID = newID
	}

	if m, ok := s.pending[oldID]; ok {
		delete(s.pending, oldID)
		m.TargetID = newID
		m.Record.ID = newID
		s.pending[newID] = m
	}
	return nil
}

// Upsert inserts or replaces a record outside the mutation protocol. It is
// used for server records whose mutation was discarded by a refresh.
func (s *Store) Upsert(t service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(t.ID); i >= 0 {
		s.records[i] = t
		return
	}
	s.insertAt(s.orderedIndex(t, len(s.records)), t)
}

// Replace swaps in the server's full list, newest first. Pending mutations
// whose target is absent from the list are discarded and their ids
// returned. Mutations whose target is present stay pending, re-applied on
// top of the fresh record, with the fresh record as the new rollback
// snapshot.
func (s *Store) Replace(tasks []service.Task) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]service.Task, len(tasks))
	copy(records, tasks)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	s.records = records

	var discarded, deleted []string
	for id, m := range s.pending {
		i := s.indexOf(id)
		if i < 0 {
			delete(s.pending, id)
			discarded = append(discarded, id)
			continue
		}
		fresh := s.records[i]
		m.Prior = &fresh
		m.PriorIndex = i
		switch m.Kind {
		case KindUpdate:
			s.records[i] = m.Record
		case KindDelete:
			deleted = append(deleted, id)
		}
	}
	// Removal happens last so snapshot indexes refer to the fresh list.
	for _, id := range deleted {
		if i := s.indexOf(id); i >= 0 {
			s.removeAt(i)
		}
	}
	sort.Strings(discarded)
	return discarded
}

// merge adopts server fields for the record with id and returns it.
func (s *Store) merge(id string, server service.Task) service.Task {
	i := s.indexOf(id)
	if i < 0 {
		return server
	}
	rec := server
	rec.ID = id
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.records[i].CreatedAt
	}
	s.records[i] = rec
	return rec
}

func (s *Store) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// orderedIndex returns where t belongs in the newest-first order. Among
// records with the same CreatedAt, hint picks the slot.
func (s *Store) orderedIndex(t service.Task, hint int) int {
	lo := sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].CreatedAt.After(t.CreatedAt)
	})
	hi := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].CreatedAt.Before(t.CreatedAt)
	})
	return min(max(hint, lo), hi)
}

// reorder moves the record with id to its ordered position.
func (s *Store) reorder(id string) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	rec := s.records[i]
	s.removeAt(i)
	s.insertAt(s.orderedIndex(rec, i), rec)
}

func (s *Store) removeAt(i int) {
	s.records = append(s.records[:i], s.records[i+1:]...)
}

func (s *Store) insertAt(i int, t service.Task) {
	if i < 0 {
		i = 0
	}
	if i > len(s.records) {
		i = len(s.records)
	}
	s.records = append(s.records, service.Task{})
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = t
}
