package taskstore_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tasksync/internal/service"
	"tasksync/internal/taskstore"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T, tasks ...service.Task) *taskstore.Store {
	t.Helper()
	n := 0
	s := taskstore.New(
		taskstore.WithClock(func() time.Time { return base.Add(time.Hour) }),
		taskstore.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("tmp-%d", n)
		}),
	)
	require.Empty(t, s.Replace(tasks))
	return s
}

func task(id, title string, status service.Status, age time.Duration) service.Task {
	return service.Task{ID: id, Title: title, Status: status, CreatedAt: base.Add(-age)}
}

func ids(tasks []service.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestReplace_OrdersNewestFirst(t *testing.T) {
	s := seeded(t,
		task("1", "old", service.StatusPending, 3*time.Hour),
		task("2", "new", service.StatusPending, time.Hour),
		task("3", "tie-a", service.StatusCompleted, 2*time.Hour),
		task("4", "tie-b", service.StatusPending, 2*time.Hour),
	)
	require.Equal(t, []string{"2", "3", "4", "1"}, ids(s.List()))
}

func TestCreate_ConfirmRekeysInPlace(t *testing.T) {
	s := seeded(t, task("1", "existing", service.StatusPending, time.Hour))

	m, err := s.ApplyOptimistic(taskstore.Create(service.Task{Title: "Buy milk"}))
	require.NoError(t, err)
	require.True(t, taskstore.IsTemporaryID(m.TargetID))
	require.Equal(t, service.StatusPending, m.Record.Status)
	require.Equal(t, []string{m.TargetID, "1"}, ids(s.List()))

	server := service.Task{ID: "42", Title: "Buy milk", Status: service.StatusPending, CreatedAt: base.Add(2 * time.Hour)}
	got, err := s.Confirm(m.TargetID, server)
	require.NoError(t, err)
	require.Equal(t, server, got)

	require.Equal(t, []string{"42", "1"}, ids(s.List()))
	_, ok := s.Get(m.TargetID)
	require.False(t, ok)
	require.Zero(t, s.PendingCount())
}

func TestCreate_ConfirmWhenRefreshAlreadyBroughtRecord(t *testing.T) {
	s := seeded(t)
	m, err := s.ApplyOptimistic(taskstore.Create(service.Task{Title: "Buy milk"}))
	require.NoError(t, err)

	// Upsert stands in for a record that appeared while the create was in flight.
	s.Upsert(service.Task{ID: "42", Title: "Buy milk", Status: service.StatusPending, CreatedAt: base})

	_, err = s.Confirm(m.TargetID, service.Task{ID: "42", Title: "Buy milk", Status: service.StatusPending, CreatedAt: base})
	require.NoError(t, err)
	require.Equal(t, []string{"42"}, ids(s.List()))
}

func TestUpdate_Confirm(t *testing.T) {
	s := seeded(t, task("1", "a", service.StatusPending, time.Hour))

	next := task("1", "a", service.StatusCompleted, time.Hour)
	_, err := s.ApplyOptimistic(taskstore.Update(next))
	require.NoError(t, err)

	got, _ := s.Get("1")
	require.Equal(t, service.StatusCompleted, got.Status)

	server := next
	server.Description = "server side"
	merged, err := s.Confirm("1", server)
	require.NoError(t, err)
	require.Equal(t, "server side", merged.Description)
	require.Zero(t, s.PendingCount())
}

func TestRollback_RestoresExactSnapshot(t *testing.T) {
	original := []service.Task{
		task("1", "first", service.StatusPending, time.Hour),
		task("2", "second", service.StatusCompleted, 2*time.Hour),
		task("3", "third", service.StatusPending, 3*time.Hour),
	}

	t.Run("create", func(t *testing.T) {
		s := seeded(t, original...)
		m, err := s.ApplyOptimistic(taskstore.Create(service.Task{Title: "new"}))
		require.NoError(t, err)
		require.NoError(t, s.Rollback(m.TargetID))
		require.Equal(t, original, s.List())
	})

	t.Run("update", func(t *testing.T) {
		s := seeded(t, original...)
		next := original[1]
		next.Title = "renamed"
		next.Status = service.StatusPending
		_, err := s.ApplyOptimistic(taskstore.Update(next))
		require.NoError(t, err)
		require.NoError(t, s.Rollback("2"))
		require.Equal(t, original, s.List())
	})

	t.Run("delete", func(t *testing.T) {
		s := seeded(t, original...)
		_, err := s.ApplyOptimistic(taskstore.Delete("2"))
		require.NoError(t, err)
		require.Equal(t, []string{"1", "3"}, ids(s.List()))
		require.NoError(t, s.Rollback("2"))
		require.Equal(t, original, s.List())
	})
}

func TestApplyOptimistic_NotFoundLocal(t *testing.T) {
	s := seeded(t, task("1", "a", service.StatusPending, time.Hour))

	_, err := s.ApplyOptimistic(taskstore.Delete("3"))
	require.ErrorIs(t, err, taskstore.ErrNotFoundLocal)

	_, err = s.ApplyOptimistic(taskstore.Update(task("3", "x", service.StatusPending, 0)))
	require.ErrorIs(t, err, taskstore.ErrNotFoundLocal)

	require.Zero(t, s.PendingCount())
}

func TestApplyOptimistic_OnePendingPerID(t *testing.T) {
	s := seeded(t, task("1", "a", service.StatusPending, time.Hour))

	_, err := s.ApplyOptimistic(taskstore.Update(task("1", "a", service.StatusCompleted, time.Hour)))
	require.NoError(t, err)

	_, err = s.ApplyOptimistic(taskstore.Update(task("1", "a", service.StatusPending, time.Hour)))
	require.ErrorIs(t, err, taskstore.ErrMutationPending)
	_, err = s.ApplyOptimistic(taskstore.Delete("1"))
	require.ErrorIs(t, err, taskstore.ErrMutationPending)

	require.Equal(t, 1, s.PendingCount())
	m, ok := s.Pending("1")
	require.True(t, ok)
	require.Equal(t, taskstore.StateApplied, m.State)
	require.Equal(t, service.StatusPending, m.Prior.Status)
}

func TestOutOfOrderResolution(t *testing.T) {
	s := seeded(t,
		task("1", "A", service.StatusPending, time.Hour),
		task("2", "B", service.StatusPending, 2*time.Hour),
	)

	_, err := s.ApplyOptimistic(taskstore.Update(task("1", "A", service.StatusCompleted, time.Hour)))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(taskstore.Delete("2"))
	require.NoError(t, err)

	// The later delete fails first, then the earlier update succeeds.
	require.NoError(t, s.Rollback("2"))
	_, err = s.Confirm("1", task("1", "A", service.StatusCompleted, time.Hour))
	require.NoError(t, err)

	list := s.List()
	require.Equal(t, []string{"1", "2"}, ids(list))
	require.Equal(t, service.StatusCompleted, list[0].Status)
	require.Equal(t, service.StatusPending, list[1].Status)
}

func TestConfirmAndRollback_WithoutPending(t *testing.T) {
	s := seeded(t, task("1", "a", service.StatusPending, time.Hour))
	_, err := s.Confirm("1", task("1", "a", service.StatusPending, time.Hour))
	require.ErrorIs(t, err, taskstore.ErrNoPending)
	require.ErrorIs(t, s.Rollback("1"), taskstore.ErrNoPending)
}

func TestRekey_CarriesPendingMutation(t *testing.T) {
	s := seeded(t, task("1", "a", service.StatusPending, time.Hour))
	_, err := s.ApplyOptimistic(taskstore.Update(task("1", "b", service.StatusPending, time.Hour)))
	require.NoError(t, err)

	require.NoError(t, s.Rekey("1", "100"))

	_, ok := s.Pending("1")
	require.False(t, ok)
	m, ok := s.Pending("100")
	require.True(t, ok)
	require.Equal(t, "100", m.TargetID)
	require.Equal(t, []string{"100"}, ids(s.List()))

	require.ErrorIs(t, s.Rekey("missing", "200"), taskstore.ErrNotFoundLocal)
}

func TestReplace_DiscardsStalePending(t *testing.T) {
	s := seeded(t,
		task("1", "A", service.StatusPending, time.Hour),
		task("2", "B", service.StatusPending, 2*time.Hour),
	)
	create, err := s.ApplyOptimistic(taskstore.Create(service.Task{Title: "C"}))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(taskstore.Update(task("1", "A", service.StatusCompleted, time.Hour)))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(taskstore.Update(task("2", "B2", service.StatusPending, 2*time.Hour)))
	require.NoError(t, err)

	// Server no longer has B; A is still there with its old status.
	discarded := s.Replace([]service.Task{task("1", "A", service.StatusPending, time.Hour)})
	require.ElementsMatch(t, []string{create.TargetID, "2"}, discarded)

	require.Equal(t, 1, s.PendingCount())
	got, _ := s.Get("1")
	require.Equal(t, service.StatusCompleted, got.Status, "in-flight update stays applied")

	require.NoError(t, s.Rollback("1"))
	got, _ = s.Get("1")
	require.Equal(t, service.StatusPending, got.Status)
}

func TestCounts(t *testing.T) {
	s := seeded(t,
		task("1", "A", service.StatusPending, time.Hour),
		task("2", "B", service.StatusCompleted, 2*time.Hour),
		task("3", "C", service.StatusCompleted, 3*time.Hour),
	)
	pending, completed := s.Counts()
	require.Equal(t, 1, pending)
	require.Equal(t, 2, completed)
}

func TestIsTemporaryID(t *testing.T) {
	require.True(t, taskstore.IsTemporaryID(taskstore.NewTemporaryID()))
	require.False(t, taskstore.IsTemporaryID("42"))
}

func TestUpsert_KeepsOrder(t *testing.T) {
	s := seeded(t,
		task("1", "new", service.StatusPending, time.Hour),
		task("2", "old", service.StatusPending, 3*time.Hour),
	)

	s.Upsert(task("3", "middle", service.StatusPending, 2*time.Hour))
	require.Equal(t, []string{"1", "3", "2"}, ids(s.List()))

	s.Upsert(task("3", "renamed", service.StatusCompleted, 2*time.Hour))
	got, ok := s.Get("3")
	require.True(t, ok)
	require.Equal(t, "renamed", got.Title)
	require.Len(t, s.List(), 3)
}

func TestRollback_TwoFailedDeletesKeepOrder(t *testing.T) {
	s := seeded(t,
		task("B", "b", service.StatusPending, time.Hour),
		task("A", "a", service.StatusPending, 2*time.Hour),
		task("C", "c", service.StatusPending, 3*time.Hour),
	)

	_, err := s.ApplyOptimistic(taskstore.Delete("B"))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(taskstore.Delete("A"))
	require.NoError(t, err)

	require.NoError(t, s.Rollback("B"))
	require.NoError(t, s.Rollback("A"))
	require.Equal(t, []string{"B", "A", "C"}, ids(s.List()))
}

func TestRollback_DeleteAfterCreateKeepsNewestFirst(t *testing.T) {
	s := seeded(t,
		task("X", "x", service.StatusPending, time.Hour),
		task("Y", "y", service.StatusPending, 2*time.Hour),
	)

	_, err := s.ApplyOptimistic(taskstore.Delete("X"))
	require.NoError(t, err)
	created, err := s.ApplyOptimistic(taskstore.Create(service.Task{Title: "new"}))
	require.NoError(t, err)

	require.NoError(t, s.Rollback("X"))
	require.Equal(t, []string{created.TargetID, "X", "Y"}, ids(s.List()))
}

func TestRollback_SameCreatedAtUsesPriorIndex(t *testing.T) {
	s := seeded(t,
		task("1", "a", service.StatusPending, time.Hour),
		task("2", "b", service.StatusPending, time.Hour),
		task("3", "c", service.StatusPending, time.Hour),
	)

	_, err := s.ApplyOptimistic(taskstore.Delete("2"))
	require.NoError(t, err)
	require.NoError(t, s.Rollback("2"))
	require.Equal(t, []string{"1", "2", "3"}, ids(s.List()))
}

func TestConfirm_MovesRecordToServerCreatedAt(t *testing.T) {
	s := seeded(t,
		task("1", "a", service.StatusPending, time.Hour),
		task("2", "b", service.StatusPending, 3*time.Hour),
	)

	m, err := s.ApplyOptimistic(taskstore.Create(service.Task{Title: "new"}))
	require.NoError(t, err)
	require.Equal(t, m.TargetID, s.List()[0].ID)

	// The server dates the record between the two existing ones.
	_, err = s.Confirm(m.TargetID, task("42", "new", service.StatusPending, 2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"1", "42", "2"}, ids(s.List()))

	_, err = s.ApplyOptimistic(taskstore.Update(task("2", "b", service.StatusCompleted, 3*time.Hour)))
	require.NoError(t, err)
	_, err = s.Confirm("2", task("2", "b", service.StatusCompleted, 0))
	require.NoError(t, err)
	require.Equal(t, []string{"2", "1", "42"}, ids(s.List()))
}

func TestEditOf_BuildsFromCurrentRecord(t *testing.T) {
	s := seeded(t, task("1", "a", service.StatusPending, time.Hour))

	// A confirmation lands after the caller last read the record.
	_, err := s.ApplyOptimistic(taskstore.Update(task("1", "a", service.StatusPending, time.Hour)))
	require.NoError(t, err)
	withNotes := task("1", "a", service.StatusPending, time.Hour)
	withNotes.Description = "from server"
	_, err = s.Confirm("1", withNotes)
	require.NoError(t, err)

	m, err := s.ApplyOptimistic(taskstore.EditOf("1", func(cur service.Task) service.Task {
		cur.Status = cur.Status.Toggled()
		return cur
	}))
	require.NoError(t, err)
	require.Equal(t, "from server", m.Record.Description)
	require.Equal(t, service.StatusCompleted, m.Record.Status)
	require.Equal(t, service.StatusPending, m.Prior.Status)

	_, err = s.ApplyOptimistic(taskstore.EditOf("missing", func(cur service.Task) service.Task { return cur }))
	require.ErrorIs(t, err, taskstore.ErrNotFoundLocal)
}
