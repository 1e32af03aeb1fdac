package testutil

import (
	"sync"

	"tasksync/internal/engine"
)

// RecordingNotifier collects notices.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []engine.Notice
}

// Notify implements engine.Notifier.
func (r *RecordingNotifier) Notify(n engine.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns everything received so far.
func (r *RecordingNotifier) Notices() []engine.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Errors returns only error notices.
func (r *RecordingNotifier) Errors() []engine.Notice {
	var out []engine.Notice
	for _, n := range r.Notices() {
		if n.Kind == engine.NoticeError {
			out = append(out, n)
		}
	}
	return out
}
