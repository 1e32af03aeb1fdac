package session

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Event reports the session after the file changed on disk.
type Event struct {
	Session       Session
	Authenticated bool
}

// Watch reloads the store whenever the session file is written, replaced or
// removed by another process, and emits the new state. The channel closes
// when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan Event, error) {
	dir := filepath.Dir(s.path)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The file itself may not exist yet; watch its directory.
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	events := make(chan Event, 4)
	name := filepath.Clean(s.path)

	go func() {
		defer fsw.Close()
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if err := s.Load(); err != nil {
					s.logger.Warn().Err(err).Msg("session reload failed")
				}
				cur, ok := s.Current()
				select {
				case events <- Event{Session: cur, Authenticated: ok}:
				default:
				}
				s.logger.Debug().Str("op", ev.Op.String()).Bool("authenticated", ok).Msg("session file changed")
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				s.logger.Error().Err(err).Msg("session watcher error")
			}
		}
	}()
	return events, nil
}
