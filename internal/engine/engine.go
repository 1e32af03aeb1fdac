// Package engine turns user intents into the optimistic protocol: apply the
// change to the task store, send it to the remote service, then confirm the
// server's answer or roll the change back and tell the notifier.
//
// The engine keeps no task state of its own. Methods block only on the
// remote call and may be called from several goroutines; intents on
// different tasks proceed independently, while a second intent on a task
// with a change in flight fails with ErrBusy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tasksync/internal/service"
	"tasksync/internal/taskstore"
)

// NoticeKind distinguishes success from error notices.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notice is a message for the user.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Notifier displays notices. The engine decides when, never how.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// SessionCloser drops the session when the server rejects it.
type SessionCloser interface {
	Logout() error
}

// Engine orchestrates optimistic mutations.
type Engine struct {
	store    *taskstore.Store
	remote   service.Service
	session  SessionCloser
	notifier Notifier
	logger   zerolog.Logger
}

// New creates an Engine. session and notifier may be nil.
func New(store *taskstore.Store, remote service.Service, session SessionCloser, notifier Notifier, logger zerolog.Logger) *Engine {
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}
	return &Engine{
		store:    store,
		remote:   remote,
		session:  session,
		notifier: notifier,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// CreateTask adds a pending task titled title.
func (e *Engine) CreateTask(ctx context.Context, title string) (service.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, e.reject(fmt.Errorf("%w: title required", ErrValidationLocal))
	}

	m, err := e.store.ApplyOptimistic(taskstore.Create(service.Task{Title: title, Status: service.StatusPending}))
	if err != nil {
		return service.Task{}, e.reject(err)
	}

	return e.dispatch(ctx, m, "create "+quote(title), func(ctx context.Context) (service.Task, error) {
		return e.remote.CreateTask(ctx, m.Record.Title, m.Record.Description, m.Record.Status)
	})
}

// ToggleStatus flips a task between pending and completed.
func (e *Engine) ToggleStatus(ctx context.Context, id string) (service.Task, error) {
	return e.update(ctx, id, "update", func(cur service.Task) service.Task {
		cur.Status = cur.Status.Toggled()
		return cur
	})
}

// RenameTask changes a task's title.
func (e *Engine) RenameTask(ctx context.Context, id, title string) (service.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, e.reject(fmt.Errorf("%w: title required", ErrValidationLocal))
	}
	return e.update(ctx, id, "rename", func(cur service.Task) service.Task {
		cur.Title = title
		return cur
	})
}

// update sends the whole last-known record with the changed fields, since
// the remote replaces the resource. edit runs on the record as the store
// holds it when the change is applied.
func (e *Engine) update(ctx context.Context, id, verb string, edit func(service.Task) service.Task) (service.Task, error) {
	m, err := e.store.ApplyOptimistic(taskstore.EditOf(id, edit))
	if err != nil {
		return service.Task{}, e.reject(err)
	}
	return e.dispatch(ctx, m, verb+" "+quote(m.Prior.Title), func(ctx context.Context) (service.Task, error) {
		return e.remote.ReplaceTask(ctx, m.Record)
	})
}

// DeleteTask removes a task. Asking the user for confirmation is the
// caller's job.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	m, err := e.store.ApplyOptimistic(taskstore.Delete(id))
	if err != nil {
		return e.reject(err)
	}
	_, err = e.dispatch(ctx, m, "delete "+quote(m.Prior.Title), func(ctx context.Context) (service.Task, error) {
		return service.Task{}, e.remote.DeleteTask(ctx, id)
	})
	return err
}

// Refresh replaces the local view with the server's list. Pending changes
// for tasks the server no longer lists are dropped.
func (e *Engine) Refresh(ctx context.Context) error {
	tasks, err := e.remote.ListTasks(ctx)
	if err != nil {
		err = classify(err)
		e.handleUnauthorized(err)
		e.notifier.Notify(Notice{Kind: NoticeError, Message: "Failed to load tasks: " + reason(err)})
		e.logger.Info().Err(err).Msg("refresh failed")
		return err
	}
	discarded := e.store.Replace(tasks)
	if len(discarded) > 0 {
		e.logger.Info().Strs("ids", discarded).Msg("refresh discarded pending changes")
	}
	e.logger.Debug().Int("count", len(tasks)).Msg("refreshed")
	return nil
}

// Tasks returns the local view filtered by f, most recent first.
func (e *Engine) Tasks(f Filter) []service.Task {
	all := e.store.List()
	if f == FilterAll {
		return all
	}
	out := make([]service.Task, 0, len(all))
	for _, t := range all {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns the number of pending and completed tasks.
func (e *Engine) Counts() (pending, completed int) {
	return e.store.Counts()
}

// Busy reports whether id has a change in flight.
func (e *Engine) Busy(id string) bool {
	_, ok := e.store.Pending(id)
	return ok
}

// dispatch runs the remote half of an applied mutation and settles it.
func (e *Engine) dispatch(ctx context.Context, m taskstore.Mutation, action string, call func(context.Context) (service.Task, error)) (service.Task, error) {
	log := e.logger.With().Str("id", m.TargetID).Str("kind", m.Kind.String()).Logger()

	server, err := call(ctx)
	if err != nil {
		err = classify(err)
		if rerr := e.store.Rollback(m.TargetID); rerr != nil && !errors.Is(rerr, taskstore.ErrNoPending) {
			log.Error().Err(rerr).Msg("rollback failed")
		}
		e.handleUnauthorized(err)
		e.notifier.Notify(Notice{Kind: NoticeError, Message: "Failed to " + action + ": " + reason(err)})
		log.Info().Err(err).Msg("change rolled back")
		return service.Task{}, err
	}

	confirmed, err := e.store.Confirm(m.TargetID, server)
	switch {
	case errors.Is(err, taskstore.ErrNoPending):
		// A refresh dropped the mutation while it was in flight. A created
		// record is still real, so keep it.
		if m.Kind == taskstore.KindCreate {
			e.store.Upsert(server)
		}
		log.Debug().Msg("confirmation arrived after refresh")
		confirmed = server
	case err != nil:
		log.Error().Err(err).Msg("confirm failed")
		return service.Task{}, err
	}

	log.Debug().Str("server_id", confirmed.ID).Msg("change confirmed")
	e.notifier.Notify(Notice{Kind: NoticeSuccess, Message: successMessage(m.Kind)})
	return confirmed, nil
}

// reject reports a local failure. Nothing was changed or sent.
func (e *Engine) reject(err error) error {
	msg := "Cannot do that: " + reason(err)
	if errors.Is(err, ErrValidationLocal) {
		msg = "Title required"
	}
	e.notifier.Notify(Notice{Kind: NoticeError, Message: msg})
	return err
}

func (e *Engine) handleUnauthorized(err error) {
	if e.session == nil || !errors.Is(err, ErrUnauthorized) {
		return
	}
	if lerr := e.session.Logout(); lerr != nil {
		e.logger.Error().Err(lerr).Msg("forced logout failed")
		return
	}
	e.logger.Info().Msg("session rejected by server, logged out")
}

func successMessage(k taskstore.Kind) string {
	switch k {
	case taskstore.KindCreate:
		return "Task created"
	case taskstore.KindDelete:
		return "Task deleted"
	default:
		return "Task updated"
	}
}

func quote(title string) string {
	return "\"" + title + "\""
}
