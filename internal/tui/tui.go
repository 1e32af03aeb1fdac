// Package tui is the interactive task list. Every engine call runs as a
// tea.Cmd, so several intents can be in flight while the list keeps
// rendering the optimistic state.
package tui

import (
	"context"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tasksync/internal/engine"
	"tasksync/internal/output"
	"tasksync/internal/service"
	"tasksync/internal/session"
)

// Engine is the subset of the sync engine the TUI drives.
type Engine interface {
	CreateTask(ctx context.Context, title string) (service.Task, error)
	ToggleStatus(ctx context.Context, id string) (service.Task, error)
	RenameTask(ctx context.Context, id, title string) (service.Task, error)
	DeleteTask(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
	Tasks(f engine.Filter) []service.Task
	Counts() (pending, completed int)
	Busy(id string) bool
}

// Session is the subset of the session store the TUI reads.
type Session interface {
	Current() (session.Session, bool)
}

// Options configures Run.
type Options struct {
	Engine  Engine
	Session Session

	// Notices carries engine notices; see NewNotifier.
	Notices <-chan engine.Notice

	// SessionEvents reports logins and logouts made elsewhere. May be nil.
	SessionEvents <-chan session.Event

	Theme output.Theme
}

// NewNotifier returns an engine.Notifier feeding the returned channel.
// Notices are dropped rather than blocking the engine when the UI lags.
func NewNotifier() (engine.Notifier, <-chan engine.Notice) {
	ch := make(chan engine.Notice, 32)
	return engine.NotifierFunc(func(n engine.Notice) {
		select {
		case ch <- n:
		default:
		}
	}), ch
}

type mode int

const (
	modeList mode = iota
	modeInput
	modeConfirm
	modeLoggedOut
)

type inputPurpose int

const (
	inputNew inputPurpose = iota
	inputRename
)

type (
	// intentDoneMsg reports the end of one engine call.
	intentDoneMsg struct{ err error }
	noticeMsg     engine.Notice
	sessionMsg    session.Event
	tickMsg       time.Time
	ctxDoneMsg    struct{}
)

const tickInterval = 150 * time.Millisecond

type model struct {
	ctx  context.Context
	opts Options

	mode     mode
	filter   engine.Filter
	cursor   int
	inFlight int
	loaded   bool

	input   []rune
	purpose inputPurpose
	target  service.Task

	notice engine.Notice
	hasMsg bool

	width int
}

func newModel(ctx context.Context, opts Options) model {
	// The initial load counts as in flight.
	return model{ctx: ctx, opts: opts, inFlight: 1}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	defer bestEffortResetTTY()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(ctx, opts), tea.WithAltScreen(), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{run(m.ctx, m.opts.Engine.Refresh), tickCmd(), waitCtxDone(m.ctx)}
	if m.opts.Notices != nil {
		cmds = append(cmds, waitForNotice(m.opts.Notices))
	}
	if m.opts.SessionEvents != nil {
		cmds = append(cmds, waitForSession(m.opts.SessionEvents))
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitCtxDone(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return ctxDoneMsg{}
	}
}

func waitForNotice(ch <-chan engine.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func waitForSession(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg(ev)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ctxDoneMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		// Re-render so optimistic changes show while calls are in flight.
		return m, tickCmd()

	case noticeMsg:
		m.notice = engine.Notice(msg)
		m.hasMsg = true
		return m, waitForNotice(m.opts.Notices)

	case sessionMsg:
		if !msg.Authenticated {
			m.mode = modeLoggedOut
		}
		return m, waitForSession(m.opts.SessionEvents)

	case intentDoneMsg:
		m.inFlight--
		m.loaded = true
		if _, ok := m.opts.Session.Current(); !ok {
			m.mode = modeLoggedOut
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeLoggedOut:
			return m, tea.Quit
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}

	case "f":
		m.filter = m.filter.Next()
		m.cursor = 0

	case "r":
		cmd := m.intent(m.opts.Engine.Refresh)
		return m, cmd

	case "n":
		m.mode = modeInput
		m.purpose = inputNew
		m.input = nil

	case "e":
		if t, ok := m.selected(); ok {
			m.mode = modeInput
			m.purpose = inputRename
			m.target = t
			m.input = []rune(t.Title)
		}

	case " ", "enter", "t":
		if t, ok := m.selected(); ok {
			id := t.ID
			cmd := m.intent(func(ctx context.Context) error {
				_, err := m.opts.Engine.ToggleStatus(ctx, id)
				return err
			})
			return m, cmd
		}

	case "d", "delete":
		if t, ok := m.selected(); ok {
			m.mode = modeConfirm
			m.target = t
		}
	}
	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.mode = modeList
		m.input = nil
		return m, nil
	case tea.KeyEnter:
		text := string(m.input)
		m.mode = modeList
		m.input = nil
		if m.purpose == inputRename {
			id := m.target.ID
			cmd := m.intent(func(ctx context.Context) error {
				_, err := m.opts.Engine.RenameTask(ctx, id, text)
				return err
			})
			return m, cmd
		}
		m.cursor = 0
		cmd := m.intent(func(ctx context.Context) error {
			_, err := m.opts.Engine.CreateTask(ctx, text)
			return err
		})
		return m, cmd
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeList
	switch strings.ToLower(msg.String()) {
	case "y":
		id := m.target.ID
		cmd := m.intent(func(ctx context.Context) error {
			return m.opts.Engine.DeleteTask(ctx, id)
		})
		return m, cmd
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// intent runs one engine call off the update loop. The engine has applied
// its optimistic change by the time the call blocks on the network.
func (m *model) intent(call func(ctx context.Context) error) tea.Cmd {
	m.inFlight++
	return run(m.ctx, call)
}

func run(ctx context.Context, call func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return intentDoneMsg{err: call(ctx)}
	}
}

func (m model) visible() []service.Task {
	return m.opts.Engine.Tasks(m.filter)
}

func (m model) selected() (service.Task, bool) {
	tasks := m.visible()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return service.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
