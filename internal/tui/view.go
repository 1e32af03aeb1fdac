package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tasksync/internal/engine"
	"tasksync/internal/output"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

const helpLine = "n new · space toggle · e rename · d delete · f filter · r refresh · q quit"

func (m model) View() string {
	th := m.opts.Theme
	var b strings.Builder

	who := "not logged in"
	if sess, ok := m.opts.Session.Current(); ok {
		who = sess.Identity.Email
	}
	b.WriteString(th.Render(headerStyle, "tasksync") + "  " + th.Render(dimStyle, who) + "\n")

	if m.mode == modeLoggedOut {
		b.WriteString("\nSession ended. Run `tasksync login`, then start the TUI again.\n")
		b.WriteString(th.Render(dimStyle, "Press any key to exit.") + "\n")
		return b.String()
	}

	pending, completed := m.opts.Engine.Counts()
	fmt.Fprintf(&b, "Filter: %s   %d pending, %d completed\n\n", m.filter, pending, completed)

	tasks := m.visible()
	switch {
	case len(tasks) == 0 && !m.loaded:
		b.WriteString(th.Render(dimStyle, "  loading…") + "\n")
	case len(tasks) == 0:
		b.WriteString(th.Render(dimStyle, "  no tasks") + "\n")
	}
	for i, t := range tasks {
		prefix := "  "
		if i == m.cursor {
			prefix = th.Render(cursorStyle, "> ")
		}
		line := output.TaskLine(th, t)
		if m.opts.Engine.Busy(t.ID) {
			line += th.Render(dimStyle, " (saving)")
		}
		b.WriteString(prefix + line + "\n")
	}

	switch m.mode {
	case modeInput:
		label := "New task"
		if m.purpose == inputRename {
			label = "Rename"
		}
		b.WriteString("\n" + th.Render(boxStyle, label+": "+string(m.input)+"█") + "\n")
	case modeConfirm:
		fmt.Fprintf(&b, "\nDelete %q? (y/n)\n", m.target.Title)
	}

	b.WriteString("\n")
	if m.hasMsg {
		style := th.Success
		if m.notice.Kind == engine.NoticeError {
			style = th.Error
		}
		b.WriteString(th.Render(style, m.notice.Message) + "\n")
	} else if m.inFlight > 0 {
		b.WriteString(th.Render(dimStyle, "syncing…") + "\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(th.Render(dimStyle, helpLine) + "\n")
	return b.String()
}
