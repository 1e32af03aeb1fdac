// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"tasksync/internal/service"
)

const (
	// MarkPending and MarkCompleted prefix task titles.
	MarkPending   = "[ ]"
	MarkCompleted = "[x]"
)

// Theme holds the styles used when writing to a terminal. The zero Theme
// writes plain text.
type Theme struct {
	Enabled   bool
	Completed lipgloss.Style
	Pending   lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
}

// Plain writes unstyled text.
var Plain = Theme{}

// ColorTheme returns the terminal theme.
func ColorTheme() Theme {
	return Theme{
		Enabled:   true,
		Completed: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Strikethrough(true),
		Pending:   lipgloss.NewStyle().Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

// ThemeFor picks ColorTheme for terminals and Plain for everything else.
func ThemeFor(w io.Writer) Theme {
	if IsTerminal(w) {
		return ColorTheme()
	}
	return Plain
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render applies style when the theme is enabled.
func (t Theme) Render(style lipgloss.Style, s string) string {
	if !t.Enabled {
		return s
	}
	return style.Render(s)
}

// FormatTask formats a task line for the list command.
// Format: "{N:>4}  {MARK} {TITLE}  #{ID}\n", followed by an indented
// description line when the task has one.
func FormatTask(w io.Writer, theme Theme, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s\n", num, TaskLine(theme, task))
	if strings.TrimSpace(task.Description) != "" {
		fmt.Fprintf(w, "          %s\n", theme.Render(theme.Muted, normalizeTitle(task.Description)))
	}
}

// TaskLine renders the mark, title and id of a task on one line.
func TaskLine(theme Theme, task service.Task) string {
	title := normalizeTitle(task.Title)
	mark := MarkPending
	if task.Completed() {
		mark = MarkCompleted
		title = theme.Render(theme.Completed, title)
	} else {
		title = theme.Render(theme.Pending, title)
	}
	return mark + " " + title + "  " + theme.Render(theme.Muted, "#"+task.ID)
}

// FormatCounts formats the pending/completed counter line.
func FormatCounts(w io.Writer, pending, completed int) {
	fmt.Fprintf(w, "%d pending, %d completed\n", pending, completed)
}

// FormatError writes an error line to w.
func FormatError(w io.Writer, theme Theme, msg string) {
	fmt.Fprintln(w, theme.Render(theme.Error, "error: "+msg))
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// FormatListName formats a list line for the lists command.
// Format: "{ID}  {TITLE}[ [default]][ *]\n", the star marking the list in use.
func FormatListName(w io.Writer, list service.TaskList, current bool) {
	title := normalizeTitle(list.Title)
	if list.IsDefault {
		title += " [default]"
	}
	if current {
		title += " *"
	}
	fmt.Fprintf(w, "%s  %s\n", list.ID, title)
}
