// Package components provides reusable TUI components.
package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ActivityComponent renders the rolling session activity feed.
type ActivityComponent struct {
	entries []string
	max     int
}

// NewActivityComponent creates a new activity component keeping the last
// max entries.
func NewActivityComponent(max int) *ActivityComponent {
	if max <= 0 {
		max = 8
	}
	return &ActivityComponent{
		entries: make([]string, 0, max),
		max:     max,
	}
}

// Add appends a timestamped entry, dropping the oldest past the limit.
func (a *ActivityComponent) Add(message string) {
	line := "[" + time.Now().Format("15:04:05") + "] " + message
	a.entries = append(a.entries, line)
	if len(a.entries) > a.max {
		a.entries = a.entries[len(a.entries)-a.max:]
	}
}

// Clear drops all entries.
func (a *ActivityComponent) Clear() {
	a.entries = a.entries[:0]
}

// View renders the activity component.
func (a *ActivityComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("ACTIVITY"))
	sb.WriteString("\n\n")

	if len(a.entries) == 0 {
		sb.WriteString(mutedStyle.Render("  No session activity yet..."))
		return sb.String()
	}

	for _, entry := range a.entries {
		style := mutedStyle
		lower := strings.ToLower(entry)
		switch {
		case strings.Contains(lower, "fail") || strings.Contains(lower, "error") || strings.Contains(lower, "rejected"):
			style = badStyle
		case strings.Contains(lower, "connected") && !strings.Contains(lower, "disconnected"):
			style = okStyle
		}
		sb.WriteString(style.Render("  " + entry))
		sb.WriteString("\n")
	}

	return sb.String()
}
