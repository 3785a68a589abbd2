// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a transport link's status.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders transport link status for the status bar.
type StatusComponent struct {
	links []ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{
		links: make([]ConnectionStatus, 0),
	}
}

// Update upserts a link's status, keeping first-seen order.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, link := range s.links {
		if link.Name == status.Name {
			s.links[i] = status
			return
		}
	}
	s.links = append(s.links, status)
}

// View renders the links as " │ "-joined status bar segments.
func (s *StatusComponent) View() string {
	if len(s.links) == 0 {
		return ""
	}

	upStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	downStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	segments := make([]string, 0, len(s.links))
	for _, link := range s.links {
		if link.Connected {
			segment := "● " + link.Name
			if link.Latency > 0 {
				segment += fmt.Sprintf(" (%s)", link.Latency.Round(time.Millisecond))
			}
			segments = append(segments, upStyle.Render(segment))
			continue
		}
		segments = append(segments, downStyle.Render("○ "+link.Name+" (down)"))
	}

	return strings.Join(segments, "  │  ")
}
