// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// SessionInfo holds the wallet session snapshot for display. All values
// arrive pre-formatted; the component does no domain logic of its own.
type SessionInfo struct {
	State   string // "disconnected", "connecting", "connected"
	Account string
	Network string
	ChainID string
	Error   string
}

// SessionComponent renders the wallet session panel.
type SessionComponent struct {
	info       SessionInfo
	balance    decimal.Decimal
	symbol     string
	hasBalance bool
}

// NewSessionComponent creates a new session component.
func NewSessionComponent() *SessionComponent {
	return &SessionComponent{
		info: SessionInfo{State: "disconnected"},
	}
}

// Update replaces the session snapshot. Leaving the connected state drops
// the cached balance so a stale figure never outlives its session.
func (s *SessionComponent) Update(info SessionInfo) {
	if info.State != "connected" {
		s.hasBalance = false
	}
	s.info = info
}

// SetBalance sets the active account's balance in native units.
func (s *SessionComponent) SetBalance(balance decimal.Decimal, symbol string) {
	s.balance = balance
	s.symbol = symbol
	s.hasBalance = true
}

// View renders the session component.
func (s *SessionComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	connectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	connectingStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	disconnectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	balanceStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var result string
	result = headerStyle.Render("SESSION")
	result += "\n\n"

	var badge string
	switch s.info.State {
	case "connected":
		badge = connectedStyle.Render("● CONNECTED")
	case "connecting":
		badge = connectingStyle.Render("◐ CONNECTING")
	default:
		badge = disconnectedStyle.Render("○ DISCONNECTED")
	}
	result += "  " + badge + "\n\n"

	switch s.info.State {
	case "connected":
		result += fmt.Sprintf("  %-10s %s\n", dimStyle.Render("Account"), valueStyle.Render(shortenAddress(s.info.Account)))
		result += fmt.Sprintf("  %-10s %s %s\n",
			dimStyle.Render("Network"),
			valueStyle.Render(s.info.Network),
			dimStyle.Render(s.info.ChainID),
		)
		if s.hasBalance {
			result += fmt.Sprintf("  %-10s %s\n",
				dimStyle.Render("Balance"),
				balanceStyle.Render(s.balance.StringFixed(4)+" "+s.symbol),
			)
		} else {
			result += fmt.Sprintf("  %-10s %s\n", dimStyle.Render("Balance"), dimStyle.Render("loading..."))
		}
	case "connecting":
		result += dimStyle.Render("  Handshake in flight...") + "\n"
	default:
		result += dimStyle.Render("  No active session. Press c to connect.") + "\n"
	}

	if s.info.Error != "" {
		result += "\n"
		result += errorStyle.Render("  ⚠ "+s.info.Error) + "\n"
	}

	return result
}

// shortenAddress renders 0x1234...abcd for full-length hex addresses and
// passes anything shorter through untouched.
func shortenAddress(addr string) string {
	if len(addr) <= 13 || !strings.HasPrefix(addr, "0x") {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
