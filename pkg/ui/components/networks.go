// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// NetworkRow represents one supported network in the table.
type NetworkRow struct {
	ChainID uint64
	HexID   string
	Name    string
	Symbol  string
}

// NetworksComponent renders the supported networks table with the active
// chain highlighted.
type NetworksComponent struct {
	rows   []NetworkRow
	active uint64
}

// NewNetworksComponent creates a new networks component.
func NewNetworksComponent() *NetworksComponent {
	return &NetworksComponent{
		rows: make([]NetworkRow, 0),
	}
}

// SetNetworks replaces the table contents.
func (n *NetworksComponent) SetNetworks(rows []NetworkRow) {
	n.rows = rows
}

// SetActive marks the connected chain. Zero clears the marker.
func (n *NetworksComponent) SetActive(chainID uint64) {
	n.active = chainID
}

// View renders the networks component.
func (n *NetworksComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if len(n.rows) == 0 {
		return headerStyle.Render("NETWORKS") + "\n\n" +
			dimStyle.Render("  No supported networks configured...")
	}

	result := headerStyle.Render("SUPPORTED NETWORKS") + "\n"
	result += "┌───┬─────────┬──────────┬──────────────────────┬───────┐\n"
	result += "│   │  Chain  │   Hex    │         Name         │ Token │\n"
	result += "├───┼─────────┼──────────┼──────────────────────┼───────┤\n"

	for _, row := range n.rows {
		marker := " "
		line := fmt.Sprintf("│ %s │%8d │%9s │ %-20s │%6s │\n",
			marker, row.ChainID, row.HexID, row.Name, row.Symbol)
		if n.active != 0 && row.ChainID == n.active {
			marker = "▸"
			line = activeStyle.Render(fmt.Sprintf("│ %s │%8d │%9s │ %-20s │%6s │",
				marker, row.ChainID, row.HexID, row.Name, row.Symbol)) + "\n"
		}
		result += line
	}

	result += "└───┴─────────┴──────────┴──────────────────────┴───────┘"

	return result
}
