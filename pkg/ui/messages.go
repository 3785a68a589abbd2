// Package ui provides the Bubble Tea TUI for the wallet session.
package ui

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/walletgate/business/wallet/domain"
	"github.com/fd1az/walletgate/internal/networks"
)

// Message types for TUI updates

// StatusMsg is sent when the wallet session publishes a new snapshot.
type StatusMsg struct {
	Status domain.ConnectionStatus
}

// BalanceMsg is sent when the active account's balance is refreshed.
type BalanceMsg struct {
	Balance decimal.Decimal
	Symbol  string
}

// ActivityMsg is sent to append a line to the session activity feed.
type ActivityMsg struct {
	Message string
}

// NetworksMsg carries the supported network registry, sent once at startup.
type NetworksMsg struct {
	Networks []networks.Network
}

// ConnectionStatusMsg is sent when a transport link changes state.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
