// Package domain contains the core domain types for the wallet context:
// the session state machine, its events, and the network handle bound to
// an established connection.
package domain

// ConnectionState represents the wallet session lifecycle state.
type ConnectionState string

const (
	// StateDisconnected is the initial state: no session, no account.
	StateDisconnected ConnectionState = "disconnected"

	// StateConnecting means a handshake is in flight. No network or
	// account is settled while in this state.
	StateConnecting ConnectionState = "connecting"

	// StateConnected means a session is established with exactly one
	// network and one account.
	StateConnected ConnectionState = "connected"
)
