package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Trigger identifies the kind of a session event.
type Trigger string

const (
	// TriggerConnectRequested is raised when an explicit connect is initiated.
	TriggerConnectRequested Trigger = "connect_requested"

	// TriggerProviderDetected is raised when a wallet provider becomes
	// available at startup.
	TriggerProviderDetected Trigger = "provider_detected"

	// TriggerAccountChanged is raised when the provider switches to a
	// different account.
	TriggerAccountChanged Trigger = "account_changed"

	// TriggerNetworkChanged is raised when the provider switches chains.
	TriggerNetworkChanged Trigger = "network_changed"

	// TriggerConnectionSucceeded is raised when a handshake settles with a
	// network and an account.
	TriggerConnectionSucceeded Trigger = "connection_succeeded"

	// TriggerConnectionFailed is raised when a handshake fails.
	TriggerConnectionFailed Trigger = "connection_failed"

	// TriggerDisconnectRequested is raised when an explicit disconnect is
	// initiated. The state machine has no edge for it; the session layer
	// translates it into TriggerDisconnected.
	TriggerDisconnectRequested Trigger = "disconnect_requested"

	// TriggerDisconnected is raised when the session ends, whether by
	// request, provider disconnect, or account revocation.
	TriggerDisconnected Trigger = "disconnected"
)

// Event is one occurrence in the session lifecycle. Only the fields
// relevant to its trigger are set.
type Event struct {
	Trigger Trigger

	// Account is set for TriggerAccountChanged and TriggerConnectionSucceeded.
	Account common.Address

	// ChainID is set for TriggerNetworkChanged. It is the raw id reported
	// by the provider, before any support check.
	ChainID uint64

	// Network is set for TriggerConnectionSucceeded.
	Network *NetworkHandle

	// Err is set for TriggerConnectionFailed.
	Err error
}

// ConnectRequested builds the event raised by an explicit connect.
func ConnectRequested() Event {
	return Event{Trigger: TriggerConnectRequested}
}

// ProviderDetected builds the event raised when a provider is found.
func ProviderDetected() Event {
	return Event{Trigger: TriggerProviderDetected}
}

// AccountChanged builds the event raised when the active account switches.
func AccountChanged(account common.Address) Event {
	return Event{Trigger: TriggerAccountChanged, Account: account}
}

// NetworkChanged builds the event raised when the active chain switches.
func NetworkChanged(chainID uint64) Event {
	return Event{Trigger: TriggerNetworkChanged, ChainID: chainID}
}

// ConnectionSucceeded builds the event that settles a handshake.
func ConnectionSucceeded(network *NetworkHandle, account common.Address) Event {
	return Event{Trigger: TriggerConnectionSucceeded, Network: network, Account: account}
}

// ConnectionFailed builds the event that aborts a handshake.
func ConnectionFailed(err error) Event {
	return Event{Trigger: TriggerConnectionFailed, Err: err}
}

// DisconnectRequested builds the event raised by an explicit disconnect.
func DisconnectRequested() Event {
	return Event{Trigger: TriggerDisconnectRequested}
}

// Disconnected builds the event that ends the session.
func Disconnected() Event {
	return Event{Trigger: TriggerDisconnected}
}
