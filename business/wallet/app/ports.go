// Package app contains application services and port definitions for the wallet context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/walletgate/business/wallet/domain"
)

// Provider is the wallet surface the session controller depends on: raw
// JSON-RPC requests plus the three notification channels every injected
// wallet emits. Registering a handler replaces any previous one for that
// channel, so re-attaching after a reconnect never duplicates delivery.
// Handlers are never removed once attached.
type Provider interface {
	domain.Requester

	// OnAccountsChanged registers the handler for account-list changes.
	// The provider reports the authorized accounts most-recently-used
	// first; an empty list means access was revoked.
	OnAccountsChanged(fn func(ctx context.Context, accounts []string))

	// OnChainChanged registers the handler for chain switches. The chain
	// id arrives in the provider's wire form (hex or decimal string).
	OnChainChanged(fn func(ctx context.Context, chainID string))

	// OnDisconnect registers the handler for provider-initiated
	// disconnects.
	OnDisconnect(fn func(ctx context.Context, err error))
}

// ProviderSource resolves the wallet provider for one attempt. The
// controller re-resolves at the start of every connect and refresh, so a
// provider that appears, is replaced, or goes away after startup is
// picked up by the next attempt instead of being read from stale state.
type ProviderSource interface {
	// Current returns the provider to use now, or an error carrying
	// apperror.CodeNoProvider when none is available.
	Current(ctx context.Context) (Provider, error)
}

// Reporter mirrors session activity to an output surface.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// UpdateStatus pushes a session snapshot to the display.
	UpdateStatus(status domain.ConnectionStatus)

	// UpdateBalance pushes the active account's native balance.
	UpdateBalance(balance decimal.Decimal, symbol string)

	// Activity records a line of session activity.
	Activity(message string)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
