// Package infra contains infrastructure adapters for the wallet context.
package infra

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/walletgate/business/wallet/domain"
	"github.com/fd1az/walletgate/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea TUI. It forwards
// session updates as messages; the program itself is owned by main, and
// ui.Send drops messages until it is running, so the reporter works from
// the first snapshot regardless of startup order.
type TUIReporter struct{}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start initializes the TUI reporter.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// UpdateStatus sends a session snapshot to the TUI.
func (r *TUIReporter) UpdateStatus(status domain.ConnectionStatus) {
	ui.Send(ui.StatusMsg{Status: status})
}

// UpdateBalance sends the active account's balance to the TUI.
func (r *TUIReporter) UpdateBalance(balance decimal.Decimal, symbol string) {
	ui.Send(ui.BalanceMsg{Balance: balance, Symbol: symbol})
}

// Activity sends a session activity line to the TUI.
func (r *TUIReporter) Activity(message string) {
	ui.Send(ui.ActivityMsg{Message: message})
}

// Stop gracefully shuts down the TUI reporter.
func (r *TUIReporter) Stop() error {
	return nil
}
