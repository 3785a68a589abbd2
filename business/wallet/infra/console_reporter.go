// Package infra contains infrastructure adapters for the wallet context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/walletgate/business/wallet/domain"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "WalletGate Started")
	fmt.Fprintln(r.out, "==================")
	return nil
}

// UpdateStatus outputs a session snapshot to the console.
func (r *ConsoleReporter) UpdateStatus(status domain.ConnectionStatus) {
	var line string
	switch {
	case status.IsConnected() && status.Network != nil:
		line = fmt.Sprintf("session connected: %s on %s",
			status.Account.Hex(), status.Network.Network().String())
	case status.IsLoading():
		line = "session connecting..."
	default:
		line = "session disconnected"
	}
	if status.Err != nil {
		line += fmt.Sprintf(" (error: %v)", status.Err)
	}
	fmt.Fprintf(r.out, "[%s] %s\n", time.Now().Format("15:04:05"), line)
}

// UpdateBalance outputs the active account's native balance.
func (r *ConsoleReporter) UpdateBalance(balance decimal.Decimal, symbol string) {
	fmt.Fprintf(r.out, "[%s] balance: %s %s\n",
		time.Now().Format("15:04:05"), balance.StringFixed(4), symbol)
}

// Activity outputs a line of session activity.
func (r *ConsoleReporter) Activity(message string) {
	fmt.Fprintf(r.out, "[%s] %s\n", time.Now().Format("15:04:05"), message)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "WalletGate Stopped")
	return nil
}
