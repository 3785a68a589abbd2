package infra

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/walletgate/business/wallet/domain"
	"github.com/fd1az/walletgate/internal/networks"
)

func TestConsoleReporter_WritesSessionLines(t *testing.T) {
	var buf bytes.Buffer
	r := &ConsoleReporter{out: &buf}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	handle := domain.NewNetworkHandle(networks.Network{ChainID: 137, Name: "Polygon", NativeSymbol: "POL"}, account, nil)
	r.UpdateStatus(domain.ConnectionStatus{State: domain.StateConnected, Network: handle, Account: account})
	r.UpdateStatus(domain.ConnectionStatus{State: domain.StateConnecting})
	r.UpdateStatus(domain.ConnectionStatus{State: domain.StateDisconnected, Err: errors.New("user rejected")})
	r.UpdateBalance(decimal.RequireFromString("1.5"), "POL")
	r.Activity("session refreshed")

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"WalletGate Started",
		"session connected: " + account.Hex() + " on Polygon (137)",
		"session connecting...",
		"session disconnected (error: user rejected)",
		"balance: 1.5000 POL",
		"session refreshed",
		"WalletGate Stopped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\noutput:\n%s", want, out)
		}
	}
}
