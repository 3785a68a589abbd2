package domain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/walletgate/internal/networks"
)

func TestConnectionStatus_Validate(t *testing.T) {
	account := common.HexToAddress("0xabc0000000000000000000000000000000000000")
	handle := NewNetworkHandle(networks.Network{ChainID: 1, Name: "Ethereum"}, account, nil)

	tests := []struct {
		name    string
		status  ConnectionStatus
		wantErr bool
	}{
		{
			name:   "disconnected",
			status: ConnectionStatus{State: StateDisconnected},
		},
		{
			name:   "connecting has nothing settled",
			status: ConnectionStatus{State: StateConnecting},
		},
		{
			name:   "connected with network and account",
			status: ConnectionStatus{State: StateConnected, Network: handle, Account: account},
		},
		{
			name:    "connected without network",
			status:  ConnectionStatus{State: StateConnected},
			wantErr: true,
		},
		{
			name:    "network without account",
			status:  ConnectionStatus{State: StateConnected, Network: handle},
			wantErr: true,
		},
		{
			name:    "account without network",
			status:  ConnectionStatus{State: StateConnected, Account: account},
			wantErr: true,
		},
		{
			name:    "disconnected with leftover session",
			status:  ConnectionStatus{State: StateDisconnected, Network: handle, Account: account},
			wantErr: true,
		},
		{
			name:    "connecting with leftover session",
			status:  ConnectionStatus{State: StateConnecting, Network: handle, Account: account},
			wantErr: true,
		},
		{
			name:   "failure resting status carries the error",
			status: ConnectionStatus{State: StateDisconnected, Err: errors.New("rejected")},
		},
		{
			name: "error alongside settled session",
			status: ConnectionStatus{
				State: StateConnected, Network: handle, Account: account,
				Err: errors.New("stale"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.status.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnectionStatus_Flags(t *testing.T) {
	if !(ConnectionStatus{State: StateConnecting}).IsLoading() {
		t.Error("connecting must report loading")
	}
	if (ConnectionStatus{State: StateConnected}).IsLoading() {
		t.Error("connected must not report loading")
	}
	if (ConnectionStatus{State: StateDisconnected}).IsLoading() {
		t.Error("disconnected must not report loading")
	}
	if !(ConnectionStatus{State: StateConnected}).IsConnected() {
		t.Error("connected must report connected")
	}
	if (ConnectionStatus{State: StateConnecting}).IsConnected() {
		t.Error("connecting must not report connected")
	}
}
