package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/walletgate/internal/networks"
)

// recordingRequester captures the last call and plays back a canned result.
type recordingRequester struct {
	method string
	params []any
	result json.RawMessage
	err    error
}

func (r *recordingRequester) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	r.method = method
	r.params = params
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

var testAccount = common.HexToAddress("0xabc0000000000000000000000000000000000000")

func testHandle(req Requester) *NetworkHandle {
	return NewNetworkHandle(networks.Network{
		ChainID:        1,
		Name:           "Ethereum",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
	}, testAccount, req)
}

func TestNetworkHandle_SignMessage(t *testing.T) {
	req := &recordingRequester{result: json.RawMessage(`"0xdeadbeef"`)}
	h := testHandle(req)

	sig, err := h.SignMessage(context.Background(), []byte("hello"))
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}
	if sig != "0xdeadbeef" {
		t.Errorf("signature = %q, want 0xdeadbeef", sig)
	}
	if req.method != MethodPersonalSign {
		t.Errorf("method = %q, want %q", req.method, MethodPersonalSign)
	}
	if len(req.params) != 2 {
		t.Fatalf("params = %d, want 2", len(req.params))
	}
	// personal_sign takes (hex message, account)
	if req.params[0] != "0x68656c6c6f" {
		t.Errorf("message param = %v, want 0x68656c6c6f", req.params[0])
	}
	if req.params[1] != testAccount.Hex() {
		t.Errorf("account param = %v, want %s", req.params[1], testAccount.Hex())
	}
}

func TestNetworkHandle_SendTransaction(t *testing.T) {
	wantHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	req := &recordingRequester{result: json.RawMessage(`"` + wantHash.Hex() + `"`)}
	h := testHandle(req)

	to := common.HexToAddress("0xdef0000000000000000000000000000000000000")
	hash, err := h.SendTransaction(context.Background(), TxRequest{To: &to})
	if err != nil {
		t.Fatalf("SendTransaction() error = %v", err)
	}
	if hash != wantHash {
		t.Errorf("hash = %s, want %s", hash, wantHash)
	}

	// A zero From is filled in from the handle's account.
	tx, ok := req.params[0].(TxRequest)
	if !ok {
		t.Fatalf("param type = %T, want TxRequest", req.params[0])
	}
	if tx.From != testAccount {
		t.Errorf("From = %s, want %s", tx.From, testAccount)
	}
}

func TestNetworkHandle_BalanceAt(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{"one ether", `"0xde0b6b3a7640000"`, "1"},          // 1e18 wei
		{"fractional", `"0x2386f26fc10000"`, "0.01"},       // 1e16 wei
		{"zero", `"0x0"`, "0"},
		{"wei dust", `"0x1"`, "0.000000000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &recordingRequester{result: json.RawMessage(tt.result)}
			h := testHandle(req)

			got, err := h.BalanceAt(context.Background(), testAccount)
			if err != nil {
				t.Fatalf("BalanceAt() error = %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("balance = %s, want %s", got, tt.want)
			}
			if req.method != MethodGetBalance {
				t.Errorf("method = %q, want %q", req.method, MethodGetBalance)
			}
			if req.params[1] != "latest" {
				t.Errorf("block param = %v, want latest", req.params[1])
			}
		})
	}
}

func TestNetworkHandle_RequestErrorPropagates(t *testing.T) {
	boom := errors.New("provider gone")
	h := testHandle(&recordingRequester{err: boom})

	if _, err := h.Balance(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if _, err := h.SignMessage(context.Background(), []byte("x")); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
