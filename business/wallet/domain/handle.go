package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/fd1az/walletgate/internal/ethunit"
	"github.com/fd1az/walletgate/internal/networks"
)

// Wallet provider JSON-RPC methods used by the session.
const (
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
	MethodChainID         = "eth_chainId"
	MethodGetBalance      = "eth_getBalance"
	MethodPersonalSign    = "personal_sign"
	MethodSendTransaction = "eth_sendTransaction"
)

// Requester issues JSON-RPC calls against the active wallet provider.
type Requester interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// TxRequest is the parameter object for eth_sendTransaction. A zero From
// is filled in from the handle's account.
type TxRequest struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
}

// NetworkHandle is the live binding an established session hands out: a
// supported network, the active account, and the provider transport to
// issue requests through. It stays valid until the session leaves the
// Connected state.
type NetworkHandle struct {
	network networks.Network
	account common.Address
	req     Requester
}

// NewNetworkHandle binds a network and account to a provider transport.
func NewNetworkHandle(network networks.Network, account common.Address, req Requester) *NetworkHandle {
	return &NetworkHandle{network: network, account: account, req: req}
}

// Network returns the descriptor of the connected chain.
func (h *NetworkHandle) Network() networks.Network {
	return h.network
}

// ChainID returns the connected chain id.
func (h *NetworkHandle) ChainID() uint64 {
	return h.network.ChainID
}

// Account returns the active account.
func (h *NetworkHandle) Account() common.Address {
	return h.account
}

// Request issues a raw JSON-RPC call through the session's provider.
func (h *NetworkHandle) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return h.req.Request(ctx, method, params...)
}

// Provider returns the underlying provider transport, for integration
// code that needs the unwrapped object rather than the handle surface.
func (h *NetworkHandle) Provider() Requester {
	return h.req
}

// SignMessage signs an arbitrary message with the active account via
// personal_sign and returns the signature as a 0x-prefixed hex string.
func (h *NetworkHandle) SignMessage(ctx context.Context, message []byte) (string, error) {
	raw, err := h.req.Request(ctx, MethodPersonalSign, hexutil.Encode(message), h.account.Hex())
	if err != nil {
		return "", err
	}
	var sig string
	if err := json.Unmarshal(raw, &sig); err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	return sig, nil
}

// SendTransaction submits a transaction from the active account and
// returns its hash.
func (h *NetworkHandle) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	if tx.From == (common.Address{}) {
		tx.From = h.account
	}
	raw, err := h.req.Request(ctx, MethodSendTransaction, tx)
	if err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("decode transaction hash: %w", err)
	}
	return hash, nil
}

// BalanceAt returns the latest balance of account in native units (e.g.
// ETH, not wei).
func (h *NetworkHandle) BalanceAt(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	raw, err := h.req.Request(ctx, MethodGetBalance, account.Hex(), "latest")
	if err != nil {
		return decimal.Zero, err
	}
	var hexBalance string
	if err := json.Unmarshal(raw, &hexBalance); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance: %w", err)
	}
	wei, err := hexutil.DecodeBig(hexBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", hexBalance, err)
	}
	return ethunit.FromRaw(wei, h.network.NativeDecimals), nil
}

// Balance returns the latest balance of the active account in native units.
func (h *NetworkHandle) Balance(ctx context.Context) (decimal.Decimal, error) {
	return h.BalanceAt(ctx, h.account)
}
