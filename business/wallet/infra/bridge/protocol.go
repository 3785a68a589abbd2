// Package bridge connects the session layer to an external wallet over
// a WebSocket JSON-RPC 2.0 link. Requests travel to the bridge with
// correlation ids; the wallet's accountsChanged, chainChanged and
// disconnect events come back as id-less notifications.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fd1az/walletgate/internal/apperror"
)

const jsonRPCVersion = "2.0"

// Wallet events pushed by the bridge as notifications.
const (
	eventAccountsChanged = "accountsChanged"
	eventChainChanged    = "chainChanged"
	eventDisconnect      = "disconnect"
)

// Provider error codes from EIP-1193 (4xxx) and JSON-RPC 2.0 (-32xxx).
const (
	errCodeUserRejected      = 4001
	errCodeUnauthorized      = 4100
	errCodeMethodUnsupported = 4200
	errCodeDisconnected      = 4900
	errCodeChainDisconnected = 4901
	errCodeUnrecognizedChain = 4902
	errCodeMethodNotFound    = -32601
)

// rpcRequest is one call sent to the bridge. Params are positional; a
// nil slice is omitted from the frame entirely.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// rpcResponse is the bridge's answer to one request. Exactly one of
// Result and Error is set.
type rpcResponse struct {
	Result json.RawMessage
	Error  *rpcError
}

// rpcNotification is a wallet event pushed by the bridge without an id.
// The payload rides in Params: accountsChanged carries each account as
// one positional param, chainChanged carries the chain id as its only
// param, disconnect optionally carries a ProviderRpcError object.
type rpcNotification struct {
	Method string
	Params json.RawMessage
}

// rpcEnvelope is the superset frame shape used to classify incoming
// messages: responses carry an id, notifications carry a method.
type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is the JSON-RPC error member. The same shape doubles as the
// EIP-1193 ProviderRpcError carried by disconnect events.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// mapRPCError converts a provider error into the application taxonomy.
// User rejection and unrecognized-chain keep their dedicated codes so
// the session layer can tell a denied prompt apart from a broken
// transport.
func mapRPCError(method string, rerr *rpcError) error {
	opts := []apperror.Option{
		apperror.WithCause(rerr),
		apperror.WithContext(method),
	}
	if rerr.Message != "" {
		opts = append(opts, apperror.WithMessage(rerr.Message))
	}

	switch rerr.Code {
	case errCodeUserRejected:
		return apperror.New(apperror.CodeUserRejected, opts...)
	case errCodeUnrecognizedChain:
		return apperror.New(apperror.CodeUnsupportedNetwork, opts...)
	case errCodeMethodUnsupported, errCodeMethodNotFound:
		return apperror.New(apperror.CodeMethodNotSupported, opts...)
	default:
		return apperror.New(apperror.CodeProviderRequestFailed, opts...)
	}
}

// decodeAccountsChanged reads the authorized accounts list. An empty
// params array is a valid payload: it means access was revoked.
func decodeAccountsChanged(params json.RawMessage) ([]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	var accounts []string
	if err := json.Unmarshal(params, &accounts); err != nil {
		return nil, fmt.Errorf("accountsChanged params: %w", err)
	}
	return accounts, nil
}

// decodeChainChanged reads the new chain id from the first param.
func decodeChainChanged(params json.RawMessage) (string, error) {
	var args []string
	if err := json.Unmarshal(params, &args); err != nil {
		return "", fmt.Errorf("chainChanged params: %w", err)
	}
	if len(args) == 0 {
		return "", errors.New("chainChanged params: missing chain id")
	}
	return args[0], nil
}

// decodeDisconnect reads the optional ProviderRpcError from the first
// param. A missing or malformed payload degrades to a generic cause.
func decodeDisconnect(params json.RawMessage) error {
	var args []rpcError
	if err := json.Unmarshal(params, &args); err == nil && len(args) > 0 {
		e := args[0]
		return &e
	}
	return &rpcError{Code: errCodeDisconnected, Message: "provider disconnected"}
}
