// Package devwallet is an in-process wallet for development and tests:
// a single secp256k1 key that answers the same JSON-RPC surface an
// injected browser wallet would, optionally backed by a real node for
// balance reads and transaction broadcast.
package devwallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/walletgate/business/wallet/app"
	"github.com/fd1az/walletgate/business/wallet/domain"
	"github.com/fd1az/walletgate/internal/apperror"
	"github.com/fd1az/walletgate/internal/cache"
	"github.com/fd1az/walletgate/internal/circuitbreaker"
	"github.com/fd1az/walletgate/internal/logger"
	"github.com/fd1az/walletgate/internal/networks"
)

const tracerName = "dev-wallet"

// Ensure the dev wallet satisfies the application ports.
var (
	_ app.Provider       = (*Provider)(nil)
	_ app.ProviderSource = (*Source)(nil)
)

// Config holds dev wallet configuration.
type Config struct {
	PrivateKey  string        // hex-encoded secp256k1 key, 0x prefix optional
	ChainID     uint64        // chain id served by eth_chainId
	RPCURL      string        // optional upstream node (empty = offline)
	AutoApprove bool          // approve connection prompts without interaction
	BalanceTTL  time.Duration // upstream balance cache TTL
}

// DefaultConfig returns sensible defaults for a dev session.
func DefaultConfig(privateKey string, chainID uint64) Config {
	return Config{
		PrivateKey:  privateKey,
		ChainID:     chainID,
		AutoApprove: true,
		BalanceTTL:  12 * time.Second, // ~1 block
	}
}

// Provider implements app.Provider with a local key. Authorization is
// session state: eth_accounts is empty until eth_requestAccounts has
// been approved, exactly like an injected wallet that has not connected
// the dapp yet.
type Provider struct {
	config Config
	logger logger.LoggerInterface

	key     *ecdsa.PrivateKey
	account common.Address

	chainID    atomic.Uint64
	authorized atomic.Bool

	upstream   *ethclient.Client
	upstreamMu sync.RWMutex

	// Balance reads hit the upstream node through a breaker and are
	// cached for about a block.
	balances *cache.Cache[string, *big.Int]
	cb       *circuitbreaker.CircuitBreaker[*big.Int]

	onAccountsChanged func(ctx context.Context, accounts []string)
	onChainChanged    func(ctx context.Context, chainID string)
	onDisconnect      func(ctx context.Context, err error)
	handlersMu        sync.RWMutex

	tracer trace.Tracer
}

// NewProvider creates a dev wallet from cfg.
func NewProvider(cfg Config, log logger.LoggerInterface) (*Provider, error) {
	if cfg.PrivateKey == "" {
		return nil, apperror.New(apperror.CodeKeyNotConfigured,
			apperror.WithContext("dev wallet needs a private key"))
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeKeyNotConfigured,
			apperror.WithCause(err),
			apperror.WithContext("invalid dev wallet private key"))
	}

	if cfg.ChainID == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("dev wallet needs a chain id"))
	}
	if cfg.BalanceTTL <= 0 {
		cfg.BalanceTTL = DefaultConfig(cfg.PrivateKey, cfg.ChainID).BalanceTTL
	}

	p := &Provider{
		config:   cfg,
		logger:   log,
		key:      key,
		account:  crypto.PubkeyToAddress(key.PublicKey),
		balances: cache.New[string, *big.Int](time.Minute),
		cb:       circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("dev-wallet")),
		tracer:   otel.Tracer(tracerName),
	}
	p.chainID.Store(cfg.ChainID)

	return p, nil
}

// Connect dials the upstream node when one is configured. An offline
// dev wallet still signs and reports balances as zero.
func (p *Provider) Connect(ctx context.Context) error {
	if p.config.RPCURL == "" {
		p.logger.Info(ctx, "dev wallet running offline", "account", p.account.Hex())
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "devwallet.connect",
		trace.WithAttributes(attribute.String("url", p.config.RPCURL)),
	)
	defer span.End()

	client, err := ethclient.DialContext(ctx, p.config.RPCURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeUpstreamRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to dial upstream node"))
	}

	p.upstreamMu.Lock()
	p.upstream = client
	p.upstreamMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	p.logger.Info(ctx, "dev wallet connected to upstream",
		"url", p.config.RPCURL,
		"account", p.account.Hex())

	return nil
}

// Close releases the upstream connection and the balance cache.
func (p *Provider) Close() error {
	p.upstreamMu.Lock()
	if p.upstream != nil {
		p.upstream.Close()
		p.upstream = nil
	}
	p.upstreamMu.Unlock()

	p.balances.Close()
	return nil
}

// Account returns the wallet's address.
func (p *Provider) Account() common.Address {
	return p.account
}

// Authorized reports whether the dapp connection has been approved.
func (p *Provider) Authorized() bool {
	return p.authorized.Load()
}

// OnAccountsChanged registers the accountsChanged handler, replacing
// any previous one.
func (p *Provider) OnAccountsChanged(fn func(ctx context.Context, accounts []string)) {
	p.handlersMu.Lock()
	p.onAccountsChanged = fn
	p.handlersMu.Unlock()
}

// OnChainChanged registers the chainChanged handler, replacing any
// previous one.
func (p *Provider) OnChainChanged(fn func(ctx context.Context, chainID string)) {
	p.handlersMu.Lock()
	p.onChainChanged = fn
	p.handlersMu.Unlock()
}

// OnDisconnect registers the disconnect handler, replacing any
// previous one.
func (p *Provider) OnDisconnect(fn func(ctx context.Context, err error)) {
	p.handlersMu.Lock()
	p.onDisconnect = fn
	p.handlersMu.Unlock()
}

// Request serves one wallet call.
func (p *Provider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	ctx, span := p.tracer.Start(ctx, "devwallet.request",
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	defer span.End()

	result, err := p.handle(ctx, method, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	span.SetStatus(codes.Ok, "")
	return raw, nil
}

func (p *Provider) handle(ctx context.Context, method string, params []any) (any, error) {
	switch method {
	case domain.MethodAccounts:
		if !p.authorized.Load() {
			return []string{}, nil
		}
		return []string{p.account.Hex()}, nil

	case domain.MethodRequestAccounts:
		if p.authorized.Load() {
			return []string{p.account.Hex()}, nil
		}
		if !p.config.AutoApprove {
			return nil, apperror.New(apperror.CodeUserRejected,
				apperror.WithContext("auto-approve is disabled"))
		}
		p.authorized.Store(true)
		p.logger.Info(ctx, "dev wallet authorized", "account", p.account.Hex())
		return []string{p.account.Hex()}, nil

	case domain.MethodChainID:
		return networks.FormatChainID(p.chainID.Load()), nil

	case domain.MethodPersonalSign:
		return p.personalSign(params)

	case domain.MethodSendTransaction:
		return p.sendTransaction(ctx, params)

	case domain.MethodGetBalance:
		return p.getBalance(ctx, params)

	default:
		return nil, apperror.New(apperror.CodeMethodNotSupported,
			apperror.WithContext(method))
	}
}

func (p *Provider) personalSign(params []any) (string, error) {
	if !p.authorized.Load() {
		return "", apperror.New(apperror.CodeUserRejected,
			apperror.WithContext("wallet is not authorized"))
	}
	if len(params) == 0 {
		return "", apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("personal_sign needs message data"))
	}

	hexMsg, ok := params[0].(string)
	if !ok {
		return "", apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("personal_sign message must be a hex string"))
	}
	msg, err := hexutil.Decode(hexMsg)
	if err != nil {
		return "", apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("personal_sign message"))
	}

	if len(params) > 1 {
		if addr, ok := params[1].(string); ok && !strings.EqualFold(addr, p.account.Hex()) {
			return "", apperror.New(apperror.CodeInvalidAccount,
				apperror.WithContext("signing account is not the dev wallet"))
		}
	}

	sig, err := crypto.Sign(TextHash(msg), p.key)
	if err != nil {
		return "", apperror.New(apperror.CodeSigningFailed,
			apperror.WithCause(err),
			apperror.WithContext("personal_sign"))
	}
	// Ethereum wallets report V as 27/28.
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// TextHash hashes message with the EIP-191 personal-message prefix.
func TextHash(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

func (p *Provider) sendTransaction(ctx context.Context, params []any) (string, error) {
	if !p.authorized.Load() {
		return "", apperror.New(apperror.CodeUserRejected,
			apperror.WithContext("wallet is not authorized"))
	}

	txReq, err := decodeTxParam(params)
	if err != nil {
		return "", err
	}
	if (txReq.From != common.Address{}) && txReq.From != p.account {
		return "", apperror.New(apperror.CodeInvalidAccount,
			apperror.WithContext("from account is not the dev wallet"))
	}

	client := p.client()
	if client == nil {
		return "", apperror.New(apperror.CodeUpstreamRPCError,
			apperror.WithContext("eth_sendTransaction needs an upstream node"))
	}

	nonce, err := client.PendingNonceAt(ctx, p.account)
	if err != nil {
		return "", apperror.New(apperror.CodeUpstreamRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch nonce"))
	}

	value := new(big.Int)
	if txReq.Value != nil {
		value = (*big.Int)(txReq.Value)
	}

	gasPrice := new(big.Int)
	if txReq.GasPrice != nil {
		gasPrice = (*big.Int)(txReq.GasPrice)
	} else {
		gasPrice, err = client.SuggestGasPrice(ctx)
		if err != nil {
			return "", apperror.New(apperror.CodeUpstreamRPCError,
				apperror.WithCause(err),
				apperror.WithContext("failed to fetch gas price"))
		}
	}

	gas := uint64(21000)
	if txReq.Gas != nil {
		gas = uint64(*txReq.Gas)
	} else if len(txReq.Data) > 0 || txReq.To == nil {
		est, err := client.EstimateGas(ctx, ethereum.CallMsg{
			From:  p.account,
			To:    txReq.To,
			Value: value,
			Data:  txReq.Data,
		})
		if err != nil {
			return "", apperror.New(apperror.CodeUpstreamRPCError,
				apperror.WithCause(err),
				apperror.WithContext("failed to estimate gas"))
		}
		gas = est + est/10
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       txReq.To,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     txReq.Data,
	})

	chainID := new(big.Int).SetUint64(p.chainID.Load())
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return "", apperror.New(apperror.CodeSigningFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to sign transaction"))
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", apperror.New(apperror.CodeUpstreamRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to broadcast transaction"))
	}

	p.logger.Info(ctx, "transaction broadcast",
		"hash", signed.Hash().Hex(),
		"nonce", nonce,
		"gas", gas)

	return signed.Hash().Hex(), nil
}

func decodeTxParam(params []any) (domain.TxRequest, error) {
	if len(params) == 0 {
		return domain.TxRequest{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("eth_sendTransaction needs a transaction object"))
	}

	if tx, ok := params[0].(domain.TxRequest); ok {
		return tx, nil
	}

	// Anything else arrived over the wire: round-trip through JSON.
	raw, err := json.Marshal(params[0])
	if err != nil {
		return domain.TxRequest{}, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("eth_sendTransaction params"))
	}
	var tx domain.TxRequest
	if err := json.Unmarshal(raw, &tx); err != nil {
		return domain.TxRequest{}, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("eth_sendTransaction params"))
	}
	return tx, nil
}

func (p *Provider) getBalance(ctx context.Context, params []any) (string, error) {
	addr := p.account
	if len(params) > 0 {
		s, ok := params[0].(string)
		if !ok || !common.IsHexAddress(s) {
			return "", apperror.New(apperror.CodeInvalidAccount,
				apperror.WithContext("eth_getBalance address"))
		}
		addr = common.HexToAddress(s)
	}

	if cached, found := p.balances.Get(ctx, addr.Hex()); found {
		return hexutil.EncodeBig(cached), nil
	}

	client := p.client()
	if client == nil {
		// Offline mode reads as zero instead of failing the session.
		return "0x0", nil
	}

	wei, err := p.cb.Execute(func() (*big.Int, error) {
		return client.BalanceAt(ctx, addr, nil)
	})
	if err != nil {
		return "", apperror.New(apperror.CodeUpstreamRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch balance"))
	}

	p.balances.Set(ctx, addr.Hex(), wei, p.config.BalanceTTL)
	return hexutil.EncodeBig(wei), nil
}

func (p *Provider) client() *ethclient.Client {
	p.upstreamMu.RLock()
	defer p.upstreamMu.RUnlock()
	return p.upstream
}

// SwitchChain changes the active chain and notifies the chainChanged
// handler, mirroring a user switching networks in the wallet.
func (p *Provider) SwitchChain(ctx context.Context, chainID uint64) {
	p.chainID.Store(chainID)
	p.balances.Delete(ctx, p.account.Hex())

	p.handlersMu.RLock()
	fn := p.onChainChanged
	p.handlersMu.RUnlock()
	if fn != nil {
		fn(ctx, networks.FormatChainID(chainID))
	}
}

// RevokeAccess drops authorization and notifies with an empty accounts
// list, mirroring a user revoking the dapp connection.
func (p *Provider) RevokeAccess(ctx context.Context) {
	p.authorized.Store(false)

	p.handlersMu.RLock()
	fn := p.onAccountsChanged
	p.handlersMu.RUnlock()
	if fn != nil {
		fn(ctx, []string{})
	}
}

// DropConnection fires the provider disconnect event, mirroring a
// wallet that lost its chain connection.
func (p *Provider) DropConnection(ctx context.Context, cause error) {
	p.handlersMu.RLock()
	fn := p.onDisconnect
	p.handlersMu.RUnlock()
	if fn != nil {
		fn(ctx, cause)
	}
}

// Source serves the dev wallet as an always-present provider.
type Source struct {
	provider *Provider
}

// NewSource wraps an existing dev wallet.
func NewSource(p *Provider) *Source {
	return &Source{provider: p}
}

// Current implements app.ProviderSource.
func (s *Source) Current(ctx context.Context) (app.Provider, error) {
	if s.provider == nil {
		return nil, apperror.New(apperror.CodeNoProvider,
			apperror.WithContext("dev wallet is not configured"))
	}
	return s.provider, nil
}

// Connect dials the wallet's upstream execution node, if one is
// configured.
func (s *Source) Connect(ctx context.Context) error {
	return s.provider.Connect(ctx)
}

// Close releases the wallet's upstream connection and caches.
func (s *Source) Close() error {
	return s.provider.Close()
}
