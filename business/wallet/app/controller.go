package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/walletgate/business/wallet/domain"
	"github.com/fd1az/walletgate/internal/apperror"
	"github.com/fd1az/walletgate/internal/networks"
)

// ControllerConfig holds tunables for the session controller.
type ControllerConfig struct {
	// RequestTimeout bounds each non-interactive provider call. Zero
	// means no bound.
	RequestTimeout time.Duration

	// PromptTimeout bounds the user-facing account-access prompt. Zero
	// means wait for the user indefinitely.
	PromptTimeout time.Duration

	// Transitions overrides the session state machine. Nil means
	// domain.DefaultTransitions().
	Transitions []domain.Transition
}

// Controller is the single owner of the session status. Every change
// flows through Dispatch, which consults the transition table, updates
// the status and notifies subscribers in registration order.
type Controller struct {
	source      ProviderSource
	networks    *networks.Registry
	transitions []domain.Transition
	logger      *slog.Logger

	requestTimeout time.Duration
	promptTimeout  time.Duration

	// stateMu guards status, subs, nextSubID and the notification queue.
	stateMu   sync.Mutex
	status    domain.ConnectionStatus
	subs      []*subscription
	nextSubID uint64
	notifyQ   []notification
	notifying bool

	// opMu serializes connect and refresh attempts.
	opMu sync.Mutex

	// epoch invalidates in-flight handshakes: it advances at the start of
	// every attempt and on every disconnect, and a handshake result is
	// applied only if the epoch has not moved since the attempt began.
	epoch atomic.Uint64
}

type subscription struct {
	id uint64
	fn func(domain.ConnectionStatus)
}

type notification struct {
	status domain.ConnectionStatus
	subs   []*subscription
}

// NewController creates a session controller. It starts Disconnected and
// does not touch the provider until Start, Connect or Refresh is called.
func NewController(source ProviderSource, registry *networks.Registry, cfg ControllerConfig, logger *slog.Logger) *Controller {
	transitions := cfg.Transitions
	if transitions == nil {
		transitions = domain.DefaultTransitions()
	}
	return &Controller{
		source:         source,
		networks:       registry,
		transitions:    transitions,
		logger:         logger,
		requestTimeout: cfg.RequestTimeout,
		promptTimeout:  cfg.PromptTimeout,
		status:         domain.ConnectionStatus{State: domain.StateDisconnected},
	}
}

// Start runs provider detection: if a provider is already available it
// attaches the session listeners, dispatches the detection event and
// reconciles silently, settling in Connected (accounts already
// authorized) or back in Disconnected. With no provider available the
// controller stays Disconnected; a later Connect re-resolves.
func (c *Controller) Start(ctx context.Context) error {
	provider, err := c.source.Current(ctx)
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeNoProvider {
			c.logger.Info("no wallet provider detected at startup")
			return nil
		}
		return err
	}

	c.attachListeners(provider)
	c.Dispatch(domain.ProviderDetected())
	c.Refresh(ctx)
	return nil
}

// Subscribe registers fn and returns its unsubscribe capability. The
// callback is invoked once with the current status before any later
// transition reaches it, and thereafter on every accepted transition, in
// subscription-registration order. A panicking callback is logged and
// skipped without affecting the remaining subscribers. Callbacks run on
// the goroutine driving the transition; work that blocks, or re-enters
// Connect or Refresh, belongs in a separate goroutine.
func (c *Controller) Subscribe(fn func(domain.ConnectionStatus)) func() {
	c.stateMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	sub := &subscription{id: id, fn: fn}
	c.subs = append(c.subs, sub)
	c.notifyQ = append(c.notifyQ, notification{status: c.status, subs: []*subscription{sub}})
	c.drainLocked()
	c.stateMu.Unlock()

	return func() {
		c.stateMu.Lock()
		defer c.stateMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
	}
}

// Dispatch applies event to the session state machine. Events with no
// matching transition are dropped with a diagnostic log entry and no
// notification. Dispatch is safe for concurrent use and from inside a
// subscriber callback.
func (c *Controller) Dispatch(event domain.Event) {
	c.stateMu.Lock()
	tr, ok := domain.Match(c.transitions, c.status, event)
	if !ok {
		from := c.status.State
		c.stateMu.Unlock()
		c.logger.Debug("event dropped: no transition", "state", from, "trigger", event.Trigger)
		return
	}

	from := c.status.State
	next := domain.NextStatus(tr, event)
	c.status = next
	c.notifyQ = append(c.notifyQ, notification{status: next, subs: slices.Clone(c.subs)})
	c.drainLocked()
	c.stateMu.Unlock()

	c.logger.Debug("session transition", "from", from, "to", next.State, "trigger", event.Trigger)
}

// drainLocked delivers queued notifications in order. Caller holds
// stateMu; the lock is released around each delivery batch and held again
// when drainLocked returns. If a drain is already running higher up the
// stack or on another goroutine, the queued work is left to it, which
// keeps every subscriber observing statuses in transition order.
func (c *Controller) drainLocked() {
	if c.notifying {
		return
	}
	c.notifying = true
	for len(c.notifyQ) > 0 {
		n := c.notifyQ[0]
		c.notifyQ = c.notifyQ[1:]
		c.stateMu.Unlock()
		for _, sub := range n.subs {
			c.deliver(sub, n.status)
		}
		c.stateMu.Lock()
	}
	c.notifying = false
}

// deliver runs one callback, isolating panics so one subscriber cannot
// break delivery to the rest.
func (c *Controller) deliver(sub *subscription, status domain.ConnectionStatus) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("subscriber callback panicked", "subscriber", sub.id, "panic", r)
		}
	}()
	sub.fn(status)
}

// Connect establishes a session: resolve the provider, read or request
// account access, read and check the chain, and settle the state machine.
// Failures dispatch ConnectionFailed and propagate to the caller.
// Concurrent Connect and Refresh calls are serialized.
func (c *Controller) Connect(ctx context.Context) (*domain.NetworkHandle, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	attempt := c.epoch.Add(1)
	c.Dispatch(domain.ConnectRequested())

	handle, err := c.establish(ctx, true)
	if err != nil {
		c.failAttempt(attempt, err)
		return nil, err
	}
	if !c.settleAttempt(attempt, handle) {
		return nil, apperror.New(apperror.CodeHandshakeFailed,
			apperror.WithMessage("connection superseded by a disconnect"))
	}
	return handle, nil
}

// Refresh reconciles the session silently: it re-reads already-authorized
// accounts without prompting. No authorized accounts means the session is
// over (dispatches Disconnected); any other failure is broadcast as
// ConnectionFailed on the status. Neither propagates — Refresh is
// background reconciliation and returns nil for anything but a settled
// session.
func (c *Controller) Refresh(ctx context.Context) *domain.NetworkHandle {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	attempt := c.epoch.Add(1)

	handle, err := c.establish(ctx, false)
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeNoAccounts {
			if c.epoch.Load() == attempt {
				c.Dispatch(domain.Disconnected())
			}
			return nil
		}
		c.logger.Info("silent reconnection failed", "error", err)
		c.failAttempt(attempt, err)
		return nil
	}
	if !c.settleAttempt(attempt, handle) {
		return nil
	}
	return handle
}

// Disconnect ends the session unconditionally and invalidates any
// in-flight handshake. It does not attempt to revoke wallet permissions;
// providers do not expose revocation.
func (c *Controller) Disconnect() {
	c.epoch.Add(1)
	c.Dispatch(domain.Disconnected())
}

// Status returns the current session snapshot.
func (c *Controller) Status() domain.ConnectionStatus {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.status
}

// IsConnected reports whether a session is established with a settled
// network handle.
func (c *Controller) IsConnected() bool {
	s := c.Status()
	return s.State == domain.StateConnected && s.Network != nil
}

// CurrentNetwork returns the active session handle, nil unless connected.
func (c *Controller) CurrentNetwork() *domain.NetworkHandle {
	return c.Status().Network
}

// NetworkConfig looks up a supported network by chain id.
func (c *Controller) NetworkConfig(chainID uint64) (networks.Network, bool) {
	return c.networks.Get(chainID)
}

// SupportedNetworks lists every supported network, ordered by chain id.
// The registry is complete from construction; no connection is needed.
func (c *Controller) SupportedNetworks() []networks.Network {
	return c.networks.All()
}

// failAttempt dispatches ConnectionFailed unless a disconnect superseded
// the attempt.
func (c *Controller) failAttempt(attempt uint64, err error) {
	if c.epoch.Load() != attempt {
		c.logger.Debug("discarding stale handshake failure", "error", err)
		return
	}
	c.Dispatch(domain.ConnectionFailed(err))
}

// settleAttempt dispatches ConnectionSucceeded unless a disconnect
// superseded the attempt. It reports whether the result was applied.
func (c *Controller) settleAttempt(attempt uint64, handle *domain.NetworkHandle) bool {
	if c.epoch.Load() != attempt {
		c.logger.Debug("discarding stale handshake result", "chain_id", handle.ChainID())
		return false
	}
	c.Dispatch(domain.ConnectionSucceeded(handle, handle.Account()))
	return true
}

// establish runs the wallet handshake: resolve the provider, obtain an
// account (prompting only when prompt is true), read the chain id, check
// it against the supported networks, re-attach the session listeners and
// build the handle.
func (c *Controller) establish(ctx context.Context, prompt bool) (*domain.NetworkHandle, error) {
	provider, err := c.source.Current(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := c.accountsCall(ctx, provider, domain.MethodAccounts, c.requestTimeout)
	if err != nil {
		return nil, c.handshakeError(err, "reading authorized accounts")
	}
	if len(accounts) == 0 {
		if !prompt {
			return nil, apperror.New(apperror.CodeNoAccounts,
				apperror.WithMessage("no authorized accounts"))
		}
		accounts, err = c.accountsCall(ctx, provider, domain.MethodRequestAccounts, c.promptTimeout)
		if err != nil {
			return nil, c.handshakeError(err, "requesting account access")
		}
		if len(accounts) == 0 {
			return nil, apperror.New(apperror.CodeNoAccounts,
				apperror.WithMessage("wallet granted no accounts"))
		}
	}

	if !common.IsHexAddress(accounts[0]) {
		return nil, apperror.New(apperror.CodeInvalidAccount, apperror.WithContext(accounts[0]))
	}
	account := common.HexToAddress(accounts[0])

	chainHex, err := c.chainIDCall(ctx, provider)
	if err != nil {
		return nil, c.handshakeError(err, "reading chain id")
	}
	chainID, err := networks.ParseChainID(chainHex)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidChainID,
			apperror.WithContext(chainHex), apperror.WithCause(err))
	}

	network, ok := c.networks.Get(chainID)
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork,
			apperror.WithMessage(fmt.Sprintf("chain %d is not a supported network", chainID)))
	}

	c.attachListeners(provider)

	return domain.NewNetworkHandle(network, account, provider), nil
}

// handshakeError preserves provider error codes (e.g. a user rejection
// mapped by the transport) and wraps everything else as HandshakeFailed.
func (c *Controller) handshakeError(err error, step string) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeHandshakeFailed,
		apperror.WithContext(step), apperror.WithCause(err))
}

func (c *Controller) accountsCall(ctx context.Context, p Provider, method string, timeout time.Duration) ([]string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	raw, err := p.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return accounts, nil
}

func (c *Controller) chainIDCall(ctx context.Context, p Provider) (string, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}
	raw, err := p.Request(ctx, domain.MethodChainID)
	if err != nil {
		return "", err
	}
	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil {
		return "", fmt.Errorf("decode %s result: %w", domain.MethodChainID, err)
	}
	return chainID, nil
}

// attachListeners (re-)registers the three session channels on provider.
// Registration replaces any previous handler, so attaching after every
// handshake cannot duplicate delivery.
func (c *Controller) attachListeners(p Provider) {
	p.OnAccountsChanged(func(ctx context.Context, accounts []string) {
		if len(accounts) == 0 {
			c.logger.Info("wallet revoked account access")
			c.Dispatch(domain.Disconnected())
			return
		}
		if !common.IsHexAddress(accounts[0]) {
			c.logger.Warn("ignoring malformed account from provider", "account", accounts[0])
			return
		}
		c.Dispatch(domain.AccountChanged(common.HexToAddress(accounts[0])))
		c.Refresh(ctx)
	})
	p.OnChainChanged(func(ctx context.Context, chainID string) {
		id, err := networks.ParseChainID(chainID)
		if err != nil {
			c.logger.Warn("ignoring malformed chain id from provider", "chain_id", chainID, "error", err)
			return
		}
		c.Dispatch(domain.NetworkChanged(id))
		c.Refresh(ctx)
	})
	p.OnDisconnect(func(ctx context.Context, err error) {
		if err != nil {
			c.logger.Info("wallet disconnected", "error", err)
		}
		c.Dispatch(domain.Disconnected())
	})
}
