package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/walletgate/business/wallet/app"
	"github.com/fd1az/walletgate/internal/apperror"
	"github.com/fd1az/walletgate/internal/circuitbreaker"
	"github.com/fd1az/walletgate/internal/logger"
	"github.com/fd1az/walletgate/internal/ratelimit"
	"github.com/fd1az/walletgate/internal/wsconn"
)

const (
	tracerName = "wallet-bridge"
	meterName  = "wallet-bridge"
)

// Ensure the bridge satisfies the application ports.
var (
	_ app.Provider       = (*Provider)(nil)
	_ app.ProviderSource = (*Source)(nil)
)

// Config holds bridge provider configuration.
type Config struct {
	URL            string        // WebSocket endpoint of the wallet bridge
	RequestTimeout time.Duration // Per-request response deadline
	InitialBackoff time.Duration // Reconnect backoff start
	MaxBackoff     time.Duration // Reconnect backoff cap
	MaxReconnects  int           // 0 = retry forever

	RequestsPerSecond float64 // Outbound request rate limit (0 disables)
	RequestBurst      int     // Rate limiter burst

	EventBuffer int // Wallet event queue depth
}

// DefaultConfig returns sensible defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		RequestTimeout:    30 * time.Second,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		MaxReconnects:     0, // infinite
		RequestsPerSecond: 20,
		RequestBurst:      10,
		EventBuffer:       64,
	}
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	requests      metric.Int64Counter
	requestErrors metric.Int64Counter
	notifications metric.Int64Counter
	eventsDropped metric.Int64Counter
	parseErrors   metric.Int64Counter
	reconnects    metric.Int64Counter
}

// pendingResult settles one in-flight request: a decoded response or a
// transport-level failure.
type pendingResult struct {
	resp *rpcResponse
	err  error
}

// Provider speaks EIP-1193 to a wallet through the bridge socket. It
// implements app.Provider: raw requests plus the three wallet event
// channels.
type Provider struct {
	config Config
	logger logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.RWMutex

	// In-flight request correlation
	nextID    atomic.Int64
	pending   map[int64]chan pendingResult
	pendingMu sync.Mutex

	// Wallet event handlers
	onAccountsChanged func(ctx context.Context, accounts []string)
	onChainChanged    func(ctx context.Context, chainID string)
	onDisconnect      func(ctx context.Context, err error)
	handlersMu        sync.RWMutex

	// Wallet events are decoupled from the socket read loop: handlers
	// re-enter the session layer, whose refresh path issues bridge
	// requests that are answered on that same read loop. Dispatching
	// from a separate goroutine keeps response correlation live while
	// a handler runs.
	events     chan *rpcNotification
	stopEvents chan struct{}

	breaker *circuitbreaker.CircuitBreaker[*rpcResponse]
	limiter *ratelimit.Limiter

	// Observability
	tracer  trace.Tracer
	metrics *clientMetrics

	// State
	running      atomic.Bool
	closed       atomic.Bool
	wasConnected atomic.Bool
}

// NewProvider creates a bridge provider. Connect must be called before
// the first request.
func NewProvider(cfg Config, log logger.LoggerInterface) (*Provider, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("bridge URL is required"))
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig(cfg.URL).EventBuffer
	}

	p := &Provider{
		config:     cfg,
		logger:     log,
		pending:    make(map[int64]chan pendingResult),
		events:     make(chan *rpcNotification, cfg.EventBuffer),
		stopEvents: make(chan struct{}),
		breaker:    circuitbreaker.New[*rpcResponse](circuitbreaker.DefaultConfig("wallet-bridge")),
		tracer:     otel.Tracer(tracerName),
	}

	if cfg.RequestsPerSecond > 0 {
		p.limiter = ratelimit.New(cfg.RequestsPerSecond, cfg.RequestBurst)
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &clientMetrics{}

	p.metrics.requests, err = meter.Int64Counter(
		"bridge_requests_total",
		metric.WithDescription("Total wallet requests sent"),
	)
	if err != nil {
		return err
	}

	p.metrics.requestErrors, err = meter.Int64Counter(
		"bridge_request_errors_total",
		metric.WithDescription("Wallet requests that failed"),
	)
	if err != nil {
		return err
	}

	p.metrics.notifications, err = meter.Int64Counter(
		"bridge_notifications_total",
		metric.WithDescription("Wallet events received"),
	)
	if err != nil {
		return err
	}

	p.metrics.eventsDropped, err = meter.Int64Counter(
		"bridge_events_dropped_total",
		metric.WithDescription("Wallet events dropped because the queue was full"),
	)
	if err != nil {
		return err
	}

	p.metrics.parseErrors, err = meter.Int64Counter(
		"bridge_parse_errors_total",
		metric.WithDescription("Frames that could not be decoded"),
	)
	if err != nil {
		return err
	}

	p.metrics.reconnects, err = meter.Int64Counter(
		"bridge_reconnects_total",
		metric.WithDescription("Bridge socket reconnects"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Connect dials the bridge and starts the event dispatcher. Calling
// Connect on an already connected provider is a no-op; a closed
// provider cannot be reconnected.
func (p *Provider) Connect(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "bridge.connect",
		trace.WithAttributes(
			attribute.String("bridge.url", p.config.URL),
		),
	)
	defer span.End()

	if p.closed.Load() {
		return apperror.New(apperror.CodeBridgeClosed,
			apperror.WithContext("provider was closed"))
	}
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}

	wsCfg := wsconn.DefaultConfig(p.config.URL, "wallet-bridge")
	if p.config.InitialBackoff > 0 {
		wsCfg.InitialBackoff = p.config.InitialBackoff
	}
	if p.config.MaxBackoff > 0 {
		wsCfg.MaxBackoff = p.config.MaxBackoff
	}
	wsCfg.MaxReconnects = p.config.MaxReconnects

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		p.running.Store(false)
		return apperror.New(apperror.CodeBridgeConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}

	conn.OnMessage(p.handleMessage)
	conn.OnStateChange(p.handleStateChange)

	if err := conn.ConnectWithRetry(ctx); err != nil {
		p.running.Store(false)
		return apperror.New(apperror.CodeBridgeConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to wallet bridge"))
	}

	p.connMu.Lock()
	p.conn = conn
	p.connMu.Unlock()

	go p.dispatchEvents()

	p.logger.Info(ctx, "wallet bridge connected", "url", p.config.URL)
	return nil
}

// Connected reports whether the bridge socket is currently up.
func (p *Provider) Connected() bool {
	p.connMu.RLock()
	conn := p.conn
	p.connMu.RUnlock()
	return conn != nil && conn.IsConnected()
}

// Close tears the bridge down and fails all in-flight requests. Safe
// to call more than once.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.running.Store(false)
	close(p.stopEvents)

	p.connMu.Lock()
	conn := p.conn
	p.conn = nil
	p.connMu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}

	p.failPending(apperror.New(apperror.CodeBridgeClosed,
		apperror.WithContext("wallet bridge closed")))

	p.logger.Info(context.Background(), "wallet bridge closed")
	return err
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

// Request sends one JSON-RPC call and waits for the matching response.
// Provider-level errors come back mapped into the application
// taxonomy; transport failures count against the circuit breaker, a
// wallet that answers with an error does not.
func (p *Provider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	ctx, span := p.tracer.Start(ctx, "bridge.request",
		trace.WithAttributes(
			attribute.String("rpc.method", method),
		),
	)
	defer span.End()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, apperror.New(apperror.CodeRateLimitExceeded,
				apperror.WithCause(err),
				apperror.WithContext(method))
		}
	}

	p.metrics.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))

	resp, err := p.breaker.Execute(func() (*rpcResponse, error) {
		return p.roundTrip(ctx, method, params)
	})
	if err != nil {
		p.metrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext("bridge requests suspended"))
		}
		return nil, err
	}

	if resp.Error != nil {
		p.metrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		return nil, mapRPCError(method, resp.Error)
	}

	return resp.Result, nil
}

// roundTrip registers a pending slot, sends the frame and waits for
// the read loop to settle it.
func (p *Provider) roundTrip(ctx context.Context, method string, params []any) (*rpcResponse, error) {
	p.connMu.RLock()
	conn := p.conn
	p.connMu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, apperror.New(apperror.CodeBridgeConnectionFailed,
			apperror.WithContext("wallet bridge is not connected"))
	}

	if p.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.RequestTimeout)
		defer cancel()
	}

	id := p.nextID.Add(1)
	ch := make(chan pendingResult, 1)

	p.pendingMu.Lock()
	p.pending[id] = ch
	p.pendingMu.Unlock()

	defer func() {
		p.pendingMu.Lock()
		delete(p.pending, id)
		p.pendingMu.Unlock()
	}()

	req := rpcRequest{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params}
	if err := conn.SendJSON(ctx, &req); err != nil {
		return nil, apperror.New(apperror.CodeBridgeSendError,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.resp, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperror.New(apperror.CodeRequestTimeout,
				apperror.WithContext(method))
		}
		return nil, ctx.Err()
	}
}

// handleMessage classifies each incoming frame: responses settle their
// pending request inline, notifications go to the event queue.
func (p *Provider) handleMessage(ctx context.Context, data []byte) {
	var env rpcEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		p.metrics.parseErrors.Add(ctx, 1)
		p.logger.Warn(ctx, "bridge sent an unparseable frame", "error", err)
		return
	}

	switch {
	case env.ID != nil:
		p.settle(ctx, *env.ID, &rpcResponse{Result: env.Result, Error: env.Error})
	case env.Method != "":
		p.metrics.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("event", env.Method)))
		p.enqueueEvent(ctx, &rpcNotification{Method: env.Method, Params: env.Params})
	default:
		p.metrics.parseErrors.Add(ctx, 1)
		p.logger.Warn(ctx, "bridge frame is neither response nor notification")
	}
}

func (p *Provider) settle(ctx context.Context, id int64, resp *rpcResponse) {
	p.pendingMu.Lock()
	ch, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.pendingMu.Unlock()

	if !ok {
		// The caller gave up (timeout) or the id is unknown.
		p.logger.Debug(ctx, "bridge response without a pending request", "id", id)
		return
	}
	ch <- pendingResult{resp: resp}
}

// failPending settles every in-flight request with err. Called when
// the socket drops: responses correlate by id against connection-local
// state the bridge no longer has.
func (p *Provider) failPending(err error) {
	p.pendingMu.Lock()
	for id, ch := range p.pending {
		delete(p.pending, id)
		ch <- pendingResult{err: err}
	}
	p.pendingMu.Unlock()
}

func (p *Provider) enqueueEvent(ctx context.Context, n *rpcNotification) {
	select {
	case p.events <- n:
	default:
		p.metrics.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("event", n.Method)))
		p.logger.Warn(ctx, "wallet event dropped, queue full", "event", n.Method)
	}
}

func (p *Provider) dispatchEvents() {
	ctx := context.Background()
	for {
		select {
		case <-p.stopEvents:
			return
		case n := <-p.events:
			p.dispatch(ctx, n)
		}
	}
}

func (p *Provider) dispatch(ctx context.Context, n *rpcNotification) {
	switch n.Method {
	case eventAccountsChanged:
		accounts, err := decodeAccountsChanged(n.Params)
		if err != nil {
			p.logger.Warn(ctx, "malformed accountsChanged payload", "error", err)
			return
		}
		p.handlersMu.RLock()
		fn := p.onAccountsChanged
		p.handlersMu.RUnlock()
		if fn != nil {
			fn(ctx, accounts)
		}

	case eventChainChanged:
		chainID, err := decodeChainChanged(n.Params)
		if err != nil {
			p.logger.Warn(ctx, "malformed chainChanged payload", "error", err)
			return
		}
		p.handlersMu.RLock()
		fn := p.onChainChanged
		p.handlersMu.RUnlock()
		if fn != nil {
			fn(ctx, chainID)
		}

	case eventDisconnect:
		cause := decodeDisconnect(n.Params)
		p.handlersMu.RLock()
		fn := p.onDisconnect
		p.handlersMu.RUnlock()
		if fn != nil {
			fn(ctx, cause)
		}

	default:
		p.logger.Debug(ctx, "ignoring unknown wallet event", "event", n.Method)
	}
}

func (p *Provider) handleStateChange(state wsconn.State, err error) {
	ctx := context.Background()

	switch state {
	case wsconn.StateConnected:
		p.wasConnected.Store(true)
		p.logger.Info(ctx, "bridge socket up", "url", p.config.URL)

	case wsconn.StateReconnecting:
		p.metrics.reconnects.Add(ctx, 1)
		p.logger.Warn(ctx, "bridge socket lost, reconnecting", "error", err)
		p.failPending(apperror.New(apperror.CodeBridgeConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("connection lost")))

	case wsconn.StateDisconnected:
		p.failPending(apperror.New(apperror.CodeBridgeConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("connection lost")))
		if p.wasConnected.CompareAndSwap(true, false) {
			// Retries exhausted after a live session: surface it as a
			// provider disconnect so the session can settle.
			p.logger.Error(ctx, "bridge socket gone, giving up", "error", err)
			p.enqueueDisconnect(ctx, err)
		}

	case wsconn.StateClosed:
		p.failPending(apperror.New(apperror.CodeBridgeClosed,
			apperror.WithContext("wallet bridge closed")))
	}
}

// enqueueDisconnect injects a synthetic disconnect event when the
// transport itself gives up, mirroring what a wallet would send.
func (p *Provider) enqueueDisconnect(ctx context.Context, cause error) {
	msg := "wallet bridge connection lost"
	if cause != nil {
		msg = cause.Error()
	}
	params, _ := json.Marshal([]rpcError{{Code: errCodeDisconnected, Message: msg}})
	p.enqueueEvent(ctx, &rpcNotification{Method: eventDisconnect, Params: params})
}

// Source resolves the bridge as the session's wallet provider. The
// provider counts as present only while the bridge socket is up, so
// every attempt observes the current transport state instead of a
// snapshot from startup.
type Source struct {
	provider *Provider
}

// NewSource wraps an existing bridge provider.
func NewSource(p *Provider) *Source {
	return &Source{provider: p}
}

// Current implements app.ProviderSource.
func (s *Source) Current(ctx context.Context) (app.Provider, error) {
	if s.provider == nil || !s.provider.Connected() {
		return nil, apperror.New(apperror.CodeNoProvider,
			apperror.WithContext("wallet bridge is not connected"))
	}
	return s.provider, nil
}

// Connect brings the underlying bridge transport up.
func (s *Source) Connect(ctx context.Context) error {
	return s.provider.Connect(ctx)
}

// Close tears the bridge transport down.
func (s *Source) Close() error {
	return s.provider.Close()
}
