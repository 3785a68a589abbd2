// Package wsconn provides a production-grade WebSocket client with reconnection.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// MessageHandler receives every raw message read from the socket.
type MessageHandler func(ctx context.Context, msg []byte)

// StateChangeHandler is notified on every state transition. err is
// non-nil when the transition was caused by a failure.
type StateChangeHandler func(state State, err error)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // identifies the connection in state callbacks
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration // 0 disables the ping loop
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64 // 0 = transport default
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// Client is a reconnecting WebSocket client.
type Client struct {
	config Config

	conn   *websocket.Conn
	connMu sync.RWMutex

	writeMu sync.Mutex

	state   State
	stateMu sync.RWMutex

	onMessage     MessageHandler
	onStateChange StateChangeHandler
	handlersMu    sync.RWMutex

	readCancel context.CancelFunc
	closed     atomic.Bool
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("wsconn: URL is required")
	}

	return &Client{
		config: config,
		state:  StateDisconnected,
	}, nil
}

// OnMessage registers the message handler. Registering replaces any
// previous handler.
func (c *Client) OnMessage(handler MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = handler
	c.handlersMu.Unlock()
}

// OnStateChange registers the state change handler. Registering
// replaces any previous handler.
func (c *Client) OnStateChange(handler StateChangeHandler) {
	c.handlersMu.Lock()
	c.onStateChange = handler
	c.handlersMu.Unlock()
}

// Connect establishes the WebSocket connection and starts the read and
// ping loops. ctx bounds the dial only; the connection itself lives
// until Close.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.New("wsconn: client is closed")
	}

	c.setState(StateConnecting, nil)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return fmt.Errorf("wsconn %s: dial %s: %w", c.config.Name, c.config.URL, err)
	}

	c.startLoops()
	c.setState(StateConnected, nil)

	return nil
}

// ConnectWithRetry keeps attempting Connect with exponential backoff
// until it succeeds, the context is cancelled, or MaxReconnects is
// exhausted.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	attempts := 0

	for {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}

		attempts++
		if c.config.MaxReconnects > 0 && attempts >= c.config.MaxReconnects {
			return fmt.Errorf("wsconn %s: giving up after %d attempts: %w", c.config.Name, attempts, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

// Send writes a raw text message.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || !c.IsConnected() {
		return errors.New("wsconn: not connected")
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	// The transport allows one concurrent writer.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.Write(ctx, websocket.MessageText, msg)
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsconn: marshal: %w", err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if c.readCancel != nil {
		c.readCancel()
	}

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client shutdown")
	}

	c.setState(StateClosed, nil)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return err
	}

	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	return nil
}

func (c *Client) startLoops() {
	loopCtx, cancel := context.WithCancel(context.Background())
	c.readCancel = cancel

	go c.readLoop(loopCtx)
	if c.config.PingInterval > 0 {
		go c.pingLoop(loopCtx)
	}
}

func (c *Client) readLoop(ctx context.Context) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if c.closed.Load() || ctx.Err() != nil {
				return
			}
			c.reconnect(ctx, err)
			return
		}

		c.handlersMu.RLock()
		handler := c.onMessage
		c.handlersMu.RUnlock()

		if handler != nil {
			handler(ctx, data)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil {
				return
			}

			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			cancel()

			if err != nil && !c.closed.Load() {
				// Force the read loop to observe the failure.
				conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

// reconnect re-dials with exponential backoff after a read failure.
func (c *Client) reconnect(ctx context.Context, cause error) {
	c.setState(StateReconnecting, cause)

	backoff := c.config.InitialBackoff
	attempts := 0

	for {
		if c.closed.Load() {
			return
		}
		if c.config.MaxReconnects > 0 && attempts >= c.config.MaxReconnects {
			c.setState(StateDisconnected, cause)
			return
		}

		select {
		case <-ctx.Done():
			if !c.closed.Load() {
				c.setState(StateDisconnected, ctx.Err())
			}
			return
		case <-time.After(backoff):
		}

		attempts++
		if err := c.dial(ctx); err != nil {
			backoff *= 2
			if backoff > c.config.MaxBackoff {
				backoff = c.config.MaxBackoff
			}
			continue
		}

		c.setState(StateConnected, nil)
		go c.readLoop(ctx)
		return
	}
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	c.handlersMu.RLock()
	handler := c.onStateChange
	c.handlersMu.RUnlock()

	if handler != nil {
		handler(state, err)
	}
}
