package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/walletgate/internal/apperror"
	"github.com/fd1az/walletgate/internal/logger"
)

// testBridge runs a WebSocket endpoint scripted per test. onRequest is
// invoked for every decoded request; the conns channel hands the
// server side of each accepted socket to the test for pushing
// notifications.
func testBridge(t *testing.T, onRequest func(ctx context.Context, conn *websocket.Conn, req rpcRequest)) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("websocket accept error: %v", err)
			return
		}

		conns <- conn

		ctx := context.Background()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			var req rpcRequest
			if err := json.Unmarshal(data, &req); err != nil {
				t.Logf("server received non-request frame: %s", data)
				continue
			}

			if onRequest != nil {
				onRequest(ctx, conn, req)
			}
		}
	}))

	return server, conns
}

func writeResult(t *testing.T, conn *websocket.Conn, id int64, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	frame, err := json.Marshal(map[string]any{"jsonrpc": jsonRPCVersion, "id": id, "result": json.RawMessage(raw)})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.Write(context.Background(), websocket.MessageText, frame); err != nil {
		t.Logf("write result: %v", err)
	}
}

func writeRPCError(t *testing.T, conn *websocket.Conn, id int64, code int, msg string) {
	t.Helper()
	frame, err := json.Marshal(map[string]any{
		"jsonrpc": jsonRPCVersion,
		"id":      id,
		"error":   rpcError{Code: code, Message: msg},
	})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.Write(context.Background(), websocket.MessageText, frame); err != nil {
		t.Logf("write error frame: %v", err)
	}
}

func writeNotification(t *testing.T, conn *websocket.Conn, method string, params any) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	frame, err := json.Marshal(map[string]any{"jsonrpc": jsonRPCVersion, "method": method, "params": json.RawMessage(raw)})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.Write(context.Background(), websocket.MessageText, frame); err != nil {
		t.Logf("write notification: %v", err)
	}
}

func acceptConn(t *testing.T, conns chan *websocket.Conn) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil
	}
}

// newTestProvider connects a provider to the test server with tight
// timeouts and the rate limiter disabled.
func newTestProvider(t *testing.T, serverURL string, mutate func(*Config)) *Provider {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")

	cfg := DefaultConfig(wsURL)
	cfg.RequestTimeout = 3 * time.Second
	cfg.RequestsPerSecond = 0
	if mutate != nil {
		mutate(&cfg)
	}

	p, err := NewProvider(cfg, logger.NewStdLogger(io.Discard, logger.LevelError))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	return p
}

func TestProvider_RequestRoundTrip(t *testing.T) {
	server, _ := testBridge(t, func(ctx context.Context, conn *websocket.Conn, req rpcRequest) {
		if req.Method == "eth_chainId" {
			writeResult(t, conn, req.ID, "0x1")
		}
	})
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	raw, err := p.Request(context.Background(), "eth_chainId")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if chainID != "0x1" {
		t.Errorf("got %s, want 0x1", chainID)
	}
}

func TestProvider_WalletErrorKeepsTaxonomy(t *testing.T) {
	server, _ := testBridge(t, func(ctx context.Context, conn *websocket.Conn, req rpcRequest) {
		writeRPCError(t, conn, req.ID, 4001, "User rejected the request.")
	})
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	raw, err := p.Request(context.Background(), "eth_requestAccounts")
	if err == nil {
		t.Fatal("expected an error")
	}
	if raw != nil {
		t.Errorf("expected nil result, got %s", raw)
	}
	if got := apperror.GetCode(err); got != apperror.CodeUserRejected {
		t.Errorf("got code %s, want %s", got, apperror.CodeUserRejected)
	}
}

func TestProvider_OutOfOrderResponsesCorrelate(t *testing.T) {
	var mu sync.Mutex
	var queued []rpcRequest

	server, _ := testBridge(t, func(ctx context.Context, conn *websocket.Conn, req rpcRequest) {
		mu.Lock()
		defer mu.Unlock()
		queued = append(queued, req)
		if len(queued) < 2 {
			return
		}
		// Answer in reverse arrival order, echoing each method back.
		for i := len(queued) - 1; i >= 0; i-- {
			writeResult(t, conn, queued[i].ID, queued[i].Method)
		}
	})
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	results := make(map[string]string)
	var resMu sync.Mutex
	var wg sync.WaitGroup

	for _, method := range []string{"eth_accounts", "eth_chainId"} {
		wg.Add(1)
		go func(method string) {
			defer wg.Done()
			raw, err := p.Request(context.Background(), method)
			if err != nil {
				t.Errorf("Request %s: %v", method, err)
				return
			}
			var echoed string
			if err := json.Unmarshal(raw, &echoed); err != nil {
				t.Errorf("decode %s result: %v", method, err)
				return
			}
			resMu.Lock()
			results[method] = echoed
			resMu.Unlock()
		}(method)
	}
	wg.Wait()

	for _, method := range []string{"eth_accounts", "eth_chainId"} {
		if results[method] != method {
			t.Errorf("request %s settled with %q: responses crossed", method, results[method])
		}
	}
}

func TestProvider_NotificationsReachHandlers(t *testing.T) {
	server, conns := testBridge(t, nil)
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	accountsCh := make(chan []string, 1)
	chainCh := make(chan string, 1)
	disconnectCh := make(chan error, 1)

	p.OnAccountsChanged(func(ctx context.Context, accounts []string) { accountsCh <- accounts })
	p.OnChainChanged(func(ctx context.Context, chainID string) { chainCh <- chainID })
	p.OnDisconnect(func(ctx context.Context, err error) { disconnectCh <- err })

	conn := acceptConn(t, conns)
	writeNotification(t, conn, eventAccountsChanged, []string{"0xabc"})
	writeNotification(t, conn, eventChainChanged, []string{"0x89"})
	writeNotification(t, conn, eventDisconnect, []rpcError{{Code: 4900, Message: "gone"}})

	select {
	case accounts := <-accountsCh:
		if len(accounts) != 1 || accounts[0] != "0xabc" {
			t.Errorf("accountsChanged payload: %v", accounts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("accountsChanged never reached the handler")
	}

	select {
	case chainID := <-chainCh:
		if chainID != "0x89" {
			t.Errorf("chainChanged payload: %s", chainID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chainChanged never reached the handler")
	}

	select {
	case err := <-disconnectCh:
		if err == nil || !strings.Contains(err.Error(), "gone") {
			t.Errorf("disconnect cause: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect never reached the handler")
	}
}

// A handler that issues its own request must not starve the read loop
// that settles it.
func TestProvider_RequestFromEventHandler(t *testing.T) {
	server, _ := testBridge(t, func(ctx context.Context, conn *websocket.Conn, req rpcRequest) {
		switch req.Method {
		case "wallet_ping":
			writeNotification(t, conn, eventChainChanged, []string{"0x89"})
			writeResult(t, conn, req.ID, "pong")
		case "eth_chainId":
			writeResult(t, conn, req.ID, "0x89")
		}
	})
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	nested := make(chan string, 1)
	p.OnChainChanged(func(ctx context.Context, chainID string) {
		raw, err := p.Request(ctx, "eth_chainId")
		if err != nil {
			t.Errorf("nested Request: %v", err)
			nested <- ""
			return
		}
		var got string
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("decode nested result: %v", err)
		}
		nested <- got
	})

	if _, err := p.Request(context.Background(), "wallet_ping"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	select {
	case got := <-nested:
		if got != "0x89" {
			t.Errorf("nested request settled with %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nested request never completed: event dispatch blocked the read loop")
	}
}

func TestProvider_RequestTimeout(t *testing.T) {
	server, _ := testBridge(t, func(ctx context.Context, conn *websocket.Conn, req rpcRequest) {
		// Never answer.
	})
	defer server.Close()

	p := newTestProvider(t, server.URL, func(cfg *Config) {
		cfg.RequestTimeout = 150 * time.Millisecond
	})

	start := time.Now()
	_, err := p.Request(context.Background(), "eth_accounts")
	if err == nil {
		t.Fatal("expected a timeout")
	}
	if got := apperror.GetCode(err); got != apperror.CodeRequestTimeout {
		t.Errorf("got code %s, want %s", got, apperror.CodeRequestTimeout)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestProvider_RequestBeforeConnect(t *testing.T) {
	p, err := NewProvider(DefaultConfig("ws://localhost:1"), logger.NewStdLogger(io.Discard, logger.LevelError))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Close()

	_, err = p.Request(context.Background(), "eth_accounts")
	if got := apperror.GetCode(err); got != apperror.CodeBridgeConnectionFailed {
		t.Errorf("got code %s, want %s", got, apperror.CodeBridgeConnectionFailed)
	}
}

func TestSource_TracksBridgeAvailability(t *testing.T) {
	server, _ := testBridge(t, nil)
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)
	source := NewSource(p)

	got, err := source.Current(context.Background())
	if err != nil {
		t.Fatalf("Current with a live bridge: %v", err)
	}
	if got != p {
		t.Error("Current returned a different provider")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := source.Current(context.Background()); apperror.GetCode(err) != apperror.CodeNoProvider {
		t.Errorf("closed bridge should resolve to %s, got %v", apperror.CodeNoProvider, err)
	}
}

func TestProvider_CloseFailsPending(t *testing.T) {
	received := make(chan struct{})
	var once sync.Once

	server, _ := testBridge(t, func(ctx context.Context, conn *websocket.Conn, req rpcRequest) {
		once.Do(func() { close(received) })
		// Never answer.
	})
	defer server.Close()

	p := newTestProvider(t, server.URL, func(cfg *Config) {
		cfg.RequestTimeout = 5 * time.Second
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Request(context.Background(), "eth_accounts")
		errCh <- err
	}()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the request")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-errCh:
		if got := apperror.GetCode(err); got != apperror.CodeBridgeClosed {
			t.Errorf("pending request settled with %s, want %s", got, apperror.CodeBridgeClosed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending request survived Close")
	}
}

func TestProvider_RegisteringHandlerReplacesPrevious(t *testing.T) {
	server, conns := testBridge(t, nil)
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	stale := make(chan string, 1)
	current := make(chan string, 1)
	p.OnChainChanged(func(ctx context.Context, chainID string) { stale <- chainID })
	p.OnChainChanged(func(ctx context.Context, chainID string) { current <- chainID })

	conn := acceptConn(t, conns)
	writeNotification(t, conn, eventChainChanged, []string{"0x1"})

	select {
	case got := <-current:
		if got != "0x1" {
			t.Errorf("got %s, want 0x1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("replacement handler never fired")
	}

	select {
	case got := <-stale:
		t.Errorf("replaced handler still fired with %s", got)
	default:
	}
}

func TestProvider_MalformedFrameDoesNotKillConnection(t *testing.T) {
	server, conns := testBridge(t, func(ctx context.Context, conn *websocket.Conn, req rpcRequest) {
		writeResult(t, conn, req.ID, "0x1")
	})
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	conn := acceptConn(t, conns)
	if err := conn.Write(context.Background(), websocket.MessageText, []byte("not json at all")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	// The connection survives and keeps serving requests.
	raw, err := p.Request(context.Background(), "eth_chainId")
	if err != nil {
		t.Fatalf("Request after garbage frame: %v", err)
	}
	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if chainID != "0x1" {
		t.Errorf("got %s, want 0x1", chainID)
	}
}

func TestProvider_ConnectTwiceIsNoOp(t *testing.T) {
	server, _ := testBridge(t, nil)
	defer server.Close()

	p := newTestProvider(t, server.URL, nil)

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect should be a no-op, got: %v", err)
	}
	if !p.Connected() {
		t.Error("provider should still be connected")
	}
}
