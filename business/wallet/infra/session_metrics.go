package infra

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/walletgate/business/wallet/domain"
)

const meterName = "wallet-session"

// SessionMetrics exposes the session state machine through OTEL
// instruments. Observe is a controller subscriber: it records the state
// gauge on every snapshot, counts accepted transitions and failure
// statuses, and times each handshake from entering Connecting to the
// next settled state.
type SessionMetrics struct {
	mu        sync.Mutex
	started   bool
	last      domain.ConnectionState
	handshake time.Time

	state       metric.Int64Gauge
	transitions metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewSessionMetrics creates the session metric instruments.
func NewSessionMetrics() (*SessionMetrics, error) {
	meter := otel.Meter(meterName)
	m := &SessionMetrics{}
	var err error

	m.state, err = meter.Int64Gauge(
		"wallet_session_state",
		metric.WithDescription("Wallet session state (0=disconnected, 1=connecting, 2=connected)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return nil, err
	}

	m.transitions, err = meter.Int64Counter(
		"wallet_session_transitions_total",
		metric.WithDescription("Total accepted session state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	m.failures, err = meter.Int64Counter(
		"wallet_session_failures_total",
		metric.WithDescription("Total session statuses carrying a connection error"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	m.latency, err = meter.Float64Histogram(
		"wallet_handshake_duration_ms",
		metric.WithDescription("Duration from handshake start to a settled session state"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Observe records one status snapshot. The first call is the subscribe
// snapshot and sets the baseline without counting a transition.
func (m *SessionMetrics) Observe(status domain.ConnectionStatus) {
	ctx := context.Background()

	m.mu.Lock()
	first := !m.started
	prev := m.last
	m.started = true
	m.last = status.State

	var handshakeMS float64
	var outcome string
	switch {
	case status.State == domain.StateConnecting && (first || prev != domain.StateConnecting):
		m.handshake = time.Now()
	case !first && prev == domain.StateConnecting && status.State != domain.StateConnecting && !m.handshake.IsZero():
		handshakeMS = time.Since(m.handshake).Seconds() * 1000
		m.handshake = time.Time{}
		if status.State == domain.StateConnected {
			outcome = "connected"
		} else {
			outcome = "disconnected"
		}
	}
	m.mu.Unlock()

	m.state.Record(ctx, stateValue(status.State))
	if !first {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(status.State))))
	}
	if status.Err != nil {
		m.failures.Add(ctx, 1)
	}
	if outcome != "" {
		m.latency.Record(ctx, handshakeMS, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func stateValue(s domain.ConnectionState) int64 {
	switch s {
	case domain.StateConnecting:
		return 1
	case domain.StateConnected:
		return 2
	default:
		return 0
	}
}
