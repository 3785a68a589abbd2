package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/walletgate/internal/logger"
)

func newTestServer() *Server {
	return NewServer(0, "test", logger.NewStdLogger(io.Discard, logger.LevelError))
}

func TestHandleHealth_ReportsChecks(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("provider", func(ctx context.Context) (bool, string) { return true, "connected" })

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("status.Status = %q, want ok", status.Status)
	}
	if status.Version != "test" {
		t.Errorf("status.Version = %q, want test", status.Version)
	}
	check, ok := status.Checks["provider"]
	if !ok || !check.Healthy || check.Message != "connected" {
		t.Errorf("provider check = %+v, want healthy with message", check)
	}
}

func TestHandleHealth_DegradedOnFailingCheck(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("provider", func(ctx context.Context) (bool, string) { return false, "bridge down" })

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("status.Status = %q, want degraded", status.Status)
	}
	if msg := status.Checks["provider"].Message; msg != "bridge down" {
		t.Errorf("check message = %q, want bridge down", msg)
	}
}

func TestHandleReady(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready with no checks: status = %d, want %d", rec.Code, http.StatusOK)
	}

	s.RegisterCheck("provider", func(ctx context.Context) (bool, string) { return false, "" })
	rec = httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with failing check: status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleLive(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().handleLive(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "alive" {
		t.Errorf("body = %q, want alive", rec.Body.String())
	}
}
