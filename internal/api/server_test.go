package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trading-core/internal/atrtracker"
	"trading-core/internal/ingestion"
	"trading-core/internal/model"
	"trading-core/internal/monitor"
	"trading-core/internal/outcome"
	"trading-core/internal/ports"
	"trading-core/internal/signalgen"
	"trading-core/internal/streak"
)

type stubSource struct{}

func (stubSource) SubscribeBars1m(context.Context, []string, ports.BarHandler) (func(), error) {
	return func() {}, nil
}
func (stubSource) SubscribeTrades(context.Context, []string, ports.TradeHandler) (func(), error) {
	return func() {}, nil
}
func (stubSource) FetchBars(context.Context, string, int64, int64) ([]model.Bar, error) {
	return nil, nil
}

type stubSignals struct{}

func (stubSignals) RecentSignals(context.Context, int) ([]model.Signal, error) {
	return []model.Signal{{ID: "sig-x", State: model.StateTP}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	streaks := streak.New(nil)
	gen := signalgen.New(signalgen.DefaultConfig(), atrtracker.New(1, 100), streaks, nil, nil, nil)
	outcomes := outcome.New(nil, nil)
	metrics := monitor.NewEngineMetrics()
	pipeline := ingestion.New(ingestion.Config{Instruments: []string{"BTCUSDT"}},
		stubSource{}, ports.NoopBarStore{}, ports.NoopCheckpointStore{},
		gen, outcomes, streaks, metrics, nil)
	return NewServer(pipeline, outcomes, streaks, metrics, stubSignals{}, "test-secret")
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["phase"] != string(ingestion.PhaseIdle) {
		t.Fatalf("phase=%v, expected IDLE before Run", body["phase"])
	}
}

func TestRecentSignalsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signals/recent?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var signals []model.Signal
	if err := json.Unmarshal(rec.Body.Bytes(), &signals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(signals) != 1 || signals[0].ID != "sig-x" {
		t.Fatalf("signals=%+v", signals)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/pause", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status=%d, expected 401", rec.Code)
	}

	// Wrong secret rejects.
	bad := signToken(t, "wrong-secret")
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status=%d, expected 401", rec.Code)
	}

	// Correct secret pauses the pipeline.
	good := signToken(t, "test-secret")
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}
