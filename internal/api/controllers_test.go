package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"governance-core/internal/capital"
	"governance-core/internal/confidence"
	"governance-core/internal/events"
	"governance-core/internal/execution"
	"governance-core/internal/gate"
	"governance-core/internal/governance"
	"governance-core/internal/mode"
	"governance-core/internal/monitor"
	"governance-core/internal/regime"
	"governance-core/internal/risk"
	"governance-core/internal/shadow"
	"governance-core/pkg/db"
)

func newTestAPIServer(t *testing.T) (*httptest.Server, *governance.System, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := db.Migrate(database.DB); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	bus := events.NewBus()
	modes := mode.NewController(mode.Aggressive, bus)
	governor := risk.NewGovernor(risk.DefaultLimits(), 10000, bus)
	permGate := gate.New(modes, governor)
	exec := execution.NewManager(execution.Config{
		Mode:  execution.ModeSimulation,
		Modes: modes,
		Risk:  governor,
		Gate:  permGate,
		Bus:   bus,
	})
	sys := &governance.System{
		Modes:      modes,
		Risk:       governor,
		Gate:       permGate,
		Exec:       exec,
		Capital:    capital.NewPool(10000),
		Regimes:    regime.NewDetector(5),
		Confidence: confidence.NewGate(0.5, 0),
		Bus:        bus,
	}

	server := NewServer(bus, database, sys, shadow.NewTracker(0), monitor.NewSystemMetrics(), SystemMeta{
		ExecutionMode: string(execution.ModeSimulation),
		Version:       "test",
	}, 100, 200)

	ts := httptest.NewServer(server.Router)
	return ts, sys, func() {
		ts.Close()
		database.Close()
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, cleanup := newTestAPIServer(t)
	defer cleanup()

	var body map[string]any
	if code := getJSON(t, ts.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("health body = %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, _, cleanup := newTestAPIServer(t)
	defer cleanup()

	var body map[string]any
	if code := getJSON(t, ts.URL+"/api/status", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["mode"] != string(mode.Aggressive) {
		t.Fatalf("mode = %v", body["mode"])
	}
	if body["risk_state"] != string(risk.StateActive) {
		t.Fatalf("risk_state = %v", body["risk_state"])
	}
}

func TestSetModeEndpoint(t *testing.T) {
	ts, sys, cleanup := newTestAPIServer(t)
	defer cleanup()

	code := postJSON(t, ts.URL+"/api/mode", map[string]string{
		"mode":   "OBSERVE_ONLY",
		"reason": "manual halt",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if sys.Modes.Mode() != mode.ObserveOnly {
		t.Fatalf("mode = %v after POST", sys.Modes.Mode())
	}

	// Invalid mode value rejected by binding.
	code = postJSON(t, ts.URL+"/api/mode", map[string]string{
		"mode":   "YOLO",
		"reason": "nope",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d for invalid mode", code)
	}

	// Missing reason rejected.
	code = postJSON(t, ts.URL+"/api/mode", map[string]string{
		"mode": "AGGRESSIVE",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d for missing reason", code)
	}
}

func TestModeHistoryEndpoint(t *testing.T) {
	ts, sys, cleanup := newTestAPIServer(t)
	defer cleanup()

	sys.Modes.Set(mode.ObserveOnly, "test transition")

	var body struct {
		History []mode.Transition `json:"history"`
	}
	if code := getJSON(t, ts.URL+"/api/mode/history", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(body.History))
	}
}

func TestRiskEndpoints(t *testing.T) {
	ts, sys, cleanup := newTestAPIServer(t)
	defer cleanup()

	var body struct {
		State  string       `json:"state"`
		Limits risk.Limits  `json:"limits"`
		M      risk.Metrics `json:"metrics"`
	}
	if code := getJSON(t, ts.URL+"/api/risk", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.State != string(risk.StateActive) {
		t.Fatalf("state = %v", body.State)
	}
	if body.Limits.MaxSystemDailyLoss != 500 {
		t.Fatalf("limits = %+v", body.Limits)
	}

	code := postJSON(t, ts.URL+"/api/risk/state", map[string]string{
		"state":  "PAUSED",
		"reason": "maintenance window",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if sys.Risk.RiskState() != risk.StatePaused {
		t.Fatalf("risk state = %v after POST", sys.Risk.RiskState())
	}
}

func TestShadowEndpointsEmpty(t *testing.T) {
	ts, _, cleanup := newTestAPIServer(t)
	defer cleanup()

	var summary shadow.Summary
	if code := getJSON(t, ts.URL+"/api/shadow/summary", &summary); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if summary.Count != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestExecutionsEndpoint(t *testing.T) {
	ts, _, cleanup := newTestAPIServer(t)
	defer cleanup()

	var body map[string]any
	if code := getJSON(t, ts.URL+"/api/executions", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
}

func TestSubmitTradeEndpoint(t *testing.T) {
	ts, sys, cleanup := newTestAPIServer(t)
	defer cleanup()

	body := map[string]any{
		"strategy_id":   "strat-1",
		"strategy_type": "momentum",
		"pair":          "BTC/USD",
		"action":        "BUY",
		"amount":        0.01,
		"price":         50000,
	}

	var out governance.Outcome
	if code := postJSON(t, ts.URL+"/api/trades", body, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out.Result == nil || !out.Result.Success {
		t.Fatalf("outcome = %+v, want executed trade", out)
	}
	if len(sys.Exec.History()) != 1 {
		t.Fatalf("history length = %d, want 1", len(sys.Exec.History()))
	}
}

func TestSubmitTradeEndpointValidation(t *testing.T) {
	ts, _, cleanup := newTestAPIServer(t)
	defer cleanup()

	code := postJSON(t, ts.URL+"/api/trades", map[string]any{
		"strategy_id":   "strat-1",
		"strategy_type": "momentum",
		"pair":          "BTC/USD",
		"action":        "hold",
		"amount":        0.01,
		"price":         50000,
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestSubmitTradeEndpointObserveOnly(t *testing.T) {
	ts, sys, cleanup := newTestAPIServer(t)
	defer cleanup()

	sys.Modes.Set(mode.ObserveOnly, "halt")

	var out governance.Outcome
	if code := postJSON(t, ts.URL+"/api/trades", map[string]any{
		"strategy_id":   "strat-1",
		"strategy_type": "momentum",
		"pair":          "BTC/USD",
		"action":        "BUY",
		"amount":        0.01,
		"price":         50000,
	}, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out.Result == nil || out.Result.Success {
		t.Fatalf("outcome = %+v, want recorded denial", out)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, cleanup := newTestAPIServer(t)
	defer cleanup()

	var snap monitor.MetricsSnapshot
	if code := getJSON(t, ts.URL+"/api/metrics", &snap); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if snap.GoroutineCount <= 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}
