package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"fleetmon/internal/broadcast"
	"fleetmon/internal/config"
	"fleetmon/internal/dedup"
	"fleetmon/internal/dispatch"
	"fleetmon/internal/mailer"
	"fleetmon/internal/models"
	"fleetmon/internal/monitor"
	"fleetmon/internal/predictor"
	"fleetmon/internal/recipients"
	"fleetmon/internal/registry"
	"fleetmon/internal/simulation"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(to string, msg mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return "msg-1", nil
}

type testEnv struct {
	handlers *Handlers
	monitor  *monitor.Monitor
	router   *mux.Router
	sender   *fakeSender
	store    *recipients.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg, err := registry.FromProfiles([]config.FleetProfile{
		{MachineID: "GOOD-01", Name: "Good", BaseHealth: 95, DegradationRate: 0, Volatility: 0},
		{MachineID: "BAD-01", Name: "Bad", BaseHealth: 5, DegradationRate: 0, Volatility: 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &simulation.FixedClock{StartTime: start, CurrentTime: start}
	gen := simulation.NewGenerator(clock, simulation.ZeroNoise{})
	scorer := predictor.NewScorer(simulation.ZeroNoise{})

	hub := broadcast.NewHub()
	sender := &fakeSender{}
	dispatcher := dispatch.New(dedup.New(time.Minute), sender, hub, 2)
	store := recipients.NewMemoryStore()

	mon := monitor.New(reg, gen, scorer, dispatcher, store, hub, nil, monitor.NewAlertBook(), time.Minute)
	mon.WithClock(func() time.Time { return start })

	h := New(reg, mon, gen, scorer, dispatcher, store, hub)
	r := mux.NewRouter()
	h.Routes(r)

	return &testEnv{handlers: h, monitor: mon, router: r, sender: sender, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("bad response %q: %v", rec.Body.String(), err)
	}
}

func TestPredict(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/predict",
		map[string]float64{"temperature": 95, "vibration": 2, "current": 12})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Prediction      models.Prediction `json:"prediction"`
		Recommendations []string          `json:"recommendations"`
	}
	decode(t, rec, &resp)

	if resp.Prediction.HealthPercentage != 52 {
		t.Errorf("health = %d, want 52", resp.Prediction.HealthPercentage)
	}
	if resp.Prediction.RUL != 65.23 {
		t.Errorf("RUL = %v, want 65.23", resp.Prediction.RUL)
	}
	if resp.Prediction.Status != models.StatusWarning {
		t.Errorf("status = %s, want WARNING", resp.Prediction.Status)
	}
	if resp.Prediction.RootCause == "" {
		t.Error("expected a root cause for a degraded reading")
	}
	if len(resp.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
}

func TestPredictValidation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing fields", `{"temperature": 95}`, "vibration"},
		{"non-numeric", `{"temperature": "hot", "vibration": 2, "current": 12}`, "temperature"},
		{"out of range", `{"temperature": 300, "vibration": 2, "current": 12}`, "temperature"},
		{"negative vibration", `{"temperature": 95, "vibration": -2, "current": 12}`, "vibration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/predict", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var resp struct {
				Details []models.FieldError `json:"details"`
			}
			decode(t, rec, &resp)

			found := false
			for _, d := range resp.Details {
				if d.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("details %v missing field %q", resp.Details, tt.wantField)
			}
		})
	}
}

func TestPredictMalformedJSON(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodPost, "/api/predict", `{not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPredictWithAlertEmail(t *testing.T) {
	e := newTestEnv(t)

	body := `{"temperature": 95, "vibration": 2, "current": 12, "alert_email": "me@example.com"}`
	rec := e.do(t, http.MethodPost, "/api/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Dispatch []models.DispatchResult `json:"dispatch"`
	}
	decode(t, rec, &resp)

	if len(resp.Dispatch) != 1 || resp.Dispatch[0].Status != models.DispatchSent {
		t.Fatalf("dispatch = %+v, want one sent result", resp.Dispatch)
	}

	// The manual path ignores the cooldown: an immediate repeat sends again.
	rec = e.do(t, http.MethodPost, "/api/predict", body)
	decode(t, rec, &resp)
	if resp.Dispatch[0].Status != models.DispatchSent {
		t.Errorf("repeat dispatch = %+v, want sent", resp.Dispatch[0])
	}
}

func TestSimulate(t *testing.T) {
	e := newTestEnv(t)
	e.monitor.Tick(context.Background())

	rec := e.do(t, http.MethodPost, "/api/simulate",
		`{"machine_id": "GOOD-01", "temperature": 95, "vibration": 2, "current": 12}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Simulated   models.Prediction  `json:"simulated"`
		Current     *models.Prediction `json:"current"`
		HealthDelta *int               `json:"healthDelta"`
	}
	decode(t, rec, &resp)

	if resp.Simulated.HealthPercentage != 52 {
		t.Errorf("simulated health = %d, want 52", resp.Simulated.HealthPercentage)
	}
	if resp.Current == nil || resp.HealthDelta == nil {
		t.Fatal("expected current state and delta for a known machine")
	}
	if *resp.HealthDelta != resp.Simulated.HealthPercentage-resp.Current.HealthPercentage {
		t.Errorf("delta %d inconsistent", *resp.HealthDelta)
	}

	// Simulation never sends email.
	if len(e.sender.sent) != 0 {
		t.Errorf("simulate sent %d emails, want 0", len(e.sender.sent))
	}
}

func TestListMachines(t *testing.T) {
	e := newTestEnv(t)
	e.monitor.Tick(context.Background())

	rec := e.do(t, http.MethodGet, "/api/machines", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Machines []models.MachineState `json:"machines"`
		Count    int                   `json:"count"`
	}
	decode(t, rec, &resp)

	if resp.Count != 2 || len(resp.Machines) != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Machines[0].Profile.MachineID != "BAD-01" {
		t.Errorf("first machine = %s, want BAD-01 (sorted)", resp.Machines[0].Profile.MachineID)
	}
	if resp.Machines[0].Prediction.Status == "" {
		t.Error("evaluated machine missing prediction")
	}
}

func TestGetMachine(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/machines/GOOD-01?hours=12", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Profile models.MachineProfile     `json:"profile"`
		History []simulation.HistoryPoint `json:"history"`
	}
	decode(t, rec, &resp)

	if resp.Profile.MachineID != "GOOD-01" {
		t.Errorf("profile = %s, want GOOD-01", resp.Profile.MachineID)
	}
	if len(resp.History) != 13 {
		t.Errorf("history has %d points for 12h, want 13", len(resp.History))
	}
}

func TestGetMachineErrors(t *testing.T) {
	e := newTestEnv(t)

	if rec := e.do(t, http.MethodGet, "/api/machines/NOPE", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown machine status = %d, want 404", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/api/machines/GOOD-01?hours=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("hours=0 status = %d, want 400", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/api/machines/GOOD-01?hours=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("hours=abc status = %d, want 400", rec.Code)
	}
}

func TestLiveReading(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/machines/BAD-01/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var state models.MachineState
	decode(t, rec, &state)
	if state.Prediction.Status != models.StatusCritical {
		t.Errorf("live status = %s, want CRITICAL", state.Prediction.Status)
	}
}

func TestAddMachine(t *testing.T) {
	e := newTestEnv(t)

	body := map[string]interface{}{
		"machine_id":       "NEW-01",
		"name":             "New Grinder",
		"type":             "Grinder",
		"location":         "Bay C",
		"base_health":      88,
		"degradation_rate": 0.04,
		"volatility":       0.6,
	}
	if rec := e.do(t, http.MethodPost, "/api/machines", body); rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodPost, "/api/machines", body); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/machines", map[string]string{"name": "No ID"}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing ID status = %d, want 400", rec.Code)
	}

	// The new machine is immediately servable.
	if rec := e.do(t, http.MethodGet, "/api/machines/NEW-01", nil); rec.Code != http.StatusOK {
		t.Errorf("get new machine status = %d, want 200", rec.Code)
	}
}

func TestFleetSummary(t *testing.T) {
	e := newTestEnv(t)
	e.monitor.Tick(context.Background())

	rec := e.do(t, http.MethodGet, "/api/fleet/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Total        int `json:"total"`
		Healthy      int `json:"healthy"`
		Critical     int `json:"critical"`
		ActiveAlerts int `json:"activeAlerts"`
	}
	decode(t, rec, &resp)

	if resp.Total != 2 || resp.Healthy != 1 || resp.Critical != 1 {
		t.Errorf("summary = %+v, want total 2, healthy 1, critical 1", resp)
	}
	if resp.ActiveAlerts != 1 {
		t.Errorf("active alerts = %d, want 1", resp.ActiveAlerts)
	}
}

func TestAlertsLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.monitor.Tick(context.Background())

	rec := e.do(t, http.MethodGet, "/api/alerts", nil)
	var list struct {
		Alerts []models.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	decode(t, rec, &list)
	if list.Count != 1 {
		t.Fatalf("alert count = %d, want 1", list.Count)
	}

	id := list.Alerts[0].ID
	rec = e.do(t, http.MethodPost, "/api/alerts/"+id+"/acknowledge", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("acknowledge status = %d", rec.Code)
	}

	var acked models.Alert
	decode(t, rec, &acked)
	if !acked.Acknowledged {
		t.Error("alert not acknowledged")
	}

	if rec := e.do(t, http.MethodPost, "/api/alerts/nope/acknowledge", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown alert status = %d, want 404", rec.Code)
	}
}

func TestSubscriptions(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/subscriptions",
		map[string]string{"email": "tech@example.com", "machine_id": "GOOD-01"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe status = %d, body %s", rec.Code, rec.Body.String())
	}

	got, err := e.store.ListRecipients(context.Background(), "GOOD-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "tech@example.com" {
		t.Errorf("recipients = %v, want tech@example.com", got)
	}

	rec = e.do(t, http.MethodDelete, "/api/subscriptions",
		map[string]string{"email": "tech@example.com", "machine_id": "GOOD-01"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unsubscribe status = %d", rec.Code)
	}
	if got, _ = e.store.ListRecipients(context.Background(), "GOOD-01"); len(got) != 0 {
		t.Errorf("recipients = %v after unsubscribe, want empty", got)
	}
}

func TestSubscriptionValidation(t *testing.T) {
	e := newTestEnv(t)

	if rec := e.do(t, http.MethodPost, "/api/subscriptions",
		map[string]string{"email": "not-an-email"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad email status = %d, want 400", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/subscriptions",
		map[string]string{"email": "a@b.com", "machine_id": "NOPE"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown machine status = %d, want 404", rec.Code)
	}

	// Empty machine ID means fleet-wide, which is always valid.
	if rec := e.do(t, http.MethodPost, "/api/subscriptions",
		map[string]string{"email": "a@b.com"}); rec.Code != http.StatusCreated {
		t.Errorf("fleet-wide status = %d, want 201", rec.Code)
	}
}
