package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upkeep/internal/config"
	"upkeep/internal/domain"
	"upkeep/internal/engine"
	"upkeep/internal/observability"
	"upkeep/internal/ports"
	"upkeep/internal/store/memory"
)

type testServer struct {
	URL   string
	Store *memory.Store
	now   *time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	e := engine.New(store, config.Default())
	e.Log = observability.Nop()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	ts := &testServer{Store: store, now: &now}
	e.Now = func() time.Time { return *ts.now }
	handler, err := New(Config{Engine: e, Log: observability.Nop()})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ts.URL = srv.URL + "/v1"
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	env := decode[struct {
		Error apiErrorBody `json:"error"`
	}](t, data)
	return env.Error.Code
}

func (s *testServer) registerEquipment(t *testing.T, id string) domain.Equipment {
	t.Helper()
	res, data := doJSON(t, http.MethodPost, s.URL+"/equipment", map[string]any{
		"id":                      id,
		"name":                    "Pump " + id,
		"asset_id":                "P-" + id,
		"date_of_manufacturing":   "2021-01-15",
		"useful_life_span_months": 180,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	return decode[domain.Equipment](t, data)
}

func planBody(equipmentID string) map[string]any {
	return map[string]any{
		"equipment_id":        equipmentID,
		"daily_working_hours": 8,
		"service_start_date":  "2024-01-01",
		"service_end_date":    "2024-06-30",
		"given_health_index":  95,
		"tiers": map[string]any{
			"A": map[string]int{"hours": 40, "duration_days": 1},
			"B": map[string]int{"hours": 160, "duration_days": 2},
			"D": map[string]int{"hours": 480, "duration_days": 3},
		},
	}
}

func (s *testServer) createPlan(t *testing.T, equipmentID string) PlanResponse {
	t.Helper()
	res, data := doJSON(t, http.MethodPost, s.URL+"/plans", planBody(equipmentID))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	return decode[PlanResponse](t, data)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestCreatePlanAndReadSchedule(t *testing.T) {
	srv := newTestServer(t)
	eq := srv.registerEquipment(t, "eq-1")

	plan := srv.createPlan(t, eq.ID)
	require.NotEmpty(t, plan.Events)
	assert.Equal(t, 80.0, plan.HealthIndex)

	res, data := doJSON(t, http.MethodGet, srv.URL+"/events?plan_id="+plan.Plan.ID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	list := decode[EventListResponse](t, data)
	require.Len(t, list.Items, len(plan.Events))
	for _, ev := range list.Items {
		assert.NotEmpty(t, ev.Color)
	}

	res, data = doJSON(t, http.MethodGet, srv.URL+"/plans/"+plan.Plan.ID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, eq.ID, decode[domain.Plan](t, data).EquipmentID)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/equipment/"+eq.ID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	got := decode[domain.Equipment](t, data)
	require.NotNil(t, got.HealthIndex)
	assert.Equal(t, 80.0, *got.HealthIndex)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/equipment/"+eq.ID+"/nearest-events", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	near := decode[engine.Nearest](t, data)
	require.NotNil(t, near.Previous)
	require.NotNil(t, near.Next)
	assert.Less(t, near.Previous.Start, "2024-01-15")
	assert.Greater(t, near.Next.Start, "2024-01-15")

	res, data = doJSON(t, http.MethodGet, srv.URL+"/events/summary", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	summary := decode[SummaryResponse](t, data)
	total := 0
	for _, s := range summary.Items {
		total += s.Events
	}
	assert.Equal(t, len(plan.Events), total)
}

func TestCreatePlanErrors(t *testing.T) {
	srv := newTestServer(t)
	eq := srv.registerEquipment(t, "eq-1")

	body := planBody(eq.ID)
	body["service_start_date"] = "2024-07-01"
	res, data := doJSON(t, http.MethodPost, srv.URL+"/plans", body)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid_range", errorCode(t, data))

	body = planBody(eq.ID)
	body["tiers"] = map[string]any{"A": map[string]int{"hours": 0, "duration_days": 1}}
	res, data = doJSON(t, http.MethodPost, srv.URL+"/plans", body)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "no_active_tier", errorCode(t, data))

	res, data = doJSON(t, http.MethodPost, srv.URL+"/plans", planBody("missing"))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, data))

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/plans", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHandleErrorMapsEngineClasses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no active tier", engine.ValidationError{Err: engine.ErrNoActiveTier}, http.StatusBadRequest, "no_active_tier"},
		{"wrapped range", fmt.Errorf("create plan: %w", engine.ValidationError{Err: engine.ErrInvalidRange}), http.StatusBadRequest, "invalid_range"},
		{"transition", engine.ValidationError{Err: engine.ErrInvalidTransition}, http.StatusUnprocessableEntity, "invalid_transition"},
		{"plain validation", engine.ValidationError{Err: errors.New("bad hours")}, http.StatusBadRequest, "bad_request"},
		{"not found", engine.NotFoundError{Err: engine.ErrEventNotFound}, http.StatusNotFound, "not_found"},
		{"conflict", fmt.Errorf("complete event: %w", engine.ConflictError{Err: ports.ErrConflict}), http.StatusConflict, "conflict"},
		{"persistence", engine.PersistenceError{Op: "sweep", Err: errors.New("disk full")}, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		got := handleError(tc.err)
		require.NotNil(t, got, tc.name)
		assert.Equal(t, tc.status, got.GetStatus(), tc.name)
		apiErr, ok := got.(*apiError)
		require.True(t, ok, tc.name)
		assert.Equal(t, tc.code, apiErr.Body.Code, tc.name)
	}
	assert.Nil(t, handleError(nil))
}

func TestGetMissingEquipment(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/equipment/nope", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, data))
}

func TestCompleteEvent(t *testing.T) {
	srv := newTestServer(t)
	eq := srv.registerEquipment(t, "eq-1")
	plan := srv.createPlan(t, eq.ID)
	require.NoError(t, srv.Store.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertEvents(ctx, []domain.Event{{
			ID: "ev-seed", PlanID: plan.Plan.ID, EquipmentID: eq.ID, Level: domain.LevelA,
			Title: "Pump service", Status: domain.StatusUpcoming,
			Start: "2024-01-14", End: "2024-01-14", ScheduledAt: "2024-01-14",
		}})
	}))

	res, data := doJSON(t, http.MethodPost, srv.URL+"/events/ev-seed/complete", map[string]any{"performed_at": "2024-01-15"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	done := decode[CompletionResponse](t, data)
	assert.Equal(t, domain.StatusComplete, done.Event.Status)
	assert.Zero(t, done.Penalty)

	res, data = doJSON(t, http.MethodPost, srv.URL+"/events/ev-seed/complete", map[string]any{"performed_at": "2024-01-15"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, "invalid_transition", errorCode(t, data))

	res, data = doJSON(t, http.MethodPost, srv.URL+"/events/missing/complete", map[string]any{"performed_at": "2024-01-15"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, data))

	res, data = doJSON(t, http.MethodPost, srv.URL+"/events/ev-seed/complete", map[string]any{"performed_at": "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
}

func TestCompleteEventConflict(t *testing.T) {
	srv := newTestServer(t)
	eq := srv.registerEquipment(t, "eq-1")
	plan := srv.createPlan(t, eq.ID)
	require.NoError(t, srv.Store.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertEvents(ctx, []domain.Event{{
			ID: "ev-late", PlanID: plan.Plan.ID, EquipmentID: eq.ID, Level: domain.LevelD,
			Title: "Pump overhaul", Status: domain.StatusOverdue,
			Start: "2024-01-08", End: "2024-01-10", ScheduledAt: "2024-01-08",
		}})
	}))
	srv.Store.FailOn("UpdateEquipmentHealthIndex", ports.ErrConflict)

	res, data := doJSON(t, http.MethodPost, srv.URL+"/events/ev-late/complete", map[string]any{"performed_at": "2024-01-15"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "conflict", errorCode(t, data))
}

func TestEmergencyLifecycle(t *testing.T) {
	srv := newTestServer(t)
	eq := srv.registerEquipment(t, "eq-1")

	res, data := doJSON(t, http.MethodPost, srv.URL+"/emergencies", map[string]any{"equipment_id": eq.ID})
	assert.Equal(t, http.StatusNotFound, res.StatusCode, string(data))

	srv.createPlan(t, eq.ID)
	res, data = doJSON(t, http.MethodPost, srv.URL+"/emergencies", map[string]any{"equipment_id": eq.ID, "title": "Seal leak"})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	em := decode[domain.Event](t, data)
	assert.Equal(t, domain.LevelE, em.Level)
	assert.Equal(t, domain.StatusEmergency, em.Status)
	assert.Equal(t, "2024-01-15", em.End)

	*srv.now = srv.now.AddDate(0, 0, 2)
	res, data = doJSON(t, http.MethodPost, srv.URL+"/jobs/close-emergencies", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	moved := decode[EventListResponse](t, data)
	require.Len(t, moved.Items, 1)
	assert.Equal(t, "2024-01-17", moved.Items[0].End)
}

func TestSweepJob(t *testing.T) {
	srv := newTestServer(t)
	eq := srv.registerEquipment(t, "eq-1")
	plan := srv.createPlan(t, eq.ID)
	require.NoError(t, srv.Store.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertEvents(ctx, []domain.Event{{
			ID: "ev-old", PlanID: plan.Plan.ID, EquipmentID: eq.ID, Level: domain.LevelB,
			Title: "Pump inspection", Status: domain.StatusOverdue,
			Start: "2023-12-20", End: "2023-12-21", ScheduledAt: "2023-12-20",
		}})
	}))

	res, data := doJSON(t, http.MethodPost, srv.URL+"/jobs/sweep", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Contains(t, decode[SweepResponse](t, data).Moved, "ev-old")

	res, data = doJSON(t, http.MethodPost, srv.URL+"/jobs/sweep", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Empty(t, decode[SweepResponse](t, data).Moved)
}

func TestListEventsRejectsBadFilter(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/events?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
}

func TestOpenAPIAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/openapi.json", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc := decode[map[string]any](t, data)
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/v1/plans")
	assert.Contains(t, paths, "/v1/events/{id}/complete")

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
