package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	watchers map[string]*models.Watcher
	next     time.Time
	failList bool
	lastDef  models.WatcherDefinition
	runDelay time.Duration
}

func newFakeService() *fakeService {
	return &fakeService{
		watchers: map[string]*models.Watcher{
			"w1": {ID: "w1", Query: "bike", Schedule: "@hourly", Status: models.WatcherStatusActive},
		},
		next: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeService) get(id string) (*models.Watcher, error) {
	w, ok := f.watchers[id]
	if !ok {
		return nil, common.WrapErrorf(common.ErrNotFound, "watcher %s", id)
	}
	return w, nil
}

func (f *fakeService) CreateWatcher(_ context.Context, def models.WatcherDefinition) (*models.Watcher, error) {
	f.lastDef = def
	if strings.TrimSpace(def.Query) == "" {
		return nil, common.NewValidationError("query", def.Query, "query cannot be empty")
	}
	if def.Schedule == "bad" {
		return nil, common.NewInvalidScheduleError(def.Schedule, errors.New("expected 5 to 6 fields"))
	}
	w := &models.Watcher{ID: "w2", Query: def.Query, Schedule: def.Schedule, Notifications: def.Notifications, Status: models.WatcherStatusActive}
	f.watchers[w.ID] = w
	return w, nil
}

func (f *fakeService) UpdateWatcher(_ context.Context, id string, def models.WatcherDefinition) (*models.Watcher, error) {
	w, err := f.get(id)
	if err != nil {
		return nil, err
	}
	w.Query = def.Query
	w.Schedule = def.Schedule
	return w, nil
}

func (f *fakeService) PauseWatcher(_ context.Context, id string) (*models.Watcher, error) {
	w, err := f.get(id)
	if err != nil {
		return nil, err
	}
	w.Status = models.WatcherStatusStopped
	return w, nil
}

func (f *fakeService) ResumeWatcher(_ context.Context, id string) (*models.Watcher, error) {
	w, err := f.get(id)
	if err != nil {
		return nil, err
	}
	w.Status = models.WatcherStatusActive
	return w, nil
}

func (f *fakeService) RescheduleWatcher(_ context.Context, id string, schedule string) (*models.Watcher, error) {
	if schedule == "bad" {
		return nil, common.NewInvalidScheduleError(schedule, nil)
	}
	w, err := f.get(id)
	if err != nil {
		return nil, err
	}
	w.Schedule = schedule
	return w, nil
}

func (f *fakeService) DeleteWatcher(_ context.Context, id string) error {
	if _, err := f.get(id); err != nil {
		return err
	}
	delete(f.watchers, id)
	return nil
}

func (f *fakeService) TriggerWatcher(_ context.Context, id string) (models.RunOutcome, error) {
	if _, err := f.get(id); err != nil {
		return models.RunOutcome{}, err
	}
	time.Sleep(f.runDelay)
	return models.RunOutcome{
		WatcherID:   id,
		Status:      models.RunStatusSucceeded,
		NewListings: []models.Listing{{ID: "a3", Title: "Bike"}},
		Deliveries: []models.DeliveryReport{{
			Target:         models.DiscordTarget(""),
			MessagesFailed: 1,
			LastErr:        common.NewDeliveryStatusError("discord", http.StatusBadGateway, "bad gateway"),
		}},
	}, nil
}

func (f *fakeService) GetWatcher(_ context.Context, id string) (*models.Watcher, error) {
	return f.get(id)
}

func (f *fakeService) ListWatchers(context.Context) ([]models.Watcher, error) {
	if f.failList {
		return nil, errors.New("connection reset")
	}
	out := make([]models.Watcher, 0, len(f.watchers))
	for _, w := range f.watchers {
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeService) NextRun(id string) (time.Time, bool) {
	w, ok := f.watchers[id]
	if !ok || !w.IsActive() {
		return time.Time{}, false
	}
	return f.next, true
}

func serve(t *testing.T, svc WatcherService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewHandler(svc, zerolog.Nop()).Routes()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := serve(t, newFakeService(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestCreateWatcher(t *testing.T) {
	svc := newFakeService()
	body := `{"query":"macbook","schedule":"*/5 * * * *","notifications":[{"kind":"DISCORD","webhook_url":"https://discord.test/x"}],"min_price":100}`

	rec := serve(t, svc, http.MethodPost, "/watchers", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "w2", out["id"])
	assert.Equal(t, "active", out["status"])
	assert.Equal(t, "2026-01-01T10:00:00Z", out["next_run"])
	assert.NotContains(t, out, "Marker")
	require.NotNil(t, svc.lastDef.MinPrice)
	assert.Equal(t, int64(100), *svc.lastDef.MinPrice)
	assert.Equal(t, []models.NotificationTarget{models.DiscordTarget("https://discord.test/x")}, svc.lastDef.Notifications)
}

func TestCreateWatcher_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed json", body: `{"query":`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"query":"bike","schedule":"@hourly","colour":"red"}`, code: http.StatusBadRequest},
		{name: "unknown notification kind", body: `{"query":"bike","schedule":"@hourly","notifications":[{"kind":"SMS"}]}`, code: http.StatusBadRequest},
		{name: "validation error", body: `{"query":" ","schedule":"@hourly"}`, code: http.StatusBadRequest},
		{name: "invalid schedule", body: `{"query":"bike","schedule":"bad"}`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, newFakeService(), http.MethodPost, "/watchers", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestWatcherLifecycleRoutes(t *testing.T) {
	svc := newFakeService()

	rec := serve(t, svc, http.MethodGet, "/watchers/w1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bike", decode(t, rec)["query"])

	rec = serve(t, svc, http.MethodPost, "/watchers/w1/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "stopped", out["status"])
	assert.NotContains(t, out, "next_run")

	rec = serve(t, svc, http.MethodPost, "/watchers/w1/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", decode(t, rec)["status"])

	rec = serve(t, svc, http.MethodPost, "/watchers/w1/reschedule", `{"schedule":"@every 10m"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "@every 10m", decode(t, rec)["schedule"])

	rec = serve(t, svc, http.MethodPost, "/watchers/w1/reschedule", `{"schedule":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, svc, http.MethodPut, "/watchers/w1", `{"query":"road bike","schedule":"@hourly"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "road bike", decode(t, rec)["query"])

	rec = serve(t, svc, http.MethodGet, "/watchers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = serve(t, svc, http.MethodDelete, "/watchers/w1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, svc, http.MethodGet, "/watchers/w1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundRoutes(t *testing.T) {
	svc := newFakeService()
	for _, route := range []struct{ method, path, body string }{
		{http.MethodGet, "/watchers/missing", ""},
		{http.MethodDelete, "/watchers/missing", ""},
		{http.MethodPost, "/watchers/missing/pause", ""},
		{http.MethodPost, "/watchers/missing/resume", ""},
		{http.MethodPost, "/watchers/missing/run", ""},
		{http.MethodPost, "/watchers/missing/reschedule", `{"schedule":"@hourly"}`},
	} {
		rec := serve(t, svc, route.method, route.path, route.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestRunWatcher(t *testing.T) {
	rec := serve(t, newFakeService(), http.MethodPost, "/watchers/w1/run", "")

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "succeeded", out["status"])
	assert.Len(t, out["new_listings"], 1)
	deliveries, ok := out["deliveries"].([]any)
	require.True(t, ok)
	require.Len(t, deliveries, 1)
	delivery := deliveries[0].(map[string]any)
	assert.EqualValues(t, 1, delivery["messages_failed"])
	assert.Contains(t, delivery["error"], "HTTP 502")
}

func TestRunWatcher_OutlastsServerTimeouts(t *testing.T) {
	svc := newFakeService()
	svc.runDelay = 300 * time.Millisecond
	server := httptest.NewUnstartedServer(NewHandler(svc, zerolog.Nop()).Routes())
	server.Config.ReadTimeout = 100 * time.Millisecond
	server.Config.WriteTimeout = 100 * time.Millisecond
	server.Start()
	defer server.Close()

	resp, err := http.Post(server.URL+"/watchers/w1/run", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "succeeded", out["status"])
}

func TestInternalErrorIsMasked(t *testing.T) {
	svc := newFakeService()
	svc.failList = true

	rec := serve(t, svc, http.MethodGet, "/watchers", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec)["error"])
}

func TestMethodNotAllowed(t *testing.T) {
	rec := serve(t, newFakeService(), http.MethodPatch, "/watchers/w1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(common.NewValidationError("f", 1, "bad")))
	assert.Equal(t, http.StatusBadRequest, statusFor(common.NewInvalidScheduleError("x", nil)))
	assert.Equal(t, http.StatusNotFound, statusFor(common.WrapError(common.ErrNotFound, "watcher w1")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
