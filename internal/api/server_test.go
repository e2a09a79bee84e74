package api

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

	"ecopulse/internal/gateway"
	"ecopulse/internal/identity"
	"ecopulse/internal/metrics"
	"ecopulse/internal/models"
	"ecopulse/internal/service"
	"ecopulse/internal/storage"
	"ecopulse/internal/workflows"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "api-test-secret"

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type stubGateway struct {
	resp gateway.ChatResponse
	err  error
}

func (g *stubGateway) Invoke(context.Context, gateway.ChatRequest) (gateway.ChatResponse, error) {
	return g.resp, g.err
}

// fakeDB backs the handful of stores the routes under test use. Stores left
// nil in the service make their routes panic, which exercises recovery.
type fakeDB struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	metrics   []models.Metric
	bills     map[string]models.Bill
	forecasts []models.Forecast
	logs      []models.AgentLog
	daily     []models.DailyReward
	points    map[string]int
}

func newFakeDB() *fakeDB {
	return &fakeDB{profiles: map[string]models.Profile{}, bills: map[string]models.Bill{}, points: map[string]int{}}
}

func (f *fakeDB) EnsureProfile(_ context.Context, id, name, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[id]; !ok {
		f.profiles[id] = models.Profile{ID: id, Name: name, Email: email}
	}
	return nil
}

func (f *fakeDB) Get(_ context.Context, id string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeDB) Update(_ context.Context, id, name, email string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	if name != "" {
		p.Name = name
	}
	if email != "" {
		p.Email = email
	}
	f.profiles[id] = p
	return p, nil
}

func (f *fakeDB) ListProfiles(context.Context) ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

type fakeMetrics struct{ db *fakeDB }

func (m fakeMetrics) Insert(_ context.Context, x models.Metric) (models.Metric, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.metrics = append(m.db.metrics, x)
	return x, nil
}

func (m fakeMetrics) ListRecent(_ context.Context, userID string, limit int) ([]models.Metric, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []models.Metric
	for i := len(m.db.metrics) - 1; i >= 0 && len(out) < limit; i-- {
		if m.db.metrics[i].UserID == userID {
			out = append(out, m.db.metrics[i])
		}
	}
	return out, nil
}

func (m fakeMetrics) ListSince(_ context.Context, userID string, since time.Time) ([]models.Metric, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []models.Metric
	for _, x := range m.db.metrics {
		if x.UserID == userID && !x.Timestamp.Before(since) {
			out = append(out, x)
		}
	}
	return out, nil
}

type fakeBills struct{ db *fakeDB }

func (b fakeBills) Upsert(_ context.Context, x models.Bill) (models.Bill, error) {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	key := x.UserID + "|" + x.Month
	if prev, ok := b.db.bills[key]; ok {
		x.ID = prev.ID
	} else {
		x.ID = key
	}
	b.db.bills[key] = x
	return x, nil
}

func (b fakeBills) ListRecent(_ context.Context, userID string, _ int) ([]models.Bill, error) {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	var out []models.Bill
	for _, x := range b.db.bills {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out, nil
}

type fakeForecasts struct{ db *fakeDB }

func (f fakeForecasts) Insert(_ context.Context, x models.Forecast) (models.Forecast, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	x.ID = int64(len(f.db.forecasts) + 1)
	f.db.forecasts = append(f.db.forecasts, x)
	return x, nil
}

func (f fakeForecasts) Latest(context.Context, string) (models.Forecast, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if len(f.db.forecasts) == 0 {
		return models.Forecast{}, storage.ErrNotFound
	}
	return f.db.forecasts[len(f.db.forecasts)-1], nil
}

type fakeLogs struct{ db *fakeDB }

func (l fakeLogs) Insert(_ context.Context, x models.AgentLog) error {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	l.db.logs = append(l.db.logs, x)
	return nil
}

func (l fakeLogs) ListRecent(context.Context, string, int) ([]models.AgentLog, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	return append([]models.AgentLog(nil), l.db.logs...), nil
}

type fakeRewards struct{ db *fakeDB }

func (r fakeRewards) GetPoints(_ context.Context, userID string) (models.EcoPoints, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.points[userID]
	if !ok {
		return models.EcoPoints{}, storage.ErrNotFound
	}
	return models.EcoPoints{UserID: userID, Points: p, BadgeLevel: storage.DefaultBadge}, nil
}

func (r fakeRewards) ApplyPolicyReward(context.Context, models.PolicyReward) error { return nil }

func (r fakeRewards) ApplyDailyReward(_ context.Context, rw models.DailyReward) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.daily = append(r.db.daily, rw)
	r.db.points[rw.UserID] += rw.Points
	score := rw.EcoScore
	p := r.db.profiles[rw.UserID]
	p.EcoScore = &score
	r.db.profiles[rw.UserID] = p
	return nil
}

func (r fakeRewards) ListAchievements(context.Context, string) ([]models.Achievement, error) {
	return []models.Achievement{}, nil
}

func (r fakeRewards) Leaderboard(context.Context, int) ([]models.LeaderboardEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.LeaderboardEntry, 0, len(r.db.points))
	for id, pts := range r.db.points {
		p := r.db.profiles[id]
		out = append(out, models.LeaderboardEntry{UserID: id, Name: p.Name, EcoScore: p.EcoScore, Points: pts, BadgeLevel: storage.DefaultBadge})
	}
	return out, nil
}

func (r fakeRewards) ListActiveChallenges(context.Context) ([]models.Challenge, error) {
	return []models.Challenge{}, nil
}

func (r fakeRewards) CompleteChallenge(context.Context, string, int64) (models.Challenge, error) {
	return models.Challenge{}, storage.ErrNotFound
}

// dailyTipsOnce runs the batch inline under the per-day workflow id, refusing
// a second start with the same id the way the Temporal reuse policy does.
type dailyTipsOnce struct {
	svc     *service.Service
	mu      sync.Mutex
	started map[string]bool
}

func (d *dailyTipsOnce) StartDailyTips(ctx context.Context, _ workflows.DailyTipsInput) (string, error) {
	id := workflows.DailyTipsID(testNow)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started[id] {
		return id, workflows.ErrAlreadyStarted
	}
	d.started[id] = true
	if _, err := d.svc.RunDailyTips(ctx); err != nil {
		return "", err
	}
	return id, nil
}

type fixture struct {
	srv *httptest.Server
	db  *fakeDB
	gw  *stubGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newFakeDB()
	gw := &stubGateway{}
	svc := service.New(service.Options{
		Gateway: gw,
		Stores: service.Stores{
			Profiles:  db,
			Metrics:   fakeMetrics{db},
			Bills:     fakeBills{db},
			Forecasts: fakeForecasts{db},
			AgentLogs: fakeLogs{db},
			Rewards:   fakeRewards{db},
		},
		Now: func() time.Time { return testNow },
	})
	s := NewServer(Deps{
		Service:   svc,
		Verifier:  identity.NewJWTVerifier(testSecret),
		Metrics:   metrics.New(nil),
		DailyTips: &dailyTipsOnce{svc: svc, started: map[string]bool{}},
	})
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, db: db, gw: gw}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := identity.NewJWTVerifier(testSecret).Sign(identity.User{ID: userID, Name: "Test"}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, tok, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestPreflightAndCORS(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodOptions, "/functions/v1/analyze_bill", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowHeaders, resp.Header.Get("Access-Control-Allow-Headers"))

	resp, _ = f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMissingOrBadTokenIs401(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/functions/v1/eco_forecast", "", "{}")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, body = f.do(t, http.MethodPost, "/functions/v1/eco_forecast", "not-a-jwt", "{}")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body["error"], "unauthorized")
}

func TestGatewayErrorStatuses(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u1")
	body := `{"file_url":"https://cdn.example/bill.png","month":"2025-03"}`

	f.gw.err = gateway.ErrRateLimited
	resp, out := f.do(t, http.MethodPost, "/functions/v1/analyze_bill", tok, body)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, out["error"], "Rate limit")

	f.gw.err = gateway.ErrCreditsDepleted
	resp, out = f.do(t, http.MethodPost, "/functions/v1/analyze_bill", tok, body)
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Contains(t, out["error"], "Credits depleted")

	f.gw.err = &gateway.StatusError{StatusCode: 503, Body: "down"}
	resp, out = f.do(t, http.MethodPost, "/functions/v1/analyze_bill", tok, body)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "AI Gateway error: 503", out["error"])
}

func TestAnalyzeBillUpsertsOneRowPerMonth(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u1")
	body := `{"file_url":"https://cdn.example/bill.png","month":"2025-03"}`

	f.gw.resp = gateway.ChatResponse{Content: "```json\n{\"energy_cost\": 100, \"water_cost\": 20, \"energy_usage\": 250, \"ai_summary\": \"first\"}\n```"}
	resp, out := f.do(t, http.MethodPost, "/functions/v1/analyze_bill", tok, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	bill := out["bill"].(map[string]any)
	assert.Equal(t, 120.0, bill["total_amount"])

	f.gw.resp = gateway.ChatResponse{Content: `{"energy_cost": 50, "water_cost": 5, "ai_summary": "second"}`}
	resp, _ = f.do(t, http.MethodPost, "/functions/v1/analyze_bill", tok, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, f.db.bills, 1)
	got := f.db.bills["u1|2025-03"]
	assert.Equal(t, 55.0, got.TotalAmount)
	assert.Equal(t, "second", *got.AISummary)
	assert.Contains(t, f.db.profiles, "u1")
}

func TestForecastTrendMultiplier(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u1")
	for i, kwh := range []float64{90, 90, 90, 100, 100, 110, 120} {
		f.db.metrics = append(f.db.metrics, models.Metric{
			UserID:      "u1",
			Timestamp:   testNow.Add(-time.Duration(7-i) * 20 * time.Hour),
			EnergyUsage: kwh,
		})
	}
	resp, out := f.do(t, http.MethodPost, "/functions/v1/eco_forecast", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fc := out["forecast"].(map[string]any)
	assert.InDelta(t, 110.0, fc["predicted_energy_kwh"], 1e-9)
	assert.Equal(t, "2025-03-10", fc["period_start"])
	assert.Equal(t, "2025-03-17", fc["period_end"])
}

func TestForecastWithoutDataIs400(t *testing.T) {
	f := newFixture(t)
	resp, out := f.do(t, http.MethodPost, "/functions/v1/eco_forecast", token(t, "u2"), "{}")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Not enough data for forecast. Add more daily metrics first.", out["error"])
}

func TestInvalidJSONIs400(t *testing.T) {
	f := newFixture(t)
	resp, out := f.do(t, http.MethodPost, "/functions/v1/design_advisor", token(t, "u1"), "{not json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "invalid json")

	resp, out = f.do(t, http.MethodPost, "/functions/v1/design_advisor", token(t, "u1"), "{}")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Prompt or image is required", out["error"])
}

func TestPanicBecomesErrorEnvelope(t *testing.T) {
	f := newFixture(t)
	// no goal store is configured
	resp, out := f.do(t, http.MethodGet, "/api/v1/goals", token(t, "u1"), "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, out["error"], "internal error")
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestMetricsRoundTripAndPrometheus(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u1")
	resp, _ := f.do(t, http.MethodPost, "/api/v1/metrics", tok, `{"energy_usage": 12.5, "water_usage": 300, "co2_emission": 4}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out := f.do(t, http.MethodGet, "/api/v1/metrics?limit=5", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ms := out["metrics"].([]any)
	require.Len(t, ms, 1)
	assert.Equal(t, "u1", ms[0].(map[string]any)["user_id"])

	resp, out = f.do(t, http.MethodPost, "/api/v1/metrics", tok, `{"energy_usage": -1}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["error"])

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/metrics", nil)
	require.NoError(t, err)
	mresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `ecopulse_http_requests_total{code="201",route="/api/v1/metrics"}`)
}

func TestBadPathParamIs400(t *testing.T) {
	f := newFixture(t)
	resp, out := f.do(t, http.MethodPost, "/api/v1/teams/abc/join", token(t, "u1"), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "id must be a positive integer")
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	f := newFixture(t)
	resp, out := f.do(t, http.MethodGet, "/functions/v1/nope", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", out["error"])
}

func TestDailyTipsTriggerAwardsOncePerDay(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u1")
	f.db.profiles["u1"] = models.Profile{ID: "u1", Name: "Asha"}
	f.db.metrics = append(f.db.metrics, models.Metric{UserID: "u1", Timestamp: testNow.Add(-time.Hour), EnergyUsage: 10, WaterUsage: 10, CO2Emission: 10})
	f.gw.resp = gateway.ChatResponse{Content: "Switch off idle chargers."}

	resp, out := f.do(t, http.MethodPost, "/functions/v1/eco_copilot_daily", tok, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, out["started"])
	assert.Equal(t, "eco-copilot-daily-20250310", out["workflow_id"])

	resp, out = f.do(t, http.MethodPost, "/functions/v1/eco_copilot_daily", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["started"])
	assert.Equal(t, "eco-copilot-daily-20250310", out["workflow_id"])

	require.Len(t, f.db.daily, 1)
	assert.Equal(t, 5, f.db.points["u1"])
}

func TestDailyTipsWithoutWorkflowsIs503(t *testing.T) {
	s := NewServer(Deps{
		Service:  service.New(service.Options{Gateway: &stubGateway{}, Stores: service.Stores{Profiles: newFakeDB()}}),
		Verifier: identity.NewJWTVerifier(testSecret),
	})
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	f := &fixture{srv: srv}

	resp, out := f.do(t, http.MethodPost, "/functions/v1/eco_copilot_daily", token(t, "u1"), "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "batch workflows are not configured", out["error"])
}

func TestProfileReadAndUpdate(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u1")

	resp, out := f.do(t, http.MethodGet, "/api/v1/profile", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := out["profile"].(map[string]any)
	assert.Equal(t, "u1", p["id"])
	assert.Equal(t, "Test", p["name"])

	resp, out = f.do(t, http.MethodPut, "/api/v1/profile", tok, `{"name":"Asha","email":"asha@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p = out["profile"].(map[string]any)
	assert.Equal(t, "Asha", p["name"])
	assert.Equal(t, "asha@example.com", p["email"])
	assert.Equal(t, "Asha", f.db.profiles["u1"].Name)

	resp, out = f.do(t, http.MethodPut, "/api/v1/profile", tok, `{"email":"nope"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email is not a valid address", out["error"])
}

func TestLeaderboardIncludesEcoScore(t *testing.T) {
	f := newFixture(t)
	score := 91
	f.db.profiles["u2"] = models.Profile{ID: "u2", Name: "Ravi", EcoScore: &score}
	f.db.points["u2"] = 40

	resp, out := f.do(t, http.MethodGet, "/api/v1/leaderboard", token(t, "u1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := out["leaderboard"].([]any)
	require.Len(t, entries, 1)
	e := entries[0].(map[string]any)
	assert.Equal(t, "Ravi", e["name"])
	assert.Equal(t, 91.0, e["eco_score"])
	assert.Equal(t, 40.0, e["points"])
}
