package service

import (
	"context"
	"sync"
	"time"

	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/storage"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls []gateway.ChatRequest
	ops   []string
	reply func(ctx context.Context, req gateway.ChatRequest) (gateway.ChatResponse, error)
}

func (f *fakeGateway) Invoke(ctx context.Context, req gateway.ChatRequest) (gateway.ChatResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.ops = append(f.ops, gateway.OperationFrom(ctx))
	f.mu.Unlock()
	return f.reply(ctx, req)
}

func textReply(s string) func(context.Context, gateway.ChatRequest) (gateway.ChatResponse, error) {
	return func(context.Context, gateway.ChatRequest) (gateway.ChatResponse, error) {
		return gateway.ChatResponse{Content: s}, nil
	}
}

// memStore implements every store interface in memory.
type memStore struct {
	mu         sync.Mutex
	profiles   []models.Profile
	metrics    map[string][]models.Metric
	bills      []models.Bill
	forecasts  []models.Forecast
	reports    []models.Report
	feedback   []models.Feedback
	logs       []models.AgentLog
	daily      []models.DailyReward
	policyRw   []models.PolicyReward
	policies   map[string]models.Policy
	edges      map[string][]models.SCMEdge
	blueprints []models.Blueprint
	analyses   []models.ImageAnalysis
	impact     *models.GlobalImpact
	dailyErr   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		metrics:  map[string][]models.Metric{},
		policies: map[string]models.Policy{},
		edges:    map[string][]models.SCMEdge{},
		dailyErr: map[string]error{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{
		Profiles:  memProfiles{m},
		Metrics:   memMetrics{m},
		Bills:     memBills{m},
		Forecasts: memForecasts{m},
		Reports:   m,
		Goals:     nil,
		AgentLogs: memLogs{m},
		Rewards:   memRewards{m},
		Policies:  memPolicies{m},
		Edges:     memEdges{m},
		Designs:   m,
		Impact:    m,
	}
}

func (m *memStore) EnsureProfile(_ context.Context, id, name, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append(m.profiles, models.Profile{ID: id, Name: name, Email: email})
	return nil
}

func (m *memStore) ListProfiles(context.Context) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Profile(nil), m.profiles...), nil
}

type memProfiles struct{ *memStore }

func (m memProfiles) Get(_ context.Context, id string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Profile{}, storage.ErrNotFound
}

func (m memProfiles) Update(_ context.Context, id, name, email string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.profiles {
		if p.ID != id {
			continue
		}
		if name != "" {
			p.Name = name
		}
		if email != "" {
			p.Email = email
		}
		m.profiles[i] = p
		return p, nil
	}
	return models.Profile{}, storage.ErrNotFound
}

type memMetrics struct{ *memStore }

func (m memMetrics) Insert(_ context.Context, x models.Metric) (models.Metric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[x.UserID] = append(m.metrics[x.UserID], x)
	return x, nil
}

func (m memMetrics) ListRecent(_ context.Context, userID string, limit int) ([]models.Metric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.metrics[userID]
	out := make([]models.Metric, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m memMetrics) ListSince(_ context.Context, userID string, since time.Time) ([]models.Metric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Metric
	for _, x := range m.metrics[userID] {
		if !x.Timestamp.Before(since) {
			out = append(out, x)
		}
	}
	return out, nil
}

type memBills struct{ *memStore }

func (m memBills) Upsert(_ context.Context, b models.Bill) (models.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.bills {
		if x.UserID == b.UserID && x.Month == b.Month {
			b.ID = x.ID
			m.bills[i] = b
			return b, nil
		}
	}
	b.ID = "bill-" + b.Month
	m.bills = append(m.bills, b)
	return b, nil
}

func (m memBills) ListRecent(_ context.Context, userID string, limit int) ([]models.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bill
	for _, b := range m.bills {
		if b.UserID == userID && len(out) < limit {
			out = append(out, b)
		}
	}
	return out, nil
}

type memForecasts struct{ *memStore }

func (m memForecasts) Insert(_ context.Context, f models.Forecast) (models.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = int64(len(m.forecasts) + 1)
	m.forecasts = append(m.forecasts, f)
	return f, nil
}

func (m memForecasts) Latest(_ context.Context, userID string) (models.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.forecasts) - 1; i >= 0; i-- {
		if m.forecasts[i].UserID == userID {
			return m.forecasts[i], nil
		}
	}
	return models.Forecast{}, storage.ErrNotFound
}

func (m *memStore) Insert(_ context.Context, r models.Report) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return r, nil
}

func (m *memStore) InsertFeedback(_ context.Context, f models.Feedback) (models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, f)
	return f, nil
}

type memLogs struct{ *memStore }

func (m memLogs) Insert(_ context.Context, l models.AgentLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, l)
	return nil
}

func (m memLogs) ListRecent(_ context.Context, userID string, limit int) ([]models.AgentLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AgentLog
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].UserID == userID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

type memRewards struct{ *memStore }

func (m memRewards) GetPoints(context.Context, string) (models.EcoPoints, error) {
	return models.EcoPoints{}, storage.ErrNotFound
}

func (m memRewards) ApplyPolicyReward(_ context.Context, rw models.PolicyReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policyRw = append(m.policyRw, rw)
	return nil
}

func (m memRewards) ApplyDailyReward(_ context.Context, rw models.DailyReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.dailyErr[rw.UserID]; err != nil {
		return err
	}
	m.daily = append(m.daily, rw)
	return nil
}

func (m memRewards) ListAchievements(context.Context, string) ([]models.Achievement, error) {
	return nil, nil
}

func (m memRewards) Leaderboard(context.Context, int) ([]models.LeaderboardEntry, error) {
	return nil, nil
}

func (m memRewards) ListActiveChallenges(context.Context) ([]models.Challenge, error) {
	return nil, nil
}

func (m memRewards) CompleteChallenge(context.Context, string, int64) (models.Challenge, error) {
	return models.Challenge{}, storage.ErrNotFound
}

type memPolicies struct{ *memStore }

func (m memPolicies) CreatePlan(_ context.Context, p models.Policy, run models.DTRun) (models.Policy, models.DTRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = "policy-1"
	run.ID = "run-1"
	run.PolicyID = p.ID
	p.DTRuns = []models.DTRun{run}
	m.policies[p.ID] = p
	return p, run, nil
}

func (m memPolicies) GetWithRuns(_ context.Context, userID, policyID string) (models.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[policyID]
	if !ok || p.UserID != userID {
		return models.Policy{}, storage.ErrNotFound
	}
	return p, nil
}

func (m memPolicies) ListRecent(_ context.Context, userID string, _ int) ([]models.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Policy
	for _, p := range m.policies {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memEdges struct{ *memStore }

func (m memEdges) Replace(_ context.Context, userID string, edges []models.SCMEdge) ([]models.SCMEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SCMEdge, len(edges))
	for i, e := range edges {
		e.ID = int64(i + 1)
		e.UserID = userID
		out[i] = e
	}
	m.edges[userID] = out
	return out, nil
}

func (m memEdges) List(_ context.Context, userID string) ([]models.SCMEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges[userID], nil
}

func (m *memStore) InsertBlueprint(_ context.Context, b models.Blueprint) (models.Blueprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = "bp-1"
	m.blueprints = append(m.blueprints, b)
	return b, nil
}

func (m *memStore) InsertImageAnalysis(_ context.Context, a models.ImageAnalysis) (models.ImageAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, a)
	return a, nil
}

func (m *memStore) Totals(context.Context) (int, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var co2 float64
	for _, ms := range m.metrics {
		for _, x := range ms {
			co2 += x.CO2Emission
		}
	}
	return len(m.profiles), co2, nil
}

func (m *memStore) Upsert(_ context.Context, g models.GlobalImpact) (models.GlobalImpact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.impact = &g
	return g, nil
}

func (m *memStore) Get(context.Context) (models.GlobalImpact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.impact == nil {
		return models.GlobalImpact{}, storage.ErrNotFound
	}
	return *m.impact, nil
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(gw gateway.Client, st *memStore) *Service {
	return New(Options{
		Gateway: gw,
		Stores:  st.stores(),
		Now:     func() time.Time { return fixedNow },
		Rand:    func() float64 { return 0.5 },
	})
}
