package handlers

import (
	"context"
	"net/http"
	"time"

	"pumpcontrol/internal/models"
	"pumpcontrol/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockPump struct {
	state       models.PumpState
	startErr    error
	stopErr     error
	readErr     error
	stopElapsed float64
	startCalled int
	stopCalled  int
}

func (m *mockPump) Start(ctx context.Context) (models.PumpState, error) {
	m.startCalled++
	prev := m.state
	if m.startErr == nil {
		m.state.Running = true
	}
	return prev, m.startErr
}
func (m *mockPump) Stop(ctx context.Context) (float64, error) {
	m.stopCalled++
	if m.stopErr == nil {
		m.state.Running = false
	}
	return m.stopElapsed, m.stopErr
}
func (m *mockPump) Read(ctx context.Context) (models.PumpState, error) {
	return m.state, m.readErr
}

type mockScheduler struct {
	submitResp models.ScheduleEntry
	submitErr  error
	listResp   []service.ScheduleStatus
	listErr    error
	removeErr  error

	lastSubmitted models.ScheduleEntry
	cancelled     []string
	removed       []string
}

func (m *mockScheduler) Submit(ctx context.Context, e models.ScheduleEntry) (models.ScheduleEntry, error) {
	m.lastSubmitted = e
	return m.submitResp, m.submitErr
}
func (m *mockScheduler) Cancel(id string) { m.cancelled = append(m.cancelled, id) }
func (m *mockScheduler) Remove(ctx context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.removeErr
}
func (m *mockScheduler) List(ctx context.Context) ([]service.ScheduleStatus, error) {
	return m.listResp, m.listErr
}
func (m *mockScheduler) ReconcileOnStartup(ctx context.Context) error { return nil }
func (m *mockScheduler) Shutdown()                                    {}

type mockTelemetry struct {
	snap       models.SensorSnapshot
	ingestErr  error
	getErr     error
	lastFields map[string]any
}

func (m *mockTelemetry) Ingest(ctx context.Context, fields map[string]any) (models.SensorSnapshot, error) {
	m.lastFields = fields
	return m.snap, m.ingestErr
}
func (m *mockTelemetry) Snapshot(ctx context.Context) (models.SensorSnapshot, error) {
	return m.snap, m.getErr
}

type mockEventLog struct {
	resp     []models.Event
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.Event, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
