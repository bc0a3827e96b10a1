package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/models"
	"smart_switch/internal/service"
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

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockSwitch struct {
	dashboard models.Dashboard
	dashErr   error
	relayErr  error
	lastOn    *bool
	toggles   int
}

func (m *mockSwitch) Dashboard(context.Context) (models.Dashboard, error) {
	return m.dashboard, m.dashErr
}
func (m *mockSwitch) SetRelay(_ context.Context, on bool) (models.RelayResult, error) {
	m.lastOn = &on
	if m.relayErr != nil {
		return models.RelayResult{}, m.relayErr
	}
	return models.RelayResult{Previous: !on, Current: on}, nil
}
func (m *mockSwitch) ToggleRelay(context.Context) (models.RelayResult, error) {
	m.toggles++
	if m.relayErr != nil {
		return models.RelayResult{}, m.relayErr
	}
	return models.RelayResult{Previous: true, Current: false}, nil
}

type mockTimers struct {
	timers     []models.Timer
	err        error
	created    models.Timer
	deletedID  string
	enabledID  string
	enabledVal bool
}

func (m *mockTimers) ListTimers(context.Context) ([]models.Timer, error) { return m.timers, m.err }
func (m *mockTimers) CreateTimer(_ context.Context, t models.Timer) (models.Timer, error) {
	m.created = t
	t.ID = "new-id"
	return t, m.err
}
func (m *mockTimers) DeleteTimer(_ context.Context, id string) error {
	m.deletedID = id
	return m.err
}
func (m *mockTimers) SetTimerEnabled(_ context.Context, id string, enabled bool) (models.Timer, error) {
	m.enabledID, m.enabledVal = id, enabled
	return models.Timer{ID: id, Enabled: enabled}, m.err
}

type mockDevices struct {
	devices []models.Device
	report  models.FanOutReport
	err     error
	lastID  string
	lastOn  bool
}

func (m *mockDevices) ListDevices(context.Context) ([]models.Device, error) { return m.devices, m.err }
func (m *mockDevices) SetDeviceStatus(_ context.Context, id string, on bool) (models.Device, error) {
	m.lastID, m.lastOn = id, on
	return models.Device{ID: id, Status: models.StatusString(on)}, m.err
}
func (m *mockDevices) SetAllDevices(_ context.Context, on bool) (models.FanOutReport, error) {
	m.lastOn = on
	return m.report, m.err
}

type mockSafety struct {
	status   models.SafetyStatus
	report   models.FanOutReport
	err      error
	resets   int
	shutdown int
}

func (m *mockSafety) SafetyStatus(context.Context) (models.SafetyStatus, error) {
	return m.status, m.err
}
func (m *mockSafety) EmergencyShutdown(context.Context) (models.FanOutReport, error) {
	m.shutdown++
	return m.report, m.err
}
func (m *mockSafety) ResetEmergency(context.Context) error {
	m.resets++
	return m.err
}

type mockUsage struct {
	days     []models.DailyUsage
	err      error
	lastFrom string
	lastTo   string
	calls    int
}

func (m *mockUsage) History(_ context.Context, from, to string) ([]models.DailyUsage, error) {
	m.calls++
	m.lastFrom, m.lastTo = from, to
	return m.days, m.err
}

type mockPush struct {
	key  string
	err  error
	last models.PushSubscription
}

func (m *mockPush) VAPIDPublicKey() string { return m.key }
func (m *mockPush) SubscribePush(_ context.Context, s models.PushSubscription) error {
	m.last = s
	return m.err
}

type mockEventLog struct {
	resp     []models.SwitchEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.SwitchEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts...)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// call performs an authenticated request with an optional JSON body.
func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
