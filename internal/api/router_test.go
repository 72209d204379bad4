package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"dob-oracle/internal/api/handler"
	"dob-oracle/internal/domain"
	"dob-oracle/internal/infrastructure/backend"
	"dob-oracle/internal/infrastructure/memory"
	"dob-oracle/internal/metrics"
	"dob-oracle/internal/service"
	"dob-oracle/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
	m.Run()
}

// fakeBackend holds every status fetch until release is closed. With
// reportRunning set it answers "running" instead of holding.
type fakeBackend struct {
	mu            sync.Mutex
	analyzed      []string
	analyzeErr    error
	healthErr     error
	reportRunning bool
	release       chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{release: make(chan struct{})}
}

func (f *fakeBackend) Analyze(ctx context.Context, dob string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analyzeErr != nil {
		return "", f.analyzeErr
	}
	f.analyzed = append(f.analyzed, dob)
	return "dob_analysis_1", nil
}

func (f *fakeBackend) GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowStatus, error) {
	if f.reportRunning {
		select {
		case <-f.release:
		default:
			return &domain.WorkflowStatus{ID: workflowID, Type: "analyze_dob", Status: domain.WorkflowRunning, CurrentStep: 3}, nil
		}
	}
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.WorkflowStatus{
		ID: workflowID, Type: "analyze_dob", Status: domain.WorkflowCompleted, CurrentStep: 7,
		Results: &domain.AnalysisResults{
			ValidatedDOB: "2000-01-01",
			Age:          domain.Age{Years: 25, Days: 9297},
			Zodiac:       domain.Zodiac{Western: "Capricorn", Chinese: "Dragon"},
			Numerology:   domain.Numerology{LifePath: 4},
			DayInfo:      domain.DayInfo{DayOfWeek: "Saturday", DayNumber: 6},
		},
	}, nil
}

func (f *fakeBackend) Health(ctx context.Context) (*backend.Health, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &backend.Health{Status: "healthy", Service: "dob-facts-backend"}, nil
}

func (f *fakeBackend) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.analyzed...)
}

type fixture struct {
	router  *gin.Engine
	backend *fakeBackend
	tracker *tracker.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fb := newFakeBackend()
	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	store, bus := memory.NewSessionStore(), memory.NewEventBus()

	tr := tracker.NewTracker(fb, store, bus, tracker.WithInterval(5*time.Millisecond), tracker.WithMetrics(recorder))
	t.Cleanup(tr.Shutdown)

	svc := service.NewOracleService(tr, store, bus, nil, recorder)
	router, err := NewRouter(handler.NewOracleHandler(svc), handler.NewHealthHandler(fb, "dob-oracle"), RouterConfig{
		SessionMaxAge: 3600,
		Gatherer:      registry,
	})
	require.NoError(t, err)

	return &fixture{router: router, backend: fb, tracker: tr}
}

func (f *fixture) do(req *http.Request, session *http.Cookie) *httptest.ResponseRecorder {
	if session != nil {
		req.AddCookie(session)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func postForm(dob string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(url.Values{"dob": {dob}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == handler.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func TestIndex_IssuesSessionAndRendersForm(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)
	_, err := uuid.Parse(cookie.Value)
	assert.NoError(t, err)
	assert.Contains(t, w.Body.String(), "Analyze Birth Date")
	assert.Contains(t, w.Body.String(), `max="`+time.Now().Format("2006-01-02")+`"`)
}

func TestSubmitForm_ValidationMessages(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"empty", "", "Please select a date"},
		{"unparseable", "not-a-date", "Please enter a valid date"},
		{"future", time.Now().AddDate(1, 0, 0).Format("2006-01-02"), "Future dates are not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			w := f.do(postForm(tt.input), nil)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), tt.msg)
			assert.Contains(t, w.Body.String(), "Analyze Birth Date")
			assert.Empty(t, f.backend.calls())
		})
	}
}

func TestSubmitForm_RunsAnalysisToCompletion(t *testing.T) {
	f := newFixture(t)
	session := sessionCookie(t, f.do(httptest.NewRequest(http.MethodGet, "/", nil), nil))

	w := f.do(postForm("2000-01-01"), session)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []string{"2000-01-01"}, f.backend.calls())

	loading := f.do(httptest.NewRequest(http.MethodGet, "/", nil), session).Body.String()
	assert.Contains(t, loading, "disabled>Analyzing...</button>")
	assert.Contains(t, loading, `http-equiv="refresh"`)

	sessionID := uuid.MustParse(session.Value)
	done := f.tracker.Done(sessionID)
	close(f.backend.release)
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("analysis did not finish")
		}
	}

	page := f.do(httptest.NewRequest(http.MethodGet, "/", nil), session).Body.String()
	assert.Contains(t, page, `data-testid="workflow-status">completed<`)
	assert.Contains(t, page, `data-testid="progress">100%<`)
	assert.Contains(t, page, "Birth Date Analysis Complete")
	assert.Contains(t, page, "Saturday, January 1, 2000")
	assert.NotContains(t, page, "Analyzing...")

	events := f.do(httptest.NewRequest(http.MethodGet, "/api/session/events", nil), session)
	assert.Equal(t, http.StatusOK, events.Code)
	assert.Contains(t, events.Body.String(), "event:status")
	assert.Contains(t, events.Body.String(), `"status":"completed"`)
}

func TestEvents_StreamsUntilCompleted(t *testing.T) {
	f := newFixture(t)
	f.backend.reportRunning = true
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	session := sessionCookie(t, f.do(httptest.NewRequest(http.MethodGet, "/", nil), nil))
	require.Equal(t, http.StatusSeeOther, f.do(postForm("2000-01-01"), session).Code)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/session/events", nil)
	require.NoError(t, err)
	req.AddCookie(session)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var events []domain.StatusChangedEvent
	released := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		var event domain.StatusChangedEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(data)), &event))
		events = append(events, event)

		// The first event is the snapshot; let the workflow finish once a
		// streamed running status has arrived.
		if !released && len(events) > 1 && event.Workflow != nil && event.Workflow.Status == domain.WorkflowRunning {
			close(f.backend.release)
			released = true
		}
	}
	require.NoError(t, scanner.Err(), "stream did not end")
	require.True(t, released, "no running event streamed")

	last := events[len(events)-1]
	require.NotNil(t, last.Workflow)
	assert.Equal(t, domain.WorkflowCompleted, last.Workflow.Status)
	assert.True(t, last.Final())
	for _, event := range events[:len(events)-1] {
		assert.False(t, event.Final())
	}
}

func TestEvents_CancelledAnalysisEndsStream(t *testing.T) {
	f := newFixture(t)
	f.backend.reportRunning = true
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	session := sessionCookie(t, f.do(httptest.NewRequest(http.MethodGet, "/", nil), nil))
	require.Equal(t, http.StatusSeeOther, f.do(postForm("2000-01-01"), session).Code)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/session/events", nil)
	require.NoError(t, err)
	req.AddCookie(session)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var last domain.StatusChangedEvent
	stopped := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(data)), &last))
		if !stopped {
			f.tracker.Stop(uuid.MustParse(session.Value))
			stopped = true
		}
	}
	require.NoError(t, scanner.Err(), "stream did not end")
	assert.Equal(t, "analysis cancelled", last.Failure)

	page := f.do(httptest.NewRequest(http.MethodGet, "/", nil), session).Body.String()
	assert.Contains(t, page, "Analysis stopped: analysis cancelled")
	assert.NotContains(t, page, `http-equiv="refresh"`)
}

func TestSubmitForm_BackendFailureShownOnPage(t *testing.T) {
	f := newFixture(t)
	f.backend.analyzeErr = errors.New("Failed to start analysis")
	session := sessionCookie(t, f.do(httptest.NewRequest(http.MethodGet, "/", nil), nil))

	w := f.do(postForm("2000-01-01"), session)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	page := f.do(httptest.NewRequest(http.MethodGet, "/", nil), session).Body.String()
	assert.Contains(t, page, "Analysis stopped: Failed to start analysis")
	assert.Contains(t, page, "Analyze Birth Date")
}

func TestSubmitJSON(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"dob":"1990-05-17"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"workflow_id":"dob_analysis_1"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"dob":""}`))
	req.Header.Set("Content-Type", "application/json")
	w = f.do(req, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"Please select a date"}`, w.Body.String())
}

func TestSubmitJSON_BackendError(t *testing.T) {
	f := newFixture(t)
	f.backend.analyzeErr = errors.New("boom")

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"dob":"1990-05-17"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())
}

func TestSession_JSON(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/session", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"analyzing":false`)
}

func TestHistory_DisabledWithoutDatabase(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/session/history", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/health", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"healthy"`)

	f.backend.healthErr = errors.New("connection refused")
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/health", nil), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"unreachable"`)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(postForm(""), nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `oracle_validation_rejections_total{reason="required"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := f.do(req, nil)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
