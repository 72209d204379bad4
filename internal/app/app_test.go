package app

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dob-oracle/internal/config"
	"dob-oracle/internal/domain"
	"dob-oracle/internal/infrastructure/memory"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
	m.Run()
}

func TestNew_InMemoryWiring(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy","timestamp":"now","service":"dob-facts-backend"}`))
	}))
	defer backendSrv.Close()

	a, err := New(context.Background(), &config.Config{
		AppName:        "dob-oracle",
		HTTPAddr:       ":0",
		BackendURL:     backendSrv.URL,
		BackendTimeout: time.Second,
		PollInterval:   time.Second,
		SessionTTL:     time.Hour,
	})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.SessionStore{}, a.Sessions)
	assert.IsType(t, &memory.EventBus{}, a.EventBus)
	assert.Nil(t, a.History)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServe_ShutdownEndsEventStreams(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/analyze":
			w.Write([]byte(`{"workflow_id":"wf-1"}`))
		default:
			w.Write([]byte(`{"id":"wf-1","type":"analyze_dob","status":"running","current_step":2,"steps":[],"started_at":"2025-01-01T00:00:00"}`))
		}
	}))
	defer backendSrv.Close()

	a, err := New(context.Background(), &config.Config{
		AppName:        "dob-oracle",
		BackendURL:     backendSrv.URL,
		BackendTimeout: time.Second,
		PollInterval:   10 * time.Millisecond,
		SessionTTL:     time.Hour,
	})
	require.NoError(t, err)
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- a.serve(ctx, ln) }()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar, Timeout: 5 * time.Second}

	resp, err := client.Post(base+"/api/analyze", "application/json", strings.NewReader(`{"dob":"2000-01-01"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	stream, err := client.Get(base + "/api/session/events")
	require.NoError(t, err)
	defer stream.Body.Close()

	var last domain.StatusChangedEvent
	cancelled := false
	scanner := bufio.NewScanner(stream.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(data)), &last))
		if !cancelled {
			cancel()
			cancelled = true
		}
	}
	require.NoError(t, scanner.Err(), "stream did not end")
	assert.Equal(t, "analysis cancelled", last.Failure)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not drain")
	}
}
