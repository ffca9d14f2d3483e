package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rillcast/internal/app"
	"rillcast/internal/core/domain"
	"rillcast/internal/infrastructure/identity"
	"rillcast/internal/infrastructure/monitoring"
	"rillcast/internal/infrastructure/permissions"
	"rillcast/internal/infrastructure/repositories/memory"
	"rillcast/internal/infrastructure/sandbox"
	"rillcast/internal/infrastructure/sdk/simulated"
	"rillcast/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T, mode permissions.Mode) (*gin.Engine, *app.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	zl := zaptest.NewLogger(t)
	logger := zl.Sugar()
	grants := filepath.Join(t.TempDir(), "grants.yaml")
	reg := prometheus.NewRegistry()
	collector := monitoring.NewPrometheusCollector(reg)

	a := app.New(app.Deps{
		Identity: identity.NewDemoProvider(identity.DemoConfig{
			User: domain.User{ID: "user_1", Username: "demo_user", DisplayName: "Demo User"},
		}, logger),
		Permissions: permissions.NewPromptProvider(mode, grants, strings.NewReader(""), &bytes.Buffer{}, logger),
		Settings:    permissions.NewSettingsNotice(grants, &bytes.Buffer{}, logger),
		SDK: simulated.New(simulated.Options{
			Sandbox: sandbox.NewLocalIssuer([]byte("secret"), time.Hour, collector, logger),
			Cameras: []domain.Camera{
				{ID: "front", Name: "Front", Facing: domain.FacingFront},
				{ID: "back", Name: "Back", Facing: domain.FacingBack},
			},
		}),
		Streams:      memory.NewMemoryStreamRepository(time.Minute),
		Metrics:      collector,
		AppID:        "test-app",
		ListCacheTTL: time.Millisecond,
		Logger:       logger,
	})
	t.Cleanup(func() { _ = a.Close() })

	health := monitoring.NewHealthChecker()
	health.AddCheck("noop", func(context.Context) error { return nil }, time.Second)

	router := NewRouter(RouterConfig{
		App:      a,
		Config:   config.DefaultConfig(),
		Logger:   zl,
		Health:   health,
		Gatherer: reg,
	})
	return router, a
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestAuthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, permissions.ModeGrant)

	w := do(router, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_authenticated":false`)

	w = do(router, http.MethodPost, "/api/v1/auth/sign-in", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		IsAuthenticated bool `json:"is_authenticated"`
	}
	decode(t, w, &state)
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "user_1", state.User.ID)

	w = do(router, http.MethodPost, "/api/v1/auth/sign-out", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_authenticated":false`)
}

func TestBroadcastRequiresSignIn(t *testing.T) {
	router, _ := newTestRouter(t, permissions.ModeGrant)

	w := do(router, http.MethodPost, "/api/v1/broadcast", `{"title":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestBroadcastDeniedPermissions(t *testing.T) {
	router, _ := newTestRouter(t, permissions.ModeDeny)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/auth/sign-in", "").Code)

	w := do(router, http.MethodGet, "/api/v1/permissions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"all_granted":false`)

	w = do(router, http.MethodPost, "/api/v1/broadcast", `{"title":"x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_REQUIRED")
}

func TestBroadcastLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, permissions.ModeGrant)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/auth/sign-in", "").Code)

	w := do(router, http.MethodPost, "/api/v1/permissions/request", "")
	assert.Contains(t, w.Body.String(), `"all_granted":true`)

	w = do(router, http.MethodPost, "/api/v1/broadcast", `{"title":"Hello"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		RoomID string `json:"room_id"`
	}
	decode(t, w, &created)
	assert.True(t, strings.HasPrefix(created.RoomID, "stream-user_1-"))

	w = do(router, http.MethodGet, "/api/v1/streams", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.RoomID)
	assert.Contains(t, w.Body.String(), `"title":"Hello"`)

	w = do(router, http.MethodPost, "/api/v1/broadcast", `{"title":"again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, http.MethodPost, "/api/v1/controls/switch-camera", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_camera_on":true`)
	w = do(router, http.MethodPost, "/api/v1/controls/microphone", "")
	assert.Contains(t, w.Body.String(), `"is_mic_on":false`)

	w = do(router, http.MethodGet, "/api/v1/session", "")
	var session SessionResponse
	decode(t, w, &session)
	assert.Equal(t, "host", string(session.Role))
	assert.True(t, session.Metadata.IsLive)
	assert.True(t, session.Streaming.IsConnected)

	w = do(router, http.MethodPost, "/api/v1/leave", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var after SessionResponse
	decode(t, w, &after)
	assert.False(t, after.Metadata.IsLive)
	assert.Empty(t, after.Role)

	w = do(router, http.MethodGet, "/api/v1/streams", "")
	assert.NotContains(t, w.Body.String(), created.RoomID)
}

func TestWatchRoutes(t *testing.T) {
	router, _ := newTestRouter(t, permissions.ModeGrant)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/auth/sign-in", "").Code)

	w := do(router, http.MethodPost, "/api/v1/watch/bad%20room", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/watch/room-1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session SessionResponse
	decode(t, w, &session)
	assert.Equal(t, "viewer", string(session.Role))
	assert.Equal(t, app.PhaseWaiting, session.Viewer.Phase)
	assert.Equal(t, domain.RoomID("room-1"), session.Metadata.WatchedRoomID)
}

func TestHealthReadyMetrics(t *testing.T) {
	router, _ := newTestRouter(t, permissions.ModeGrant)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
	w := do(router, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/auth/sign-in", "").Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/watch/room-1", "").Code)

	w = do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rillcast_")
}
