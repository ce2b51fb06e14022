package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensor/internal/config"
	"licensor/internal/license"
	"licensor/internal/services"
	"licensor/internal/store"
	ws "licensor/internal/websocket"
)

// newTestApplication assembles the application around a temp-dir store,
// skipping the OpenTelemetry bootstrap.
func newTestApplication(t *testing.T, adminEnabled bool) *Application {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.TempDir(), logger)
	require.NoError(t, err)

	hub := ws.NewHub(logger)
	hub.Start()
	t.Cleanup(hub.Stop)

	manager := license.NewManager(st, license.Options{
		KeyPrefix: "LIC",
		Logger:    logger,
		Publisher: hub,
	})
	require.NoError(t, manager.SeedProducts(context.Background(), defaultProducts()))

	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Security.AdminSecret = "test-secret"
	cfg.Security.AdminAPIEnabled = adminEnabled
	cfg.Security.AllowedOrigins = []string{"http://localhost:8080"}
	cfg.Licensing.KeyPrefix = "LIC"
	cfg.Licensing.DefaultMaxIPs = 1
	cfg.Licensing.DefaultMaxHWIDs = 1

	a := &Application{
		Config:           cfg,
		Logger:           logger,
		Store:            st,
		LicenseManager:   manager,
		WebSocketHub:     hub,
		LicenseService:   services.NewLicenseService(manager, logger, 1, 1),
		AnalyticsService: services.NewAnalyticsService(manager, logger),
		OTelProviders:    nil,
	}
	a.setupRouter()
	a.createServer()
	return a
}

func TestRouterHealthz(t *testing.T) {
	a := newTestApplication(t, true)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouterAdminRequiresSecret(t *testing.T) {
	a := newTestApplication(t, true)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/licenses", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/licenses", nil)
	req.Header.Set("X-Admin-Secret", "test-secret")
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterAdminDisabled(t *testing.T) {
	a := newTestApplication(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/licenses", nil)
	req.Header.Set("X-Admin-Secret", "test-secret")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterValidateStaysPublic(t *testing.T) {
	a := newTestApplication(t, false)

	body := strings.NewReader(`{"key":"LIC-AAAA-BBBB-CCCC-DDDD","discordId":"100200300"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/validate", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	// Unknown key: denial, not an authentication failure.
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "not_found", resp["reason"])
}

func TestRouterIssueAndValidateRoundTrip(t *testing.T) {
	a := newTestApplication(t, true)

	issueBody := strings.NewReader(`{"productId":"default","discordId":"100200300","maxIps":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/licenses", issueBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "test-secret")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var issued map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	key, _ := issued["key"].(string)
	require.NotEmpty(t, key)

	validateBody := strings.NewReader(`{"key":"` + key + `","discordId":"100200300","ip":"1.2.3.4"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/validate", validateBody)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "ok", resp["reason"])
}
