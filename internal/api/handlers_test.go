package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/service"
	"github.com/sirosfoundation/glados-registry/internal/status"
	"github.com/sirosfoundation/glados-registry/internal/storage"
	"github.com/sirosfoundation/glados-registry/internal/storage/memory"
	"github.com/sirosfoundation/glados-registry/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Status: config.StatusConfig{TimeoutMS: 500, Concurrency: 4},
	}
}

func setupTestRouter(t *testing.T, cfg *config.Config, store storage.Store) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()
	if store == nil {
		store = memory.NewStore()
	}
	checker := status.NewChecker(cfg.Status.Timeout(), logger)
	services := service.NewServices(store, checker, cfg, logger)
	handlers := NewHandlers(services, cfg, logger)

	router := gin.New()
	handlers.RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

// pingFailStore reports an unreachable backend
type pingFailStore struct {
	*memory.Store
}

func (s pingFailStore) Ping(ctx context.Context) error {
	return errors.New("connection reset")
}

// brokenServerStore fails every list with an unexpected error
type brokenServerStore struct {
	storage.ServerStore
}

func (s brokenServerStore) GetAll(ctx context.Context) ([]*domain.Server, error) {
	return nil, errors.New("disk on fire")
}

type brokenStore struct {
	*memory.Store
}

func (s brokenStore) Servers() storage.ServerStore {
	return brokenServerStore{s.Store.Servers()}
}

func TestHandlers_Status(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)

	for _, path := range []string{"/status", "/health"} {
		w := doRequest(router, http.MethodGet, path, nil, nil)
		expectStatus(t, w, http.StatusOK)

		resp := decode[StatusResponse](t, w)
		if resp.Status != "ok" {
			t.Errorf("%s: expected status 'ok', got %q", path, resp.Status)
		}
		if resp.Service != "glados-registry" {
			t.Errorf("%s: expected service 'glados-registry', got %q", path, resp.Service)
		}
		if resp.APIVersion != CurrentAPIVersion {
			t.Errorf("%s: expected api_version %d, got %d", path, CurrentAPIVersion, resp.APIVersion)
		}
	}
}

func TestHandlers_Status_StoreUnavailable(t *testing.T) {
	router := setupTestRouter(t, testConfig(), pingFailStore{memory.NewStore()})

	w := doRequest(router, http.MethodGet, "/health", nil, nil)
	expectStatus(t, w, http.StatusServiceUnavailable)

	resp := decode[StatusResponse](t, w)
	if resp.Store != "unavailable" {
		t.Errorf("Expected store 'unavailable', got %q", resp.Store)
	}
}

func TestHandlers_ServerLifecycle(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)

	w := doRequest(router, http.MethodGet, "/api/server", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if body := w.Body.String(); body != "[]" {
		t.Errorf("Expected empty array, got %s", body)
	}

	w = doRequest(router, http.MethodPost, "/api/server", map[string]any{
		"name": "lobby", "ip": "127.0.0.1", "port": 25565,
	}, nil)
	expectStatus(t, w, http.StatusCreated)
	created := decode[domain.Server](t, w)
	if created.ID == "" {
		t.Fatal("Expected generated id")
	}

	// Same endpoint again
	w = doRequest(router, http.MethodPost, "/api/server", map[string]any{
		"name": "copy", "ip": "127.0.0.1", "port": 25565,
	}, nil)
	expectStatus(t, w, http.StatusConflict)

	w = doRequest(router, http.MethodGet, "/api/server/"+created.ID, nil, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.Server](t, w); got != created {
		t.Errorf("Expected %+v, got %+v", created, got)
	}

	w = doRequest(router, http.MethodPut, "/api/server/"+created.ID, map[string]any{
		"name": "hub", "ip": "127.0.0.1", "port": 25566,
	}, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.Server](t, w); got.Name != "hub" || got.Port != 25566 || got.ID != created.ID {
		t.Errorf("Unexpected updated server %+v", got)
	}

	w = doRequest(router, http.MethodGet, "/api/servers", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]domain.Server](t, w); len(list) != 1 || list[0].Name != "hub" {
		t.Errorf("Unexpected list %+v", list)
	}

	w = doRequest(router, http.MethodDelete, "/api/server/"+created.ID, nil, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = doRequest(router, http.MethodGet, "/api/server/"+created.ID, nil, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = doRequest(router, http.MethodDelete, "/api/server/"+created.ID, nil, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestHandlers_ServerValidation(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"ip":`},
		{"missing port", map[string]any{"ip": "127.0.0.1"}},
		{"port zero", map[string]any{"ip": "127.0.0.1", "port": 0}},
		{"port too large", map[string]any{"ip": "127.0.0.1", "port": 70000}},
		{"hostname", map[string]any{"ip": "localhost", "port": 80}},
		{"missing ip", map[string]any{"port": 80}},
		{"bad id", map[string]any{"id": "nope", "ip": "127.0.0.1", "port": 80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/server", tt.body, nil)
			expectStatus(t, w, http.StatusBadRequest)
			if resp := decode[map[string]string](t, w); resp["error"] == "" {
				t.Error("Expected error message")
			}
		})
	}
}

func TestHandlers_ServerNotFound(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)

	paths := []string{
		"/api/server/not-a-uuid",
		"/api/server/" + domain.NewServerID(),
		"/api/server/status/" + domain.NewServerID(),
	}
	for _, path := range paths {
		w := doRequest(router, http.MethodGet, path, nil, nil)
		expectStatus(t, w, http.StatusNotFound)
	}

	w := doRequest(router, http.MethodPut, "/api/server/"+domain.NewServerID(), map[string]any{
		"ip": "127.0.0.1", "port": 80,
	}, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestHandlers_ServerStatus(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	livePort := ln.Addr().(*net.TCPAddr).Port

	// Grab a free port and release it so nothing listens there
	dead, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadPort := dead.Addr().(*net.TCPAddr).Port
	_ = dead.Close()

	register := func(name string, port int) string {
		w := doRequest(router, http.MethodPost, "/api/server", map[string]any{
			"name": name, "ip": "127.0.0.1", "port": port,
		}, nil)
		expectStatus(t, w, http.StatusCreated)
		return decode[domain.Server](t, w).ID
	}
	liveID := register("live", livePort)
	deadID := register("dead", deadPort)

	w := doRequest(router, http.MethodGet, "/api/server/status/"+liveID, nil, nil)
	expectStatus(t, w, http.StatusOK)
	verdict := decode[VerdictResponse](t, w)
	if verdict.ID != liveID || verdict.Status != domain.LivenessOnline {
		t.Errorf("Expected online verdict for %s, got %+v", liveID, verdict)
	}
	if verdict.CheckedAt.IsZero() {
		t.Error("Expected checked_at to be set")
	}

	w = doRequest(router, http.MethodGet, "/api/server/status/"+deadID, nil, nil)
	expectStatus(t, w, http.StatusOK)
	verdict = decode[VerdictResponse](t, w)
	if verdict.Status == domain.LivenessOnline {
		t.Errorf("Expected dead server not to be online, got %+v", verdict)
	}
	if verdict.Reason == "" {
		t.Error("Expected a reason for a failed probe")
	}

	w = doRequest(router, http.MethodGet, "/api/server/status", nil, nil)
	expectStatus(t, w, http.StatusOK)
	all := decode[[]VerdictResponse](t, w)
	if len(all) != 2 {
		t.Fatalf("Expected 2 verdicts, got %d", len(all))
	}
	if all[0].ID != liveID || all[1].ID != deadID {
		t.Errorf("Expected verdicts in registration order, got %s, %s", all[0].ID, all[1].ID)
	}
	if all[0].Status != domain.LivenessOnline {
		t.Errorf("Expected first verdict online, got %s", all[0].Status)
	}
}

func TestHandlers_StatusRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Status.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1.0 / 60, Burst: 1}
	router := setupTestRouter(t, cfg, nil)

	w := doRequest(router, http.MethodGet, "/api/server/status", nil, nil)
	expectStatus(t, w, http.StatusOK)

	w = doRequest(router, http.MethodGet, "/api/server/status", nil, nil)
	expectStatus(t, w, http.StatusTooManyRequests)

	// CRUD routes are not limited
	for i := 0; i < 3; i++ {
		w = doRequest(router, http.MethodGet, "/api/server", nil, nil)
		expectStatus(t, w, http.StatusOK)
	}
}

func TestHandlers_APIToken(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIToken = "s3cret"
	router := setupTestRouter(t, cfg, nil)

	body := map[string]any{"ip": "127.0.0.1", "port": 8080}

	w := doRequest(router, http.MethodPost, "/api/server", body, nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = doRequest(router, http.MethodPost, "/api/server", body, map[string]string{"Authorization": "Bearer s3cret"})
	expectStatus(t, w, http.StatusCreated)

	w = doRequest(router, http.MethodGet, "/api/server", nil, nil)
	expectStatus(t, w, http.StatusOK)

	// Health endpoints stay open
	w = doRequest(router, http.MethodGet, "/status", nil, nil)
	expectStatus(t, w, http.StatusOK)
}

func TestHandlers_InternalError(t *testing.T) {
	router := setupTestRouter(t, testConfig(), brokenStore{memory.NewStore()})

	w := doRequest(router, http.MethodGet, "/api/server", nil, nil)
	expectStatus(t, w, http.StatusInternalServerError)

	resp := decode[map[string]string](t, w)
	if resp["error"] != "Failed to list servers" {
		t.Errorf("Expected generic error message, got %q", resp["error"])
	}
}

func createConfig(t *testing.T, router *gin.Engine, name string) domain.PortalConfig {
	t.Helper()
	w := doRequest(router, http.MethodPost, "/api/portal/config", map[string]any{
		"name": name, "destination": name, "enabled": true,
	}, nil)
	expectStatus(t, w, http.StatusCreated)
	return decode[domain.PortalConfig](t, w)
}

func TestHandlers_PortalConfigLifecycle(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)

	w := doRequest(router, http.MethodPost, "/api/portal/config", map[string]any{"name": ""}, nil)
	expectStatus(t, w, http.StatusBadRequest)

	cfg := createConfig(t, router, "nether")
	if !cfg.Enabled || cfg.Destination != "nether" {
		t.Errorf("Unexpected config %+v", cfg)
	}

	w = doRequest(router, http.MethodGet, "/api/portal/config/"+cfg.ID, nil, nil)
	expectStatus(t, w, http.StatusOK)

	w = doRequest(router, http.MethodPut, "/api/portal/config/"+cfg.ID, map[string]any{
		"name": "end", "description": "the end",
	}, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.PortalConfig](t, w); got.Name != "end" || got.Enabled {
		t.Errorf("Unexpected updated config %+v", got)
	}

	w = doRequest(router, http.MethodPut, "/api/portal/config/"+domain.NewPortalConfigID(), map[string]any{"name": "x"}, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = doRequest(router, http.MethodGet, "/api/portal/config", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]domain.PortalConfig](t, w); len(list) != 1 {
		t.Errorf("Expected 1 config, got %d", len(list))
	}

	w = doRequest(router, http.MethodDelete, "/api/portal/config/"+cfg.ID, nil, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = doRequest(router, http.MethodGet, "/api/portal/config/"+cfg.ID, nil, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestHandlers_PortalLifecycle(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)
	cfg := createConfig(t, router, "nether")

	w := doRequest(router, http.MethodPost, "/api/portal", map[string]any{
		"index": 7, "frameBlockId": 49, "lightWithItemId": 259,
		"color_b": 10, "color_g": 20, "color_r": 30, "configId": cfg.ID,
	}, nil)
	expectStatus(t, w, http.StatusCreated)
	created := decode[domain.Portal](t, w)
	if created.Index != 7 || created.ColorR != 30 || created.ConfigID != cfg.ID {
		t.Errorf("Unexpected portal %+v", created)
	}

	// Same index again
	w = doRequest(router, http.MethodPost, "/api/portal", map[string]any{"index": 7, "configId": cfg.ID}, nil)
	expectStatus(t, w, http.StatusConflict)

	w = doRequest(router, http.MethodGet, "/api/portal/7", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.Portal](t, w); got != created {
		t.Errorf("Expected %+v, got %+v", created, got)
	}

	// Body without index takes the path index
	w = doRequest(router, http.MethodPut, "/api/portal/7", map[string]any{
		"frameBlockId": 90, "color_g": 255, "configId": cfg.ID,
	}, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.Portal](t, w); got.FrameBlockID != 90 || got.ColorG != 255 || got.Index != 7 {
		t.Errorf("Unexpected updated portal %+v", got)
	}

	w = doRequest(router, http.MethodPut, "/api/portal/7", map[string]any{"index": 8, "configId": cfg.ID}, nil)
	expectStatus(t, w, http.StatusBadRequest)

	// Referenced config cannot be deleted
	w = doRequest(router, http.MethodDelete, "/api/portal/config/"+cfg.ID, nil, nil)
	expectStatus(t, w, http.StatusConflict)

	w = doRequest(router, http.MethodGet, "/api/portals", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]domain.Portal](t, w); len(list) != 1 {
		t.Errorf("Expected 1 portal, got %d", len(list))
	}

	w = doRequest(router, http.MethodDelete, "/api/portal/7", nil, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = doRequest(router, http.MethodGet, "/api/portal/7", nil, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = doRequest(router, http.MethodDelete, "/api/portal/config/"+cfg.ID, nil, nil)
	expectStatus(t, w, http.StatusNoContent)
}

func TestHandlers_PortalValidation(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)
	cfg := createConfig(t, router, "nether")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing index", map[string]any{"configId": cfg.ID}, http.StatusBadRequest},
		{"negative index", map[string]any{"index": -1, "configId": cfg.ID}, http.StatusBadRequest},
		{"index too large", map[string]any{"index": int64(1) << 32, "configId": cfg.ID}, http.StatusBadRequest},
		{"color out of range", map[string]any{"index": 1, "color_r": 256, "configId": cfg.ID}, http.StatusBadRequest},
		{"negative color", map[string]any{"index": 1, "color_b": -1, "configId": cfg.ID}, http.StatusBadRequest},
		{"malformed config id", map[string]any{"index": 1, "configId": "nope"}, http.StatusBadRequest},
		{"unknown config", map[string]any{"index": 1, "configId": domain.NewPortalConfigID()}, http.StatusConflict},
		{"max index", map[string]any{"index": 4294967295, "configId": cfg.ID}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/portal", tt.body, nil)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestHandlers_PortalNotFound(t *testing.T) {
	router := setupTestRouter(t, testConfig(), nil)

	for _, path := range []string{"/api/portal/abc", "/api/portal/-1", "/api/portal/4294967296", "/api/portal/3"} {
		w := doRequest(router, http.MethodGet, path, nil, nil)
		expectStatus(t, w, http.StatusNotFound)
	}

	cfg := createConfig(t, router, "nether")
	w := doRequest(router, http.MethodPut, "/api/portal/3", map[string]any{"configId": cfg.ID}, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = doRequest(router, http.MethodDelete, "/api/portal/3", nil, nil)
	expectStatus(t, w, http.StatusNotFound)
}
