package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworld/control-plane/pkg/authguard"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/metrics"
	"github.com/agentworld/control-plane/pkg/ratelimit"
	"github.com/agentworld/control-plane/pkg/secheaders"
)

func testRouter(t *testing.T, handler contracts.Handler) (http.Handler, *metrics.Registry) {
	t.Helper()
	reg, err := contracts.NewRegistry([]contracts.Contract{
		{Operation: "add_element", HTTPRoute: "/scene/add_element", HTTPMethod: "POST", MCPTool: "add_element", Handler: handler},
		{Operation: "scene_status", HTTPRoute: "/scene/status", HTTPMethod: "GET", MCPTool: "scene_status", Handler: handler},
	})
	require.NoError(t, err)

	m := metrics.New("worldbuilder")
	auth := authguard.New(authguard.Config{Enabled: false}, nil)
	rl := ratelimit.New(6000, 100, nil)

	r := NewRouter(Config{
		Service:     "worldbuilder",
		Registry:    reg,
		Metrics:     m,
		Auth:        auth,
		RateLimiter: rl,
		HSTS:        secheaders.HSTSConfig{},
	})
	return r, m
}

func TestDispatchSuccessInjectsSuccessTrue(t *testing.T) {
	r, _ := testRouter(t, func(payload map[string]any) map[string]any {
		return map[string]any{"id": "e1"}
	})

	req := httptest.NewRequest(http.MethodPost, "/scene/add_element", strings.NewReader(`{"name":"cube"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "e1", body["id"])
}

func TestDispatchNilResultBecomesEmptyResponse(t *testing.T) {
	r, _ := testRouter(t, func(payload map[string]any) map[string]any { return nil })

	req := httptest.NewRequest(http.MethodGet, "/scene/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "EMPTY_RESPONSE", body["error_code"])
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDispatchDefaultsErrorCodeAndMessage(t *testing.T) {
	r, _ := testRouter(t, func(payload map[string]any) map[string]any {
		return map[string]any{"success": false}
	})

	req := httptest.NewRequest(http.MethodGet, "/scene/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SCENE_STATUS_FAILED", body["error_code"])
	assert.Equal(t, "An unknown error occurred", body["error"])
}

func TestUnknownRouteReturnsJSONNotFound(t *testing.T) {
	r, _ := testRouter(t, func(payload map[string]any) map[string]any { return nil })

	req := httptest.NewRequest(http.MethodGet, "/does/not/exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NO_ROUTE", body["error_code"])
}

func TestHealthEndpointReportsServiceName(t *testing.T) {
	r, _ := testRouter(t, func(payload map[string]any) map[string]any { return nil })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "worldbuilder", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestMetricsEndpointsRenderBothFormats(t *testing.T) {
	r, m := testRouter(t, func(payload map[string]any) map[string]any { return map[string]any{} })
	m.StartServer()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"metrics"`)

	req2 := httptest.NewRequest(http.MethodGet, "/metrics.prom", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)
	assert.Equal(t, "text/plain; version=0.0.4", w2.Header().Get("Content-Type"))
	assert.Contains(t, w2.Body.String(), "worldbuilder_requests_received_total")
}

func TestQueryStringParsedAsPayload(t *testing.T) {
	var captured map[string]any
	r, _ := testRouter(t, func(payload map[string]any) map[string]any {
		captured = payload
		return map[string]any{}
	})

	req := httptest.NewRequest(http.MethodGet, "/scene/status?verbose=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.NotNil(t, captured)
	assert.Equal(t, "true", captured["verbose"])
}
