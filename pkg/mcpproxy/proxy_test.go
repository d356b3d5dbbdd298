package mcpproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworld/control-plane/pkg/contracts"
)

func TestNegotiateNoAuthWhenHealthReturns200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{ServiceName: "WORLDBUILDER", BaseURL: srv.URL})
	auth := p.ensureAuth(context.Background(), srv.URL)
	assert.Equal(t, authModeNone, auth.Mode)
}

func TestNegotiateFallsBackToEnvironmentOn401(t *testing.T) {
	t.Setenv("TESTSVC_SECRET", "shh")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `HMAC-SHA256 realm="isaac-sim"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(Config{ServiceName: "TESTSVC", BaseURL: srv.URL})
	auth := p.ensureAuth(context.Background(), srv.URL)
	assert.Equal(t, "hmac", auth.Mode)
	assert.Equal(t, []byte("shh"), auth.Secret)
}

func TestForwardGETSignsAndDecodesEnvelope(t *testing.T) {
	t.Setenv("TESTSVC_SECRET", "topsecret")
	var sawSignature, sawTimestamp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("WWW-Authenticate", `HMAC-SHA256 realm="isaac-sim"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		sawSignature = r.Header.Get("X-Signature")
		sawTimestamp = r.Header.Get("X-Timestamp")
		assert.Equal(t, "bar", r.URL.Query().Get("foo"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "value": 42})
	}))
	defer srv.Close()

	p := New(Config{ServiceName: "TESTSVC", BaseURL: srv.URL})
	c := contracts.Contract{Operation: "scene_status", HTTPRoute: "/scene/status", HTTPMethod: "GET", MCPTool: "scene_status"}

	result, err := p.Forward(context.Background(), c, map[string]interface{}{"foo": "bar"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.NotEmpty(t, sawSignature)
	assert.NotEmpty(t, sawTimestamp)
}

func TestForwardSurfacesErrorEnvelopeAsErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error_code": "VALIDATION_ERROR", "error": "bad field"})
	}))
	defer srv.Close()

	p := New(Config{ServiceName: "TESTSVC", BaseURL: srv.URL})
	c := contracts.Contract{Operation: "add_element", HTTPRoute: "/scene/add_element", HTTPMethod: "POST", MCPTool: "add_element"}

	result, err := p.Forward(context.Background(), c, map[string]interface{}{"name": ""})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestResolveBaseURLPicksFirstHealthySuccessCandidate(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer good.Close()

	p := New(Config{ServiceName: "TESTSVC", CandidateBaseURLs: []string{bad.URL, good.URL}})
	base, err := p.resolveBaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, good.URL, base)
}

func TestCanonicalQueryIsSortedAndEncoded(t *testing.T) {
	qs := canonicalQuery(map[string]interface{}{"b": "2", "a": "1 space"})
	assert.Equal(t, "a=1+space&b=2", qs)
}
