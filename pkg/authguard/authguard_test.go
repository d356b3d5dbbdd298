package authguard

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGuard(failed *int) *Guard {
	g := New(Config{Enabled: true, Secret: []byte("s3cret"), BearerToken: "tok"}, func() {
		if failed != nil {
			*failed++
		}
	})
	g.now = func() time.Time { return time.Unix(1700000000, 0) }
	return g
}

func TestAuthenticatedHealthWithHMAC(t *testing.T) {
	g := sampleGuard(nil)
	ts := "1700000000"
	sig := Sign([]byte("s3cret"), http.MethodGet, "/health", ts)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", sig)

	assert.True(t, g.authenticate(req))
}

func TestBearerAloneSuffices(t *testing.T) {
	g := sampleGuard(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer tok")
	assert.True(t, g.authenticate(req))
}

func TestMissingAuthRejected(t *testing.T) {
	failed := 0
	g := sampleGuard(&failed)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	g.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `HMAC-SHA256 realm="isaac-sim"`, w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	assert.Equal(t, 1, failed)
}

func TestTimestampOutsideWindowRejected(t *testing.T) {
	g := sampleGuard(nil)
	badTs := strconv.Itoa(1700000000 - 301)
	sig := Sign([]byte("s3cret"), http.MethodGet, "/health", badTs)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Timestamp", badTs)
	req.Header.Set("X-Signature", sig)
	assert.False(t, g.authenticate(req))
}

func TestSignatureChangesOnByteFlip(t *testing.T) {
	base := Sign([]byte("s3cret"), http.MethodPost, "/query/objects_near_point?point=5,0,2&radius=10", "1700000000")
	flippedMethod := Sign([]byte("s3cret"), http.MethodGet, "/query/objects_near_point?point=5,0,2&radius=10", "1700000000")
	assert.NotEqual(t, base, flippedMethod)
}

func TestSignedPOSTWithQuery(t *testing.T) {
	g := sampleGuard(nil)
	ts := "1700000000"
	path := "/query/objects_near_point?point=5,0,2&radius=10"
	sig := Sign([]byte("s3cret"), http.MethodPost, path, ts)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", sig)
	assert.True(t, g.authenticate(req))
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	g := New(Config{Enabled: false}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	called := false
	g.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})).ServeHTTP(w, req)
	assert.True(t, called)
}
