package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurstThenLimited(t *testing.T) {
	limited := 0
	l := New(60, 5, func() { limited++ })

	handler := l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var lastCode int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "10.0.0.5:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		lastCode = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
	assert.Equal(t, 1, limited)
}

func TestDistinctClientsHaveDistinctBuckets(t *testing.T) {
	l := New(60, 1, nil)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))
	assert.False(t, l.Allow("1.1.1.1"))
}

func TestReapRemovesIdleBuckets(t *testing.T) {
	l := New(600, 2, nil)
	fake := time.Unix(1000, 0)
	l.now = func() time.Time { return fake }

	require.True(t, l.Allow("1.1.1.1"))
	assert.Equal(t, 1, l.Len())

	fake = fake.Add(time.Hour)
	l.Reap()
	assert.Equal(t, 0, l.Len())
}
