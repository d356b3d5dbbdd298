package streaming

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommandContext swaps the real gst-launch-1.0 invocation for a
// long-lived stub process so Session's lifecycle can be exercised
// without a real encoder binary on PATH.
func fakeCommandContext(t *testing.T) {
	t.Helper()
	orig := execCommandContext
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "30")
	}
	t.Cleanup(func() { execCommandContext = orig })
}

func TestSessionStartReportsRunningStatus(t *testing.T) {
	fakeCommandContext(t)
	s := NewSession()
	require.NoError(t, s.Start(context.Background(), validSpec()))
	defer s.Stop()

	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, validSpec(), st.Spec)
}

func TestSessionStartIsIdempotentForSameSpec(t *testing.T) {
	fakeCommandContext(t)
	s := NewSession()
	require.NoError(t, s.Start(context.Background(), validSpec()))
	defer s.Stop()

	require.NoError(t, s.Start(context.Background(), validSpec()))
	assert.True(t, s.Status().Running)
}

func TestSessionStartRejectsDifferentSpecWhileRunning(t *testing.T) {
	fakeCommandContext(t)
	s := NewSession()
	require.NoError(t, s.Start(context.Background(), validSpec()))
	defer s.Stop()

	other := validSpec()
	other.BitrateKbps = 8000
	err := s.Start(context.Background(), other)
	assert.Error(t, err)
}

func TestSessionStopIsIdempotent(t *testing.T) {
	s := NewSession()
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
	assert.False(t, s.Status().Running)
}

func TestSessionStopThenStartAllowsNewSpec(t *testing.T) {
	fakeCommandContext(t)
	s := NewSession()
	require.NoError(t, s.Start(context.Background(), validSpec()))
	require.NoError(t, s.Stop())

	// give the reaping goroutine a moment to observe the cancellation
	time.Sleep(20 * time.Millisecond)
	assert.False(t, s.Status().Running)

	other := validSpec()
	other.BitrateKbps = 8000
	require.NoError(t, s.Start(context.Background(), other))
	defer s.Stop()
	assert.Equal(t, other, s.Status().Spec)
}

func TestSessionStartRejectsInvalidSpec(t *testing.T) {
	s := NewSession()
	bad := validSpec()
	bad.Width = 99999
	assert.Error(t, s.Start(context.Background(), bad))
	assert.False(t, s.Status().Running)
}
