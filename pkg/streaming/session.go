package streaming

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/logging"
)

// Status mirrors the streaming/status contract's reported session state.
type Status struct {
	Running   bool
	Spec      Spec
	StartedAt time.Time
}

// Session owns the single streaming child-process handle for a service
// (spec §5: "the streaming child process is owned by a single handle per
// streaming session; starting/stopping is idempotent; the handle is
// held by the service, not by individual requests").
type Session struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	spec    Spec
	started time.Time
	running bool

	// now lets tests observe StartedAt deterministically.
	now func() time.Time
}

// execCommandContext is overridden in tests so Session can be exercised
// without a real gst-launch-1.0 binary on PATH.
var execCommandContext = exec.CommandContext

// NewSession returns an idle Session with no child process running.
func NewSession() *Session {
	return &Session{now: time.Now}
}

// Start validates spec and, if no session is already running, launches
// gst-launch-1.0 with the rendered argv. Calling Start while a session
// is already running is a no-op success (idempotent) as long as the
// requested Spec matches the running one; a differing Spec is rejected
// without disturbing the running process.
func (s *Session) Start(ctx context.Context, spec Spec) error {
	argv, err := Build(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		if s.spec == spec {
			return nil
		}
		return apierrors.NewError(apierrors.CodeServiceUnavailable, "a streaming session with a different configuration is already running", nil)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := execCommandContext(runCtx, argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		cancel()
		return apierrors.NewError(apierrors.CodeServiceUnavailable, "failed to start streaming pipeline: "+err.Error(), err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.spec = spec
	s.started = s.now()
	s.running = true

	go s.wait(cmd)
	return nil
}

// wait reaps the child process outside the lock and marks the session
// stopped when it exits on its own (crash, upstream closing the sink).
func (s *Session) wait(cmd *exec.Cmd) {
	err := cmd.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != cmd {
		return // superseded by a later Start after an explicit Stop
	}
	if err != nil {
		logging.Get().Warn("streaming: pipeline process exited with error", "error", err)
	}
	s.running = false
	s.cmd = nil
	s.cancel = nil
}

// Stop terminates the running session, if any. Stopping an idle session
// is a no-op success (idempotent, spec §5).
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.cmd = nil
	s.cancel = nil
	s.running = false
	s.mu.Unlock()

	cancel()
	return nil
}

// Status reports whether a session is currently running and, if so, the
// Spec and start time it was launched with.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Running: s.running, Spec: s.spec, StartedAt: s.started}
}
