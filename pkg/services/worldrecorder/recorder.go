// Package worldrecorder wires the video recorder's HTTP/MCP contract
// surface to a minimal in-memory recording-job model. Grounded on the
// operation/route/tool list in original_source/agentworld-extensions/
// omni.agent.worldrecorder/omni/agent/worldrecorder/transport/
// contract.py, including its documented "recording/*" route aliases
// for get_status/start_video/cancel_video. The external encoder binary
// and the rendering host's desktop/viewport capture are the out-of-scope
// collaborators this package stands in for (spec.md §1).
package worldrecorder

import (
	"fmt"
	"sync"
	"time"
)

// JobState is the lifecycle of one recording job.
type JobState string

const (
	JobIdle      JobState = "idle"
	JobRecording JobState = "recording"
	JobCancelled JobState = "cancelled"
	JobCompleted JobState = "completed"
)

// Job is one video-recording request.
type Job struct {
	ID         string
	OutputPath string
	FPS        int
	Duration   float64
	State      JobState
	StartedAt  time.Time
	EndedAt    time.Time
}

// Recorder is the thin, mutex-guarded fake standing in for the external
// encoder process: it tracks at most one active job plus every captured
// frame path, enough to exercise every operation's shape honestly.
type Recorder struct {
	mu      sync.Mutex
	current *Job
	frames  []string
	lastJob *Job
}

// NewRecorder returns a recorder with no active job.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// StartVideo begins a new job, failing if one is already in flight —
// the original extension's single-encoder-process constraint.
func (r *Recorder) StartVideo(id, outputPath string, fps int, duration float64) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.current.State == JobRecording {
		return nil, fmt.Errorf("a recording is already in progress (job %s)", r.current.ID)
	}
	job := &Job{ID: id, OutputPath: outputPath, FPS: fps, Duration: duration, State: JobRecording, StartedAt: time.Now()}
	r.current = job
	return job, nil
}

// CancelVideo stops the active job, if any, reporting whether one was
// cancelled.
func (r *Recorder) CancelVideo() (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.State != JobRecording {
		return nil, false
	}
	r.current.State = JobCancelled
	r.current.EndedAt = time.Now()
	r.lastJob = r.current
	r.current = nil
	return r.lastJob, true
}

// CompleteVideo marks the active job finished, as the tick thread would
// once the (out-of-scope) encoder process exits.
func (r *Recorder) CompleteVideo() (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.State != JobRecording {
		return nil, false
	}
	r.current.State = JobCompleted
	r.current.EndedAt = time.Now()
	r.lastJob = r.current
	r.current = nil
	return r.lastJob, true
}

// Status returns the active job if one exists, else the most recently
// finished one.
func (r *Recorder) Status() (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		j := *r.current
		return &j, true
	}
	if r.lastJob != nil {
		j := *r.lastJob
		return &j, true
	}
	return nil, false
}

// CaptureFrame appends one captured frame path, standing in for the
// out-of-scope desktop/viewport screenshot capture.
func (r *Recorder) CaptureFrame(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, path)
	return len(r.frames)
}

// CleanupFrames discards every captured frame path, returning how many
// were discarded.
func (r *Recorder) CleanupFrames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.frames)
	r.frames = nil
	return n
}
