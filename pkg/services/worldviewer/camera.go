// Package worldviewer wires the cinematic camera's HTTP/MCP contract
// surface to a minimal in-memory camera/movement model. Grounded on the
// routes in original_source/agentworld-extensions/omni.agent.worldviewer/
// omni/agent/worldviewer/openapi_spec.py (worldviewer ships no
// transport/contract.py, unlike the other four services, so its MCP
// tool names follow the same worldviewer_<operation> convention the
// rest of the pack uses). The rendering host's actual camera and scene
// graph are the out-of-scope collaborators this package stands in for.
package worldviewer

import (
	"sync"
	"time"
)

// Transform is the position/rotation pair get_asset_transform and
// camera/frame_object read, standing in for a real scene-graph lookup.
type Transform struct {
	Position [3]float64
	Rotation [3]float64
}

// AssetRegistry is the minimal lookup table the camera consults to
// frame or inspect an object by its scene path. The rendering host's
// real scene graph is out of scope; this just remembers what callers
// have told it about.
type AssetRegistry struct {
	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewAssetRegistry returns an empty registry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{transforms: make(map[string]Transform)}
}

// Set records (or replaces) the transform at assetPath.
func (a *AssetRegistry) Set(assetPath string, t Transform) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transforms[assetPath] = t
}

// Get looks up the transform at assetPath.
func (a *AssetRegistry) Get(assetPath string) (Transform, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.transforms[assetPath]
	return t, ok
}

// Camera holds the viewer's current pose.
type Camera struct {
	mu       sync.RWMutex
	Position [3]float64
	Target   [3]float64
}

// NewCamera returns a camera at (0, 0, 10) looking down -Z at the origin.
func NewCamera() *Camera {
	return &Camera{Position: [3]float64{0, 0, 10}, Target: [3]float64{0, 0, 0}}
}

// SetPosition teleports the camera, optionally retargeting it.
func (c *Camera) SetPosition(pos [3]float64, target *[3]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Position = pos
	if target != nil {
		c.Target = *target
	}
}

// Status returns the camera's current pose.
func (c *Camera) Status() ([3]float64, [3]float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Position, c.Target
}

// Movement is one in-flight or queued cinematic camera movement
// (orbit, smooth_move).
type Movement struct {
	ID        string
	Type      string
	Params    map[string]any
	StartedAt time.Time
}

// MovementState is a direct Go port of the original extension's
// QueueStatus: an atomically-updated record of the cinematic queue's
// current state, active/paused movement, and queue depth. Every
// accessor takes the same lock the original's threading.RLock
// serialized, so concurrent HTTP workers observe a consistent snapshot.
type MovementState struct {
	mu             sync.RWMutex
	state          string
	activeMovement *Movement
	queueSize      int
	timestamp      time.Time
	pausedMovement *Movement
	queueStartTime time.Time
}

// NewMovementState starts in the "idle" state, matching the original's
// constructor default.
func NewMovementState() *MovementState {
	return &MovementState{state: "idle", timestamp: time.Now()}
}

// GetStatus returns every field atomically, mirroring
// QueueStatus.get_status's dict snapshot.
func (m *MovementState) GetStatus() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]any{
		"state":            m.state,
		"active_movement":  movementToMap(m.activeMovement),
		"queue_size":       m.queueSize,
		"timestamp":        m.timestamp,
		"paused_movement":  movementToMap(m.pausedMovement),
		"queue_start_time": m.queueStartTime,
	}
}

func movementToMap(mv *Movement) map[string]any {
	if mv == nil {
		return nil
	}
	return map[string]any{"id": mv.ID, "type": mv.Type, "params": mv.Params, "started_at": mv.StartedAt}
}

// GetState returns the current state name.
func (m *MovementState) GetState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SetState force-sets the state, stamping timestamp (unvalidated — use
// MovementTransition.TransitionTo to enforce VALID_TRANSITIONS).
func (m *MovementState) SetState(newState string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newState
	m.timestamp = time.Now()
}

// SetActiveMovement records the movement currently driving the camera.
func (m *MovementState) SetActiveMovement(mv *Movement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeMovement = mv
	m.timestamp = time.Now()
}

// GetActiveMovement returns the movement currently driving the camera,
// if any.
func (m *MovementState) GetActiveMovement() *Movement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeMovement
}

// SetPausedMovement records the movement set aside by a pause.
func (m *MovementState) SetPausedMovement(mv *Movement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pausedMovement = mv
	m.timestamp = time.Now()
}

// SetQueueSize records how many movements are queued behind the active
// one.
func (m *MovementState) SetQueueSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueSize = n
	m.timestamp = time.Now()
}

// SetQueueStartTime records when the active movement's queue wait
// began.
func (m *MovementState) SetQueueStartTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueStartTime = t
	m.timestamp = time.Now()
}

// validTransitions is the original extension's VALID_TRANSITIONS table,
// carried over verbatim.
var validTransitions = map[string][]string{
	"idle":    {"running", "stopped", "pending"},
	"running": {"paused", "stopped", "idle", "pending"},
	"paused":  {"running", "stopped", "idle"},
	"stopped": {"idle", "running", "pending"},
	"pending": {"running", "stopped", "idle"},
	"error":   {"idle", "stopped"},
}

// MovementTransition validates and performs state changes on a
// MovementState, the Go port of the original's MovementTransition.
type MovementTransition struct {
	mu     sync.Mutex
	status *MovementState
}

// NewMovementTransition wires a MovementTransition to the MovementState
// it governs.
func NewMovementTransition(status *MovementState) *MovementTransition {
	return &MovementTransition{status: status}
}

// TransitionTo validates then performs the transition, returning false
// (without mutating state) when the transition is not in
// validTransitions.
func (t *MovementTransition) TransitionTo(newState string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.status.GetState()
	if !validateTransition(current, newState) {
		return false
	}
	t.status.SetState(newState)
	return true
}

func validateTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidTransitions lists the states reachable from the current (or a
// given) state.
func (t *MovementTransition) ValidTransitions(from string) []string {
	if from == "" {
		from = t.status.GetState()
	}
	return validTransitions[from]
}

// CanTransitionTo reports whether newState is reachable from the
// current state, without performing the transition.
func (t *MovementTransition) CanTransitionTo(newState string) bool {
	return validateTransition(t.status.GetState(), newState)
}
