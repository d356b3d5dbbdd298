package worldrecorder

import (
	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
)

// Deps wires the core collaborators this service's contracts close over.
type Deps struct {
	Shared   shared.Deps
	Recorder *Recorder
}

// NewRegistry builds the Contract Registry for the worldrecorder
// service: every route in transport/contract.py (save health/metrics,
// served at the transport level by pkg/controller.NewRouter), including
// its documented video/recording route-alias pairs — two full Contract
// entries sharing one handler each, since a route alias needs its own
// (http_route, http_method) slot rather than contracts.Registry.Alias's
// mcp_tool-only aliasing.
func NewRegistry(d Deps) (*contracts.Registry, error) {
	status := getStatus(d)
	start := startVideo(d)
	cancel := cancelVideo(d)

	return contracts.NewRegistry([]contracts.Contract{
		{Operation: "get_status", HTTPRoute: "/video/status", HTTPMethod: "GET", MCPTool: "worldrecorder_get_status", Handler: status},
		{Operation: "get_status", HTTPRoute: "/recording/status", HTTPMethod: "GET", MCPTool: "worldrecorder_recording_status", Handler: status},

		{Operation: "start_video", HTTPRoute: "/video/start", HTTPMethod: "POST", MCPTool: "worldrecorder_start_video", Handler: start},
		{Operation: "start_video", HTTPRoute: "/recording/start", HTTPMethod: "POST", MCPTool: "worldrecorder_start_recording", Handler: start},

		{Operation: "cancel_video", HTTPRoute: "/video/cancel", HTTPMethod: "POST", MCPTool: "worldrecorder_cancel_video", Handler: cancel},
		{Operation: "cancel_video", HTTPRoute: "/recording/cancel", HTTPMethod: "POST", MCPTool: "worldrecorder_cancel_recording", Handler: cancel},

		{Operation: "capture_frame", HTTPRoute: "/viewport/capture_frame", HTTPMethod: "POST", MCPTool: "worldrecorder_capture_frame", Handler: captureFrame(d)},
		{Operation: "cleanup_frames", HTTPRoute: "/cleanup/frames", HTTPMethod: "POST", MCPTool: "worldrecorder_cleanup_frames", Handler: cleanupFrames(d)},
	})
}

func ok(fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = true
	return fields
}

func fail(err error) map[string]any {
	if ae, isAE := err.(*apierrors.Error); isAE {
		return ae.Envelope().ToMap()
	}
	return apierrors.Failure(apierrors.CodeValidationError, err.Error(), nil).ToMap()
}

func missingParam(name string) error {
	return apierrors.NewError(apierrors.CodeMissingParameter, name+" is required", nil)
}

func jobToMap(j *Job) map[string]any {
	if j == nil {
		return nil
	}
	m := map[string]any{
		"id":          j.ID,
		"output_path": j.OutputPath,
		"fps":         j.FPS,
		"duration":    j.Duration,
		"state":       string(j.State),
		"started_at":  j.StartedAt,
	}
	if !j.EndedAt.IsZero() {
		m["ended_at"] = j.EndedAt
	}
	return m
}
