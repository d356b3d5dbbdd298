package worldviewer

import (
	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/validation"
)

// Deps wires the core collaborators this service's contracts close over.
type Deps struct {
	Shared     shared.Deps
	Camera     *Camera
	Movement   *MovementState
	Transition *MovementTransition
	Assets     *AssetRegistry
}

// NewRegistry builds the Contract Registry for the worldviewer service:
// every route openapi_spec.py documents save health/metrics, which
// pkg/controller.NewRouter already serves at the transport level.
func NewRegistry(d Deps) (*contracts.Registry, error) {
	v := validation.New()

	return contracts.NewRegistry([]contracts.Contract{
		{Operation: "camera_status", HTTPRoute: "/camera/status", HTTPMethod: "GET", MCPTool: "worldviewer_camera_status", Handler: cameraStatus(d)},
		{Operation: "get_asset_transform", HTTPRoute: "/get_asset_transform", HTTPMethod: "GET", MCPTool: "worldviewer_get_asset_transform", Handler: getAssetTransform(d)},
		{Operation: "camera_set_position", HTTPRoute: "/camera/set_position", HTTPMethod: "POST", MCPTool: "worldviewer_camera_set_position", Handler: setPosition(d, v)},
		{Operation: "camera_frame_object", HTTPRoute: "/camera/frame_object", HTTPMethod: "POST", MCPTool: "worldviewer_camera_frame_object", Handler: frameObject(d)},
		{Operation: "camera_orbit", HTTPRoute: "/camera/orbit", HTTPMethod: "POST", MCPTool: "worldviewer_camera_orbit", Handler: orbitCamera(d)},
		{Operation: "camera_smooth_move", HTTPRoute: "/camera/smooth_move", HTTPMethod: "POST", MCPTool: "worldviewer_camera_smooth_move", Handler: smoothMove(d, v)},
		{Operation: "camera_stop_movement", HTTPRoute: "/camera/stop_movement", HTTPMethod: "POST", MCPTool: "worldviewer_camera_stop_movement", Handler: stopMovement(d)},
		{Operation: "camera_movement_status", HTTPRoute: "/camera/movement_status", HTTPMethod: "GET", MCPTool: "worldviewer_camera_movement_status", Handler: movementStatus(d)},
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
