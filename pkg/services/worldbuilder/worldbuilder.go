package worldbuilder

import (
	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/assets"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/validation"
)

// Deps wires the core collaborators this service's contracts close over.
type Deps struct {
	Shared shared.Deps
	Scene  *Scene

	// Assets resolves place_asset's asset_path against the configured
	// search directories (spec §4.14). Nil skips the check, for
	// deployments that haven't configured any search directories.
	Assets *assets.Guard
}

// NewRegistry builds the Contract Registry for the worldbuilder service:
// every route in transport/contract.py save its health/metrics entries,
// which pkg/controller.NewRouter already serves at the transport level.
func NewRegistry(d Deps) (*contracts.Registry, error) {
	v := validation.New()

	return contracts.NewRegistry([]contracts.Contract{
		{Operation: "add_element", HTTPRoute: "/add_element", HTTPMethod: "POST", MCPTool: "worldbuilder_add_element", Handler: addElement(d, v)},
		{Operation: "create_batch", HTTPRoute: "/create_batch", HTTPMethod: "POST", MCPTool: "worldbuilder_create_batch", Handler: createBatch(d, v)},
		{Operation: "place_asset", HTTPRoute: "/place_asset", HTTPMethod: "POST", MCPTool: "worldbuilder_place_asset", Handler: placeAsset(d, v)},
		{Operation: "transform_asset", HTTPRoute: "/transform_asset", HTTPMethod: "POST", MCPTool: "worldbuilder_transform_asset", Handler: transformAsset(d)},
		{Operation: "remove_element", HTTPRoute: "/remove_element", HTTPMethod: "POST", MCPTool: "worldbuilder_remove_element", Handler: removeElement(d)},
		{Operation: "clear_path", HTTPRoute: "/clear_path", HTTPMethod: "POST", MCPTool: "worldbuilder_clear_path", Handler: clearPath(d, v)},

		{Operation: "get_scene", HTTPRoute: "/get_scene", HTTPMethod: "GET", MCPTool: "worldbuilder_get_scene", Handler: getScene(d)},
		{Operation: "scene_status", HTTPRoute: "/scene_status", HTTPMethod: "GET", MCPTool: "worldbuilder_scene_status", Handler: sceneStatus(d)},
		{Operation: "list_elements", HTTPRoute: "/list_elements", HTTPMethod: "GET", MCPTool: "worldbuilder_list_elements", Handler: listElements(d)},
		{Operation: "batch_info", HTTPRoute: "/batch_info", HTTPMethod: "GET", MCPTool: "worldbuilder_batch_info", Handler: batchInfo(d)},
		{Operation: "request_status", HTTPRoute: "/request_status", HTTPMethod: "GET", MCPTool: "worldbuilder_request_status", Handler: requestStatus(d)},

		{Operation: "query_objects_by_type", HTTPRoute: "/query/objects_by_type", HTTPMethod: "GET", MCPTool: "worldbuilder_query_objects_by_type", Handler: queryObjectsByType(d)},
		{Operation: "query_objects_in_bounds", HTTPRoute: "/query/objects_in_bounds", HTTPMethod: "GET", MCPTool: "worldbuilder_query_objects_in_bounds", Handler: queryObjectsInBounds(d)},
		{Operation: "query_objects_near_point", HTTPRoute: "/query/objects_near_point", HTTPMethod: "GET", MCPTool: "worldbuilder_query_objects_near_point", Handler: queryObjectsNearPoint(d)},

		{Operation: "calculate_bounds", HTTPRoute: "/transform/calculate_bounds", HTTPMethod: "POST", MCPTool: "worldbuilder_calculate_bounds", Handler: calculateBounds(d)},
		{Operation: "find_ground_level", HTTPRoute: "/transform/find_ground_level", HTTPMethod: "POST", MCPTool: "worldbuilder_find_ground_level", Handler: findGroundLevel(d)},
		{Operation: "align_objects", HTTPRoute: "/transform/align_objects", HTTPMethod: "POST", MCPTool: "worldbuilder_align_objects", Handler: alignObjects(d)},
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

func elementToMap(e Element) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"type":       e.Type,
		"name":       e.Name,
		"path":       e.Path,
		"position":   e.Position,
		"rotation":   e.Rotation,
		"scale":      e.Scale,
		"asset_path": e.AssetPath,
		"batch_id":   e.BatchID,
		"metadata":   e.Metadata,
		"created_at": e.CreatedAt,
		"updated_at": e.UpdatedAt,
	}
}

func elementsToMaps(elems []Element) []map[string]any {
	out := make([]map[string]any, 0, len(elems))
	for _, e := range elems {
		out = append(out, elementToMap(e))
	}
	return out
}
