// Package worldsurveyor wires the waypoint surveyor's HTTP/MCP contract
// surface to pkg/waypoints. Grounded on the operation/route/tool list in
// original_source/agentworld-extensions/omni.agent.worldsurveyor/omni/
// agent/worldsurveyor/transport/contract.py. Waypoint/group mutations
// are local SQLite writes, not rendering-host state, so every handler
// here runs inline rather than through the render-tick queue (spec
// §4.5's "read-only, cheap, thread-safe" branch extends naturally to
// this opaque local store).
package worldsurveyor

import (
	"sync"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/validation"
	"github.com/agentworld/control-plane/pkg/waypoints"
)

// MarkerState is the minimal in-memory marker-visibility toggle the
// original extension layers on top of the waypoint store for its
// viewport overlay. The overlay itself (drawing markers in the
// rendering host) is the out-of-scope scene-graph collaborator; this
// just remembers the last-requested visibility state so debug_status
// has something truthful to report.
type MarkerState struct {
	mu          sync.Mutex
	visible     bool
	perWaypoint map[string]bool
}

// NewMarkerState returns markers visible by default, matching the
// original extension's default viewport behavior.
func NewMarkerState() *MarkerState {
	return &MarkerState{visible: true, perWaypoint: make(map[string]bool)}
}

func (m *MarkerState) setAll(visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = visible
	m.perWaypoint = make(map[string]bool)
}

func (m *MarkerState) setOne(id string, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perWaypoint[id] = visible
}

func (m *MarkerState) setSelective(ids []string, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.perWaypoint[id] = visible
	}
}

func (m *MarkerState) snapshot() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible, len(m.perWaypoint)
}

// Deps wires the core collaborators this service's contracts close over.
type Deps struct {
	Shared  shared.Deps
	Store   *waypoints.Store
	Markers *MarkerState
}

// NewRegistry builds the Contract Registry for the worldsurveyor
// service: every route in transport/contract.py save its health/metrics
// entries and their convenience aliases (health and metrics are served
// at the transport level by pkg/controller.NewRouter). No MCP tool
// aliases are registered.
func NewRegistry(d Deps) (*contracts.Registry, error) {
	v := validation.New()

	reg, err := contracts.NewRegistry([]contracts.Contract{
		{Operation: "waypoints_summary", HTTPRoute: "/waypoints", HTTPMethod: "GET", MCPTool: "worldsurveyor_waypoints_summary", Handler: waypointsSummary(d)},
		{Operation: "create_waypoint", HTTPRoute: "/waypoints/create", HTTPMethod: "POST", MCPTool: "worldsurveyor_create_waypoint", Handler: createWaypoint(d, v)},
		{Operation: "list_waypoints", HTTPRoute: "/waypoints/list", HTTPMethod: "GET", MCPTool: "worldsurveyor_list_waypoints", Handler: listWaypoints(d)},
		{Operation: "update_waypoint", HTTPRoute: "/waypoints/update", HTTPMethod: "POST", MCPTool: "worldsurveyor_update_waypoint", Handler: updateWaypoint(d)},
		{Operation: "remove_waypoint", HTTPRoute: "/waypoints/remove", HTTPMethod: "POST", MCPTool: "worldsurveyor_remove_waypoint", Handler: removeWaypoint(d)},
		{Operation: "remove_selected_waypoints", HTTPRoute: "/waypoints/remove_selected", HTTPMethod: "POST", MCPTool: "worldsurveyor_remove_selected_waypoints", Handler: removeSelectedWaypoints(d)},
		{Operation: "clear_waypoints", HTTPRoute: "/waypoints/clear", HTTPMethod: "POST", MCPTool: "worldsurveyor_clear_waypoints", Handler: clearWaypoints(d)},
		{Operation: "export_waypoints", HTTPRoute: "/waypoints/export", HTTPMethod: "GET", MCPTool: "worldsurveyor_export_waypoints", Handler: exportWaypoints(d)},
		{Operation: "import_waypoints", HTTPRoute: "/waypoints/import", HTTPMethod: "POST", MCPTool: "worldsurveyor_import_waypoints", Handler: importWaypoints(d)},
		{Operation: "goto_waypoint", HTTPRoute: "/waypoints/goto", HTTPMethod: "POST", MCPTool: "worldsurveyor_goto_waypoint", Handler: gotoWaypoint(d)},

		{Operation: "create_group", HTTPRoute: "/groups/create", HTTPMethod: "POST", MCPTool: "worldsurveyor_create_group", Handler: createGroup(d, v)},
		{Operation: "list_groups", HTTPRoute: "/groups/list", HTTPMethod: "GET", MCPTool: "worldsurveyor_list_groups", Handler: listGroups(d)},
		{Operation: "get_group", HTTPRoute: "/groups/get", HTTPMethod: "GET", MCPTool: "worldsurveyor_get_group", Handler: getGroup(d)},
		{Operation: "remove_group", HTTPRoute: "/groups/remove", HTTPMethod: "POST", MCPTool: "worldsurveyor_remove_group", Handler: removeGroup(d)},
		{Operation: "group_hierarchy", HTTPRoute: "/groups/hierarchy", HTTPMethod: "GET", MCPTool: "worldsurveyor_group_hierarchy", Handler: groupHierarchy(d)},
		{Operation: "add_waypoint_to_groups", HTTPRoute: "/groups/add_waypoint", HTTPMethod: "POST", MCPTool: "worldsurveyor_add_waypoint_to_groups", Handler: addWaypointToGroups(d)},
		{Operation: "remove_waypoint_from_groups", HTTPRoute: "/groups/remove_waypoint", HTTPMethod: "POST", MCPTool: "worldsurveyor_remove_waypoint_from_groups", Handler: removeWaypointFromGroups(d)},
		{Operation: "get_waypoint_groups", HTTPRoute: "/groups/of_waypoint", HTTPMethod: "GET", MCPTool: "worldsurveyor_get_waypoint_groups", Handler: getWaypointGroups(d)},
		{Operation: "get_group_waypoints", HTTPRoute: "/groups/waypoints", HTTPMethod: "GET", MCPTool: "worldsurveyor_get_group_waypoints", Handler: getGroupWaypoints(d)},

		{Operation: "set_markers_visible", HTTPRoute: "/markers/visible", HTTPMethod: "POST", MCPTool: "worldsurveyor_set_markers_visible", Handler: setMarkersVisible(d)},
		{Operation: "set_individual_marker_visible", HTTPRoute: "/markers/individual", HTTPMethod: "POST", MCPTool: "worldsurveyor_set_individual_marker_visible", Handler: setIndividualMarkerVisible(d)},
		{Operation: "set_selective_markers_visible", HTTPRoute: "/markers/selective", HTTPMethod: "POST", MCPTool: "worldsurveyor_set_selective_markers_visible", Handler: setSelectiveMarkersVisible(d)},
		{Operation: "debug_status", HTTPRoute: "/markers/debug", HTTPMethod: "GET", MCPTool: "worldsurveyor_debug_status", Handler: debugStatus(d)},
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// missingParam is the MISSING_PARAMETER error every handler here returns
// when a required field is absent from the decoded payload.
func missingParam(name string) error {
	return apierrors.NewError(apierrors.CodeMissingParameter, name+" is required", nil)
}

func ok(fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = true
	return fields
}

func fail(err error) map[string]any {
	var ae *apierrors.Error
	if e, isAE := err.(*apierrors.Error); isAE {
		ae = e
		return ae.Envelope().ToMap()
	}
	return apierrors.Failure(apierrors.CodeValidationError, err.Error(), nil).ToMap()
}

func waypointToMap(w waypoints.Waypoint) map[string]any {
	m := map[string]any{
		"id":         w.ID,
		"type":       string(w.Type),
		"name":       w.Name,
		"position":   w.Position,
		"group_ids":  w.GroupIDs,
		"metadata":   w.Metadata,
		"created_at": w.CreatedAt,
		"updated_at": w.UpdatedAt,
	}
	if w.Target != nil {
		m["target"] = *w.Target
	}
	return m
}

func groupToMap(g waypoints.Group) map[string]any {
	return map[string]any{
		"id":              g.ID,
		"name":            g.Name,
		"parent_group_id": g.ParentGroupID,
		"color":           g.Color,
		"metadata":        g.Metadata,
		"created_at":      g.CreatedAt,
	}
}
