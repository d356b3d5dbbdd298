package worldsurveyor

import (
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/validation"
	"github.com/agentworld/control-plane/pkg/waypoints"
)

func waypointsSummary(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		all, err := d.Store.ListWaypoints("", "")
		if err != nil {
			return fail(err)
		}
		byType := map[string]int{}
		for _, w := range all {
			byType[string(w.Type)]++
		}
		return ok(map[string]any{"count": len(all), "by_type": byType})
	}
}

func createWaypoint(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		pos, err := shared.Floats3(payload, "position")
		if err != nil {
			return fail(err)
		}
		typeStr, _ := shared.Str(payload, "type")
		rawName, _ := shared.Str(payload, "name")
		name, err := v.String("name", rawName, 0, 256, "", "shell", true)
		if err != nil {
			return fail(err)
		}

		in := waypoints.CreateWaypointInput{
			Position: pos,
			Type:     waypoints.WaypointType(typeStr),
			Name:     name,
			Metadata: shared.Metadata(payload, "metadata"),
			GroupIDs: shared.StringSlice(payload, "group_ids"),
		}
		if _, hasTarget := payload["target"]; hasTarget {
			target, err := shared.Floats3(payload, "target")
			if err != nil {
				return fail(err)
			}
			in.Target = &target
		}

		id, err := d.Store.CreateWaypoint(in)
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"id": id})
	}
}

func listWaypoints(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		typeStr, _ := shared.Str(payload, "type")
		groupID, _ := shared.Str(payload, "group_id")
		wps, err := d.Store.ListWaypoints(waypoints.WaypointType(typeStr), groupID)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(wps))
		for _, w := range wps {
			out = append(out, waypointToMap(w))
		}
		return ok(map[string]any{"waypoints": out})
	}
}

func updateWaypoint(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, ok2 := shared.Str(payload, "id")
		if !ok2 {
			return fail(missingParam("id"))
		}
		var in waypoints.UpdateWaypointInput
		if name, present := shared.Str(payload, "name"); present {
			in.Name = &name
		}
		if _, present := payload["position"]; present {
			pos, err := shared.Floats3(payload, "position")
			if err != nil {
				return fail(err)
			}
			in.Position = &pos
		}
		if _, present := payload["metadata"]; present {
			m := shared.Metadata(payload, "metadata")
			in.Metadata = &m
		}
		if rawTarget, present := payload["target"]; present {
			if rawTarget == nil {
				var nilTarget *[3]float64
				in.Target = &nilTarget
			} else {
				target, err := shared.Floats3(payload, "target")
				if err != nil {
					return fail(err)
				}
				tp := &target
				in.Target = &tp
			}
		}
		changed, err := d.Store.UpdateWaypoint(id, in)
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"changed": changed})
	}
}

func removeWaypoint(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, ok2 := shared.Str(payload, "id")
		if !ok2 {
			return fail(missingParam("id"))
		}
		removed, err := d.Store.RemoveWaypoint(id)
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"removed": removed})
	}
}

func removeSelectedWaypoints(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		ids := shared.StringSlice(payload, "ids")
		count, err := d.Store.RemoveWaypoints(ids)
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"removed": count})
	}
}

func clearWaypoints(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		count, err := d.Store.ClearWaypoints()
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"removed": count})
	}
}

func exportWaypoints(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		includeGroups := shared.Bool(payload, "include_groups", false)
		bundle, err := d.Store.Export(includeGroups)
		if err != nil {
			return fail(err)
		}
		wps := make([]map[string]any, 0, len(bundle.Waypoints))
		for _, w := range bundle.Waypoints {
			wps = append(wps, waypointToMap(w))
		}
		grps := make([]map[string]any, 0, len(bundle.Groups))
		for _, g := range bundle.Groups {
			grps = append(grps, groupToMap(g))
		}
		return ok(map[string]any{"waypoints": wps, "groups": grps})
	}
}

func importWaypoints(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		modeStr, _ := shared.Str(payload, "merge_mode")
		if modeStr == "" {
			modeStr = string(waypoints.MergeSkipExisting)
		}
		bundle, err := decodeBundle(payload)
		if err != nil {
			return fail(err)
		}
		stats, err := d.Store.Import(bundle, waypoints.MergeMode(modeStr))
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{
			"waypoints_imported": stats.WaypointsImported,
			"waypoints_skipped":  stats.WaypointsSkipped,
			"groups_imported":    stats.GroupsImported,
			"groups_skipped":     stats.GroupsSkipped,
		})
	}
}

func decodeBundle(payload map[string]any) (waypoints.Bundle, error) {
	var b waypoints.Bundle
	rawWaypoints, _ := payload["waypoints"].([]any)
	for _, raw := range rawWaypoints {
		m, ok2 := raw.(map[string]any)
		if !ok2 {
			continue
		}
		id, _ := shared.Str(m, "id")
		typeStr, _ := shared.Str(m, "type")
		name, _ := shared.Str(m, "name")
		pos, err := shared.Floats3(m, "position")
		if err != nil {
			return waypoints.Bundle{}, err
		}
		w := waypoints.Waypoint{ID: id, Type: waypoints.WaypointType(typeStr), Name: name, Position: pos, Metadata: shared.Metadata(m, "metadata"), GroupIDs: shared.StringSlice(m, "group_ids")}
		if _, hasTarget := m["target"]; hasTarget {
			target, err := shared.Floats3(m, "target")
			if err != nil {
				return waypoints.Bundle{}, err
			}
			w.Target = &target
		}
		b.Waypoints = append(b.Waypoints, w)
	}
	rawGroups, _ := payload["groups"].([]any)
	for _, raw := range rawGroups {
		m, ok2 := raw.(map[string]any)
		if !ok2 {
			continue
		}
		id, _ := shared.Str(m, "id")
		name, _ := shared.Str(m, "name")
		parent, _ := shared.Str(m, "parent_group_id")
		color, _ := shared.Str(m, "color")
		b.Groups = append(b.Groups, waypoints.Group{ID: id, Name: name, ParentGroupID: parent, Color: color, Metadata: shared.Metadata(m, "metadata")})
	}
	return b, nil
}

// gotoWaypoint resolves the waypoint's stored position for the caller
// to drive the rendering host's camera; moving the camera itself is the
// out-of-scope scene-graph collaborator this spec names at its
// interface only, so this handler's contribution ends at lookup.
func gotoWaypoint(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, ok2 := shared.Str(payload, "id")
		if !ok2 {
			return fail(missingParam("id"))
		}
		wp, err := d.Store.GetWaypoint(id)
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"position": wp.Position, "target": wp.Target})
	}
}

func createGroup(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		name, _ := shared.Str(payload, "name")
		if err := validation.ValidateGroupName(name); err != nil {
			return fail(err)
		}
		parent, _ := shared.Str(payload, "parent_group_id")
		color, _ := shared.Str(payload, "color")
		if color != "" {
			if _, err := v.String("color", color, 0, 0, "hex_color", "", false); err != nil {
				return fail(err)
			}
		}
		id, err := d.Store.CreateGroup(waypoints.CreateGroupInput{
			Name:          name,
			ParentGroupID: parent,
			Color:         color,
			Metadata:      shared.Metadata(payload, "metadata"),
		})
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"id": id})
	}
}

func listGroups(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		parentID, _ := shared.Str(payload, "parent_group_id")
		byParent := payload["parent_group_id"] != nil
		groups, err := d.Store.ListGroups(parentID, byParent)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(groups))
		for _, g := range groups {
			out = append(out, groupToMap(g))
		}
		return ok(map[string]any{"groups": out})
	}
}

func getGroup(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, ok2 := shared.Str(payload, "id")
		if !ok2 {
			return fail(missingParam("id"))
		}
		g, err := d.Store.GetGroup(id)
		if err != nil {
			return fail(err)
		}
		return ok(groupToMap(g))
	}
}

func removeGroup(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, ok2 := shared.Str(payload, "id")
		if !ok2 {
			return fail(missingParam("id"))
		}
		cascade := shared.Bool(payload, "cascade", false)
		if err := d.Store.RemoveGroup(id, cascade); err != nil {
			return fail(err)
		}
		return ok(nil)
	}
}

func groupHierarchy(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		nodes, err := d.Store.GroupHierarchy()
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"groups": groupNodesToMaps(nodes)})
	}
}

func groupNodesToMaps(nodes []waypoints.GroupNode) []map[string]any {
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		m := groupToMap(n.Group)
		m["children"] = groupNodesToMaps(n.Children)
		out = append(out, m)
	}
	return out
}

func addWaypointToGroups(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		waypointID, ok2 := shared.Str(payload, "waypoint_id")
		if !ok2 {
			return fail(missingParam("waypoint_id"))
		}
		groupIDs := shared.StringSlice(payload, "group_ids")
		if err := d.Store.AddWaypointToGroups(waypointID, groupIDs); err != nil {
			return fail(err)
		}
		return ok(nil)
	}
}

func removeWaypointFromGroups(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		waypointID, ok2 := shared.Str(payload, "waypoint_id")
		if !ok2 {
			return fail(missingParam("waypoint_id"))
		}
		groupIDs := shared.StringSlice(payload, "group_ids")
		if err := d.Store.RemoveWaypointFromGroups(waypointID, groupIDs); err != nil {
			return fail(err)
		}
		return ok(nil)
	}
}

func getWaypointGroups(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		waypointID, ok2 := shared.Str(payload, "waypoint_id")
		if !ok2 {
			return fail(missingParam("waypoint_id"))
		}
		groups, err := d.Store.GetWaypointGroups(waypointID)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(groups))
		for _, g := range groups {
			out = append(out, groupToMap(g))
		}
		return ok(map[string]any{"groups": out})
	}
}

func getGroupWaypoints(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		groupID, ok2 := shared.Str(payload, "group_id")
		if !ok2 {
			return fail(missingParam("group_id"))
		}
		includeNested := shared.Bool(payload, "include_nested", false)
		wps, err := d.Store.GetGroupWaypoints(groupID, includeNested)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(wps))
		for _, w := range wps {
			out = append(out, waypointToMap(w))
		}
		return ok(map[string]any{"waypoints": out})
	}
}

func setMarkersVisible(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		visible := shared.Bool(payload, "visible", true)
		d.Markers.setAll(visible)
		return ok(map[string]any{"visible": visible})
	}
}

func setIndividualMarkerVisible(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, ok2 := shared.Str(payload, "waypoint_id")
		if !ok2 {
			return fail(missingParam("waypoint_id"))
		}
		visible := shared.Bool(payload, "visible", true)
		d.Markers.setOne(id, visible)
		return ok(map[string]any{"waypoint_id": id, "visible": visible})
	}
}

func setSelectiveMarkersVisible(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		ids := shared.StringSlice(payload, "waypoint_ids")
		visible := shared.Bool(payload, "visible", true)
		d.Markers.setSelective(ids, visible)
		return ok(map[string]any{"waypoint_ids": ids, "visible": visible})
	}
}

func debugStatus(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		visible, overrides := d.Markers.snapshot()
		return ok(map[string]any{"markers_visible": visible, "individual_overrides": overrides})
	}
}
