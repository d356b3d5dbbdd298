package worldbuilder

import (
	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/queue"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/validation"
)

func readVector(payload map[string]any, key string, fallback [3]float64) ([3]float64, error) {
	if _, present := payload[key]; !present {
		return fallback, nil
	}
	return shared.Floats3(payload, key)
}

func addElement(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		elementType, hasType := shared.Str(payload, "element_type")
		if !hasType {
			return fail(missingParam("element_type"))
		}
		name, _ := shared.Str(payload, "name")
		pos, err := shared.Floats3(payload, "position")
		if err != nil {
			return fail(err)
		}
		if _, err := v.Position("position", pos[:], 3, nil); err != nil {
			return fail(err)
		}
		rot, err := readVector(payload, "rotation", [3]float64{})
		if err != nil {
			return fail(err)
		}
		scale, err := readVector(payload, "scale", [3]float64{1, 1, 1})
		if err != nil {
			return fail(err)
		}
		path, _ := shared.Str(payload, "path")
		metadata := shared.Metadata(payload, "metadata")

		return d.Shared.SubmitAndWait(queue.ChannelElements, "add_element", payload, func() (map[string]any, error) {
			id, err := d.Scene.AddElement(Element{Type: elementType, Name: name, Path: path, Position: pos, Rotation: rot, Scale: scale, Metadata: metadata})
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id}, nil
		})
	}
}

func createBatch(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		rawElements, _ := payload["elements"].([]any)
		if len(rawElements) == 0 {
			return fail(missingParam("elements"))
		}
		elems := make([]Element, 0, len(rawElements))
		for _, raw := range rawElements {
			m, isMap := raw.(map[string]any)
			if !isMap {
				return fail(apierrors.NewError(apierrors.CodeInvalidParameter, "each batch element must be an object", nil))
			}
			elementType, _ := shared.Str(m, "element_type")
			name, _ := shared.Str(m, "name")
			pos, err := shared.Floats3(m, "position")
			if err != nil {
				return fail(err)
			}
			if _, err := v.Position("position", pos[:], 3, nil); err != nil {
				return fail(err)
			}
			path, _ := shared.Str(m, "path")
			elems = append(elems, Element{Type: elementType, Name: name, Path: path, Position: pos, Scale: [3]float64{1, 1, 1}, Metadata: shared.Metadata(m, "metadata")})
		}

		return d.Shared.SubmitAndWait(queue.ChannelBatches, "create_batch", payload, func() (map[string]any, error) {
			batchID, ids, err := d.Scene.CreateBatch(elems)
			if err != nil {
				return nil, err
			}
			return map[string]any{"batch_id": batchID, "element_ids": ids}, nil
		})
	}
}

func placeAsset(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		assetPath, hasPath := shared.Str(payload, "asset_path")
		if !hasPath {
			return fail(missingParam("asset_path"))
		}
		name, _ := shared.Str(payload, "name")
		pos, err := shared.Floats3(payload, "position")
		if err != nil {
			return fail(err)
		}
		if _, err := v.Position("position", pos[:], 3, nil); err != nil {
			return fail(err)
		}
		scale, err := readVector(payload, "scale", [3]float64{1, 1, 1})
		if err != nil {
			return fail(err)
		}
		path, _ := shared.Str(payload, "path")

		if d.Assets != nil {
			if _, err := d.Assets.Resolve(assetPath); err != nil {
				return fail(err)
			}
		}

		return d.Shared.SubmitAndWait(queue.ChannelAssets, "place_asset", payload, func() (map[string]any, error) {
			id, err := d.Scene.PlaceAsset(Element{Type: "asset", Name: name, Path: path, Position: pos, Scale: scale, AssetPath: assetPath, Metadata: shared.Metadata(payload, "metadata")})
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id}, nil
		})
	}
}

func transformAsset(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, hasID := shared.Str(payload, "id")
		if !hasID {
			return fail(missingParam("id"))
		}
		var posPtr, rotPtr, scalePtr *[3]float64
		if _, present := payload["position"]; present {
			pos, err := shared.Floats3(payload, "position")
			if err != nil {
				return fail(err)
			}
			posPtr = &pos
		}
		if _, present := payload["rotation"]; present {
			rot, err := shared.Floats3(payload, "rotation")
			if err != nil {
				return fail(err)
			}
			rotPtr = &rot
		}
		if _, present := payload["scale"]; present {
			scale, err := shared.Floats3(payload, "scale")
			if err != nil {
				return fail(err)
			}
			scalePtr = &scale
		}

		return d.Shared.SubmitAndWait(queue.ChannelAssets, "transform_asset", payload, func() (map[string]any, error) {
			if err := d.Scene.TransformAsset(id, posPtr, rotPtr, scalePtr); err != nil {
				return nil, err
			}
			return map[string]any{"id": id}, nil
		})
	}
}

func removeElement(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, hasID := shared.Str(payload, "id")
		if !hasID {
			return fail(missingParam("id"))
		}
		return d.Shared.SubmitAndWait(queue.ChannelElements, "remove_element", payload, func() (map[string]any, error) {
			return map[string]any{"removed": d.Scene.RemoveElement(id)}, nil
		})
	}
}

func clearPath(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		rawPath, hasPath := shared.Str(payload, "path")
		if !hasPath {
			return fail(missingParam("path"))
		}
		path, err := v.ScenePath("path", rawPath)
		if err != nil {
			return fail(err)
		}
		return d.Shared.SubmitAndWait(queue.ChannelOther, "clear_path", payload, func() (map[string]any, error) {
			return map[string]any{"removed": d.Scene.ClearPath(path)}, nil
		})
	}
}

func getScene(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		return ok(map[string]any{"elements": elementsToMaps(d.Scene.Snapshot())})
	}
}

func sceneStatus(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		elems := d.Scene.Snapshot()
		byType := map[string]int{}
		for _, e := range elems {
			byType[e.Type]++
		}
		return ok(map[string]any{"element_count": len(elems), "by_type": byType})
	}
}

func listElements(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		return ok(map[string]any{"elements": elementsToMaps(d.Scene.Snapshot())})
	}
}

func batchInfo(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		batchID, hasID := shared.Str(payload, "batch_id")
		if !hasID {
			return fail(missingParam("batch_id"))
		}
		batch, elems, found := d.Scene.BatchInfo(batchID)
		if !found {
			return fail(apierrors.NewNotFoundError("unknown batch_id", nil))
		}
		return ok(map[string]any{"batch_id": batch.ID, "elements": elementsToMaps(elems)})
	}
}

func requestStatus(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		id, hasID := shared.Str(payload, "id")
		if !hasID {
			return fail(missingParam("id"))
		}
		return d.Shared.RequestStatus(id)
	}
}

func queryObjectsByType(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		elementType, hasType := shared.Str(payload, "element_type")
		if !hasType {
			return fail(missingParam("element_type"))
		}
		return ok(map[string]any{"elements": elementsToMaps(d.Scene.QueryByType(elementType))})
	}
}

func queryObjectsInBounds(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		min, err := shared.Floats3(payload, "min")
		if err != nil {
			return fail(err)
		}
		max, err := shared.Floats3(payload, "max")
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"elements": elementsToMaps(d.Scene.QueryInBounds(min, max))})
	}
}

func queryObjectsNearPoint(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		point, err := shared.Floats3(payload, "point")
		if err != nil {
			return fail(err)
		}
		radius, hasRadius := shared.Float(payload, "radius")
		if !hasRadius {
			return fail(missingParam("radius"))
		}
		return ok(map[string]any{"elements": elementsToMaps(d.Scene.QueryNearPoint(point, radius))})
	}
}

func calculateBounds(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		ids := shared.StringSlice(payload, "ids")
		min, max, count := d.Scene.CalculateBounds(ids)
		return ok(map[string]any{"min": min, "max": max, "count": count})
	}
}

func findGroundLevel(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		x, hasX := shared.Float(payload, "x")
		z, hasZ := shared.Float(payload, "z")
		if !hasX || !hasZ {
			return fail(missingParam("x/z"))
		}
		radius, hasRadius := shared.Float(payload, "search_radius")
		if !hasRadius {
			radius = 5.0
		}
		ground, found := d.Scene.FindGroundLevel(x, z, radius)
		return ok(map[string]any{"ground_level": ground, "found": found})
	}
}

func alignObjects(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		ids := shared.StringSlice(payload, "ids")
		if len(ids) == 0 {
			return fail(missingParam("ids"))
		}
		axis, hasAxis := shared.Int(payload, "axis")
		if !hasAxis {
			return fail(missingParam("axis"))
		}
		value, hasValue := shared.Float(payload, "value")
		if !hasValue {
			return fail(missingParam("value"))
		}

		return d.Shared.SubmitAndWait(queue.ChannelElements, "align_objects", payload, func() (map[string]any, error) {
			aligned, err := d.Scene.AlignObjects(ids, axis, value)
			if err != nil {
				return nil, err
			}
			return map[string]any{"aligned": aligned}, nil
		})
	}
}
