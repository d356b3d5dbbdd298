package worldviewer

import (
	"github.com/google/uuid"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/validation"
)

func cameraStatus(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		pos, target := d.Camera.Status()
		return ok(map[string]any{"position": pos, "target": target})
	}
}

func getAssetTransform(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		assetPath, hasPath := shared.Str(payload, "asset_path")
		if !hasPath {
			return fail(missingParam("asset_path"))
		}
		t, found := d.Assets.Get(assetPath)
		if !found {
			return fail(apierrors.NewNotFoundError("no transform registered for "+assetPath, nil))
		}
		return ok(map[string]any{"position": t.Position, "rotation": t.Rotation})
	}
}

func setPosition(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		pos, err := shared.Floats3(payload, "position")
		if err != nil {
			return fail(err)
		}
		if _, err := v.Position("position", pos[:], 3, nil); err != nil {
			return fail(err)
		}
		var targetPtr *[3]float64
		if _, present := payload["target"]; present {
			target, err := shared.Floats3(payload, "target")
			if err != nil {
				return fail(err)
			}
			targetPtr = &target
		}
		d.Camera.SetPosition(pos, targetPtr)
		newPos, newTarget := d.Camera.Status()
		return ok(map[string]any{"position": newPos, "target": newTarget})
	}
}

func frameObject(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		assetPath, hasPath := shared.Str(payload, "asset_path")
		if !hasPath {
			return fail(missingParam("asset_path"))
		}
		t, found := d.Assets.Get(assetPath)
		if !found {
			return fail(apierrors.NewNotFoundError("no transform registered for "+assetPath, nil))
		}
		distance, hasDistance := shared.Float(payload, "distance")
		if !hasDistance {
			distance = 5.0
		}
		pos := [3]float64{t.Position[0], t.Position[1], t.Position[2] + distance}
		d.Camera.SetPosition(pos, &t.Position)
		return ok(map[string]any{"position": pos, "target": t.Position})
	}
}

func orbitCamera(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		target, err := shared.Floats3(payload, "target")
		if err != nil {
			return fail(err)
		}
		radius, hasRadius := shared.Float(payload, "radius")
		if !hasRadius {
			return fail(missingParam("radius"))
		}
		duration, _ := shared.Float(payload, "duration")

		if !d.Transition.TransitionTo("running") {
			return fail(apierrors.NewError(apierrors.CodeInvalidParameter,
				"cannot start an orbit from state "+d.Movement.GetState(), nil))
		}
		mv := &Movement{ID: uuid.NewString(), Type: "orbit", Params: map[string]any{"target": target, "radius": radius, "duration": duration}}
		d.Movement.SetActiveMovement(mv)
		return ok(map[string]any{"movement_id": mv.ID})
	}
}

func smoothMove(d Deps, v *validation.Validator) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		pos, err := shared.Floats3(payload, "position")
		if err != nil {
			return fail(err)
		}
		if _, err := v.Position("position", pos[:], 3, nil); err != nil {
			return fail(err)
		}
		duration, hasDuration := shared.Float(payload, "duration")
		if !hasDuration {
			return fail(missingParam("duration"))
		}

		if !d.Transition.TransitionTo("running") {
			return fail(apierrors.NewError(apierrors.CodeInvalidParameter,
				"cannot start a smooth move from state "+d.Movement.GetState(), nil))
		}
		mv := &Movement{ID: uuid.NewString(), Type: "smooth_move", Params: map[string]any{"position": pos, "duration": duration}}
		d.Movement.SetActiveMovement(mv)
		return ok(map[string]any{"movement_id": mv.ID})
	}
}

func stopMovement(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		current := d.Movement.GetState()
		if current == "idle" || current == "stopped" {
			return ok(map[string]any{"stopped": false, "state": current})
		}
		if !d.Transition.TransitionTo("stopped") {
			return fail(apierrors.NewError(apierrors.CodeInvalidParameter,
				"cannot stop movement from state "+current, nil))
		}
		d.Movement.SetActiveMovement(nil)
		return ok(map[string]any{"stopped": true, "state": "stopped"})
	}
}

func movementStatus(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		status := d.Movement.GetStatus()
		status["valid_transitions"] = d.Transition.ValidTransitions("")
		status["success"] = true
		return status
	}
}
