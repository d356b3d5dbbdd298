// Package controller implements the Router + Controller wiring (spec
// §4.5) and the response normalizer (spec §4.10): the glue between an
// authenticated, rate-limited HTTP request, a contract's controller
// function, and a uniform Envelope response.
package controller

import "github.com/agentworld/control-plane/pkg/apierrors"

// Normalize enforces the §4.10 envelope invariants on whatever a
// controller function returned for operation. A Go controller always
// returns map[string]any, so the "non-mapping" branch of the spec
// collapses to the nil-map case; everything else is unchanged.
func Normalize(operation string, result map[string]any) map[string]any {
	if result == nil {
		return apierrors.Failure(apierrors.CodeEmptyResponse, "operation returned no response", nil).ToMap()
	}

	success, hasSuccess := result["success"]
	if !hasSuccess {
		result["success"] = true
		return result
	}

	if successBool, _ := success.(bool); successBool {
		return result
	}

	if _, hasCode := result["error_code"]; !hasCode {
		result["error_code"] = string(apierrors.DefaultCodeForOperation(operation))
	}
	if _, hasErr := result["error"]; !hasErr {
		result["error"] = "An unknown error occurred"
	}
	return result
}

// StatusFor picks the HTTP status for an already-normalized envelope map.
func StatusFor(env map[string]any) int {
	success, _ := env["success"].(bool)
	if success {
		return 200
	}
	code, _ := env["error_code"].(string)
	return apierrors.StatusForCode(apierrors.Code(code))
}
