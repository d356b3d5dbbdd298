package apierrors

import (
	"encoding/json"
	"net/http"

	"github.com/agentworld/control-plane/pkg/logging"
)

// HandlerWithError is an HTTP handler that returns an error instead of
// writing one directly, so a single decorator can render it uniformly.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// ErrorHandler wraps a HandlerWithError, converting a returned error into
// an ErrorEnvelope response. 5xx causes are logged with full detail and
// replaced with a generic message; 4xx causes are surfaced verbatim.
// The contract router (pkg/controller) does not wrap its handlers with
// it: domain failures are normalized into an Envelope by the controller
// itself (spec §4.10).
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		status := StatusForErr(err)
		var env Envelope
		var ae *Error
		if as(err, &ae) {
			env = ae.Envelope()
		} else {
			env = Failure(CodeServiceUnavailable, "An unknown error occurred", nil)
		}

		if status >= http.StatusInternalServerError {
			logging.Get().Error("internal server error", "error", err, "path", r.URL.Path)
			env.Error = "An unknown error occurred"
		}

		WriteJSON(w, status, env)
	}
}

// WriteJSON writes an envelope as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, env Envelope) {
	WriteJSONMap(w, status, env.ToMap())
}

// WriteJSONMap writes an already-flattened envelope map as JSON. Used
// by callers (the response normalizer, the health handler) that build
// their map directly instead of through an Envelope value.
func WriteJSONMap(w http.ResponseWriter, status int, m map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(m)
}
