// Package shared implements the submit-and-wait glue every service
// controller uses to bridge an HTTP worker to the tick thread (spec
// §4.5's "either perform the operation inline ... or enqueue it via
// RequestQueue and await the tick result, applying a per-operation
// timeout"). No single teacher file owns this shape; it is assembled
// directly from spec §4.5-§4.8, reusing pkg/queue and pkg/tracker.
package shared

import (
	"time"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/queue"
	"github.com/agentworld/control-plane/pkg/tracker"
)

// Deps is the common set of core collaborators every service controller
// closes over: the queue it enqueues render-touching work onto, the
// tracker it registers requests with and that request_status reads
// from, and a per-operation-class timeout table.
type Deps struct {
	Queue                   *queue.Queue
	Tracker                 *tracker.Tracker
	DefaultTimeout          time.Duration
	TimeoutByOperationClass map[string]time.Duration
}

// TimeoutFor resolves the per-operation timeout, falling back to
// DefaultTimeout when operation has no table entry (spec §4.12's
// "timeout selection from a per-service timeout table keyed by
// operation class" applies identically to this in-process dispatch).
func (d Deps) TimeoutFor(operation string) time.Duration {
	if t, ok := d.TimeoutByOperationClass[operation]; ok {
		return t
	}
	if d.DefaultTimeout > 0 {
		return d.DefaultTimeout
	}
	return 10 * time.Second
}

// SubmitAndWait enqueues op on channel ch under operation's correlation
// id, registers it with Tracker, and blocks until either the tick
// executor's one-shot result channel fires or the resolved timeout
// elapses. A QueueFull error from Enqueue is translated straight to an
// ErrorEnvelope rather than ever being retried by this layer (spec §4.6:
// callers see QUEUE_FULL immediately).
func (d Deps) SubmitAndWait(ch queue.Channel, operation string, payload map[string]any, op queue.Op) map[string]any {
	id, out, err := d.Queue.Enqueue(ch, operation, op)
	if err != nil {
		return apierrors.Failure(apierrors.CodeQueueFull, err.Error(), nil).ToMap()
	}
	if d.Tracker != nil {
		d.Tracker.Add(id, operation, payload)
	}

	select {
	case res := <-out:
		if res.Err != nil {
			if ae, ok := res.Err.(*apierrors.Error); ok {
				return ae.Envelope().ToMap()
			}
			return apierrors.Failure(apierrors.DefaultCodeForOperation(operation), res.Err.Error(), nil).ToMap()
		}
		if res.Value == nil {
			res.Value = map[string]any{}
		}
		res.Value["success"] = true
		res.Value["request_id"] = id
		return res.Value
	case <-time.After(d.TimeoutFor(operation)):
		return apierrors.Failure(apierrors.CodeRequestTimeout, "operation timed out waiting for the render tick", map[string]any{"request_id": id}).ToMap()
	}
}

// RequestStatus implements the request_status/get_status read-only
// lookup against Tracker (spec §4.8): live entries report their
// completion state; unknown/expired ids report NOT_FOUND.
func (d Deps) RequestStatus(id string) map[string]any {
	snap := d.Tracker.Get(id, true)
	if snap == nil {
		return apierrors.Failure(apierrors.CodeNotFound, "unknown or expired request id", map[string]any{"id": id}).ToMap()
	}
	body := map[string]any{
		"success":      true,
		"id":           snap.ID,
		"operation":    snap.Operation,
		"submitted_at": snap.SubmittedAt.UTC().Format(time.RFC3339Nano),
		"completed":    snap.Completed,
	}
	if snap.Completed {
		body["completed_at"] = snap.CompletedAt.UTC().Format(time.RFC3339Nano)
		if snap.Error != nil {
			body["error"] = snap.Error
		} else {
			body["result"] = snap.Result
		}
	}
	return body
}
