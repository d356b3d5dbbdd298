package queue

import (
	"fmt"
	"time"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/logging"
	"github.com/agentworld/control-plane/pkg/tracker"
)

// OnComplete is invoked once per drained entry, after its Op has run (or
// panicked), with the wall-clock duration the Op took.
type OnComplete func(id, operation string, result map[string]any, errEnvelope map[string]any, dur time.Duration)

// TickExecutor drains a Queue once per render-thread tick, running each
// entry's Op on the calling goroutine (the tick thread itself) and never
// blocking it beyond the per-tick budget (spec §4.7 "tick must never
// block on I/O").
type TickExecutor struct {
	queue          *Queue
	tracker        *tracker.Tracker
	maxOpsPerCycle int
	onComplete     OnComplete
}

// NewTickExecutor wires a Queue to a Tracker with a fixed per-tick budget
// (spec §4.7 max_operations_per_cycle).
func NewTickExecutor(q *Queue, tr *tracker.Tracker, maxOpsPerCycle int, onComplete OnComplete) *TickExecutor {
	return &TickExecutor{queue: q, tracker: tr, maxOpsPerCycle: maxOpsPerCycle, onComplete: onComplete}
}

// Tick drains up to maxOpsPerCycle entries and runs them synchronously,
// returning how many were processed. Each entry's Op is isolated: a
// panic is recovered and reported as an <OPERATION>_FAILED error rather
// than crashing the tick thread (spec §4.7).
func (e *TickExecutor) Tick() int {
	entries := e.queue.Drain(e.maxOpsPerCycle)
	for _, ent := range entries {
		e.run(ent)
	}
	return len(entries)
}

func (e *TickExecutor) run(ent *entry) {
	start := time.Now()
	result, errEnvelope := e.invoke(ent)
	dur := time.Since(start)

	if e.tracker != nil {
		e.tracker.MarkCompleted(ent.id, result, errEnvelope)
	}
	ent.out <- Result{Value: result, Err: errFromEnvelope(errEnvelope)}
	close(ent.out)

	if e.onComplete != nil {
		e.onComplete(ent.id, ent.operation, result, errEnvelope, dur)
	}
}

// invoke runs ent's Op, translating any error or panic into an
// ErrorEnvelope whose code defaults to <OPERATION>_FAILED (spec §7)
// unless the Op itself returned a typed *apierrors.Error naming a more
// specific code (e.g. VALIDATION_ERROR).
func (e *TickExecutor) invoke(ent *entry) (result map[string]any, errEnvelope map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get().Error("queue: operation panicked", "id", ent.id, "operation", ent.operation, "panic", fmt.Sprint(r))
			env := apierrors.Failure(apierrors.DefaultCodeForOperation(ent.operation), fmt.Sprintf("panic: %v", r), nil)
			errEnvelope = env.ToMap()
		}
	}()

	v, err := ent.op()
	if err != nil {
		code := apierrors.DefaultCodeForOperation(ent.operation)
		if ae, ok := err.(*apierrors.Error); ok {
			code = ae.Type
		}
		env := apierrors.Failure(code, err.Error(), nil)
		return nil, env.ToMap()
	}
	return v, nil
}

// errFromEnvelope reconstructs a typed *apierrors.Error from an
// ErrorEnvelope map, preserving the error_code invoke already resolved
// (VALIDATION_ERROR, NOT_FOUND, ...) instead of flattening it to a bare
// error string that a caller would have to re-derive a code for.
func errFromEnvelope(env map[string]any) error {
	if env == nil {
		return nil
	}
	msg, _ := env["error"].(string)
	code, _ := env["error_code"].(string)
	return apierrors.NewError(apierrors.Code(code), msg, nil)
}
