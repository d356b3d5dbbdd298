// Package tracker implements the RequestTracker (spec §4.8): a bounded,
// insertion-ordered, TTL-aware map of in-flight and completed requests.
//
// No teacher source survived retrieval for a comparable bounded-TTL map
// (the pack's equivalents are test-only stubs for unrelated session
// stores); this is built directly from spec §3/§4.8/§5 using
// container/list for O(1) oldest-eviction plus a sync.Mutex, the same
// shared-resource discipline ("one exclusive mutex, short critical
// sections") spec §5 requires.
package tracker

import (
	"container/list"
	"sync"
	"time"
)

// Snapshot is an independent copy of a tracked request's lifecycle.
type Snapshot struct {
	ID          string
	Operation   string
	Payload     map[string]any
	SubmittedAt time.Time
	Completed   bool
	CompletedAt time.Time
	Result      map[string]any
	Error       map[string]any
}

type entry struct {
	snap Snapshot
}

// Tracker is the bounded ordered map described in spec §4.8/§9.
type Tracker struct {
	mu         sync.Mutex
	order      *list.List // front = oldest
	index      map[string]*list.Element
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New builds a Tracker with the given bounds.
func New(maxEntries int, ttl time.Duration) *Tracker {
	return &Tracker{
		order:      list.New(),
		index:      make(map[string]*list.Element),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Add inserts a new in-flight request, evicting the oldest entry if the
// tracker is at capacity.
func (t *Tracker) Add(id, operation string, payload map[string]any) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{ID: id, Operation: operation, Payload: copyMap(payload), SubmittedAt: t.now()}
	el := t.order.PushBack(&entry{snap: snap})
	t.index[id] = el

	if t.maxEntries > 0 {
		for t.order.Len() > t.maxEntries {
			oldest := t.order.Front()
			t.order.Remove(oldest)
			delete(t.index, oldest.Value.(*entry).snap.ID)
		}
	}
	return snap
}

// Update mutates a live entry's payload-adjacent fields; returns nil if
// the id is absent or expired.
func (t *Tracker) Update(id string, mutate func(*Snapshot)) *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.lookupLocked(id)
	if !ok {
		return nil
	}
	e := el.Value.(*entry)
	mutate(&e.snap)
	out := e.snap
	return &out
}

// MarkCompleted stamps completed/completed_at and stores result or error.
func (t *Tracker) MarkCompleted(id string, result, errEnvelope map[string]any) *Snapshot {
	return t.Update(id, func(s *Snapshot) {
		s.Completed = true
		s.CompletedAt = t.now()
		s.Result = result
		s.Error = errEnvelope
	})
}

// Get returns a snapshot, removing it from the tracker first if it has
// expired (removeIfExpired=true is the default per spec §4.8).
func (t *Tracker) Get(id string, removeIfExpired bool) *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, present := t.index[id]
	if !present {
		return nil
	}
	e := el.Value.(*entry)
	if t.expiredLocked(e.snap) {
		if removeIfExpired {
			t.order.Remove(el)
			delete(t.index, id)
		}
		return nil
	}
	out := e.snap
	out.Payload = copyMap(e.snap.Payload)
	out.Result = copyMap(e.snap.Result)
	out.Error = copyMap(e.snap.Error)
	return &out
}

// Pop removes and returns a live entry, ignoring (and dropping) already-
// expired ones.
func (t *Tracker) Pop(id string) *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, present := t.index[id]
	if !present {
		return nil
	}
	e := el.Value.(*entry)
	t.order.Remove(el)
	delete(t.index, id)
	if t.expiredLocked(e.snap) {
		return nil
	}
	out := e.snap
	return &out
}

// Prune drops every expired entry. Intended for periodic maintenance;
// Get/Pop already perform lazy pruning on access.
func (t *Tracker) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	var next *list.Element
	for el := t.order.Front(); el != nil; el = next {
		next = el.Next()
		e := el.Value.(*entry)
		if t.expiredLocked(e.snap) {
			t.order.Remove(el)
			delete(t.index, e.snap.ID)
		}
	}
}

// Clear empties the tracker.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order.Init()
	t.index = make(map[string]*list.Element)
}

// Len reports the number of entries currently stored, live or not-yet-pruned.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

func (t *Tracker) lookupLocked(id string) (*list.Element, bool) {
	el, ok := t.index[id]
	if !ok {
		return nil, false
	}
	if t.expiredLocked(el.Value.(*entry).snap) {
		return nil, false
	}
	return el, true
}

func (t *Tracker) expiredLocked(s Snapshot) bool {
	if t.ttl <= 0 {
		return false
	}
	anchor := s.SubmittedAt
	if s.Completed {
		anchor = s.CompletedAt
	}
	return t.now().Sub(anchor) > t.ttl
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
