// Package worldbuilder wires the scene builder's HTTP/MCP contract
// surface to a minimal in-memory scene graph. Grounded on the
// operation/route/tool list in original_source/agentworld-extensions/
// omni.agent.worldbuilder/omni/agent/worldbuilder/transport/contract.py.
// The real scene graph and its asset primitives are the out-of-scope
// rendering-host collaborator spec.md §1 names at its interface only;
// Scene stands in for it, just enough to exercise the queue/tick path
// honestly.
package worldbuilder

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Element is one scene-graph node: a primitive or a placed asset.
type Element struct {
	ID        string
	Type      string
	Name      string
	Path      string
	Position  [3]float64
	Rotation  [3]float64
	Scale     [3]float64
	AssetPath string
	BatchID   string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Batch groups elements created by a single create_batch call.
type Batch struct {
	ID         string
	ElementIDs []string
	CreatedAt  time.Time
}

// Scene is the thin, mutex-guarded fake scene graph every handler
// closes over. Mutating methods run exclusively inside queue.Op
// closures on the tick thread; the mutex exists so read-only HTTP
// workers (get_scene, query/*) can safely observe it concurrently.
type Scene struct {
	mu       sync.RWMutex
	elements map[string]*Element
	batches  map[string]*Batch
	now      func() time.Time
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{
		elements: make(map[string]*Element),
		batches:  make(map[string]*Batch),
		now:      time.Now,
	}
}

// AddElement inserts a new element, defaulting its scene path to
// "/<name>" when none is supplied (the original extension's convention
// for unparented primitives).
func (s *Scene) AddElement(e Element) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	if e.Path == "" {
		e.Path = "/" + e.Name
	}
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.elements[e.ID] = &e
	return e.ID, nil
}

// CreateBatch inserts every element in elems under one new batch id.
func (s *Scene) CreateBatch(elems []Element) (string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batchID := uuid.NewString()
	ids := make([]string, 0, len(elems))
	for _, e := range elems {
		e.ID = uuid.NewString()
		if e.Path == "" {
			e.Path = "/" + e.Name
		}
		e.BatchID = batchID
		e.CreatedAt = s.now()
		e.UpdatedAt = e.CreatedAt
		s.elements[e.ID] = &e
		ids = append(ids, e.ID)
	}
	s.batches[batchID] = &Batch{ID: batchID, ElementIDs: ids, CreatedAt: s.now()}
	return batchID, ids, nil
}

// PlaceAsset inserts an element referencing an external asset path. The
// place_asset handler checks the path through pkg/assets first when an
// asset guard is configured; PlaceAsset itself does not check it.
func (s *Scene) PlaceAsset(e Element) (string, error) {
	return s.AddElement(e)
}

// TransformAsset applies a new position/rotation/scale to an existing
// element.
func (s *Scene) TransformAsset(id string, pos, rot, scale *[3]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elements[id]
	if !ok {
		return fmt.Errorf("element %q not found", id)
	}
	if pos != nil {
		e.Position = *pos
	}
	if rot != nil {
		e.Rotation = *rot
	}
	if scale != nil {
		e.Scale = *scale
	}
	e.UpdatedAt = s.now()
	return nil
}

// RemoveElement deletes a single element, reporting whether it existed.
func (s *Scene) RemoveElement(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elements[id]; !ok {
		return false
	}
	delete(s.elements, id)
	return true
}

// ClearPath removes every element whose scene path is pathPrefix or
// nested under it, returning the count removed.
func (s *Scene) ClearPath(pathPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.elements {
		if e.Path == pathPrefix || hasPathPrefix(e.Path, pathPrefix) {
			delete(s.elements, id)
			removed++
		}
	}
	return removed
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) <= len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}

// Snapshot returns every element, ordered by creation time.
func (s *Scene) Snapshot() []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Element, 0, len(s.elements))
	for _, e := range s.elements {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Get returns a single element by id.
func (s *Scene) Get(id string) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elements[id]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// BatchInfo returns a batch's member elements.
func (s *Scene) BatchInfo(batchID string) (Batch, []Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[batchID]
	if !ok {
		return Batch{}, nil, false
	}
	elems := make([]Element, 0, len(b.ElementIDs))
	for _, id := range b.ElementIDs {
		if e, ok := s.elements[id]; ok {
			elems = append(elems, *e)
		}
	}
	return *b, elems, true
}

// QueryByType returns every element whose Type matches.
func (s *Scene) QueryByType(elementType string) []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Element
	for _, e := range s.elements {
		if e.Type == elementType {
			out = append(out, *e)
		}
	}
	return out
}

// QueryInBounds returns every element positioned within [min, max] on
// every axis.
func (s *Scene) QueryInBounds(min, max [3]float64) []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Element
	for _, e := range s.elements {
		inside := true
		for axis := 0; axis < 3; axis++ {
			if e.Position[axis] < min[axis] || e.Position[axis] > max[axis] {
				inside = false
				break
			}
		}
		if inside {
			out = append(out, *e)
		}
	}
	return out
}

// QueryNearPoint returns every element within radius of point.
func (s *Scene) QueryNearPoint(point [3]float64, radius float64) []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Element
	for _, e := range s.elements {
		dx, dy, dz := e.Position[0]-point[0], e.Position[1]-point[1], e.Position[2]-point[2]
		if dx*dx+dy*dy+dz*dz <= radius*radius {
			out = append(out, *e)
		}
	}
	return out
}

// CalculateBounds returns the axis-aligned bounding box over the named
// elements (or the whole scene when ids is empty).
func (s *Scene) CalculateBounds(ids []string) (min, max [3]float64, count int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var elems []*Element
	if len(ids) == 0 {
		for _, e := range s.elements {
			elems = append(elems, e)
		}
	} else {
		for _, id := range ids {
			if e, ok := s.elements[id]; ok {
				elems = append(elems, e)
			}
		}
	}
	if len(elems) == 0 {
		return [3]float64{}, [3]float64{}, 0
	}
	min, max = elems[0].Position, elems[0].Position
	for _, e := range elems[1:] {
		for axis := 0; axis < 3; axis++ {
			if e.Position[axis] < min[axis] {
				min[axis] = e.Position[axis]
			}
			if e.Position[axis] > max[axis] {
				max[axis] = e.Position[axis]
			}
		}
	}
	return min, max, len(elems)
}

// FindGroundLevel returns the highest Y position among the elements whose
// (x, z) position lies within searchRadius of the given (x, z), and false
// when there is none — the thin stand-in for a raycast against the
// out-of-scope scene graph's geometry.
func (s *Scene) FindGroundLevel(x, z, searchRadius float64) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := false
	var ground float64
	for _, e := range s.elements {
		dx, dz := e.Position[0]-x, e.Position[2]-z
		if dx*dx+dz*dz > searchRadius*searchRadius {
			continue
		}
		if !found || e.Position[1] > ground {
			ground = e.Position[1]
			found = true
		}
	}
	return ground, found
}

// AlignObjects snaps every named element's given axis to targetValue.
func (s *Scene) AlignObjects(ids []string, axis int, targetValue float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if axis < 0 || axis > 2 {
		return 0, fmt.Errorf("axis must be 0, 1, or 2")
	}
	aligned := 0
	for _, id := range ids {
		e, ok := s.elements[id]
		if !ok {
			continue
		}
		e.Position[axis] = targetValue
		e.UpdatedAt = s.now()
		aligned++
	}
	return aligned, nil
}
