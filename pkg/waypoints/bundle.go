package waypoints

import (
	"fmt"
)

// Bundle is the portable export/import payload (spec §4.15:
// "export(include_groups) → bundle" / "import(bundle, merge_mode) →
// stats"). Waypoints/groups keep their original ids so references
// between them survive a round trip.
type Bundle struct {
	Waypoints []Waypoint
	Groups    []Group // empty unless exported with include_groups
}

// MergeMode controls how Import reconciles a bundle against existing
// data.
type MergeMode string

const (
	// MergeReplace clears the store before importing.
	MergeReplace MergeMode = "replace"
	// MergeSkipExisting leaves any id already present untouched.
	MergeSkipExisting MergeMode = "skip_existing"
	// MergeOverwrite replaces any id already present with the bundle's copy.
	MergeOverwrite MergeMode = "overwrite"
)

// ImportStats reports what Import actually did.
type ImportStats struct {
	WaypointsImported int
	WaypointsSkipped  int
	GroupsImported    int
	GroupsSkipped     int
}

// Export returns every waypoint, and (when includeGroups is true) every
// group, as a portable Bundle.
func (s *Store) Export(includeGroups bool) (Bundle, error) {
	waypoints, err := s.ListWaypoints("", "")
	if err != nil {
		return Bundle{}, err
	}
	b := Bundle{Waypoints: waypoints}
	if includeGroups {
		groups, err := s.ListGroups("", false)
		if err != nil {
			return Bundle{}, err
		}
		b.Groups = groups
	}
	return b, nil
}

// Import loads a Bundle according to mode, returning the counts of
// what was actually written. Groups are imported before waypoints so
// every waypoint's group_ids resolve (spec §4.15's referential
// invariant holds across the whole import, not just within one row).
func (s *Store) Import(b Bundle, mode MergeMode) (ImportStats, error) {
	if mode == MergeReplace {
		if _, err := s.ClearWaypoints(); err != nil {
			return ImportStats{}, err
		}
		if err := s.clearGroups(); err != nil {
			return ImportStats{}, err
		}
	}

	var stats ImportStats
	for _, g := range b.Groups {
		_, err := s.GetGroup(g.ID)
		exists := err == nil
		switch {
		case exists && mode == MergeSkipExisting:
			stats.GroupsSkipped++
		case exists && mode == MergeOverwrite:
			if _, err := s.UpdateGroup(g.ID, UpdateGroupInput{Name: &g.Name, Color: &g.Color, Metadata: &g.Metadata}); err != nil {
				return stats, err
			}
			stats.GroupsImported++
		case exists:
			// MergeReplace already cleared the store, so "exists" here
			// only happens under MergeSkipExisting/Overwrite handled
			// above; nothing left to do for any other mode.
		default:
			if err := s.insertGroupWithID(g); err != nil {
				return stats, err
			}
			stats.GroupsImported++
		}
	}

	for _, w := range b.Waypoints {
		_, err := s.GetWaypoint(w.ID)
		exists := err == nil
		if exists && mode == MergeSkipExisting {
			stats.WaypointsSkipped++
			continue
		}
		if exists && mode == MergeOverwrite {
			if _, err := s.RemoveWaypoint(w.ID); err != nil {
				return stats, err
			}
		} else if exists {
			continue
		}
		if err := s.insertWaypointWithID(w); err != nil {
			return stats, err
		}
		stats.WaypointsImported++
	}
	return stats, nil
}

func (s *Store) clearGroups() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM groups`)
	if err != nil {
		return fmt.Errorf("waypoints: clear groups: %w", err)
	}
	return nil
}

// insertGroupWithID inserts g preserving its original id, used by
// Import to keep cross-references between a bundle's groups/waypoints
// intact.
func (s *Store) insertGroupWithID(g Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, err := marshalMetadata(g.Metadata)
	if err != nil {
		return err
	}
	var parent any
	if g.ParentGroupID != "" {
		parent = g.ParentGroupID
	}
	_, err = s.db.Exec(`INSERT INTO groups (id, name, parent_group_id, color, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, parent, g.Color, metadataJSON, s.now().Unix())
	if err != nil {
		return fmt.Errorf("waypoints: import group: %w", err)
	}
	return nil
}

func (s *Store) insertWaypointWithID(w Waypoint) error {
	s.mu.Lock()

	metadataJSON, err := marshalMetadata(w.Metadata)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	hasTarget, tx3, ty3, tz3 := flattenTarget(w.Target)
	now := s.now().Unix()
	_, err = s.db.Exec(`INSERT INTO waypoints (id, type, name, pos_x, pos_y, pos_z, has_target, target_x, target_y, target_z, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, string(w.Type), w.Name, w.Position[0], w.Position[1], w.Position[2],
		hasTarget, tx3, ty3, tz3, metadataJSON, now, now)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("waypoints: import waypoint: %w", err)
	}
	if len(w.GroupIDs) > 0 {
		if err := s.AddWaypointToGroups(w.ID, w.GroupIDs); err != nil {
			return err
		}
	}
	return nil
}
