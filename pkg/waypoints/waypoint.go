package waypoints

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

// Waypoint is the caller-visible shape of one stored waypoint.
type Waypoint struct {
	ID        string
	Type      WaypointType
	Name      string
	Position  [3]float64
	Target    *[3]float64
	Metadata  map[string]any
	GroupIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateWaypointInput is the argument set for CreateWaypoint
// (spec §4.15: "create_waypoint(position, type, name?, target?,
// metadata?, group_ids?) → id").
type CreateWaypointInput struct {
	Position [3]float64
	Type     WaypointType
	Name     string
	Target   *[3]float64
	Metadata map[string]any
	GroupIDs []string
}

// CreateWaypoint inserts a new waypoint, validating that every named
// group already exists (spec §4.15's referential invariant) before
// committing.
func (s *Store) CreateWaypoint(in CreateWaypointInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("waypoints: begin: %w", err)
	}
	defer tx.Rollback()

	if err := assertGroupsExist(tx, in.GroupIDs); err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := s.now()
	metadataJSON, err := marshalMetadata(in.Metadata)
	if err != nil {
		return "", err
	}

	hasTarget, tx3, ty3, tz3 := flattenTarget(in.Target)
	_, err = tx.Exec(`INSERT INTO waypoints (id, type, name, pos_x, pos_y, pos_z, has_target, target_x, target_y, target_z, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(in.Type), in.Name, in.Position[0], in.Position[1], in.Position[2],
		hasTarget, tx3, ty3, tz3, metadataJSON, now.Unix(), now.Unix())
	if err != nil {
		return "", fmt.Errorf("waypoints: insert: %w", err)
	}

	for _, gid := range in.GroupIDs {
		if _, err := tx.Exec(`INSERT INTO waypoint_groups (waypoint_id, group_id) VALUES (?, ?)`, id, gid); err != nil {
			return "", fmt.Errorf("waypoints: link group: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("waypoints: commit: %w", err)
	}
	return id, nil
}

// ListWaypoints returns waypoints optionally filtered by type and/or
// group membership (spec §4.15: "list_waypoints(type?, group_id?)").
func (s *Store) ListWaypoints(waypointType WaypointType, groupID string) ([]Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT DISTINCT w.id, w.type, w.name, w.pos_x, w.pos_y, w.pos_z, w.has_target, w.target_x, w.target_y, w.target_z, w.metadata, w.created_at, w.updated_at
		FROM waypoints w`
	args := []any{}
	var where []string
	if groupID != "" {
		query += ` JOIN waypoint_groups wg ON wg.waypoint_id = w.id`
		where = append(where, "wg.group_id = ?")
		args = append(args, groupID)
	}
	if waypointType != "" {
		where = append(where, "w.type = ?")
		args = append(args, string(waypointType))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY w.created_at ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("waypoints: list: %w", err)
	}
	defer rows.Close()

	var out []Waypoint
	for rows.Next() {
		wp, err := scanWaypoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		groups, err := s.groupIDsForWaypointLocked(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].GroupIDs = groups
	}
	return out, nil
}

// GetWaypoint returns a single waypoint by id.
func (s *Store) GetWaypoint(id string) (Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getWaypointLocked(id)
}

func (s *Store) getWaypointLocked(id string) (Waypoint, error) {
	row := s.db.QueryRow(`SELECT id, type, name, pos_x, pos_y, pos_z, has_target, target_x, target_y, target_z, metadata, created_at, updated_at
		FROM waypoints WHERE id = ?`, id)
	wp, err := scanWaypoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Waypoint{}, apierrors.NewNotFoundError(fmt.Sprintf("waypoint %q not found", id), err)
	}
	if err != nil {
		return Waypoint{}, err
	}
	groups, err := s.groupIDsForWaypointLocked(id)
	if err != nil {
		return Waypoint{}, err
	}
	wp.GroupIDs = groups
	return wp, nil
}

// UpdateWaypointInput carries the optional fields update_waypoint may
// change; a nil field leaves the stored value untouched.
type UpdateWaypointInput struct {
	Position *[3]float64
	Name     *string
	Target   **[3]float64 // pointer-to-pointer so "clear the target" (Target pointing at a nil *[3]float64) is distinguishable from "leave unchanged"
	Metadata *map[string]any
}

// UpdateWaypoint applies partial updates and reports whether a row was
// changed (spec §4.15: "update_waypoint(id, **fields) → bool").
func (s *Store) UpdateWaypoint(id string, in UpdateWaypointInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getWaypointLocked(id)
	if err != nil {
		return false, err
	}

	pos := existing.Position
	if in.Position != nil {
		pos = *in.Position
	}
	name := existing.Name
	if in.Name != nil {
		name = *in.Name
	}
	target := existing.Target
	if in.Target != nil {
		target = *in.Target
	}
	metadata := existing.Metadata
	if in.Metadata != nil {
		metadata = *in.Metadata
	}
	metadataJSON, err := marshalMetadata(metadata)
	if err != nil {
		return false, err
	}

	hasTarget, tx3, ty3, tz3 := flattenTarget(target)
	res, err := s.db.Exec(`UPDATE waypoints SET name = ?, pos_x = ?, pos_y = ?, pos_z = ?, has_target = ?, target_x = ?, target_y = ?, target_z = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		name, pos[0], pos[1], pos[2], hasTarget, tx3, ty3, tz3, metadataJSON, s.now().Unix(), id)
	if err != nil {
		return false, fmt.Errorf("waypoints: update: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RemoveWaypoint deletes one waypoint (spec §4.15:
// "remove_waypoint(id) → bool").
func (s *Store) RemoveWaypoint(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM waypoints WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("waypoints: remove: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RemoveWaypoints deletes multiple waypoints, returning the count
// actually removed (spec §4.15: "remove_waypoints(ids) → int").
func (s *Store) RemoveWaypoints(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("waypoints: begin: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, id := range ids {
		res, err := tx.Exec(`DELETE FROM waypoints WHERE id = ?`, id)
		if err != nil {
			return 0, fmt.Errorf("waypoints: remove: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		removed += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("waypoints: commit: %w", err)
	}
	return removed, nil
}

// ClearWaypoints deletes every waypoint, returning the count removed
// (spec §4.15: "clear_waypoints() → int").
func (s *Store) ClearWaypoints() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM waypoints`)
	if err != nil {
		return 0, fmt.Errorf("waypoints: clear: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) groupIDsForWaypointLocked(waypointID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT group_id FROM waypoint_groups WHERE waypoint_id = ? ORDER BY group_id`, waypointID)
	if err != nil {
		return nil, fmt.Errorf("waypoints: group lookup: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWaypoint(row scanner) (Waypoint, error) {
	var (
		wp                   Waypoint
		typeStr              string
		name                 sql.NullString
		hasTarget            int
		tx, ty, tz           sql.NullFloat64
		metadataJSON         string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&wp.ID, &typeStr, &name, &wp.Position[0], &wp.Position[1], &wp.Position[2],
		&hasTarget, &tx, &ty, &tz, &metadataJSON, &createdAt, &updatedAt); err != nil {
		return Waypoint{}, err
	}
	wp.Type = WaypointType(typeStr)
	wp.Name = name.String
	if hasTarget != 0 {
		wp.Target = &[3]float64{tx.Float64, ty.Float64, tz.Float64}
	}
	wp.Metadata = map[string]any{}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &wp.Metadata); err != nil {
			return Waypoint{}, fmt.Errorf("waypoints: decode metadata: %w", err)
		}
	}
	wp.CreatedAt = time.Unix(createdAt, 0).UTC()
	wp.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return wp, nil
}

func flattenTarget(t *[3]float64) (hasTarget int, x, y, z any) {
	if t == nil {
		return 0, nil, nil, nil
	}
	return 1, t[0], t[1], t[2]
}

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("waypoints: encode metadata: %w", err)
	}
	return string(b), nil
}
