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

// Group is the caller-visible shape of one stored waypoint group.
// Children do not carry a parent pointer back to this struct — the
// hierarchy is reconstructed on demand from ParentGroupID, per spec
// §4.15's "no parent pointers in children" shape.
type Group struct {
	ID            string
	Name          string
	ParentGroupID string // "" means a root group
	Color         string
	Metadata      map[string]any
	CreatedAt     time.Time
}

// CreateGroupInput is the argument set for CreateGroup.
type CreateGroupInput struct {
	Name          string
	ParentGroupID string
	Color         string
	Metadata      map[string]any
}

// CreateGroup inserts a new group, rejecting a parent assignment that
// would form a cycle or name a nonexistent group (spec §4.15's
// referential invariant).
func (s *Store) CreateGroup(in CreateGroupInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("waypoints: begin: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if in.ParentGroupID != "" {
		if err := assertGroupsExist(tx, []string{in.ParentGroupID}); err != nil {
			return "", err
		}
		// A freshly minted id cannot already appear as an ancestor of
		// in.ParentGroupID, so no cycle check is needed for inserts —
		// only UpdateGroup's reparenting can introduce one.
	}

	metadataJSON, err := marshalMetadata(in.Metadata)
	if err != nil {
		return "", err
	}
	var parent any
	if in.ParentGroupID != "" {
		parent = in.ParentGroupID
	}
	_, err = tx.Exec(`INSERT INTO groups (id, name, parent_group_id, color, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.Name, parent, in.Color, metadataJSON, s.now().Unix())
	if err != nil {
		return "", fmt.Errorf("waypoints: insert group: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("waypoints: commit: %w", err)
	}
	return id, nil
}

// ListGroups returns groups, optionally filtered to the direct children
// of parentID ("" lists root groups only when byParent is true, or
// every group when byParent is false).
func (s *Store) ListGroups(parentID string, byParent bool) ([]Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	var err error
	if byParent {
		if parentID == "" {
			rows, err = s.db.Query(`SELECT id, name, parent_group_id, color, metadata, created_at FROM groups WHERE parent_group_id IS NULL ORDER BY created_at ASC`)
		} else {
			rows, err = s.db.Query(`SELECT id, name, parent_group_id, color, metadata, created_at FROM groups WHERE parent_group_id = ? ORDER BY created_at ASC`, parentID)
		}
	} else {
		rows, err = s.db.Query(`SELECT id, name, parent_group_id, color, metadata, created_at FROM groups ORDER BY created_at ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("waypoints: list groups: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGroup returns a single group by id.
func (s *Store) GetGroup(id string) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getGroupLocked(id)
}

func (s *Store) getGroupLocked(id string) (Group, error) {
	row := s.db.QueryRow(`SELECT id, name, parent_group_id, color, metadata, created_at FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, apierrors.NewError(apierrors.CodeGroupNotFound, fmt.Sprintf("group %q not found", id), err)
	}
	return g, err
}

// RemoveGroup deletes a group. When cascade is false and the group has
// child groups, the removal is rejected; when cascade is true, children
// are reparented to the removed group's parent. Waypoint memberships in
// the group are dropped in either case (not the waypoints themselves).
func (s *Store) RemoveGroup(id string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("waypoints: begin: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	if err := tx.QueryRow(`SELECT parent_group_id FROM groups WHERE id = ?`, id).Scan(&parent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apierrors.NewError(apierrors.CodeGroupNotFound, fmt.Sprintf("group %q not found", id), err)
		}
		return err
	}

	var childCount int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM groups WHERE parent_group_id = ?`, id).Scan(&childCount); err != nil {
		return err
	}
	if childCount > 0 && !cascade {
		return apierrors.NewError(apierrors.CodeInvalidParameter, fmt.Sprintf("group %q has child groups; pass cascade=true to remove it", id), nil)
	}
	if childCount > 0 {
		var newParent any
		if parent.Valid {
			newParent = parent.String
		}
		if _, err := tx.Exec(`UPDATE groups SET parent_group_id = ? WHERE parent_group_id = ?`, newParent, id); err != nil {
			return fmt.Errorf("waypoints: reparent children: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM waypoint_groups WHERE group_id = ?`, id); err != nil {
		return fmt.Errorf("waypoints: unlink waypoints: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM groups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("waypoints: remove group: %w", err)
	}
	return tx.Commit()
}

// GroupHierarchy returns every group with its children resolved
// on-demand (no parent pointers stored on Group itself), per spec
// §4.15: "group_hierarchy()".
func (s *Store) GroupHierarchy() ([]GroupNode, error) {
	groups, err := s.ListGroups("", false)
	if err != nil {
		return nil, err
	}
	byParent := map[string][]Group{}
	for _, g := range groups {
		byParent[g.ParentGroupID] = append(byParent[g.ParentGroupID], g)
	}
	var build func(parentID string) []GroupNode
	build = func(parentID string) []GroupNode {
		children := byParent[parentID]
		nodes := make([]GroupNode, 0, len(children))
		for _, g := range children {
			nodes = append(nodes, GroupNode{Group: g, Children: build(g.ID)})
		}
		return nodes
	}
	return build(""), nil
}

// GroupNode is one node of the materialized group tree returned by
// GroupHierarchy.
type GroupNode struct {
	Group    Group
	Children []GroupNode
}

// AddWaypointToGroups links waypointID to each groupID, validating that
// every group exists (spec §4.15: "add_waypoint_to_groups").
func (s *Store) AddWaypointToGroups(waypointID string, groupIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("waypoints: begin: %w", err)
	}
	defer tx.Rollback()

	var waypointExists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM waypoints WHERE id = ?`, waypointID).Scan(&waypointExists); err != nil {
		return err
	}
	if waypointExists == 0 {
		return apierrors.NewNotFoundError(fmt.Sprintf("waypoint %q not found", waypointID), nil)
	}
	if err := assertGroupsExist(tx, groupIDs); err != nil {
		return err
	}
	for _, gid := range groupIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO waypoint_groups (waypoint_id, group_id) VALUES (?, ?)`, waypointID, gid); err != nil {
			return fmt.Errorf("waypoints: link group: %w", err)
		}
	}
	return tx.Commit()
}

// RemoveWaypointFromGroups unlinks waypointID from each groupID.
func (s *Store) RemoveWaypointFromGroups(waypointID string, groupIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("waypoints: begin: %w", err)
	}
	defer tx.Rollback()
	for _, gid := range groupIDs {
		if _, err := tx.Exec(`DELETE FROM waypoint_groups WHERE waypoint_id = ? AND group_id = ?`, waypointID, gid); err != nil {
			return fmt.Errorf("waypoints: unlink group: %w", err)
		}
	}
	return tx.Commit()
}

// GetWaypointGroups returns the groups a waypoint directly belongs to.
func (s *Store) GetWaypointGroups(waypointID string) ([]Group, error) {
	s.mu.Lock()
	ids, err := s.groupIDsForWaypointLocked(waypointID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// GetGroupWaypoints returns the waypoints directly in groupID, or (when
// includeNested is true) also those in every descendant group.
func (s *Store) GetGroupWaypoints(groupID string, includeNested bool) ([]Waypoint, error) {
	groupIDs := []string{groupID}
	if includeNested {
		descendants, err := s.descendantGroupIDs(groupID)
		if err != nil {
			return nil, err
		}
		groupIDs = append(groupIDs, descendants...)
	}

	seen := map[string]bool{}
	var out []Waypoint
	for _, gid := range groupIDs {
		wps, err := s.ListWaypoints("", gid)
		if err != nil {
			return nil, err
		}
		for _, wp := range wps {
			if !seen[wp.ID] {
				seen[wp.ID] = true
				out = append(out, wp)
			}
		}
	}
	return out, nil
}

func (s *Store) descendantGroupIDs(groupID string) ([]string, error) {
	all, err := s.ListGroups("", false)
	if err != nil {
		return nil, err
	}
	children := map[string][]string{}
	for _, g := range all {
		children[g.ParentGroupID] = append(children[g.ParentGroupID], g.ID)
	}
	var out []string
	var walk func(id string)
	walk = func(id string) {
		for _, child := range children[id] {
			out = append(out, child)
			walk(child)
		}
	}
	walk(groupID)
	return out, nil
}

// assertGroupsExist verifies every id in ids names an existing group
// (spec §4.15: "a waypoint's group_ids always name existing groups").
// tx is any *sql.Tx or *sql.DB exposing QueryRow.
func assertGroupsExist(tx interface{ QueryRow(string, ...any) *sql.Row }, ids []string) error {
	for _, id := range ids {
		var count int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM groups WHERE id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("waypoints: group existence check: %w", err)
		}
		if count == 0 {
			return apierrors.NewError(apierrors.CodeGroupNotFound, fmt.Sprintf("group %q does not exist", id), nil)
		}
	}
	return nil
}

// assertNoCycle verifies that reparenting groupID under newParentID
// would not create a cycle: newParentID must not be groupID itself nor
// any of groupID's existing descendants (spec §4.15: "a group's
// parent_group_id does not form a cycle").
func (s *Store) assertNoCycle(groupID, newParentID string) error {
	if groupID == newParentID {
		return apierrors.NewError(apierrors.CodeInvalidParameter, "a group cannot be its own parent", nil)
	}
	descendants, err := s.descendantGroupIDs(groupID)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if d == newParentID {
			return apierrors.NewError(apierrors.CodeInvalidParameter, "reparenting would create a group cycle", nil)
		}
	}
	return nil
}

// UpdateGroupInput carries the optional fields UpdateGroup may change.
type UpdateGroupInput struct {
	Name          *string
	ParentGroupID **string // pointer-to-pointer: nil means unchanged, pointing at nil clears to root
	Color         *string
	Metadata      *map[string]any
}

// UpdateGroup applies partial updates to a group, rejecting reparenting
// that would form a cycle or name a nonexistent parent.
func (s *Store) UpdateGroup(id string, in UpdateGroupInput) (bool, error) {
	existing, err := s.GetGroup(id)
	if err != nil {
		return false, err
	}

	newParent := existing.ParentGroupID
	if in.ParentGroupID != nil {
		if *in.ParentGroupID == nil {
			newParent = ""
		} else {
			newParent = **in.ParentGroupID
		}
	}
	if newParent != "" && newParent != existing.ParentGroupID {
		if err := s.assertNoCycle(id, newParent); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("waypoints: begin: %w", err)
	}
	defer tx.Rollback()

	if newParent != "" {
		if err := assertGroupsExist(tx, []string{newParent}); err != nil {
			return false, err
		}
	}

	name := existing.Name
	if in.Name != nil {
		name = *in.Name
	}
	color := existing.Color
	if in.Color != nil {
		color = *in.Color
	}
	metadata := existing.Metadata
	if in.Metadata != nil {
		metadata = *in.Metadata
	}
	metadataJSON, err := marshalMetadata(metadata)
	if err != nil {
		return false, err
	}
	var parentArg any
	if newParent != "" {
		parentArg = newParent
	}

	res, err := tx.Exec(`UPDATE groups SET name = ?, parent_group_id = ?, color = ?, metadata = ? WHERE id = ?`,
		name, parentArg, color, metadataJSON, id)
	if err != nil {
		return false, fmt.Errorf("waypoints: update group: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("waypoints: commit: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanGroup(row scanner) (Group, error) {
	var (
		g         Group
		parent    sql.NullString
		color     sql.NullString
		metaJSON  string
		createdAt int64
	)
	if err := row.Scan(&g.ID, &g.Name, &parent, &color, &metaJSON, &createdAt); err != nil {
		return Group{}, err
	}
	g.ParentGroupID = parent.String
	g.Color = color.String
	g.Metadata = map[string]any{}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &g.Metadata); err != nil {
			return Group{}, fmt.Errorf("waypoints: decode group metadata: %w", err)
		}
	}
	g.CreatedAt = time.Unix(createdAt, 0).UTC()
	return g, nil
}
