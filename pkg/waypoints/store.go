// Package waypoints implements the WaypointStore (spec §4.15): an
// opaque, locally persisted ordered store of waypoints and their group
// memberships, backed by SQLite via modernc.org/sqlite.
package waypoints

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// WaypointType enumerates the kinds of spatial waypoint the surveyor
// service accepts, per the original tool surface's documented values.
type WaypointType string

const (
	TypeCameraPosition      WaypointType = "camera_position"
	TypeDirectionalLighting WaypointType = "directional_lighting"
	TypeObjectAnchor        WaypointType = "object_anchor"
	TypePointOfInterest     WaypointType = "point_of_interest"
	TypeSelectionMark       WaypointType = "selection_mark"
	TypeLightingPosition    WaypointType = "lighting_position"
	TypeAudioSource         WaypointType = "audio_source"
	TypeSpawnPoint          WaypointType = "spawn_point"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	parent_group_id TEXT REFERENCES groups(id),
	color TEXT,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS waypoints (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	name TEXT,
	pos_x REAL NOT NULL,
	pos_y REAL NOT NULL,
	pos_z REAL NOT NULL,
	has_target INTEGER NOT NULL DEFAULT 0,
	target_x REAL,
	target_y REAL,
	target_z REAL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS waypoint_groups (
	waypoint_id TEXT NOT NULL REFERENCES waypoints(id) ON DELETE CASCADE,
	group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	PRIMARY KEY (waypoint_id, group_id)
);
`

// Store is the opaque local persistence layer for waypoints and groups.
// SQLite's single-writer model is enforced by serializing every write
// through mu, mirroring the scene graph's single-writer discipline
// elsewhere in the control plane.
type Store struct {
	db   *sql.DB
	lock *flock.Flock // nil for ":memory:" stores
	mu   sync.Mutex
	now  func() time.Time
}

// Open creates (if needed) and opens the SQLite-backed store at path.
// Use ":memory:" for an ephemeral, process-local store (no file lock is
// taken in that case). A file-backed store takes an exclusive
// `*.lock` guard first, so a second process pointed at the same path
// fails fast instead of corrupting the single-writer SQLite file.
func Open(path string) (*Store, error) {
	var lock *flock.Flock
	if path != ":memory:" {
		lock = flock.New(path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("waypoints: acquiring lock for %q: %w", path, err)
		}
		if !locked {
			return nil, fmt.Errorf("waypoints: %q is already open by another process", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("waypoints: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: avoid concurrent-writer lock errors

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("waypoints: enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("waypoints: applying schema: %w", err)
	}
	return &Store{db: db, lock: lock, now: time.Now}, nil
}

// Close releases the underlying database handle and, for a file-backed
// store, its exclusive lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}
