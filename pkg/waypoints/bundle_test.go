package waypoints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportIncludesGroupsOnlyWhenRequested(t *testing.T) {
	s := openTestStore(t)
	groupID, err := s.CreateGroup(CreateGroupInput{Name: "tour"})
	require.NoError(t, err)
	_, err = s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{1, 2, 3}, Type: TypeSpawnPoint, GroupIDs: []string{groupID}})
	require.NoError(t, err)

	withoutGroups, err := s.Export(false)
	require.NoError(t, err)
	assert.Len(t, withoutGroups.Waypoints, 1)
	assert.Empty(t, withoutGroups.Groups)

	withGroups, err := s.Export(true)
	require.NoError(t, err)
	assert.Len(t, withGroups.Groups, 1)
}

func TestImportRoundTripsIntoFreshStore(t *testing.T) {
	src := openTestStore(t)
	groupID, err := src.CreateGroup(CreateGroupInput{Name: "tour"})
	require.NoError(t, err)
	_, err = src.CreateWaypoint(CreateWaypointInput{Position: [3]float64{1, 2, 3}, Type: TypeSpawnPoint, Name: "start", GroupIDs: []string{groupID}})
	require.NoError(t, err)

	bundle, err := src.Export(true)
	require.NoError(t, err)

	dst := openTestStore(t)
	stats, err := dst.Import(bundle, MergeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GroupsImported)
	assert.Equal(t, 1, stats.WaypointsImported)

	imported, err := dst.ListWaypoints("", "")
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "start", imported[0].Name)
	assert.Equal(t, []string{groupID}, imported[0].GroupIDs)
}

func TestImportSkipExistingLeavesOriginalUntouched(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{0, 0, 0}, Type: TypeSpawnPoint, Name: "original"})
	require.NoError(t, err)

	bundle := Bundle{Waypoints: []Waypoint{{ID: id, Position: [3]float64{9, 9, 9}, Type: TypeSpawnPoint, Name: "incoming", Metadata: map[string]any{}}}}
	stats, err := s.Import(bundle, MergeSkipExisting)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WaypointsSkipped)

	wp, err := s.GetWaypoint(id)
	require.NoError(t, err)
	assert.Equal(t, "original", wp.Name)
}

func TestImportOverwriteReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{0, 0, 0}, Type: TypeSpawnPoint, Name: "original"})
	require.NoError(t, err)

	bundle := Bundle{Waypoints: []Waypoint{{ID: id, Position: [3]float64{9, 9, 9}, Type: TypeSpawnPoint, Name: "incoming", Metadata: map[string]any{}}}}
	stats, err := s.Import(bundle, MergeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WaypointsImported)

	wp, err := s.GetWaypoint(id)
	require.NoError(t, err)
	assert.Equal(t, "incoming", wp.Name)
	assert.Equal(t, [3]float64{9, 9, 9}, wp.Position)
}
