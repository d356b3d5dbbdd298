package waypoints

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waypoints.sqlite")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenTwiceOnSamePathFailsWhileFirstIsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waypoints.sqlite")
	first, err := Open(path)
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(path)
	assert.Error(t, err)
}

func TestCreateAndGetWaypoint(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateWaypoint(CreateWaypointInput{
		Position: [3]float64{1, 2, 3},
		Type:     TypePointOfInterest,
		Name:     "overlook",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	wp, err := s.GetWaypoint(id)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, wp.Position)
	assert.Equal(t, TypePointOfInterest, wp.Type)
	assert.Equal(t, "overlook", wp.Name)
	assert.Nil(t, wp.Target)
}

func TestCreateWaypointRejectsUnknownGroup(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateWaypoint(CreateWaypointInput{
		Position: [3]float64{0, 0, 0},
		Type:     TypeSpawnPoint,
		GroupIDs: []string{"does-not-exist"},
	})
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeGroupNotFound, ae.Type)
}

func TestListWaypointsFiltersByTypeAndGroup(t *testing.T) {
	s := openTestStore(t)
	groupID, err := s.CreateGroup(CreateGroupInput{Name: "tour"})
	require.NoError(t, err)

	idA, err := s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{0, 0, 0}, Type: TypePointOfInterest, GroupIDs: []string{groupID}})
	require.NoError(t, err)
	_, err = s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{1, 1, 1}, Type: TypeSpawnPoint})
	require.NoError(t, err)

	byType, err := s.ListWaypoints(TypePointOfInterest, "")
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, idA, byType[0].ID)

	byGroup, err := s.ListWaypoints("", groupID)
	require.NoError(t, err)
	require.Len(t, byGroup, 1)
	assert.Equal(t, idA, byGroup[0].ID)
	assert.Equal(t, []string{groupID}, byGroup[0].GroupIDs)
}

func TestUpdateWaypointPartialFieldsAndTargetClear(t *testing.T) {
	s := openTestStore(t)
	target := [3]float64{9, 9, 9}
	id, err := s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{0, 0, 0}, Type: TypeCameraPosition, Target: &target})
	require.NoError(t, err)

	newName := "renamed"
	changed, err := s.UpdateWaypoint(id, UpdateWaypointInput{Name: &newName})
	require.NoError(t, err)
	assert.True(t, changed)

	wp, err := s.GetWaypoint(id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", wp.Name)
	require.NotNil(t, wp.Target)
	assert.Equal(t, target, *wp.Target)

	var clearedTarget *[3]float64
	changed, err = s.UpdateWaypoint(id, UpdateWaypointInput{Target: &clearedTarget})
	require.NoError(t, err)
	assert.True(t, changed)

	wp, err = s.GetWaypoint(id)
	require.NoError(t, err)
	assert.Nil(t, wp.Target)
}

func TestUpdateWaypointUnknownIDReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	name := "x"
	_, err := s.UpdateWaypoint("missing", UpdateWaypointInput{Name: &name})
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeNotFound, ae.Type)
}

func TestRemoveWaypointAndRemoveWaypoints(t *testing.T) {
	s := openTestStore(t)
	id1, _ := s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{0, 0, 0}, Type: TypeSpawnPoint})
	id2, _ := s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{0, 0, 0}, Type: TypeSpawnPoint})

	removed, err := s.RemoveWaypoint(id1)
	require.NoError(t, err)
	assert.True(t, removed)

	removedAgain, err := s.RemoveWaypoint(id1)
	require.NoError(t, err)
	assert.False(t, removedAgain)

	count, err := s.RemoveWaypoints([]string{id2, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClearWaypoints(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.CreateWaypoint(CreateWaypointInput{Position: [3]float64{0, 0, 0}, Type: TypeSpawnPoint})
		require.NoError(t, err)
	}
	n, err := s.ClearWaypoints()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.ListWaypoints("", "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
