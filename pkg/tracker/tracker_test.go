package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	tr := New(10, time.Hour)
	tr.Add("1", "add_element", map[string]any{"name": "a"})
	snap := tr.Get("1", true)
	require.NotNil(t, snap)
	assert.Equal(t, "add_element", snap.Operation)
	assert.False(t, snap.Completed)
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	tr := New(2, time.Hour)
	tr.Add("1", "op", nil)
	tr.Add("2", "op", nil)
	tr.Add("3", "op", nil)

	assert.Nil(t, tr.Get("1", true))
	assert.NotNil(t, tr.Get("2", true))
	assert.NotNil(t, tr.Get("3", true))
	assert.Equal(t, 2, tr.Len())
}

func TestTTLExpiresOnAccess(t *testing.T) {
	tr := New(10, time.Minute)
	fake := time.Unix(1000, 0)
	tr.now = func() time.Time { return fake }

	tr.Add("1", "op", nil)
	fake = fake.Add(2 * time.Minute)

	assert.Nil(t, tr.Get("1", true))
	assert.Equal(t, 0, tr.Len())
}

func TestMarkCompletedUsesCompletedAtForTTL(t *testing.T) {
	tr := New(10, time.Minute)
	fake := time.Unix(1000, 0)
	tr.now = func() time.Time { return fake }

	tr.Add("1", "op", nil)
	fake = fake.Add(30 * time.Second)
	tr.MarkCompleted("1", map[string]any{"ok": true}, nil)

	fake = fake.Add(30 * time.Second) // 60s since submit, 30s since complete
	snap := tr.Get("1", true)
	require.NotNil(t, snap)
	assert.True(t, snap.Completed)
}

func TestPopIgnoresExpired(t *testing.T) {
	tr := New(10, time.Minute)
	fake := time.Unix(1000, 0)
	tr.now = func() time.Time { return fake }
	tr.Add("1", "op", nil)
	fake = fake.Add(2 * time.Minute)

	assert.Nil(t, tr.Pop("1"))
	assert.Equal(t, 0, tr.Len())
}

func TestSnapshotIndependentOfTrackerState(t *testing.T) {
	tr := New(10, time.Hour)
	tr.Add("1", "op", map[string]any{"a": 1})
	snap := tr.Get("1", true)
	snap.Payload["a"] = 999

	snap2 := tr.Get("1", true)
	assert.Equal(t, 1, snap2.Payload["a"])
}

func TestClear(t *testing.T) {
	tr := New(10, time.Hour)
	tr.Add("1", "op", nil)
	tr.Add("2", "op", nil)
	tr.Clear()
	assert.Equal(t, 0, tr.Len())
}
