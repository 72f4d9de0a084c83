package trainer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/taskmonitor"
	"github.com/aristath/chronotrader/internal/timeoutcache"
)

func TestMaintenance_RunOnce_GCsExpiredDiskEntries(t *testing.T) {
	disk, err := timeoutcache.OpenDiskTier(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })

	require.NoError(t, disk.Set("stale", []byte("v"), time.Now().Add(-time.Hour)))
	require.NoError(t, disk.Set("fresh", []byte("v"), time.Now().Add(time.Hour)))

	store, err := taskmonitor.OpenCheckpointStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewMaintenance(disk, store, zerolog.Nop())
	m.runOnce()

	_, ok, err := disk.Get("stale")
	require.NoError(t, err)
	assert.False(t, ok, "the stale entry must be GC'd")

	_, ok, err = disk.Get("fresh")
	require.NoError(t, err)
	assert.True(t, ok, "the fresh entry must survive GC")
}

func TestMaintenance_RunOnce_NeverDeletesCheckpoints(t *testing.T) {
	store, err := taskmonitor.OpenCheckpointStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stale := domain.TaskCheckpoint{
		TaskID:     "stale-task",
		Status:     domain.TaskFailed,
		TotalSteps: 10,
		UpdatedAt:  time.Now().Add(-96 * time.Hour),
	}
	require.NoError(t, store.Write(stale))

	m := NewMaintenance(nil, store, zerolog.Nop())
	m.runOnce()

	checkpoints, err := store.List()
	require.NoError(t, err)
	require.Len(t, checkpoints, 1, "the stale checkpoint sweep must only log, never delete")
	assert.Equal(t, "stale-task", checkpoints[0].TaskID)
}

func TestMaintenance_RunOnce_SkipsDiskGCWhenNil(t *testing.T) {
	store, err := taskmonitor.OpenCheckpointStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewMaintenance(nil, store, zerolog.Nop())
	assert.NotPanics(t, func() { m.runOnce() })
}
