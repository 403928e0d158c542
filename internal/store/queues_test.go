// ABOUTME: Tests for the durable pending-mutation queues.
// ABOUTME: Covers restart survival, snapshot-and-clear, and restore ordering.
package store

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crux/internal/models"
)

func TestQueueSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	logger := log.New(io.Discard)

	s, err := Open(dir, "climber", logger)
	require.NoError(t, err)

	ec := models.NewExerciseCompletion("p1", "s1", "e1", "Core Circuit", "key-1", "", time.Now())
	require.NoError(t, s.AppendExerciseUpserts(models.NewPendingExerciseUpsert(*ec)))
	require.NoError(t, s.Close())

	// Simulated process restart before any flush.
	reopened, err := Open(dir, "climber", logger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	pending, err := reopened.TakeExerciseUpserts()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ec.ID, pending[0].Exercise.ID)
}

func TestTakeClearsLiveQueue(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendSessionUpserts(
		models.NewPendingSessionUpsert(models.SessionRecord{ID: "a", PlanID: "p1"}),
		models.NewPendingSessionUpsert(models.SessionRecord{ID: "b", PlanID: "p1"}),
	))

	first, err := s.TakeSessionUpserts()
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := s.TakeSessionUpserts()
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestRestoreMergesWithNewlyEnqueued(t *testing.T) {
	s := newTestStore(t)

	still := models.NewPendingExerciseDelete("p1", "old")
	still.Attempts = 2
	require.NoError(t, s.AppendExerciseDeletes(still))

	snapshot, err := s.TakeExerciseDeletes()
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	// A mutation lands while the snapshot is being flushed.
	require.NoError(t, s.AppendExerciseDeletes(models.NewPendingExerciseDelete("p1", "new")))

	require.NoError(t, s.RestoreExerciseDeletes(snapshot))

	merged, err := s.TakeExerciseDeletes()
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "old", merged[0].ExerciseID)
	assert.Equal(t, 2, merged[0].Attempts)
	assert.Equal(t, "new", merged[1].ExerciseID)
}

func TestQueuesAreIndependent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendSessionUpserts(models.NewPendingSessionUpsert(models.SessionRecord{ID: "a"})))
	ec := models.NewExerciseCompletion("p1", "s1", "", "Deadhangs", "k", "", time.Now())
	require.NoError(t, s.AppendExerciseUpserts(models.NewPendingExerciseUpsert(*ec)))
	require.NoError(t, s.AppendExerciseDeletes(models.NewPendingExerciseDelete("p1", "x")))

	sessions, exercises, deletes, err := s.PendingCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 1, exercises)
	assert.Equal(t, 1, deletes)

	_, err = s.TakeExerciseUpserts()
	require.NoError(t, err)

	sessions, exercises, deletes, err = s.PendingCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 0, exercises)
	assert.Equal(t, 1, deletes)
}
