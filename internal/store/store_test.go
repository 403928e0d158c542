// ABOUTME: Tests for the badger-backed local store.
// ABOUTME: Covers persistence across reopen, identity scoping, and change notification.
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

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "climber", log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenEmptyStore(t *testing.T) {
	s := newTestStore(t)

	assert.Empty(t, s.Sessions("p1"))
	assert.Empty(t, s.Exercises("p1"))
	assert.Empty(t, s.PlanIDs())
}

func TestMutateSessionsPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	logger := log.New(io.Discard)

	s, err := Open(dir, "climber", logger)
	require.NoError(t, err)

	rec := models.NewSessionRecord("p1", 2, "Tuesday", "Power Endurance")
	err = s.MutateSessions("p1", func(recs []models.SessionRecord) []models.SessionRecord {
		return append(recs, *rec)
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(dir, "climber", logger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got := reopened.Sessions("p1")
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, "Power Endurance", got[0].Focus)
}

func TestMutateExercisesPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	logger := log.New(io.Discard)

	s, err := Open(dir, "climber", logger)
	require.NoError(t, err)

	ec := models.NewExerciseCompletion("p1", "s1", "e1", "Fingerboard Hangs", "key-1", "felt strong", time.Now())
	err = s.MutateExercises("p1", func(recs []models.ExerciseCompletion) []models.ExerciseCompletion {
		return append(recs, *ec)
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(dir, "climber", logger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got := reopened.Exercises("p1")
	require.Len(t, got, 1)
	assert.Equal(t, "Fingerboard Hangs", got[0].Title)
	assert.Equal(t, models.SyncPending, got[0].SyncState)
}

func TestSwitchUserIsolatesNamespaces(t *testing.T) {
	s := newTestStore(t)

	err := s.MutateSessions("p1", func(recs []models.SessionRecord) []models.SessionRecord {
		return append(recs, *models.NewSessionRecord("p1", 1, "Monday", "Base Fitness"))
	})
	require.NoError(t, err)

	require.NoError(t, s.SwitchUser("partner"))
	assert.Empty(t, s.Sessions("p1"), "other identity must not see climber's data")

	require.NoError(t, s.SwitchUser("climber"))
	assert.Len(t, s.Sessions("p1"), 1)
}

func TestClearUserDeletesNamespace(t *testing.T) {
	dir := t.TempDir()
	logger := log.New(io.Discard)

	s, err := Open(dir, "climber", logger)
	require.NoError(t, err)

	err = s.MutateSessions("p1", func(recs []models.SessionRecord) []models.SessionRecord {
		return append(recs, *models.NewSessionRecord("p1", 1, "Monday", "Base Fitness"))
	})
	require.NoError(t, err)
	require.NoError(t, s.AppendSessionUpserts(models.NewPendingSessionUpsert(models.SessionRecord{ID: "x", PlanID: "p1"})))

	require.NoError(t, s.ClearUser("climber"))
	assert.Empty(t, s.Sessions("p1"))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, "climber", logger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	assert.Empty(t, reopened.Sessions("p1"))
	pending, err := reopened.TakeSessionUpserts()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRemovePlan(t *testing.T) {
	s := newTestStore(t)

	for _, plan := range []string{"p1", "p2"} {
		err := s.MutateSessions(plan, func(recs []models.SessionRecord) []models.SessionRecord {
			return append(recs, *models.NewSessionRecord(plan, 1, "Monday", "Base Fitness"))
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.RemovePlan("p1"))
	assert.Empty(t, s.Sessions("p1"))
	assert.Len(t, s.Sessions("p2"), 1)
	assert.Equal(t, []string{"p2"}, s.PlanIDs())
}

func TestLastSyncRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ts, err := s.LastSync()
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	want := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSync(want))

	got, err := s.LastSync()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestOnChangeNotifiesAfterCommit(t *testing.T) {
	s := newTestStore(t)

	var changed []string
	s.OnChange(func(planID string) {
		changed = append(changed, planID)
	})

	err := s.MutateSessions("p1", func(recs []models.SessionRecord) []models.SessionRecord {
		return recs
	})
	require.NoError(t, err)
	err = s.MutateExercises("p2", func(recs []models.ExerciseCompletion) []models.ExerciseCompletion {
		return recs
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, changed)
}
