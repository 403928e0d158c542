// ABOUTME: Engine mutation tests: record, toggle, un-mark, edit, delete.
// ABOUTME: Fakes stand in for the remote service, connectivity, and plan schedule.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crux/internal/models"
	"github.com/harperreed/crux/internal/store"
)

// fakeRemote records calls and fails on demand per method.
type fakeRemote struct {
	mu sync.Mutex

	listResult []models.SessionRecord
	listSeq    [][]models.SessionRecord // consumed first when non-empty
	listErr    error

	initErr error

	sessionErr  error
	exerciseErr error
	deleteErr   error

	initCalls     int
	listCalls     int
	sessionCalls  []models.SessionRecord
	exerciseCalls []models.ExerciseCompletion
	deleteCalls   []string
}

func (f *fakeRemote) InitializeSessions(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeRemote) ListSessions(context.Context, string) ([]models.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if len(f.listSeq) > 0 {
		next := f.listSeq[0]
		f.listSeq = f.listSeq[1:]
		return next, f.listErr
	}
	return f.listResult, f.listErr
}

func (f *fakeRemote) UpsertSession(_ context.Context, s models.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls = append(f.sessionCalls, s)
	return f.sessionErr
}

func (f *fakeRemote) UpsertExercise(_ context.Context, e models.ExerciseCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exerciseCalls = append(f.exerciseCalls, e)
	return f.exerciseErr
}

func (f *fakeRemote) DeleteExercise(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	return f.deleteErr
}

// fakeNet is a settable connectivity view.
type fakeNet struct {
	mu        sync.Mutex
	online    bool
	onConnect []func()
}

func (f *fakeNet) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeNet) OnConnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onConnect = append(f.onConnect, fn)
}

func (f *fakeNet) setOnline(online bool) {
	f.mu.Lock()
	was := f.online
	f.online = online
	fns := f.onConnect
	f.mu.Unlock()
	if online && !was {
		for _, fn := range fns {
			fn()
		}
	}
}

// fakeSchedule serves a fixed schedule and exercise titles per session slot.
type fakeSchedule struct {
	sessions []*models.ScheduledSession
	titles   map[string][]string
}

func slotKey(week int, day, focus string) string {
	return fmt.Sprintf("%d/%s/%s", week, day, focus)
}

func (f *fakeSchedule) Schedule(string) ([]*models.ScheduledSession, error) {
	return f.sessions, nil
}

func (f *fakeSchedule) ExerciseTitles(_ string, week int, day, focus string) ([]string, error) {
	return f.titles[slotKey(week, day, focus)], nil
}

type harness struct {
	engine *Engine
	store  *store.Store
	remote *fakeRemote
	net    *fakeNet
	sched  *fakeSchedule
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.Open(t.TempDir(), "climber", log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	remote := &fakeRemote{}
	net := &fakeNet{online: true}
	sched := &fakeSchedule{titles: map[string][]string{}}
	eng := New(st, sched, remote, net, Options{Logger: log.New(io.Discard)})
	return &harness{engine: eng, store: st, remote: remote, net: net, sched: sched}
}

// seedSession puts one session record in the store directly.
func (h *harness) seedSession(t *testing.T, planID string, week int, day, focus string) models.SessionRecord {
	t.Helper()
	rec := *models.NewSessionRecord(planID, week, day, focus)
	err := h.store.MutateSessions(planID, func(recs []models.SessionRecord) []models.SessionRecord {
		return append(recs, rec)
	})
	require.NoError(t, err)
	return rec
}

func TestRecordCompletionIsIdempotentPerKey(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")

	_, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Fingerboard Hangs", "p1_s1_fingerboard-hangs_42", "", time.Now())
	require.NoError(t, err)
	_, err = h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Fingerboard Hangs", "p1_s1_fingerboard-hangs_42", "felt strong", time.Now())
	require.NoError(t, err)

	recs := h.store.Exercises("p1")
	require.Len(t, recs, 1)
	assert.Equal(t, "felt strong", recs[0].Notes)
}

func TestRecordCompletionAllowsRepeatsUnderDistinctKeys(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")

	_, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "4x4 Boulders", "key-a", "", time.Now())
	require.NoError(t, err)
	_, err = h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "4x4 Boulders", "key-b", "", time.Now())
	require.NoError(t, err)

	assert.Len(t, h.store.Exercises("p1"), 2)
	assert.True(t, h.engine.IsCompleted("p1", sess.ID, "4x4 Boulders"))
	assert.Len(t, h.engine.CompletionsByTitle("p1", sess.ID, "4x4 Boulders"), 2)
}

func TestIsCompletedMatchesExactTitleOnly(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")

	_, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Core Circuit", "k1", "", time.Now())
	require.NoError(t, err)

	assert.True(t, h.engine.IsCompleted("p1", sess.ID, "Core Circuit"))
	assert.False(t, h.engine.IsCompleted("p1", sess.ID, "core circuit"))
	assert.False(t, h.engine.IsCompleted("p1", "other-session", "Core Circuit"))
}

func TestMarkIncompleteRemovesEveryMatch(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")

	_, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Campus Ladders", "k1", "", time.Now())
	require.NoError(t, err)
	_, err = h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Campus Ladders", "k2", "", time.Now())
	require.NoError(t, err)
	_, err = h.engine.RecordExerciseCompletion("p1", sess.ID, "ex2", "Core Circuit", "k3", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, h.engine.MarkIncomplete("p1", sess.ID, "Campus Ladders"))

	assert.False(t, h.engine.IsCompleted("p1", sess.ID, "Campus Ladders"))
	assert.True(t, h.engine.IsCompleted("p1", sess.ID, "Core Circuit"))
	assert.Len(t, h.store.Exercises("p1"), 1)
}

func TestMarkIncompleteWithdrawsUnsyncedUpserts(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")

	_, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Campus Ladders", "k1", "", time.Now())
	require.NoError(t, err)

	// Never flushed, so the record is unsynced: un-marking must withdraw
	// the queued upsert rather than queue a remote delete.
	require.NoError(t, h.engine.MarkIncomplete("p1", sess.ID, "Campus Ladders"))

	_, exercises, deletes, err := h.store.PendingCounts()
	require.NoError(t, err)
	assert.Zero(t, exercises)
	assert.Zero(t, deletes)
}

func TestMarkIncompleteQueuesDeletesForSyncedRecords(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")

	rec, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Campus Ladders", "k1", "", time.Now())
	require.NoError(t, err)

	h.engine.Flush(context.Background())
	recs := h.store.Exercises("p1")
	require.Len(t, recs, 1)
	require.Equal(t, models.SyncSynced, recs[0].SyncState)

	require.NoError(t, h.engine.MarkIncomplete("p1", sess.ID, "Campus Ladders"))

	_, _, deletes, err := h.store.PendingCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, deletes)

	h.engine.Flush(context.Background())
	assert.Equal(t, []string{rec.ID}, h.remote.deleteCalls)
}

func TestMarkSessionCompleted(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 2, "Thursday", "Power Endurance")

	require.NoError(t, h.engine.MarkSessionCompleted("p1", sess.ID, true, "solid session"))

	recs := h.store.Sessions("p1")
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Completed)
	assert.NotNil(t, recs[0].CompletedAt)
	assert.Equal(t, "solid session", recs[0].Notes)

	sessions, _, _, err := h.store.PendingCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)
}

func TestUpdateSessionNotes(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 2, "Thursday", "Power Endurance")

	require.NoError(t, h.engine.UpdateSessionNotes("p1", sess.ID, "skin wrecked, cut it short"))

	recs := h.store.Sessions("p1")
	assert.Equal(t, "skin wrecked, cut it short", recs[0].Notes)
	assert.False(t, recs[0].Completed)

	err := h.engine.UpdateSessionNotes("p1", "nope", "x")
	assert.Error(t, err)
}

func TestUpdateExerciseEntryRethreadsSessionDate(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")
	require.NoError(t, h.engine.MarkSessionCompleted("p1", sess.ID, true, ""))

	rec, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Fingerboard Hangs", "k1", "", time.Now())
	require.NoError(t, err)

	edited := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.engine.UpdateExerciseEntry("p1", rec.ID, edited, "actually did this Wednesday"))

	exercises := h.store.Exercises("p1")
	require.Len(t, exercises, 1)
	assert.Equal(t, edited, exercises[0].CompletedOn)
	assert.Equal(t, "actually did this Wednesday", exercises[0].Notes)
	assert.Equal(t, rec.IdempotencyKey, exercises[0].IdempotencyKey)

	sessions := h.store.Sessions("p1")
	require.NotNil(t, sessions[0].CompletedAt)
	assert.Equal(t, edited, *sessions[0].CompletedAt)

	// Both the exercise and its owning session must be re-queued.
	sessQ, exQ, _, err := h.store.PendingCounts()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sessQ, 2)
	assert.GreaterOrEqual(t, exQ, 2)
}

func TestDeleteExerciseEntry(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")

	rec, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Fingerboard Hangs", "k1", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, h.engine.DeleteExerciseEntry("p1", rec.ID))
	assert.Empty(t, h.store.Exercises("p1"))

	// Unsynced: the queued upsert is withdrawn, no delete queued.
	_, exQ, delQ, err := h.store.PendingCounts()
	require.NoError(t, err)
	assert.Zero(t, exQ)
	assert.Zero(t, delQ)

	// Deleting a missing entry is a no-op, not an error.
	require.NoError(t, h.engine.DeleteExerciseEntry("p1", "ghost"))
}

func TestAutoCompletionDerivation(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")
	h.sched.titles[slotKey(1, "Tuesday", "Strength")] = []string{"Fingerboard Hangs", "Core Circuit"}

	_, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Fingerboard Hangs", "k1", "", time.Now())
	require.NoError(t, err)
	assert.False(t, h.store.Sessions("p1")[0].Completed, "one of two exercises must not complete the session")

	_, err = h.engine.RecordExerciseCompletion("p1", sess.ID, "ex2", "Core Circuit", "k2", "", time.Now())
	require.NoError(t, err)
	assert.True(t, h.store.Sessions("p1")[0].Completed, "all exercises done must complete the session")

	require.NoError(t, h.engine.MarkIncomplete("p1", sess.ID, "Core Circuit"))
	assert.False(t, h.store.Sessions("p1")[0].Completed, "un-marking must reopen the session")
}

func TestSubscribeReceivesMutationEvents(t *testing.T) {
	h := newHarness(t)
	sess := h.seedSession(t, "p1", 1, "Tuesday", "Strength")
	ch := h.engine.Subscribe()

	_, err := h.engine.RecordExerciseCompletion("p1", sess.ID, "ex1", "Fingerboard Hangs", "k1", "", time.Now())
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, EventExercises, ev.Type)
		assert.Equal(t, "p1", ev.PlanID)
	default:
		t.Fatal("no event delivered")
	}
}
