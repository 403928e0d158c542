// ABOUTME: Mutation operations: record, toggle, edit, and delete completions.
// ABOUTME: Every operation commits locally, enqueues, then nudges a best-effort flush.
package engine

import (
	"fmt"
	"time"

	"github.com/harperreed/crux/internal/models"
)

// RecordExerciseCompletion creates an exercise completion record. Any
// existing record in the plan whose idempotency key matches exactly is
// removed first, so recording over an in-flight duplicate never produces
// two rows. The new record is returned synchronously; delivery is queued.
func (e *Engine) RecordExerciseCompletion(planID, sessionID, exerciseID, title, key, notes string, completedOn time.Time) (models.ExerciseCompletion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := models.NewExerciseCompletion(planID, sessionID, exerciseID, title, key, notes, completedOn)

	err := e.store.MutateExercises(planID, func(recs []models.ExerciseCompletion) []models.ExerciseCompletion {
		kept := recs[:0]
		for _, r := range recs {
			if r.IdempotencyKey != key {
				kept = append(kept, r)
			}
		}
		return append(kept, *rec)
	})
	if err != nil {
		return models.ExerciseCompletion{}, fmt.Errorf("record completion: %w", err)
	}

	if err := e.store.AppendExerciseUpserts(models.NewPendingExerciseUpsert(*rec)); err != nil {
		return models.ExerciseCompletion{}, fmt.Errorf("queue completion: %w", err)
	}

	e.deriveSessionCompletion(planID, sessionID)
	e.emit(Event{Type: EventExercises, PlanID: planID})
	e.requestFlush()
	return *rec, nil
}

// IsCompleted reports whether some completion record for the session
// carries this exact title. It answers "has this exercise been done in
// this session at all", regardless of how many times it was logged.
func (e *Engine) IsCompleted(planID, sessionID, title string) bool {
	for _, r := range e.store.Exercises(planID) {
		if r.SessionID == sessionID && r.Title == title {
			return true
		}
	}
	return false
}

// CompletionsByTitle returns every completion of an exercise title within
// a session, so repeated logs remain individually retrievable.
func (e *Engine) CompletionsByTitle(planID, sessionID, title string) []models.ExerciseCompletion {
	var out []models.ExerciseCompletion
	for _, r := range e.store.Exercises(planID) {
		if r.SessionID == sessionID && r.Title == title {
			out = append(out, r)
		}
	}
	return out
}

// MarkIncomplete removes every completion record matching the title in
// that session. Records the server already acknowledged get a remote
// delete queued; records it never saw have their pending upserts
// withdrawn instead.
func (e *Engine) MarkIncomplete(planID, sessionID, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed []models.ExerciseCompletion
	err := e.store.MutateExercises(planID, func(recs []models.ExerciseCompletion) []models.ExerciseCompletion {
		kept := recs[:0]
		for _, r := range recs {
			if r.SessionID == sessionID && r.Title == title {
				removed = append(removed, r)
			} else {
				kept = append(kept, r)
			}
		}
		return kept
	})
	if err != nil {
		return fmt.Errorf("mark incomplete: %w", err)
	}
	if len(removed) == 0 {
		return nil
	}

	removedIDs := make(map[string]bool, len(removed))
	var deletes []models.PendingExerciseDelete
	for _, r := range removed {
		removedIDs[r.ID] = true
		if r.SyncState == models.SyncSynced {
			deletes = append(deletes, models.NewPendingExerciseDelete(planID, r.ID))
		}
	}
	if err := e.store.FilterExerciseUpserts(func(p models.PendingExerciseUpsert) bool {
		return !removedIDs[p.Exercise.ID]
	}); err != nil {
		return fmt.Errorf("withdraw pending upserts: %w", err)
	}
	if err := e.store.AppendExerciseDeletes(deletes...); err != nil {
		return fmt.Errorf("queue deletes: %w", err)
	}

	e.deriveSessionCompletion(planID, sessionID)
	e.emit(Event{Type: EventExercises, PlanID: planID})
	e.requestFlush()
	return nil
}

// MarkSessionCompleted flips a session's completion flag, updates its
// notes, persists, and queues a remote session upsert.
func (e *Engine) MarkSessionCompleted(planID, sessionID string, completed bool, notes string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.markSessionCompleted(planID, sessionID, completed, &notes)
}

// UpdateSessionNotes replaces a session's free-text notes.
func (e *Engine) UpdateSessionNotes(planID, sessionID, notes string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var updated *models.SessionRecord
	err := e.store.MutateSessions(planID, func(recs []models.SessionRecord) []models.SessionRecord {
		if i, ok := sessionByID(recs, sessionID); ok {
			recs[i].Notes = notes
			recs[i].UpdatedAt = time.Now()
			updated = &recs[i]
		}
		return recs
	})
	if err != nil {
		return fmt.Errorf("update session notes: %w", err)
	}
	if updated == nil {
		return errSessionNotFound(planID, sessionID)
	}

	if err := e.store.AppendSessionUpserts(models.NewPendingSessionUpsert(*updated)); err != nil {
		return fmt.Errorf("queue session upsert: %w", err)
	}
	e.emit(Event{Type: EventSessions, PlanID: planID})
	e.requestFlush()
	return nil
}

// UpdateExerciseEntry edits a completion's date and notes in place,
// preserving its identity and idempotency key. The owning session's
// completion timestamp is re-threaded to the edited date so calendar
// views follow, which means the session is re-enqueued too.
func (e *Engine) UpdateExerciseEntry(planID, entryID string, completedOn time.Time, notes string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var updated *models.ExerciseCompletion
	err := e.store.MutateExercises(planID, func(recs []models.ExerciseCompletion) []models.ExerciseCompletion {
		for i := range recs {
			if recs[i].ID == entryID {
				recs[i].CompletedOn = completedOn
				recs[i].Notes = notes
				recs[i].SyncState = models.SyncPending
				recs[i].SyncError = ""
				updated = &recs[i]
				break
			}
		}
		return recs
	})
	if err != nil {
		return fmt.Errorf("update exercise entry: %w", err)
	}
	if updated == nil {
		return fmt.Errorf("exercise entry %s not found in plan %s", entryID, planID)
	}

	if err := e.store.AppendExerciseUpserts(models.NewPendingExerciseUpsert(*updated)); err != nil {
		return fmt.Errorf("queue exercise upsert: %w", err)
	}

	// Re-thread the owning session's completion date and re-enqueue it,
	// not just the exercise.
	var session *models.SessionRecord
	serr := e.store.MutateSessions(planID, func(recs []models.SessionRecord) []models.SessionRecord {
		if i, ok := sessionByID(recs, updated.SessionID); ok {
			if recs[i].Completed {
				t := completedOn
				recs[i].CompletedAt = &t
				recs[i].UpdatedAt = time.Now()
				session = &recs[i]
			}
		}
		return recs
	})
	if serr != nil {
		e.logger.Warn("re-thread session date", "plan", planID, "session", updated.SessionID, "err", serr)
	}
	if serr == nil && session != nil {
		if err := e.store.AppendSessionUpserts(models.NewPendingSessionUpsert(*session)); err != nil {
			return fmt.Errorf("queue session upsert: %w", err)
		}
		e.emit(Event{Type: EventSessions, PlanID: planID})
	}

	e.emit(Event{Type: EventExercises, PlanID: planID})
	e.requestFlush()
	return nil
}

// DeleteExerciseEntry removes a single completion record by ID.
func (e *Engine) DeleteExerciseEntry(planID, entryID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed *models.ExerciseCompletion
	err := e.store.MutateExercises(planID, func(recs []models.ExerciseCompletion) []models.ExerciseCompletion {
		kept := recs[:0]
		for _, r := range recs {
			if r.ID == entryID {
				rr := r
				removed = &rr
			} else {
				kept = append(kept, r)
			}
		}
		return kept
	})
	if err != nil {
		return fmt.Errorf("delete exercise entry: %w", err)
	}
	if removed == nil {
		return nil
	}

	if removed.SyncState == models.SyncSynced {
		if err := e.store.AppendExerciseDeletes(models.NewPendingExerciseDelete(planID, removed.ID)); err != nil {
			return fmt.Errorf("queue delete: %w", err)
		}
	} else {
		if err := e.store.FilterExerciseUpserts(func(p models.PendingExerciseUpsert) bool {
			return p.Exercise.ID != removed.ID
		}); err != nil {
			return fmt.Errorf("withdraw pending upsert: %w", err)
		}
	}

	e.deriveSessionCompletion(planID, removed.SessionID)
	e.emit(Event{Type: EventExercises, PlanID: planID})
	e.requestFlush()
	return nil
}

// markSessionCompleted is the shared core of the completion toggle.
// Callers hold e.mu. A nil notes pointer keeps the existing notes,
// which is what the auto-completion derivation wants.
func (e *Engine) markSessionCompleted(planID, sessionID string, completed bool, notes *string) error {
	now := time.Now()

	var updated *models.SessionRecord
	err := e.store.MutateSessions(planID, func(recs []models.SessionRecord) []models.SessionRecord {
		if i, ok := sessionByID(recs, sessionID); ok {
			recs[i].SetCompleted(completed, now)
			if notes != nil {
				recs[i].Notes = *notes
			}
			updated = &recs[i]
		}
		return recs
	})
	if err != nil {
		return fmt.Errorf("mark session: %w", err)
	}
	if updated == nil {
		return errSessionNotFound(planID, sessionID)
	}

	if err := e.store.AppendSessionUpserts(models.NewPendingSessionUpsert(*updated)); err != nil {
		return fmt.Errorf("queue session upsert: %w", err)
	}
	e.emit(Event{Type: EventSessions, PlanID: planID})
	e.requestFlush()
	return nil
}

// deriveSessionCompletion recomputes whether every scheduled exercise in
// a session is complete and flips the session flag to match. A derived
// invariant, not a user action: it enqueues the session exactly once per
// flip and never re-enters the exercise paths, so no loop is possible.
// Callers hold e.mu.
func (e *Engine) deriveSessionCompletion(planID, sessionID string) {
	recs := e.store.Sessions(planID)
	i, ok := sessionByID(recs, sessionID)
	if !ok {
		return
	}
	session := recs[i]

	titles, err := e.schedule.ExerciseTitles(planID, session.Week, session.Day, session.Focus)
	if err != nil {
		e.logger.Warn("derive completion: schedule lookup failed", "plan", planID, "session", sessionID, "err", err)
		return
	}
	if len(titles) == 0 {
		return
	}

	done := make(map[string]bool)
	for _, r := range e.store.Exercises(planID) {
		if r.SessionID == sessionID {
			done[r.Title] = true
		}
	}

	allDone := true
	for _, title := range titles {
		if !done[title] {
			allDone = false
			break
		}
	}

	if allDone && !session.Completed {
		if err := e.markSessionCompleted(planID, sessionID, true, nil); err != nil {
			e.logger.Warn("derive completion", "plan", planID, "session", sessionID, "err", err)
		}
	}
	if !allDone && session.Completed {
		if err := e.markSessionCompleted(planID, sessionID, false, nil); err != nil {
			e.logger.Warn("derive completion", "plan", planID, "session", sessionID, "err", err)
		}
	}
}
