// ABOUTME: Queue flush: drains the three pending queues against the remote service.
// ABOUTME: Snapshot, attempt, restore survivors; retry counting with a hard ceiling.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/harperreed/crux/internal/api"
	"github.com/harperreed/crux/internal/models"
)

// FlushReport summarizes one flush cycle.
type FlushReport struct {
	Delivered int // mutations the server acknowledged
	Remaining int // mutations restored for a later attempt
	Dropped   int // mutations abandoned (ceiling or permanent rejection)
	AuthError bool
}

// clean reports whether nothing is left owed to the server.
func (r FlushReport) clean() bool {
	return r.Remaining == 0 && !r.AuthError
}

// Flush drains the pending queues while the network cooperates. Each
// entry is attempted once per cycle; failures are classified:
//
//   - auth expiry aborts the whole cycle with no attempt counted, since
//     every remaining entry would fail identically
//   - permanent rejections (server says the payload itself is bad) are
//     dropped immediately and the local record is flagged failed
//   - anything else increments the attempt counter; entries that exceed
//     the ceiling are dropped with a warning
//
// Entries enqueued while the flush is running are untouched: the restore
// merges survivors ahead of them, preserving arrival order.
func (e *Engine) Flush(ctx context.Context) FlushReport {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	var report FlushReport
	if !e.net.Online() {
		sessions, exercises, deletes, err := e.store.PendingCounts()
		if err == nil {
			report.Remaining = sessions + exercises + deletes
		}
		return report
	}

	e.flushSessions(ctx, &report)
	if report.AuthError {
		return report
	}
	e.flushExercises(ctx, &report)
	if report.AuthError {
		return report
	}
	e.flushDeletes(ctx, &report)

	if report.Delivered > 0 {
		e.emit(Event{Type: EventSynced})
	}
	return report
}

func (e *Engine) flushSessions(ctx context.Context, report *FlushReport) {
	pending, err := e.store.TakeSessionUpserts()
	if err != nil {
		e.logger.Error("flush: take session queue", "err", err)
		return
	}

	var keep []models.PendingSessionUpsert
	for i, item := range pending {
		err := e.remote.UpsertSession(ctx, item.Session)
		switch disposition := e.classify(err, &item.Attempts); disposition {
		case deliverOK:
			report.Delivered++
		case deliverRetry:
			keep = append(keep, item)
			report.Remaining++
		case deliverDrop:
			report.Dropped++
			e.logger.Warn("dropping session upsert", "session", item.Session.ID, "attempts", item.Attempts, "err", err)
		case deliverAuth:
			report.AuthError = true
			keep = append(keep, pending[i:]...)
			report.Remaining += len(pending) - i
			e.restoreSessions(keep)
			return
		}
	}
	e.restoreSessions(keep)
}

func (e *Engine) flushExercises(ctx context.Context, report *FlushReport) {
	pending, err := e.store.TakeExerciseUpserts()
	if err != nil {
		e.logger.Error("flush: take exercise queue", "err", err)
		return
	}

	var keep []models.PendingExerciseUpsert
	for i, item := range pending {
		err := e.remote.UpsertExercise(ctx, item.Exercise)
		switch disposition := e.classify(err, &item.Attempts); disposition {
		case deliverOK:
			report.Delivered++
			e.flagExercise(item.Exercise, true, "")
		case deliverRetry:
			keep = append(keep, item)
			report.Remaining++
		case deliverDrop:
			report.Dropped++
			e.flagExercise(item.Exercise, false, err.Error())
			e.logger.Warn("dropping exercise upsert", "entry", item.Exercise.ID, "attempts", item.Attempts, "err", err)
		case deliverAuth:
			report.AuthError = true
			keep = append(keep, pending[i:]...)
			report.Remaining += len(pending) - i
			e.restoreExercises(keep)
			return
		}
	}
	e.restoreExercises(keep)
}

func (e *Engine) flushDeletes(ctx context.Context, report *FlushReport) {
	pending, err := e.store.TakeExerciseDeletes()
	if err != nil {
		e.logger.Error("flush: take delete queue", "err", err)
		return
	}

	var keep []models.PendingExerciseDelete
	for i, item := range pending {
		err := e.remote.DeleteExercise(ctx, item.PlanID, item.ExerciseID)
		switch disposition := e.classify(err, &item.Attempts); disposition {
		case deliverOK:
			report.Delivered++
		case deliverRetry:
			keep = append(keep, item)
			report.Remaining++
		case deliverDrop:
			report.Dropped++
			e.logger.Warn("dropping exercise delete", "entry", item.ExerciseID, "attempts", item.Attempts, "err", err)
		case deliverAuth:
			report.AuthError = true
			keep = append(keep, pending[i:]...)
			report.Remaining += len(pending) - i
			e.restoreDeletes(keep)
			return
		}
	}
	e.restoreDeletes(keep)
}

type deliverResult int

const (
	deliverOK deliverResult = iota
	deliverRetry
	deliverDrop
	deliverAuth
)

// classify maps one delivery outcome to its queue disposition, bumping
// the attempt counter for the outcomes that consume an attempt.
func (e *Engine) classify(err error, attempts *int) deliverResult {
	if err == nil {
		return deliverOK
	}
	if errors.Is(err, api.ErrAuthExpired) {
		return deliverAuth
	}
	if api.IsPermanent(err) {
		*attempts++
		return deliverDrop
	}
	*attempts++
	if *attempts > e.maxAttempts {
		return deliverDrop
	}
	return deliverRetry
}

// flagExercise updates a completion record's sync status after delivery
// resolves one way or the other. The record may have been deleted locally
// in the meantime, in which case this is a no-op.
func (e *Engine) flagExercise(rec models.ExerciseCompletion, synced bool, msg string) {
	now := time.Now()
	err := e.store.MutateExercises(rec.PlanID, func(recs []models.ExerciseCompletion) []models.ExerciseCompletion {
		for i := range recs {
			if recs[i].ID == rec.ID {
				if synced {
					recs[i].MarkSynced(now)
				} else {
					recs[i].MarkSyncFailed(now, msg)
				}
				break
			}
		}
		return recs
	})
	if err != nil {
		e.logger.Warn("flag exercise sync state", "entry", rec.ID, "err", err)
	}
}

func (e *Engine) restoreSessions(items []models.PendingSessionUpsert) {
	if err := e.store.RestoreSessionUpserts(items); err != nil {
		e.logger.Error("flush: restore session queue", "err", err)
	}
}

func (e *Engine) restoreExercises(items []models.PendingExerciseUpsert) {
	if err := e.store.RestoreExerciseUpserts(items); err != nil {
		e.logger.Error("flush: restore exercise queue", "err", err)
	}
}

func (e *Engine) restoreDeletes(items []models.PendingExerciseDelete) {
	if err := e.store.RestoreExerciseDeletes(items); err != nil {
		e.logger.Error("flush: restore delete queue", "err", err)
	}
}
