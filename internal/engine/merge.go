// ABOUTME: Last-writer-wins merge of server session lists into local state.
// ABOUTME: Local edits survive unless the server copy is strictly newer.
package engine

import (
	"context"
	"fmt"

	"github.com/harperreed/crux/internal/models"
)

// ReconcilePlan fetches the server's session list for a plan and merges
// it into the local records, replacing the stored list atomically.
func (e *Engine) ReconcilePlan(ctx context.Context, planID string) error {
	server, err := e.remote.ListSessions(ctx, planID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	merged := mergeSessions(e.store.Sessions(planID), server)
	err = e.store.MutateSessions(planID, func([]models.SessionRecord) []models.SessionRecord {
		return merged
	})
	if err != nil {
		return fmt.Errorf("store merged sessions: %w", err)
	}
	e.emit(Event{Type: EventSessions, PlanID: planID})
	return nil
}

// mergeSessions combines local and server session lists. Per-record
// resolution is last-writer-wins on the update timestamp, with ties
// going to the local copy: an unsynced local edit must never be
// clobbered by a server echo of its own previous upload.
//
//   - server-only records are adopted
//   - local-only records are preserved (their upsert may still be queued)
//   - shared records take the server's mutable fields only when the
//     server copy is strictly newer
//
// Records match by ID first, then by scheduled slot: a plan synthesized
// offline and initialized server-side independently holds the same
// (week, day, focus) under two different IDs. The slot match adopts the
// server identity so the slot never appears twice.
func mergeSessions(local, server []models.SessionRecord) []models.SessionRecord {
	index := make(map[string]int, len(local))
	merged := make([]models.SessionRecord, len(local))
	copy(merged, local)
	for i, rec := range merged {
		index[rec.ID] = i
	}

	for _, sv := range server {
		i, seen := index[sv.ID]
		if !seen {
			j, dup := sessionBySlot(merged, &sv)
			if !dup {
				index[sv.ID] = len(merged)
				merged = append(merged, sv)
				continue
			}
			delete(index, merged[j].ID)
			merged[j].ID = sv.ID
			index[sv.ID] = j
			i = j
		}
		if sv.UpdatedAt.After(merged[i].UpdatedAt) {
			merged[i].Completed = sv.Completed
			merged[i].CompletedAt = sv.CompletedAt
			merged[i].Notes = sv.Notes
			merged[i].UpdatedAt = sv.UpdatedAt
		}
	}
	return merged
}

// sessionBySlot locates the record occupying the same scheduled slot.
func sessionBySlot(recs []models.SessionRecord, rec *models.SessionRecord) (int, bool) {
	for i := range recs {
		if recs[i].Same(rec) {
			return i, true
		}
	}
	return -1, false
}
