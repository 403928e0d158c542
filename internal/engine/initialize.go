// ABOUTME: Plan initialization: obtain session records from the server or synthesize them.
// ABOUTME: Idempotent; repeated calls never duplicate sessions.
package engine

import (
	"context"
	"fmt"

	"github.com/harperreed/crux/internal/models"
)

// InitOutcome labels how a plan's session records came to exist locally.
type InitOutcome string

const (
	// InitReady means local records already existed; at most the set was
	// topped up with server-only IDs.
	InitReady InitOutcome = "ready"
	// InitServerProvided means the server's first list was non-empty and
	// was adopted verbatim.
	InitServerProvided InitOutcome = "server-provided"
	// InitServerInitialized means the server list was empty, an initialize
	// request was issued, and the re-fetch was adopted.
	InitServerInitialized InitOutcome = "server-initialized"
	// InitLocallySynthesized means the records were generated from the
	// local plan schedule and queued for later upload.
	InitLocallySynthesized InitOutcome = "locally-synthesized"
)

// EnsureSessions makes sure a plan has session records locally, fetching
// from the server when possible and synthesizing from the plan schedule
// when not. Safe to call on every plan view.
func (e *Engine) EnsureSessions(ctx context.Context, planID string) (InitOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	local := e.store.Sessions(planID)
	if len(local) > 0 {
		// Top up with any server-only sessions instead of regenerating,
		// so repeated visits never accumulate duplicates.
		if e.net.Online() {
			if server, err := e.remote.ListSessions(ctx, planID); err == nil {
				if err := e.adoptMissing(planID, local, server); err != nil {
					return InitReady, err
				}
			}
		}
		return InitReady, nil
	}

	if e.net.Online() {
		server, err := e.remote.ListSessions(ctx, planID)
		if err != nil {
			e.logger.Warn("initialize: server list unavailable, synthesizing", "plan", planID, "err", err)
			return e.synthesize(planID)
		}
		if len(server) > 0 {
			return InitServerProvided, e.adopt(planID, server)
		}

		// Server knows the plan but has no sessions yet. Ask it to derive
		// them from the schedule, then re-fetch.
		if err := e.remote.InitializeSessions(ctx, planID); err != nil {
			e.logger.Warn("initialize: server initialize failed, synthesizing", "plan", planID, "err", err)
			return e.synthesize(planID)
		}
		server, err = e.remote.ListSessions(ctx, planID)
		if err == nil && len(server) > 0 {
			return InitServerInitialized, e.adopt(planID, server)
		}
	}

	return e.synthesize(planID)
}

// adopt stores a server-provided session list verbatim.
func (e *Engine) adopt(planID string, server []models.SessionRecord) error {
	err := e.store.MutateSessions(planID, func([]models.SessionRecord) []models.SessionRecord {
		return server
	})
	if err != nil {
		return fmt.Errorf("adopt server sessions: %w", err)
	}
	e.emit(Event{Type: EventSessions, PlanID: planID})
	return nil
}

// adoptMissing merges the server list into the existing local records.
// Server-only sessions are inserted; a server record occupying an
// already-known scheduled slot lends the local record its ID instead of
// duplicating the slot. Local records are never regenerated.
func (e *Engine) adoptMissing(planID string, local, server []models.SessionRecord) error {
	merged := mergeSessions(local, server)
	err := e.store.MutateSessions(planID, func([]models.SessionRecord) []models.SessionRecord {
		return merged
	})
	if err != nil {
		return fmt.Errorf("merge server sessions: %w", err)
	}
	e.emit(Event{Type: EventSessions, PlanID: planID})
	return nil
}

// synthesize walks the plan's schedule and generates one session record
// per (week, day, focus), queuing every record for upload once the
// server becomes reachable.
func (e *Engine) synthesize(planID string) (InitOutcome, error) {
	scheduled, err := e.schedule.Schedule(planID)
	if err != nil {
		return InitLocallySynthesized, fmt.Errorf("load plan schedule: %w", err)
	}
	if len(scheduled) == 0 {
		return InitLocallySynthesized, fmt.Errorf("plan %s has no schedule to synthesize from", planID)
	}

	records := make([]models.SessionRecord, 0, len(scheduled))
	for _, sess := range scheduled {
		records = append(records, *models.NewSessionRecord(planID, sess.Week, sess.Day, sess.Focus))
	}

	err = e.store.MutateSessions(planID, func([]models.SessionRecord) []models.SessionRecord {
		return records
	})
	if err != nil {
		return InitLocallySynthesized, fmt.Errorf("store synthesized sessions: %w", err)
	}

	pending := make([]models.PendingSessionUpsert, 0, len(records))
	for _, rec := range records {
		pending = append(pending, models.NewPendingSessionUpsert(rec))
	}
	if err := e.store.AppendSessionUpserts(pending...); err != nil {
		return InitLocallySynthesized, fmt.Errorf("queue synthesized sessions: %w", err)
	}

	e.logger.Info("synthesized sessions locally", "plan", planID, "count", len(records))
	e.emit(Event{Type: EventSessions, PlanID: planID})
	e.requestFlush()
	return InitLocallySynthesized, nil
}
