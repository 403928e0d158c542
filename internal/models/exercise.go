// ABOUTME: ExerciseCompletion model for logged exercise instances.
// ABOUTME: Carries structured title/key/notes fields and per-record sync status.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncState describes where a record stands with the remote service.
type SyncState string

const (
	// SyncPending means the record has not been confirmed by the server.
	SyncPending SyncState = "unsynced"
	// SyncSynced means the server acknowledged the record.
	SyncSynced SyncState = "synced"
	// SyncFailed means delivery failed permanently; SyncError has details.
	SyncFailed SyncState = "failed"
)

// ExerciseCompletion represents one instance of a specific exercise being
// completed within a specific session. The idempotency key collapses
// duplicate submissions of the same logical completion; it is not the
// primary identity.
type ExerciseCompletion struct {
	ID             string    `json:"id"`
	PlanID         string    `json:"plan_id"`
	SessionID      string    `json:"session_id"`
	ExerciseID     string    `json:"exercise_id,omitempty"`
	Title          string    `json:"title"`
	IdempotencyKey string    `json:"idempotency_key"`
	Notes          string    `json:"notes,omitempty"`
	CompletedOn    time.Time `json:"completed_on"`
	CreatedAt      time.Time `json:"created_at"`

	SyncState  SyncState  `json:"sync_state"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	SyncError  string     `json:"sync_error,omitempty"`
}

// NewExerciseCompletion creates a completion record with a fresh ID.
// CompletedOn is the date the user performed the exercise, which is
// distinct from CreatedAt.
func NewExerciseCompletion(planID, sessionID, exerciseID, title, key, notes string, completedOn time.Time) *ExerciseCompletion {
	return &ExerciseCompletion{
		ID:             uuid.New().String(),
		PlanID:         planID,
		SessionID:      sessionID,
		ExerciseID:     exerciseID,
		Title:          title,
		IdempotencyKey: key,
		Notes:          notes,
		CompletedOn:    completedOn,
		CreatedAt:      time.Now(),
		SyncState:      SyncPending,
	}
}

// MarkSynced records a successful delivery. Only the sync status changes;
// content fields are never touched here so a late acknowledgement cannot
// clobber a newer local edit.
func (e *ExerciseCompletion) MarkSynced(at time.Time) {
	e.SyncState = SyncSynced
	e.LastSyncAt = &at
	e.SyncError = ""
}

// MarkSyncFailed records a permanent delivery failure for diagnostics.
func (e *ExerciseCompletion) MarkSyncFailed(at time.Time, msg string) {
	e.SyncState = SyncFailed
	e.LastSyncAt = &at
	e.SyncError = msg
}
