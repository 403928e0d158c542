// ABOUTME: Pending mutation records for the durable sync queues.
// ABOUTME: Each entry carries its replay payload, submission time, and attempt count.
package models

import "time"

// PendingSessionUpsert is a session mutation awaiting server confirmation.
type PendingSessionUpsert struct {
	Session  SessionRecord `json:"session"`
	QueuedAt time.Time     `json:"queued_at"`
	Attempts int           `json:"attempts"`
}

// NewPendingSessionUpsert wraps a session for queueing.
func NewPendingSessionUpsert(s SessionRecord) PendingSessionUpsert {
	return PendingSessionUpsert{Session: s, QueuedAt: time.Now()}
}

// PendingExerciseUpsert is an exercise mutation awaiting server confirmation.
type PendingExerciseUpsert struct {
	Exercise ExerciseCompletion `json:"exercise"`
	QueuedAt time.Time          `json:"queued_at"`
	Attempts int                `json:"attempts"`
}

// NewPendingExerciseUpsert wraps an exercise completion for queueing.
func NewPendingExerciseUpsert(e ExerciseCompletion) PendingExerciseUpsert {
	return PendingExerciseUpsert{Exercise: e, QueuedAt: time.Now()}
}

// PendingExerciseDelete is a remote deletion awaiting confirmation.
// A 404 from the server counts as confirmation.
type PendingExerciseDelete struct {
	PlanID     string    `json:"plan_id"`
	ExerciseID string    `json:"exercise_id"`
	QueuedAt   time.Time `json:"queued_at"`
	Attempts   int       `json:"attempts"`
}

// NewPendingExerciseDelete wraps a deletion for queueing.
func NewPendingExerciseDelete(planID, exerciseID string) PendingExerciseDelete {
	return PendingExerciseDelete{PlanID: planID, ExerciseID: exerciseID, QueuedAt: time.Now()}
}
