// ABOUTME: SessionRecord model for scheduled training session instances.
// ABOUTME: One record per (plan, week, day, focus); mutated by toggles and note edits.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionRecord represents one scheduled training session instance within
// one week of one plan. The ID is generated client-side when the record is
// synthesized locally, or adopted verbatim when the server provides it.
type SessionRecord struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"plan_id"`
	Week        int        `json:"week"`
	Day         string     `json:"day"`
	Focus       string     `json:"focus"`
	Completed   bool       `json:"completed"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewSessionRecord creates a locally-synthesized session record.
func NewSessionRecord(planID string, week int, day, focus string) *SessionRecord {
	return &SessionRecord{
		ID:        uuid.New().String(),
		PlanID:    planID,
		Week:      week,
		Day:       day,
		Focus:     focus,
		UpdatedAt: time.Now(),
	}
}

// SetCompleted flips the completion flag and timestamps the change.
func (s *SessionRecord) SetCompleted(completed bool, at time.Time) {
	s.Completed = completed
	if completed {
		s.CompletedAt = &at
	} else {
		s.CompletedAt = nil
	}
	s.UpdatedAt = at
}

// Same reports whether two records describe the same scheduled occasion.
// Used during reconciliation to spot duplicates that entered under
// different IDs.
func (s *SessionRecord) Same(other *SessionRecord) bool {
	return s.PlanID == other.PlanID &&
		s.Week == other.Week &&
		s.Day == other.Day &&
		s.Focus == other.Focus
}
