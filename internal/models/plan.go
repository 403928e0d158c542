// ABOUTME: Training plan catalog models: plans, phases, and scheduled sessions.
// ABOUTME: The schedule is the template the engine walks to synthesize session records.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a multi-week training schedule containing phases, weeks, and
// scheduled sessions.
type Plan struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Weeks     int       `json:"weeks"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPlan creates a plan with a generated ID.
func NewPlan(name string, weeks int) *Plan {
	return &Plan{
		ID:        uuid.New().String(),
		Name:      name,
		Weeks:     weeks,
		CreatedAt: time.Now(),
	}
}

// ScheduledSession is one template occasion in a plan's weekly schedule,
// e.g. "week 3, Tuesday: Power Endurance". Session records are generated
// from these, one per (week, day, focus) combination.
type ScheduledSession struct {
	ID        string              `json:"id"`
	PlanID    string              `json:"plan_id"`
	Phase     string              `json:"phase,omitempty"`
	Week      int                 `json:"week"`
	Day       string              `json:"day"`
	Focus     string              `json:"focus"`
	Exercises []ScheduledExercise `json:"exercises,omitempty"`
}

// ScheduledExercise is one exercise within a scheduled session template.
type ScheduledExercise struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
	Position int    `json:"position"`
}

// PlanDefinition is the import format for a full plan: the plan header
// plus its complete schedule.
type PlanDefinition struct {
	Plan     Plan               `json:"plan"`
	Schedule []ScheduledSession `json:"schedule"`
}
