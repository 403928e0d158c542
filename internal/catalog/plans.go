// ABOUTME: Plan and schedule CRUD operations for the catalog.
// ABOUTME: Import writes a full plan definition in one transaction.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/crux/internal/models"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("not found")

// CreatePlan stores a new plan header.
func (d *DB) CreatePlan(p *models.Plan) error {
	_, err := d.db.Exec(
		`INSERT INTO plans (id, name, weeks, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Weeks, p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// GetPlan retrieves a plan header by ID.
func (d *DB) GetPlan(id string) (*models.Plan, error) {
	row := d.db.QueryRow(`SELECT id, name, weeks, created_at FROM plans WHERE id = ?`, id)

	var p models.Plan
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &p.Weeks, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// ListPlans retrieves all plan headers, newest first.
func (d *DB) ListPlans() ([]*models.Plan, error) {
	rows, err := d.db.Query(`SELECT id, name, weeks, created_at FROM plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		var p models.Plan
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Weeks, &createdAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

// DeletePlan removes a plan and its schedule (cascade delete).
func (d *DB) DeletePlan(id string) error {
	result, err := d.db.Exec(`DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return nil
}

// ImportPlan writes a full plan definition (header plus schedule) in one
// transaction. Safe to re-run: an existing plan with the same ID is
// replaced wholesale.
func (d *DB) ImportPlan(def *models.PlanDefinition) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("import plan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM plans WHERE id = ?`, def.Plan.ID); err != nil {
		return fmt.Errorf("import plan: %w", err)
	}

	createdAt := def.Plan.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.Exec(
		`INSERT INTO plans (id, name, weeks, created_at) VALUES (?, ?, ?, ?)`,
		def.Plan.ID, def.Plan.Name, def.Plan.Weeks, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("import plan: %w", err)
	}

	for _, ss := range def.Schedule {
		sid := ss.ID
		if sid == "" {
			sid = uuid.New().String()
		}
		_, err = tx.Exec(
			`INSERT INTO scheduled_sessions (id, plan_id, phase, week, day, focus) VALUES (?, ?, ?, ?, ?, ?)`,
			sid, def.Plan.ID, ss.Phase, ss.Week, ss.Day, ss.Focus,
		)
		if err != nil {
			return fmt.Errorf("import scheduled session: %w", err)
		}
		for i, ex := range ss.Exercises {
			eid := ex.ID
			if eid == "" {
				eid = uuid.New().String()
			}
			_, err = tx.Exec(
				`INSERT INTO scheduled_exercises (id, session_id, title, detail, position) VALUES (?, ?, ?, ?, ?)`,
				eid, sid, ex.Title, ex.Detail, i,
			)
			if err != nil {
				return fmt.Errorf("import scheduled exercise: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Schedule retrieves a plan's full schedule with exercises populated,
// ordered by week then day.
func (d *DB) Schedule(planID string) ([]*models.ScheduledSession, error) {
	rows, err := d.db.Query(
		`SELECT id, plan_id, phase, week, day, focus
		 FROM scheduled_sessions WHERE plan_id = ? ORDER BY week, day, focus`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	defer rows.Close()

	var sessions []*models.ScheduledSession
	for rows.Next() {
		var ss models.ScheduledSession
		var phase sql.NullString
		if err := rows.Scan(&ss.ID, &ss.PlanID, &phase, &ss.Week, &ss.Day, &ss.Focus); err != nil {
			return nil, fmt.Errorf("scan scheduled session: %w", err)
		}
		ss.Phase = phase.String
		sessions = append(sessions, &ss)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ss := range sessions {
		exercises, err := d.sessionExercises(ss.ID)
		if err != nil {
			return nil, err
		}
		ss.Exercises = exercises
	}
	return sessions, nil
}

// ExerciseTitles returns the scheduled exercise titles for the session
// template matching (week, day, focus) within a plan. The engine uses
// this to derive session auto-completion.
func (d *DB) ExerciseTitles(planID string, week int, day, focus string) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT e.title
		 FROM scheduled_exercises e
		 JOIN scheduled_sessions s ON s.id = e.session_id
		 WHERE s.plan_id = ? AND s.week = ? AND s.day = ? AND s.focus = ?
		 ORDER BY e.position`,
		planID, week, day, focus,
	)
	if err != nil {
		return nil, fmt.Errorf("exercise titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan exercise title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// sessionExercises loads the exercises of one scheduled session.
func (d *DB) sessionExercises(sessionID string) ([]models.ScheduledExercise, error) {
	rows, err := d.db.Query(
		`SELECT id, title, detail, position FROM scheduled_exercises
		 WHERE session_id = ? ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load scheduled exercises: %w", err)
	}
	defer rows.Close()

	var exercises []models.ScheduledExercise
	for rows.Next() {
		var ex models.ScheduledExercise
		var detail sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Title, &detail, &ex.Position); err != nil {
			return nil, fmt.Errorf("scan scheduled exercise: %w", err)
		}
		ex.Detail = detail.String
		exercises = append(exercises, ex)
	}
	return exercises, rows.Err()
}
