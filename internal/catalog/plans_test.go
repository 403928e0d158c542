// ABOUTME: Tests for plan catalog CRUD and schedule queries.
// ABOUTME: Uses a temp-dir SQLite database per test.
package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crux/internal/models"
)

func newTestCatalog(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func testPlanDefinition() *models.PlanDefinition {
	return &models.PlanDefinition{
		Plan: models.Plan{ID: "p1", Name: "12-Week Bouldering Cycle", Weeks: 12},
		Schedule: []models.ScheduledSession{
			{
				Week: 1, Day: "Tuesday", Focus: "Strength", Phase: "Base",
				Exercises: []models.ScheduledExercise{
					{Title: "Fingerboard Hangs", Detail: "6x10s half crimp"},
					{Title: "Core Circuit"},
				},
			},
			{
				Week: 1, Day: "Thursday", Focus: "Power Endurance", Phase: "Base",
				Exercises: []models.ScheduledExercise{
					{Title: "4x4 Boulders"},
				},
			},
		},
	}
}

func TestCreateAndGetPlan(t *testing.T) {
	d := newTestCatalog(t)

	p := models.NewPlan("12-Week Bouldering Cycle", 12)
	require.NoError(t, d.CreatePlan(p))

	got, err := d.GetPlan(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, 12, got.Weeks)
}

func TestGetPlanNotFound(t *testing.T) {
	d := newTestCatalog(t)

	_, err := d.GetPlan("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportPlanAndSchedule(t *testing.T) {
	d := newTestCatalog(t)

	require.NoError(t, d.ImportPlan(testPlanDefinition()))

	schedule, err := d.Schedule("p1")
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, "Strength", schedule[0].Focus)
	require.Len(t, schedule[0].Exercises, 2)
	assert.Equal(t, "Fingerboard Hangs", schedule[0].Exercises[0].Title)
	assert.Equal(t, "Core Circuit", schedule[0].Exercises[1].Title)
}

func TestImportPlanIsIdempotent(t *testing.T) {
	d := newTestCatalog(t)

	def := testPlanDefinition()
	require.NoError(t, d.ImportPlan(def))
	require.NoError(t, d.ImportPlan(def))

	plans, err := d.ListPlans()
	require.NoError(t, err)
	require.Len(t, plans, 1)

	schedule, err := d.Schedule("p1")
	require.NoError(t, err)
	assert.Len(t, schedule, 2, "re-import must not duplicate scheduled sessions")
}

func TestExerciseTitles(t *testing.T) {
	d := newTestCatalog(t)
	require.NoError(t, d.ImportPlan(testPlanDefinition()))

	titles, err := d.ExerciseTitles("p1", 1, "Tuesday", "Strength")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fingerboard Hangs", "Core Circuit"}, titles)

	titles, err = d.ExerciseTitles("p1", 9, "Tuesday", "Strength")
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestDeletePlanCascades(t *testing.T) {
	d := newTestCatalog(t)
	require.NoError(t, d.ImportPlan(testPlanDefinition()))

	require.NoError(t, d.DeletePlan("p1"))

	schedule, err := d.Schedule("p1")
	require.NoError(t, err)
	assert.Empty(t, schedule)

	err = d.DeletePlan("p1")
	assert.ErrorIs(t, err, ErrNotFound)
}
