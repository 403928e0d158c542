// ABOUTME: SQLite schema for the plan catalog.
// ABOUTME: Defines tables for plans, scheduled sessions, and scheduled exercises.
package catalog

// initSchema creates or updates the catalog schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		weeks INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scheduled_sessions (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		phase TEXT,
		week INTEGER NOT NULL,
		day TEXT NOT NULL,
		focus TEXT NOT NULL,
		FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS scheduled_exercises (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		title TEXT NOT NULL,
		detail TEXT,
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES scheduled_sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_plan ON scheduled_sessions(plan_id, week);
	CREATE INDEX IF NOT EXISTS idx_exercises_session ON scheduled_exercises(session_id, position);
	`

	_, err := d.db.Exec(schema)
	return err
}
