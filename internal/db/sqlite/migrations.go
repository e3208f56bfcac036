package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations is the list of all database migrations in order.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "core_tables",
		SQL: `
			-- Daily wearable metrics, one row per user per day
			CREATE TABLE IF NOT EXISTS daily_metrics (
				user_id TEXT NOT NULL,
				date TEXT NOT NULL,
				steps INTEGER NOT NULL DEFAULT 0,
				distance_km REAL NOT NULL DEFAULT 0,
				active_minutes INTEGER NOT NULL DEFAULT 0,
				peak_intensity_minutes INTEGER NOT NULL DEFAULT 0,
				resting_heart_rate INTEGER NOT NULL DEFAULT 0,
				sleep_hours REAL NOT NULL DEFAULT 0,
				sleep_efficiency REAL NOT NULL DEFAULT 0,
				calories REAL NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, date)
			);

			CREATE INDEX IF NOT EXISTS idx_daily_metrics_user_date ON daily_metrics(user_id, date DESC);

			-- Static per-user context
			CREATE TABLE IF NOT EXISTS user_profiles (
				user_id TEXT PRIMARY KEY,
				height_cm REAL NOT NULL DEFAULT 0,
				weight_kg REAL NOT NULL DEFAULT 0,
				age INTEGER NOT NULL DEFAULT 0,
				sex TEXT NOT NULL DEFAULT '',
				sport TEXT NOT NULL DEFAULT '',
				limb_dominance TEXT NOT NULL DEFAULT '',
				prior_acl_injury INTEGER NOT NULL DEFAULT 0,
				injury_date TEXT,
				knee_pain_score INTEGER NOT NULL DEFAULT 0,
				rehab_status TEXT NOT NULL DEFAULT 'none',
				baseline_resting_hr REAL NOT NULL DEFAULT 0
			);

			-- Prediction feedback with input snapshots
			CREATE TABLE IF NOT EXISTS feedback (
				user_id TEXT NOT NULL,
				date TEXT NOT NULL,
				steps INTEGER NOT NULL DEFAULT 0,
				distance_km REAL NOT NULL DEFAULT 0,
				active_minutes INTEGER NOT NULL DEFAULT 0,
				peak_intensity_minutes INTEGER NOT NULL DEFAULT 0,
				resting_heart_rate INTEGER NOT NULL DEFAULT 0,
				sleep_hours REAL NOT NULL DEFAULT 0,
				sleep_efficiency REAL NOT NULL DEFAULT 0,
				height_cm REAL NOT NULL DEFAULT 0,
				weight_kg REAL NOT NULL DEFAULT 0,
				age INTEGER NOT NULL DEFAULT 0,
				sex TEXT NOT NULL DEFAULT '',
				sport TEXT NOT NULL DEFAULT '',
				prior_acl_injury INTEGER NOT NULL DEFAULT 0,
				knee_pain_score INTEGER NOT NULL DEFAULT 0,
				formula_risk REAL NOT NULL,
				accurate INTEGER NOT NULL,
				created_at TEXT NOT NULL,
				PRIMARY KEY (user_id, date)
			);

			CREATE INDEX IF NOT EXISTS idx_feedback_user ON feedback(user_id);
			CREATE INDEX IF NOT EXISTS idx_feedback_accurate ON feedback(accurate);
		`,
	},
}

// MigrationManager handles database schema migrations.
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager.
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// EnsureSchemaVersionsTable creates the schema_versions table if it doesn't exist.
func (m *MigrationManager) EnsureSchemaVersionsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY,
			version INTEGER UNIQUE NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

// GetAppliedVersions returns all applied migration versions.
func (m *MigrationManager) GetAppliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_versions ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions[version] = true
	}
	return versions, rows.Err()
}

// ApplyMigration applies a single migration.
func (m *MigrationManager) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("execute migration %d (%s): %w", migration.Version, migration.Name, err)
	}

	_, err = tx.Exec(
		"INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)",
		migration.Version, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record migration %d: %w", migration.Version, err)
	}

	return tx.Commit()
}

// RunMigrations applies all pending migrations.
func (m *MigrationManager) RunMigrations() error {
	if err := m.EnsureSchemaVersionsTable(); err != nil {
		return fmt.Errorf("ensure schema_versions table: %w", err)
	}

	applied, err := m.GetAppliedVersions()
	if err != nil {
		return fmt.Errorf("get applied versions: %w", err)
	}

	for _, migration := range Migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.ApplyMigration(migration); err != nil {
			return err
		}
	}

	return nil
}
