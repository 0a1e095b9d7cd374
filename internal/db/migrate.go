// Package db provides database schema migration management.
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// Migration represents one applied schema migration.
type Migration struct {
	Version     int
	AppliedAt   time.Time
	Description string
	Checksum    string
}

// migrations is the ordered list of schema changes. Entries are append-only;
// editing an applied entry fails the checksum check on startup.
var migrations = []struct {
	Version     int
	Description string
	SQL         string
}{
	{
		Version:     1,
		Description: "create records key/value table",
		SQL: `
		CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY CHECK(length(key) > 0),
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL CHECK(updated_at > 0)
		);`,
	},
	{
		Version:     2,
		Description: "index records by update time",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_records_updated_at ON records(updated_at);`,
	},
}

// Migrator applies schema migrations to the local database.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	_, err := m.db.Exec(query)
	return err
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Migrate applies all pending migrations in version order.
func (m *Migrator) Migrate() error {
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	current, err := m.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, mig := range migrations {
		sum := checksum(mig.SQL)

		if mig.Version <= current {
			// Already applied; verify the source hasn't drifted
			var applied string
			err := m.db.QueryRow(
				"SELECT checksum FROM schema_migrations WHERE version = ?",
				mig.Version).Scan(&applied)
			if err != nil {
				return fmt.Errorf("failed to read migration %d: %w", mig.Version, err)
			}
			if applied != sum {
				return fmt.Errorf("migration %d checksum mismatch (%s != %s)", mig.Version, applied, sum)
			}
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", mig.Version, err)
		}

		if _, err := tx.Exec(mig.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
			mig.Version, time.Now().Unix(), mig.Description, sum)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", mig.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", mig.Version, err)
		}
	}

	return nil
}

// AppliedMigrations returns all applied migrations in version order.
func (m *Migrator) AppliedMigrations() ([]Migration, error) {
	rows, err := m.db.Query(
		"SELECT version, applied_at, description, checksum FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applied []Migration
	for rows.Next() {
		var mig Migration
		var appliedAt int64
		if err := rows.Scan(&mig.Version, &appliedAt, &mig.Description, &mig.Checksum); err != nil {
			return nil, err
		}
		mig.AppliedAt = time.Unix(appliedAt, 0)
		applied = append(applied, mig)
	}
	return applied, rows.Err()
}

// checksum computes the hex SHA-256 of a migration's SQL text.
func checksum(sqlText string) string {
	sum := sha256.Sum256([]byte(sqlText))
	return hex.EncodeToString(sum[:])
}
