package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Schema versions:
// v1: originals collection (indexed by upload_date) + metadata table
// v2: subsets collection (indexed by original_id)
// v3: composite (range_start, range_end) index on subsets
const CurrentSchemaVersion = 3

// migrations maps a target version to the DDL that reaches it from the
// previous one. All DDL uses IF NOT EXISTS, so re-creating an existing
// collection or index is a no-op, never an error.
var migrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS originals (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			upload_date TEXT NOT NULL,
			size INTEGER NOT NULL,
			range_start TEXT,
			range_end TEXT,
			data BLOB NOT NULL,
			checksum TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_originals_upload_date ON originals(upload_date)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated TEXT NOT NULL
		)`,
	},
	2: {
		`CREATE TABLE IF NOT EXISTS subsets (
			id TEXT PRIMARY KEY,
			original_id TEXT NOT NULL,
			name TEXT NOT NULL,
			range_start TEXT,
			range_end TEXT,
			created_at TEXT NOT NULL,
			last_used TEXT NOT NULL,
			settings TEXT NOT NULL,
			data BLOB NOT NULL,
			total_points INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subsets_original ON subsets(original_id)`,
	},
	3: {
		`CREATE INDEX IF NOT EXISTS idx_subsets_range ON subsets(range_start, range_end)`,
	},
}

// migrate brings the database schema to CurrentSchemaVersion. Migration is
// monotonic: a database at or past the target version is left untouched.
// Each version step runs in its own transaction and is recorded in the
// schema_versions table.
func migrate(db *sql.DB, log *zap.Logger) error {
	createVersions := `CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`
	if _, err := db.Exec(createVersions); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	current, err := schemaVersion(db)
	if err != nil {
		return err
	}

	if current >= CurrentSchemaVersion {
		log.Debug("schema up to date", zap.Int("version", current))
		return nil
	}

	for v := current + 1; v <= CurrentSchemaVersion; v++ {
		if err := applyMigration(db, v); err != nil {
			return fmt.Errorf("migration to v%d failed: %w", v, err)
		}
		log.Info("schema migrated", zap.Int("version", v))
	}
	return nil
}

func applyMigration(db *sql.DB, version int) error {
	stmts, ok := migrations[version]
	if !ok {
		return fmt.Errorf("unknown schema version %d", version)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_versions (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// schemaVersion returns the highest recorded schema version, 0 for a fresh
// database.
func schemaVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
