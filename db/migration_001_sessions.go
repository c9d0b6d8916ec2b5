package db

import (
	"database/sql"
)

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Create sessions and metadata tables",
		Up:          migration001_sessions,
	})
}

func migration001_sessions(database *sql.DB) error {
	tx, err := database.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id               TEXT PRIMARY KEY,
			custom_name              TEXT NOT NULL DEFAULT '',
			pinned                   INTEGER NOT NULL DEFAULT 0,
			archived                 INTEGER NOT NULL DEFAULT 0,
			continuation_session_id  TEXT NOT NULL DEFAULT '',
			initial_commit_head      TEXT NOT NULL DEFAULT '',
			permission_mode          TEXT NOT NULL DEFAULT 'default',
			summary                  TEXT NOT NULL DEFAULT '',
			project_path             TEXT NOT NULL DEFAULT '',
			file_path                TEXT NOT NULL DEFAULT '',
			message_count            INTEGER NOT NULL DEFAULT 0,
			total_duration_ms        INTEGER NOT NULL DEFAULT 0,
			model                    TEXT NOT NULL DEFAULT 'Unknown',
			last_scanned_at_ms       INTEGER NOT NULL DEFAULT 0,
			version                  INTEGER NOT NULL DEFAULT 1,
			created_at               TEXT NOT NULL DEFAULT '',
			updated_at               TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return err
	}

	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_project_path ON sessions(project_path)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return err
	}

	return tx.Commit()
}
