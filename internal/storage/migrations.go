package storage

import "fmt"

// Migrate creates the schema if it does not exist yet. The schema is small
// enough that idempotent CREATE IF NOT EXISTS statements beat a versioned
// migration table.
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS children (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			birth_date TEXT NOT NULL,
			disease_code TEXT NOT NULL,
			disease_name TEXT NOT NULL DEFAULT '',
			current_hospital TEXT NOT NULL DEFAULT '',
			attending_doctor TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			child_id TEXT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			kind TEXT NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			location_name TEXT NOT NULL DEFAULT '',
			location_address TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			doctor_name TEXT NOT NULL DEFAULT '',
			checklist TEXT NOT NULL DEFAULT '[]',
			notes TEXT NOT NULL DEFAULT '',
			google_event_id TEXT NOT NULL DEFAULT '',
			reminded_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_user_start
			ON appointments(user_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_child
			ON appointments(child_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}
