package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS assessment_answers (
		id BIGSERIAL PRIMARY KEY,
		employee_id TEXT NOT NULL,
		band TEXT NOT NULL,
		category TEXT NOT NULL,
		question TEXT NOT NULL,
		answer_value TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_assessment_answers_key
		ON assessment_answers (employee_id, band, question)`,
	`CREATE TABLE IF NOT EXISTS assessment_results (
		id BIGSERIAL PRIMARY KEY,
		employee_number TEXT NOT NULL,
		agreed_band TEXT NOT NULL,
		total_score DOUBLE PRECISION NOT NULL,
		category_scores JSONB NOT NULL,
		questions_answers JSONB,
		completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE assessment_results ADD COLUMN IF NOT EXISTS questions_answers JSONB`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_assessment_results_key
		ON assessment_results (employee_number, agreed_band)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS assessment_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		band TEXT NOT NULL,
		category TEXT NOT NULL,
		question TEXT NOT NULL,
		answer_value TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_assessment_answers_key
		ON assessment_answers (employee_id, band, question)`,
	`CREATE TABLE IF NOT EXISTS assessment_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_number TEXT NOT NULL,
		agreed_band TEXT NOT NULL,
		total_score REAL NOT NULL,
		category_scores TEXT NOT NULL,
		questions_answers TEXT,
		completed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_assessment_results_key
		ON assessment_results (employee_number, agreed_band)`,
}

// EnsureSchema creates the answer and result tables with the unique indexes
// backing their upserts. It is idempotent. Catalog and employee tables are
// owned elsewhere and never touched.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts := postgresSchema
	if dialect == SQLite {
		stmts = sqliteSchema
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
