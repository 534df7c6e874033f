// Package repotest provides SQLite fixtures for tests that need a real
// assessment database.
package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/pkg/database"
)

// NewSQLiteDB opens an in-memory database with the assessment schema and an
// empty sails_employee_data table. It is closed when the test ends.
func NewSQLiteDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.New(
		database.WithDriver("sqlite3"),
		database.WithDataSource(":memory:"),
		database.WithRetry(1, 0),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.EnsureSchema(context.Background(), db, repository.SQLite))

	_, err = db.Exec(`
		CREATE TABLE sails_employee_data (
			"Employee_Number" TEXT PRIMARY KEY,
			"Employee_Name" TEXT,
			"Agreed_Band" TEXT,
			"Department" TEXT
		)`)
	require.NoError(t, err)

	return db
}

// SeedEmployee inserts one employee row.
func SeedEmployee(t testing.TB, db *sql.DB, number, name, band, department string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO sails_employee_data ("Employee_Number", "Employee_Name", "Agreed_Band", "Department") VALUES (?, ?, ?, ?)`,
		number, name, band, department,
	)
	require.NoError(t, err)
}

// SeedBand creates a catalog table and fills it with perCategory generated
// questions for each category. Question text is "<category> question <n>".
func SeedBand(t testing.TB, db *sql.DB, table string, perCategory int, categories ...string) {
	t.Helper()

	_, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE %s ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "Category" TEXT, "Question" TEXT)`,
		repository.QuoteIdent(table),
	))
	require.NoError(t, err)

	insert := fmt.Sprintf(`INSERT INTO %s ("Category", "Question") VALUES (?, ?)`, repository.QuoteIdent(table))
	for _, category := range categories {
		for i := 1; i <= perCategory; i++ {
			_, err := db.Exec(insert, category, QuestionText(category, i))
			require.NoError(t, err)
		}
	}
}

func QuestionText(category string, n int) string {
	return fmt.Sprintf("%s question %d", category, n)
}
