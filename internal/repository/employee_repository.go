package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/godilite/assessment-server/internal/repository/models"
)

const employeeTable = "sails_employee_data"

type EmployeeRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewEmployeeRepository(db *sql.DB, dialect Dialect) *EmployeeRepository {
	return &EmployeeRepository{db: db, dialect: dialect}
}

// Get returns the full employee row keyed by "Employee_Number". The row is
// returned column by column since the table is owned by the HR system and
// its shape is not fixed.
func (r *EmployeeRepository) Get(ctx context.Context, number string) (models.Employee, error) {
	query := r.dialect.Rebind(fmt.Sprintf(
		`SELECT * FROM %s WHERE %s = ? LIMIT 1`,
		QuoteIdent(employeeTable), QuoteIdent("Employee_Number"),
	))

	rows, err := r.db.QueryContext(ctx, query, number)
	if err != nil {
		return models.Employee{}, fmt.Errorf("query employee: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return models.Employee{}, fmt.Errorf("read employee columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Employee{}, fmt.Errorf("iterate employee: %w", err)
		}
		return models.Employee{}, ErrEmployeeNotFound
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return models.Employee{}, fmt.Errorf("scan employee row: %w", err)
	}

	attrs := make(map[string]any, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			attrs[col] = string(b)
			continue
		}
		attrs[col] = values[i]
	}

	return models.Employee{
		Number:     lookupString(attrs, "Employee_Number"),
		Name:       lookupString(attrs, "Employee_Name"),
		Band:       lookupString(attrs, "Agreed_Band"),
		Attributes: attrs,
	}, nil
}

func lookupString(attrs map[string]any, key string) string {
	for k, v := range attrs {
		if !strings.EqualFold(k, key) || v == nil {
			continue
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}
