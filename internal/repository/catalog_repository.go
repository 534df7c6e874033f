package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/godilite/assessment-server/internal/repository/models"
)

const (
	postgresResolveTable = `
		SELECT table_name
		FROM information_schema.tables
		WHERE LOWER(table_name) = LOWER(?)
			AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY CASE WHEN table_name = ? THEN 0 ELSE 1 END
		LIMIT 1
	`
	sqliteResolveTable = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND LOWER(name) = LOWER(?)
		ORDER BY CASE WHEN name = ? THEN 0 ELSE 1 END
		LIMIT 1
	`
)

// CatalogRepository reads the per-band question tables.
type CatalogRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewCatalogRepository(db *sql.DB, dialect Dialect) *CatalogRepository {
	return &CatalogRepository{db: db, dialect: dialect}
}

// ResolveTable finds the catalog table for a band, matching the name
// case-insensitively and preferring an exact match.
func (r *CatalogRepository) ResolveTable(ctx context.Context, band string) (string, error) {
	want, err := BandTableName(band)
	if err != nil {
		return "", err
	}

	query := postgresResolveTable
	if r.dialect == SQLite {
		query = sqliteResolveTable
	}

	var table string
	err = r.db.QueryRowContext(ctx, r.dialect.Rebind(query), want, want).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrBandNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve band table: %w", err)
	}
	return table, nil
}

// LoadCatalog returns every category of the band with its questions.
// Categories are sorted by name; questions keep table order. Rows with an
// empty category or question are skipped.
func (r *CatalogRepository) LoadCatalog(ctx context.Context, band string) (models.BandCatalog, error) {
	normalized, err := NormalizeBand(band)
	if err != nil {
		return models.BandCatalog{}, err
	}

	table, err := r.ResolveTable(ctx, normalized)
	if err != nil {
		return models.BandCatalog{}, err
	}

	query := fmt.Sprintf(
		`SELECT %s, %s FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL`,
		QuoteIdent("Category"), QuoteIdent("Question"), QuoteIdent(table),
		QuoteIdent("Category"), QuoteIdent("Question"),
	)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return models.BandCatalog{}, fmt.Errorf("query catalog %s: %w", table, err)
	}
	defer rows.Close()

	byCategory := make(map[string][]string)
	for rows.Next() {
		var category, question sql.NullString
		if err := rows.Scan(&category, &question); err != nil {
			return models.BandCatalog{}, fmt.Errorf("scan catalog row: %w", err)
		}
		c := strings.TrimSpace(category.String)
		q := strings.TrimSpace(question.String)
		if c == "" || q == "" {
			continue
		}
		byCategory[c] = append(byCategory[c], q)
	}
	if err := rows.Err(); err != nil {
		return models.BandCatalog{}, fmt.Errorf("iterate catalog %s: %w", table, err)
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	catalog := models.BandCatalog{
		Band:       normalized,
		Table:      table,
		Categories: make([]models.CategoryQuestions, 0, len(names)),
	}
	for _, name := range names {
		catalog.Categories = append(catalog.Categories, models.CategoryQuestions{
			Category:  name,
			Questions: byCategory[name],
		})
	}
	return catalog, nil
}
