package service

import (
	"context"

	"github.com/godilite/assessment-server/internal/repository/models"
)

// CatalogStore reads band question catalogs.
type CatalogStore interface {
	LoadCatalog(ctx context.Context, band string) (models.BandCatalog, error)
}

// EmployeeStore reads employee records.
type EmployeeStore interface {
	Get(ctx context.Context, number string) (models.Employee, error)
}

// ExpectedCounter reports how many answers complete a band.
type ExpectedCounter interface {
	ExpectedAnswers(ctx context.Context, band string) (int, error)
}
