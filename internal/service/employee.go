package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/godilite/assessment-server/internal/repository/models"
)

type EmployeeService struct {
	storage EmployeeStore
	logger  *zap.Logger
}

func NewEmployeeService(storage EmployeeStore, logger *zap.Logger) *EmployeeService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &EmployeeService{storage: storage, logger: logger.Named("employee")}
}

// Get returns the employee record keyed by employee number.
func (s *EmployeeService) Get(ctx context.Context, number string) (models.Employee, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return models.Employee{}, fmt.Errorf("%w: employee number is required", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	emp, err := s.storage.Get(dbCtx, number)
	if err != nil {
		return models.Employee{}, storageError(err, "employee "+number)
	}

	s.logger.Debug("fetched employee", zap.String("employee_number", number), zap.String("band", emp.Band))
	return emp, nil
}
