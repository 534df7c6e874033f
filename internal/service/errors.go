package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/godilite/assessment-server/internal/repository"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("invalid input")
	ErrStorageFailure = errors.New("storage failure")
)

// storageError classifies a repository error into the service taxonomy.
// subject names the missing thing in NotFound messages.
func storageError(err error, subject string) error {
	switch {
	case errors.Is(err, repository.ErrInvalidBand):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, repository.ErrBandNotFound),
		errors.Is(err, repository.ErrEmployeeNotFound),
		errors.Is(err, repository.ErrResultNotFound):
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
}

func normalizeBand(band string) (string, error) {
	normalized, err := repository.NormalizeBand(band)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return normalized, nil
}
