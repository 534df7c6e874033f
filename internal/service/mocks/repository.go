package mocks

import (
	"context"
	"errors"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
)

// MockCatalogStore is a mock implementation of the CatalogStore interface.
type MockCatalogStore struct {
	LoadCatalogFunc func(ctx context.Context, band string) (models.BandCatalog, error)
}

func (m *MockCatalogStore) LoadCatalog(ctx context.Context, band string) (models.BandCatalog, error) {
	if m.LoadCatalogFunc != nil {
		return m.LoadCatalogFunc(ctx, band)
	}
	return models.BandCatalog{}, errors.New("LoadCatalogFunc not implemented")
}

// MockEmployeeStore is a mock implementation of the EmployeeStore interface.
type MockEmployeeStore struct {
	GetFunc func(ctx context.Context, number string) (models.Employee, error)
}

func (m *MockEmployeeStore) Get(ctx context.Context, number string) (models.Employee, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, number)
	}
	return models.Employee{}, errors.New("GetFunc not implemented")
}

// MockExpectedCounter is a mock implementation of the ExpectedCounter interface.
type MockExpectedCounter struct {
	ExpectedAnswersFunc func(ctx context.Context, band string) (int, error)
}

func (m *MockExpectedCounter) ExpectedAnswers(ctx context.Context, band string) (int, error) {
	if m.ExpectedAnswersFunc != nil {
		return m.ExpectedAnswersFunc(ctx, band)
	}
	return 0, errors.New("ExpectedAnswersFunc not implemented")
}

// MockAssessmentStore is a mock implementation of repository.AssessmentStore.
// WithTx runs the callback against the mock itself unless WithTxFunc is set,
// and LockAssessment succeeds unless LockAssessmentFunc is set.
type MockAssessmentStore struct {
	UpsertAnswersFunc  func(ctx context.Context, answers ...models.AnswerRecord) error
	ListAnswersFunc    func(ctx context.Context, employeeID, band string) ([]models.AnswerRecord, error)
	CountAnswersFunc   func(ctx context.Context, employeeID, band string) (int, error)
	DeleteAnswersFunc  func(ctx context.Context, employeeID, band string) (int64, error)
	AnswerBandsFunc    func(ctx context.Context, employeeID string) ([]string, error)
	UpsertResultFunc   func(ctx context.Context, result models.ResultRecord) error
	GetResultFunc      func(ctx context.Context, employeeID, band string) (models.ResultRecord, error)
	ListResultsFunc    func(ctx context.Context, employeeID string) ([]models.ResultRecord, error)
	WithTxFunc         func(ctx context.Context, fn func(store repository.AssessmentStore) error) error
	LockAssessmentFunc func(ctx context.Context, employeeID, band string) error
}

var _ repository.AssessmentStore = (*MockAssessmentStore)(nil)

func (m *MockAssessmentStore) UpsertAnswers(ctx context.Context, answers ...models.AnswerRecord) error {
	if m.UpsertAnswersFunc != nil {
		return m.UpsertAnswersFunc(ctx, answers...)
	}
	return errors.New("UpsertAnswersFunc not implemented")
}

func (m *MockAssessmentStore) ListAnswers(ctx context.Context, employeeID, band string) ([]models.AnswerRecord, error) {
	if m.ListAnswersFunc != nil {
		return m.ListAnswersFunc(ctx, employeeID, band)
	}
	return nil, errors.New("ListAnswersFunc not implemented")
}

func (m *MockAssessmentStore) CountAnswers(ctx context.Context, employeeID, band string) (int, error) {
	if m.CountAnswersFunc != nil {
		return m.CountAnswersFunc(ctx, employeeID, band)
	}
	return 0, errors.New("CountAnswersFunc not implemented")
}

func (m *MockAssessmentStore) DeleteAnswers(ctx context.Context, employeeID, band string) (int64, error) {
	if m.DeleteAnswersFunc != nil {
		return m.DeleteAnswersFunc(ctx, employeeID, band)
	}
	return 0, errors.New("DeleteAnswersFunc not implemented")
}

func (m *MockAssessmentStore) AnswerBands(ctx context.Context, employeeID string) ([]string, error) {
	if m.AnswerBandsFunc != nil {
		return m.AnswerBandsFunc(ctx, employeeID)
	}
	return nil, errors.New("AnswerBandsFunc not implemented")
}

func (m *MockAssessmentStore) UpsertResult(ctx context.Context, result models.ResultRecord) error {
	if m.UpsertResultFunc != nil {
		return m.UpsertResultFunc(ctx, result)
	}
	return errors.New("UpsertResultFunc not implemented")
}

func (m *MockAssessmentStore) GetResult(ctx context.Context, employeeID, band string) (models.ResultRecord, error) {
	if m.GetResultFunc != nil {
		return m.GetResultFunc(ctx, employeeID, band)
	}
	return models.ResultRecord{}, errors.New("GetResultFunc not implemented")
}

func (m *MockAssessmentStore) ListResults(ctx context.Context, employeeID string) ([]models.ResultRecord, error) {
	if m.ListResultsFunc != nil {
		return m.ListResultsFunc(ctx, employeeID)
	}
	return nil, errors.New("ListResultsFunc not implemented")
}

func (m *MockAssessmentStore) WithTx(ctx context.Context, fn func(store repository.AssessmentStore) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	return fn(m)
}

func (m *MockAssessmentStore) LockAssessment(ctx context.Context, employeeID, band string) error {
	if m.LockAssessmentFunc != nil {
		return m.LockAssessmentFunc(ctx, employeeID, band)
	}
	return nil
}
