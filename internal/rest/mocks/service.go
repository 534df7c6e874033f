package mocks

import (
	"context"
	"errors"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/internal/service"
)

// MockEmployeeService is a mock implementation of the EmployeeService interface.
type MockEmployeeService struct {
	GetFunc func(ctx context.Context, number string) (models.Employee, error)
}

func (m *MockEmployeeService) Get(ctx context.Context, number string) (models.Employee, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, number)
	}
	return models.Employee{}, errors.New("GetFunc not implemented")
}

// MockCatalogService is a mock implementation of the CatalogService interface.
type MockCatalogService struct {
	SampleQuestionsFunc func(ctx context.Context, band string) (service.QuestionSet, error)
	SampleCategoryFunc  func(ctx context.Context, band, category string) (service.CategorySample, error)
}

func (m *MockCatalogService) SampleQuestions(ctx context.Context, band string) (service.QuestionSet, error) {
	if m.SampleQuestionsFunc != nil {
		return m.SampleQuestionsFunc(ctx, band)
	}
	return service.QuestionSet{}, errors.New("SampleQuestionsFunc not implemented")
}

func (m *MockCatalogService) SampleCategory(ctx context.Context, band, category string) (service.CategorySample, error) {
	if m.SampleCategoryFunc != nil {
		return m.SampleCategoryFunc(ctx, band, category)
	}
	return service.CategorySample{}, errors.New("SampleCategoryFunc not implemented")
}

// MockAssessmentService is a mock implementation of the AssessmentService interface.
type MockAssessmentService struct {
	SaveAnswerFunc    func(ctx context.Context, answer service.Answer) error
	ListAnswersFunc   func(ctx context.Context, employeeID, band string) ([]service.Answer, error)
	SubmitSectionFunc func(ctx context.Context, sub service.SectionSubmission) (service.SectionOutcome, error)
	SubmitLegacyFunc  func(ctx context.Context, employeeID, band string) (service.Result, error)
	LatestResultFunc  func(ctx context.Context, employeeID, band string) (service.Result, error)
	StatusFunc        func(ctx context.Context, employeeID, band string) (service.StatusReport, error)
	HistoryFunc       func(ctx context.Context, employeeID string) ([]service.BandHistory, error)
}

func (m *MockAssessmentService) SaveAnswer(ctx context.Context, answer service.Answer) error {
	if m.SaveAnswerFunc != nil {
		return m.SaveAnswerFunc(ctx, answer)
	}
	return errors.New("SaveAnswerFunc not implemented")
}

func (m *MockAssessmentService) ListAnswers(ctx context.Context, employeeID, band string) ([]service.Answer, error) {
	if m.ListAnswersFunc != nil {
		return m.ListAnswersFunc(ctx, employeeID, band)
	}
	return nil, errors.New("ListAnswersFunc not implemented")
}

func (m *MockAssessmentService) SubmitSection(ctx context.Context, sub service.SectionSubmission) (service.SectionOutcome, error) {
	if m.SubmitSectionFunc != nil {
		return m.SubmitSectionFunc(ctx, sub)
	}
	return service.SectionOutcome{}, errors.New("SubmitSectionFunc not implemented")
}

func (m *MockAssessmentService) SubmitLegacy(ctx context.Context, employeeID, band string) (service.Result, error) {
	if m.SubmitLegacyFunc != nil {
		return m.SubmitLegacyFunc(ctx, employeeID, band)
	}
	return service.Result{}, errors.New("SubmitLegacyFunc not implemented")
}

func (m *MockAssessmentService) LatestResult(ctx context.Context, employeeID, band string) (service.Result, error) {
	if m.LatestResultFunc != nil {
		return m.LatestResultFunc(ctx, employeeID, band)
	}
	return service.Result{}, errors.New("LatestResultFunc not implemented")
}

func (m *MockAssessmentService) Status(ctx context.Context, employeeID, band string) (service.StatusReport, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, employeeID, band)
	}
	return service.StatusReport{}, errors.New("StatusFunc not implemented")
}

func (m *MockAssessmentService) History(ctx context.Context, employeeID string) ([]service.BandHistory, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, employeeID)
	}
	return nil, errors.New("HistoryFunc not implemented")
}

// MockPinger is a mock implementation of the Pinger interface.
type MockPinger struct {
	PingContextFunc func(ctx context.Context) error
}

func (m *MockPinger) PingContext(ctx context.Context) error {
	if m.PingContextFunc != nil {
		return m.PingContextFunc(ctx)
	}
	return nil
}
