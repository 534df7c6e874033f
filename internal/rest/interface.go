package rest

import (
	"context"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/internal/service"
)

type EmployeeService interface {
	Get(ctx context.Context, number string) (models.Employee, error)
}

type CatalogService interface {
	SampleQuestions(ctx context.Context, band string) (service.QuestionSet, error)
	SampleCategory(ctx context.Context, band, category string) (service.CategorySample, error)
}

type AssessmentService interface {
	SaveAnswer(ctx context.Context, answer service.Answer) error
	ListAnswers(ctx context.Context, employeeID, band string) ([]service.Answer, error)
	SubmitSection(ctx context.Context, sub service.SectionSubmission) (service.SectionOutcome, error)
	SubmitLegacy(ctx context.Context, employeeID, band string) (service.Result, error)
	LatestResult(ctx context.Context, employeeID, band string) (service.Result, error)
	Status(ctx context.Context, employeeID, band string) (service.StatusReport, error)
	History(ctx context.Context, employeeID string) ([]service.BandHistory, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}
