package rest

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/godilite/assessment-server/internal/service"
)

const (
	defaultRequestTimeout = 10 * time.Second
	healthTimeout         = 2 * time.Second
)

type Handlers struct {
	employees   EmployeeService
	catalog     CatalogService
	assessments AssessmentService
	db          Pinger
	startedAt   time.Time
	timeout     time.Duration
	logger      *zap.Logger
}

// NewHandlers initializes the REST handlers. db may be nil, in which case
// /healthz always reports ok.
func NewHandlers(employees EmployeeService, catalog CatalogService, assessments AssessmentService, db Pinger, startedAt time.Time, logger *zap.Logger) *Handlers {
	if employees == nil || catalog == nil || assessments == nil {
		panic("nil service provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		employees:   employees,
		catalog:     catalog,
		assessments: assessments,
		db:          db,
		startedAt:   startedAt.UTC(),
		timeout:     defaultRequestTimeout,
		logger:      logger.Named("rest-handler"),
	}
}

// RegisterRoutes mounts every endpoint on router.
func (h *Handlers) RegisterRoutes(router fiber.Router) {
	router.Get("/employeeData/:employee_id", h.GetEmployee)

	router.Get("/bands/:band/random-questions", h.GetRandomQuestions)
	router.Get("/bands/:band/category/:category", h.GetCategoryQuestions)

	assessment := router.Group("/assessment")
	assessment.Post("/answer", h.SaveAnswer)
	assessment.Get("/answers/:employee_id/:band", h.ListAnswers)
	assessment.Post("/submit", h.SubmitAssessment)
	assessment.Get("/results/:employee_id/:band", h.GetResult)
	assessment.Post("/section/submit", h.SubmitSection)
	assessment.Get("/status/:employee_id/:band", h.GetStatus)
	assessment.Get("/history/:employee_id", h.GetHistory)

	router.Get("/server/start-time", h.GetStartTime)
	router.Get("/healthz", h.Health)
}

func (h *Handlers) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *Handlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		h.logger.Warn("request canceled", zap.String("op", op))
		return fiber.NewError(fiber.StatusRequestTimeout, "request canceled")
	case context.DeadlineExceeded:
		h.logger.Warn("request timeout", zap.String("op", op))
		return fiber.NewError(fiber.StatusGatewayTimeout, "request timed out")
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("storage timeout", zap.String("op", op), zap.Error(err))
		return fiber.NewError(fiber.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, service.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		h.logger.Info("not found", zap.String("op", op), zap.Error(err))
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		h.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	default:
		h.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, op+" failed")
	}
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func (h *Handlers) GetEmployee(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	emp, err := h.employees.Get(ctx, c.Params("employee_id"))
	if err != nil {
		return h.handleError(ctx, "GetEmployee", err)
	}
	return c.JSON(emp.Attributes)
}

func (h *Handlers) GetRandomQuestions(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	set, err := h.catalog.SampleQuestions(ctx, c.Params("band"))
	if err != nil {
		return h.handleError(ctx, "GetRandomQuestions", err)
	}

	return c.JSON(QuestionSetResponse{
		Band:            set.Band,
		CategoriesFound: len(set.Categories),
		Categories:      set.Categories,
		TotalQuestions:  len(set.Questions),
		Questions:       set.Questions,
	})
}

func (h *Handlers) GetCategoryQuestions(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sample, err := h.catalog.SampleCategory(ctx, c.Params("band"), c.Params("category"))
	if err != nil {
		return h.handleError(ctx, "GetCategoryQuestions", err)
	}

	questions := make([]CategoryQuestion, 0, len(sample.Questions))
	for _, q := range sample.Questions {
		questions = append(questions, CategoryQuestion{Question: q})
	}
	return c.JSON(CategorySampleResponse{
		Band:           sample.Band,
		Category:       sample.Category,
		TotalQuestions: len(questions),
		Questions:      questions,
	})
}

func (h *Handlers) SaveAnswer(c *fiber.Ctx) error {
	var req AnswerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	err := h.assessments.SaveAnswer(ctx, service.Answer{
		EmployeeID:  req.EmployeeID,
		Band:        req.Band,
		Category:    req.Category,
		Question:    req.Question,
		AnswerValue: string(req.AnswerValue),
	})
	if err != nil {
		return h.handleError(ctx, "SaveAnswer", err)
	}
	return c.JSON(fiber.Map{"message": "Answer saved successfully"})
}

func (h *Handlers) ListAnswers(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	employeeID, band := c.Params("employee_id"), c.Params("band")
	answers, err := h.assessments.ListAnswers(ctx, employeeID, band)
	if err != nil {
		return h.handleError(ctx, "ListAnswers", err)
	}

	resp := AnswersResponse{EmployeeID: employeeID, Band: band, Answers: make([]AnswerResponse, 0, len(answers))}
	for _, a := range answers {
		resp.Band = a.Band
		resp.Answers = append(resp.Answers, AnswerResponse{
			Category:    a.Category,
			Question:    a.Question,
			AnswerValue: a.AnswerValue,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return c.JSON(resp)
}

func (h *Handlers) SubmitAssessment(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.assessments.SubmitLegacy(ctx, req.EmployeeID, req.Band)
	if err != nil {
		return h.handleError(ctx, "SubmitAssessment", err)
	}
	return c.JSON(toResultResponse(result))
}

func (h *Handlers) GetResult(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.assessments.LatestResult(ctx, c.Params("employee_id"), c.Params("band"))
	if err != nil {
		return h.handleError(ctx, "GetResult", err)
	}
	return c.JSON(toResultResponse(result))
}

func (h *Handlers) SubmitSection(c *fiber.Ctx) error {
	var req SectionSubmitRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	answers := make([]service.QuestionAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, service.QuestionAnswer{Question: a.Question, AnswerValue: string(a.AnswerValue)})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	outcome, err := h.assessments.SubmitSection(ctx, service.SectionSubmission{
		EmployeeID: req.EmployeeID,
		Band:       req.Band,
		Category:   req.Category,
		Answers:    answers,
	})
	if err != nil {
		return h.handleError(ctx, "SubmitSection", err)
	}

	resp := SectionSubmitResponse{
		Message:        "Section submitted successfully",
		QuestionsSaved: outcome.Saved,
		Answered:       outcome.Answered,
		Expected:       outcome.Expected,
		Status:         outcome.Status,
	}
	if outcome.Result != nil {
		result := toResultResponse(*outcome.Result)
		resp.Result = &result
	}
	return c.JSON(resp)
}

func (h *Handlers) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.assessments.Status(ctx, c.Params("employee_id"), c.Params("band"))
	if err != nil {
		return h.handleError(ctx, "GetStatus", err)
	}
	return c.JSON(StatusResponse{
		EmployeeID: report.EmployeeID,
		Band:       report.Band,
		Status:     report.Status,
		Answered:   report.Answered,
		Expected:   report.Expected,
		LastScore:  report.LastScore,
	})
}

func (h *Handlers) GetHistory(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	employeeID := c.Params("employee_id")
	history, err := h.assessments.History(ctx, employeeID)
	if err != nil {
		return h.handleError(ctx, "GetHistory", err)
	}
	return c.JSON(toHistoryResponse(employeeID, history))
}

// GetStartTime lets clients notice a server restart.
func (h *Handlers) GetStartTime(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"start_time": h.startedAt.Format(time.RFC3339)})
}

func (h *Handlers) Health(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
