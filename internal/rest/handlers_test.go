package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/internal/rest/mocks"
	"github.com/godilite/assessment-server/internal/service"
	httpserver "github.com/godilite/assessment-server/pkg/http/server"
)

type testDeps struct {
	employees   *mocks.MockEmployeeService
	catalog     *mocks.MockCatalogService
	assessments *mocks.MockAssessmentService
	db          *mocks.MockPinger
}

func newTestApp(t *testing.T, deps testDeps) *fiber.App {
	t.Helper()

	if deps.employees == nil {
		deps.employees = &mocks.MockEmployeeService{}
	}
	if deps.catalog == nil {
		deps.catalog = &mocks.MockCatalogService{}
	}
	if deps.assessments == nil {
		deps.assessments = &mocks.MockAssessmentService{}
	}
	if deps.db == nil {
		deps.db = &mocks.MockPinger{}
	}

	app := httpserver.NewApp(zap.NewNop(), nil)
	h := NewHandlers(deps.employees, deps.catalog, deps.assessments, deps.db,
		time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC), zap.NewNop())
	h.RegisterRoutes(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

func TestNewHandlers(t *testing.T) {
	assert.Panics(t, func() {
		NewHandlers(nil, &mocks.MockCatalogService{}, &mocks.MockAssessmentService{}, nil, time.Now(), zap.NewNop())
	})

	h := NewHandlers(&mocks.MockEmployeeService{}, &mocks.MockCatalogService{}, &mocks.MockAssessmentService{}, nil, time.Now(), nil)
	assert.Equal(t, defaultRequestTimeout, h.timeout)
	assert.NotNil(t, h.logger)
}

func TestGetEmployee(t *testing.T) {
	employees := &mocks.MockEmployeeService{
		GetFunc: func(_ context.Context, number string) (models.Employee, error) {
			if number != "1001" {
				return models.Employee{}, fmt.Errorf("employee %s: %w", number, service.ErrNotFound)
			}
			return models.Employee{
				Number: "1001",
				Attributes: map[string]any{
					"Employee_Number": "1001",
					"Agreed_Band":     "2A",
				},
			}, nil
		},
	}
	app := newTestApp(t, testDeps{employees: employees})

	status, body := do(t, app, http.MethodGet, "/employeeData/1001", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2A", body["Agreed_Band"])

	status, body = do(t, app, http.MethodGet, "/employeeData/42", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "employee 42: not found", body["detail"])
}

func TestGetRandomQuestions(t *testing.T) {
	catalog := &mocks.MockCatalogService{
		SampleQuestionsFunc: func(_ context.Context, band string) (service.QuestionSet, error) {
			assert.Equal(t, "band2A", band)
			return service.QuestionSet{
				Band:       "2A",
				Categories: []string{"A", "B"},
				Questions: []service.SampledQuestion{
					{Band: "2A", Category: "B", Question: "q2"},
					{Band: "2A", Category: "A", Question: "q1"},
				},
			}, nil
		},
	}
	app := newTestApp(t, testDeps{catalog: catalog})

	status, body := do(t, app, http.MethodGet, "/bands/band2A/random-questions", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2A", body["band"])
	assert.Equal(t, float64(2), body["categories_found"])
	assert.Equal(t, float64(2), body["total_questions"])
	assert.Len(t, body["questions"], 2)
}

func TestGetCategoryQuestions(t *testing.T) {
	catalog := &mocks.MockCatalogService{
		SampleCategoryFunc: func(_ context.Context, band, category string) (service.CategorySample, error) {
			if category != "Problem Solving" {
				return service.CategorySample{}, fmt.Errorf("questions for category %q in band %s: %w", category, band, service.ErrNotFound)
			}
			return service.CategorySample{Band: band, Category: category, Questions: []string{"q1", "q2", "q3"}}, nil
		},
	}
	app := newTestApp(t, testDeps{catalog: catalog})

	status, body := do(t, app, http.MethodGet, "/bands/2A/category/Problem%20Solving", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Problem Solving", body["category"])
	assert.Equal(t, float64(3), body["total_questions"])
	assert.Equal(t, map[string]any{"question": "q1"}, body["questions"].([]any)[0])

	status, _ = do(t, app, http.MethodGet, "/bands/2A/category/Finance", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSubmitSectionHandler(t *testing.T) {
	completedAt := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)

	var got service.SectionSubmission
	assessments := &mocks.MockAssessmentService{
		SubmitSectionFunc: func(_ context.Context, sub service.SectionSubmission) (service.SectionOutcome, error) {
			got = sub
			return service.SectionOutcome{
				Saved:    2,
				Answered: 50,
				Expected: 50,
				Status:   service.StatusCompleted,
				Result: &service.Result{
					EmployeeID:     "E1",
					Band:           "2A",
					TotalScore:     88,
					CategoryScores: []service.CategoryScore{{Category: "A", Score: 88, Answered: 50}},
					Sections:       []service.Section{},
					CompletedAt:    completedAt,
				},
			}, nil
		},
	}
	app := newTestApp(t, testDeps{assessments: assessments})

	status, body := do(t, app, http.MethodPost, "/assessment/section/submit",
		`{"employee_id":"E1","band":"2A","category":"A","answers":[{"question":"q1","answer_value":"4"},{"question":"q2","answer_value":5}]}`)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "Section submitted successfully", body["message"])
	assert.Equal(t, float64(2), body["questions_saved"])
	assert.Equal(t, service.StatusCompleted, body["status"])
	result := body["result"].(map[string]any)
	assert.Equal(t, float64(88), result["total_score"])
	assert.Equal(t, "2025-05-02T10:00:00Z", result["completed_at"])

	require.Len(t, got.Answers, 2)
	assert.Equal(t, "5", got.Answers[1].AnswerValue, "numeric answers keep their text form")
}

func TestSubmitSectionValidation(t *testing.T) {
	assessments := &mocks.MockAssessmentService{
		SubmitSectionFunc: func(context.Context, service.SectionSubmission) (service.SectionOutcome, error) {
			t.Errorf("service must not be called for invalid input")
			return service.SectionOutcome{}, nil
		},
	}
	app := newTestApp(t, testDeps{assessments: assessments})

	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{"malformed json", `{"employee_id":`, "invalid request body"},
		{"missing employee", `{"band":"2A","category":"A","answers":[{"question":"q","answer_value":"1"}]}`, "employee_id is required"},
		{"empty answers", `{"employee_id":"E1","band":"2A","category":"A","answers":[]}`, "answers must contain at least 1 item(s)"},
		{"empty question", `{"employee_id":"E1","band":"2A","category":"A","answers":[{"question":"","answer_value":"1"}]}`, "answers[0].question is required"},
		{"boolean answer", `{"employee_id":"E1","band":"2A","category":"A","answers":[{"question":"q","answer_value":true}]}`, "invalid request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodPost, "/assessment/section/submit", tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.detail, body["detail"])
		})
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"validation", fmt.Errorf("%w: band identifier is empty", service.ErrValidation), http.StatusBadRequest, "invalid input: band identifier is empty"},
		{"not found", fmt.Errorf("result for employee E1 band 2A: %w", service.ErrNotFound), http.StatusNotFound, "result for employee E1 band 2A: not found"},
		{"storage", fmt.Errorf("%w: pq: connection refused", service.ErrStorageFailure), http.StatusInternalServerError, "database error"},
		{"timeout", fmt.Errorf("%w: %w", service.ErrStorageFailure, context.DeadlineExceeded), http.StatusGatewayTimeout, "request timed out"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "GetResult failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assessments := &mocks.MockAssessmentService{
				LatestResultFunc: func(context.Context, string, string) (service.Result, error) {
					return service.Result{}, tc.err
				},
			}
			app := newTestApp(t, testDeps{assessments: assessments})

			status, body := do(t, app, http.MethodGet, "/assessment/results/E1/2A", "")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.detail, body["detail"])
		})
	}
}

func TestAnswerEndpoints(t *testing.T) {
	saved := map[string]service.Answer{}
	assessments := &mocks.MockAssessmentService{
		SaveAnswerFunc: func(_ context.Context, a service.Answer) error {
			saved[a.Question] = a
			return nil
		},
		ListAnswersFunc: func(_ context.Context, employeeID, band string) ([]service.Answer, error) {
			out := make([]service.Answer, 0, len(saved))
			for _, a := range saved {
				a.Band = "2A"
				out = append(out, a)
			}
			return out, nil
		},
		SubmitLegacyFunc: func(_ context.Context, employeeID, band string) (service.Result, error) {
			return service.Result{EmployeeID: employeeID, Band: "2A", TotalScore: 70}, nil
		},
	}
	app := newTestApp(t, testDeps{assessments: assessments})

	status, body := do(t, app, http.MethodPost, "/assessment/answer",
		`{"employee_id":"E1","band":"band2A","category":"A","question":"q1","answer_value":3}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Answer saved successfully", body["message"])
	assert.Equal(t, "3", saved["q1"].AnswerValue)

	status, body = do(t, app, http.MethodGet, "/assessment/answers/E1/band2A", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2A", body["band"])
	assert.Len(t, body["answers"], 1)

	status, body = do(t, app, http.MethodPost, "/assessment/submit", `{"employee_id":"E1","band":"2A"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(70), body["total_score"])
	assert.Equal(t, "2A", body["agreed_band"])

	status, _ = do(t, app, http.MethodPost, "/assessment/answer", `{"employee_id":"E1","band":"2A"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, app, http.MethodPost, "/assessment/answer",
		`{"employee_id":"E1","band":"2A","question":"q2","answer_value":"4"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["detail"], "category")
	assert.NotContains(t, saved, "q2", "an answer without a category is not stored")
}

func TestStatusAndHistory(t *testing.T) {
	score := 80.0
	completedAt := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	assessments := &mocks.MockAssessmentService{
		StatusFunc: func(_ context.Context, employeeID, band string) (service.StatusReport, error) {
			return service.StatusReport{EmployeeID: employeeID, Band: band, Status: service.StatusInProgress, Answered: 10, Expected: 50, LastScore: &score}, nil
		},
		HistoryFunc: func(context.Context, string) ([]service.BandHistory, error) {
			return []service.BandHistory{
				{Band: "1C", Status: service.StatusCompleted, CompletedAt: &completedAt, TotalScore: &score,
					CategoryScores: []service.CategoryScore{{Category: "A", Score: 80, Answered: 25}}},
				{Band: "2A", Status: service.StatusInProgress},
			}, nil
		},
	}
	app := newTestApp(t, testDeps{assessments: assessments})

	status, body := do(t, app, http.MethodGet, "/assessment/status/E1/2A", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, service.StatusInProgress, body["status"])
	assert.Equal(t, float64(50), body["expected"])
	assert.Equal(t, float64(80), body["last_score"], "a reopened pair reports its archived score")

	status, body = do(t, app, http.MethodGet, "/assessment/history/E1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "E1", body["employee_id"])

	history := body["history"].([]any)
	require.Len(t, history, 2)
	completed := history[0].(map[string]any)
	assert.Equal(t, float64(80), completed["total_score"])
	assert.Equal(t, "2025-05-02T10:00:00Z", completed["completed_at"])

	inProgress := history[1].(map[string]any)
	assert.NotContains(t, inProgress, "total_score")
	assert.Equal(t, []any{}, inProgress["sections"])
}

func TestStartTimeAndHealth(t *testing.T) {
	db := &mocks.MockPinger{}
	app := newTestApp(t, testDeps{db: db})

	status, body := do(t, app, http.MethodGet, "/server/start-time", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2025-05-01T08:00:00Z", body["start_time"])

	status, body = do(t, app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	db.PingContextFunc = func(context.Context) error { return errors.New("connection refused") }
	status, body = do(t, app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "database unavailable", body["detail"])
}
