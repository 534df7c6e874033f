package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/godilite/assessment-server/internal/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns the first validator failure into a short message
// naming the JSON field.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err.Error()
	}

	fe := errs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// AnswerValue accepts a JSON string or number and keeps its text form.
type AnswerValue string

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = AnswerValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("answer_value must be a string or number")
	}
	*v = AnswerValue(n.String())
	return nil
}

type AnswerRequest struct {
	EmployeeID  string      `json:"employee_id" validate:"required"`
	Band        string      `json:"band" validate:"required"`
	Category    string      `json:"category" validate:"required"`
	Question    string      `json:"question" validate:"required"`
	AnswerValue AnswerValue `json:"answer_value"`
}

type SectionAnswer struct {
	Question    string      `json:"question" validate:"required"`
	AnswerValue AnswerValue `json:"answer_value"`
}

type SectionSubmitRequest struct {
	EmployeeID string          `json:"employee_id" validate:"required"`
	Band       string          `json:"band" validate:"required"`
	Category   string          `json:"category" validate:"required"`
	Answers    []SectionAnswer `json:"answers" validate:"required,min=1,dive"`
}

type SubmitRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Band       string `json:"band" validate:"required"`
}

type QuestionSetResponse struct {
	Band            string                    `json:"band"`
	CategoriesFound int                       `json:"categories_found"`
	Categories      []string                  `json:"categories"`
	TotalQuestions  int                       `json:"total_questions"`
	Questions       []service.SampledQuestion `json:"questions"`
}

type CategoryQuestion struct {
	Question string `json:"question"`
}

type CategorySampleResponse struct {
	Band           string             `json:"band"`
	Category       string             `json:"category"`
	TotalQuestions int                `json:"total_questions"`
	Questions      []CategoryQuestion `json:"questions"`
}

type AnswerResponse struct {
	Category    string    `json:"category"`
	Question    string    `json:"question"`
	AnswerValue string    `json:"answer_value"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AnswersResponse struct {
	EmployeeID string           `json:"employee_id"`
	Band       string           `json:"band"`
	Answers    []AnswerResponse `json:"answers"`
}

type ResultResponse struct {
	EmployeeNumber   string                  `json:"employee_number"`
	Band             string                  `json:"agreed_band"`
	TotalScore       float64                 `json:"total_score"`
	CategoryScores   []service.CategoryScore `json:"category_scores"`
	QuestionsAnswers []service.Section       `json:"questions_answers"`
	CompletedAt      time.Time               `json:"completed_at"`
}

type SectionSubmitResponse struct {
	Message        string          `json:"message"`
	QuestionsSaved int             `json:"questions_saved"`
	Answered       int             `json:"answered"`
	Expected       int             `json:"expected"`
	Status         string          `json:"status"`
	Result         *ResultResponse `json:"result,omitempty"`
}

type StatusResponse struct {
	EmployeeID string   `json:"employee_id"`
	Band       string   `json:"band"`
	Status     string   `json:"status"`
	Answered   int      `json:"answered"`
	Expected   int      `json:"expected"`
	LastScore  *float64 `json:"last_score,omitempty"`
}

type HistoryEntry struct {
	Band           string                  `json:"band"`
	Status         string                  `json:"status"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	TotalScore     *float64                `json:"total_score,omitempty"`
	CategoryScores []service.CategoryScore `json:"category_scores,omitempty"`
	Sections       []service.Section       `json:"sections"`
}

type HistoryResponse struct {
	EmployeeID string         `json:"employee_id"`
	History    []HistoryEntry `json:"history"`
}

func toResultResponse(r service.Result) ResultResponse {
	return ResultResponse{
		EmployeeNumber:   r.EmployeeID,
		Band:             r.Band,
		TotalScore:       r.TotalScore,
		CategoryScores:   r.CategoryScores,
		QuestionsAnswers: r.Sections,
		CompletedAt:      r.CompletedAt,
	}
}

func toHistoryResponse(employeeID string, history []service.BandHistory) HistoryResponse {
	resp := HistoryResponse{EmployeeID: employeeID, History: make([]HistoryEntry, 0, len(history))}
	for _, h := range history {
		sections := h.Sections
		if sections == nil {
			sections = []service.Section{}
		}
		resp.History = append(resp.History, HistoryEntry{
			Band:           h.Band,
			Status:         h.Status,
			CompletedAt:    h.CompletedAt,
			TotalScore:     h.TotalScore,
			CategoryScores: h.CategoryScores,
			Sections:       sections,
		})
	}
	return resp
}
