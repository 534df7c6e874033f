package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
)

const (
	dbTimeout = 5 * time.Second
)

type scoreFunc func([]models.AnswerRecord) Scorecard

// AssessmentService owns the answer lifecycle of an (employee, band) pair:
// answers are upserted while in progress, and once the expected count is
// reached they are scored, archived and purged in one transaction.
type AssessmentService struct {
	store   repository.AssessmentStore
	catalog ExpectedCounter
	logger  *zap.Logger
	now     func() time.Time
}

// NewAssessmentService creates a new AssessmentService instance.
func NewAssessmentService(store repository.AssessmentStore, catalog ExpectedCounter, logger *zap.Logger) *AssessmentService {
	if store == nil {
		panic("store must not be nil")
	}
	if catalog == nil {
		panic("catalog must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &AssessmentService{
		store:   store,
		catalog: catalog,
		logger:  logger.Named("assessment"),
		now:     time.Now,
	}
}

// SaveAnswer upserts a single answer. It never completes an assessment.
func (s *AssessmentService) SaveAnswer(ctx context.Context, answer Answer) error {
	band, err := normalizeBand(answer.Band)
	if err != nil {
		return err
	}
	answer.EmployeeID = strings.TrimSpace(answer.EmployeeID)
	answer.Category = strings.TrimSpace(answer.Category)
	if answer.EmployeeID == "" || answer.Category == "" || strings.TrimSpace(answer.Question) == "" {
		return fmt.Errorf("%w: employee_id, category and question are required", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	now := s.now().UTC()
	err = s.store.UpsertAnswers(dbCtx, models.AnswerRecord{
		EmployeeID:  answer.EmployeeID,
		Band:        band,
		Category:    answer.Category,
		Question:    answer.Question,
		AnswerValue: answer.AnswerValue,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return storageError(err, "answer")
	}
	return nil
}

func (s *AssessmentService) ListAnswers(ctx context.Context, employeeID, band string) ([]Answer, error) {
	normalized, err := normalizeBand(band)
	if err != nil {
		return nil, err
	}
	employeeID = strings.TrimSpace(employeeID)

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	records, err := s.store.ListAnswers(dbCtx, employeeID, normalized)
	if err != nil {
		return nil, storageError(err, "answers")
	}

	answers := make([]Answer, 0, len(records))
	for _, r := range records {
		answers = append(answers, Answer{
			EmployeeID:  r.EmployeeID,
			Band:        r.Band,
			Category:    r.Category,
			Question:    r.Question,
			AnswerValue: r.AnswerValue,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return answers, nil
}

// SubmitSection upserts a batch of answers for one category and completes
// the assessment when the stored count reaches the expected total. The
// upsert, count, scoring, archive and purge share one transaction.
func (s *AssessmentService) SubmitSection(ctx context.Context, sub SectionSubmission) (SectionOutcome, error) {
	band, err := normalizeBand(sub.Band)
	if err != nil {
		return SectionOutcome{}, err
	}
	employeeID := strings.TrimSpace(sub.EmployeeID)
	category := strings.TrimSpace(sub.Category)
	if employeeID == "" || category == "" {
		return SectionOutcome{}, fmt.Errorf("%w: employee_id and category are required", ErrValidation)
	}
	if len(sub.Answers) == 0 {
		return SectionOutcome{}, fmt.Errorf("%w: answers must not be empty", ErrValidation)
	}

	expected, err := s.catalog.ExpectedAnswers(ctx, band)
	if err != nil {
		return SectionOutcome{}, err
	}

	now := s.now().UTC()
	records := make([]models.AnswerRecord, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		if strings.TrimSpace(a.Question) == "" {
			return SectionOutcome{}, fmt.Errorf("%w: question must not be empty", ErrValidation)
		}
		records = append(records, models.AnswerRecord{
			EmployeeID:  employeeID,
			Band:        band,
			Category:    category,
			Question:    a.Question,
			AnswerValue: a.AnswerValue,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var outcome SectionOutcome
	err = s.store.WithTx(dbCtx, func(tx repository.AssessmentStore) error {
		if err := tx.LockAssessment(dbCtx, employeeID, band); err != nil {
			return err
		}
		if err := tx.UpsertAnswers(dbCtx, records...); err != nil {
			return err
		}
		count, err := tx.CountAnswers(dbCtx, employeeID, band)
		if err != nil {
			return err
		}

		outcome = SectionOutcome{
			Saved:    len(records),
			Answered: count,
			Expected: expected,
			Status:   StatusInProgress,
		}
		if count < expected {
			return nil
		}

		result, err := s.finalize(dbCtx, tx, employeeID, band, ScoreAnswers, now)
		if err != nil {
			return err
		}
		outcome.Status = StatusCompleted
		outcome.Result = &result
		return nil
	})
	if err != nil {
		return SectionOutcome{}, txError(err)
	}

	s.logger.Info("section submitted",
		zap.String("employee_id", employeeID),
		zap.String("band", band),
		zap.String("category", category),
		zap.Int("saved", outcome.Saved),
		zap.Int("answered", outcome.Answered),
		zap.Int("expected", outcome.Expected),
		zap.String("status", outcome.Status))

	return outcome, nil
}

// SubmitLegacy finalizes whatever answers exist for the pair using the
// simple per-category averaging, regardless of how many are answered.
func (s *AssessmentService) SubmitLegacy(ctx context.Context, employeeID, band string) (Result, error) {
	normalized, err := normalizeBand(band)
	if err != nil {
		return Result{}, err
	}
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return Result{}, fmt.Errorf("%w: employee_id is required", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var result Result
	err = s.store.WithTx(dbCtx, func(tx repository.AssessmentStore) error {
		if err := tx.LockAssessment(dbCtx, employeeID, normalized); err != nil {
			return err
		}
		var err error
		result, err = s.finalize(dbCtx, tx, employeeID, normalized, ScoreAnswersSimple, s.now().UTC())
		return err
	})
	if err != nil {
		return Result{}, txError(err)
	}

	s.logger.Info("assessment submitted",
		zap.String("employee_id", employeeID),
		zap.String("band", normalized),
		zap.Float64("total_score", result.TotalScore))

	return result, nil
}

// finalize scores the live answers, archives the result with its snapshot
// and purges the answers. It must run inside a transaction.
func (s *AssessmentService) finalize(ctx context.Context, tx repository.AssessmentStore, employeeID, band string, score scoreFunc, completedAt time.Time) (Result, error) {
	answers, err := tx.ListAnswers(ctx, employeeID, band)
	if err != nil {
		return Result{}, err
	}
	if len(answers) == 0 {
		return Result{}, fmt.Errorf("answers for employee %s band %s: %w", employeeID, band, ErrNotFound)
	}

	card := score(answers)
	sections := BuildSections(answers)

	scoresJSON, err := json.Marshal(card.Categories)
	if err != nil {
		return Result{}, fmt.Errorf("marshal category scores: %w", err)
	}
	snapshotJSON, err := json.Marshal(sections)
	if err != nil {
		return Result{}, fmt.Errorf("marshal answer snapshot: %w", err)
	}

	err = tx.UpsertResult(ctx, models.ResultRecord{
		EmployeeNumber:   employeeID,
		Band:             band,
		TotalScore:       card.Overall,
		CategoryScores:   scoresJSON,
		QuestionsAnswers: snapshotJSON,
		CompletedAt:      completedAt,
	})
	if err != nil {
		return Result{}, err
	}

	if _, err := tx.DeleteAnswers(ctx, employeeID, band); err != nil {
		return Result{}, err
	}

	return Result{
		EmployeeID:     employeeID,
		Band:           band,
		TotalScore:     card.Overall,
		CategoryScores: card.Categories,
		Sections:       sections,
		CompletedAt:    completedAt,
	}, nil
}

// LatestResult returns the archived result of the pair.
func (s *AssessmentService) LatestResult(ctx context.Context, employeeID, band string) (Result, error) {
	normalized, err := normalizeBand(band)
	if err != nil {
		return Result{}, err
	}
	employeeID = strings.TrimSpace(employeeID)

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := s.store.GetResult(dbCtx, employeeID, normalized)
	if err != nil {
		return Result{}, storageError(err, fmt.Sprintf("result for employee %s band %s", employeeID, normalized))
	}
	return s.decodeResult(rec), nil
}

// Status reports where the pair stands in Not Started, In Progress,
// Completed. Answers written after the archived result reopen the pair:
// it is In Progress again and the archived score is reported as LastScore.
func (s *AssessmentService) Status(ctx context.Context, employeeID, band string) (StatusReport, error) {
	normalized, err := normalizeBand(band)
	if err != nil {
		return StatusReport{}, err
	}
	employeeID = strings.TrimSpace(employeeID)

	expected, err := s.catalog.ExpectedAnswers(ctx, normalized)
	if err != nil {
		return StatusReport{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	report := StatusReport{
		EmployeeID: employeeID,
		Band:       normalized,
		Status:     StatusNotStarted,
		Expected:   expected,
	}

	rec, err := s.store.GetResult(dbCtx, employeeID, normalized)
	switch {
	case err == nil:
		answers, err := s.store.ListAnswers(dbCtx, employeeID, normalized)
		if err != nil {
			return StatusReport{}, storageError(err, "answers")
		}

		result := s.decodeResult(rec)
		if !reopened(answers, rec.CompletedAt) {
			report.Status = StatusCompleted
			for _, c := range result.CategoryScores {
				report.Answered += c.Answered
			}
			return report, nil
		}

		lastScore := result.TotalScore
		report.Status = StatusInProgress
		report.Answered = len(answers)
		report.LastScore = &lastScore
		return report, nil
	case !errors.Is(err, repository.ErrResultNotFound):
		return StatusReport{}, storageError(err, "result")
	}

	count, err := s.store.CountAnswers(dbCtx, employeeID, normalized)
	if err != nil {
		return StatusReport{}, storageError(err, "answers")
	}
	report.Answered = count
	if count > 0 {
		report.Status = StatusInProgress
	}
	return report, nil
}

// reopened reports whether any live answer was written after the pair was
// completed. Rows no newer than the completion belong to the archived
// result, as left behind by deployments that did not purge answers.
func reopened(answers []models.AnswerRecord, completedAt time.Time) bool {
	for _, a := range answers {
		if a.UpdatedAt.After(completedAt) {
			return true
		}
	}
	return false
}

// History merges archived results and live answers into one entry per band,
// sorted by band. A reopened band is In Progress with its live sections and
// carries the score and completion time of its archived result.
func (s *AssessmentService) History(ctx context.Context, employeeID string) ([]BandHistory, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, fmt.Errorf("%w: employee_id is required", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	results, err := s.store.ListResults(dbCtx, employeeID)
	if err != nil {
		return nil, storageError(err, "results")
	}
	liveBands, err := s.store.AnswerBands(dbCtx, employeeID)
	if err != nil {
		return nil, storageError(err, "answers")
	}

	seen := make(map[string]bool, len(results)+len(liveBands))
	history := make([]BandHistory, 0, len(results)+len(liveBands))

	for _, rec := range results {
		if seen[rec.Band] {
			continue
		}
		seen[rec.Band] = true

		answers, err := s.store.ListAnswers(dbCtx, employeeID, rec.Band)
		if err != nil {
			return nil, storageError(err, "answers")
		}

		result := s.decodeResult(rec)
		entry := BandHistory{
			Band:           rec.Band,
			Status:         StatusCompleted,
			CompletedAt:    &result.CompletedAt,
			TotalScore:     &result.TotalScore,
			CategoryScores: result.CategoryScores,
			Sections:       result.Sections,
		}
		switch {
		case reopened(answers, rec.CompletedAt):
			entry.Status = StatusInProgress
			entry.Sections = BuildSections(answers)
		case len(entry.Sections) == 0:
			entry.Sections = BuildSections(answers)
		}
		history = append(history, entry)
	}

	for _, band := range liveBands {
		if seen[band] {
			continue
		}
		seen[band] = true

		answers, err := s.store.ListAnswers(dbCtx, employeeID, band)
		if err != nil {
			return nil, storageError(err, "answers")
		}
		history = append(history, BandHistory{
			Band:     band,
			Status:   StatusInProgress,
			Sections: BuildSections(answers),
		})
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].Band < history[j].Band
	})
	return history, nil
}

// decodeResult unpacks the JSON columns of an archived result. Malformed
// JSON is logged and left empty.
func (s *AssessmentService) decodeResult(rec models.ResultRecord) Result {
	result := Result{
		EmployeeID:     rec.EmployeeNumber,
		Band:           rec.Band,
		TotalScore:     rec.TotalScore,
		CategoryScores: []CategoryScore{},
		Sections:       []Section{},
		CompletedAt:    rec.CompletedAt,
	}

	if len(rec.CategoryScores) > 0 {
		var scores []CategoryScore
		if err := json.Unmarshal(rec.CategoryScores, &scores); err != nil {
			s.logger.Warn("malformed category scores",
				zap.String("employee_id", rec.EmployeeNumber),
				zap.String("band", rec.Band),
				zap.Error(err))
		} else if scores != nil {
			result.CategoryScores = scores
		}
	}

	if len(rec.QuestionsAnswers) > 0 {
		var sections []Section
		if err := json.Unmarshal(rec.QuestionsAnswers, &sections); err != nil {
			s.logger.Warn("malformed answer snapshot",
				zap.String("employee_id", rec.EmployeeNumber),
				zap.String("band", rec.Band),
				zap.Error(err))
		} else if sections != nil {
			result.Sections = sections
		}
	}

	return result
}

// txError keeps service errors raised inside a transaction and classifies
// the rest as storage failures.
func txError(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	return storageError(err, "assessment")
}
