package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/pkg/database"
)

// AssessmentStore is the answer store and result archive of one database
// handle. Stores passed to a WithTx callback share that transaction.
type AssessmentStore interface {
	UpsertAnswers(ctx context.Context, answers ...models.AnswerRecord) error
	ListAnswers(ctx context.Context, employeeID, band string) ([]models.AnswerRecord, error)
	CountAnswers(ctx context.Context, employeeID, band string) (int, error)
	DeleteAnswers(ctx context.Context, employeeID, band string) (int64, error)
	AnswerBands(ctx context.Context, employeeID string) ([]string, error)

	UpsertResult(ctx context.Context, result models.ResultRecord) error
	GetResult(ctx context.Context, employeeID, band string) (models.ResultRecord, error)
	ListResults(ctx context.Context, employeeID string) ([]models.ResultRecord, error)

	WithTx(ctx context.Context, fn func(store AssessmentStore) error) error
	LockAssessment(ctx context.Context, employeeID, band string) error
}

type AssessmentRepository struct {
	db      *sql.DB
	q       DBTX
	dialect Dialect
}

func NewAssessmentRepository(db *sql.DB, dialect Dialect) *AssessmentRepository {
	return &AssessmentRepository{db: db, q: db, dialect: dialect}
}

// WithTx runs fn against a repository bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Calling
// WithTx on a repository that is already inside a transaction reuses it.
func (r *AssessmentRepository) WithTx(ctx context.Context, fn func(store AssessmentStore) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&AssessmentRepository{db: r.db, q: tx, dialect: r.dialect})
	})
}

// LockAssessment serializes transactions working on one (employee, band)
// pair until the surrounding transaction ends, so a completion count sees
// the answers of every earlier submit. Postgres takes a transaction-scoped
// advisory lock. SQLite already admits one writer at a time, so it is a
// no-op there.
func (r *AssessmentRepository) LockAssessment(ctx context.Context, employeeID, band string) error {
	if r.dialect != Postgres {
		return nil
	}
	if _, inTx := r.q.(*sql.Tx); !inTx {
		return errors.New("lock assessment: must run inside a transaction")
	}

	const query = `SELECT pg_advisory_xact_lock(hashtextextended(?, 0))`
	if _, err := r.q.ExecContext(ctx, r.dialect.Rebind(query), assessmentLockKey(employeeID, band)); err != nil {
		return fmt.Errorf("lock assessment: %w", err)
	}
	return nil
}

func assessmentLockKey(employeeID, band string) string {
	return "assessment:" + employeeID + ":" + band
}

const upsertAnswerQuery = `
	INSERT INTO assessment_answers
		(employee_id, band, category, question, answer_value, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (employee_id, band, question) DO UPDATE SET
		category = excluded.category,
		answer_value = excluded.answer_value,
		updated_at = excluded.updated_at
`

// UpsertAnswers writes each answer keyed by (employee_id, band, question).
// An existing row keeps its created_at.
func (r *AssessmentRepository) UpsertAnswers(ctx context.Context, answers ...models.AnswerRecord) error {
	query := r.dialect.Rebind(upsertAnswerQuery)
	for _, a := range answers {
		_, err := r.q.ExecContext(ctx, query,
			a.EmployeeID, a.Band, a.Category, a.Question, a.AnswerValue, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
	}
	return nil
}

func (r *AssessmentRepository) ListAnswers(ctx context.Context, employeeID, band string) ([]models.AnswerRecord, error) {
	const query = `
		SELECT employee_id, band, category, question, answer_value, created_at, updated_at
		FROM assessment_answers
		WHERE employee_id = ? AND band = ?
		ORDER BY category, question
	`

	rows, err := r.q.QueryContext(ctx, r.dialect.Rebind(query), employeeID, band)
	if err != nil {
		return nil, fmt.Errorf("query ListAnswers: %w", err)
	}
	defer rows.Close()

	var answers []models.AnswerRecord
	for rows.Next() {
		var a models.AnswerRecord
		if err := rows.Scan(&a.EmployeeID, &a.Band, &a.Category, &a.Question, &a.AnswerValue, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ListAnswers row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListAnswers: %w", err)
	}
	return answers, nil
}

func (r *AssessmentRepository) CountAnswers(ctx context.Context, employeeID, band string) (int, error) {
	const query = `SELECT COUNT(*) FROM assessment_answers WHERE employee_id = ? AND band = ?`

	var count int
	if err := r.q.QueryRowContext(ctx, r.dialect.Rebind(query), employeeID, band).Scan(&count); err != nil {
		return 0, fmt.Errorf("query CountAnswers: %w", err)
	}
	return count, nil
}

func (r *AssessmentRepository) DeleteAnswers(ctx context.Context, employeeID, band string) (int64, error) {
	const query = `DELETE FROM assessment_answers WHERE employee_id = ? AND band = ?`

	res, err := r.q.ExecContext(ctx, r.dialect.Rebind(query), employeeID, band)
	if err != nil {
		return 0, fmt.Errorf("delete answers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete answers rows affected: %w", err)
	}
	return n, nil
}

// AnswerBands lists the bands that still have live answer rows for an
// employee.
func (r *AssessmentRepository) AnswerBands(ctx context.Context, employeeID string) ([]string, error) {
	const query = `SELECT DISTINCT band FROM assessment_answers WHERE employee_id = ? ORDER BY band`

	rows, err := r.q.QueryContext(ctx, r.dialect.Rebind(query), employeeID)
	if err != nil {
		return nil, fmt.Errorf("query AnswerBands: %w", err)
	}
	defer rows.Close()

	var bands []string
	for rows.Next() {
		var band string
		if err := rows.Scan(&band); err != nil {
			return nil, fmt.Errorf("scan AnswerBands row: %w", err)
		}
		bands = append(bands, band)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate AnswerBands: %w", err)
	}
	return bands, nil
}

const upsertResultQuery = `
	INSERT INTO assessment_results
		(employee_number, agreed_band, total_score, category_scores, questions_answers, completed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (employee_number, agreed_band) DO UPDATE SET
		total_score = excluded.total_score,
		category_scores = excluded.category_scores,
		questions_answers = excluded.questions_answers,
		completed_at = excluded.completed_at
`

// UpsertResult archives a result keyed by (employee_number, agreed_band),
// replacing any earlier result for the same key.
func (r *AssessmentRepository) UpsertResult(ctx context.Context, result models.ResultRecord) error {
	var snapshot any
	if len(result.QuestionsAnswers) > 0 {
		snapshot = string(result.QuestionsAnswers)
	}

	_, err := r.q.ExecContext(ctx, r.dialect.Rebind(upsertResultQuery),
		result.EmployeeNumber, result.Band, result.TotalScore,
		string(result.CategoryScores), snapshot, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

const resultColumns = `employee_number, agreed_band, total_score, category_scores, questions_answers, completed_at`

// GetResult returns the most recent result for the key, or
// ErrResultNotFound.
func (r *AssessmentRepository) GetResult(ctx context.Context, employeeID, band string) (models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + `
		FROM assessment_results
		WHERE employee_number = ? AND agreed_band = ?
		ORDER BY completed_at DESC
		LIMIT 1`

	res, err := scanResult(r.q.QueryRowContext(ctx, r.dialect.Rebind(query), employeeID, band))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ResultRecord{}, ErrResultNotFound
	}
	if err != nil {
		return models.ResultRecord{}, fmt.Errorf("query GetResult: %w", err)
	}
	return res, nil
}

func (r *AssessmentRepository) ListResults(ctx context.Context, employeeID string) ([]models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + `
		FROM assessment_results
		WHERE employee_number = ?
		ORDER BY agreed_band, completed_at DESC`

	rows, err := r.q.QueryContext(ctx, r.dialect.Rebind(query), employeeID)
	if err != nil {
		return nil, fmt.Errorf("query ListResults: %w", err)
	}
	defer rows.Close()

	var results []models.ResultRecord
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListResults row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListResults: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (models.ResultRecord, error) {
	var (
		res      models.ResultRecord
		scores   []byte
		snapshot []byte
	)
	if err := row.Scan(&res.EmployeeNumber, &res.Band, &res.TotalScore, &scores, &snapshot, &res.CompletedAt); err != nil {
		return models.ResultRecord{}, err
	}
	res.CategoryScores = scores
	res.QuestionsAnswers = snapshot
	return res, nil
}
