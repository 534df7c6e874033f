package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/internal/repository/repotest"
)

func answer(employee, band, category, question, value string, at time.Time) models.AnswerRecord {
	return models.AnswerRecord{
		EmployeeID:  employee,
		Band:        band,
		Category:    category,
		Question:    question,
		AnswerValue: value,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestAssessmentRepository_Answers(t *testing.T) {
	ctx := context.Background()
	db := repotest.NewSQLiteDB(t)
	repo := repository.NewAssessmentRepository(db, repository.SQLite)

	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertAnswers(ctx,
		answer("E1", "2A", "Leadership", "Q2", "3", t0),
		answer("E1", "2A", "Communication", "Q1", "4", t0),
		answer("E1", "3B", "Leadership", "Q9", "1", t0),
		answer("E2", "2A", "Leadership", "Q2", "5", t0),
	))

	t.Run("upsert is keyed by employee, band and question", func(t *testing.T) {
		t1 := t0.Add(time.Hour)
		require.NoError(t, repo.UpsertAnswers(ctx, answer("E1", "2A", "Leadership", "Q2", "5", t1)))
		require.NoError(t, repo.UpsertAnswers(ctx, answer("E1", "2A", "Leadership", "Q2", "5", t1)))

		count, err := repo.CountAnswers(ctx, "E1", "2A")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		answers, err := repo.ListAnswers(ctx, "E1", "2A")
		require.NoError(t, err)
		require.Len(t, answers, 2)

		assert.Equal(t, "Communication", answers[0].Category)
		assert.Equal(t, "Leadership", answers[1].Category)
		assert.Equal(t, "5", answers[1].AnswerValue)
		assert.True(t, answers[1].CreatedAt.Equal(t0), "created_at is preserved")
		assert.True(t, answers[1].UpdatedAt.Equal(t1), "updated_at is refreshed")
	})

	t.Run("bands with live answers", func(t *testing.T) {
		bands, err := repo.AnswerBands(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, []string{"2A", "3B"}, bands)
	})

	t.Run("delete only touches the key", func(t *testing.T) {
		n, err := repo.DeleteAnswers(ctx, "E1", "2A")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		count, err := repo.CountAnswers(ctx, "E1", "2A")
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = repo.CountAnswers(ctx, "E2", "2A")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestAssessmentRepository_Results(t *testing.T) {
	ctx := context.Background()
	db := repotest.NewSQLiteDB(t)
	repo := repository.NewAssessmentRepository(db, repository.SQLite)

	_, err := repo.GetResult(ctx, "E1", "2A")
	assert.ErrorIs(t, err, repository.ErrResultNotFound)

	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertResult(ctx, models.ResultRecord{
		EmployeeNumber:   "E1",
		Band:             "2A",
		TotalScore:       40,
		CategoryScores:   []byte(`[{"category":"A","score":40,"answered":1}]`),
		QuestionsAnswers: []byte(`[{"category":"A","questions":[{"question":"q","answer_value":"2"}]}]`),
		CompletedAt:      t0,
	}))
	require.NoError(t, repo.UpsertResult(ctx, models.ResultRecord{
		EmployeeNumber: "E1",
		Band:           "2A",
		TotalScore:     80,
		CategoryScores: []byte(`[{"category":"A","score":80,"answered":1}]`),
		CompletedAt:    t0.Add(time.Hour),
	}))
	require.NoError(t, repo.UpsertResult(ctx, models.ResultRecord{
		EmployeeNumber: "E1",
		Band:           "1C",
		TotalScore:     100,
		CategoryScores: []byte(`[]`),
		CompletedAt:    t0,
	}))

	res, err := repo.GetResult(ctx, "E1", "2A")
	require.NoError(t, err)
	assert.Equal(t, 80.0, res.TotalScore)
	assert.JSONEq(t, `[{"category":"A","score":80,"answered":1}]`, string(res.CategoryScores))
	assert.Nil(t, res.QuestionsAnswers, "a result without snapshot stores NULL")
	assert.True(t, res.CompletedAt.Equal(t0.Add(time.Hour)))

	results, err := repo.ListResults(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, results, 2, "one row per employee and band")
	assert.Equal(t, "1C", results[0].Band)
	assert.Equal(t, "2A", results[1].Band)
}

func TestAssessmentRepository_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db := repotest.NewSQLiteDB(t)
		repo := repository.NewAssessmentRepository(db, repository.SQLite)
		now := time.Now().UTC()

		err := repo.WithTx(ctx, func(store repository.AssessmentStore) error {
			if err := store.UpsertAnswers(ctx, answer("E1", "2A", "A", "Q1", "4", now)); err != nil {
				return err
			}
			count, err := store.CountAnswers(ctx, "E1", "2A")
			if err != nil {
				return err
			}
			assert.Equal(t, 1, count, "writes are visible inside the transaction")
			return store.WithTx(ctx, func(nested repository.AssessmentStore) error {
				_, err := nested.DeleteAnswers(ctx, "E1", "2A")
				return err
			})
		})
		require.NoError(t, err)

		count, err := repo.CountAnswers(ctx, "E1", "2A")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("rolls back every step on error", func(t *testing.T) {
		db := repotest.NewSQLiteDB(t)
		repo := repository.NewAssessmentRepository(db, repository.SQLite)
		now := time.Now().UTC()
		boom := errors.New("boom")

		err := repo.WithTx(ctx, func(store repository.AssessmentStore) error {
			if err := store.UpsertAnswers(ctx, answer("E1", "2A", "A", "Q1", "4", now)); err != nil {
				return err
			}
			if err := store.UpsertResult(ctx, models.ResultRecord{
				EmployeeNumber: "E1", Band: "2A", TotalScore: 80,
				CategoryScores: []byte(`[]`), CompletedAt: now,
			}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		count, err := repo.CountAnswers(ctx, "E1", "2A")
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = repo.GetResult(ctx, "E1", "2A")
		assert.ErrorIs(t, err, repository.ErrResultNotFound)
	})

	t.Run("failed statement rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO assessment_answers").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		repo := repository.NewAssessmentRepository(db, repository.Postgres)
		err = repo.WithTx(ctx, func(store repository.AssessmentStore) error {
			return store.UpsertAnswers(ctx, answer("E1", "2A", "A", "Q1", "4", time.Now()))
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAssessmentRepository_LockAssessment(t *testing.T) {
	ctx := context.Background()

	t.Run("postgres takes a transaction advisory lock on the pair", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtextextended\(\$1, 0\)\)`).
			WithArgs("assessment:E1:2A").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO assessment_answers").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := repository.NewAssessmentRepository(db, repository.Postgres)
		err = repo.WithTx(ctx, func(store repository.AssessmentStore) error {
			if err := store.LockAssessment(ctx, "E1", "2A"); err != nil {
				return err
			}
			return store.UpsertAnswers(ctx, answer("E1", "2A", "A", "Q1", "4", time.Now()))
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("postgres refuses to lock outside a transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := repository.NewAssessmentRepository(db, repository.Postgres)
		assert.Error(t, repo.LockAssessment(ctx, "E1", "2A"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sqlite needs no lock", func(t *testing.T) {
		repo := repository.NewAssessmentRepository(repotest.NewSQLiteDB(t), repository.SQLite)
		err := repo.WithTx(ctx, func(store repository.AssessmentStore) error {
			return store.LockAssessment(ctx, "E1", "2A")
		})
		assert.NoError(t, err)
	})
}
