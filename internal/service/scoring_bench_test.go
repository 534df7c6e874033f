package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/internal/repository/repotest"
)

func benchAnswers(categories, perCategory int) []models.AnswerRecord {
	answers := make([]models.AnswerRecord, 0, categories*perCategory)
	for c := 0; c < categories; c++ {
		for q := 0; q < perCategory; q++ {
			answers = append(answers, models.AnswerRecord{
				Category:    fmt.Sprintf("Category %d", c),
				Question:    fmt.Sprintf("Question %d", q),
				AnswerValue: fmt.Sprint(q % 6),
			})
		}
	}
	return answers
}

func BenchmarkScoreAnswers(b *testing.B) {
	answers := benchAnswers(8, 25)
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = ScoreAnswers(answers)
		_ = BuildSections(answers)
	}
}

func BenchmarkSampleQuestions(b *testing.B) {
	db := repotest.NewSQLiteDB(b)
	repotest.SeedBand(b, db, "band2A", 60, "Communication", "Leadership", "Technical")

	svc := NewCatalogService(repository.NewCatalogRepository(db, repository.SQLite), nil, zap.NewNop(), time.Minute, 25)
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = svc.SampleQuestions(context.Background(), "2A")
	}
}
