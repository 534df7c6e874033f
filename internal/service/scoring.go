package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/godilite/assessment-server/internal/repository/models"
)

// MaxAnswerValue is the top of the 1-5 answer scale.
const MaxAnswerValue = 5.0

type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Answered int     `json:"answered"`
}

type Scorecard struct {
	Overall    float64
	Categories []CategoryScore
}

// ParseAnswerValue reads an answer as an integer or float. Anything else,
// including NaN and infinities, counts as 0.
func ParseAnswerValue(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

type categoryTotals struct {
	name  string
	sum   float64
	count int
}

// groupTotals sums answer values per category, keeping first-seen order.
func groupTotals(answers []models.AnswerRecord) []*categoryTotals {
	index := make(map[string]*categoryTotals)
	var ordered []*categoryTotals
	for _, a := range answers {
		t, ok := index[a.Category]
		if !ok {
			t = &categoryTotals{name: a.Category}
			index[a.Category] = t
			ordered = append(ordered, t)
		}
		t.sum += ParseAnswerValue(a.AnswerValue)
		t.count++
	}
	return ordered
}

func percentOfMax(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / (float64(count) * MaxAnswerValue) * 100
}

// ScoreAnswers computes category percentages and the overall percentage.
// The overall score is weighted by question count: total of all values over
// total of all maximums.
func ScoreAnswers(answers []models.AnswerRecord) Scorecard {
	totals := groupTotals(answers)

	card := Scorecard{Categories: make([]CategoryScore, 0, len(totals))}
	var sum float64
	var count int
	for _, t := range totals {
		card.Categories = append(card.Categories, CategoryScore{
			Category: t.name,
			Score:    percentOfMax(t.sum, t.count),
			Answered: t.count,
		})
		sum += t.sum
		count += t.count
	}
	card.Overall = percentOfMax(sum, count)
	return card
}

// ScoreAnswersSimple is the legacy scoring: each category is its mean
// value over the scale maximum, and the overall score is the plain mean of
// the category scores.
func ScoreAnswersSimple(answers []models.AnswerRecord) Scorecard {
	totals := groupTotals(answers)

	card := Scorecard{Categories: make([]CategoryScore, 0, len(totals))}
	var sum float64
	for _, t := range totals {
		score := percentOfMax(t.sum, t.count)
		card.Categories = append(card.Categories, CategoryScore{
			Category: t.name,
			Score:    score,
			Answered: t.count,
		})
		sum += score
	}
	if len(card.Categories) > 0 {
		card.Overall = sum / float64(len(card.Categories))
	}
	return card
}

// BuildSections groups answers into per-category sections, keeping the
// order of the input.
func BuildSections(answers []models.AnswerRecord) []Section {
	index := make(map[string]int)
	sections := make([]Section, 0)
	for _, a := range answers {
		i, ok := index[a.Category]
		if !ok {
			i = len(sections)
			index[a.Category] = i
			sections = append(sections, Section{Category: a.Category})
		}
		sections[i].Questions = append(sections[i].Questions, QuestionAnswer{
			Question:    a.Question,
			AnswerValue: a.AnswerValue,
		})
	}
	return sections
}
