package models

import "time"

// Employee is a row of sails_employee_data. Attributes holds every column
// of the row as returned by the database.
type Employee struct {
	Number     string
	Name       string
	Band       string
	Attributes map[string]any
}

type CategoryQuestions struct {
	Category  string   `json:"category"`
	Questions []string `json:"questions"`
}

// BandCatalog is the full question set of one band table.
type BandCatalog struct {
	Band       string              `json:"band"`
	Table      string              `json:"table"`
	Categories []CategoryQuestions `json:"categories"`
}

type AnswerRecord struct {
	EmployeeID  string
	Band        string
	Category    string
	Question    string
	AnswerValue string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResultRecord is a row of assessment_results. CategoryScores and
// QuestionsAnswers hold the raw JSON columns; QuestionsAnswers is nil for
// rows archived before the snapshot column existed.
type ResultRecord struct {
	EmployeeNumber   string
	Band             string
	TotalScore       float64
	CategoryScores   []byte
	QuestionsAnswers []byte
	CompletedAt      time.Time
}
