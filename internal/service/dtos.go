package service

import "time"

const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

type SampledQuestion struct {
	Band     string `json:"band"`
	Category string `json:"category"`
	Question string `json:"question"`
}

// QuestionSet is a shuffled sample across every category of a band.
type QuestionSet struct {
	Band       string            `json:"band"`
	Categories []string          `json:"categories"`
	Questions  []SampledQuestion `json:"questions"`
}

type CategorySample struct {
	Band      string   `json:"band"`
	Category  string   `json:"category"`
	Questions []string `json:"questions"`
}

type Answer struct {
	EmployeeID  string
	Band        string
	Category    string
	Question    string
	AnswerValue string
	UpdatedAt   time.Time
}

type QuestionAnswer struct {
	Question    string `json:"question"`
	AnswerValue string `json:"answer_value"`
}

// Section is the answers of one category.
type Section struct {
	Category  string           `json:"category"`
	Questions []QuestionAnswer `json:"questions"`
}

type SectionSubmission struct {
	EmployeeID string
	Band       string
	Category   string
	Answers    []QuestionAnswer
}

// SectionOutcome reports the state of the assessment after a section submit.
// Result is set only when the submit completed the assessment.
type SectionOutcome struct {
	Saved    int
	Answered int
	Expected int
	Status   string
	Result   *Result
}

type Result struct {
	EmployeeID     string
	Band           string
	TotalScore     float64
	CategoryScores []CategoryScore
	Sections       []Section
	CompletedAt    time.Time
}

// StatusReport describes one pair. LastScore is the archived score of a
// pair that was reopened after completion.
type StatusReport struct {
	EmployeeID string
	Band       string
	Status     string
	Answered   int
	Expected   int
	LastScore  *float64
}

type BandHistory struct {
	Band           string
	Status         string
	CompletedAt    *time.Time
	TotalScore     *float64
	CategoryScores []CategoryScore
	Sections       []Section
}
