package models

import (
	"fmt"
	"time"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "mcq"
	TrueFalse      QuestionType = "true-false"
	FillBlank      QuestionType = "fill-blank"
	Checkbox       QuestionType = "checkbox"
	ImageChoice    QuestionType = "image"
	Subjective     QuestionType = "subjective"
)

// Valid reports whether t is one of the supported question types.
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, FillBlank, Checkbox, ImageChoice, Subjective:
		return true
	}
	return false
}

// RendersChoices reports whether questions of this type present a fixed
// option list to the student.
func (t QuestionType) RendersChoices() bool {
	switch t {
	case MultipleChoice, Checkbox, ImageChoice:
		return true
	}
	return false
}

type Question struct {
	ID             string       `json:"id" validate:"required"`
	Type           QuestionType `json:"type" validate:"required"`
	Text           string       `json:"text" validate:"required"`
	Image          string       `json:"image,omitempty"`
	Options        []string     `json:"options,omitempty"`
	CorrectAnswers []string     `json:"correctAnswers,omitempty" validate:"min=1"`
	Points         int          `json:"points" validate:"min=1"`
}

type Exam struct {
	ID              string     `json:"id" validate:"required"`
	Title           string     `json:"title" validate:"required"`
	Timer           int        `json:"timer" validate:"min=1"` // minutes
	StudentPassword string     `json:"studentPassword" validate:"required"`
	GradePassword   string     `json:"gradePassword" validate:"required"`
	Questions       []Question `json:"questions" validate:"min=1,dive"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Duration is the full time allowance for one attempt.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.Timer) * time.Minute
}

// TotalPoints sums the point weight of every question.
func (e *Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

type StudentAnswer struct {
	QuestionID string      `json:"questionId"`
	Answer     AnswerValue `json:"answer"`
}

// ExamSession is the single in-progress attempt. Exactly one session exists
// in storage at a time; starting a new exam overwrites it.
type ExamSession struct {
	ExamID        string          `json:"examId"`
	StudentName   string          `json:"studentName"`
	Answers       []StudentAnswer `json:"answers"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       *time.Time      `json:"endTime,omitempty"`
	TimeRemaining *int            `json:"timeRemaining,omitempty"` // seconds
}

// SetAnswer upserts the answer for a question; later writes replace earlier
// ones for the same question id.
func (s *ExamSession) SetAnswer(questionID string, answer AnswerValue) {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			s.Answers[i].Answer = answer
			return
		}
	}
	s.Answers = append(s.Answers, StudentAnswer{QuestionID: questionID, Answer: answer})
}

// ExamResult is the immutable record of a completed attempt. Results are
// append-only; nothing in the core mutates or deletes them.
type ExamResult struct {
	ExamID      string          `json:"examId"`
	ExamTitle   string          `json:"examTitle"`
	StudentName string          `json:"studentName"`
	Score       int             `json:"score"`
	TotalPoints int             `json:"totalPoints"`
	Percentage  float64         `json:"percentage"`
	CompletedAt time.Time       `json:"completedAt"`
	TimeSpent   int             `json:"timeSpent"` // minutes
	Answers     []StudentAnswer `json:"answers"`
}

// ExamStatistics is derived from a pre-filtered result set, never stored.
type ExamStatistics struct {
	TotalStudents int          `json:"totalStudents"`
	AverageScore  float64      `json:"averageScore"`
	HighestScore  float64      `json:"highestScore"`
	LowestScore   float64      `json:"lowestScore"`
	Results       []ExamResult `json:"results,omitempty"`
}

// LetterGrade maps a percentage to the fixed A-F banding shared by every
// display and export path.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// FormatTime renders a second count as mm:ss for countdown display.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
