package services

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cbt-exam/cbt-service/internal/models"
)

// GradeSummary is the outcome of scoring one attempt: totalPoints accumulates
// every question's weight, score only the correctly answered ones.
type GradeSummary struct {
	Score       int `json:"score"`
	TotalPoints int `json:"totalPoints"`
}

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

func (s *gradingService) GradeExam(questions []models.Question, answers []models.StudentAnswer) GradeSummary {
	byQuestion := make(map[string]models.AnswerValue, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Answer
	}

	var summary GradeSummary
	for _, q := range questions {
		summary.TotalPoints += q.Points
		answer, ok := byQuestion[q.ID]
		if ok && s.IsAnswerCorrect(q, answer) {
			summary.Score += q.Points
		}
	}
	return summary
}

// IsAnswerCorrect applies the per-type correctness rule. A mismatched answer
// shape is incorrect, never an error.
func (s *gradingService) IsAnswerCorrect(question models.Question, answer models.AnswerValue) bool {
	switch question.Type {
	case models.MultipleChoice, models.TrueFalse, models.FillBlank, models.Subjective, models.ImageChoice:
		if answer.Kind != models.AnswerText {
			return false
		}
		provided := normalize(answer.Text)
		for _, correct := range question.CorrectAnswers {
			if normalize(correct) == provided {
				return true
			}
		}
		return false

	case models.Checkbox:
		if answer.Kind != models.AnswerSelections {
			return false
		}
		selected := normalizeSet(answer.Selections)
		correct := normalizeSet(question.CorrectAnswers)
		if len(selected) != len(correct) {
			return false
		}
		for option := range selected {
			if !correct[option] {
				return false
			}
		}
		return true

	default:
		return false
	}
}

func (s *gradingService) CalculateStatistics(results []models.ExamResult) models.ExamStatistics {
	if len(results) == 0 {
		return models.ExamStatistics{}
	}

	stats := models.ExamStatistics{
		TotalStudents: len(results),
		HighestScore:  results[0].Percentage,
		LowestScore:   results[0].Percentage,
		Results:       results,
	}

	sum := 0.0
	for _, r := range results {
		sum += r.Percentage
		stats.HighestScore = math.Max(stats.HighestScore, r.Percentage)
		stats.LowestScore = math.Min(stats.LowestScore, r.Percentage)
	}
	stats.AverageScore = sum / float64(len(results))
	return stats
}

// CalculateTimeSpent returns whole minutes between start and end, rounded.
// Sessions read back from storage may carry the start time in its serialized
// textual form, so both a time.Time and an RFC3339 string are accepted.
func (s *gradingService) CalculateTimeSpent(start any, end time.Time) int {
	var startTime time.Time
	switch v := start.(type) {
	case time.Time:
		startTime = v
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("Unparseable session start time", "start", v)
			}
			return 0
		}
		startTime = parsed
	default:
		return 0
	}

	minutes := int(math.Round(end.Sub(startTime).Minutes()))
	if minutes < 0 {
		return 0
	}
	return minutes
}

// ValidatePassword compares plain-text shared secrets after trimming
// incidental whitespace. Exam passwords are short-lived secrets handed out by
// the teacher, not account credentials.
func (s *gradingService) ValidatePassword(provided, required string) bool {
	return strings.TrimSpace(provided) == strings.TrimSpace(required)
}

// Percentage computes score/totalPoints*100, degrading to 0 for an empty or
// zero-weight exam instead of dividing by zero.
func Percentage(score, totalPoints int) float64 {
	if totalPoints <= 0 {
		return 0
	}
	return float64(score) / float64(totalPoints) * 100
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[normalize(v)] = true
	}
	return set
}
