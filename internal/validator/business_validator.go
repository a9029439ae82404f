package validator

import (
	"fmt"
	"strings"

	"github.com/cbt-exam/cbt-service/internal/models"
)

// ValidateQuestion enforces the per-type authoring rules that struct tags
// cannot express: choice-rendering types need a non-empty option list, and
// true/false questions only accept the fixed pair as answer keys.
func (v *Validator) ValidateQuestion(q *models.Question) error {
	if !q.Type.Valid() {
		return fmt.Errorf("question %s: unsupported type %q", q.ID, q.Type)
	}
	if len(q.CorrectAnswers) == 0 {
		return fmt.Errorf("question %s: at least one correct answer is required", q.ID)
	}
	if q.Points < 1 {
		return fmt.Errorf("question %s: points must be positive", q.ID)
	}
	if q.Type.RendersChoices() && len(q.Options) == 0 {
		return fmt.Errorf("question %s: %s questions require options", q.ID, q.Type)
	}
	if q.Type == models.TrueFalse {
		for _, answer := range q.CorrectAnswers {
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "true", "false":
			default:
				return fmt.Errorf("question %s: true-false answer must be \"true\" or \"false\"", q.ID)
			}
		}
	}
	return nil
}

// ValidateExam checks an assembled exam, including every question.
func (v *Validator) ValidateExam(exam *models.Exam) error {
	if err := v.Validate(exam); err != nil {
		return err
	}
	for i := range exam.Questions {
		if err := v.ValidateQuestion(&exam.Questions[i]); err != nil {
			return err
		}
	}
	return nil
}
