// Package events publishes audit events for the exam lifecycle. The default
// transport is an in-process pubsub; deployments that mirror activity into a
// broker can switch the publisher to Kafka through configuration.
package events

import "time"

const (
	TopicExamCreated    = "exam.created"
	TopicExamImported   = "exam.imported"
	TopicSessionStarted = "session.started"
	TopicResultRecorded = "result.recorded"
)

// Topics lists every topic the audit subscriber listens on.
func Topics() []string {
	return []string{TopicExamCreated, TopicExamImported, TopicSessionStarted, TopicResultRecorded}
}

type ExamEvent struct {
	ExamID     string    `json:"exam_id"`
	Title      string    `json:"title"`
	Questions  int       `json:"questions"`
	OccurredAt time.Time `json:"occurred_at"`
}

type SessionStartedEvent struct {
	ExamID      string    `json:"exam_id"`
	StudentName string    `json:"student_name"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type ResultRecordedEvent struct {
	ExamID      string    `json:"exam_id"`
	StudentName string    `json:"student_name"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"total_points"`
	Percentage  float64   `json:"percentage"`
	TimedOut    bool      `json:"timed_out"`
	OccurredAt  time.Time `json:"occurred_at"`
}
