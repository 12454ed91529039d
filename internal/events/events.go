package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

const (
	EventSource  = "smartscore-service"
	EventVersion = "1.0"
)

// Topics published after a workflow commits
const (
	ExamCreated       = "exams.created"
	QuestionsAdded    = "questions.added"
	RubricCreated     = "rubrics.created"
	SubmissionCreated = "submissions.created"
)

// GradingResultsTopic carries grading engine output back into the service
const GradingResultsTopic = "grading.results"

// Event is the envelope of every published message
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type ExamCreatedEvent struct {
	ExamID    string `json:"exam_id"`
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
}

type QuestionsAddedEvent struct {
	ExamID      string   `json:"exam_id"`
	QuestionIDs []string `json:"question_ids"`
}

type RubricCreatedEvent struct {
	RubricID   string `json:"rubric_id"`
	QuestionID string `json:"question_id"`
	Strictness string `json:"strictness"`
}

// SubmissionCreatedEvent asks the grading engine to evaluate a submission
type SubmissionCreatedEvent struct {
	SubmissionID string  `json:"submission_id"`
	ExamID       string  `json:"exam_id"`
	StudentID    string  `json:"student_id"`
	AnswerCount  int     `json:"answer_count"`
	SheetKey     *string `json:"sheet_key,omitempty"`
}
