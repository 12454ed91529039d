package validator

import (
	"encoding/json"

	"github.com/SAP-F-2025/smartscore-service/internal/models"
)

// UserCreateRequest represents the request structure for creating users
type UserCreateRequest struct {
	Name  string          `json:"name" validate:"required,not_blank,max=255"`
	Email string          `json:"email" validate:"required,email,max=255"`
	Role  models.UserRole `json:"role" validate:"required,user_role"`
}

// StudentCreateRequest represents the request structure for creating a student profile
type StudentCreateRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	RollNumber string `json:"roll_number" validate:"required,not_blank,max=100"`
	ClassName  string `json:"class_name" validate:"required,not_blank,max=100"`
}

// ExamCreateRequest represents the request structure for creating exams
type ExamCreateRequest struct {
	Title       string  `json:"title" validate:"required,not_blank,max=255"`
	Description *string `json:"description"`
	CreatedBy   string  `json:"created_by" validate:"required,uuid"`
}

// QuestionCreateRequest is one element of the add-questions payload
type QuestionCreateRequest struct {
	QuestionNumber *int                `json:"question_number" validate:"required"`
	Type           models.QuestionType `json:"type" validate:"required,question_type"`
	Marks          int                 `json:"marks" validate:"required,gt=0"`
	Text           string              `json:"text" validate:"required,not_blank"`
}

// ExamQuestionsRequest binds the exam identifier to an ordered question list.
// An empty list is valid.
type ExamQuestionsRequest struct {
	ExamID    string                  `json:"exam_id" validate:"required"`
	Questions []QuestionCreateRequest `json:"questions" validate:"dive"`
}

// RubricCreateRequest represents the request structure for attaching a rubric
type RubricCreateRequest struct {
	KeyPoints     *models.Document  `json:"key_points" validate:"required"`
	MarkingScheme *models.Document  `json:"marking_scheme" validate:"required"`
	Strictness    models.Strictness `json:"strictness" validate:"required,rubric_strictness"`
}

// AnswerCreateRequest is one answer inside a submission
type AnswerCreateRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Content    string `json:"content"`
}

// SubmissionCreateRequest represents a student's submission for an exam
type SubmissionCreateRequest struct {
	ExamID    string                `json:"exam_id" validate:"required"`
	StudentID string                `json:"student_id" validate:"required"`
	Answers   []AnswerCreateRequest `json:"answers" validate:"omitempty,dive"`
}

// AnswerGradeRequest carries the grading engine output for one answer
type AnswerGradeRequest struct {
	AnswerID       string           `json:"answer_id" validate:"required"`
	MarksAwarded   *float64         `json:"marks_awarded" validate:"omitempty,gte=0"`
	EvaluationData *models.Document `json:"evaluation_data"`
}

// GradingResultRequest is the grading engine's result for a submission
type GradingResultRequest struct {
	SubmissionID string               `json:"submission_id" validate:"required"`
	TotalMarks   *float64             `json:"total_marks" validate:"omitempty,gte=0"`
	Answers      []AnswerGradeRequest `json:"answers" validate:"omitempty,dive"`
}

// EvaluationJSON renders the evaluation payload for storage, nil when absent
func (r AnswerGradeRequest) EvaluationJSON() (json.RawMessage, error) {
	if r.EvaluationData == nil {
		return nil, nil
	}
	return json.Marshal(r.EvaluationData)
}
