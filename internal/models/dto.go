package models

import (
	"encoding/json"
	"time"
)

// Read representations returned by the API. Field sets are fixed per entity.

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type StudentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RollNumber string    `json:"roll_number"`
	ClassName  string    `json:"class_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type ExamResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	Questions   []QuestionResponse `json:"questions,omitempty"`
}

type QuestionResponse struct {
	ID             string       `json:"id"`
	ExamID         string       `json:"exam_id"`
	QuestionNumber int          `json:"question_number"`
	Type           QuestionType `json:"type"`
	Marks          int          `json:"marks"`
	Text           string       `json:"text"`
}

type RubricResponse struct {
	ID            string     `json:"id"`
	QuestionID    string     `json:"question_id"`
	KeyPoints     Document   `json:"key_points"`
	MarkingScheme Document   `json:"marking_scheme"`
	Strictness    Strictness `json:"strictness"`
}

type SubmissionResponse struct {
	ID         string           `json:"id"`
	ExamID     string           `json:"exam_id"`
	StudentID  string           `json:"student_id"`
	UploadedAt time.Time        `json:"uploaded_at"`
	TotalMarks *float64         `json:"total_marks"`
	SheetKey   *string          `json:"sheet_key,omitempty"`
	Answers    []AnswerResponse `json:"answers,omitempty"`
}

type AnswerResponse struct {
	ID             string          `json:"id"`
	SubmissionID   string          `json:"submission_id"`
	QuestionID     string          `json:"question_id"`
	Content        string          `json:"content"`
	MarksAwarded   *float64        `json:"marks_awarded"`
	EvaluationData json.RawMessage `json:"evaluation_data"`
}

func NewUserResponse(u *User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func NewStudentResponse(s *Student) *StudentResponse {
	return &StudentResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		RollNumber: s.RollNumber,
		ClassName:  s.ClassName,
		CreatedAt:  s.CreatedAt,
	}
}

func NewExamResponse(e *Exam) *ExamResponse {
	return &ExamResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func NewQuestionResponse(q *Question) QuestionResponse {
	return QuestionResponse{
		ID:             q.ID,
		ExamID:         q.ExamID,
		QuestionNumber: q.QuestionNumber,
		Type:           q.Type,
		Marks:          q.Marks,
		Text:           q.Text,
	}
}

// NewQuestionResponses renders questions keeping their order
func NewQuestionResponses(questions []*Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, NewQuestionResponse(q))
	}
	return out
}

func NewRubricResponse(r *Rubric) *RubricResponse {
	return &RubricResponse{
		ID:            r.ID,
		QuestionID:    r.QuestionID,
		KeyPoints:     r.KeyPoints,
		MarkingScheme: r.MarkingScheme,
		Strictness:    r.Strictness,
	}
}

func NewAnswerResponse(a *Answer) AnswerResponse {
	var evaluation json.RawMessage
	if len(a.EvaluationData) > 0 {
		evaluation = json.RawMessage(a.EvaluationData)
	}
	return AnswerResponse{
		ID:             a.ID,
		SubmissionID:   a.SubmissionID,
		QuestionID:     a.QuestionID,
		Content:        a.Content,
		MarksAwarded:   a.MarksAwarded,
		EvaluationData: evaluation,
	}
}

func NewSubmissionResponse(s *Submission) *SubmissionResponse {
	resp := &SubmissionResponse{
		ID:         s.ID,
		ExamID:     s.ExamID,
		StudentID:  s.StudentID,
		UploadedAt: s.UploadedAt,
		TotalMarks: s.TotalMarks,
		SheetKey:   s.SheetKey,
	}
	for i := range s.Answers {
		resp.Answers = append(resp.Answers, NewAnswerResponse(&s.Answers[i]))
	}
	return resp
}
