package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Submission struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ExamID     string    `json:"exam_id" gorm:"not null;index;size:36"`
	StudentID  string    `json:"student_id" gorm:"not null;index;size:36"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"autoCreateTime"`

	// Written by the grading engine
	TotalMarks *float64 `json:"total_marks"`

	// Object key of the scanned answer sheet, when one was uploaded
	SheetKey *string `json:"sheet_key" gorm:"size:512"`

	// Relations
	Exam    *Exam    `json:"-" gorm:"foreignKey:ExamID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Student *Student `json:"-" gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Answers []Answer `json:"answers,omitempty" gorm:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type Answer struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	SubmissionID string `json:"submission_id" gorm:"not null;index;size:36"`
	QuestionID   string `json:"question_id" gorm:"not null;index;size:36"`
	Content      string `json:"content" gorm:"type:text;not null"`

	// Grading engine output, opaque to this service
	MarksAwarded   *float64       `json:"marks_awarded"`
	EvaluationData datatypes.JSON `json:"evaluation_data" gorm:"type:json"`

	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Submission *Submission `json:"-" gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Question   *Question   `json:"-" gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Answer) TableName() string {
	return "answers"
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every persisted model in dependency order for migrations
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Student{},
		&Exam{},
		&Question{},
		&Rubric{},
		&Submission{},
		&Answer{},
	}
}
