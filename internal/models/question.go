package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMCQ     QuestionType = "mcq"
	QuestionBlank   QuestionType = "blank"
	QuestionShort   QuestionType = "short"
	QuestionLong    QuestionType = "long"
	QuestionDiagram QuestionType = "diagram"
	QuestionMath    QuestionType = "math"
	QuestionCode    QuestionType = "code"
)

var QuestionTypes = []QuestionType{
	QuestionMCQ, QuestionBlank, QuestionShort, QuestionLong, QuestionDiagram, QuestionMath, QuestionCode,
}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// Strictness controls how leniently a rubric is applied by the grading engine
type Strictness string

const (
	StrictnessTough   Strictness = "tough"
	StrictnessNeutral Strictness = "neutral"
	StrictnessLenient Strictness = "lenient"
)

func (s Strictness) IsValid() bool {
	switch s {
	case StrictnessTough, StrictnessNeutral, StrictnessLenient:
		return true
	}
	return false
}

type Question struct {
	ID             string       `json:"id" gorm:"primaryKey;size:36"`
	ExamID         string       `json:"exam_id" gorm:"not null;index;size:36"`
	QuestionNumber int          `json:"question_number" gorm:"not null"`
	Type           QuestionType `json:"type" gorm:"not null;size:20"`
	Marks          int          `json:"marks" gorm:"not null;check:marks > 0"`
	Text           string       `json:"text" gorm:"type:text;not null"`

	// Position is the creation sequence within the exam. Independent of QuestionNumber.
	Position  int       `json:"position" gorm:"not null;default:0;index"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Exam *Exam `json:"-" gorm:"foreignKey:ExamID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

type Rubric struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	QuestionID    string     `json:"question_id" gorm:"uniqueIndex;not null;size:36"`
	KeyPoints     Document   `json:"key_points" gorm:"type:json;not null"`
	MarkingScheme Document   `json:"marking_scheme" gorm:"type:json;not null"`
	Strictness    Strictness `json:"strictness" gorm:"not null;size:20"`
	CreatedAt     time.Time  `json:"created_at"`

	// Relations
	Question *Question `json:"-" gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Rubric) TableName() string {
	return "rubrics"
}

func (r *Rubric) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
