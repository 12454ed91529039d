package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	CreatedBy *string    `json:"created_by"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type SubmissionFilters struct {
	StudentID *string `json:"student_id"`
	Graded    *bool   `json:"graded"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// AnswerGrade is the grading engine output for one answer. A nil MarksAwarded
// or empty EvaluationData leaves the stored column unchanged.
type AnswerGrade struct {
	AnswerID       string
	MarksAwarded   *float64
	EvaluationData datatypes.JSON
}

// ===== ENTITY REPOSITORIES =====

type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error)
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)

	// Delete removes the exam and everything it owns
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID string, filters SubmissionFilters) ([]*models.Submission, int64, error)
	UpdateTotalMarks(ctx context.Context, tx *gorm.DB, id string, totalMarks *float64) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, submissionID string, answers []*models.Answer) error
	ListBySubmission(ctx context.Context, tx *gorm.DB, submissionID string) ([]*models.Answer, error)
	UpdateGrading(ctx context.Context, tx *gorm.DB, grade AnswerGrade) error
}
