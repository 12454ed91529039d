package repositories

import (
	"context"

	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	// CreateBatch inserts questions atomically and returns them re-read in input order
	CreateBatch(ctx context.Context, tx *gorm.DB, examID string, questions []*models.Question) ([]*models.Question, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID string) ([]*models.Question, error)
	CountByExam(ctx context.Context, tx *gorm.DB, examID string) (int64, error)
}

type RubricRepository interface {
	Create(ctx context.Context, tx *gorm.DB, rubric *models.Rubric) error
	GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID string) (*models.Rubric, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID string) ([]*models.Rubric, error)
}
