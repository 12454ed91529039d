package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/smartscore-service/internal/cache"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"gorm.io/gorm"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager

	// set on repositories bound to a transaction; disables cached reads
	transactional bool
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Create inserts an exam. An unknown creator fails with ErrReferentialIntegrity.
func (e *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := e.getDB(tx).WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", classifyError("exam", err))
	}
	return nil
}

// GetByID retrieves an exam. Reads outside a transaction go through the cache;
// transactional reads never do, so uncommitted rows are not cached.
func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error) {
	if tx != nil || e.transactional {
		return e.fetch(ctx, e.getDB(tx), id)
	}

	var exam models.Exam
	err := e.cacheManager.Exam.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		return e.fetch(ctx, e.db, id)
	})
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) fetch(ctx context.Context, db *gorm.DB, id string) (*models.Exam, error) {
	var exam models.Exam
	if err := db.WithContext(ctx).Where("id = ?", id).First(&exam).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("exam", id)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	query := e.getDB(tx).WithContext(ctx).Model(&models.Exam{})
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	var exams []*models.Exam
	if err := applyPagination(query, "created_at DESC, id ASC", filters.Limit, filters.Offset).Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, total, nil
}

func (e *ExamPostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	found, err := exists(e.getDB(tx).WithContext(ctx), &models.Exam{}, "id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to check exam existence: %w", err)
	}
	return found, nil
}

// Delete removes the exam with its questions, rubrics, submissions and answers
func (e *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	var questionIDs []string

	err := e.getDB(tx).WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Model(&models.Question{}).Where("exam_id = ?", id).Pluck("id", &questionIDs).Error; err != nil {
			return fmt.Errorf("failed to load exam questions: %w", err)
		}

		submissions := db.Model(&models.Submission{}).Select("id").Where("exam_id = ?", id)
		if err := db.Where("submission_id IN (?)", submissions).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("failed to delete submission answers: %w", err)
		}
		if len(questionIDs) > 0 {
			if err := db.Where("question_id IN ?", questionIDs).Delete(&models.Answer{}).Error; err != nil {
				return fmt.Errorf("failed to delete question answers: %w", err)
			}
			if err := db.Where("question_id IN ?", questionIDs).Delete(&models.Rubric{}).Error; err != nil {
				return fmt.Errorf("failed to delete rubrics: %w", err)
			}
		}
		if err := db.Where("exam_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return fmt.Errorf("failed to delete submissions: %w", err)
		}
		if err := db.Where("exam_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("failed to delete questions: %w", err)
		}

		result := db.Where("id = ?", id).Delete(&models.Exam{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete exam: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("exam", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateExamCache(ctx, e.cacheManager, id, questionIDs)
	return nil
}

func (e *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}
