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

const questionBatchSize = 100

type QuestionPostgreSQL struct {
	db            *gorm.DB
	cacheManager  *cache.CacheManager
	transactional bool
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// CreateBatch inserts all questions for examID in one transaction (a savepoint
// when tx is already a transaction). Positions continue the exam's sequence in
// input order. The rows are re-read inside the same transaction and returned
// in input order; any failure leaves none of them stored.
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, examID string, questions []*models.Question) ([]*models.Question, error) {
	if len(questions) == 0 {
		return []*models.Question{}, nil
	}

	var created []*models.Question
	err := q.getDB(tx).WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var next int
		if err := db.Model(&models.Question{}).
			Where("exam_id = ?", examID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&next).Error; err != nil {
			return fmt.Errorf("failed to read question sequence: %w", err)
		}

		for i, question := range questions {
			question.ExamID = examID
			question.Position = next + i + 1
		}

		if err := db.CreateInBatches(questions, questionBatchSize).Error; err != nil {
			return fmt.Errorf("failed to create questions batch: %w", classifyError("question", err))
		}

		ids := make([]string, len(questions))
		for i, question := range questions {
			ids[i] = question.ID
		}

		var stored []*models.Question
		if err := db.Where("id IN ?", ids).Find(&stored).Error; err != nil {
			return fmt.Errorf("failed to re-read created questions: %w", err)
		}

		byID := make(map[string]*models.Question, len(stored))
		for _, s := range stored {
			byID[s.ID] = s
		}

		created = make([]*models.Question, 0, len(ids))
		for _, id := range ids {
			s, ok := byID[id]
			if !ok {
				return fmt.Errorf("created question %s missing on re-read", id)
			}
			created = append(created, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetByID retrieves a question, served from cache outside transactions
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	if tx != nil || q.transactional {
		return q.fetch(ctx, q.getDB(tx), id)
	}

	var question models.Question
	err := q.cacheManager.Question.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		return q.fetch(ctx, q.db, id)
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) fetch(ctx context.Context, db *gorm.DB, id string) (*models.Question, error) {
	var question models.Question
	if err := db.WithContext(ctx).Where("id = ?", id).First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("question", id)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

// ListByExam returns the exam's questions in creation sequence
func (q *QuestionPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID string) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.getDB(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("position ASC, created_at ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list exam questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) CountByExam(ctx context.Context, tx *gorm.DB, examID string) (int64, error) {
	var count int64
	if err := q.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count exam questions: %w", err)
	}
	return count, nil
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

type RubricPostgreSQL struct {
	db *gorm.DB
}

func NewRubricPostgreSQL(db *gorm.DB) repositories.RubricRepository {
	return &RubricPostgreSQL{db: db}
}

// Create attaches a rubric to its question. The unique index on question_id
// makes a second rubric fail with ErrUniquenessViolation, including when two
// callers race.
func (r *RubricPostgreSQL) Create(ctx context.Context, tx *gorm.DB, rubric *models.Rubric) error {
	if err := r.getDB(tx).WithContext(ctx).Create(rubric).Error; err != nil {
		return fmt.Errorf("failed to create rubric: %w", classifyError("rubric", err))
	}
	return nil
}

func (r *RubricPostgreSQL) GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID string) (*models.Rubric, error) {
	var rubric models.Rubric
	if err := r.getDB(tx).WithContext(ctx).Where("question_id = ?", questionID).First(&rubric).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("rubric for question", questionID)
		}
		return nil, fmt.Errorf("failed to get rubric: %w", err)
	}
	return &rubric, nil
}

// ListByExam returns rubrics of the exam's questions in question sequence
func (r *RubricPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID string) ([]*models.Rubric, error) {
	var rubrics []*models.Rubric
	if err := r.getDB(tx).WithContext(ctx).
		Select("rubrics.*").
		Joins("JOIN questions ON questions.id = rubrics.question_id").
		Where("questions.exam_id = ?", examID).
		Order("questions.position ASC, questions.id ASC").
		Find(&rubrics).Error; err != nil {
		return nil, fmt.Errorf("failed to list exam rubrics: %w", err)
	}
	return rubrics, nil
}

func (r *RubricPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
