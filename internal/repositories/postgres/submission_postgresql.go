package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

// Create inserts a submission. Unknown exam or student fails with ErrReferentialIntegrity.
func (s *SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	if err := s.getDB(tx).WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", classifyError("submission", err))
	}
	return nil
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error) {
	var submission models.Submission
	if err := s.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("submission", id)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &submission, nil
}

// GetByIDWithAnswers loads the submission and its answers in submission order
func (s *SubmissionPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error) {
	submission, err := s.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := s.getDB(tx).WithContext(ctx).
		Where("submission_id = ?", id).
		Order("position ASC, id ASC").
		Find(&submission.Answers).Error; err != nil {
		return nil, fmt.Errorf("failed to load submission answers: %w", err)
	}
	return submission, nil
}

func (s *SubmissionPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	query := s.getDB(tx).WithContext(ctx).Model(&models.Submission{}).Where("exam_id = ?", examID)
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.Graded != nil {
		if *filters.Graded {
			query = query.Where("total_marks IS NOT NULL")
		} else {
			query = query.Where("total_marks IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	var submissions []*models.Submission
	if err := applyPagination(query, "uploaded_at ASC, id ASC", filters.Limit, filters.Offset).Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

func (s *SubmissionPostgreSQL) UpdateTotalMarks(ctx context.Context, tx *gorm.DB, id string, totalMarks *float64) error {
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("total_marks", totalMarks)
	if result.Error != nil {
		return fmt.Errorf("failed to update total marks: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("submission", id)
	}
	return nil
}

// Delete removes the submission and its answers
func (s *SubmissionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return s.getDB(tx).WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Where("submission_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}

		result := db.Where("id = ?", id).Delete(&models.Submission{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete submission: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("submission", id)
		}
		return nil
	})
}

func (s *SubmissionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// CreateBatch inserts the answers of one submission in input order
func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, submissionID string, answers []*models.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	for i, answer := range answers {
		answer.SubmissionID = submissionID
		answer.Position = i + 1
	}

	if err := a.getDB(tx).WithContext(ctx).CreateInBatches(answers, questionBatchSize).Error; err != nil {
		return fmt.Errorf("failed to create answers: %w", classifyError("answer", err))
	}
	return nil
}

func (a *AnswerPostgreSQL) ListBySubmission(ctx context.Context, tx *gorm.DB, submissionID string) ([]*models.Answer, error) {
	var answers []*models.Answer
	if err := a.getDB(tx).WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("position ASC, id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}

// UpdateGrading writes the grading engine fields of one answer. Fields left
// unset in grade keep their stored values.
func (a *AnswerPostgreSQL) UpdateGrading(ctx context.Context, tx *gorm.DB, grade repositories.AnswerGrade) error {
	db := a.getDB(tx).WithContext(ctx)

	updates := make(map[string]interface{}, 2)
	if grade.MarksAwarded != nil {
		updates["marks_awarded"] = grade.MarksAwarded
	}
	if len(grade.EvaluationData) > 0 {
		updates["evaluation_data"] = grade.EvaluationData
	}

	if len(updates) == 0 {
		found, err := exists(db, &models.Answer{}, "id = ?", grade.AnswerID)
		if err != nil {
			return fmt.Errorf("failed to check answer: %w", err)
		}
		if !found {
			return notFound("answer", grade.AnswerID)
		}
		return nil
	}

	result := db.Model(&models.Answer{}).
		Where("id = ?", grade.AnswerID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update answer grading: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("answer", grade.AnswerID)
	}
	return nil
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
