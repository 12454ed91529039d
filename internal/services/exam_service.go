package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
	"gorm.io/gorm"
)

type examService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	observer  workflowObserver
}

func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, m *metrics.Metrics) ExamService {
	return &examService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		observer:  newWorkflowObserver(publisher, m, logger),
	}
}

// Create stores a new exam. The creator must exist; the stored row is re-read
// inside the same transaction so the response carries the assigned id and timestamp.
func (s *examService) Create(ctx context.Context, req *CreateExamRequest) (resp *models.ExamResponse, err error) {
	defer func() { s.observer.finish(WorkflowCreateExam, err) }()

	s.logger.Info("Creating exam", "created_by", req.CreatedBy, "title", req.Title)

	// Validate request with business rules
	if errors := s.validator.GetBusinessValidator().ValidateExamCreate(req); len(errors) > 0 {
		return nil, errors
	}

	exam := &models.Exam{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
	}

	var stored *models.Exam
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.User().ExistsByID(ctx, tx, req.CreatedBy)
		if err != nil {
			return fmt.Errorf("failed to check creator: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}

		if err := s.repo.Exam().Create(ctx, tx, exam); err != nil {
			return fmt.Errorf("failed to create exam: %w", err)
		}

		reloaded, err := s.repo.Exam().GetByID(ctx, tx, exam.ID)
		if err != nil {
			return fmt.Errorf("failed to reload exam: %w", err)
		}
		stored = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam created successfully", "exam_id", stored.ID)

	s.observer.publish(ctx, events.ExamCreated, events.ExamCreatedEvent{
		ExamID:    stored.ID,
		Title:     stored.Title,
		CreatedBy: stored.CreatedBy,
	})

	return models.NewExamResponse(stored), nil
}

func (s *examService) GetByID(ctx context.Context, id string, includeQuestions bool) (*models.ExamResponse, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "get exam")
	}

	resp := models.NewExamResponse(exam)
	if !includeQuestions {
		return resp, nil
	}

	questions, err := s.repo.Question().ListByExam(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam questions: %w", err)
	}
	resp.Questions = models.NewQuestionResponses(questions)

	return resp, nil
}

// List pages through exams, newest first. Questions are not included.
func (s *examService) List(ctx context.Context, filters ExamListFilters) (*ExamListResponse, error) {
	page, size := normalizePage(filters.Page, filters.Size)
	exams, total, err := s.repo.Exam().List(ctx, nil, repositories.ExamFilters{
		CreatedBy: filters.CreatedBy,
		DateFrom:  filters.DateFrom,
		DateTo:    filters.DateTo,
		Limit:     size,
		Offset:    (page - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	resp := &ExamListResponse{
		Exams: make([]*models.ExamResponse, 0, len(exams)),
		Total: total,
		Page:  page,
		Size:  size,
	}
	for _, exam := range exams {
		resp.Exams = append(resp.Exams, models.NewExamResponse(exam))
	}
	return resp, nil
}

// Delete removes the exam with its questions, rubrics and submissions
func (s *examService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.observer.finish(WorkflowDeleteExam, err) }()

	s.logger.Info("Deleting exam", "exam_id", id)

	if err := s.repo.Exam().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrExamNotFound, "delete exam")
	}

	s.logger.Info("Exam deleted successfully", "exam_id", id)
	return nil
}
