package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
	"gorm.io/gorm"
)

type studentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	observer  workflowObserver
}

func NewStudentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, m *metrics.Metrics) StudentService {
	return &studentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		observer:  newWorkflowObserver(nil, m, logger),
	}
}

// Create attaches a student profile to an existing user. A user holds at most one profile.
func (s *studentService) Create(ctx context.Context, req *CreateStudentRequest) (resp *models.StudentResponse, err error) {
	defer func() { s.observer.finish(WorkflowCreateStudent, err) }()

	s.logger.Info("Creating student", "user_id", req.UserID)

	if errors := s.validator.GetBusinessValidator().ValidateStudentCreate(req); len(errors) > 0 {
		return nil, errors
	}

	var created *models.Student
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.User().ExistsByID(ctx, tx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}

		if _, err := s.repo.Student().GetByUserID(ctx, tx, req.UserID); err == nil {
			return ErrStudentExists
		} else if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check student profile: %w", err)
		}

		student := &models.Student{
			UserID:     req.UserID,
			RollNumber: strings.TrimSpace(req.RollNumber),
			ClassName:  strings.TrimSpace(req.ClassName),
		}
		if err := s.repo.Student().Create(ctx, tx, student); err != nil {
			return fmt.Errorf("failed to create student: %w", err)
		}

		created, err = s.repo.Student().GetByID(ctx, tx, student.ID)
		if err != nil {
			return fmt.Errorf("failed to reload student: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student created successfully", "student_id", created.ID)
	return models.NewStudentResponse(created), nil
}

func (s *studentService) GetByID(ctx context.Context, id string) (*models.StudentResponse, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrStudentNotFound, "get student")
	}
	return models.NewStudentResponse(student), nil
}
