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

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	directory repositories.UserDirectory
	logger    *slog.Logger
	validator *validator.Validator
	observer  workflowObserver
}

// NewUserService builds the user service. directory may be nil, in which case
// imports fail with ErrDirectoryDisabled.
func NewUserService(repo repositories.Repository, db *gorm.DB, directory repositories.UserDirectory, logger *slog.Logger, validator *validator.Validator, m *metrics.Metrics) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		directory: directory,
		logger:    logger,
		validator: validator,
		observer:  newWorkflowObserver(nil, m, logger),
	}
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest) (resp *models.UserResponse, err error) {
	defer func() { s.observer.finish(WorkflowCreateUser, err) }()

	s.logger.Info("Creating user", "role", req.Role)

	if errors := s.validator.GetBusinessValidator().ValidateUserCreate(req); len(errors) > 0 {
		return nil, errors
	}

	user := &models.User{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(req.Email),
		Role:  req.Role,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created successfully", "user_id", user.ID)
	return models.NewUserResponse(user), nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.UserResponse, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "get user")
	}
	return models.NewUserResponse(user), nil
}

// ImportFromDirectory copies directory users whose email is not yet known.
// All inserts share one transaction.
func (s *userService) ImportFromDirectory(ctx context.Context) (result *ImportUsersResult, err error) {
	defer func() { s.observer.finish(WorkflowImportUsers, err) }()

	if s.directory == nil {
		return nil, ErrDirectoryDisabled
	}

	s.logger.Info("Importing users from directory")

	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory users: %w", err)
	}

	result = &ImportUsersResult{Created: []*models.UserResponse{}}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool, len(users))
		for _, user := range users {
			if seen[user.Email] {
				result.Skipped++
				continue
			}
			seen[user.Email] = true

			existing, err := s.repo.User().GetByEmail(ctx, tx, user.Email)
			if err != nil && !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to look up user email: %w", err)
			}
			if existing != nil {
				s.logger.Debug("Directory user already known", "user_id", existing.ID)
				result.Skipped++
				continue
			}

			if err := s.repo.User().Create(ctx, tx, user); err != nil {
				return fmt.Errorf("failed to import user %s: %w", user.Email, err)
			}
			result.Created = append(result.Created, models.NewUserResponse(user))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Directory import completed", "created", len(result.Created), "skipped", result.Skipped)
	return result, nil
}
