package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/storage"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig carries the optional collaborators. Nil fields disable
// the features that need them.
type ServiceManagerConfig struct {
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	BlobStore storage.BlobStore
	Directory repositories.UserDirectory
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	userService         UserService
	studentService      StudentService
	examService         ExamService
	questionService     QuestionService
	submissionService   SubmissionService
	gradingService      GradingService
	importExportService ImportExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager without events, metrics,
// blob storage or a user directory
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, ServiceManagerConfig{})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.initializeServices()

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully",
		"events", sm.config.Publisher != nil,
		"blob_storage", sm.config.BlobStore != nil,
		"directory", sm.config.Directory != nil)

	return nil
}

func (sm *serviceManager) initializeServices() {
	cfg := sm.config

	sm.userService = NewUserService(sm.repo, sm.db, cfg.Directory, sm.logger, sm.validator, cfg.Metrics)
	sm.studentService = NewStudentService(sm.repo, sm.db, sm.logger, sm.validator, cfg.Metrics)
	sm.examService = NewExamService(sm.repo, sm.db, sm.logger, sm.validator, cfg.Publisher, cfg.Metrics)
	sm.questionService = NewQuestionService(sm.repo, sm.db, sm.logger, sm.validator, cfg.Publisher, cfg.Metrics)
	sm.submissionService = NewSubmissionService(sm.repo, sm.db, cfg.BlobStore, sm.logger, sm.validator, cfg.Publisher, cfg.Metrics)
	sm.gradingService = NewGradingService(sm.repo, sm.logger, sm.validator, cfg.Metrics)
	sm.importExportService = NewImportExportService(sm.repo, sm.questionService, sm.logger, cfg.Metrics)
}

// Service getters
func (sm *serviceManager) User() UserService {
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) Student() StudentService {
	sm.mustBeInitialized()
	return sm.studentService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mustBeInitialized()
	return sm.examService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mustBeInitialized()
	return sm.questionService
}

func (sm *serviceManager) Submission() SubmissionService {
	sm.mustBeInitialized()
	return sm.submissionService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mustBeInitialized()
	return sm.gradingService
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mustBeInitialized()
	return sm.importExportService
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting health checks. Connections are owned and closed by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
