package repositories

import "context"

// Repository aggregates the entity repositories behind one storage handle
type Repository interface {
	// User domain
	User() UserRepository
	Student() StudentRepository

	// Exam domain
	Exam() ExamRepository
	Question() QuestionRepository
	Rubric() RubricRepository

	// Submission domain
	Submission() SubmissionRepository
	Answer() AnswerRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
