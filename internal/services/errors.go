package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
)

// ErrNotFound is matched by every entity-specific not-found error
var ErrNotFound = errors.New("not found")

var (
	ErrExamNotFound       = fmt.Errorf("exam %w", ErrNotFound)
	ErrQuestionNotFound   = fmt.Errorf("question %w", ErrNotFound)
	ErrRubricNotFound     = fmt.Errorf("rubric %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrStudentNotFound    = fmt.Errorf("student %w", ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	ErrAnswerNotFound     = fmt.Errorf("answer %w", ErrNotFound)
	ErrSheetNotFound      = fmt.Errorf("answer sheet %w", ErrNotFound)
)

// ErrStudentExists matches repositories.ErrUniquenessViolation
var ErrStudentExists = fmt.Errorf("user already has a student profile: %w", repositories.ErrUniquenessViolation)

var (
	ErrBlobStorageDisabled = errors.New("answer sheet storage is not configured")
	ErrDirectoryDisabled   = errors.New("user directory is not configured")
)

// Validation types are re-exported for handlers
type (
	ValidationError  = validator.ValidationError
	ValidationErrors = validator.ValidationErrors
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// IsRejection reports whether err is a caller error rather than a failure of the service
func IsRejection(err error) bool {
	return IsValidationError(err) ||
		IsNotFound(err) ||
		repositories.IsUniquenessViolation(err) ||
		repositories.IsReferentialIntegrityError(err)
}

// mapNotFound replaces a repository not-found error with the entity's service error
func mapNotFound(err error, target error, action string) error {
	if repositories.IsNotFoundError(err) {
		return target
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
