package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrUniquenessViolation  = errors.New("uniqueness violation")
	ErrReferentialIntegrity = errors.New("referential integrity violation")
)

// ConstraintError is a storage constraint failure. It matches its Kind
// (ErrUniquenessViolation or ErrReferentialIntegrity) and the driver error.
type ConstraintError struct {
	Kind   error
	Entity string
	Err    error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Entity, e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsUniquenessViolation(err error) bool {
	return errors.Is(err, ErrUniquenessViolation)
}

func IsReferentialIntegrityError(err error) bool {
	return errors.Is(err, ErrReferentialIntegrity)
}
