package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
)

// SQLSTATE codes raised by PostgreSQL constraint checks
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classifyError maps storage constraint failures onto the repository error
// taxonomy. Anything else is returned unchanged.
func classifyError(entity string, err error) error {
	if err == nil {
		return nil
	}

	var kind error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		kind = repositories.ErrUniquenessViolation
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		kind = repositories.ErrReferentialIntegrity
	}

	var pgErr *pgconn.PgError
	if kind == nil && errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			kind = repositories.ErrUniquenessViolation
		case pgForeignKeyViolation:
			kind = repositories.ErrReferentialIntegrity
		}
	}

	// SQLite reports constraint failures through the message only
	if kind == nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			kind = repositories.ErrUniquenessViolation
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			kind = repositories.ErrReferentialIntegrity
		}
	}

	if kind == nil {
		return err
	}
	return &repositories.ConstraintError{Kind: kind, Entity: entity, Err: err}
}

// notFound wraps repositories.ErrNotFound with the missing entity
func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, repositories.ErrNotFound)
}

// applyPagination applies limit/offset and a stable ordering
func applyPagination(query *gorm.DB, order string, limit, offset int) *gorm.DB {
	query = query.Order(order)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// exists runs a COUNT for the given model and condition
func exists(db *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
