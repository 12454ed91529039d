package repositories

import (
	"context"

	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)

	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)
}

type StudentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, student *models.Student) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.Student, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Student, error)
}

// UserDirectory is an external identity source users can be imported from
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
}
