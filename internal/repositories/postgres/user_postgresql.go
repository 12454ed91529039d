package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/smartscore-service/internal/cache"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db            *gorm.DB
	cacheManager  *cache.CacheManager
	transactional bool
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Create inserts a user; a taken email fails with ErrUniquenessViolation
func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", classifyError("user", err))
	}
	return nil
}

// GetByID retrieves a user, served from cache outside transactions
func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	fetch := func() (interface{}, error) {
		var user models.User
		if err := u.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("user", id)
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		return &user, nil
	}

	if tx != nil || u.transactional {
		user, err := fetch()
		if err != nil {
			return nil, err
		}
		return user.(*models.User), nil
	}

	var user models.User
	if err := u.cacheManager.User.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &user, cache.UserCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail looks a user up by stored email. It never reads through the cache.
func (u *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := u.getDB(tx).WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (u *UserPostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	found, err := exists(u.getDB(tx).WithContext(ctx), &models.User{}, "id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return found, nil
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

type StudentPostgreSQL struct {
	db *gorm.DB
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &StudentPostgreSQL{db: db}
}

// Create inserts a student profile. A second profile for the same user fails
// with ErrUniquenessViolation, an unknown user with ErrReferentialIntegrity.
func (s *StudentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	if err := s.getDB(tx).WithContext(ctx).Create(student).Error; err != nil {
		return fmt.Errorf("failed to create student: %w", classifyError("student", err))
	}
	return nil
}

func (s *StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	if err := s.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("student", id)
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (s *StudentPostgreSQL) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.Student, error) {
	var student models.Student
	if err := s.getDB(tx).WithContext(ctx).Where("user_id = ?", userID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("student for user", userID)
		}
		return nil, fmt.Errorf("failed to get student by user: %w", err)
	}
	return &student, nil
}

func (s *StudentPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Student, error) {
	if len(ids) == 0 {
		return []*models.Student{}, nil
	}

	var students []*models.Student
	if err := s.getDB(tx).WithContext(ctx).Where("id IN ?", ids).Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}
	return students, nil
}

func (s *StudentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
