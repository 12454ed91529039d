package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/smartscore-service/internal/config"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
)

// userLister is the part of the Casdoor client the directory needs
type userLister interface {
	GetUsers() ([]*casdoorsdk.User, error)
}

// UserDirectory reads the users of a Casdoor organization
type UserDirectory struct {
	client userLister
}

func NewUserDirectory(cfg config.CasdoorConfig) repositories.UserDirectory {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return &UserDirectory{client: client}
}

// ListUsers returns every active directory user with an email address.
// IDs are left empty; local ids are assigned when the users are stored.
func (d *UserDirectory) ListUsers(ctx context.Context) ([]*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	casdoorUsers, err := d.client.GetUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to get users from Casdoor: %w", err)
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, cu := range casdoorUsers {
		if user := convertCasdoorUser(cu); user != nil {
			users = append(users, user)
		}
	}
	return users, nil
}

func convertCasdoorUser(cu *casdoorsdk.User) *models.User {
	if cu == nil || cu.IsDeleted || cu.IsForbidden || cu.Email == "" {
		return nil
	}

	name := cu.DisplayName
	if name == "" {
		name = cu.Name
	}

	var createdAt time.Time
	if cu.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, cu.CreatedTime)
	}

	return &models.User{
		Name:      name,
		Email:     strings.ToLower(cu.Email),
		Role:      convertCasdoorRoles(cu),
		CreatedAt: createdAt,
	}
}

// convertCasdoorRoles picks one local role. Admin wins, otherwise the first
// mapped role, defaulting to student.
func convertCasdoorRoles(cu *casdoorsdk.User) models.UserRole {
	var roles []models.UserRole
	for _, role := range cu.Roles {
		if role == nil {
			continue
		}
		mapped := mapCasdoorRole(role.Name)
		if !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}

	if cu.IsAdmin || slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if len(roles) == 0 {
		return models.RoleStudent
	}
	return roles[0]
}

func mapCasdoorRole(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "teacher", "instructor", "examiner":
		return models.RoleTeacher
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}
