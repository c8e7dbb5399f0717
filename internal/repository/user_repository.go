package repository

import (
	"context"

	"github.com/yukikurage/project-board-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes the set fields of a user
func (r *GormUserRepository) Update(ctx context.Context, id uint64, fields UserFields) error {
	values := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			values[column] = *v
		}
	}
	set("display_name", fields.DisplayName)
	set("first_name", fields.FirstName)
	set("last_name", fields.LastName)
	set("bio", fields.Bio)
	set("avatar_url", fields.AvatarURL)
	set("password_hash", fields.PasswordHash)
	if len(values) == 0 {
		return nil
	}
	return updateByID(ctx, r.db, &models.User{}, id, values)
}
