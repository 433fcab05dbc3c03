package repository

import (
	"context"
	"fmt"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type directoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository creates a DirectoryRepository.
func NewDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) GetUser(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &user, nil
}

// FindUserByName returns an arbitrary match when display names collide.
func (r *directoryRepository) FindUserByName(ctx context.Context, name string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by name: %w", err)
	}
	return &user, nil
}

func (r *directoryRepository) ListUserIDsByRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entities.RoleMembership{}).
		Distinct("user_id").
		Where("role_id IN ?", roleIDs).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list role members: %w", err)
	}
	return ids, nil
}

func (r *directoryRepository) CreateUser(ctx context.Context, u *entities.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *directoryRepository) AddRoleMember(ctx context.Context, roleID, userID string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entities.RoleMembership{RoleID: roleID, UserID: userID}).Error
	if err != nil {
		return fmt.Errorf("failed to add user %s to role %s: %w", userID, roleID, err)
	}
	return nil
}
