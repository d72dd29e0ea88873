package directory

import (
	"context"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a directory reader bound to the provided DB.
func NewRepository(db *gorm.DB) Directory {
	return &repository{db: db}
}

func (r *repository) ListEligibleAgents(ctx context.Context) ([]models.User, error) {
	var agents []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", enums.UserRoleAgent, true).
		Order("id ASC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repository) IsManager(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND role IN ? AND is_active = ?", userID, []enums.UserRole{enums.UserRoleManager, enums.UserRoleAdmin}, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
