package repository

import (
	"context"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserMissionRepository interface {
	// CreateIfNotExists inserts mission unless the user already has a
	// progress row for the same mission.
	CreateIfNotExists(ctx context.Context, mission *entity.UserMission) error
	GetByUserID(ctx context.Context, userID string) ([]entity.UserMission, error)

	// GetForUpdate locks the progress row of the mission until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, userID, missionKey string) (*entity.UserMission, error)
	Update(ctx context.Context, mission *entity.UserMission) error
}

type userMissionRepository struct{}

func NewUserMissionRepository() *userMissionRepository {
	return &userMissionRepository{}
}

func (r *userMissionRepository) CreateIfNotExists(ctx context.Context, mission *entity.UserMission) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(mission).Error
}

func (r *userMissionRepository) GetByUserID(ctx context.Context, userID string) ([]entity.UserMission, error) {
	var result []entity.UserMission
	if err := xcontext.DB(ctx).Where("user_id=?", userID).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *userMissionRepository) GetForUpdate(
	ctx context.Context, userID, missionKey string,
) (*entity.UserMission, error) {
	var result entity.UserMission
	err := xcontext.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&result, "user_id=? AND mission_key=?", userID, missionKey).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *userMissionRepository) Update(ctx context.Context, mission *entity.UserMission) error {
	tx := xcontext.DB(ctx).Model(mission).
		Select("progress", "lottery_types", "window_start", "completed", "completed_at", "claim_id").
		Updates(mission)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
