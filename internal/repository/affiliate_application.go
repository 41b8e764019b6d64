package repository

import (
	"context"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type AffiliateApplicationRepository interface {
	Create(ctx context.Context, application *entity.AffiliateApplication) error
	GetByID(ctx context.Context, id string) (*entity.AffiliateApplication, error)
	GetByUserID(ctx context.Context, userID string) (*entity.AffiliateApplication, error)

	// GetList returns a page of applications, newest first, and the total
	// count. An empty status matches every application.
	GetList(
		ctx context.Context, status entity.AffiliateApplicationStatus, offset, limit int,
	) ([]entity.AffiliateApplication, int64, error)

	// Review decides a pending application. It fails with
	// gorm.ErrRecordNotFound if the application is not pending anymore.
	Review(
		ctx context.Context,
		id string,
		status entity.AffiliateApplicationStatus,
		notes, reviewerID string,
		now time.Time,
	) error
}

type affiliateApplicationRepository struct{}

func NewAffiliateApplicationRepository() *affiliateApplicationRepository {
	return &affiliateApplicationRepository{}
}

func (r *affiliateApplicationRepository) Create(
	ctx context.Context, application *entity.AffiliateApplication,
) error {
	return xcontext.DB(ctx).Create(application).Error
}

func (r *affiliateApplicationRepository) GetByID(
	ctx context.Context, id string,
) (*entity.AffiliateApplication, error) {
	var result entity.AffiliateApplication
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *affiliateApplicationRepository) GetByUserID(
	ctx context.Context, userID string,
) (*entity.AffiliateApplication, error) {
	var result entity.AffiliateApplication
	if err := xcontext.DB(ctx).Take(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *affiliateApplicationRepository) GetList(
	ctx context.Context, status entity.AffiliateApplicationStatus, offset, limit int,
) ([]entity.AffiliateApplication, int64, error) {
	query := func() *gorm.DB {
		tx := xcontext.DB(ctx).Model(&entity.AffiliateApplication{})
		if status != "" {
			tx = tx.Where("status=?", status)
		}
		return tx
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var result []entity.AffiliateApplication
	err := query().Order("created_at DESC").Offset(offset).Limit(limit).Find(&result).Error
	if err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *affiliateApplicationRepository) Review(
	ctx context.Context,
	id string,
	status entity.AffiliateApplicationStatus,
	notes, reviewerID string,
	now time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.AffiliateApplication{}).
		Where("id=? AND status=?", id, entity.AffiliateApplicationPending).
		Updates(map[string]any{
			"status":      status,
			"admin_notes": notes,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
