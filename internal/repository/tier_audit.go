package repository

import (
	"context"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

// TierAuditRepository has no update or delete method, entries are append-only.
type TierAuditRepository interface {
	Create(ctx context.Context, entry *entity.TierAuditEntry) error
	GetByAffiliateID(ctx context.Context, affiliateID string, limit int) ([]entity.TierAuditEntry, error)
	GetRecent(ctx context.Context, adminID string, limit int) ([]entity.TierAuditEntry, error)
}

type tierAuditRepository struct{}

func NewTierAuditRepository() *tierAuditRepository {
	return &tierAuditRepository{}
}

func (r *tierAuditRepository) Create(ctx context.Context, entry *entity.TierAuditEntry) error {
	return xcontext.DB(ctx).Create(entry).Error
}

func (r *tierAuditRepository) GetByAffiliateID(
	ctx context.Context, affiliateID string, limit int,
) ([]entity.TierAuditEntry, error) {
	var result []entity.TierAuditEntry
	err := xcontext.DB(ctx).Where("affiliate_id=?", affiliateID).
		Order("created_at DESC").Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetRecent returns the latest entries, only those made by adminID if it is
// not empty.
func (r *tierAuditRepository) GetRecent(
	ctx context.Context, adminID string, limit int,
) ([]entity.TierAuditEntry, error) {
	tx := xcontext.DB(ctx).Order("created_at DESC").Limit(limit)
	if adminID != "" {
		tx = tx.Where("admin_id=?", adminID)
	}

	var result []entity.TierAuditEntry
	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}
