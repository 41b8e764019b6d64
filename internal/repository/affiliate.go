package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AffiliateRepository interface {
	Create(ctx context.Context, affiliate *entity.Affiliate) error
	GetByID(ctx context.Context, id string) (*entity.Affiliate, error)
	GetByUserID(ctx context.Context, userID string) (*entity.Affiliate, error)
	SetManualTier(ctx context.Context, id string, tier sql.NullInt32) error
	AddPendingEarnings(ctx context.Context, id string, amount decimal.Decimal) error
	WithdrawPendingEarnings(ctx context.Context, id string, amount decimal.Decimal) error

	CreateReferral(ctx context.Context, referral *entity.Referral) error
	GetReferralByReferredUserID(ctx context.Context, userID string) (*entity.Referral, error)
	CountValidatedReferrals(ctx context.Context, affiliateID string) (int64, error)
	RecordReferralPurchase(
		ctx context.Context, referralID string, tickets int, value, commission decimal.Decimal, now time.Time,
	) error
}

type affiliateRepository struct{}

func NewAffiliateRepository() *affiliateRepository {
	return &affiliateRepository{}
}

func (r *affiliateRepository) Create(ctx context.Context, affiliate *entity.Affiliate) error {
	return xcontext.DB(ctx).Create(affiliate).Error
}

func (r *affiliateRepository) GetByID(ctx context.Context, id string) (*entity.Affiliate, error) {
	var result entity.Affiliate
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *affiliateRepository) GetByUserID(ctx context.Context, userID string) (*entity.Affiliate, error) {
	var result entity.Affiliate
	if err := xcontext.DB(ctx).Take(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *affiliateRepository) SetManualTier(ctx context.Context, id string, tier sql.NullInt32) error {
	tx := xcontext.DB(ctx).Model(&entity.Affiliate{}).
		Where("id=?", id).
		Update("manual_tier", tier)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *affiliateRepository) AddPendingEarnings(ctx context.Context, id string, amount decimal.Decimal) error {
	tx := xcontext.DB(ctx).Model(&entity.Affiliate{}).
		Where("id=?", id).
		Update("pending_earnings", gorm.Expr("pending_earnings+?", amount))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// WithdrawPendingEarnings moves amount from the pending to the total earnings.
// It fails with gorm.ErrRecordNotFound if the pending balance is lower.
func (r *affiliateRepository) WithdrawPendingEarnings(
	ctx context.Context, id string, amount decimal.Decimal,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Affiliate{}).
		Where("id=? AND pending_earnings>=?", id, amount).
		Updates(map[string]any{
			"pending_earnings": gorm.Expr("pending_earnings-?", amount),
			"total_earned":     gorm.Expr("total_earned+?", amount),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *affiliateRepository) CreateReferral(ctx context.Context, referral *entity.Referral) error {
	return xcontext.DB(ctx).Create(referral).Error
}

func (r *affiliateRepository) GetReferralByReferredUserID(
	ctx context.Context, userID string,
) (*entity.Referral, error) {
	var result entity.Referral
	if err := xcontext.DB(ctx).Take(&result, "referred_user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *affiliateRepository) CountValidatedReferrals(ctx context.Context, affiliateID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Referral{}).
		Where("referrer_affiliate_id=? AND is_validated=?", affiliateID, true).
		Count(&count).Error
	return count, err
}

func (r *affiliateRepository) RecordReferralPurchase(
	ctx context.Context, referralID string, tickets int, value, commission decimal.Decimal, now time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Referral{}).
		Where("id=?", referralID).
		Updates(map[string]any{
			"is_validated":            true,
			"first_purchase_at":       gorm.Expr("COALESCE(first_purchase_at, ?)", now),
			"total_tickets_purchased": gorm.Expr("total_tickets_purchased+?", tickets),
			"total_value":             gorm.Expr("total_value+?", value),
			"total_commission_earned": gorm.Expr("total_commission_earned+?", commission),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
