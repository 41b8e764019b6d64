package repository

import (
	"context"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)
	GetByTicketID(ctx context.Context, ticketID string) (*entity.Claim, error)
	GetByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.Claim, error)
	GetSubmitted(ctx context.Context, limit int) ([]entity.Claim, error)

	Prepare(ctx context.Context, id, blockhash string, lastValidHeight uint64, now time.Time) error
	LeaseSubmit(ctx context.Context, id, signature string) error
	RevertSubmit(ctx context.Context, id, signature string) error
	MarkClaimed(ctx context.Context, id, signature string, now time.Time) error
	MarkConfirmed(ctx context.Context, id string, now time.Time) error
}

type claimRepository struct{}

func NewClaimRepository() *claimRepository {
	return &claimRepository{}
}

func (r *claimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	return xcontext.DB(ctx).Create(claim).Error
}

func (r *claimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	var result entity.Claim
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *claimRepository) GetByTicketID(ctx context.Context, ticketID string) (*entity.Claim, error) {
	var result entity.Claim
	if err := xcontext.DB(ctx).Take(&result, "ticket_id=?", ticketID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *claimRepository) GetByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.Claim, error) {
	var result []entity.Claim
	err := xcontext.DB(ctx).Where("user_id=?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *claimRepository) GetSubmitted(ctx context.Context, limit int) ([]entity.Claim, error) {
	var result []entity.Claim
	err := xcontext.DB(ctx).Where("state=?", entity.ClaimSubmitted).
		Order("updated_at ASC").Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Prepare records the blockhash of the latest unsigned transaction handed to
// the claimant. Claims which are claimed or have a submission in flight are
// left untouched and gorm.ErrRecordNotFound is returned.
func (r *claimRepository) Prepare(
	ctx context.Context, id, blockhash string, lastValidHeight uint64, now time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Claim{}).
		Where("id=? AND is_claimed=? AND state IN (?)", id, false,
			[]entity.ClaimState{entity.ClaimCreated, entity.ClaimPrepared, entity.ClaimFailed}).
		Updates(map[string]any{
			"state":                      entity.ClaimPrepared,
			"prepared_blockhash":         blockhash,
			"prepared_last_valid_height": lastValidHeight,
			"prepared_at":                now,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// LeaseSubmit attaches the signature of the transaction about to be broadcast.
// At most one caller wins per claim, losers get gorm.ErrRecordNotFound and must
// not broadcast.
func (r *claimRepository) LeaseSubmit(ctx context.Context, id, signature string) error {
	tx := xcontext.DB(ctx).Model(&entity.Claim{}).
		Where("id=? AND is_claimed=? AND tx_signature IS NULL AND state IN (?)", id, false,
			[]entity.ClaimState{entity.ClaimPrepared, entity.ClaimFailed}).
		Updates(map[string]any{
			"state":        entity.ClaimSubmitted,
			"tx_signature": signature,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// RevertSubmit returns a leased claim whose broadcast was rejected to the
// failed state, from which it can be prepared again.
func (r *claimRepository) RevertSubmit(ctx context.Context, id, signature string) error {
	tx := xcontext.DB(ctx).Model(&entity.Claim{}).
		Where("id=? AND is_claimed=? AND tx_signature=?", id, false, signature).
		Updates(map[string]any{
			"state":        entity.ClaimFailed,
			"tx_signature": nil,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// MarkClaimed flips is_claimed for the claim holding signature. It is the only
// place where is_claimed becomes true.
func (r *claimRepository) MarkClaimed(ctx context.Context, id, signature string, now time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.Claim{}).
		Where("id=? AND is_claimed=? AND tx_signature=?", id, false, signature).
		Updates(map[string]any{
			"is_claimed": true,
			"claimed_at": now,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *claimRepository) MarkConfirmed(ctx context.Context, id string, now time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.Claim{}).
		Where("id=? AND is_claimed=? AND state=?", id, true, entity.ClaimSubmitted).
		Updates(map[string]any{
			"state":        entity.ClaimConfirmed,
			"confirmed_at": now,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
