package repository

import (
	"context"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LotteryRepository interface {
	Create(ctx context.Context, lottery *entity.Lottery) error
	GetByID(ctx context.Context, id string) (*entity.Lottery, error)
	GetByOnchainID(ctx context.Context, onchainID uint64) (*entity.Lottery, error)
	GetOpen(ctx context.Context) ([]entity.Lottery, error)
	GetOpenByType(ctx context.Context, lotteryType entity.LotteryType) ([]entity.Lottery, error)
	GetDueForDraw(ctx context.Context, now time.Time) ([]entity.Lottery, error)
	GetMaxOnchainID(ctx context.Context) (uint64, error)

	AllocateTickets(ctx context.Context, id string, quantity uint32) (uint32, error)
	AcquireRandomnessLease(ctx context.Context, id string, now, staleBefore time.Time) error
	ReleaseRandomnessLease(ctx context.Context, id string) error
	MarkDrawn(ctx context.Context, id string, ticketCount, winningTicket uint32) error
	SetDrawTxSignature(ctx context.Context, id, signature string) error
	UpdatePrizePool(ctx context.Context, id string, prizePool decimal.Decimal) error
}

type lotteryRepository struct{}

func NewLotteryRepository() *lotteryRepository {
	return &lotteryRepository{}
}

func (r *lotteryRepository) Create(ctx context.Context, lottery *entity.Lottery) error {
	return xcontext.DB(ctx).Create(lottery).Error
}

func (r *lotteryRepository) GetByID(ctx context.Context, id string) (*entity.Lottery, error) {
	var result entity.Lottery
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *lotteryRepository) GetByOnchainID(ctx context.Context, onchainID uint64) (*entity.Lottery, error) {
	var result entity.Lottery
	if err := xcontext.DB(ctx).Take(&result, "onchain_id=?", onchainID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *lotteryRepository) GetOpen(ctx context.Context) ([]entity.Lottery, error) {
	var result []entity.Lottery
	err := xcontext.DB(ctx).Where("is_drawn=?", false).
		Order("draw_timestamp ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *lotteryRepository) GetOpenByType(
	ctx context.Context, lotteryType entity.LotteryType,
) ([]entity.Lottery, error) {
	var result []entity.Lottery
	err := xcontext.DB(ctx).Where("is_drawn=? AND type=?", false, lotteryType).
		Order("draw_timestamp ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *lotteryRepository) GetDueForDraw(ctx context.Context, now time.Time) ([]entity.Lottery, error) {
	var result []entity.Lottery
	err := xcontext.DB(ctx).Where("is_drawn=? AND draw_timestamp<=?", false, now).
		Order("draw_timestamp ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *lotteryRepository) GetMaxOnchainID(ctx context.Context) (uint64, error) {
	var result struct{ MaxID uint64 }
	err := xcontext.DB(ctx).Model(&entity.Lottery{}).Unscoped().
		Select("COALESCE(MAX(onchain_id), 0) AS max_id").Scan(&result).Error
	if err != nil {
		return 0, err
	}

	return result.MaxID, nil
}

// AllocateTickets reserves quantity contiguous ticket numbers and returns the
// first one. The bounded increment and the read of the new counter run in one
// transaction, the row stays locked by the increment until it commits. It
// returns gorm.ErrRecordNotFound when the lottery is missing, drawn or full.
func (r *lotteryRepository) AllocateTickets(ctx context.Context, id string, quantity uint32) (uint32, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	tx := xcontext.DB(ctx).Model(&entity.Lottery{}).
		Where("id=? AND is_drawn=? AND current_tickets+?<=max_tickets", id, false, quantity).
		Update("current_tickets", gorm.Expr("current_tickets+?", quantity))
	if tx.Error != nil {
		return 0, tx.Error
	}

	if tx.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var lottery entity.Lottery
	if err := xcontext.DB(ctx).Select("current_tickets").Take(&lottery, "id=?", id).Error; err != nil {
		return 0, err
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return 0, err
	}

	return lottery.CurrentTickets - quantity + 1, nil
}

// AcquireRandomnessLease marks a randomness request as pending for the lottery.
// It fails with gorm.ErrRecordNotFound if another request is still pending, that
// is a lease newer than staleBefore exists.
func (r *lotteryRepository) AcquireRandomnessLease(
	ctx context.Context, id string, now, staleBefore time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Lottery{}).
		Where("id=? AND is_drawn=? AND (randomness_requested_at IS NULL OR randomness_requested_at<?)",
			id, false, staleBefore).
		Update("randomness_requested_at", now)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *lotteryRepository) ReleaseRandomnessLease(ctx context.Context, id string) error {
	return xcontext.DB(ctx).Model(&entity.Lottery{}).
		Where("id=? AND is_drawn=?", id, false).
		Update("randomness_requested_at", nil).Error
}

// MarkDrawn flips is_drawn exactly once. The ticket count the winner was
// derived from is part of the guard, so a draw computed against a stale count
// never lands.
func (r *lotteryRepository) MarkDrawn(ctx context.Context, id string, ticketCount, winningTicket uint32) error {
	tx := xcontext.DB(ctx).Model(&entity.Lottery{}).
		Where("id=? AND is_drawn=? AND current_tickets=?", id, false, ticketCount).
		Updates(map[string]any{
			"is_drawn":                true,
			"winning_ticket":          winningTicket,
			"randomness_requested_at": nil,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *lotteryRepository) SetDrawTxSignature(ctx context.Context, id, signature string) error {
	return xcontext.DB(ctx).Model(&entity.Lottery{}).
		Where("id=?", id).
		Update("draw_tx_signature", signature).Error
}

func (r *lotteryRepository) UpdatePrizePool(ctx context.Context, id string, prizePool decimal.Decimal) error {
	return xcontext.DB(ctx).Model(&entity.Lottery{}).
		Where("id=?", id).
		Update("prize_pool", prizePool).Error
}
