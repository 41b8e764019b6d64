package repository

import (
	"context"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

type DrawRepository interface {
	Create(ctx context.Context, draw *entity.Draw) error
	GetByID(ctx context.Context, id string) (*entity.Draw, error)
	GetByLotteryID(ctx context.Context, lotteryID string) (*entity.Draw, error)
	GetList(ctx context.Context, offset, limit int) ([]entity.Draw, error)
	CountByLotteryID(ctx context.Context, lotteryID string) (int64, error)
	SetTxSignature(ctx context.Context, id, signature string) error
}

type drawRepository struct{}

func NewDrawRepository() *drawRepository {
	return &drawRepository{}
}

func (r *drawRepository) Create(ctx context.Context, draw *entity.Draw) error {
	return xcontext.DB(ctx).Create(draw).Error
}

func (r *drawRepository) GetByID(ctx context.Context, id string) (*entity.Draw, error) {
	var result entity.Draw
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawRepository) GetByLotteryID(ctx context.Context, lotteryID string) (*entity.Draw, error) {
	var result entity.Draw
	if err := xcontext.DB(ctx).Take(&result, "lottery_id=?", lotteryID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawRepository) GetList(ctx context.Context, offset, limit int) ([]entity.Draw, error) {
	var result []entity.Draw
	err := xcontext.DB(ctx).Order("drawn_at DESC").
		Offset(offset).Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawRepository) CountByLotteryID(ctx context.Context, lotteryID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Draw{}).Where("lottery_id=?", lotteryID).Count(&count).Error
	return count, err
}

func (r *drawRepository) SetTxSignature(ctx context.Context, id, signature string) error {
	return xcontext.DB(ctx).Model(&entity.Draw{}).
		Where("id=?", id).
		Update("tx_signature", signature).Error
}
