package repository

import (
	"context"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

type LedgerTransactionRepository interface {
	Create(ctx context.Context, tx *entity.LedgerTransaction) error
	GetBySignature(ctx context.Context, signature string) (*entity.LedgerTransaction, error)
	GetInProgress(ctx context.Context, limit int) ([]entity.LedgerTransaction, error)
	UpdateStatus(ctx context.Context, signature string, status entity.LedgerTransactionStatus) error
}

type ledgerTransactionRepository struct{}

func NewLedgerTransactionRepository() *ledgerTransactionRepository {
	return &ledgerTransactionRepository{}
}

func (r *ledgerTransactionRepository) Create(ctx context.Context, tx *entity.LedgerTransaction) error {
	return xcontext.DB(ctx).Create(tx).Error
}

func (r *ledgerTransactionRepository) GetBySignature(
	ctx context.Context, signature string,
) (*entity.LedgerTransaction, error) {
	var result entity.LedgerTransaction
	if err := xcontext.DB(ctx).Take(&result, "signature=?", signature).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *ledgerTransactionRepository) GetInProgress(
	ctx context.Context, limit int,
) ([]entity.LedgerTransaction, error) {
	var result []entity.LedgerTransaction
	err := xcontext.DB(ctx).Where("status=?", entity.LedgerTransactionInProgress).
		Order("created_at ASC").Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *ledgerTransactionRepository) UpdateStatus(
	ctx context.Context, signature string, status entity.LedgerTransactionStatus,
) error {
	return xcontext.DB(ctx).Model(&entity.LedgerTransaction{}).
		Where("signature=?", signature).
		Update("status", status).Error
}
