package repository

import (
	"context"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type TicketRepository interface {
	CreateMany(ctx context.Context, tickets []entity.Ticket) error
	GetByID(ctx context.Context, id string) (*entity.Ticket, error)
	GetByNumber(ctx context.Context, lotteryID string, number uint32) (*entity.Ticket, error)
	GetByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.Ticket, error)
	GetByLotteryID(ctx context.Context, lotteryID string) ([]entity.Ticket, error)
	GetByPurchaseID(ctx context.Context, purchaseID string) ([]entity.Ticket, error)
	MarkWinner(ctx context.Context, lotteryID string, number uint32) error
	ConfirmPurchase(ctx context.Context, purchaseID, signature string) error
}

type ticketRepository struct{}

func NewTicketRepository() *ticketRepository {
	return &ticketRepository{}
}

func (r *ticketRepository) CreateMany(ctx context.Context, tickets []entity.Ticket) error {
	return xcontext.DB(ctx).Create(&tickets).Error
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	var result entity.Ticket
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *ticketRepository) GetByNumber(ctx context.Context, lotteryID string, number uint32) (*entity.Ticket, error) {
	var result entity.Ticket
	err := xcontext.DB(ctx).Take(&result, "lottery_id=? AND ticket_number=?", lotteryID, number).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *ticketRepository) GetByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.Ticket, error) {
	var result []entity.Ticket
	err := xcontext.DB(ctx).Where("user_id=?", userID).
		Order("created_at DESC").Order("ticket_number DESC").
		Offset(offset).Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *ticketRepository) GetByLotteryID(ctx context.Context, lotteryID string) ([]entity.Ticket, error) {
	var result []entity.Ticket
	err := xcontext.DB(ctx).Where("lottery_id=?", lotteryID).
		Order("ticket_number ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *ticketRepository) GetByPurchaseID(ctx context.Context, purchaseID string) ([]entity.Ticket, error) {
	var result []entity.Ticket
	err := xcontext.DB(ctx).Where("purchase_id=?", purchaseID).
		Order("ticket_number ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *ticketRepository) MarkWinner(ctx context.Context, lotteryID string, number uint32) error {
	tx := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Where("lottery_id=? AND ticket_number=? AND is_winner=?", lotteryID, number, false).
		Update("is_winner", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// ConfirmPurchase replaces the placeholder signature of every ticket of the
// purchase. A purchase can only be confirmed once.
func (r *ticketRepository) ConfirmPurchase(ctx context.Context, purchaseID, signature string) error {
	tx := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Where("purchase_id=? AND tx_signature=?", purchaseID, entity.PendingTxSignature(purchaseID)).
		Update("tx_signature", signature)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
