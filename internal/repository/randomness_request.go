package repository

import (
	"context"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RandomnessRequestRepository interface {
	Create(ctx context.Context, request *entity.RandomnessRequest) error
	GetByRequestID(ctx context.Context, requestID string) (*entity.RandomnessRequest, error)
	GetByLotteryID(ctx context.Context, lotteryID string) ([]entity.RandomnessRequest, error)
	Resolve(ctx context.Context, requestID string, status entity.RandomnessRequestStatus, now time.Time) error
	AbandonPending(ctx context.Context, lotteryID string, now time.Time) (int64, error)
}

type randomnessRequestRepository struct{}

func NewRandomnessRequestRepository() *randomnessRequestRepository {
	return &randomnessRequestRepository{}
}

func (r *randomnessRequestRepository) Create(ctx context.Context, request *entity.RandomnessRequest) error {
	return xcontext.DB(ctx).Create(request).Error
}

func (r *randomnessRequestRepository) GetByRequestID(
	ctx context.Context, requestID string,
) (*entity.RandomnessRequest, error) {
	var result entity.RandomnessRequest
	if err := xcontext.DB(ctx).Take(&result, "request_id=?", requestID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *randomnessRequestRepository) GetByLotteryID(
	ctx context.Context, lotteryID string,
) ([]entity.RandomnessRequest, error) {
	var result []entity.RandomnessRequest
	err := xcontext.DB(ctx).Where("lottery_id=?", lotteryID).
		Order("requested_at ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Resolve moves a pending request to status. Only the first caller succeeds,
// the others get gorm.ErrRecordNotFound.
func (r *randomnessRequestRepository) Resolve(
	ctx context.Context, requestID string, status entity.RandomnessRequestStatus, now time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.RandomnessRequest{}).
		Where("request_id=? AND status=?", requestID, entity.RandomnessRequestPending).
		Updates(map[string]any{"status": status, "resolved_at": now})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// AbandonPending fails every pending request of the lottery and returns how
// many there were.
func (r *randomnessRequestRepository) AbandonPending(
	ctx context.Context, lotteryID string, now time.Time,
) (int64, error) {
	tx := xcontext.DB(ctx).Model(&entity.RandomnessRequest{}).
		Where("lottery_id=? AND status=?", lotteryID, entity.RandomnessRequestPending).
		Updates(map[string]any{"status": entity.RandomnessRequestFailed, "resolved_at": now})

	return tx.RowsAffected, tx.Error
}
