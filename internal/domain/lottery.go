package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/enum"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LotteryDomain interface {
	Get(context.Context, *model.GetLotteryRequest) (*model.GetLotteryResponse, error)
	GetActive(context.Context, *model.GetActiveLotteriesRequest) (*model.GetActiveLotteriesResponse, error)

	// CreateNextCycles opens a new lottery for every configured type without
	// an open one, and returns the created lotteries.
	CreateNextCycles(ctx context.Context) ([]entity.Lottery, error)
}

type lotteryDomain struct {
	lotteryRepo repository.LotteryRepository
}

func NewLotteryDomain(lotteryRepo repository.LotteryRepository) *lotteryDomain {
	return &lotteryDomain{lotteryRepo: lotteryRepo}
}

func (d *lotteryDomain) Get(ctx context.Context, req *model.GetLotteryRequest) (*model.GetLotteryResponse, error) {
	if req.ID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty id")
	}

	lottery, err := d.lotteryRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found lottery")
		}

		xcontext.Logger(ctx).Errorf("Cannot get lottery: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetLotteryResponse{Lottery: convertLottery(lottery)}, nil
}

func (d *lotteryDomain) GetActive(
	ctx context.Context, req *model.GetActiveLotteriesRequest,
) (*model.GetActiveLotteriesResponse, error) {
	var lotteries []entity.Lottery
	var err error
	if req.Type == "" {
		lotteries, err = d.lotteryRepo.GetOpen(ctx)
	} else {
		lotteryType, parseErr := enum.ToEnum[entity.LotteryType](req.Type)
		if parseErr != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid lottery type")
		}

		lotteries, err = d.lotteryRepo.GetOpenByType(ctx, lotteryType)
	}

	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get open lotteries: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.Lottery{}
	for i := range lotteries {
		result = append(result, convertLottery(&lotteries[i]))
	}

	return &model.GetActiveLotteriesResponse{Lotteries: result}, nil
}

func (d *lotteryDomain) CreateNextCycles(ctx context.Context) ([]entity.Lottery, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	onchainID, err := d.lotteryRepo.GetMaxOnchainID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	created := []entity.Lottery{}
	for _, preset := range xcontext.Configs(ctx).Lottery.Presets {
		lotteryType, err := enum.ToEnum[entity.LotteryType](preset.Type)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Invalid lottery type %s in presets", preset.Type)
			continue
		}

		open, err := d.lotteryRepo.GetOpenByType(ctx, lotteryType)
		if err != nil {
			return nil, err
		}

		if len(open) > 0 {
			continue
		}

		price, err := decimal.NewFromString(preset.TicketPrice)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Invalid ticket price %s of %s preset", preset.TicketPrice, preset.Type)
			continue
		}

		onchainID++
		lottery := entity.Lottery{
			Base:          entity.Base{ID: uuid.NewString()},
			OnchainID:     onchainID,
			Type:          lotteryType,
			TicketPrice:   price,
			MaxTickets:    uint32(preset.MaxTickets),
			PrizePool:     decimal.Zero,
			DrawTimestamp: now.Add(preset.Period),
		}
		if err := d.lotteryRepo.Create(ctx, &lottery); err != nil {
			return nil, err
		}

		created = append(created, lottery)
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, err
	}

	return created, nil
}
