package domain

import (
	"testing"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func Test_lotteryDomain_Get(t *testing.T) {
	ctx := testutil.MockContext()
	domain := NewLotteryDomain(repository.NewLotteryRepository())

	resp, err := domain.Get(ctx, &model.GetLotteryRequest{ID: testutil.Lottery2.ID})
	require.NoError(t, err)
	require.Equal(t, testutil.Lottery2.ID, resp.Lottery.ID)
	require.Equal(t, string(entity.LotteryJackpot), resp.Lottery.Type)
	require.Equal(t, uint32(3), resp.Lottery.CurrentTickets)
	require.Equal(t, "600000000", resp.Lottery.PrizePool)

	_, err = domain.Get(ctx, &model.GetLotteryRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	_, err = domain.Get(ctx, &model.GetLotteryRequest{ID: "not_exist"})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))
}

func Test_lotteryDomain_GetActive(t *testing.T) {
	ctx := testutil.MockContext()
	domain := NewLotteryDomain(repository.NewLotteryRepository())
	testutil.CreateDrawnLottery(ctx, "drawn", 10, testutil.User1.ID, decimal.NewFromInt(1))

	all, err := domain.GetActive(ctx, &model.GetActiveLotteriesRequest{})
	require.NoError(t, err)
	require.Len(t, all.Lotteries, 3)

	jackpots, err := domain.GetActive(ctx, &model.GetActiveLotteriesRequest{Type: "jackpot"})
	require.NoError(t, err)
	require.Len(t, jackpots.Lotteries, 1)
	require.Equal(t, testutil.Lottery2.ID, jackpots.Lotteries[0].ID)

	// The only xmas lottery is drawn.
	xmas, err := domain.GetActive(ctx, &model.GetActiveLotteriesRequest{Type: "xmas"})
	require.NoError(t, err)
	require.Empty(t, xmas.Lotteries)

	_, err = domain.GetActive(ctx, &model.GetActiveLotteriesRequest{Type: "weekly"})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))
}

func Test_lotteryDomain_CreateNextCycles(t *testing.T) {
	ctx := testutil.MockContext()
	domain := NewLotteryDomain(repository.NewLotteryRepository())

	before := time.Now()
	created, err := domain.CreateNextCycles(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)

	lottery := created[0]
	require.Equal(t, entity.LotteryXmas, lottery.Type)
	require.Equal(t, uint64(4), lottery.OnchainID)
	require.Equal(t, uint32(7500), lottery.MaxTickets)
	require.Equal(t, "200000000", lottery.TicketPrice.String())
	require.True(t, lottery.DrawTimestamp.After(before.Add(364*24*time.Hour)))

	stored, err := repository.NewLotteryRepository().GetByOnchainID(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, lottery.ID, stored.ID)
	require.False(t, stored.IsDrawn)

	// Every type has an open lottery now.
	created, err = domain.CreateNextCycles(ctx)
	require.NoError(t, err)
	require.Empty(t, created)
}
