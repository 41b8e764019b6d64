package repository_test

import (
	"testing"
	"time"

	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLotteryRepository_AllocateTickets(t *testing.T) {
	ctx := testutil.MockContext()
	lotteryRepo := repository.NewLotteryRepository()

	first, err := lotteryRepo.AllocateTickets(ctx, testutil.Lottery1.ID, 60)
	require.NoError(t, err)
	require.Equal(t, uint32(1), first)

	first, err = lotteryRepo.AllocateTickets(ctx, testutil.Lottery1.ID, 40)
	require.NoError(t, err)
	require.Equal(t, uint32(61), first)

	_, err = lotteryRepo.AllocateTickets(ctx, testutil.Lottery1.ID, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = lotteryRepo.AllocateTickets(ctx, "not_exist", 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	lottery, err := lotteryRepo.GetByID(ctx, testutil.Lottery1.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(100), lottery.CurrentTickets)
}

func TestLotteryRepository_RandomnessLease(t *testing.T) {
	ctx := testutil.MockContext()
	lotteryRepo := repository.NewLotteryRepository()
	now := time.Now()

	require.NoError(t, lotteryRepo.AcquireRandomnessLease(ctx, testutil.Lottery2.ID, now, now.Add(-time.Minute)))

	err := lotteryRepo.AcquireRandomnessLease(ctx, testutil.Lottery2.ID, now, now.Add(-time.Minute))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// A lease older than the stale bound can be taken over.
	later := now.Add(time.Hour)
	require.NoError(t, lotteryRepo.AcquireRandomnessLease(ctx, testutil.Lottery2.ID, later, later.Add(-time.Minute)))

	require.NoError(t, lotteryRepo.ReleaseRandomnessLease(ctx, testutil.Lottery2.ID))
	require.NoError(t, lotteryRepo.AcquireRandomnessLease(ctx, testutil.Lottery2.ID, now, now.Add(-time.Minute)))
}

func TestLotteryRepository_MarkDrawn(t *testing.T) {
	ctx := testutil.MockContext()
	lotteryRepo := repository.NewLotteryRepository()

	// The ticket count moved since the winner was computed.
	err := lotteryRepo.MarkDrawn(ctx, testutil.Lottery2.ID, 2, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, lotteryRepo.MarkDrawn(ctx, testutil.Lottery2.ID, 3, 2))

	err = lotteryRepo.MarkDrawn(ctx, testutil.Lottery2.ID, 3, 3)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	lottery, err := lotteryRepo.GetByID(ctx, testutil.Lottery2.ID)
	require.NoError(t, err)
	require.True(t, lottery.IsDrawn)
	require.Equal(t, int32(2), lottery.WinningTicket.Int32)
	require.False(t, lottery.RandomnessRequestedAt.Valid)

	// Drawn lotteries sell no ticket.
	_, err = lotteryRepo.AllocateTickets(ctx, testutil.Lottery2.ID, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	open, err := lotteryRepo.GetOpen(ctx)
	require.NoError(t, err)
	for _, l := range open {
		require.NotEqual(t, testutil.Lottery2.ID, l.ID)
	}
}

func TestLotteryRepository_GetDueForDraw(t *testing.T) {
	ctx := testutil.MockContext()
	lotteryRepo := repository.NewLotteryRepository()

	due, err := lotteryRepo.GetDueForDraw(ctx, time.Now())
	require.NoError(t, err)

	ids := []string{}
	for _, l := range due {
		ids = append(ids, l.ID)
	}
	require.ElementsMatch(t, []string{testutil.Lottery2.ID, testutil.Lottery3.ID}, ids)

	maxID, err := lotteryRepo.GetMaxOnchainID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), maxID)
}
