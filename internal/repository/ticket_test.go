package repository_test

import (
	"testing"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTicketRepository_ConfirmPurchase(t *testing.T) {
	ctx := testutil.MockContext()
	ticketRepo := repository.NewTicketRepository()
	purchaseID := testutil.Lottery2Tickets[0].PurchaseID

	require.NoError(t, ticketRepo.ConfirmPurchase(ctx, purchaseID, "sig"))
	require.ErrorIs(t, ticketRepo.ConfirmPurchase(ctx, purchaseID, "other_sig"), gorm.ErrRecordNotFound)

	tickets, err := ticketRepo.GetByPurchaseID(ctx, purchaseID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	require.Equal(t, "sig", tickets[0].TxSignature)

	// Other purchases keep their placeholder.
	other, err := ticketRepo.GetByID(ctx, testutil.Lottery2Tickets[1].ID)
	require.NoError(t, err)
	require.Equal(t, entity.PendingTxSignature(other.PurchaseID), other.TxSignature)
}

func TestTicketRepository_MarkWinner(t *testing.T) {
	ctx := testutil.MockContext()
	ticketRepo := repository.NewTicketRepository()

	require.NoError(t, ticketRepo.MarkWinner(ctx, testutil.Lottery2.ID, 3))
	require.ErrorIs(t, ticketRepo.MarkWinner(ctx, testutil.Lottery2.ID, 3), gorm.ErrRecordNotFound)
	require.ErrorIs(t, ticketRepo.MarkWinner(ctx, testutil.Lottery2.ID, 4), gorm.ErrRecordNotFound)

	tickets, err := ticketRepo.GetByLotteryID(ctx, testutil.Lottery2.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	for i, ticket := range tickets {
		require.Equal(t, uint32(i+1), ticket.TicketNumber)
		require.Equal(t, ticket.TicketNumber == 3, ticket.IsWinner)
	}

	winner, err := ticketRepo.GetByNumber(ctx, testutil.Lottery2.ID, 3)
	require.NoError(t, err)
	require.Equal(t, testutil.User1.ID, winner.UserID)

	mine, err := ticketRepo.GetByUserID(ctx, testutil.User1.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
}

func TestTicketRepository_UniqueNumber(t *testing.T) {
	ctx := testutil.MockContext()
	ticketRepo := repository.NewTicketRepository()

	duplicate := testutil.Lottery2Tickets[0]
	duplicate.ID = "duplicate"
	require.Error(t, ticketRepo.CreateMany(ctx, []entity.Ticket{duplicate}))
}
