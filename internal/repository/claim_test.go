package repository_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClaimRepository_Lifecycle(t *testing.T) {
	ctx := testutil.MockContext()
	claimRepo := repository.NewClaimRepository()
	_, ticket := testutil.CreateDrawnLottery(ctx, "xmas", 10, testutil.User1.ID, decimal.NewFromInt(500))

	claim := &entity.Claim{
		Base:     entity.Base{ID: "claim1"},
		UserID:   testutil.User1.ID,
		TicketID: sql.NullString{String: ticket.ID, Valid: true},
		Amount:   decimal.NewFromInt(500),
		Type:     entity.ClaimPrize,
		State:    entity.ClaimCreated,
	}
	require.NoError(t, claimRepo.Create(ctx, claim))

	// A ticket has a single claim.
	duplicate := *claim
	duplicate.ID = "claim2"
	require.Error(t, claimRepo.Create(ctx, &duplicate))

	// Not prepared yet.
	require.ErrorIs(t, claimRepo.LeaseSubmit(ctx, claim.ID, "sig1"), gorm.ErrRecordNotFound)

	now := time.Now()
	require.NoError(t, claimRepo.Prepare(ctx, claim.ID, "hash1", 100, now))
	require.NoError(t, claimRepo.LeaseSubmit(ctx, claim.ID, "sig1"))

	// The lease is exclusive and freezes the prepared transaction.
	require.ErrorIs(t, claimRepo.LeaseSubmit(ctx, claim.ID, "sig2"), gorm.ErrRecordNotFound)
	require.ErrorIs(t, claimRepo.Prepare(ctx, claim.ID, "hash2", 200, now), gorm.ErrRecordNotFound)

	submitted, err := claimRepo.GetSubmitted(ctx, 10)
	require.NoError(t, err)
	require.Len(t, submitted, 1)
	require.Equal(t, "sig1", submitted[0].TxSignature.String)
	require.Equal(t, uint64(100), submitted[0].PreparedLastValidHeight)

	require.ErrorIs(t, claimRepo.RevertSubmit(ctx, claim.ID, "sig2"), gorm.ErrRecordNotFound)
	require.NoError(t, claimRepo.RevertSubmit(ctx, claim.ID, "sig1"))

	stored, err := claimRepo.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ClaimFailed, stored.State)
	require.Equal(t, entity.ClaimStatusPending, stored.Status())

	require.NoError(t, claimRepo.Prepare(ctx, claim.ID, "hash2", 200, now))
	require.NoError(t, claimRepo.LeaseSubmit(ctx, claim.ID, "sig2"))

	stored, err = claimRepo.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ClaimStatusProcessing, stored.Status())

	// Only the leased signature settles the claim, and only once.
	require.ErrorIs(t, claimRepo.MarkClaimed(ctx, claim.ID, "sig1", now), gorm.ErrRecordNotFound)
	require.NoError(t, claimRepo.MarkClaimed(ctx, claim.ID, "sig2", now))
	require.ErrorIs(t, claimRepo.MarkClaimed(ctx, claim.ID, "sig2", now), gorm.ErrRecordNotFound)
	require.ErrorIs(t, claimRepo.RevertSubmit(ctx, claim.ID, "sig2"), gorm.ErrRecordNotFound)

	require.NoError(t, claimRepo.MarkConfirmed(ctx, claim.ID, now))
	require.ErrorIs(t, claimRepo.MarkConfirmed(ctx, claim.ID, now), gorm.ErrRecordNotFound)

	stored, err = claimRepo.GetByTicketID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, stored.IsClaimed)
	require.Equal(t, entity.ClaimConfirmed, stored.State)
	require.Equal(t, entity.ClaimStatusCompleted, stored.Status())
	require.True(t, stored.ConfirmedAt.Valid)

	submitted, err = claimRepo.GetSubmitted(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, submitted)

	mine, err := claimRepo.GetByUserID(ctx, testutil.User1.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}
