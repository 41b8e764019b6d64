package domain

import (
	"context"
	"testing"
	"time"

	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func myMissions(t *testing.T, ctx context.Context, userID string) (map[string]model.Mission, int64) {
	domain := newTestMissionDomain()
	resp, err := domain.GetMyMissions(xcontext.WithRequestUserID(ctx, userID), &model.GetMyMissionsRequest{})
	require.NoError(t, err)

	result := map[string]model.Mission{}
	for _, m := range resp.Missions {
		result[m.Key] = m
	}

	return result, resp.PowerPoints
}

// moveWindow starts the current window of a user mission the given duration
// ago.
func moveWindow(t *testing.T, ctx context.Context, userID, key string, ago time.Duration) {
	err := xcontext.DB(ctx).Model(&entity.UserMission{}).
		Where("user_id=? AND mission_key=?", userID, key).
		Update("window_start", time.Now().Add(-ago)).Error
	require.NoError(t, err)
}

func Test_missionDomain_GetMissions(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestMissionDomain()

	cfg := testutil.MockConfigs()
	cfg.Mission.Missions = append(cfg.Mission.Missions,
		config.MissionPreset{Key: "broken_type", Type: "monthly", Goal: "tickets", Target: 1},
		config.MissionPreset{Key: "broken_goal", Type: "daily", Goal: "lucky", Target: 1},
		config.MissionPreset{Key: "broken_reward", Type: "daily", Goal: "tickets", Target: 1, Reward: "lots"},
	)
	ctx = xcontext.WithConfigs(ctx, cfg)

	resp, err := domain.GetMissions(ctx, &model.GetMissionsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Missions, len(testutil.MockConfigs().Mission.Missions))

	for _, m := range resp.Missions {
		require.NotEqual(t, "broken_type", m.Key)
		require.NotEqual(t, "broken_goal", m.Key)
		require.NotEqual(t, "broken_reward", m.Key)
		require.Zero(t, m.Progress)
		require.False(t, m.Completed)
	}
}

func Test_missionDomain_RecordPurchase(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestMissionDomain()
	userID := testutil.User1.ID

	// 3 tri daily tickets earn 10 points each and the daily ticket mission.
	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryTriDaily, 3))

	missions, points := myMissions(t, ctx, userID)
	require.Equal(t, int64(30+25), points)
	require.True(t, missions["daily_buy_ticket"].Completed)
	require.NotEmpty(t, missions["daily_buy_ticket"].CompletedAt)
	require.Equal(t, 3, missions["activity_buy_10_tickets"].Progress)
	require.False(t, missions["activity_buy_10_tickets"].Completed)
	require.Equal(t, 1, missions["weekly_buy_2_different"].Progress)
	require.Equal(t, 1, missions["activity_buy_all_lotteries"].Progress)
	require.False(t, missions["daily_login"].Completed)

	// 7 jackpot tickets reach 10 tickets and 2 lottery types. The daily
	// mission is done for today.
	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryJackpot, 7))

	missions, points = myMissions(t, ctx, userID)
	require.Equal(t, int64(55+140+100+50), points)
	require.True(t, missions["activity_buy_10_tickets"].Completed)
	require.True(t, missions["weekly_buy_2_different"].Completed)
	require.Equal(t, 2, missions["activity_buy_all_lotteries"].Progress)
	require.Empty(t, missions["activity_buy_all_lotteries"].ClaimID)

	// Buying a type again does not count twice.
	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryJackpot, 1))
	missions, points = myMissions(t, ctx, userID)
	require.Equal(t, int64(345+20), points)
	require.Equal(t, 2, missions["activity_buy_all_lotteries"].Progress)

	// Every lottery type completes the mission with a reward.
	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryGrandPrize, 1))
	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryXmas, 1))

	missions, points = myMissions(t, ctx, userID)
	require.Equal(t, int64(365+30+20+150), points)
	allLotteries := missions["activity_buy_all_lotteries"]
	require.True(t, allLotteries.Completed)
	require.Equal(t, "10000000", allLotteries.Reward)
	require.NotEmpty(t, allLotteries.ClaimID)

	claim, err := repository.NewClaimRepository().GetByID(ctx, allLotteries.ClaimID)
	require.NoError(t, err)
	require.Equal(t, userID, claim.UserID)
	require.Equal(t, entity.ClaimMission, claim.Type)
	require.Equal(t, entity.ClaimCreated, claim.State)
	require.Equal(t, "10000000", claim.Amount.String())

	// Completed one-time missions never count again.
	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryXmas, 10))
	missions, _ = myMissions(t, ctx, userID)
	require.Equal(t, allLotteries.ClaimID, missions["activity_buy_all_lotteries"].ClaimID)
	require.Equal(t, 10, missions["activity_buy_10_tickets"].Progress)
}

func Test_missionDomain_RecordPurchase_Windows(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestMissionDomain()
	userID := testutil.User2.ID

	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryTriDaily, 1))
	first, points := myMissions(t, ctx, userID)
	require.True(t, first["daily_buy_ticket"].Completed)
	require.Equal(t, int64(10+25), points)

	// A day later the daily mission shows as not started and completes again.
	moveWindow(t, ctx, userID, "daily_buy_ticket", 25*time.Hour)
	missions, _ := myMissions(t, ctx, userID)
	require.False(t, missions["daily_buy_ticket"].Completed)
	require.Zero(t, missions["daily_buy_ticket"].Progress)

	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryTriDaily, 1))
	missions, points = myMissions(t, ctx, userID)
	require.True(t, missions["daily_buy_ticket"].Completed)
	require.Equal(t, 1, missions["daily_buy_ticket"].Progress)
	require.Equal(t, int64(35+10+25), points)

	// The weekly window forgets the types bought in the last one.
	moveWindow(t, ctx, userID, "weekly_buy_2_different", 8*24*time.Hour)
	require.NoError(t, domain.RecordPurchase(ctx, userID, entity.LotteryJackpot, 1))
	missions, _ = myMissions(t, ctx, userID)
	require.Equal(t, 1, missions["weekly_buy_2_different"].Progress)
	require.False(t, missions["weekly_buy_2_different"].Completed)

	// One-time missions have no window.
	moveWindow(t, ctx, userID, "activity_buy_10_tickets", 365*24*time.Hour)
	missions, _ = myMissions(t, ctx, userID)
	require.Equal(t, 3, missions["activity_buy_10_tickets"].Progress)
}

func Test_missionDomain_CompleteMission(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestMissionDomain()
	ctxUser2 := xcontext.WithRequestUserID(ctx, testutil.User2.ID)

	resp, err := domain.CompleteMission(ctxUser2, &model.CompleteMissionRequest{MissionKey: "daily_login"})
	require.NoError(t, err)
	require.True(t, resp.Mission.Completed)
	require.Equal(t, 1, resp.Mission.Progress)

	_, err = domain.CompleteMission(ctxUser2, &model.CompleteMissionRequest{MissionKey: "daily_login"})
	require.ErrorIs(t, err, errorx.New(errorx.Conflict, ""))

	_, err = domain.CompleteMission(ctxUser2, &model.CompleteMissionRequest{MissionKey: "daily_buy_ticket"})
	require.ErrorIs(t, err, errorx.New(errorx.Validation, ""))

	_, err = domain.CompleteMission(ctxUser2, &model.CompleteMissionRequest{MissionKey: "not_exist"})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))

	moveWindow(t, ctx, testutil.User2.ID, "daily_login", 24*time.Hour)
	_, err = domain.CompleteMission(ctxUser2, &model.CompleteMissionRequest{MissionKey: "daily_login"})
	require.NoError(t, err)

	_, err = domain.CompleteMission(ctxUser2, &model.CompleteMissionRequest{
		MissionKey: "activity_explore_transparency",
	})
	require.NoError(t, err)

	_, points := myMissions(t, ctx, testutil.User2.ID)
	require.Equal(t, int64(10+10+25), points)
}

func Test_missionDomain_RecordReferrals(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestMissionDomain()
	userID := testutil.User1.ID

	require.NoError(t, domain.RecordReferrals(ctx, userID, 3))
	missions, points := myMissions(t, ctx, userID)
	require.True(t, missions["social_invite_3"].Completed)
	require.Empty(t, missions["social_invite_3"].ClaimID)
	require.Equal(t, 3, missions["social_invite_10"].Progress)
	require.Equal(t, int64(100), points)

	require.NoError(t, domain.RecordReferrals(ctx, userID, 10))
	missions, points = myMissions(t, ctx, userID)
	require.True(t, missions["social_invite_10"].Completed)
	require.NotEmpty(t, missions["social_invite_10"].ClaimID)
	require.Equal(t, 10, missions["social_invite_100"].Progress)
	require.Equal(t, int64(100+300), points)

	claims, err := repository.NewClaimRepository().GetByUserID(ctx, userID, 0, 10)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.Equal(t, "50000000", claims[0].Amount.String())
}

// A mission reward claim is paid out through the claim flow.
func Test_missionDomain_RewardClaim(t *testing.T) {
	ctx := testutil.MockContext()
	claimDomain := newTestClaimDomain(claimGateway(), testutil.NewEventRecorder())
	ctxUser1 := xcontext.WithRequestUserID(ctx, testutil.User1.ID)

	require.NoError(t, newTestMissionDomain().RecordReferrals(ctx, testutil.User1.ID, 10))
	missions, _ := myMissions(t, ctx, testutil.User1.ID)
	claimID := missions["social_invite_10"].ClaimID

	prepared, err := claimDomain.Prepare(ctxUser1, &model.PrepareClaimRequest{ClaimID: claimID})
	require.NoError(t, err)
	require.Equal(t, "unsigned:"+testutil.MockTreasury+":"+testutil.User1.Wallet+":50000000", prepared.UnsignedTx)

	submitted, err := claimDomain.Submit(ctxUser1, &model.SubmitClaimRequest{ClaimID: claimID, SignedTx: "mission_sig"})
	require.NoError(t, err)
	require.True(t, submitted.Confirmed)

	claim, err := repository.NewClaimRepository().GetByID(ctx, claimID)
	require.NoError(t, err)
	require.True(t, claim.IsClaimed)
	require.Equal(t, entity.ClaimConfirmed, claim.State)

	ledgerTx, err := repository.NewLedgerTransactionRepository().GetBySignature(ctx, "mission_sig")
	require.NoError(t, err)
	require.Equal(t, entity.LedgerTransactionMissionClaim, ledgerTx.Kind)

	// Other users cannot take the reward.
	_, err = claimDomain.Prepare(xcontext.WithRequestUserID(ctx, testutil.User2.ID),
		&model.PrepareClaimRequest{ClaimID: claimID})
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))
}
