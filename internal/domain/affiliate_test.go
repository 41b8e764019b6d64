package domain

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type failingTierAuditRepo struct {
	repository.TierAuditRepository
}

func (r *failingTierAuditRepo) Create(context.Context, *entity.TierAuditEntry) error {
	return errors.New("disk full")
}

func newTestAffiliateDomain(tierAuditRepo repository.TierAuditRepository) *affiliateDomain {
	return NewAffiliateDomain(
		repository.NewAffiliateRepository(),
		tierAuditRepo,
		repository.NewAffiliateApplicationRepository(),
		repository.NewUserRepository(),
	)
}

func adminContext(ctx context.Context) context.Context {
	ctx = xcontext.WithRequestUserID(ctx, testutil.AdminUser.ID)
	ctx = xcontext.WithRequestIP(ctx, "10.0.0.7")
	return xcontext.WithRequestUserAgent(ctx, "admin-console/1.0")
}

func Test_effectiveTier(t *testing.T) {
	tiers := testutil.MockConfigs().Affiliate.Tiers

	testCases := []struct {
		name      string
		manual    sql.NullInt32
		validated int64
		want      int
	}{
		{name: "no referral", validated: 0, want: 1},
		{name: "below second tier", validated: 99, want: 1},
		{name: "second tier", validated: 100, want: 2},
		{name: "third tier", validated: 1000, want: 3},
		{name: "top tier", validated: 5000, want: 4},
		{name: "far above top tier", validated: 100000, want: 4},
		{name: "manual tier wins", manual: sql.NullInt32{Int32: 4, Valid: true}, validated: 0, want: 4},
		{name: "manual tier below computed", manual: sql.NullInt32{Int32: 1, Valid: true}, validated: 5000, want: 1},
		{name: "unknown manual tier", manual: sql.NullInt32{Int32: 9, Valid: true}, validated: 100, want: 2},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, effectiveTier(tiers, tt.manual, tt.validated).Level)
		})
	}
}

func Test_commission(t *testing.T) {
	require.Equal(t, "15000000", commission(decimal.NewFromInt(300000000), 5).String())
	require.Equal(t, "0", commission(decimal.NewFromInt(19), 5).String())
	require.Equal(t, "6", commission(decimal.NewFromInt(21), 30).String())
}

func Test_affiliateDomain_GetMyAffiliate(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestAffiliateDomain(repository.NewTierAuditRepository())

	resp, err := domain.GetMyAffiliate(xcontext.WithRequestUserID(ctx, testutil.User1.ID), &model.GetMyAffiliateRequest{})
	require.NoError(t, err)
	require.Equal(t, testutil.Affiliate1.ID, resp.Affiliate.ID)
	require.Equal(t, "USER1", resp.Affiliate.ReferralCode)
	require.Equal(t, 1, resp.Affiliate.Tier)
	require.Equal(t, 5, resp.Affiliate.CommissionPercent)

	// Users become affiliates on first visit and keep their code.
	ctxUser3 := xcontext.WithRequestUserID(ctx, testutil.User3.ID)
	first, err := domain.GetMyAffiliate(ctxUser3, &model.GetMyAffiliateRequest{})
	require.NoError(t, err)
	require.Len(t, first.Affiliate.ReferralCode, 8)
	require.Equal(t, "0", first.Affiliate.PendingEarnings)

	second, err := domain.GetMyAffiliate(ctxUser3, &model.GetMyAffiliateRequest{})
	require.NoError(t, err)
	require.Equal(t, first.Affiliate.ID, second.Affiliate.ID)
	require.Equal(t, first.Affiliate.ReferralCode, second.Affiliate.ReferralCode)
}

func Test_affiliateDomain_ManualTier(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestAffiliateDomain(repository.NewTierAuditRepository())
	ctxAdmin := adminContext(ctx)

	_, err := domain.SetManualTier(ctxAdmin, &model.SetManualTierRequest{
		AffiliateID: testutil.Affiliate1.ID,
		Tier:        3,
		Reason:      "launch partner",
	})
	require.NoError(t, err)

	mine, err := domain.GetMyAffiliate(xcontext.WithRequestUserID(ctx, testutil.User1.ID), &model.GetMyAffiliateRequest{})
	require.NoError(t, err)
	require.Equal(t, 3, mine.Affiliate.Tier)
	require.Equal(t, 3, mine.Affiliate.ManualTier)
	require.Equal(t, 20, mine.Affiliate.CommissionPercent)

	history, err := domain.GetTierHistory(ctxAdmin, &model.GetTierHistoryRequest{AffiliateID: testutil.Affiliate1.ID})
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)

	entry := history.Entries[0]
	require.Equal(t, testutil.AdminUser.ID, entry.AdminID)
	require.Equal(t, string(entity.TierAuditSetManualTier), entry.Action)
	require.Equal(t, 1, entry.OldTier)
	require.Equal(t, 3, entry.NewTier)
	require.Equal(t, "launch partner", entry.Reason)
	require.Equal(t, "10.0.0.7", entry.IPAddress)
	require.Equal(t, "admin-console/1.0", entry.UserAgent)

	_, err = domain.RemoveManualTier(ctxAdmin, &model.RemoveManualTierRequest{
		AffiliateID: testutil.Affiliate1.ID,
		Reason:      "campaign ended",
	})
	require.NoError(t, err)

	mine, err = domain.GetMyAffiliate(xcontext.WithRequestUserID(ctx, testutil.User1.ID), &model.GetMyAffiliateRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, mine.Affiliate.Tier)
	require.Equal(t, 0, mine.Affiliate.ManualTier)

	// Removing twice has nothing to remove.
	_, err = domain.RemoveManualTier(ctxAdmin, &model.RemoveManualTierRequest{
		AffiliateID: testutil.Affiliate1.ID,
		Reason:      "again",
	})
	require.ErrorIs(t, err, errorx.New(errorx.Conflict, ""))

	recent, err := domain.GetRecentTierActions(ctxAdmin, &model.GetRecentTierActionsRequest{
		AdminID: testutil.AdminUser.ID,
	})
	require.NoError(t, err)
	require.Len(t, recent.Entries, 2)

	actions := []string{recent.Entries[0].Action, recent.Entries[1].Action}
	require.ElementsMatch(t, []string{
		string(entity.TierAuditSetManualTier),
		string(entity.TierAuditRemoveManualTier),
	}, actions)

	for _, e := range recent.Entries {
		if e.Action == string(entity.TierAuditRemoveManualTier) {
			require.Equal(t, 3, e.OldTier)
			require.Equal(t, 0, e.NewTier)
		}
	}
}

func Test_affiliateDomain_ManualTier_Invalid(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestAffiliateDomain(repository.NewTierAuditRepository())
	ctxAdmin := adminContext(ctx)

	testCases := []struct {
		name string
		ctx  context.Context
		req  *model.SetManualTierRequest
		want errorx.Code
	}{
		{
			name: "not an admin",
			ctx:  xcontext.WithRequestUserID(ctx, testutil.User1.ID),
			req:  &model.SetManualTierRequest{AffiliateID: testutil.Affiliate1.ID, Tier: 2, Reason: "self promotion"},
			want: errorx.PermissionDenied,
		},
		{
			name: "unknown user",
			ctx:  xcontext.WithRequestUserID(ctx, "not_exist"),
			req:  &model.SetManualTierRequest{AffiliateID: testutil.Affiliate1.ID, Tier: 2, Reason: "reason"},
			want: errorx.PermissionDenied,
		},
		{
			name: "tier zero",
			ctx:  ctxAdmin,
			req:  &model.SetManualTierRequest{AffiliateID: testutil.Affiliate1.ID, Tier: 0, Reason: "reason"},
			want: errorx.Validation,
		},
		{
			name: "tier above the last",
			ctx:  ctxAdmin,
			req:  &model.SetManualTierRequest{AffiliateID: testutil.Affiliate1.ID, Tier: 5, Reason: "reason"},
			want: errorx.Validation,
		},
		{
			name: "blank reason",
			ctx:  ctxAdmin,
			req:  &model.SetManualTierRequest{AffiliateID: testutil.Affiliate1.ID, Tier: 2, Reason: "   "},
			want: errorx.Validation,
		},
		{
			name: "unknown affiliate",
			ctx:  ctxAdmin,
			req:  &model.SetManualTierRequest{AffiliateID: "not_exist", Tier: 2, Reason: "reason"},
			want: errorx.NotFound,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.SetManualTier(tt.ctx, tt.req)
			require.ErrorIs(t, err, errorx.New(tt.want, ""))
		})
	}

	_, err := domain.GetTierHistory(ctxAdmin, &model.GetTierHistoryRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	_, err = domain.GetRecentTierActions(
		xcontext.WithRequestUserID(ctx, testutil.User2.ID), &model.GetRecentTierActionsRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))
}

func Test_affiliateDomain_ManualTier_AuditFailure(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestAffiliateDomain(&failingTierAuditRepo{repository.NewTierAuditRepository()})

	_, err := domain.SetManualTier(adminContext(ctx), &model.SetManualTierRequest{
		AffiliateID: testutil.Affiliate1.ID,
		Tier:        4,
		Reason:      "vip",
	})
	require.ErrorIs(t, err, errorx.Unknown)

	// The tier change is rolled back with the missing entry.
	affiliate, err := repository.NewAffiliateRepository().GetByID(ctx, testutil.Affiliate1.ID)
	require.NoError(t, err)
	require.False(t, affiliate.ManualTier.Valid)

	entries, err := repository.NewTierAuditRepository().GetByAffiliateID(ctx, testutil.Affiliate1.ID, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}
