package domain

import (
	"testing"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func validApplication() *model.ApplyAffiliateRequest {
	return &model.ApplyAffiliateRequest{
		FullName:          " Ada Lovelace ",
		Email:             "ada@powersol.io",
		Country:           "UK",
		SocialMedia:       "@ada",
		MarketingStrategy: "Weekly threads about the draws",
	}
}

func Test_affiliateDomain_ApplyAffiliate(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestAffiliateDomain(repository.NewTierAuditRepository())
	ctxUser3 := xcontext.WithRequestUserID(ctx, testutil.User3.ID)

	_, err := domain.GetMyApplication(ctxUser3, &model.GetMyAffiliateApplicationRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))

	resp, err := domain.ApplyAffiliate(ctxUser3, validApplication())
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", resp.Application.FullName)
	require.Equal(t, testutil.User3.Wallet, resp.Application.Wallet)
	require.Equal(t, string(entity.AffiliateApplicationPending), resp.Application.Status)

	mine, err := domain.GetMyApplication(ctxUser3, &model.GetMyAffiliateApplicationRequest{})
	require.NoError(t, err)
	require.Equal(t, resp.Application.ID, mine.Application.ID)

	_, err = domain.ApplyAffiliate(ctxUser3, validApplication())
	require.ErrorIs(t, err, errorx.New(errorx.AlreadyExists, ""))
}

func Test_affiliateDomain_ApplyAffiliate_Invalid(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestAffiliateDomain(repository.NewTierAuditRepository())
	ctxUser3 := xcontext.WithRequestUserID(ctx, testutil.User3.ID)

	testCases := []struct {
		name   string
		modify func(*model.ApplyAffiliateRequest)
	}{
		{name: "blank name", modify: func(r *model.ApplyAffiliateRequest) { r.FullName = "   " }},
		{name: "no email", modify: func(r *model.ApplyAffiliateRequest) { r.Email = "" }},
		{name: "invalid email", modify: func(r *model.ApplyAffiliateRequest) { r.Email = "ada.powersol.io" }},
		{name: "no strategy", modify: func(r *model.ApplyAffiliateRequest) { r.MarketingStrategy = "" }},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req := validApplication()
			tt.modify(req)
			_, err := domain.ApplyAffiliate(ctxUser3, req)
			require.ErrorIs(t, err, errorx.New(errorx.Validation, ""))
		})
	}

	_, err := domain.GetMyApplication(ctxUser3, &model.GetMyAffiliateApplicationRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))
}

func Test_affiliateDomain_ReviewApplication(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestAffiliateDomain(repository.NewTierAuditRepository())
	ctxAdmin := adminContext(ctx)

	applied, err := domain.ApplyAffiliate(xcontext.WithRequestUserID(ctx, testutil.User3.ID), validApplication())
	require.NoError(t, err)
	_, err = domain.ApplyAffiliate(xcontext.WithRequestUserID(ctx, testutil.User2.ID), validApplication())
	require.NoError(t, err)

	// Only administrators see and review applications.
	ctxUser1 := xcontext.WithRequestUserID(ctx, testutil.User1.ID)
	_, err = domain.GetApplications(ctxUser1, &model.GetAffiliateApplicationsRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))
	_, err = domain.ReviewApplication(ctxUser1, &model.ReviewAffiliateApplicationRequest{
		ApplicationID: applied.Application.ID,
		Status:        "approved",
	})
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))

	list, err := domain.GetApplications(ctxAdmin, &model.GetAffiliateApplicationsRequest{Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, int64(2), list.Total)
	require.Len(t, list.Applications, 2)

	_, err = domain.GetApplications(ctxAdmin, &model.GetAffiliateApplicationsRequest{Status: "maybe"})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	for _, status := range []string{"pending", "maybe", ""} {
		_, err = domain.ReviewApplication(ctxAdmin, &model.ReviewAffiliateApplicationRequest{
			ApplicationID: applied.Application.ID,
			Status:        status,
		})
		require.ErrorIs(t, err, errorx.New(errorx.Validation, ""), status)
	}

	_, err = domain.ReviewApplication(ctxAdmin, &model.ReviewAffiliateApplicationRequest{
		ApplicationID: "not_exist",
		Status:        "approved",
	})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))

	_, err = domain.ReviewApplication(ctxAdmin, &model.ReviewAffiliateApplicationRequest{
		ApplicationID: applied.Application.ID,
		Status:        "approved",
		AdminNotes:    "good reach",
	})
	require.NoError(t, err)

	_, err = domain.ReviewApplication(ctxAdmin, &model.ReviewAffiliateApplicationRequest{
		ApplicationID: applied.Application.ID,
		Status:        "rejected",
	})
	require.ErrorIs(t, err, errorx.New(errorx.Conflict, ""))

	// The approved applicant is an affiliate.
	affiliate, err := repository.NewAffiliateRepository().GetByUserID(ctx, testutil.User3.ID)
	require.NoError(t, err)
	require.Len(t, affiliate.ReferralCode, 8)

	mine, err := domain.GetMyApplication(xcontext.WithRequestUserID(ctx, testutil.User3.ID),
		&model.GetMyAffiliateApplicationRequest{})
	require.NoError(t, err)
	require.Equal(t, string(entity.AffiliateApplicationApproved), mine.Application.Status)
	require.Equal(t, "good reach", mine.Application.AdminNotes)
	require.NotEmpty(t, mine.Application.ReviewedAt)

	list, err = domain.GetApplications(ctxAdmin, &model.GetAffiliateApplicationsRequest{Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)
	require.Equal(t, testutil.User2.ID, list.Applications[0].UserID)

	list, err = domain.GetApplications(ctxAdmin, &model.GetAffiliateApplicationsRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(2), list.Total)
}
