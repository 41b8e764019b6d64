package domain

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultTierHistoryLimit   = 50
	defaultRecentActionsLimit = 100
	maxTierAuditLimit         = 500
)

type AffiliateDomain interface {
	GetMyAffiliate(context.Context, *model.GetMyAffiliateRequest) (*model.GetMyAffiliateResponse, error)
	SetManualTier(context.Context, *model.SetManualTierRequest) (*model.SetManualTierResponse, error)
	RemoveManualTier(context.Context, *model.RemoveManualTierRequest) (*model.RemoveManualTierResponse, error)
	GetTierHistory(context.Context, *model.GetTierHistoryRequest) (*model.GetTierHistoryResponse, error)
	GetRecentTierActions(
		context.Context, *model.GetRecentTierActionsRequest) (*model.GetRecentTierActionsResponse, error)

	ApplyAffiliate(context.Context, *model.ApplyAffiliateRequest) (*model.ApplyAffiliateResponse, error)
	GetMyApplication(
		context.Context, *model.GetMyAffiliateApplicationRequest) (*model.GetMyAffiliateApplicationResponse, error)
	GetApplications(
		context.Context, *model.GetAffiliateApplicationsRequest) (*model.GetAffiliateApplicationsResponse, error)
	ReviewApplication(
		context.Context, *model.ReviewAffiliateApplicationRequest) (*model.ReviewAffiliateApplicationResponse, error)
}

type affiliateDomain struct {
	affiliateRepo   repository.AffiliateRepository
	tierAuditRepo   repository.TierAuditRepository
	applicationRepo repository.AffiliateApplicationRepository
	userRepo        repository.UserRepository
	adminVerifier   *common.AdminVerifier
}

func NewAffiliateDomain(
	affiliateRepo repository.AffiliateRepository,
	tierAuditRepo repository.TierAuditRepository,
	applicationRepo repository.AffiliateApplicationRepository,
	userRepo repository.UserRepository,
) *affiliateDomain {
	return &affiliateDomain{
		affiliateRepo:   affiliateRepo,
		tierAuditRepo:   tierAuditRepo,
		applicationRepo: applicationRepo,
		userRepo:        userRepo,
		adminVerifier:   common.NewAdminVerifier(userRepo),
	}
}

func (d *affiliateDomain) GetMyAffiliate(
	ctx context.Context, req *model.GetMyAffiliateRequest,
) (*model.GetMyAffiliateResponse, error) {
	affiliate, err := d.getOrCreateAffiliate(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get affiliate of user: %v", err)
		return nil, errorx.Unknown
	}

	validated, err := d.affiliateRepo.CountValidatedReferrals(ctx, affiliate.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count validated referrals: %v", err)
		return nil, errorx.Unknown
	}

	tier := effectiveTier(xcontext.Configs(ctx).Affiliate.Tiers, affiliate.ManualTier, validated)
	return &model.GetMyAffiliateResponse{
		Affiliate: model.Affiliate{
			ID:                 affiliate.ID,
			ReferralCode:       affiliate.ReferralCode,
			Tier:               tier.Level,
			ManualTier:         int(affiliate.ManualTier.Int32),
			CommissionPercent:  tier.CommissionPercent,
			ValidatedReferrals: validated,
			PendingEarnings:    affiliate.PendingEarnings.String(),
			TotalEarned:        affiliate.TotalEarned.String(),
		},
	}, nil
}

func (d *affiliateDomain) SetManualTier(
	ctx context.Context, req *model.SetManualTierRequest,
) (*model.SetManualTierResponse, error) {
	if err := d.verifyAdmin(ctx); err != nil {
		return nil, err
	}

	tiers := xcontext.Configs(ctx).Affiliate.Tiers
	if req.Tier < 1 || req.Tier > len(tiers) {
		return nil, errorx.New(errorx.Validation, "Tier must be between 1 and %d", len(tiers))
	}

	newTier := sql.NullInt32{Int32: int32(req.Tier), Valid: true}
	if err := d.changeManualTier(ctx, req.AffiliateID, newTier, req.Reason); err != nil {
		return nil, err
	}

	return &model.SetManualTierResponse{}, nil
}

func (d *affiliateDomain) RemoveManualTier(
	ctx context.Context, req *model.RemoveManualTierRequest,
) (*model.RemoveManualTierResponse, error) {
	if err := d.verifyAdmin(ctx); err != nil {
		return nil, err
	}

	if err := d.changeManualTier(ctx, req.AffiliateID, sql.NullInt32{}, req.Reason); err != nil {
		return nil, err
	}

	return &model.RemoveManualTierResponse{}, nil
}

// changeManualTier updates the tier and appends the audit entry in the same
// transaction. Nothing is changed if the entry cannot be written.
func (d *affiliateDomain) changeManualTier(
	ctx context.Context, affiliateID string, newTier sql.NullInt32, reason string,
) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errorx.New(errorx.Validation, "A reason is required")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	affiliate, err := d.affiliateRepo.GetByID(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found affiliate")
		}

		xcontext.Logger(ctx).Errorf("Cannot get affiliate: %v", err)
		return errorx.Unknown
	}

	if !newTier.Valid && !affiliate.ManualTier.Valid {
		return errorx.New(errorx.Conflict, "Affiliate has no manual tier")
	}

	validated, err := d.affiliateRepo.CountValidatedReferrals(ctx, affiliate.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count validated referrals: %v", err)
		return errorx.Unknown
	}

	tiers := xcontext.Configs(ctx).Affiliate.Tiers
	oldTier := effectiveTier(tiers, affiliate.ManualTier, validated)

	if err := d.affiliateRepo.SetManualTier(ctx, affiliate.ID, newTier); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot set manual tier: %v", err)
		return errorx.Unknown
	}

	action := entity.TierAuditSetManualTier
	if !newTier.Valid {
		action = entity.TierAuditRemoveManualTier
	}

	entry := &entity.TierAuditEntry{
		ID:          uuid.NewString(),
		AffiliateID: affiliate.ID,
		AdminID:     xcontext.RequestUserID(ctx),
		Action:      action,
		OldTier:     oldTier.Level,
		NewTier:     newTier,
		Reason:      reason,
		IPAddress:   xcontext.RequestIP(ctx),
		UserAgent:   xcontext.RequestUserAgent(ctx),
		CreatedAt:   time.Now(),
	}
	if err := d.tierAuditRepo.Create(ctx, entry); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot record tier audit entry of affiliate %s: %v", affiliate.ID, err)
		return errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit manual tier change: %v", err)
		return errorx.Unknown
	}

	xcontext.Logger(ctx).Infof("Admin %s changed tier of affiliate %s: %s", entry.AdminID, affiliate.ID, action)
	return nil
}

func (d *affiliateDomain) GetTierHistory(
	ctx context.Context, req *model.GetTierHistoryRequest,
) (*model.GetTierHistoryResponse, error) {
	if err := d.verifyAdmin(ctx); err != nil {
		return nil, err
	}

	if req.AffiliateID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty affiliate id")
	}

	entries, err := d.tierAuditRepo.GetByAffiliateID(
		ctx, req.AffiliateID, auditLimit(req.Limit, defaultTierHistoryLimit))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get tier history: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetTierHistoryResponse{Entries: convertTierAuditEntries(entries)}, nil
}

func (d *affiliateDomain) GetRecentTierActions(
	ctx context.Context, req *model.GetRecentTierActionsRequest,
) (*model.GetRecentTierActionsResponse, error) {
	if err := d.verifyAdmin(ctx); err != nil {
		return nil, err
	}

	entries, err := d.tierAuditRepo.GetRecent(ctx, req.AdminID, auditLimit(req.Limit, defaultRecentActionsLimit))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get recent tier actions: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetRecentTierActionsResponse{Entries: convertTierAuditEntries(entries)}, nil
}

func (d *affiliateDomain) getOrCreateAffiliate(ctx context.Context, userID string) (*entity.Affiliate, error) {
	affiliate, err := d.affiliateRepo.GetByUserID(ctx, userID)
	if err == nil {
		return affiliate, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	affiliate = &entity.Affiliate{
		Base:            entity.Base{ID: uuid.NewString()},
		UserID:          userID,
		ReferralCode:    newReferralCode(),
		PendingEarnings: decimal.Zero,
		TotalEarned:     decimal.Zero,
	}
	if err := d.affiliateRepo.Create(ctx, affiliate); err != nil {
		return nil, err
	}

	return affiliate, nil
}

func (d *affiliateDomain) verifyAdmin(ctx context.Context) error {
	if err := d.adminVerifier.Verify(ctx); err != nil {
		if !errors.Is(err, common.ErrNotAdmin) && !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot verify admin: %v", err)
			return errorx.Unknown
		}

		return errorx.New(errorx.PermissionDenied, "Only administrators can do this action")
	}

	return nil
}

// effectiveTier returns the manual tier when one is set, otherwise the highest
// tier whose referral threshold is reached.
func effectiveTier(tiers []config.AffiliateTier, manual sql.NullInt32, validated int64) config.AffiliateTier {
	if manual.Valid {
		for _, t := range tiers {
			if t.Level == int(manual.Int32) {
				return t
			}
		}
	}

	result := config.AffiliateTier{Level: 1}
	for _, t := range tiers {
		if int64(t.MinReferrals) <= validated && t.Level >= result.Level {
			result = t
		}
	}

	return result
}

// commission is percent of value, rounded down to whole lamports.
func commission(value decimal.Decimal, percent int) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100)).Floor()
}

// accrueCommission credits the affiliate who referred buyerID with the
// commission of a purchase, and returns that affiliate. Buyers without a
// referrer are ignored.
func accrueCommission(
	ctx context.Context,
	affiliateRepo repository.AffiliateRepository,
	buyerID string,
	quantity int,
	value decimal.Decimal,
) (*entity.Affiliate, error) {
	referral, err := affiliateRepo.GetReferralByReferredUserID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	affiliate, err := affiliateRepo.GetByID(ctx, referral.ReferrerAffiliateID)
	if err != nil {
		return nil, err
	}

	validated, err := affiliateRepo.CountValidatedReferrals(ctx, affiliate.ID)
	if err != nil {
		return nil, err
	}

	tier := effectiveTier(xcontext.Configs(ctx).Affiliate.Tiers, affiliate.ManualTier, validated)
	amount := commission(value, tier.CommissionPercent)
	if amount.IsPositive() {
		if err := affiliateRepo.AddPendingEarnings(ctx, affiliate.ID, amount); err != nil {
			return nil, err
		}
	}

	err = affiliateRepo.RecordReferralPurchase(ctx, referral.ID, quantity, value, amount, time.Now())
	if err != nil {
		return nil, err
	}

	return affiliate, nil
}

func auditLimit(limit, defaultLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}

	if limit > maxTierAuditLimit {
		return maxTierAuditLimit
	}

	return limit
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func convertTierAuditEntries(entries []entity.TierAuditEntry) []model.TierAuditEntry {
	result := []model.TierAuditEntry{}
	for i := range entries {
		result = append(result, convertTierAuditEntry(&entries[i]))
	}

	return result
}
